package db

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"paytrack-service/internal/db"
	"paytrack-service/tests/testhelpers"
)

type WebhookLogRepositoryTestSuite struct {
	suite.Suite
	pgContainer *testhelpers.PostgresContainer
	pool        *pgxpool.Pool
	sut         *db.WebhookLogRepository
	ctx         context.Context
}

func (s *WebhookLogRepositoryTestSuite) SetupSuite() {
	time.Local = time.UTC

	s.ctx = context.Background()
	pgContainer, err := testhelpers.CreatePostgresContainer(s.ctx)
	if err != nil {
		log.Fatal(err)
	}
	s.pgContainer = pgContainer

	db.RunMigrations(pgContainer.ConnectionString, "../../../migrations")

	pool, err := db.GetPool(pgContainer.ConnectionString)
	if err != nil {
		log.Fatal(err)
	}

	s.pool = pool
	s.sut = db.NewWebhookLogRepository(pool)
}

func (s *WebhookLogRepositoryTestSuite) TearDownSuite() {
	s.pool.Close()

	if err := s.pgContainer.Terminate(s.ctx); err != nil {
		log.Fatalf("error terminating postgres container: %s", err)
	}
}

func (s *WebhookLogRepositoryTestSuite) SetupTest() {
	_, err := s.pool.Exec(s.ctx, "DELETE FROM webhook_log")
	if err != nil {
		log.Fatalf("error truncating webhook_log table: %s", err)
	}
}

func newEntity(orderID string) *db.WebhookLogEntity {
	bankRef := "BANK-1"
	return &db.WebhookLogEntity{
		ID:                uuid.New(),
		OrderID:           orderID,
		OrderAmount:       500,
		TransactionAmount: 495,
		Gateway:           "Edviron",
		BankReference:     &bankRef,
		Status:            "success",
		PaymentMode:       "upi",
		PaymentTime:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		ReceivedAt:        time.Now().UTC(),
	}
}

func (s *WebhookLogRepositoryTestSuite) TestCreate() {
	t := s.T()

	entity := newEntity("6740abcd1234abcd1234abcd")

	created, err := s.sut.Create(s.ctx, entity)
	assert.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, entity.ID, created.ID)
}

func (s *WebhookLogRepositoryTestSuite) TestGetByOrderID() {
	t := s.T()

	orderID := "6740abcd1234abcd1234abcd"

	first := newEntity(orderID)
	first.ReceivedAt = time.Now().UTC().Add(-time.Minute)
	_, err := s.sut.Create(s.ctx, first)
	assert.NoError(t, err)

	second := newEntity(orderID)
	second.Status = "failed"
	_, err = s.sut.Create(s.ctx, second)
	assert.NoError(t, err)

	_, err = s.sut.Create(s.ctx, newEntity("6740abcd1234abcd1234aaaa"))
	assert.NoError(t, err)

	entities, err := s.sut.GetByOrderID(s.ctx, orderID)
	assert.NoError(t, err)
	assert.Len(t, entities, 2)
	assert.Equal(t, first.ID, entities[0].ID)
	assert.Equal(t, "failed", entities[1].Status)
}

func (s *WebhookLogRepositoryTestSuite) TestCreateIsAppendOnlyPerEvent() {
	t := s.T()

	orderID := "6740abcd1234abcd1234abcd"

	// The same event payload received twice yields two distinct rows.
	_, err := s.sut.Create(s.ctx, newEntity(orderID))
	assert.NoError(t, err)
	_, err = s.sut.Create(s.ctx, newEntity(orderID))
	assert.NoError(t, err)

	entities, err := s.sut.GetByOrderID(s.ctx, orderID)
	assert.NoError(t, err)
	assert.Len(t, entities, 2)
}

func TestWebhookLogRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(WebhookLogRepositoryTestSuite))
}
