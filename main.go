package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"paytrack-service/internal/config"
	"paytrack-service/internal/db"
	"paytrack-service/internal/docstore"
	"paytrack-service/internal/event"
	"paytrack-service/internal/gateway"
	"paytrack-service/internal/kafka"
	"paytrack-service/internal/logging"
	"paytrack-service/internal/metrics"
	"paytrack-service/internal/order"
	"paytrack-service/internal/payment"
	"paytrack-service/internal/reconcile"
	"paytrack-service/internal/transaction"
	"paytrack-service/internal/web"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.MustLoadConfig(".")

	logger := logging.GetLogger(cfg.Logs)
	metrics.Setup(cfg.Metrics)

	ctx := context.Background()

	store, err := docstore.Connect(ctx, cfg.Mongo)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close(ctx)

	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatal(err)
	}

	connStr := db.GetConnStr(cfg.Database)
	db.RunMigrations(connStr, "migrations")

	dbpool, err := db.GetPool(connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer dbpool.Close()

	orders := order.NewRepository(store)
	auditLog := db.NewWebhookLogRepository(dbpool)

	transactions := transaction.NewEngine(orders, logger)
	reconciler := reconcile.NewEngine(orders, auditLog, logger)
	payments := payment.NewService(gateway.NewClient(cfg.Gateway, logger), orders, cfg.Gateway.Name, logger)

	if cfg.Kafka.Enabled {
		eventReader := kafka.NewReader(cfg.Kafka.Broker.URL, cfg.Kafka.Topic.StatusEvents, cfg.Kafka.Reader.GroupID)
		defer eventReader.Close()

		processor := event.NewProcessor(reconciler, logger)
		kafka.ReadStatusEvents(eventReader, processor, logger)
	}

	mux := http.NewServeMux()
	handlers := web.NewHandlers(payments, transactions, reconciler, logger)
	handlers.Register(mux, web.BearerAuth(cfg.Auth.JWTSecret))

	log.Fatal(http.ListenAndServe(":"+cfg.Server.Port, mux))
}
