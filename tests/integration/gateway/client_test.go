package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paytrack-service/internal/config"
	"paytrack-service/internal/gateway"
)

func newTestClient() *gateway.Client {
	return gateway.NewClient(config.Gateway{
		Name:      "Edviron",
		URL:       "http://gateway.example.com/erp/create-collect-request",
		APIKey:    "api-key",
		SecretKey: "pg-secret",
	}, slog.Default())
}

func collectRequest() gateway.CollectRequest {
	return gateway.CollectRequest{
		SchoolID:    "6740abcd1234abcd1234abcd",
		Amount:      "500",
		CallbackURL: "http://example.com/webhook",
	}
}

func TestCreateCollectRequest_Success(t *testing.T) {
	defer gock.Off()

	gock.New("http://gateway.example.com").
		Post("/erp/create-collect-request").
		MatchHeader("Authorization", "Bearer api-key").
		MatchHeader("Content-Type", "application/json").
		Reply(200).
		JSON(map[string]string{
			"collect_request_id":  "CR-123",
			"collect_request_url": "http://gateway.example.com/pay/CR-123",
			"sign":                "signed",
		})

	resp, err := newTestClient().CreateCollectRequest(context.Background(), collectRequest())
	require.NoError(t, err)

	assert.Equal(t, "CR-123", resp.CollectRequestID)
	assert.Equal(t, "http://gateway.example.com/pay/CR-123", resp.CollectRequestURL)
	assert.Equal(t, "signed", resp.Sign)
	assert.True(t, gock.IsDone())
}

func TestCreateCollectRequest_SignsPayload(t *testing.T) {
	defer gock.Off()
	defer gock.Observe(nil)

	var body map[string]string
	gock.Observe(func(req *http.Request, _ gock.Mock) {
		if req.GetBody == nil {
			return
		}
		rc, err := req.GetBody()
		require.NoError(t, err)
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
	})

	gock.New("http://gateway.example.com").
		Post("/erp/create-collect-request").
		Reply(200).
		JSON(map[string]string{"collect_request_id": "CR-1", "collect_request_url": "u", "sign": "s"})

	_, err := newTestClient().CreateCollectRequest(context.Background(), collectRequest())
	require.NoError(t, err)
	require.NotEmpty(t, body["sign"])

	// The sign is a verifiable HS256 token over the request fields.
	token, err := jwt.Parse(body["sign"], func(*jwt.Token) (any, error) {
		return []byte("pg-secret"), nil
	})
	require.NoError(t, err)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "6740abcd1234abcd1234abcd", claims["school_id"])
	assert.Equal(t, "500", claims["amount"])
	assert.Equal(t, "http://example.com/webhook", claims["callback_url"])
}

func TestCreateCollectRequest_ErrorResponse(t *testing.T) {
	defer gock.Off()

	gock.New("http://gateway.example.com").
		Post("/erp/create-collect-request").
		Reply(500).
		JSON(map[string]string{"message": "internal error"})

	_, err := newTestClient().CreateCollectRequest(context.Background(), collectRequest())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "gateway error response")
	assert.True(t, gock.IsDone())
}
