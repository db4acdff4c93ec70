// Package gateway holds the outbound client for the payment gateway's
// create-collect-request API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"paytrack-service/internal/config"
)

const defaultTimeoutMs = 10_000

type CollectRequest struct {
	SchoolID    string `json:"school_id"`
	Amount      string `json:"amount"`
	CallbackURL string `json:"callback_url"`
}

type CollectResponse struct {
	CollectRequestID  string `json:"collect_request_id"`
	CollectRequestURL string `json:"collect_request_url"`
	Sign              string `json:"sign"`
}

type Client struct {
	client    *http.Client
	url       string
	apiKey    string
	secretKey []byte
	logger    *slog.Logger
}

func NewClient(cfg config.Gateway, logger *slog.Logger) *Client {
	timeoutMs := cfg.TimeoutMs
	if timeoutMs <= 0 {
		timeoutMs = defaultTimeoutMs
	}
	return &Client{
		client:    &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		secretKey: []byte(cfg.SecretKey),
		logger:    logger,
	}
}

// CreateCollectRequest signs the request payload with the gateway secret and
// posts it, returning the gateway-issued collect request id and redirect URL.
func (c *Client) CreateCollectRequest(ctx context.Context, req CollectRequest) (*CollectResponse, error) {
	sign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"school_id":    req.SchoolID,
		"amount":       req.Amount,
		"callback_url": req.CallbackURL,
	}).SignedString(c.secretKey)
	if err != nil {
		return nil, errors.Wrap(err, "signing collect request")
	}

	body, err := json.Marshal(map[string]string{
		"school_id":    req.SchoolID,
		"amount":       req.Amount,
		"callback_url": req.CallbackURL,
		"sign":         sign,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshalling collect request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.Wrap(err, "creating collect request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.InfoContext(ctx, "Sending collect request to gateway", "schoolId", req.SchoolID)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "sending collect request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading collect response")
	}

	if resp.StatusCode >= 400 {
		c.logger.ErrorContext(ctx, "Gateway returned error response", "status", resp.Status)
		return nil, fmt.Errorf("gateway error response: %s", resp.Status)
	}

	var collectResp CollectResponse
	if err := json.Unmarshal(respBody, &collectResp); err != nil {
		return nil, errors.Wrap(err, "decoding collect response")
	}

	return &collectResp, nil
}
