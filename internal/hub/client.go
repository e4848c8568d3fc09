// File: internal/hub/client.go

// Package hub implements the GEP agent-to-agent client for the remote
// marketplace. All calls are individually time-bounded and rate-limited;
// transient HTTP failures are retried with exponential backoff, 4xx responses
// are treated as permanent.
package hub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/config"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// a2aPath is the hub's single message endpoint.
const a2aPath = "/a2a"

// Client talks GEP to the remote hub.
type Client struct {
	endpoint   string
	senderID   string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries uint64
	log        *zap.Logger
}

var _ schemas.HubClient = (*Client)(nil)

// NewClient builds a hub client from configuration.
func NewClient(cfg config.HubConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		senderID:   cfg.SenderID,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxRetries: cfg.MaxRetries,
		log:        logger.Named("hub"),
	}
}

// FetchCandidates queries the hub for capsules repairing the given signals.
func (c *Client) FetchCandidates(ctx context.Context, signals []string) ([]schemas.RemoteCandidate, error) {
	payload := schemas.FetchPayload{
		AssetType: "Capsule",
		Signals:   strings.Join(signals, ","),
	}

	body, err := c.post(ctx, schemas.MessageTypeFetch, payload)
	if err != nil {
		return nil, err
	}

	var resp schemas.FetchResponse
	if err := jsonAPI.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed fetch response: %w", err)
	}

	c.log.Debug("Hub fetch completed",
		zap.Int("results", len(resp.Payload.Results)),
		zap.Strings("signals", signals),
	)
	return resp.Payload.Results, nil
}

// PublishAssets submits a gene/capsule/event bundle to the hub.
func (c *Client) PublishAssets(ctx context.Context, assets []json.RawMessage) error {
	_, err := c.post(ctx, schemas.MessageTypePublish, schemas.PublishPayload{Assets: assets})
	return err
}

// post wraps one GEP exchange in an envelope and a bounded retry loop.
func (c *Client) post(ctx context.Context, messageType string, payload any) ([]byte, error) {
	rawPayload, err := jsonAPI.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", messageType, err)
	}

	envelope := schemas.Envelope{
		Protocol:        schemas.GEPProtocol,
		ProtocolVersion: schemas.GEPProtocolVersion,
		MessageType:     messageType,
		MessageID:       uuid.NewString(),
		SenderID:        c.senderID,
		Timestamp:       time.Now().UTC(),
		Payload:         rawPayload,
	}
	rawEnvelope, err := jsonAPI.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	var responseBody []byte
	operation := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+a2aPath, bytes.NewReader(rawEnvelope))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create hub request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.log.Warn("Hub request failed, retrying...", zap.String("type", messageType), zap.Error(err))
			return err // Transport errors are transient, retry.
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("failed to read hub response: %w", err)
		}

		switch {
		case resp.StatusCode >= 500:
			c.log.Warn("Hub server error, retrying...", zap.Int("status", resp.StatusCode))
			return fmt.Errorf("hub returned status %d", resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("hub rejected %s message with status %d", messageType, resp.StatusCode))
		}

		responseBody = body
		return nil
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries)
	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, err
	}
	return responseBody, nil
}
