// File: internal/hub/client_test.go
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/evomap/remedy-cli/api/schemas"
	"github.com/evomap/remedy-cli/internal/config"
)

func testClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	return NewClient(config.HubConfig{
		Enabled:    true,
		Endpoint:   endpoint,
		SenderID:   "remedy-test",
		Timeout:    2 * time.Second,
		RateLimit:  1000, // effectively unlimited in tests
		MaxRetries: 2,
	}, zaptest.NewLogger(t))
}

func TestFetchCandidatesSendsEnvelope(t *testing.T) {
	var captured schemas.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/a2a", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		resp := schemas.FetchResponse{Status: "ok"}
		resp.Payload.Results = []schemas.RemoteCandidate{
			{AssetID: "sha256:abc", Summary: "retry gene", QualityScore: 87},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	results, err := c.FetchCandidates(context.Background(), []string{"TimeoutError", "ECONNRESET"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "sha256:abc", results[0].AssetID)
	assert.InDelta(t, 87, results[0].QualityScore, 1e-9)

	assert.Equal(t, schemas.GEPProtocol, captured.Protocol)
	assert.Equal(t, schemas.GEPProtocolVersion, captured.ProtocolVersion)
	assert.Equal(t, schemas.MessageTypeFetch, captured.MessageType)
	assert.Equal(t, "remedy-test", captured.SenderID)
	_, err = uuid.Parse(captured.MessageID)
	assert.NoError(t, err, "message_id must be a valid uuid")

	var payload schemas.FetchPayload
	require.NoError(t, json.Unmarshal(captured.Payload, &payload))
	assert.Equal(t, "Capsule", payload.AssetType)
	assert.Equal(t, "TimeoutError,ECONNRESET", payload.Signals)
}

func TestPublishAssetsSendsBundle(t *testing.T) {
	var captured schemas.Envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	assets := []json.RawMessage{
		json.RawMessage(`{"kind":"gene"}`),
		json.RawMessage(`{"kind":"capsule"}`),
	}
	require.NoError(t, c.PublishAssets(context.Background(), assets))

	assert.Equal(t, schemas.MessageTypePublish, captured.MessageType)

	var payload schemas.PublishPayload
	require.NoError(t, json.Unmarshal(captured.Payload, &payload))
	assert.Len(t, payload.Assets, 2)
}

func TestPostRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(schemas.FetchResponse{Status: "ok"})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	_, err := c.FetchCandidates(context.Background(), []string{"TimeoutError"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestPostTreatsClientErrorsAsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	err := c.PublishAssets(context.Background(), []json.RawMessage{json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestPostGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	err := c.PublishAssets(context.Background(), []json.RawMessage{json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "initial attempt plus two retries")
}

func TestPostHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := testClient(t, srv.URL)
	_, err := c.FetchCandidates(ctx, []string{"TimeoutError"})
	assert.Error(t, err)
}
