// File: api/schemas/envelope.go
package schemas

import (
	"encoding/json"
	"time"
)

// GEP agent-to-agent protocol constants. Every hub exchange is wrapped in an
// Envelope carrying these identifiers.
const (
	GEPProtocol        = "gep-a2a"
	GEPProtocolVersion = "1.0.0"

	MessageTypeFetch   = "fetch"
	MessageTypePublish = "publish"
)

// Envelope is the outer frame of every GEP hub message.
type Envelope struct {
	Protocol        string          `json:"protocol"`
	ProtocolVersion string          `json:"protocol_version"`
	MessageType     string          `json:"message_type"`
	MessageID       string          `json:"message_id"`
	SenderID        string          `json:"sender_id"`
	Timestamp       time.Time       `json:"timestamp"`
	Payload         json.RawMessage `json:"payload"`
}

// FetchPayload asks the hub for capsules matching a set of failure signals.
// Signals are comma-joined, matching the wire format the hub expects.
type FetchPayload struct {
	AssetType string `json:"asset_type"`
	Signals   string `json:"signals"`
}

// PublishPayload carries a full gene/capsule/event bundle to the hub.
type PublishPayload struct {
	Assets []json.RawMessage `json:"assets"`
}

// FetchResponse is the hub's reply to a fetch message.
type FetchResponse struct {
	Status  string `json:"status"`
	Payload struct {
		Results []RemoteCandidate `json:"results"`
	} `json:"payload"`
}

// RemoteCandidate is one hub-side match for a signal query. QualityScore is
// the hub's 0-100 quality metric; callers map it into the local [0,1] space.
type RemoteCandidate struct {
	AssetID      string   `json:"asset_id"`
	Summary      string   `json:"summary"`
	Category     string   `json:"category,omitempty"`
	SignalsMatch []string `json:"signals_match"`
	QualityScore float64  `json:"quality_score"`
}

// PublishedBundle is the locally persisted record of one publication attempt.
// Bundle holds the gene, capsule and evolution event in that order.
type PublishedBundle struct {
	Timestamp     time.Time         `json:"timestamp"`
	Bundle        []json.RawMessage `json:"bundle"`
	FixResult     FixResult         `json:"fix_result"`
	OriginalError FailureEvent      `json:"original_error"`
}
