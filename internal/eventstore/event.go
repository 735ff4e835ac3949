package eventstore

import "time"

// Event types written by the build pipeline and the contact relay.
const (
	TypeBuildStarted        = "BuildStarted"
	TypeStageCompleted      = "StageCompleted"
	TypeBuildCompleted      = "BuildCompleted"
	TypeSubmissionReceived  = "SubmissionReceived"
	TypeSubmissionDelivered = "SubmissionDelivered"
	TypeSubmissionFailed    = "SubmissionFailed"
)

// Event is a persisted record. Stream is a build ID for build events and a
// submission ID for relay events.
type Event struct {
	ID        int64             `json:"id"`
	Stream    string            `json:"stream"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}
