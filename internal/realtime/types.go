package realtime

import (
	"time"

	"github.com/wonny/hotscore/internal/contracts"
)

// Event types pushed to websocket clients
const (
	EventBatchCompleted = "batch_completed"
)

// ScoreEvent is one message on the /ws/scores stream
// ⭐ SSOT: 웹소켓 이벤트 구조
type ScoreEvent struct {
	Type            string    `json:"type"`
	Processed       int       `json:"processed"`
	Skipped         int       `json:"skipped"`
	Failed          int       `json:"failed"`
	HasMore         bool      `json:"hasMore"`
	LastProcessedID *string   `json:"lastProcessedId"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewBatchEvent builds the event for a persisted batch
func NewBatchEvent(r *contracts.BatchResult) ScoreEvent {
	return ScoreEvent{
		Type:            EventBatchCompleted,
		Processed:       r.Processed,
		Skipped:         r.Skipped,
		Failed:          r.Failed,
		HasMore:         r.HasMore,
		LastProcessedID: r.LastProcessedID,
		Timestamp:       r.StartedAt.Add(r.Duration),
	}
}
