package events

import "time"

const (
	DispensaDecidedTopic     = "dispensa.request.decided.v1"
	DispensaDecidedEventType = "dispensa_decided"
)

// DispensaDecidedEvent is published once per successful approve or reject.
type DispensaDecidedEvent struct {
	EventType   string    `json:"event_type"`
	RequestID   string    `json:"request_id,omitempty"`
	DispensaID  string    `json:"dispensa_id"`
	Protocol    string    `json:"protocol"`
	Action      string    `json:"action"`
	FromStage   string    `json:"from_stage"`
	ToStage     string    `json:"to_stage"`
	DecidedBy   string    `json:"decided_by"`
	DecidedRole string    `json:"decided_role"`
	Version     int64     `json:"version"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Final reports whether the decision closed the workflow.
func (e DispensaDecidedEvent) Final() bool {
	return e.ToStage == "APPROVED" || e.ToStage == "REJECTED"
}
