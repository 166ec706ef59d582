package messaging

import "time"

type KafkaEvent = string

const (
	SyncRunStartedEvent   = "sync_run_started"
	SyncPhaseDoneEvent    = "sync_phase_done"
	SyncRunCompletedEvent = "sync_run_completed"
	SyncRunFailedEvent    = "sync_run_failed"
	MediaReconciledEvent  = "media_reconciled"
)

// SyncEventPayload — тело события жизненного цикла запуска
type SyncEventPayload struct {
	Event     KafkaEvent `json:"event"`
	RunID     string     `json:"run_id"`
	StoreName string     `json:"store_name"`
	Phase     string     `json:"phase,omitempty"`
	Status    string     `json:"status,omitempty"`
	Error     string     `json:"error,omitempty"`
	At        time.Time  `json:"at"`
}
