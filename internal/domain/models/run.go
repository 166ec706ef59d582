package models

import "time"

// Статусы запуска синхронизации
const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusPartial   = "partial"
)

// Имена фаз конвейера. Порядок фиксирован: товары, варианты, публикация.
const (
	PhaseProducts = "products"
	PhaseVariants = "variants"
	PhasePublish  = "publish"
)

// SyncRun — запись о запуске синхронизации каталога
type SyncRun struct {
	ID          string     `json:"id"`
	StoreName   string     `json:"store_name"`
	SourceFile  string     `json:"source_file"`
	Status      string     `json:"status"`
	FailFast    bool       `json:"fail_fast"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	ErrorText   string     `json:"error_text,omitempty"`
}

// SyncPhase — запись об одной фазе запуска
type SyncPhase struct {
	RunID       string     `json:"run_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	OperationID string     `json:"operation_id,omitempty"`
	ObjectCount string     `json:"object_count,omitempty"`
	ResultURL   string     `json:"result_url,omitempty"`
	ErrorCode   string     `json:"error_code,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// ResolveReport — отчёт резолвера о сопоставлении handle и GID.
// Частичный провал не ошибка: нерешённые handle перечислены отдельно.
type ResolveReport struct {
	Resolved   map[string]string `json:"resolved"`
	Unresolved []string          `json:"unresolved"`
}

// ReconcileReport — итог согласования медиафайлов
type ReconcileReport struct {
	ProductsSeen int `json:"products_seen"`
	FilesUpdated int `json:"files_updated"`
	Duplicates   int `json:"duplicates"`
	Chunks       int `json:"chunks"`
}
