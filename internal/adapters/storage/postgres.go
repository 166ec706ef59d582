package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/athebyme/shopify-bulk-sync/internal/utils"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncStorageInterface определяет интерфейс взаимодействия с хранилищем PostgreSQL
type SyncStorageInterface interface {
	// SyncRun методы
	SaveRun(ctx context.Context, run *models.SyncRun) error
	GetRun(ctx context.Context, runID string) (*models.SyncRun, error)
	ListRuns(ctx context.Context, storeName string, page, pageSize int) ([]*models.SyncRun, int, error)
	FinishRun(ctx context.Context, runID, status, errorText string) error

	// SyncPhase методы
	SavePhase(ctx context.Context, phase *models.SyncPhase) error
	GetPhases(ctx context.Context, runID string) ([]*models.SyncPhase, error)

	// Нерешённые handle методы
	SaveUnresolvedHandles(ctx context.Context, runID string, handles []string) error
	GetUnresolvedHandles(ctx context.Context, runID string) ([]string, error)
}

type SyncStoragePort interface {
	SyncStorageInterface

	BeginTx(ctx context.Context) (context.Context, error)

	CommitTx(ctx context.Context) error

	RollbackTx(ctx context.Context) error

	Close() error
}

// contextKey тип для ключей контекста
type contextKey string

// Ключи контекста
const (
	txKey contextKey = "transaction"
)

// SyncStorage реализация хранилища запусков для PostgreSQL
type SyncStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage создает новый экземпляр SyncStorage
func NewPostgresStorage(ctx context.Context, connectionString string) (*SyncStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return &SyncStorage{
		pool: pool,
	}, nil
}

func NewPostgresStorageWithPool(ctx context.Context, pool *pgxpool.Pool) (*SyncStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &SyncStorage{
		pool: pool,
	}, nil
}

// Close закрывает соединение с БД
func (r *SyncStorage) Close() error {
	r.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает исполнителя запросов (транзакцию или пул)
func (r *SyncStorage) getExecutor(ctx context.Context) executor {
	if tx := r.getTx(ctx); tx != nil {
		return tx // pgx.Tx реализует нужные методы
	}
	return r.pool // *pgxpool.Pool тоже реализует нужные методы
}

// getTx получает транзакцию из контекста
func (r *SyncStorage) getTx(ctx context.Context) pgx.Tx {
	txFromCtx, ok := ctx.Value(txKey).(pgx.Tx)
	if !ok {
		return nil
	}
	return txFromCtx
}

// BeginTx начинает новую транзакцию
func (r *SyncStorage) BeginTx(ctx context.Context) (context.Context, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return context.WithValue(ctx, txKey, tx), nil
}

// CommitTx фиксирует транзакцию
func (r *SyncStorage) CommitTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Commit(ctx)
}

// RollbackTx откатывает транзакцию
func (r *SyncStorage) RollbackTx(ctx context.Context) error {
	tx := r.getTx(ctx)
	if tx == nil {
		return errors.New("no transaction in context")
	}
	return tx.Rollback(ctx)
}

// SaveRun сохраняет запись о запуске синхронизации
func (r *SyncStorage) SaveRun(ctx context.Context, run *models.SyncRun) error {
	executor := r.getExecutor(ctx)

	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sync.runs (id, store_name, source_file, status, fail_fast, started_at, finished_at, error_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id)
		DO UPDATE SET
			status = $4,
			finished_at = $7,
			error_text = $8
	`

	_, err := executor.Exec(ctx, query, run.ID, run.StoreName, run.SourceFile, run.Status,
		run.FailFast, run.StartedAt, run.FinishedAt, run.ErrorText)
	if err != nil {
		return fmt.Errorf("failed to save sync run: %w", err)
	}
	return nil
}

// GetRun получает запуск по ID
func (r *SyncStorage) GetRun(ctx context.Context, runID string) (*models.SyncRun, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT id, store_name, source_file, status, fail_fast, started_at, finished_at, error_text
		FROM sync.runs
		WHERE id = $1
	`

	var run models.SyncRun
	row := executor.QueryRow(ctx, query, runID)
	err := row.Scan(&run.ID, &run.StoreName, &run.SourceFile, &run.Status, &run.FailFast,
		&run.StartedAt, &run.FinishedAt, &run.ErrorText)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, utils.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get sync run: %w", err)
	}

	return &run, nil
}

// ListRuns возвращает список запусков с поддержкой пагинации
func (r *SyncStorage) ListRuns(ctx context.Context, storeName string, page, pageSize int) ([]*models.SyncRun, int, error) {
	executor := r.getExecutor(ctx)

	countQuery := `
		SELECT COUNT(*)
		FROM sync.runs
		WHERE store_name = $1
	`

	var total int
	if err := executor.QueryRow(ctx, countQuery, storeName).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count sync runs: %w", err)
	}

	if total == 0 {
		return []*models.SyncRun{}, 0, nil
	}

	dataQuery := `
		SELECT id, store_name, source_file, status, fail_fast, started_at, finished_at, error_text
		FROM sync.runs
		WHERE store_name = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := executor.Query(ctx, dataQuery, storeName, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		var run models.SyncRun
		err := rows.Scan(&run.ID, &run.StoreName, &run.SourceFile, &run.Status, &run.FailFast,
			&run.StartedAt, &run.FinishedAt, &run.ErrorText)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan sync run row: %w", err)
		}
		runs = append(runs, &run)
	}

	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("error while iterating sync run rows: %w", rows.Err())
	}

	return runs, total, nil
}

// FinishRun помечает запуск завершённым с итоговым статусом
func (r *SyncStorage) FinishRun(ctx context.Context, runID, status, errorText string) error {
	executor := r.getExecutor(ctx)

	query := `
		UPDATE sync.runs
		SET status = $2, finished_at = $3, error_text = $4
		WHERE id = $1
	`

	now := time.Now().UTC()
	_, err := executor.Exec(ctx, query, runID, status, now, errorText)
	if err != nil {
		return fmt.Errorf("failed to finish sync run: %w", err)
	}
	return nil
}

// SavePhase сохраняет запись о фазе запуска
func (r *SyncStorage) SavePhase(ctx context.Context, phase *models.SyncPhase) error {
	executor := r.getExecutor(ctx)

	if phase.StartedAt.IsZero() {
		phase.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO sync.phases (run_id, name, status, operation_id, object_count, result_url,
			error_code, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (run_id, name)
		DO UPDATE SET
			status = $3,
			operation_id = $4,
			object_count = $5,
			result_url = $6,
			error_code = $7,
			finished_at = $9
	`

	_, err := executor.Exec(ctx, query, phase.RunID, phase.Name, phase.Status, phase.OperationID,
		phase.ObjectCount, phase.ResultURL, phase.ErrorCode, phase.StartedAt, phase.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save sync phase: %w", err)
	}
	return nil
}

// GetPhases получает все фазы запуска
func (r *SyncStorage) GetPhases(ctx context.Context, runID string) ([]*models.SyncPhase, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT run_id, name, status, operation_id, object_count, result_url, error_code, started_at, finished_at
		FROM sync.phases
		WHERE run_id = $1
		ORDER BY started_at
	`

	rows, err := executor.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync phases: %w", err)
	}
	defer rows.Close()

	var phases []*models.SyncPhase
	for rows.Next() {
		var phase models.SyncPhase
		err := rows.Scan(&phase.RunID, &phase.Name, &phase.Status, &phase.OperationID,
			&phase.ObjectCount, &phase.ResultURL, &phase.ErrorCode, &phase.StartedAt, &phase.FinishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync phase row: %w", err)
		}
		phases = append(phases, &phase)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating sync phase rows: %w", rows.Err())
	}

	return phases, nil
}

// SaveUnresolvedHandles сохраняет handle, не сопоставленные с товарами
func (r *SyncStorage) SaveUnresolvedHandles(ctx context.Context, runID string, handles []string) error {
	executor := r.getExecutor(ctx)

	query := `
		INSERT INTO sync.unresolved_handles (run_id, handle, recorded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, handle) DO NOTHING
	`

	now := time.Now().UTC()
	for _, handle := range handles {
		if _, err := executor.Exec(ctx, query, runID, handle, now); err != nil {
			return fmt.Errorf("failed to save unresolved handle: %w", err)
		}
	}
	return nil
}

// GetUnresolvedHandles получает нерешённые handle запуска
func (r *SyncStorage) GetUnresolvedHandles(ctx context.Context, runID string) ([]string, error) {
	executor := r.getExecutor(ctx)

	query := `
		SELECT handle
		FROM sync.unresolved_handles
		WHERE run_id = $1
		ORDER BY handle
	`

	rows, err := executor.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved handles: %w", err)
	}
	defer rows.Close()

	var handles []string
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved handle row: %w", err)
		}
		handles = append(handles, handle)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error while iterating unresolved handle rows: %w", rows.Err())
	}

	return handles, nil
}
