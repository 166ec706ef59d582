package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/athebyme/shopify-bulk-sync/internal/adapters/messaging"
	"github.com/athebyme/shopify-bulk-sync/internal/adapters/shopify"
	postgres "github.com/athebyme/shopify-bulk-sync/internal/adapters/storage"
	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики для Prometheus
var (
	phasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_phases_total",
		Help: "Количество выполненных фаз синхронизации",
	}, []string{"phase", "status"})

	phaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sync_phase_duration_seconds",
		Help:    "Длительность фаз синхронизации",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	}, []string{"phase"})

	pollsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sync_bulk_polls_total",
		Help: "Количество опросов состояния bulk-операций",
	})
)

// SyncServiceInterface — операции конвейера, доступные управляющему API
type SyncServiceInterface interface {
	Run(ctx context.Context, sourceFile string, products []*models.SourceProduct) (*models.SyncRun, error)
	CreateSingle(ctx context.Context, product *models.SourceProduct) (string, error)
	GetRun(ctx context.Context, runID string) (*models.SyncRun, []*models.SyncPhase, error)
	ListRuns(ctx context.Context, page, pageSize int) ([]*models.SyncRun, int, error)
	UnresolvedHandles(ctx context.Context, runID string) ([]string, error)
}

// SyncOptions — параметры работы конвейера
type SyncOptions struct {
	StoreName    string
	WorkDir      string
	PollInterval time.Duration
	PollBudget   time.Duration
	FailFast     bool
	Topic        string
}

// SyncService ведёт четырёхфазный конвейер bulk-синхронизации:
// товары, затем варианты, затем публикация. Фазы строго последовательны,
// каждая блокируется до завершения серверной bulk-операции.
type SyncService struct {
	gateway   ShopifyGateway
	projector *ProjectorService
	resolver  *ResolverService
	storage   postgres.SyncStoragePort
	messenger interfaces.MessagingPort
	logger    interfaces.LoggerPort
	opts      SyncOptions
	sleep     func(time.Duration)
}

// NewSyncService создает новый сервис синхронизации
func NewSyncService(
	gateway ShopifyGateway,
	projector *ProjectorService,
	resolver *ResolverService,
	storage postgres.SyncStoragePort,
	messenger interfaces.MessagingPort,
	logger interfaces.LoggerPort,
	opts SyncOptions,
) *SyncService {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.PollBudget <= 0 {
		opts.PollBudget = 30 * time.Minute
	}
	return &SyncService{
		gateway:   gateway,
		projector: projector,
		resolver:  resolver,
		storage:   storage,
		messenger: messenger,
		logger:    logger,
		opts:      opts,
		sleep:     time.Sleep,
	}
}

// Run выполняет полную синхронизацию каталога из прочитанной выгрузки
func (s *SyncService) Run(ctx context.Context, sourceFile string, products []*models.SourceProduct) (*models.SyncRun, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("nothing to sync: source is empty")
	}

	run := &models.SyncRun{
		ID:         uuid.New().String(),
		StoreName:  s.opts.StoreName,
		SourceFile: sourceFile,
		Status:     models.RunStatusRunning,
		FailFast:   s.opts.FailFast,
		StartedAt:  time.Now().UTC(),
	}
	if err := s.storage.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to record sync run: %w", err)
	}

	ctx = context.WithValue(ctx, "run_id", run.ID)
	s.publishEvent(ctx, messaging.SyncRunStartedEvent, run, "", "")
	s.logger.InfoWithContext(ctx, "Запуск синхронизации каталога",
		interfaces.LogField{Key: "products", Value: len(products)},
		interfaces.LogField{Key: "fail_fast", Value: s.opts.FailFast},
	)

	failed := false

	// Фаза 1: создание товаров
	productLines := s.projector.ProjectProducts(products)
	if err := s.runPhase(ctx, run, models.PhaseProducts, toLines(productLines)); err != nil {
		failed = true
		if s.opts.FailFast {
			return s.finishRun(ctx, run, models.RunStatusFailed, err)
		}
	}

	// Резолвер сопоставляет только что созданные товары с их GID
	handles := make([]string, 0, len(products))
	for _, product := range products {
		handles = append(handles, product.Handle)
	}
	report, err := s.resolver.ResolveIDs(ctx, handles)
	if err != nil {
		return s.finishRun(ctx, run, models.RunStatusFailed, err)
	}
	if len(report.Unresolved) > 0 {
		if err := s.storage.SaveUnresolvedHandles(ctx, run.ID, report.Unresolved); err != nil {
			s.logger.ErrorWithContext(ctx, "Не удалось сохранить нерешённые handle",
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}

	locations, err := s.locationIndex(ctx)
	if err != nil {
		s.logger.WarnWithContext(ctx, "Локации недоступны, остатки по локациям не переносятся",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}

	// Фаза 2: создание вариантов
	variantLines := s.projector.ProjectVariants(products, report.Resolved, locations)
	if err := s.runPhase(ctx, run, models.PhaseVariants, toLines(variantLines)); err != nil {
		failed = true
		if s.opts.FailFast {
			return s.finishRun(ctx, run, models.RunStatusFailed, err)
		}
	}

	// Фаза 3: публикация. Снимок каналов продаж берётся один раз на проход.
	publications, err := s.gateway.Publications(ctx)
	if err != nil {
		return s.finishRun(ctx, run, models.RunStatusFailed, fmt.Errorf("failed to list publications: %w", err))
	}
	publishLines := s.projector.ProjectPublish(products, report.Resolved, publications)
	if err := s.runPhase(ctx, run, models.PhasePublish, toLines(publishLines)); err != nil {
		failed = true
		if s.opts.FailFast {
			return s.finishRun(ctx, run, models.RunStatusFailed, err)
		}
	}

	status := models.RunStatusCompleted
	if failed || len(report.Unresolved) > 0 {
		status = models.RunStatusPartial
	}
	return s.finishRun(ctx, run, status, nil)
}

// runPhase проводит одну фазу через staged-загрузку и bulk-операцию
func (s *SyncService) runPhase(ctx context.Context, run *models.SyncRun, name string, lines []interface{}) error {
	phase := &models.SyncPhase{
		RunID:     run.ID,
		Name:      name,
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.storage.SavePhase(ctx, phase); err != nil {
		return fmt.Errorf("failed to record phase %s: %w", name, err)
	}

	finish := func(op *models.BulkOperation, phaseErr error) error {
		now := time.Now().UTC()
		phase.FinishedAt = &now
		if op != nil {
			phase.OperationID = op.ID
			phase.ObjectCount = op.ObjectCount
			phase.ResultURL = op.URL
			phase.ErrorCode = op.ErrorCode
		}
		if phaseErr != nil {
			phase.Status = models.RunStatusFailed
			phasesTotal.WithLabelValues(name, "failed").Inc()
		} else {
			phase.Status = models.RunStatusCompleted
			phasesTotal.WithLabelValues(name, "completed").Inc()
		}
		phaseDuration.WithLabelValues(name).Observe(now.Sub(phase.StartedAt).Seconds())
		if err := s.storage.SavePhase(ctx, phase); err != nil {
			s.logger.ErrorWithContext(ctx, "Не удалось обновить запись фазы",
				interfaces.LogField{Key: "phase", Value: name},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
		s.publishEvent(ctx, messaging.SyncPhaseDoneEvent, run, name, phase.Status)
		return phaseErr
	}

	if len(lines) == 0 {
		s.logger.InfoWithContext(ctx, "Фаза без записей пропущена",
			interfaces.LogField{Key: "phase", Value: name},
		)
		return finish(nil, nil)
	}

	document, err := shopify.BulkDocument(name)
	if err != nil {
		return finish(nil, err)
	}

	fileTag := fmt.Sprintf("%s_%s", run.ID, name)
	op, err := s.bulkRound(ctx, fileTag, document, lines)
	return finish(op, err)
}

// bulkRound выполняет один цикл STAGE -> UPLOAD -> RUN -> POLL
func (s *SyncService) bulkRound(ctx context.Context, fileTag, document string, lines []interface{}) (*models.BulkOperation, error) {
	path := filepath.Join(s.opts.WorkDir, fmt.Sprintf("bulk_%s.jsonl", fileTag))
	if err := writeJSONL(path, lines); err != nil {
		return nil, err
	}

	target, err := s.gateway.CreateStagedTarget(ctx)
	if err != nil {
		return nil, fmt.Errorf("stage failed: %w", err)
	}

	if err := s.gateway.UploadStaged(ctx, target, path); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	// Путь к загруженному файлу ищется по имени параметра,
	// а не по позиции в списке
	stagedPath, ok := target.Param("key")
	if !ok {
		return nil, fmt.Errorf("staged target carries no key parameter")
	}

	op, err := s.gateway.RunBulkMutation(ctx, document, stagedPath)
	if err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}

	s.logger.InfoWithContext(ctx, "Bulk-операция запущена",
		interfaces.LogField{Key: "operation_id", Value: op.ID},
		interfaces.LogField{Key: "lines", Value: len(lines)},
	)
	return s.pollUntilDone(ctx)
}

// pollUntilDone опрашивает состояние bulk-операции до конечного статуса
// или исчерпания бюджета ожидания
func (s *SyncService) pollUntilDone(ctx context.Context) (*models.BulkOperation, error) {
	deadline := time.Now().Add(s.opts.PollBudget)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		op, err := s.gateway.CurrentBulkOperation(ctx)
		if err != nil {
			return nil, fmt.Errorf("status poll failed: %w", err)
		}
		pollsTotal.Inc()

		if op.Terminal() {
			if op.Status == models.BulkStatusCompleted {
				return op, nil
			}
			return op, fmt.Errorf("bulk operation finished as %s (error code %q)", op.Status, op.ErrorCode)
		}

		if time.Now().After(deadline) {
			return op, fmt.Errorf("%w: operation %s still %s", shopify.ErrPollBudgetExceeded, op.ID, op.Status)
		}

		s.sleep(s.opts.PollInterval)
	}
}

// CreateSingle создаёт один товар прямыми мутациями, минуя bulk-конвейер.
// Вариант для точечных правок, когда объём не оправдывает bulk-операцию.
func (s *SyncService) CreateSingle(ctx context.Context, product *models.SourceProduct) (string, error) {
	if product == nil {
		return "", fmt.Errorf("nothing to create: product is empty")
	}

	lines := s.projector.ProjectProducts([]*models.SourceProduct{product})
	productID, err := s.gateway.CreateProduct(ctx, lines[0])
	if err != nil {
		return "", fmt.Errorf("product create failed: %w", err)
	}

	locations, err := s.locationIndex(ctx)
	if err != nil {
		s.logger.WarnWithContext(ctx, "Локации недоступны, остатки по локациям не переносятся",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}

	resolved := map[string]string{product.Handle: productID}
	for _, line := range s.projector.ProjectVariants([]*models.SourceProduct{product}, resolved, locations) {
		if err := s.gateway.CreateVariants(ctx, line); err != nil {
			return productID, fmt.Errorf("variants create failed: %w", err)
		}
	}

	if product.Published {
		publications, err := s.gateway.Publications(ctx)
		if err != nil {
			return productID, fmt.Errorf("failed to list publications: %w", err)
		}
		input := make([]models.PublicationInput, 0, len(publications))
		for _, pub := range publications {
			input = append(input, models.PublicationInput{PublicationID: pub.ID})
		}
		if err := s.gateway.PublishProduct(ctx, productID, input); err != nil {
			return productID, fmt.Errorf("publish failed: %w", err)
		}
	}

	s.logger.InfoWithContext(ctx, "Товар создан прямыми мутациями",
		interfaces.LogField{Key: "handle", Value: product.Handle},
		interfaces.LogField{Key: "product_id", Value: productID},
	)
	return productID, nil
}

// RunBulkLines проводит произвольный набор строк через bulk-конвейер.
// Используется согласователем медиафайлов в bulk-режиме.
func (s *SyncService) RunBulkLines(ctx context.Context, document string, lines []interface{}) error {
	if len(lines) == 0 {
		return nil
	}
	fileTag := fmt.Sprintf("adhoc_%s", uuid.New().String())
	_, err := s.bulkRound(ctx, fileTag, document, lines)
	return err
}

// GetRun возвращает запуск вместе с его фазами
func (s *SyncService) GetRun(ctx context.Context, runID string) (*models.SyncRun, []*models.SyncPhase, error) {
	run, err := s.storage.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	phases, err := s.storage.GetPhases(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	return run, phases, nil
}

// ListRuns возвращает историю запусков магазина
func (s *SyncService) ListRuns(ctx context.Context, page, pageSize int) ([]*models.SyncRun, int, error) {
	return s.storage.ListRuns(ctx, s.opts.StoreName, page, pageSize)
}

// UnresolvedHandles возвращает handle, не сопоставленные в ходе запуска
func (s *SyncService) UnresolvedHandles(ctx context.Context, runID string) ([]string, error) {
	return s.storage.GetUnresolvedHandles(ctx, runID)
}

func (s *SyncService) finishRun(ctx context.Context, run *models.SyncRun, status string, runErr error) (*models.SyncRun, error) {
	errorText := ""
	if runErr != nil {
		errorText = runErr.Error()
	}
	if err := s.storage.FinishRun(ctx, run.ID, status, errorText); err != nil {
		s.logger.ErrorWithContext(ctx, "Не удалось зафиксировать итог запуска",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
	run.Status = status
	run.ErrorText = errorText
	now := time.Now().UTC()
	run.FinishedAt = &now

	event := messaging.SyncRunCompletedEvent
	if status == models.RunStatusFailed {
		event = messaging.SyncRunFailedEvent
	}
	s.publishEvent(ctx, event, run, "", status)

	s.logger.InfoWithContext(ctx, "Синхронизация завершена",
		interfaces.LogField{Key: "status", Value: status},
	)
	return run, runErr
}

func (s *SyncService) publishEvent(ctx context.Context, event messaging.KafkaEvent, run *models.SyncRun, phase, status string) {
	if s.messenger == nil {
		return
	}
	payload := messaging.SyncEventPayload{
		Event:     event,
		RunID:     run.ID,
		StoreName: run.StoreName,
		Phase:     phase,
		Status:    status,
		Error:     run.ErrorText,
		At:        time.Now().UTC(),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.messenger.PublishWithKey(ctx, s.opts.Topic, run.ID, raw); err != nil {
		s.logger.WarnWithContext(ctx, "Не удалось опубликовать событие синхронизации",
			interfaces.LogField{Key: "event", Value: event},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
	}
}

// locationIndex строит сопоставление имени локации с её GID
func (s *SyncService) locationIndex(ctx context.Context) (map[string]string, error) {
	locations, err := s.gateway.Locations(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]string, len(locations))
	for _, location := range locations {
		index[location.Name] = location.ID
	}
	return index, nil
}

// writeJSONL пишет записи в файл по одному JSON-объекту на строку, UTF-8
func writeJSONL(path string, lines []interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create payload file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	for _, line := range lines {
		if err := encoder.Encode(line); err != nil {
			return fmt.Errorf("failed to encode payload line: %w", err)
		}
	}
	return nil
}

func toLines[T any](items []T) []interface{} {
	lines := make([]interface{}, 0, len(items))
	for _, item := range items {
		lines = append(lines, item)
	}
	return lines
}
