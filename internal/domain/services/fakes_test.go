package services

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/athebyme/shopify-bulk-sync/internal/utils"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

func (nopLogger) DebugWithContext(ctx context.Context, msg string, args ...interface{}) {}
func (nopLogger) InfoWithContext(ctx context.Context, msg string, args ...interface{})  {}
func (nopLogger) WarnWithContext(ctx context.Context, msg string, args ...interface{})  {}
func (nopLogger) ErrorWithContext(ctx context.Context, msg string, args ...interface{}) {}

func (l nopLogger) WithFields(fields ...interfaces.LogField) interfaces.LoggerPort { return l }
func (l nopLogger) WithField(key string, value interface{}) interfaces.LoggerPort  { return l }
func (nopLogger) Sync() error                                                      { return nil }

// fakeGateway подменяет Admin API в тестах. Методы без назначенной
// функции возвращают нулевые значения, вызовы пишутся в calls.
type fakeGateway struct {
	calls []string

	createStagedTargetFn func(ctx context.Context) (*models.StagedUploadTarget, error)
	uploadStagedFn       func(ctx context.Context, target *models.StagedUploadTarget, filePath string) error
	runBulkMutationFn    func(ctx context.Context, document, stagedPath string) (*models.BulkOperation, error)
	currentBulkFn        func(ctx context.Context) (*models.BulkOperation, error)
	productsByQueryFn    func(ctx context.Context, query, after string) (*models.ProductPage, error)
	productsWithMediaFn  func(ctx context.Context, query, after string) ([]models.MediaPage, models.PageInfo, error)
	publicationsFn       func(ctx context.Context) ([]models.Publication, error)
	locationsFn          func(ctx context.Context) ([]models.Location, error)
	updateFilesFn        func(ctx context.Context, updates []models.FileUpdateInput) error
	createProductFn      func(ctx context.Context, line models.ProductLine) (string, error)
	createVariantsFn     func(ctx context.Context, line models.VariantLine) error

	// содержимое JSONL файлов, загруженных через UploadStaged
	uploadedPayloads []string
}

func (f *fakeGateway) CreateStagedTarget(ctx context.Context) (*models.StagedUploadTarget, error) {
	f.calls = append(f.calls, "stage")
	if f.createStagedTargetFn != nil {
		return f.createStagedTargetFn(ctx)
	}
	return &models.StagedUploadTarget{
		URL: "https://storage.example.com/upload",
		Parameters: []models.StagedParameter{
			{Name: "policy", Value: "blob"},
			{Name: "key", Value: "tmp/uploads/vars.jsonl"},
		},
	}, nil
}

func (f *fakeGateway) UploadStaged(ctx context.Context, target *models.StagedUploadTarget, filePath string) error {
	f.calls = append(f.calls, "upload")
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	f.uploadedPayloads = append(f.uploadedPayloads, string(raw))
	if f.uploadStagedFn != nil {
		return f.uploadStagedFn(ctx, target, filePath)
	}
	return nil
}

func (f *fakeGateway) RunBulkMutation(ctx context.Context, document, stagedPath string) (*models.BulkOperation, error) {
	f.calls = append(f.calls, "run")
	if f.runBulkMutationFn != nil {
		return f.runBulkMutationFn(ctx, document, stagedPath)
	}
	return &models.BulkOperation{ID: "gid://shopify/BulkOperation/1", Status: models.BulkStatusCreated}, nil
}

func (f *fakeGateway) CurrentBulkOperation(ctx context.Context) (*models.BulkOperation, error) {
	f.calls = append(f.calls, "poll")
	if f.currentBulkFn != nil {
		return f.currentBulkFn(ctx)
	}
	return &models.BulkOperation{ID: "gid://shopify/BulkOperation/1", Status: models.BulkStatusCompleted}, nil
}

func (f *fakeGateway) ProductsByQuery(ctx context.Context, query, after string) (*models.ProductPage, error) {
	f.calls = append(f.calls, "resolve")
	if f.productsByQueryFn != nil {
		return f.productsByQueryFn(ctx, query, after)
	}
	return &models.ProductPage{}, nil
}

func (f *fakeGateway) ProductsWithMedia(ctx context.Context, query, after string) ([]models.MediaPage, models.PageInfo, error) {
	f.calls = append(f.calls, "resolve_detailed")
	if f.productsWithMediaFn != nil {
		return f.productsWithMediaFn(ctx, query, after)
	}
	return nil, models.PageInfo{}, nil
}

func (f *fakeGateway) Publications(ctx context.Context) ([]models.Publication, error) {
	f.calls = append(f.calls, "publications")
	if f.publicationsFn != nil {
		return f.publicationsFn(ctx)
	}
	return nil, nil
}

func (f *fakeGateway) Locations(ctx context.Context) ([]models.Location, error) {
	f.calls = append(f.calls, "locations")
	if f.locationsFn != nil {
		return f.locationsFn(ctx)
	}
	return nil, nil
}

func (f *fakeGateway) Shop(ctx context.Context) (*models.ShopInfo, error) {
	f.calls = append(f.calls, "shop")
	return &models.ShopInfo{}, nil
}

func (f *fakeGateway) CreateProduct(ctx context.Context, line models.ProductLine) (string, error) {
	f.calls = append(f.calls, "create_product")
	if f.createProductFn != nil {
		return f.createProductFn(ctx, line)
	}
	return "gid://shopify/Product/100", nil
}

func (f *fakeGateway) CreateVariants(ctx context.Context, line models.VariantLine) error {
	f.calls = append(f.calls, "create_variants")
	if f.createVariantsFn != nil {
		return f.createVariantsFn(ctx, line)
	}
	return nil
}

func (f *fakeGateway) PublishProduct(ctx context.Context, productID string, input []models.PublicationInput) error {
	f.calls = append(f.calls, "publish_product")
	return nil
}

func (f *fakeGateway) DeleteProductsByHandle(ctx context.Context, handles []string) (int, error) {
	f.calls = append(f.calls, "delete_products")
	return 0, nil
}

func (f *fakeGateway) UpdateFiles(ctx context.Context, updates []models.FileUpdateInput) error {
	f.calls = append(f.calls, "update_files")
	if f.updateFilesFn != nil {
		return f.updateFilesFn(ctx, updates)
	}
	return nil
}

// memCache хранит значения в памяти и считает обращения к бэкенду
type memCache struct {
	mu    sync.Mutex
	data  map[string][]byte
	gets  int
	sets  int
	fails bool
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.data[key]
	if !ok {
		return nil, utils.ErrCacheMiss
	}
	return value, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) GetMulti(ctx context.Context, keys []string) (map[string][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.fails {
		return nil, utils.ErrCacheMiss
	}
	result := make(map[string][]byte)
	for _, key := range keys {
		if value, ok := c.data[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

func (c *memCache) SetMulti(ctx context.Context, items map[string][]byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	for key, value := range items {
		c.data[key] = value
	}
	return nil
}

func (c *memCache) Close() error { return nil }

// memStorage — хранилище запусков в памяти
type memStorage struct {
	mu         sync.Mutex
	runs       map[string]*models.SyncRun
	phases     map[string][]*models.SyncPhase
	unresolved map[string][]string
	finished   map[string]string // runID -> итоговый статус
}

func newMemStorage() *memStorage {
	return &memStorage{
		runs:       make(map[string]*models.SyncRun),
		phases:     make(map[string][]*models.SyncPhase),
		unresolved: make(map[string][]string),
		finished:   make(map[string]string),
	}
}

func (s *memStorage) SaveRun(ctx context.Context, run *models.SyncRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *run
	s.runs[run.ID] = &copied
	return nil
}

func (s *memStorage) GetRun(ctx context.Context, runID string) (*models.SyncRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, utils.ErrRunNotFound
	}
	copied := *run
	return &copied, nil
}

func (s *memStorage) ListRuns(ctx context.Context, storeName string, page, pageSize int) ([]*models.SyncRun, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var runs []*models.SyncRun
	for _, run := range s.runs {
		if run.StoreName == storeName {
			copied := *run
			runs = append(runs, &copied)
		}
	}
	return runs, len(runs), nil
}

func (s *memStorage) FinishRun(ctx context.Context, runID, status, errorText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished[runID] = status
	if run, ok := s.runs[runID]; ok {
		run.Status = status
		run.ErrorText = errorText
	}
	return nil
}

func (s *memStorage) SavePhase(ctx context.Context, phase *models.SyncPhase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *phase
	for i, existing := range s.phases[phase.RunID] {
		if existing.Name == phase.Name {
			s.phases[phase.RunID][i] = &copied
			return nil
		}
	}
	s.phases[phase.RunID] = append(s.phases[phase.RunID], &copied)
	return nil
}

func (s *memStorage) GetPhases(ctx context.Context, runID string) ([]*models.SyncPhase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phases[runID], nil
}

func (s *memStorage) SaveUnresolvedHandles(ctx context.Context, runID string, handles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unresolved[runID] = append(s.unresolved[runID], handles...)
	return nil
}

func (s *memStorage) GetUnresolvedHandles(ctx context.Context, runID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unresolved[runID], nil
}

func (s *memStorage) BeginTx(ctx context.Context) (context.Context, error) { return ctx, nil }
func (s *memStorage) CommitTx(ctx context.Context) error                   { return nil }
func (s *memStorage) RollbackTx(ctx context.Context) error                 { return nil }
func (s *memStorage) Close() error                                         { return nil }

// memMessenger записывает опубликованные события
type memMessenger struct {
	mu       sync.Mutex
	messages []publishedMessage
}

type publishedMessage struct {
	topic string
	key   string
	value []byte
}

func (m *memMessenger) Publish(ctx context.Context, topic string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, publishedMessage{topic: topic, value: message})
	return nil
}

func (m *memMessenger) PublishWithKey(ctx context.Context, topic string, key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, publishedMessage{topic: topic, key: key, value: message})
	return nil
}

func (m *memMessenger) Close() error { return nil }
