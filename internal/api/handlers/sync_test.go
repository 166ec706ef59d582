package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/athebyme/shopify-bulk-sync/internal/adapters/csvsource"
	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/athebyme/shopify-bulk-sync/internal/utils"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

// fakeSyncService подменяет конвейер в тестах обработчиков
type fakeSyncService struct {
	started chan string // source_file запущенных синхронизаций

	runs       map[string]*models.SyncRun
	phases     map[string][]*models.SyncPhase
	unresolved map[string][]string

	createErr error
	created   []*models.SourceProduct
}

func newFakeSyncService() *fakeSyncService {
	return &fakeSyncService{
		started:    make(chan string, 1),
		runs:       make(map[string]*models.SyncRun),
		phases:     make(map[string][]*models.SyncPhase),
		unresolved: make(map[string][]string),
	}
}

func (f *fakeSyncService) Run(ctx context.Context, sourceFile string, products []*models.SourceProduct) (*models.SyncRun, error) {
	f.started <- sourceFile
	return &models.SyncRun{ID: "run-1", Status: models.RunStatusCompleted}, nil
}

func (f *fakeSyncService) CreateSingle(ctx context.Context, product *models.SourceProduct) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, product)
	return "gid://shopify/Product/100", nil
}

func (f *fakeSyncService) GetRun(ctx context.Context, runID string) (*models.SyncRun, []*models.SyncPhase, error) {
	run, ok := f.runs[runID]
	if !ok {
		return nil, nil, utils.ErrRunNotFound
	}
	return run, f.phases[runID], nil
}

func (f *fakeSyncService) ListRuns(ctx context.Context, page, pageSize int) ([]*models.SyncRun, int, error) {
	var runs []*models.SyncRun
	for _, run := range f.runs {
		runs = append(runs, run)
	}
	return runs, len(runs), nil
}

func (f *fakeSyncService) UnresolvedHandles(ctx context.Context, runID string) ([]string, error) {
	return f.unresolved[runID], nil
}

func newTestRouter(svc *fakeSyncService) *chi.Mux {
	h := NewSyncHandler(svc, nil, nil, csvsource.NewReader(nopLogger{}), nopLogger{}, "catalog.csv")

	r := chi.NewRouter()
	r.Post("/syncs", h.StartSync)
	r.Get("/syncs", h.ListSyncs)
	r.Get("/syncs/{id}", h.GetSync)
	r.Get("/syncs/{id}/unresolved", h.GetUnresolved)
	r.Post("/reconcile", h.Reconcile)
	r.Post("/products", h.CreateProduct)
	return r
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	content := "Handle,Title,Variant SKU,Variant Price\nmug,Ceramic Mug,MUG-1,10.00\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSyncHandler_StartSync(t *testing.T) {
	svc := newFakeSyncService()
	router := newTestRouter(svc)

	path := writeCatalog(t)
	body := strings.NewReader(`{"source_file":"` + path + `"}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/syncs", body))

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			SourceFile string `json:"source_file"`
			Products   int    `json:"products"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, path, resp.Data.SourceFile)
	assert.Equal(t, 1, resp.Data.Products)

	// конвейер стартует в фоне с тем же файлом
	select {
	case started := <-svc.started:
		assert.Equal(t, path, started)
	case <-time.After(time.Second):
		t.Fatal("background sync was not started")
	}
}

func TestSyncHandler_StartSync_BadSource(t *testing.T) {
	svc := newFakeSyncService()
	router := newTestRouter(svc)

	path := filepath.Join(t.TempDir(), "broken.csv")
	require.NoError(t, os.WriteFile(path, []byte("Title,Vendor\nMug,Acme\n"), 0o644))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/syncs", strings.NewReader(`{"source_file":"`+path+`"}`)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSyncHandler_GetSync(t *testing.T) {
	svc := newFakeSyncService()
	svc.runs["run-1"] = &models.SyncRun{ID: "run-1", Status: models.RunStatusCompleted}
	svc.phases["run-1"] = []*models.SyncPhase{{RunID: "run-1", Name: models.PhaseProducts}}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/syncs/run-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			Run    models.SyncRun     `json:"run"`
			Phases []models.SyncPhase `json:"phases"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.Data.Run.ID)
	require.Len(t, resp.Data.Phases, 1)
	assert.Equal(t, models.PhaseProducts, resp.Data.Phases[0].Name)
}

func TestSyncHandler_GetSync_NotFound(t *testing.T) {
	router := newTestRouter(newFakeSyncService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/syncs/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncHandler_ListSyncs(t *testing.T) {
	svc := newFakeSyncService()
	svc.runs["run-1"] = &models.SyncRun{ID: "run-1"}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/syncs?page=2&page_size=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Meta struct {
			Page     int `json:"page"`
			PageSize int `json:"page_size"`
			Total    int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 10, resp.Meta.PageSize)
	assert.Equal(t, 1, resp.Meta.Total)
}

func TestSyncHandler_GetUnresolved(t *testing.T) {
	svc := newFakeSyncService()
	svc.unresolved["run-1"] = []string{"ghost"}
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/syncs/run-1/unresolved", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"ghost"}, resp.Data)
}

func TestSyncHandler_CreateProduct(t *testing.T) {
	svc := newFakeSyncService()
	router := newTestRouter(svc)

	body := strings.NewReader(`{"handle":"mug","title":"Ceramic Mug","published":true}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", body))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Data struct {
			ProductID string `json:"product_id"`
			Handle    string `json:"handle"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "gid://shopify/Product/100", resp.Data.ProductID)
	assert.Equal(t, "mug", resp.Data.Handle)

	require.Len(t, svc.created, 1)
	assert.Equal(t, "mug", svc.created[0].Handle)
	assert.True(t, svc.created[0].Published)
}

func TestSyncHandler_CreateProduct_MissingHandle(t *testing.T) {
	router := newTestRouter(newFakeSyncService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"title":"No Handle"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncHandler_CreateProduct_UpstreamError(t *testing.T) {
	svc := newFakeSyncService()
	svc.createErr = errors.New("product create failed: ACCESS_DENIED")
	router := newTestRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"handle":"mug"}`)))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSyncHandler_Reconcile_EmptyHandles(t *testing.T) {
	router := newTestRouter(newFakeSyncService())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reconcile", strings.NewReader(`{"handles":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
