package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/athebyme/shopify-bulk-sync/internal/adapters/csvsource"
	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/athebyme/shopify-bulk-sync/internal/domain/services"
	"github.com/athebyme/shopify-bulk-sync/internal/utils"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// SyncHandler обработчик запросов управления синхронизацией
type SyncHandler struct {
	syncService services.SyncServiceInterface
	reconciler  *services.ReconcilerService
	gateway     services.ShopifyGateway
	reader      *csvsource.Reader
	logger      interfaces.LoggerPort
	sourceFile  string
}

// NewSyncHandler создает новый обработчик синхронизации
func NewSyncHandler(
	syncService services.SyncServiceInterface,
	reconciler *services.ReconcilerService,
	gateway services.ShopifyGateway,
	reader *csvsource.Reader,
	logger interfaces.LoggerPort,
	sourceFile string,
) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		reconciler:  reconciler,
		gateway:     gateway,
		reader:      reader,
		logger:      logger,
		sourceFile:  sourceFile,
	}
}

// errorResponse представляет структуру ответа с ошибкой
type errorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// response представляет структуру успешного ответа
type response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// startSyncRequest — тело запроса на запуск синхронизации
type startSyncRequest struct {
	SourceFile string `json:"source_file,omitempty"`
}

// StartSync запускает синхронизацию каталога в фоне
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req startSyncRequest
	// Тело опционально: без него берётся файл из конфигурации
	_ = render.DecodeJSON(r.Body, &req)

	sourceFile := req.SourceFile
	if sourceFile == "" {
		sourceFile = h.sourceFile
	}

	products, err := h.reader.Read(sourceFile)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, utils.ErrEmptySource) {
			status = http.StatusUnprocessableEntity
		}
		render.Status(r, status)
		render.JSON(w, r, errorResponse{
			Error:   "source_error",
			Code:    status,
			Message: err.Error(),
		})
		return
	}

	// Конвейер блокирующий и длится до десятков минут,
	// поэтому выполняется вне контекста запроса
	go func() {
		if _, err := h.syncService.Run(context.Background(), sourceFile, products); err != nil {
			h.logger.Error("Фоновая синхронизация завершилась ошибкой",
				interfaces.LogField{Key: "source_file", Value: sourceFile},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}()

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"source_file": sourceFile,
			"products":    len(products),
		},
	})
}

// ListSyncs возвращает историю запусков
func (h *SyncHandler) ListSyncs(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	pageSize, err := strconv.Atoi(r.URL.Query().Get("page_size"))
	if err != nil || pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	runs, total, err := h.syncService.ListRuns(r.Context(), page, pageSize)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения истории запусков",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения истории запусков",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    runs,
		Meta: map[string]interface{}{
			"page":      page,
			"page_size": pageSize,
			"total":     total,
		},
	})
}

// GetSync возвращает запуск вместе с фазами
func (h *SyncHandler) GetSync(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if runID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "ID запуска не указан",
		})
		return
	}

	run, phases, err := h.syncService.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, utils.ErrRunNotFound) {
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, errorResponse{
				Error:   "not_found",
				Code:    http.StatusNotFound,
				Message: "Запуск не найден",
			})
			return
		}
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения запуска",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения запуска",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"run":    run,
			"phases": phases,
		},
	})
}

// GetUnresolved возвращает handle, не сопоставленные в ходе запуска
func (h *SyncHandler) GetUnresolved(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")
	if runID == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "ID запуска не указан",
		})
		return
	}

	handles, err := h.syncService.UnresolvedHandles(r.Context(), runID)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения нерешённых handle",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: "Ошибка получения нерешённых handle",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    handles,
	})
}

// reconcileRequest — тело запроса на согласование медиафайлов
type reconcileRequest struct {
	Handles []string `json:"handles"`
	Bulk    bool     `json:"bulk,omitempty"`
}

// Reconcile запускает согласование медиафайлов для указанных handle
func (h *SyncHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req reconcileRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || len(req.Handles) == 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Список handle пуст",
		})
		return
	}

	report, err := h.reconciler.Reconcile(r.Context(), req.Handles, req.Bulk)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка согласования медиафайлов",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    report,
	})
}

// CreateProduct создает один товар прямыми мутациями, минуя bulk-конвейер
func (h *SyncHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.SourceProduct
	if err := render.DecodeJSON(r.Body, &product); err != nil || product.Handle == "" {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Некорректное описание товара: handle обязателен",
		})
		return
	}

	productID, err := h.syncService.CreateSingle(r.Context(), &product)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка создания товара",
			interfaces.LogField{Key: "handle", Value: product.Handle},
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, errorResponse{
			Error:   "upstream_error",
			Code:    http.StatusBadGateway,
			Message: err.Error(),
		})
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"product_id": productID,
			"handle":     product.Handle,
		},
	})
}

// deleteProductsRequest — тело запроса на удаление товаров
type deleteProductsRequest struct {
	Handles []string `json:"handles"`
}

// DeleteProducts удаляет товары по handle
func (h *SyncHandler) DeleteProducts(w http.ResponseWriter, r *http.Request) {
	var req deleteProductsRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil || len(req.Handles) == 0 {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "bad_request",
			Code:    http.StatusBadRequest,
			Message: "Список handle пуст",
		})
		return
	}

	deleted, err := h.gateway.DeleteProductsByHandle(r.Context(), req.Handles)
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка удаления товаров",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, errorResponse{
			Error:   "internal_error",
			Code:    http.StatusInternalServerError,
			Message: err.Error(),
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data: map[string]interface{}{
			"deleted": deleted,
		},
	})
}

// GetShop возвращает сведения о подключенном магазине
func (h *SyncHandler) GetShop(w http.ResponseWriter, r *http.Request) {
	shop, err := h.gateway.Shop(r.Context())
	if err != nil {
		h.logger.ErrorWithContext(r.Context(), "Ошибка получения сведений о магазине",
			interfaces.LogField{Key: "error", Value: err.Error()})
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, errorResponse{
			Error:   "upstream_error",
			Code:    http.StatusBadGateway,
			Message: err.Error(),
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    shop,
	})
}
