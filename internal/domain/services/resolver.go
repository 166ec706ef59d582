package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
)

const handleCachePrefix = "handle_gid:"

// ResolverService сопоставляет handle товаров с их GID через
// поисковый запрос Admin API. Найденные пары кэшируются в Redis,
// чтобы повторные фазы конвейера не ходили за тем же ответом.
type ResolverService struct {
	gateway  ShopifyGateway
	cache    interfaces.CachePort
	logger   interfaces.LoggerPort
	cacheTTL time.Duration
}

// NewResolverService создает новый резолвер идентификаторов
func NewResolverService(gateway ShopifyGateway, cache interfaces.CachePort, logger interfaces.LoggerPort, cacheTTL time.Duration) *ResolverService {
	return &ResolverService{
		gateway:  gateway,
		cache:    cache,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// ResolveIDs сопоставляет handle с GID товаров.
// Ненайденные handle не ошибка: они перечислены в отчёте отдельно,
// решение о прерывании принимает вызывающий код.
func (s *ResolverService) ResolveIDs(ctx context.Context, handles []string) (*models.ResolveReport, error) {
	report := &models.ResolveReport{Resolved: make(map[string]string, len(handles))}
	if len(handles) == 0 {
		return report, nil
	}

	remaining := s.fromCache(ctx, handles, report)
	if len(remaining) == 0 {
		return report, nil
	}

	// Поисковый запрос дизъюнктивный: handle:h1,h2,...
	query := "handle:" + strings.Join(remaining, ",")
	fetched := make(map[string]string, len(remaining))

	after := ""
	for {
		page, err := s.gateway.ProductsByQuery(ctx, query, after)
		if err != nil {
			return nil, fmt.Errorf("handle lookup failed: %w", err)
		}
		for _, product := range page.Products {
			fetched[product.Handle] = product.ID
		}
		if !page.PageInfo.HasNextPage {
			break
		}
		after = page.PageInfo.EndCursor
	}

	toCache := make(map[string][]byte, len(fetched))
	for _, handle := range remaining {
		id, ok := fetched[handle]
		if !ok {
			report.Unresolved = append(report.Unresolved, handle)
			continue
		}
		report.Resolved[handle] = id
		toCache[handleCachePrefix+handle] = []byte(id)
	}

	if s.cache != nil && len(toCache) > 0 {
		if err := s.cache.SetMulti(ctx, toCache, s.cacheTTL); err != nil {
			s.logger.WarnWithContext(ctx, "Не удалось закэшировать GID товаров",
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
		}
	}

	if len(report.Unresolved) > 0 {
		s.logger.WarnWithContext(ctx, "Часть handle не сопоставлена с товарами",
			interfaces.LogField{Key: "unresolved", Value: len(report.Unresolved)},
		)
	}
	return report, nil
}

// fromCache заполняет отчёт из кэша и возвращает handle, которых там нет
func (s *ResolverService) fromCache(ctx context.Context, handles []string, report *models.ResolveReport) []string {
	if s.cache == nil {
		return handles
	}

	keys := make([]string, 0, len(handles))
	for _, handle := range handles {
		keys = append(keys, handleCachePrefix+handle)
	}

	cached, err := s.cache.GetMulti(ctx, keys)
	if err != nil {
		s.logger.WarnWithContext(ctx, "Кэш GID недоступен, все handle уходят в поиск",
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return handles
	}

	var remaining []string
	for _, handle := range handles {
		if id, ok := cached[handleCachePrefix+handle]; ok {
			report.Resolved[handle] = string(id)
			continue
		}
		remaining = append(remaining, handle)
	}
	return remaining
}

// ResolveDetailed возвращает товары вместе с их медиафайлами
// и первым медиафайлом каждого варианта, страница за страницей
func (s *ResolverService) ResolveDetailed(ctx context.Context, handles []string) ([]models.MediaPage, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	query := "handle:" + strings.Join(handles, ",")
	var pages []models.MediaPage

	after := ""
	for {
		batch, pageInfo, err := s.gateway.ProductsWithMedia(ctx, query, after)
		if err != nil {
			return nil, fmt.Errorf("detailed handle lookup failed: %w", err)
		}
		pages = append(pages, batch...)
		if !pageInfo.HasNextPage {
			break
		}
		after = pageInfo.EndCursor
	}
	return pages, nil
}

// Invalidate убирает закэшированный GID, например после удаления товара
func (s *ResolverService) Invalidate(ctx context.Context, handle string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, handleCachePrefix+handle)
}
