package services

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/athebyme/shopify-bulk-sync/internal/adapters/shopify"
	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
	"github.com/athebyme/shopify-bulk-sync/pkg/utils"
)

// BulkRunner проводит набор строк через bulk-конвейер.
// Реализуется SyncService.
type BulkRunner interface {
	RunBulkLines(ctx context.Context, document string, lines []interface{}) error
}

// ReconcilerService выравнивает имена файлов и alt-тексты медиа
// уже созданных товаров. Имя файла детерминированное:
// {handle}-{тег источника}-{номер}.{расширение из URL}.
type ReconcilerService struct {
	gateway   ShopifyGateway
	resolver  *ResolverService
	runner    BulkRunner
	logger    interfaces.LoggerPort
	chunkSize int
}

// NewReconcilerService создает новый согласователь медиафайлов
func NewReconcilerService(gateway ShopifyGateway, resolver *ResolverService, runner BulkRunner, logger interfaces.LoggerPort, chunkSize int) *ReconcilerService {
	if chunkSize <= 0 {
		chunkSize = 50
	}
	return &ReconcilerService{
		gateway:   gateway,
		resolver:  resolver,
		runner:    runner,
		logger:    logger,
		chunkSize: chunkSize,
	}
}

// Reconcile обновляет метаданные медиафайлов товаров с указанными handle.
// При bulk=true порции уходят через bulk-конвейер, иначе прямыми мутациями.
func (s *ReconcilerService) Reconcile(ctx context.Context, handles []string, bulk bool) (*models.ReconcileReport, error) {
	pages, err := s.resolver.ResolveDetailed(ctx, handles)
	if err != nil {
		return nil, err
	}

	report := &models.ReconcileReport{ProductsSeen: len(pages)}
	seen := make(map[string]struct{})
	var updates []models.FileUpdateInput

	for _, page := range pages {
		seq := 0
		collect := func(node models.MediaNode, tag string) {
			seq++
			if node.ID == "" {
				return
			}
			// Один медиафайл, встреченный несколько раз, обновляется однажды
			if _, dup := seen[node.ID]; dup {
				report.Duplicates++
				return
			}
			// Без исходного URL расширение неизвестно, запись пропускается
			ext := extensionFromURL(node.OriginalSource)
			if ext == "" {
				return
			}
			seen[node.ID] = struct{}{}
			updates = append(updates, models.FileUpdateInput{
				ID:       node.ID,
				Filename: fmt.Sprintf("%s-%s-%d.%s", page.Handle, tag, seq, ext),
				Alt:      fmt.Sprintf("%s %d", page.Title, seq),
			})
		}

		for _, node := range page.Media {
			collect(node, "image")
		}
		for _, node := range page.VariantMedia {
			collect(node, "variant")
		}
	}

	if len(updates) == 0 {
		s.logger.InfoWithContext(ctx, "Нет медиафайлов для согласования")
		return report, nil
	}

	chunks := utils.Chunk(updates, s.chunkSize)
	report.Chunks = len(chunks)

	for i, chunk := range chunks {
		if bulk {
			err = s.runner.RunBulkLines(ctx, shopify.FileUpdateBulkDocument, []interface{}{
				map[string]interface{}{"files": chunk},
			})
		} else {
			err = s.gateway.UpdateFiles(ctx, chunk)
		}
		if err != nil {
			return report, fmt.Errorf("file update chunk %d/%d failed: %w", i+1, len(chunks), err)
		}
		report.FilesUpdated += len(chunk)
	}

	s.logger.InfoWithContext(ctx, "Медиафайлы согласованы",
		interfaces.LogField{Key: "products", Value: report.ProductsSeen},
		interfaces.LogField{Key: "files", Value: report.FilesUpdated},
		interfaces.LogField{Key: "chunks", Value: report.Chunks},
	)
	return report, nil
}

// extensionFromURL достаёт расширение файла из URL без query-части
func extensionFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	ext := strings.TrimPrefix(path.Ext(parsed.Path), ".")
	return strings.ToLower(ext)
}
