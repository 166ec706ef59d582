package services

import (
	"context"

	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
)

// ShopifyGateway — операции Admin API, нужные сервисам синхронизации.
// Реализуется транспортом shopify.Client, в тестах подменяется фейком.
type ShopifyGateway interface {
	CreateStagedTarget(ctx context.Context) (*models.StagedUploadTarget, error)
	UploadStaged(ctx context.Context, target *models.StagedUploadTarget, filePath string) error
	RunBulkMutation(ctx context.Context, document, stagedPath string) (*models.BulkOperation, error)
	CurrentBulkOperation(ctx context.Context) (*models.BulkOperation, error)

	ProductsByQuery(ctx context.Context, query, after string) (*models.ProductPage, error)
	ProductsWithMedia(ctx context.Context, query, after string) ([]models.MediaPage, models.PageInfo, error)
	Publications(ctx context.Context) ([]models.Publication, error)
	Locations(ctx context.Context) ([]models.Location, error)
	Shop(ctx context.Context) (*models.ShopInfo, error)

	CreateProduct(ctx context.Context, line models.ProductLine) (string, error)
	CreateVariants(ctx context.Context, line models.VariantLine) error
	PublishProduct(ctx context.Context, productID string, input []models.PublicationInput) error
	DeleteProductsByHandle(ctx context.Context, handles []string) (int, error)
	UpdateFiles(ctx context.Context, updates []models.FileUpdateInput) error
}
