package shopify

import (
	"context"
	"fmt"
	"strings"

	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
)

// GraphQL-документы Admin API. Тексты фиксированы, переменные
// передаются через конверт {query, variables}.

const stagedUploadsCreateMutation = `
mutation {
    stagedUploadsCreate(
        input: {
            resource: BULK_MUTATION_VARIABLES,
            filename: "bulk_op_vars.jsonl",
            mimeType: "text/jsonl",
            httpMethod: POST
        }
    ) {
        userErrors {
            field
            message
        }
        stagedTargets {
            url
            resourceUrl
            parameters {
                name
                value
            }
        }
    }
}
`

const bulkOperationRunMutationTemplate = `
mutation ($stagedUploadPath: String!) {
    bulkOperationRunMutation(
        mutation: %q,
        stagedUploadPath: $stagedUploadPath
    ) {
        bulkOperation {
            id
            url
            status
        }
        userErrors {
            message
            field
        }
    }
}
`

// Встраиваемые мутации фаз. Каждая применяется к одной строке JSONL-файла.
const (
	productCreateBulkDocument = `mutation call($product: ProductCreateInput!, $media: [CreateMediaInput!]) { productCreate(product: $product, media: $media) { product { id handle } userErrors { message field } } }`

	variantsBulkDocument = `mutation call($productId: ID!, $variants: [ProductVariantsBulkInput!]!, $media: [CreateMediaInput!], $strategy: ProductVariantsBulkCreateStrategy) { productVariantsBulkCreate(productId: $productId, variants: $variants, media: $media, strategy: $strategy) { product { id } userErrors { message field } } }`

	publishBulkDocument = `mutation call($id: ID!, $input: [PublicationInput!]!) { publishablePublish(id: $id, input: $input) { publishable { availablePublicationsCount { count } } userErrors { message field } } }`

	// FileUpdateBulkDocument используется согласователем медиафайлов в bulk-режиме
	FileUpdateBulkDocument = `mutation call($files: [FileUpdateInput!]!) { fileUpdate(files: $files) { files { id } userErrors { message field } } }`
)

// BulkDocument возвращает встраиваемую мутацию для фазы конвейера
func BulkDocument(phase string) (string, error) {
	switch phase {
	case models.PhaseProducts:
		return productCreateBulkDocument, nil
	case models.PhaseVariants:
		return variantsBulkDocument, nil
	case models.PhasePublish:
		return publishBulkDocument, nil
	default:
		return "", fmt.Errorf("unknown bulk phase: %s", phase)
	}
}

const currentBulkOperationQuery = `
query {
    currentBulkOperation(type: MUTATION) {
        id
        status
        errorCode
        objectCount
        url
    }
}
`

const productsByQueryQuery = `
query ($query: String, $after: String) {
    products(first: 250, query: $query, after: $after) {
        edges {
            node {
                id
                handle
                title
                status
            }
        }
        pageInfo {
            hasNextPage
            endCursor
        }
    }
}
`

const productsWithMediaQuery = `
query ($query: String, $after: String) {
    products(first: 50, query: $query, after: $after) {
        edges {
            node {
                id
                handle
                title
                media(first: 250) {
                    nodes {
                        id
                        alt
                        mediaContentType
                        preview {
                            image {
                                url
                            }
                        }
                    }
                }
                variants(first: 100) {
                    nodes {
                        id
                        sku
                        media(first: 1) {
                            nodes {
                                id
                                alt
                                mediaContentType
                                preview {
                                    image {
                                        url
                                    }
                                }
                            }
                        }
                    }
                }
            }
        }
        pageInfo {
            hasNextPage
            endCursor
        }
    }
}
`

const publicationsQuery = `
query {
    publications(first: 250) {
        nodes {
            id
            name
        }
    }
}
`

const locationsQuery = `
query {
    locations(first: 250) {
        nodes {
            id
            name
        }
    }
}
`

const shopQuery = `
query {
    shop {
        name
        myshopifyDomain
        planDisplayName
        currencyCode
    }
}
`

const productCreateMutation = `
mutation productCreate($product: ProductCreateInput!, $media: [CreateMediaInput!]) {
    productCreate(product: $product, media: $media) {
        product {
            id
            handle
        }
        userErrors {
            field
            message
        }
    }
}
`

const variantsCreateMutation = `
mutation productVariantsBulkCreate($productId: ID!, $variants: [ProductVariantsBulkInput!]!, $media: [CreateMediaInput!], $strategy: ProductVariantsBulkCreateStrategy) {
    productVariantsBulkCreate(productId: $productId, variants: $variants, media: $media, strategy: $strategy) {
        product {
            id
        }
        productVariants {
            id
        }
        userErrors {
            field
            message
        }
    }
}
`

const publishMutation = `
mutation publishablePublish($id: ID!, $input: [PublicationInput!]!) {
    publishablePublish(id: $id, input: $input) {
        publishable {
            availablePublicationsCount {
                count
            }
        }
        userErrors {
            field
            message
        }
    }
}
`

const productDeleteMutation = `
mutation productDelete($input: ProductDeleteInput!) {
    productDelete(input: $input) {
        deletedProductId
        userErrors {
            field
            message
        }
    }
}
`

const fileUpdateMutation = `
mutation fileUpdate($files: [FileUpdateInput!]!) {
    fileUpdate(files: $files) {
        files {
            id
        }
        userErrors {
            field
            message
        }
    }
}
`

func userErrorMessages(errs []models.UserError) []string {
	msgs := make([]string, 0, len(errs))
	for _, ue := range errs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", strings.Join(ue.Field, "."), ue.Message))
	}
	return msgs
}

// CreateStagedTarget запрашивает одноразовую цель staged-загрузки
func (c *Client) CreateStagedTarget(ctx context.Context) (*models.StagedUploadTarget, error) {
	var result struct {
		StagedUploadsCreate struct {
			UserErrors    []models.UserError          `json:"userErrors"`
			StagedTargets []models.StagedUploadTarget `json:"stagedTargets"`
		} `json:"stagedUploadsCreate"`
	}

	if err := c.Execute(ctx, stagedUploadsCreateMutation, nil, &result); err != nil {
		return nil, err
	}
	if len(result.StagedUploadsCreate.UserErrors) > 0 {
		return nil, &UserErrorsError{
			Operation: "stagedUploadsCreate",
			Messages:  userErrorMessages(result.StagedUploadsCreate.UserErrors),
		}
	}
	if len(result.StagedUploadsCreate.StagedTargets) == 0 {
		return nil, fmt.Errorf("stagedUploadsCreate returned no targets")
	}
	return &result.StagedUploadsCreate.StagedTargets[0], nil
}

// RunBulkMutation запускает bulk-операцию над загруженным JSONL-файлом.
// document — встраиваемая мутация фазы, stagedPath — серверный ключ файла.
func (c *Client) RunBulkMutation(ctx context.Context, document, stagedPath string) (*models.BulkOperation, error) {
	var result struct {
		BulkOperationRunMutation struct {
			BulkOperation *models.BulkOperation `json:"bulkOperation"`
			UserErrors    []models.UserError    `json:"userErrors"`
		} `json:"bulkOperationRunMutation"`
	}

	mutation := fmt.Sprintf(bulkOperationRunMutationTemplate, document)
	variables := map[string]interface{}{"stagedUploadPath": stagedPath}

	if err := c.Execute(ctx, mutation, variables, &result); err != nil {
		return nil, err
	}
	if len(result.BulkOperationRunMutation.UserErrors) > 0 {
		return nil, &UserErrorsError{
			Operation: "bulkOperationRunMutation",
			Messages:  userErrorMessages(result.BulkOperationRunMutation.UserErrors),
		}
	}
	if result.BulkOperationRunMutation.BulkOperation == nil {
		return nil, fmt.Errorf("bulkOperationRunMutation returned no operation")
	}
	return result.BulkOperationRunMutation.BulkOperation, nil
}

// CurrentBulkOperation возвращает состояние текущей bulk-операции типа MUTATION
func (c *Client) CurrentBulkOperation(ctx context.Context) (*models.BulkOperation, error) {
	var result struct {
		CurrentBulkOperation *models.BulkOperation `json:"currentBulkOperation"`
	}

	if err := c.Execute(ctx, currentBulkOperationQuery, nil, &result); err != nil {
		return nil, err
	}
	if result.CurrentBulkOperation == nil {
		return nil, fmt.Errorf("no current bulk operation")
	}
	return result.CurrentBulkOperation, nil
}

// ProductsByQuery возвращает страницу товаров по поисковому запросу
func (c *Client) ProductsByQuery(ctx context.Context, query, after string) (*models.ProductPage, error) {
	var result struct {
		Products struct {
			Edges []struct {
				Node models.ResolvedProduct `json:"node"`
			} `json:"edges"`
			PageInfo models.PageInfo `json:"pageInfo"`
		} `json:"products"`
	}

	variables := map[string]interface{}{"query": query}
	if after != "" {
		variables["after"] = after
	}

	if err := c.Execute(ctx, productsByQueryQuery, variables, &result); err != nil {
		return nil, err
	}

	page := &models.ProductPage{PageInfo: result.Products.PageInfo}
	for _, edge := range result.Products.Edges {
		page.Products = append(page.Products, edge.Node)
	}
	return page, nil
}

// ProductsWithMedia возвращает страницу товаров вместе с их медиафайлами
// и первым медиафайлом каждого варианта
func (c *Client) ProductsWithMedia(ctx context.Context, query, after string) ([]models.MediaPage, models.PageInfo, error) {
	type mediaNode struct {
		ID               string `json:"id"`
		Alt              string `json:"alt"`
		MediaContentType string `json:"mediaContentType"`
		Preview          *struct {
			Image *struct {
				URL string `json:"url"`
			} `json:"image"`
		} `json:"preview"`
	}

	var result struct {
		Products struct {
			Edges []struct {
				Node struct {
					ID     string `json:"id"`
					Handle string `json:"handle"`
					Title  string `json:"title"`
					Media  struct {
						Nodes []mediaNode `json:"nodes"`
					} `json:"media"`
					Variants struct {
						Nodes []struct {
							ID    string `json:"id"`
							SKU   string `json:"sku"`
							Media struct {
								Nodes []mediaNode `json:"nodes"`
							} `json:"media"`
						} `json:"nodes"`
					} `json:"variants"`
				} `json:"node"`
			} `json:"edges"`
			PageInfo models.PageInfo `json:"pageInfo"`
		} `json:"products"`
	}

	variables := map[string]interface{}{"query": query}
	if after != "" {
		variables["after"] = after
	}

	if err := c.Execute(ctx, productsWithMediaQuery, variables, &result); err != nil {
		return nil, models.PageInfo{}, err
	}

	toModel := func(n mediaNode) models.MediaNode {
		node := models.MediaNode{
			ID:               n.ID,
			Alt:              n.Alt,
			MediaContentType: n.MediaContentType,
		}
		if n.Preview != nil && n.Preview.Image != nil {
			node.OriginalSource = n.Preview.Image.URL
		}
		return node
	}

	pages := make([]models.MediaPage, 0, len(result.Products.Edges))
	for _, edge := range result.Products.Edges {
		page := models.MediaPage{
			ProductID: edge.Node.ID,
			Handle:    edge.Node.Handle,
			Title:     edge.Node.Title,
		}
		for _, n := range edge.Node.Media.Nodes {
			page.Media = append(page.Media, toModel(n))
		}
		for _, variant := range edge.Node.Variants.Nodes {
			// У варианта без медиа список пустой, такой вариант пропускается
			if len(variant.Media.Nodes) > 0 {
				page.VariantMedia = append(page.VariantMedia, toModel(variant.Media.Nodes[0]))
			}
		}
		pages = append(pages, page)
	}
	return pages, result.Products.PageInfo, nil
}

// Publications возвращает список каналов продаж магазина
func (c *Client) Publications(ctx context.Context) ([]models.Publication, error) {
	var result struct {
		Publications struct {
			Nodes []models.Publication `json:"nodes"`
		} `json:"publications"`
	}

	if err := c.Execute(ctx, publicationsQuery, nil, &result); err != nil {
		return nil, err
	}
	return result.Publications.Nodes, nil
}

// Locations возвращает список локаций склада
func (c *Client) Locations(ctx context.Context) ([]models.Location, error) {
	var result struct {
		Locations struct {
			Nodes []models.Location `json:"nodes"`
		} `json:"locations"`
	}

	if err := c.Execute(ctx, locationsQuery, nil, &result); err != nil {
		return nil, err
	}
	return result.Locations.Nodes, nil
}

// Shop возвращает базовые сведения о магазине
func (c *Client) Shop(ctx context.Context) (*models.ShopInfo, error) {
	var result struct {
		Shop models.ShopInfo `json:"shop"`
	}

	if err := c.Execute(ctx, shopQuery, nil, &result); err != nil {
		return nil, err
	}
	return &result.Shop, nil
}

// CreateProduct создает один товар напрямую, без bulk-операции.
// Возвращает присвоенный товару GID.
func (c *Client) CreateProduct(ctx context.Context, line models.ProductLine) (string, error) {
	var result struct {
		ProductCreate struct {
			Product *struct {
				ID     string `json:"id"`
				Handle string `json:"handle"`
			} `json:"product"`
			UserErrors []models.UserError `json:"userErrors"`
		} `json:"productCreate"`
	}

	variables := map[string]interface{}{
		"product": line.Product,
	}
	if len(line.Media) > 0 {
		variables["media"] = line.Media
	}

	if err := c.Execute(ctx, productCreateMutation, variables, &result); err != nil {
		return "", err
	}
	if len(result.ProductCreate.UserErrors) > 0 {
		return "", &UserErrorsError{
			Operation: "productCreate",
			Messages:  userErrorMessages(result.ProductCreate.UserErrors),
		}
	}
	if result.ProductCreate.Product == nil {
		return "", fmt.Errorf("productCreate returned no product")
	}
	return result.ProductCreate.Product.ID, nil
}

// CreateVariants создает варианты товара напрямую, без bulk-операции
func (c *Client) CreateVariants(ctx context.Context, line models.VariantLine) error {
	var result struct {
		ProductVariantsBulkCreate struct {
			UserErrors []models.UserError `json:"userErrors"`
		} `json:"productVariantsBulkCreate"`
	}

	variables := map[string]interface{}{
		"productId": line.ProductID,
		"variants":  line.Variants,
	}
	if len(line.Media) > 0 {
		variables["media"] = line.Media
	}
	if line.Strategy != "" {
		variables["strategy"] = line.Strategy
	}

	if err := c.Execute(ctx, variantsCreateMutation, variables, &result); err != nil {
		return err
	}
	if len(result.ProductVariantsBulkCreate.UserErrors) > 0 {
		return &UserErrorsError{
			Operation: "productVariantsBulkCreate",
			Messages:  userErrorMessages(result.ProductVariantsBulkCreate.UserErrors),
		}
	}
	return nil
}

// PublishProduct публикует товар в перечисленные каналы продаж
func (c *Client) PublishProduct(ctx context.Context, productID string, input []models.PublicationInput) error {
	var result struct {
		PublishablePublish struct {
			UserErrors []models.UserError `json:"userErrors"`
		} `json:"publishablePublish"`
	}

	variables := map[string]interface{}{
		"id":    productID,
		"input": input,
	}

	if err := c.Execute(ctx, publishMutation, variables, &result); err != nil {
		return err
	}
	if len(result.PublishablePublish.UserErrors) > 0 {
		return &UserErrorsError{
			Operation: "publishablePublish",
			Messages:  userErrorMessages(result.PublishablePublish.UserErrors),
		}
	}
	return nil
}

// DeleteProductsByHandle удаляет товары, найденные по handle.
// Возвращает количество удалённых товаров.
func (c *Client) DeleteProductsByHandle(ctx context.Context, handles []string) (int, error) {
	page, err := c.ProductsByQuery(ctx, "handle:"+strings.Join(handles, ","), "")
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, product := range page.Products {
		var result struct {
			ProductDelete struct {
				DeletedProductID string             `json:"deletedProductId"`
				UserErrors       []models.UserError `json:"userErrors"`
			} `json:"productDelete"`
		}

		variables := map[string]interface{}{
			"input": map[string]interface{}{"id": product.ID},
		}

		if err := c.Execute(ctx, productDeleteMutation, variables, &result); err != nil {
			return deleted, err
		}
		if len(result.ProductDelete.UserErrors) > 0 {
			return deleted, &UserErrorsError{
				Operation: "productDelete",
				Messages:  userErrorMessages(result.ProductDelete.UserErrors),
			}
		}
		deleted++
	}
	return deleted, nil
}

// UpdateFiles обновляет имена и alt-тексты файлов одной мутацией
func (c *Client) UpdateFiles(ctx context.Context, updates []models.FileUpdateInput) error {
	var result struct {
		FileUpdate struct {
			UserErrors []models.UserError `json:"userErrors"`
		} `json:"fileUpdate"`
	}

	variables := map[string]interface{}{"files": updates}

	if err := c.Execute(ctx, fileUpdateMutation, variables, &result); err != nil {
		return err
	}
	if len(result.FileUpdate.UserErrors) > 0 {
		return &UserErrorsError{
			Operation: "fileUpdate",
			Messages:  userErrorMessages(result.FileUpdate.UserErrors),
		}
	}
	return nil
}
