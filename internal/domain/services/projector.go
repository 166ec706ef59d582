package services

import (
	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
)

// ProjectorService превращает карточки из выгрузки в полезные нагрузки
// трёх фаз конвейера. Проекция товаров чистая; проекции вариантов и
// публикации требуют GID, присвоенных после завершения фазы товаров.
type ProjectorService struct {
	logger interfaces.LoggerPort
}

// NewProjectorService создает новый проектор
func NewProjectorService(logger interfaces.LoggerPort) *ProjectorService {
	return &ProjectorService{logger: logger}
}

// ProjectProducts строит нагрузку фазы создания товаров:
// одна запись на уникальный handle
func (s *ProjectorService) ProjectProducts(products []*models.SourceProduct) []models.ProductLine {
	lines := make([]models.ProductLine, 0, len(products))
	for _, product := range products {
		line := models.ProductLine{
			Product: models.ProductInput{
				Handle:          product.Handle,
				Title:           product.Title,
				DescriptionHTML: product.DescriptionHTML,
				Vendor:          product.Vendor,
				Category:        product.Category,
				ProductType:     product.ProductType,
				Tags:            product.Tags,
				GiftCard:        product.GiftCard,
				Status:          product.Status,
				ProductOptions:  projectOptions(product),
			},
		}

		if product.SEOTitle != "" || product.SEODescription != "" {
			line.Product.SEO = &models.SEOInput{
				Title:       product.SEOTitle,
				Description: product.SEODescription,
			}
		}

		for _, mf := range product.Metafields {
			line.Product.Metafields = append(line.Product.Metafields, models.MetafieldInput{
				Namespace: mf.Namespace,
				Key:       mf.Key,
				Type:      mf.Type,
				Value:     mf.Value,
			})
		}

		for _, image := range product.Images {
			line.Media = appendMedia(line.Media, image.Src)
		}

		lines = append(lines, line)
	}
	return lines
}

// projectOptions собирает опции товара, убирая повторы значений
// с сохранением порядка первого появления
func projectOptions(product *models.SourceProduct) []models.OptionInput {
	options := make([]models.OptionInput, 0, len(product.OptionNames))
	for i, name := range product.OptionNames {
		seen := make(map[string]struct{})
		option := models.OptionInput{Name: name}
		for _, row := range product.Rows {
			if i >= len(row.OptionValues) {
				continue
			}
			value := row.OptionValues[i]
			if value == "" {
				continue
			}
			if _, dup := seen[value]; dup {
				continue
			}
			seen[value] = struct{}{}
			option.Values = append(option.Values, models.OptionValueInput{Name: value})
		}
		options = append(options, option)
	}
	return options
}

// ProjectVariants строит нагрузку фазы вариантов: одна запись на товар
// с полным списком его вариантов. Товары без GID пропускаются.
// locations сопоставляет имя локации с её GID для остатков по локациям.
func (s *ProjectorService) ProjectVariants(products []*models.SourceProduct, resolved map[string]string, locations map[string]string) []models.VariantLine {
	var lines []models.VariantLine
	for _, product := range products {
		productID, ok := resolved[product.Handle]
		if !ok {
			s.logger.Warn("Товар без GID пропущен в фазе вариантов",
				interfaces.LogField{Key: "handle", Value: product.Handle},
			)
			continue
		}

		line := models.VariantLine{
			ProductID: productID,
			Strategy:  "REMOVE_STANDALONE_VARIANT",
		}

		// Общий список медиа товара: картинки карточки плюс картинки вариантов,
		// без повторов по исходному URL
		for _, image := range product.Images {
			line.Media = appendMedia(line.Media, image.Src)
		}

		optionCount := len(product.OptionNames)
		for _, row := range product.Rows {
			// Строки без SKU (шаблонные) не порождают вариант
			if row.SKU == "" {
				continue
			}
			// Число значений опций должно совпадать с числом опций товара
			if len(nonEmptyValues(row.OptionValues)) != optionCount {
				s.logger.Warn("Вариант с неполным набором опций отброшен",
					interfaces.LogField{Key: "handle", Value: product.Handle},
					interfaces.LogField{Key: "sku", Value: row.SKU},
				)
				continue
			}

			variant := models.VariantInput{
				Price:           row.Price,
				CompareAtPrice:  row.CompareAtPrice,
				InventoryPolicy: row.InventoryPolicy,
				Taxable:         row.Taxable,
				Barcode:         row.Barcode,
				InventoryItem: models.InventoryItemInput{
					SKU:              row.SKU,
					Tracked:          row.Tracked,
					RequiresShipping: row.RequiresShipping,
					Cost:             row.Cost,
				},
			}

			if row.Grams > 0 {
				variant.InventoryItem.Measurement = &models.MeasurementInput{
					Weight: models.WeightInput{
						Value: row.Grams,
						Unit:  row.WeightUnit,
					},
				}
			}

			for i, value := range row.OptionValues {
				if value == "" {
					continue
				}
				variant.OptionValues = append(variant.OptionValues, models.OptionValueAssignment{
					Name:       value,
					OptionName: product.OptionNames[i],
				})
			}

			if row.ImageSrc != "" {
				variant.MediaSrc = append(variant.MediaSrc, row.ImageSrc)
				line.Media = appendMedia(line.Media, row.ImageSrc)
			}

			for _, quantity := range row.Quantities {
				locationID, found := locations[quantity.LocationName]
				if !found {
					continue
				}
				variant.InventoryQuantities = append(variant.InventoryQuantities, models.InventoryQuantityInput{
					LocationID: locationID,
					Name:       "available",
					Quantity:   quantity.Available,
				})
			}

			line.Variants = append(line.Variants, variant)
		}

		if len(line.Variants) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// ProjectPublish строит нагрузку фазы публикации для товаров
// с флагом Published. Снимок списка публикаций общий для всего
// прохода и не перечитывается на каждом товаре.
func (s *ProjectorService) ProjectPublish(products []*models.SourceProduct, resolved map[string]string, publications []models.Publication) []models.PublishLine {
	input := make([]models.PublicationInput, 0, len(publications))
	for _, pub := range publications {
		input = append(input, models.PublicationInput{PublicationID: pub.ID})
	}

	var lines []models.PublishLine
	for _, product := range products {
		if !product.Published {
			continue
		}
		productID, ok := resolved[product.Handle]
		if !ok {
			s.logger.Warn("Товар без GID пропущен в фазе публикации",
				interfaces.LogField{Key: "handle", Value: product.Handle},
			)
			continue
		}
		lines = append(lines, models.PublishLine{
			ID:    productID,
			Input: input,
		})
	}
	return lines
}

// appendMedia добавляет картинку в список, если её URL там ещё нет
func appendMedia(media []models.MediaInput, src string) []models.MediaInput {
	if src == "" {
		return media
	}
	for _, m := range media {
		if m.OriginalSource == src {
			return media
		}
	}
	return append(media, models.MediaInput{
		OriginalSource:   src,
		MediaContentType: "IMAGE",
	})
}

func nonEmptyValues(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}
