package csvsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/athebyme/shopify-bulk-sync/internal/utils"
	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Шаблоны пользовательских колонок выгрузки
var (
	metafieldColumnRe = regexp.MustCompile(`^(.+) \(product\.metafields\.([^.]+)\.(.+)\)$`)
	quantityColumnRe  = regexp.MustCompile(`^Available \((.+)\)$`)
)

// Reader читает табличную выгрузку товаров и группирует строки
// по Handle в карточки SourceProduct. Выгрузка может быть в UTF-8
// или UTF-16, кодировка определяется по BOM.
type Reader struct {
	logger interfaces.LoggerPort
}

// NewReader создает новый читатель выгрузки
func NewReader(logger interfaces.LoggerPort) *Reader {
	return &Reader{logger: logger}
}

// Read читает файл выгрузки и возвращает карточки товаров
// в порядке первого появления Handle
func (r *Reader) Read(path string) ([]*models.SourceProduct, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer file.Close()

	return r.parse(file)
}

func (r *Reader) parse(src io.Reader) ([]*models.SourceProduct, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(src, decoder))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns["Handle"]; !ok {
		return nil, utils.ErrEmptySource
	}

	cell := func(row []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var order []string
	products := make(map[string]*models.SourceProduct)

	rowNum := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rowNum, err)
		}
		rowNum++

		handle := cell(row, "Handle")
		if handle == "" {
			continue
		}

		product, seen := products[handle]
		if !seen {
			product = r.buildProduct(handle, row, header, cell)
			products[handle] = product
			order = append(order, handle)
		}

		// Картинка строки попадает в общий список картинок товара
		if src := cell(row, "Image Src"); src != "" {
			position := len(product.Images) + 1
			if p, err := strconv.Atoi(cell(row, "Image Position")); err == nil {
				position = p
			}
			product.Images = append(product.Images, models.SourceImage{
				Src:      src,
				Position: position,
				Alt:      cell(row, "Image Alt Text"),
			})
		}

		// Строка без SKU и без значений опций служит только носителем картинки
		if cell(row, "Variant SKU") == "" && cell(row, "Option1 Value") == "" {
			continue
		}

		product.Rows = append(product.Rows, r.buildRow(row, header, cell, len(product.OptionNames)))
	}

	if len(order) == 0 {
		return nil, utils.ErrEmptySource
	}

	result := make([]*models.SourceProduct, 0, len(order))
	for _, handle := range order {
		result = append(result, products[handle])
	}

	r.logger.Info("Выгрузка прочитана",
		interfaces.LogField{Key: "products", Value: len(result)},
		interfaces.LogField{Key: "rows", Value: rowNum - 1},
	)
	return result, nil
}

// buildProduct собирает карточку товара из первой строки его группы
func (r *Reader) buildProduct(handle string, row []string, header []string, cell func([]string, string) string) *models.SourceProduct {
	product := &models.SourceProduct{
		Handle:          handle,
		Title:           cell(row, "Title"),
		DescriptionHTML: firstNonEmpty(cell(row, "Body(HTML)"), cell(row, "Body (HTML)")),
		Vendor:          cell(row, "Vendor"),
		Category:        cell(row, "Product Category"),
		ProductType:     cell(row, "Type"),
		Published:       parseBool(cell(row, "Published")),
		GiftCard:        parseBool(cell(row, "Gift Card")),
		SEOTitle:        cell(row, "SEO Title"),
		SEODescription:  cell(row, "SEO Description"),
		Status:          normalizeStatus(cell(row, "Status")),
	}

	if tags := cell(row, "Tags"); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if t := strings.TrimSpace(tag); t != "" {
				product.Tags = append(product.Tags, t)
			}
		}
	}

	// Опции с пустым именем пропускаются
	for _, column := range []string{"Option1 Name", "Option2 Name", "Option3 Name"} {
		if name := cell(row, column); name != "" {
			product.OptionNames = append(product.OptionNames, name)
		}
	}

	// Метаполя берутся из колонок с соглашением об именовании,
	// пустые значения не порождают метаполе
	for _, column := range header {
		m := metafieldColumnRe.FindStringSubmatch(strings.TrimSpace(column))
		if m == nil {
			continue
		}
		value := cell(row, strings.TrimSpace(column))
		if value == "" {
			continue
		}
		product.Metafields = append(product.Metafields, models.SourceMetafield{
			Namespace: m[2],
			Key:       m[3],
			Type:      inferMetafieldType(value),
			Value:     value,
		})
	}

	return product
}

// buildRow собирает запись варианта из одной строки выгрузки
func (r *Reader) buildRow(row []string, header []string, cell func([]string, string) string, optionCount int) models.SourceRow {
	sourceRow := models.SourceRow{
		SKU:              cell(row, "Variant SKU"),
		Price:            parseFloat(cell(row, "Variant Price")),
		CompareAtPrice:   parseOptionalFloat(cell(row, "Variant Compare At Price")),
		Grams:            parseFloat(cell(row, "Variant Grams")),
		WeightUnit:       normalizeWeightUnit(cell(row, "Variant Weight Unit")),
		Tracked:          cell(row, "Variant Inventory Tracker") != "",
		RequiresShipping: parseBool(cell(row, "Variant Requires Shipping")),
		Taxable:          parseBool(cell(row, "Variant Taxable")),
		InventoryPolicy:  normalizePolicy(cell(row, "Variant Inventory Policy")),
		Cost:             parseOptionalFloat(cell(row, "Cost per item")),
		Barcode:          cell(row, "Variant Barcode"),
		ImageSrc:         cell(row, "Variant Image"),
	}

	for i := 0; i < optionCount; i++ {
		sourceRow.OptionValues = append(sourceRow.OptionValues, cell(row, fmt.Sprintf("Option%d Value", i+1)))
	}

	for _, column := range header {
		m := quantityColumnRe.FindStringSubmatch(strings.TrimSpace(column))
		if m == nil {
			continue
		}
		raw := cell(row, strings.TrimSpace(column))
		if raw == "" {
			continue
		}
		available, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		sourceRow.Quantities = append(sourceRow.Quantities, models.LocationQuantity{
			LocationName: m[1],
			Available:    available,
		})
	}

	return sourceRow
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "yes", "1":
		return true
	}
	return false
}

func parseFloat(value string) float64 {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

func parseOptionalFloat(value string) *float64 {
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}

func normalizeStatus(value string) string {
	switch strings.ToUpper(value) {
	case "DRAFT":
		return "DRAFT"
	case "ARCHIVED":
		return "ARCHIVED"
	default:
		return "ACTIVE"
	}
}

func normalizeWeightUnit(value string) string {
	switch strings.ToLower(value) {
	case "kg":
		return "KILOGRAMS"
	case "lb":
		return "POUNDS"
	case "oz":
		return "OUNCES"
	default:
		return "GRAMS"
	}
}

func normalizePolicy(value string) string {
	if strings.EqualFold(value, "continue") {
		return "CONTINUE"
	}
	return "DENY"
}

func inferMetafieldType(value string) string {
	switch strings.ToLower(value) {
	case "true", "false":
		return "boolean"
	}
	return "single_line_text_field"
}
