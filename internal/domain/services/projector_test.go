package services

import (
	"testing"

	"github.com/athebyme/shopify-bulk-sync/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourceMug() *models.SourceProduct {
	compare := 12.0
	return &models.SourceProduct{
		Handle:      "mug",
		Title:       "Ceramic Mug",
		Vendor:      "Acme",
		Published:   true,
		Status:      "ACTIVE",
		OptionNames: []string{"Color"},
		Images: []models.SourceImage{
			{Src: "https://cdn.example.com/red.jpg", Position: 1},
		},
		Rows: []models.SourceRow{
			{SKU: "MUG-R", OptionValues: []string{"Red"}, Price: 10.5, CompareAtPrice: &compare, Grams: 300, WeightUnit: "GRAMS", Quantities: []models.LocationQuantity{{LocationName: "Main", Available: 5}}},
			{SKU: "MUG-B", OptionValues: []string{"Blue"}, Price: 10.5, ImageSrc: "https://cdn.example.com/blue.jpg"},
		},
	}
}

func TestProjectorService_ProjectProducts_OptionValueDedup(t *testing.T) {
	p := NewProjectorService(nopLogger{})

	product := &models.SourceProduct{
		Handle:      "shirt",
		Title:       "Shirt",
		OptionNames: []string{"Size"},
		Rows: []models.SourceRow{
			{SKU: "S-A", OptionValues: []string{"A"}},
			{SKU: "S-B", OptionValues: []string{"B"}},
			{SKU: "S-A2", OptionValues: []string{"A"}},
			{SKU: "S-C", OptionValues: []string{"C"}},
			{SKU: "S-X", OptionValues: []string{""}},
		},
	}

	lines := p.ProjectProducts([]*models.SourceProduct{product})
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Product.ProductOptions, 1)

	// повторы убраны, порядок первого появления сохранён, пустые значения пропущены
	values := lines[0].Product.ProductOptions[0].Values
	require.Len(t, values, 3)
	assert.Equal(t, "A", values[0].Name)
	assert.Equal(t, "B", values[1].Name)
	assert.Equal(t, "C", values[2].Name)
}

func TestProjectorService_ProjectProducts_SEOAndMedia(t *testing.T) {
	p := NewProjectorService(nopLogger{})

	plain := sourceMug()
	withSEO := sourceMug()
	withSEO.Handle = "mug-seo"
	withSEO.SEOTitle = "Best Mug"
	withSEO.Images = append(withSEO.Images, models.SourceImage{Src: "https://cdn.example.com/red.jpg", Position: 2})

	lines := p.ProjectProducts([]*models.SourceProduct{plain, withSEO})
	require.Len(t, lines, 2)

	assert.Nil(t, lines[0].Product.SEO)
	require.NotNil(t, lines[1].Product.SEO)
	assert.Equal(t, "Best Mug", lines[1].Product.SEO.Title)

	// повтор URL картинки не порождает второй медиафайл
	require.Len(t, lines[1].Media, 1)
	assert.Equal(t, "https://cdn.example.com/red.jpg", lines[1].Media[0].OriginalSource)
	assert.Equal(t, "IMAGE", lines[1].Media[0].MediaContentType)
}

func TestProjectorService_ProjectVariants_Full(t *testing.T) {
	p := NewProjectorService(nopLogger{})

	resolved := map[string]string{"mug": "gid://shopify/Product/1"}
	locations := map[string]string{"Main": "gid://shopify/Location/7"}

	lines := p.ProjectVariants([]*models.SourceProduct{sourceMug()}, resolved, locations)
	require.Len(t, lines, 1)

	line := lines[0]
	assert.Equal(t, "gid://shopify/Product/1", line.ProductID)
	assert.Equal(t, "REMOVE_STANDALONE_VARIANT", line.Strategy)
	require.Len(t, line.Variants, 2)

	first := line.Variants[0]
	assert.Equal(t, "MUG-R", first.InventoryItem.SKU)
	require.NotNil(t, first.CompareAtPrice)
	assert.Equal(t, 12.0, *first.CompareAtPrice)
	require.NotNil(t, first.InventoryItem.Measurement)
	assert.Equal(t, 300.0, first.InventoryItem.Measurement.Weight.Value)
	assert.Equal(t, "GRAMS", first.InventoryItem.Measurement.Weight.Unit)
	require.Len(t, first.OptionValues, 1)
	assert.Equal(t, models.OptionValueAssignment{Name: "Red", OptionName: "Color"}, first.OptionValues[0])
	require.Len(t, first.InventoryQuantities, 1)
	assert.Equal(t, "gid://shopify/Location/7", first.InventoryQuantities[0].LocationID)
	assert.Equal(t, "available", first.InventoryQuantities[0].Name)
	assert.Equal(t, 5, first.InventoryQuantities[0].Quantity)

	second := line.Variants[1]
	assert.Nil(t, second.CompareAtPrice)
	assert.Nil(t, second.InventoryItem.Measurement)
	assert.Equal(t, []string{"https://cdn.example.com/blue.jpg"}, second.MediaSrc)

	// картинка карточки и картинка варианта в общем списке, без повторов
	require.Len(t, line.Media, 2)
	assert.Equal(t, "https://cdn.example.com/red.jpg", line.Media[0].OriginalSource)
	assert.Equal(t, "https://cdn.example.com/blue.jpg", line.Media[1].OriginalSource)
}

func TestProjectorService_ProjectVariants_SkipsIncompleteRows(t *testing.T) {
	p := NewProjectorService(nopLogger{})

	product := sourceMug()
	product.Rows = append(product.Rows,
		models.SourceRow{SKU: "", OptionValues: []string{"Green"}},       // без SKU
		models.SourceRow{SKU: "MUG-BAD", OptionValues: []string{""}},     // значений меньше, чем опций
		models.SourceRow{SKU: "MUG-WIDE", OptionValues: []string{"Red", "XL"}}, // значений больше, чем опций
	)

	lines := p.ProjectVariants([]*models.SourceProduct{product}, map[string]string{"mug": "gid://shopify/Product/1"}, nil)
	require.Len(t, lines, 1)
	assert.Len(t, lines[0].Variants, 2)
}

func TestProjectorService_ProjectVariants_SkipsUnresolvedProducts(t *testing.T) {
	p := NewProjectorService(nopLogger{})

	lines := p.ProjectVariants([]*models.SourceProduct{sourceMug()}, map[string]string{}, nil)
	assert.Empty(t, lines)
}

func TestProjectorService_ProjectVariants_UnknownLocationDropped(t *testing.T) {
	p := NewProjectorService(nopLogger{})

	lines := p.ProjectVariants([]*models.SourceProduct{sourceMug()}, map[string]string{"mug": "gid://shopify/Product/1"}, map[string]string{"Other": "gid://shopify/Location/9"})
	require.Len(t, lines, 1)
	assert.Empty(t, lines[0].Variants[0].InventoryQuantities)
}

func TestProjectorService_ProjectPublish_SharedSnapshot(t *testing.T) {
	p := NewProjectorService(nopLogger{})

	published := sourceMug()
	draft := sourceMug()
	draft.Handle = "plate"
	draft.Published = false
	unresolved := sourceMug()
	unresolved.Handle = "bowl"

	resolved := map[string]string{
		"mug":   "gid://shopify/Product/1",
		"plate": "gid://shopify/Product/2",
	}
	publications := []models.Publication{
		{ID: "gid://shopify/Publication/1", Name: "Online Store"},
		{ID: "gid://shopify/Publication/2", Name: "POS"},
	}

	lines := p.ProjectPublish([]*models.SourceProduct{published, draft, unresolved}, resolved, publications)

	// публикуется только Published товар с известным GID
	require.Len(t, lines, 1)
	assert.Equal(t, "gid://shopify/Product/1", lines[0].ID)
	require.Len(t, lines[0].Input, 2)
	assert.Equal(t, "gid://shopify/Publication/1", lines[0].Input[0].PublicationID)
	assert.Equal(t, "gid://shopify/Publication/2", lines[0].Input[1].PublicationID)
}
