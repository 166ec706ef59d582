package models

// Типизированные полезные нагрузки фаз конвейера.
// Каждая структура сериализуется в одну строку JSONL файла bulk-операции,
// поэтому json-теги повторяют имена полей Admin GraphQL API.

// ProductLine — строка фазы создания товаров (productCreate)
type ProductLine struct {
	Product ProductInput `json:"product"`
	Media   []MediaInput `json:"media,omitempty"`
}

// ProductInput описывает создаваемый товар
type ProductInput struct {
	Handle          string           `json:"handle"`
	Title           string           `json:"title"`
	DescriptionHTML string           `json:"descriptionHtml,omitempty"`
	Vendor          string           `json:"vendor,omitempty"`
	Category        string           `json:"category,omitempty"`
	ProductType     string           `json:"productType,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	GiftCard        bool             `json:"giftCard"`
	SEO             *SEOInput        `json:"seo,omitempty"`
	Status          string           `json:"status,omitempty"`
	ProductOptions  []OptionInput    `json:"productOptions,omitempty"`
	Metafields      []MetafieldInput `json:"metafields,omitempty"`
}

// SEOInput описывает SEO-поля товара
type SEOInput struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// OptionInput описывает опцию товара с упорядоченным набором значений
type OptionInput struct {
	Name   string             `json:"name"`
	Values []OptionValueInput `json:"values"`
}

// OptionValueInput — одно значение опции
type OptionValueInput struct {
	Name string `json:"name"`
}

// MetafieldInput описывает типизированное метаполе
type MetafieldInput struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// MediaInput описывает прикрепляемый медиафайл
type MediaInput struct {
	OriginalSource   string `json:"originalSource"`
	MediaContentType string `json:"mediaContentType"`
}

// VariantLine — строка фазы создания вариантов (productVariantsBulkCreate).
// ProductID заполняется резолвером после завершения фазы товаров.
type VariantLine struct {
	ProductID string         `json:"productId"`
	Variants  []VariantInput `json:"variants"`
	Media     []MediaInput   `json:"media,omitempty"`
	Strategy  string         `json:"strategy,omitempty"`
}

// VariantInput описывает один вариант товара
type VariantInput struct {
	OptionValues        []OptionValueAssignment  `json:"optionValues"`
	Price               float64                  `json:"price"`
	CompareAtPrice      *float64                 `json:"compareAtPrice,omitempty"` // отсутствие поля и null различаются на стороне API
	InventoryItem       InventoryItemInput       `json:"inventoryItem"`
	InventoryPolicy     string                   `json:"inventoryPolicy,omitempty"`
	Taxable             bool                     `json:"taxable"`
	Barcode             string                   `json:"barcode,omitempty"`
	MediaSrc            []string                 `json:"mediaSrc,omitempty"`
	InventoryQuantities []InventoryQuantityInput `json:"inventoryQuantities,omitempty"`
}

// OptionValueAssignment привязывает значение опции к её имени
type OptionValueAssignment struct {
	Name       string `json:"name"`
	OptionName string `json:"optionName"`
}

// InventoryItemInput описывает складскую позицию варианта
type InventoryItemInput struct {
	SKU              string            `json:"sku"`
	Tracked          bool              `json:"tracked"`
	RequiresShipping bool              `json:"requiresShipping"`
	Cost             *float64          `json:"cost,omitempty"`
	Measurement      *MeasurementInput `json:"measurement,omitempty"`
}

// MeasurementInput описывает измерения складской позиции
type MeasurementInput struct {
	Weight WeightInput `json:"weight"`
}

// WeightInput описывает вес в нормализованных единицах
type WeightInput struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// InventoryQuantityInput описывает остаток в локации
type InventoryQuantityInput struct {
	LocationID string `json:"locationId"`
	Name       string `json:"name"` // тип количества, всегда available
	Quantity   int    `json:"quantity"`
}

// PublishLine — строка фазы публикации (publishablePublish).
// Снимок списка публикаций общий для всего прохода проекции.
type PublishLine struct {
	ID    string             `json:"id"`
	Input []PublicationInput `json:"input"`
}

// PublicationInput — один канал продаж
type PublicationInput struct {
	PublicationID string `json:"publicationId"`
}

// FileUpdateInput описывает переименование файла и обновление alt-текста
type FileUpdateInput struct {
	ID       string `json:"id"`
	Filename string `json:"filename,omitempty"`
	Alt      string `json:"alt,omitempty"`
}
