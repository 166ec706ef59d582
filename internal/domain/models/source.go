package models

// SourceProduct представляет одну логическую карточку товара,
// собранную из группы строк табличной выгрузки с общим Handle.
// После построения из источника запись не изменяется.
type SourceProduct struct {
	Handle          string           `json:"handle"`
	Title           string           `json:"title"`
	DescriptionHTML string           `json:"description_html"`
	Vendor          string           `json:"vendor"`
	Category        string           `json:"category"`
	ProductType     string           `json:"product_type"`
	Tags            []string         `json:"tags"`
	Published       bool             `json:"published"`
	GiftCard        bool             `json:"gift_card"`
	SEOTitle        string           `json:"seo_title"`
	SEODescription  string           `json:"seo_description"`
	Status          string           `json:"status"` // ACTIVE / DRAFT / ARCHIVED
	OptionNames     []string         `json:"option_names"`
	Metafields      []SourceMetafield `json:"metafields"`
	Images          []SourceImage    `json:"images"`
	Rows            []SourceRow      `json:"rows"`
}

// SourceRow представляет одну строку варианта из выгрузки.
// Все поля строки собраны в одну запись, а не в параллельные списки по колонкам.
type SourceRow struct {
	SKU              string             `json:"sku"`
	OptionValues     []string           `json:"option_values"` // по одному значению на опцию товара
	Price            float64            `json:"price"`
	CompareAtPrice   *float64           `json:"compare_at_price,omitempty"`
	Grams            float64            `json:"grams"`
	WeightUnit       string             `json:"weight_unit"` // GRAMS, если не задан явно
	Tracked          bool               `json:"tracked"`
	RequiresShipping bool               `json:"requires_shipping"`
	Taxable          bool               `json:"taxable"`
	InventoryPolicy  string             `json:"inventory_policy"` // DENY / CONTINUE
	Cost             *float64           `json:"cost,omitempty"`
	Barcode          string             `json:"barcode"`
	ImageSrc         string             `json:"image_src"` // картинка конкретного варианта
	Quantities       []LocationQuantity `json:"quantities,omitempty"`
}

// SourceImage представляет картинку товара из выгрузки
type SourceImage struct {
	Src      string `json:"src"`
	Position int    `json:"position"`
	Alt      string `json:"alt"`
}

// SourceMetafield представляет пользовательскую колонку-метаполе выгрузки.
// Колонки следуют соглашению "{key} (product.metafields.{namespace}.{key})".
type SourceMetafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"` // single_line_text_field / boolean
	Value     string `json:"value"`
}

// LocationQuantity представляет доступный остаток варианта в конкретной локации
type LocationQuantity struct {
	LocationName string `json:"location_name"`
	Available    int    `json:"available"`
}
