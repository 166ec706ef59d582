package models

// DTO ответов Admin GraphQL API.

// PageInfo — курсорная пагинация connection-полей
type PageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// ResolvedProduct — товар, найденный по handle
type ResolvedProduct struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// ProductPage — страница результатов поиска товаров
type ProductPage struct {
	Products []ResolvedProduct
	PageInfo PageInfo
}

// MediaNode — медиафайл товара
type MediaNode struct {
	ID               string `json:"id"`
	Alt              string `json:"alt"`
	MediaContentType string `json:"mediaContentType"`
	OriginalSource   string `json:"originalSrc"`
}

// MediaPage — медиафайлы товара вместе с его handle.
// VariantMedia содержит первый медиафайл каждого варианта,
// у вариантов без медиа записи нет.
type MediaPage struct {
	ProductID    string
	Handle       string
	Title        string
	Media        []MediaNode
	VariantMedia []MediaNode
}

// VariantNode — вариант товара при чтении
type VariantNode struct {
	ID    string `json:"id"`
	SKU   string `json:"sku"`
	Title string `json:"title"`
}

// Publication — канал продаж магазина
type Publication struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Location — локация склада
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// StagedParameter — параметр формы staged-загрузки
type StagedParameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// StagedUploadTarget — цель staged-загрузки, выданная stagedUploadsCreate
type StagedUploadTarget struct {
	URL         string            `json:"url"`
	ResourceURL string            `json:"resourceUrl"`
	Parameters  []StagedParameter `json:"parameters"`
}

// Param возвращает значение параметра по имени. Порядок параметров в ответе
// не гарантирован, поэтому путь к файлу ищется по имени key.
func (t StagedUploadTarget) Param(name string) (string, bool) {
	for _, p := range t.Parameters {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Статусы bulk-операции
const (
	BulkStatusCreated   = "CREATED"
	BulkStatusRunning   = "RUNNING"
	BulkStatusCompleted = "COMPLETED"
	BulkStatusFailed    = "FAILED"
	BulkStatusCanceled  = "CANCELED"
	BulkStatusExpired   = "EXPIRED"
)

// BulkOperation — состояние bulk-операции
type BulkOperation struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ErrorCode   string `json:"errorCode"`
	ObjectCount string `json:"objectCount"`
	URL         string `json:"url"`
}

// Terminal сообщает, достигла ли операция конечного состояния
func (op BulkOperation) Terminal() bool {
	switch op.Status {
	case BulkStatusCompleted, BulkStatusFailed, BulkStatusCanceled, BulkStatusExpired:
		return true
	}
	return false
}

// UserError — пользовательская ошибка мутации
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// ShopInfo — базовые сведения о магазине
type ShopInfo struct {
	Name          string `json:"name"`
	MyshopifyURL  string `json:"myshopifyDomain"`
	PlanName      string `json:"planDisplayName"`
	CurrencyCode  string `json:"currencyCode"`
	ProductsCount int    `json:"productsCount"`
}
