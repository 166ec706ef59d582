package shopify

import "fmt"

// Session — неизменяемые параметры подключения к Admin API.
// Создаётся один раз при старте и передаётся в транспорт явно.
type Session struct {
	storeName   string
	accessToken string
	apiVersion  string
}

// NewSession создает новую сессию подключения
func NewSession(storeName, accessToken, apiVersion string) (*Session, error) {
	if storeName == "" {
		return nil, ErrEmptyStoreName
	}
	if accessToken == "" {
		return nil, ErrEmptyAccessToken
	}
	if apiVersion == "" {
		return nil, ErrEmptyAPIVersion
	}
	return &Session{
		storeName:   storeName,
		accessToken: accessToken,
		apiVersion:  apiVersion,
	}, nil
}

// StoreName возвращает имя магазина
func (s *Session) StoreName() string {
	return s.storeName
}

// AccessToken возвращает токен доступа
func (s *Session) AccessToken() string {
	return s.accessToken
}

// Endpoint возвращает адрес GraphQL-эндпоинта Admin API
func (s *Session) Endpoint() string {
	return fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/graphql.json", s.storeName, s.apiVersion)
}
