package shopify

import (
	"errors"
	"fmt"
	"strings"
)

// Типизированная таксономия ошибок транспорта. Причина провала
// различима вызывающим кодом через errors.Is / errors.As.
var (
	ErrEmptyStoreName   = errors.New("store name is empty")
	ErrEmptyAccessToken = errors.New("access token is empty")
	ErrEmptyAPIVersion  = errors.New("api version is empty")

	// ErrNoSession — вызов транспорта без установленной сессии
	ErrNoSession = errors.New("session is not established")

	// ErrRetriesExhausted — ни одна из попыток не дошла до удалённой стороны
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrPollBudgetExceeded — bulk-операция не завершилась за отведённое время
	ErrPollBudgetExceeded = errors.New("poll budget exceeded")
)

// GraphQLError — одна ошибка из коллекции errors ответа
type GraphQLError struct {
	Message string `json:"message"`
}

// GraphQLErrors — логическая ошибка удалённой стороны.
// Запрос был доставлен и отклонён, повтор даст тот же результат.
type GraphQLErrors struct {
	Errors []GraphQLError `json:"errors"`
}

func (e *GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ge := range e.Errors {
		msgs = append(msgs, ge.Message)
	}
	return fmt.Sprintf("graphql errors: %s", strings.Join(msgs, "; "))
}

// DecodeError — не удалось разобрать тело ответа, повтор не выполняется
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("response decode failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UserErrorsError — мутация выполнена, но вернула userErrors
type UserErrorsError struct {
	Operation string
	Messages  []string
}

func (e *UserErrorsError) Error() string {
	return fmt.Sprintf("%s user errors: %s", e.Operation, strings.Join(e.Messages, "; "))
}
