package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/athebyme/shopify-bulk-sync/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики для Prometheus
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopify_requests_total",
		Help: "Общее количество запросов к Admin API",
	}, []string{"outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shopify_request_duration_seconds",
		Help:    "Длительность запросов к Admin API",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shopify_request_retries_total",
		Help: "Количество повторных попыток запросов",
	})
)

// graphqlRequest — конверт запроса Admin API
type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphqlResponse — конверт ответа Admin API
type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Client — транспорт Admin GraphQL API с ограниченным числом повторов.
// Повторяются только транспортные сбои и статусы вне [200,400):
// логическая ошибка или нечитаемое тело терминальны, запрос был доставлен.
type Client struct {
	session     *Session
	httpClient  *http.Client
	logger      interfaces.LoggerPort
	maxRetries  int
	backoffBase time.Duration
	sleep       func(time.Duration)
}

// NewClient создает новый транспорт поверх установленной сессии
func NewClient(session *Session, logger interfaces.LoggerPort, timeout time.Duration, maxRetries int, backoffBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return &Client{
		session:     session,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
		maxRetries:  maxRetries,
		backoffBase: backoffBase,
		sleep:       time.Sleep,
	}
}

// Execute выполняет запрос и декодирует поле data ответа в out.
// out может быть nil, если тело ответа не нужно.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}, out interface{}) error {
	if c.session == nil {
		c.logger.ErrorWithContext(ctx, "Запрос без установленной сессии")
		return ErrNoSession
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to marshal graphql request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			// Экспоненциальная задержка: base * 2^attempt
			backoff := c.backoffBase * time.Duration(1<<attempt)
			c.logger.WarnWithContext(ctx, "Повтор запроса к Admin API",
				interfaces.LogField{Key: "attempt", Value: attempt + 1},
				interfaces.LogField{Key: "backoff", Value: backoff.String()},
			)
			retriesTotal.Inc()
			c.sleep(backoff)
		}

		start := time.Now()
		resp, err := c.do(ctx, body)
		if err != nil {
			lastErr = err
			requestsTotal.WithLabelValues("transport_error").Inc()
			c.logger.ErrorWithContext(ctx, "Транспортная ошибка запроса",
				interfaces.LogField{Key: "attempt", Value: attempt + 1},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 400 {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
			requestsTotal.WithLabelValues("http_error").Inc()
			resp.Body.Close()
			c.logger.ErrorWithContext(ctx, "Неуспешный статус ответа Admin API",
				interfaces.LogField{Key: "attempt", Value: attempt + 1},
				interfaces.LogField{Key: "status", Value: resp.StatusCode},
			)
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			requestsTotal.WithLabelValues("transport_error").Inc()
			continue
		}

		var envelope graphqlResponse
		if err := json.Unmarshal(raw, &envelope); err != nil {
			requestsTotal.WithLabelValues("decode_error").Inc()
			c.logger.ErrorWithContext(ctx, "Не удалось разобрать тело ответа",
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			return &DecodeError{Err: err}
		}

		if len(envelope.Errors) > 0 {
			requestsTotal.WithLabelValues("graphql_error").Inc()
			gqlErr := &GraphQLErrors{Errors: envelope.Errors}
			c.logger.ErrorWithContext(ctx, "Admin API вернул логическую ошибку",
				interfaces.LogField{Key: "error", Value: gqlErr.Error()},
			)
			return gqlErr
		}

		requestsTotal.WithLabelValues("success").Inc()
		requestDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

		if out != nil && len(envelope.Data) > 0 {
			if err := json.Unmarshal(envelope.Data, out); err != nil {
				return &DecodeError{Err: err}
			}
		}
		return nil
	}

	c.logger.ErrorWithContext(ctx, "Запрос не выполнен, попытки исчерпаны",
		interfaces.LogField{Key: "attempts", Value: c.maxRetries},
		interfaces.LogField{Key: "error", Value: lastErr.Error()},
	)
	return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.session.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.session.AccessToken())

	return c.httpClient.Do(req)
}
