package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ReadinessChecker — проверка готовности backend API для /health/ready.
type ReadinessChecker struct {
	client *Client
	path   string
}

// NewReadinessChecker создаёт проверку backend по пути health endpoint.
func NewReadinessChecker(client *Client, healthPath string) *ReadinessChecker {
	if healthPath == "" {
		healthPath = "/health"
	}
	return &ReadinessChecker{client: client, path: healthPath}
}

// Name — имя проверки в ответе /health/ready.
func (c *ReadinessChecker) Name() string {
	return "backend-api"
}

// CheckReady запрашивает health endpoint backend.
// 5xx и сетевые ошибки — fail, прочие ответы вне 2xx — degraded.
func (c *ReadinessChecker) CheckReady(ctx context.Context) (status string, message string) {
	err := c.client.do(ctx, http.MethodGet, c.path, "", nil, nil)
	if err == nil {
		return "ok", "backend доступен"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
		return "degraded", apiErr.Error()
	}
	return "fail", fmt.Sprintf("backend недоступен: %v", err)
}
