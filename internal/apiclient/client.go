// Пакет apiclient — HTTP-клиент к backend REST API (Auth API и данные дашбордов).
// Все запросы — JSON поверх HTTP; ошибки backend возвращаются как *APIError.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// APIError — ответ backend со статусом вне 2xx.
type APIError struct {
	// StatusCode — HTTP-статус ответа.
	StatusCode int
	// Message — сообщение backend (может быть пустым).
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend вернул статус %d", e.StatusCode)
	}
	return fmt.Sprintf("backend вернул статус %d: %s", e.StatusCode, e.Message)
}

// sessionExpiredPattern — сообщения backend о просроченном или невалидном токене.
var sessionExpiredPattern = regexp.MustCompile(`(?i)(jwt|token).*(expired|invalid)`)

// IsSessionExpired сообщает, что ошибка означает конец сессии:
// 401/403 от backend или сообщение о просроченном/невалидном токене.
func IsSessionExpired(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
		return true
	}
	return sessionExpiredPattern.MatchString(apiErr.Message)
}

// MessageOf возвращает сообщение backend для показа пользователю
// или fallback, если сообщения нет.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Client — HTTP-клиент к backend REST API.
type Client struct {
	baseURL    string // Базовый URL backend (без trailing slash)
	httpClient *http.Client
	logger     *slog.Logger
}

// New создаёт клиент backend API.
// httpClient — HTTP-клиент (nil — клиент с таймаутом 30s).
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "backend_client")),
	}
}

// BaseURL возвращает базовый URL backend.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- HTTP helpers ---

// do выполняет JSON-запрос к backend. token — bearer (пустой — без авторизации).
// target — куда декодировать ответ (nil — тело игнорируется).
func (c *Client) do(ctx context.Context, method, path, token string, body, target any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("сериализация тела запроса: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("Запрос к backend",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &APIError{StatusCode: resp.StatusCode, Message: extractMessage(raw)}
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("декодирование ответа %s: %w", path, err)
		}
	}
	return nil
}

// errorBody — известные формы тела ошибки backend.
type errorBody struct {
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
}

// extractMessage достаёт текст ошибки из {"message": "..."},
// {"message": ["...", ...]}, {"error": "..."} или {"error": {"message": "..."}}.
func extractMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	if msg := rawString(body.Message); msg != "" {
		return msg
	}
	if len(body.Error) > 0 {
		var nested struct {
			Message json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal(body.Error, &nested); err == nil {
			if msg := rawString(nested.Message); msg != "" {
				return msg
			}
		}
		return rawString(body.Error)
	}
	return ""
}

// rawString разбирает строку или массив строк (сообщения валидации).
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return ""
}
