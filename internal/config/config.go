// Пакет config — загрузка и валидация конфигурации Dashboard Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Бэкенды долговременного хранилища сессий.
const (
	// SessionBackendCookie — сессия целиком в зашифрованном cookie браузера.
	SessionBackendCookie = "cookie"
	// SessionBackendMemory — in-memory LRU на экземпляр сервиса.
	SessionBackendMemory = "memory"
	// SessionBackendPostgres — таблица session_entries в PostgreSQL.
	SessionBackendPostgres = "postgres"
)

// Config содержит все параметры конфигурации Dashboard Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Backend REST API ---

	// Базовый URL backend API (единственная внешняя настройка клиента)
	BackendURL string
	// Таймаут HTTP-запросов к backend
	BackendTimeout time.Duration
	// Путь health endpoint backend (readiness и topologymetrics)
	BackendHealthPath string

	// --- Сессии ---

	// Бэкенд хранилища сессий: cookie, memory, postgres
	SessionBackend string
	// Секрет шифрования session cookie (пустой — случайный ключ на время жизни процесса)
	SessionSecret string
	// Время жизни сессии
	SessionTTL time.Duration
	// Максимальное число сессий в memory-бэкенде
	MemorySessionsMax int
	// Secure flag для cookie (HTTPS)
	SecureCookie bool

	// --- PostgreSQL (только для SessionBackendPostgres) ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	// Режим SSL: disable, require, verify-ca, verify-full
	DBSSLMode string

	// --- Публичные ссылки на задачи ---

	// URL JWKS для проверки токенов в ссылках (пустой — проверка подписи отключена)
	LinkJWKSURL string
	// Ожидаемый issuer токенов в ссылках
	LinkIssuer string
	// Интервал обновления JWKS
	LinkJWKSRefreshInterval time.Duration

	// --- topologymetrics ---

	// Группа в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// DM_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("DM_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("DM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("DM_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// DM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("DM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("DM_LOG_LEVEL: %w", err)
	}

	// DM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("DM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("DM_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Backend REST API ---

	// DM_BACKEND_URL — обязательный
	cfg.BackendURL, err = getEnvRequired("DM_BACKEND_URL")
	if err != nil {
		return nil, err
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")
	if u, parseErr := url.Parse(cfg.BackendURL); parseErr != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("DM_BACKEND_URL: некорректный URL %q", cfg.BackendURL)
	}

	// DM_BACKEND_TIMEOUT — таймаут запросов к backend (по умолчанию 30s)
	cfg.BackendTimeout, err = getEnvDuration("DM_BACKEND_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DM_BACKEND_TIMEOUT: %w", err)
	}

	// DM_BACKEND_HEALTH_PATH — health endpoint backend (по умолчанию /health)
	cfg.BackendHealthPath = getEnvDefault("DM_BACKEND_HEALTH_PATH", "/health")
	if !strings.HasPrefix(cfg.BackendHealthPath, "/") {
		return nil, fmt.Errorf("DM_BACKEND_HEALTH_PATH: путь %q должен начинаться с /", cfg.BackendHealthPath)
	}

	// --- Сессии ---

	// DM_SESSION_BACKEND — бэкенд хранилища сессий (по умолчанию cookie)
	cfg.SessionBackend = getEnvDefault("DM_SESSION_BACKEND", SessionBackendCookie)
	switch cfg.SessionBackend {
	case SessionBackendCookie, SessionBackendMemory, SessionBackendPostgres:
	default:
		return nil, fmt.Errorf("DM_SESSION_BACKEND: недопустимое значение %q, допустимые: cookie, memory, postgres", cfg.SessionBackend)
	}

	// DM_SESSION_SECRET — ключ шифрования cookie (опционально)
	cfg.SessionSecret = getEnvDefault("DM_SESSION_SECRET", "")

	// DM_SESSION_TTL — время жизни сессии (по умолчанию 24h)
	cfg.SessionTTL, err = getEnvDuration("DM_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("DM_SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL < time.Minute {
		return nil, fmt.Errorf("DM_SESSION_TTL: значение %s меньше минимального 1m", cfg.SessionTTL)
	}

	// DM_MEMORY_SESSIONS_MAX — размер LRU memory-бэкенда (по умолчанию 10000)
	cfg.MemorySessionsMax, err = getEnvInt("DM_MEMORY_SESSIONS_MAX", 10000)
	if err != nil {
		return nil, fmt.Errorf("DM_MEMORY_SESSIONS_MAX: %w", err)
	}
	if cfg.MemorySessionsMax < 1 {
		return nil, fmt.Errorf("DM_MEMORY_SESSIONS_MAX: значение %d должно быть положительным", cfg.MemorySessionsMax)
	}

	// DM_SECURE_COOKIE — Secure flag (по умолчанию true, если backend по https)
	cfg.SecureCookie, err = getEnvBool("DM_SECURE_COOKIE", strings.HasPrefix(cfg.BackendURL, "https"))
	if err != nil {
		return nil, fmt.Errorf("DM_SECURE_COOKIE: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.SessionBackend == SessionBackendPostgres {
		if err := loadDatabase(cfg); err != nil {
			return nil, err
		}
	}

	// --- Публичные ссылки ---

	// DM_LINK_JWKS_URL — JWKS для токенов в ссылках (опционально)
	cfg.LinkJWKSURL = getEnvDefault("DM_LINK_JWKS_URL", "")
	// DM_LINK_ISSUER — ожидаемый issuer (опционально)
	cfg.LinkIssuer = getEnvDefault("DM_LINK_ISSUER", "")

	// DM_LINK_JWKS_REFRESH_INTERVAL — интервал обновления JWKS (по умолчанию 15m)
	cfg.LinkJWKSRefreshInterval, err = getEnvDuration("DM_LINK_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("DM_LINK_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- topologymetrics ---

	// DM_DEPHEALTH_GROUP — группа в метриках (по умолчанию teamdesk)
	cfg.DephealthGroup = getEnvDefault("DM_DEPHEALTH_GROUP", "teamdesk")

	// DM_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("DM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	// DM_SHUTDOWN_TIMEOUT — таймаут graceful shutdown (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("DM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("DM_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// loadDatabase загружает параметры PostgreSQL.
func loadDatabase(cfg *Config) error {
	var err error

	// DM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("DM_DB_HOST")
	if err != nil {
		return err
	}

	// DM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("DM_DB_PORT", 5432)
	if err != nil {
		return fmt.Errorf("DM_DB_PORT: %w", err)
	}

	// DM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("DM_DB_NAME")
	if err != nil {
		return err
	}

	// DM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("DM_DB_USER")
	if err != nil {
		return err
	}

	// DM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("DM_DB_PASSWORD")
	if err != nil {
		return err
	}

	// DM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("DM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return fmt.Errorf("DM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	return nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL (для лейблов topologymetrics).
func (c *Config) DatabaseURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.DBSSLMode,
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает логическое значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное логическое значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
