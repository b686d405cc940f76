// Пакет database — PostgreSQL для хранения сессий (DM_SESSION_BACKEND=postgres):
// пул pgxpool, миграции golang-migrate и проверка готовности.
package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	// maxConns — записи сессий короткие, большой пул не нужен.
	maxConns = 10
	// connectAttempts — попытки ping при старте, пока PostgreSQL поднимается рядом.
	connectAttempts = 5
	// connectBackoff — пауза перед первой повторной попыткой, далее удваивается.
	connectBackoff = 500 * time.Millisecond
)

// Connect создаёт пул подключений и дожидается ответа PostgreSQL:
// до connectAttempts попыток ping с экспоненциальной паузой.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга DSN: %w", err)
	}
	poolCfg.MaxConns = maxConns
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания пула подключений: %w", err)
	}

	if err := pingWithRetry(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка подключения к PostgreSQL: %w", err)
	}

	logger.Info("Подключение к PostgreSQL установлено",
		slog.String("host", cfg.DBHost),
		slog.Int("port", cfg.DBPort),
		slog.String("database", cfg.DBName),
	)
	return pool, nil
}

func pingWithRetry(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	delay := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		logger.Warn("PostgreSQL недоступен, повтор",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// migrationURL — URL PostgreSQL в схеме драйвера pgx5 golang-migrate.
func migrationURL(cfg *config.Config) string {
	return "pgx5" + strings.TrimPrefix(cfg.DatabaseURL(), "postgres")
}

// Migrate применяет встроенные миграции таблицы session_entries.
func Migrate(cfg *config.Config, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("ошибка создания источника миграций: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrationURL(cfg))
	if err != nil {
		return fmt.Errorf("ошибка инициализации миграций: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ошибка применения миграций: %w", err)
	}

	version, dirty, _ := m.Version()
	logger.Info("Миграции применены",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// ReadinessChecker — проверка готовности PostgreSQL для /health/ready.
type ReadinessChecker struct {
	pool *pgxpool.Pool
}

// NewReadinessChecker создаёт проверку готовности PostgreSQL.
func NewReadinessChecker(pool *pgxpool.Pool) *ReadinessChecker {
	return &ReadinessChecker{pool: pool}
}

// Name — имя проверки в ответе /health/ready.
func (c *ReadinessChecker) Name() string {
	return "postgresql"
}

// CheckReady: ping не прошёл — fail; все соединения пула заняты — degraded.
func (c *ReadinessChecker) CheckReady(ctx context.Context) (status string, message string) {
	if err := c.pool.Ping(ctx); err != nil {
		return "fail", fmt.Sprintf("PostgreSQL недоступен: %v", err)
	}

	stat := c.pool.Stat()
	if stat.AcquiredConns() >= stat.MaxConns() {
		return "degraded", fmt.Sprintf("пул исчерпан: %d из %d соединений заняты",
			stat.AcquiredConns(), stat.MaxConns())
	}
	return "ok", "подключение активно"
}
