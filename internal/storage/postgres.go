package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/repository"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
)

// PostgresBackend — пространства сессий в таблице session_entries.
// Переживает рестарт и разделяется между репликами.
type PostgresBackend struct {
	repo   repository.SessionEntryRepository
	tx     *repository.TxRunner
	ttl    time.Duration
	logger *slog.Logger
	// now подменяется в тестах.
	now func() time.Time
}

// NewPostgresBackend создаёт бэкенд поверх пула PostgreSQL.
// Записи старше ttl считаются отсутствующими и удаляются фоновой очисткой.
func NewPostgresBackend(pool *pgxpool.Pool, ttl time.Duration, logger *slog.Logger) *PostgresBackend {
	return &PostgresBackend{
		repo:   repository.NewSessionEntryRepository(pool),
		tx:     repository.NewTxRunner(pool),
		ttl:    ttl,
		logger: logger.With(slog.String("component", "session_storage_pg")),
		now:    time.Now,
	}
}

// Name возвращает "postgres".
func (b *PostgresBackend) Name() string {
	return "postgres"
}

// For возвращает пространство сессии sessionID.
func (b *PostgresBackend) For(sessionID string) session.Storage {
	return &pgStorage{backend: b, sid: sessionID}
}

// RunPurge периодически удаляет устаревшие записи.
// Блокирует до отмены ctx.
func (b *PostgresBackend) RunPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.logger.Info("Очистка устаревших сессий запущена",
		slog.Duration("interval", interval),
		slog.Duration("ttl", b.ttl),
	)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Очистка устаревших сессий остановлена")
			return
		case <-ticker.C:
			n, err := b.repo.PurgeExpired(ctx, b.now().Add(-b.ttl))
			if err != nil {
				b.logger.Error("Ошибка очистки устаревших сессий", slog.String("error", err.Error()))
				continue
			}
			if n > 0 {
				b.logger.Debug("Удалены устаревшие записи сессий", slog.Int64("rows", n))
			}
		}
	}
}

type pgStorage struct {
	backend *PostgresBackend
	sid     string
}

func (s *pgStorage) Load(ctx context.Context) (map[string]string, error) {
	entries, err := s.backend.repo.List(ctx, s.sid, s.backend.now().Add(-s.backend.ttl))
	if err != nil {
		loadsTotal.WithLabelValues("postgres", "error").Inc()
		return nil, fmt.Errorf("загрузка сессии: %w", err)
	}
	if len(entries) == 0 {
		loadsTotal.WithLabelValues("postgres", "miss").Inc()
		return map[string]string{}, nil
	}
	loadsTotal.WithLabelValues("postgres", "hit").Inc()

	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

// Apply выполняет все изменения в одной транзакции и продлевает
// жизнь остальных ключей сессии.
func (s *pgStorage) Apply(ctx context.Context, m session.Mutation) error {
	if m.IsEmpty() {
		return nil
	}
	err := s.backend.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		repo := repository.NewSessionEntryRepository(tx)
		for key, value := range m.Set {
			if err := repo.Set(ctx, s.sid, key, value); err != nil {
				return err
			}
		}
		if err := repo.Delete(ctx, s.sid, m.Delete); err != nil {
			return err
		}
		return repo.Touch(ctx, s.sid)
	})
	if err != nil {
		return fmt.Errorf("запись сессии: %w", err)
	}
	writesTotal.WithLabelValues("postgres", "apply").Inc()
	return nil
}

func (s *pgStorage) Clear(ctx context.Context) error {
	if err := s.backend.repo.DeleteAll(ctx, s.sid); err != nil {
		return fmt.Errorf("очистка сессии: %w", err)
	}
	writesTotal.WithLabelValues("postgres", "clear").Inc()
	return nil
}
