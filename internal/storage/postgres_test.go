package storage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/config"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/database"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
)

// setupPostgres запускает PostgreSQL контейнер и применяет миграции.
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("Пропуск интеграционного теста: TEST_INTEGRATION не установлена")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		postgres.WithDatabase("dashboard_test"),
		postgres.WithUsername("dashboard"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Не удалось запустить PostgreSQL контейнер: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Ошибка остановки контейнера: %v", err)
		}
	})

	host, _ := container.Host(ctx)
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Не удалось получить port контейнера: %v", err)
	}

	cfg := &config.Config{
		DBHost: host, DBPort: port.Int(), DBName: "dashboard_test",
		DBUser: "dashboard", DBPassword: "test-password", DBSSLMode: "disable",
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := database.Migrate(cfg, logger); err != nil {
		t.Fatalf("Ошибка миграций: %v", err)
	}
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("Ошибка подключения: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresBackendRoundTrip(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	b := NewPostgresBackend(pool, time.Hour, slog.Default())
	sid := uuid.New().String()

	st := session.New(b.For(sid), nil, nil)
	st.Restore(ctx)
	if err := st.SetToken(ctx, "jwt"); err != nil {
		t.Fatalf("SetToken() ошибка: %v", err)
	}

	reloaded := session.New(b.For(sid), nil, nil)
	reloaded.Restore(ctx)
	if reloaded.Snapshot().Token != "jwt" {
		t.Errorf("Token = %q, ожидается jwt", reloaded.Snapshot().Token)
	}

	if err := reloaded.Logout(ctx); err != nil {
		t.Fatalf("Logout() ошибка: %v", err)
	}
	entries, err := b.For(sid).Load(ctx)
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("после Logout() осталось %v", entries)
	}
}

func TestPostgresBackendExpiredEntriesHidden(t *testing.T) {
	pool := setupPostgres(t)
	ctx := context.Background()
	b := NewPostgresBackend(pool, time.Hour, slog.Default())
	sid := uuid.New().String()

	if err := b.For(sid).Apply(ctx, session.Mutation{Set: map[string]string{"token": "t"}}); err != nil {
		t.Fatalf("Apply() ошибка: %v", err)
	}

	// Часы «ушли вперёд» больше чем на TTL
	b.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	entries, err := b.For(sid).Load(ctx)
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("устаревшие записи видны: %v", entries)
	}
}
