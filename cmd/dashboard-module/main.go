// Точка входа Dashboard Module — веб-клиент TeamDesk с ролями в контексте
// платформы, организации и команды.
// Загружает конфигурацию, выбирает хранилище сессий (cookie, memory или
// PostgreSQL), создаёт клиент backend REST API, сценарии входа и обработчики,
// запускает topologymetrics и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	apihandlers "github.com/bigkaa/teamdesk/dashboard-module/internal/api/handlers"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/api/openapi"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/apiclient"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/config"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/database"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/server"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/service"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/storage"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/auth"
	uihandlers "github.com/bigkaa/teamdesk/dashboard-module/internal/ui/handlers"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/teamdesk/dashboard-module/internal/ui/middleware"
)

// purgeInterval — период очистки устаревших сессий в PostgreSQL.
const purgeInterval = 10 * time.Minute

func main() {
	// 0. Локальный .env (только для разработки; в кластере переменные задаёт Deployment)
	envLoaded := godotenv.Load() == nil

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Dashboard Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("session_backend", cfg.SessionBackend),
		slog.Bool("dotenv", envLoaded),
	)

	// Предупреждения о дефолтных значениях topologymetrics
	if os.Getenv("DM_DEPHEALTH_GROUP") == "" {
		logger.Warn("DM_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
			slog.String("default", cfg.DephealthGroup),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Хранилище сессий
	var (
		sessions  uimiddleware.StorageProvider
		checkers  []apihandlers.ReadinessChecker
		pool      *pgxpool.Pool
		pgDB      *sql.DB
		pgConnURL string
	)

	switch cfg.SessionBackend {
	case config.SessionBackendCookie:
		cookieStore, cookieErr := auth.NewCookieStore(cfg.SessionSecret, cfg.SecureCookie, cfg.SessionTTL)
		if cookieErr != nil {
			logger.Error("Ошибка создания cookie-хранилища сессий", slog.String("error", cookieErr.Error()))
			os.Exit(1)
		}
		if cfg.SessionSecret == "" {
			logger.Warn("DM_SESSION_SECRET не задан, сессии не переживают рестарт")
		}
		sessions = cookieStore

	case config.SessionBackendMemory:
		sessions = uimiddleware.NewServerStorage(
			storage.NewMemoryBackend(cfg.MemorySessionsMax, cfg.SessionTTL),
			cfg.SecureCookie,
		)

	case config.SessionBackendPostgres:
		// 3.1 Применение миграций БД
		logger.Info("Применение миграций БД...")
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// 3.2 Подключение к PostgreSQL (pgxpool)
		pool, err = database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer pool.Close()

		// Адаптер pgxpool → *sql.DB для topologymetrics (connection pool mode)
		pgDB = stdlib.OpenDBFromPool(pool)
		defer pgDB.Close()
		pgConnURL = cfg.DatabaseURL()

		pgBackend := storage.NewPostgresBackend(pool, cfg.SessionTTL, logger)
		go pgBackend.RunPurge(ctx, purgeInterval)

		sessions = uimiddleware.NewServerStorage(pgBackend, cfg.SecureCookie)
		checkers = append(checkers, database.NewReadinessChecker(pool))
	}

	// 4. Клиент backend REST API
	apiClient := apiclient.New(cfg.BackendURL, &http.Client{Timeout: cfg.BackendTimeout}, logger)
	checkers = append(checkers, apiclient.NewReadinessChecker(apiClient, cfg.BackendHealthPath))
	logger.Info("Клиент backend создан", slog.String("url", apiClient.BaseURL()))

	// 5. Проверка токенов публичных ссылок
	linkVerifier, err := auth.NewLinkVerifier(
		cfg.LinkJWKSURL,
		cfg.LinkIssuer,
		cfg.LinkJWKSRefreshInterval,
		cfg.BackendTimeout,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания проверки ссылок", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 6. Сценарии входа и выбора роли
	authFlow := service.NewAuthFlowService(apiClient, logger)

	// 7. Переводы UI и контракт JSON API
	bundle, err := i18n.Load(logger)
	if err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}
	doc, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI документа", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. topologymetrics — мониторинг зависимостей (backend + PostgreSQL)
	dephealthSvc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
		ServiceID:         "dashboard-module",
		Group:             cfg.DephealthGroup,
		BackendURL:        cfg.BackendURL,
		BackendHealthPath: cfg.BackendHealthPath,
		DB:                pgDB,
		PgConnURL:         pgConnURL,
		CheckInterval:     cfg.DephealthCheckInterval,
	}, logger)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
		dephealthSvc = nil
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		dephealthSvc = nil
	} else {
		logger.Info("topologymetrics запущен",
			slog.String("group", cfg.DephealthGroup),
			slog.String("check_interval", cfg.DephealthCheckInterval.String()),
		)
	}

	// 9. Создание и запуск HTTP-сервера
	srv, err := server.New(cfg, logger, server.Handlers{
		Health:    apihandlers.NewHealthHandler(checkers...),
		Session:   apihandlers.NewSessionHandler(authFlow, logger),
		Auth:      uihandlers.NewAuthHandler(authFlow, logger),
		Password:  uihandlers.NewPasswordHandler(authFlow, logger),
		Role:      uihandlers.NewRoleHandler(authFlow, logger),
		Dashboard: uihandlers.NewDashboardHandler(apiClient, authFlow, logger),
		Shared:    uihandlers.NewSharedTaskHandler(linkVerifier, apiClient, logger),
		Sessions:  sessions,
		Bundle:    bundle,
		OpenAPI:   doc,
	})
	if err != nil {
		logger.Error("Ошибка создания HTTP-сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 10. Graceful shutdown фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	cancel()

	logger.Info("Dashboard Module остановлен")
}
