// Пакет server — HTTP-сервер Dashboard Module с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на Ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"

	apihandlers "github.com/bigkaa/teamdesk/dashboard-module/internal/api/handlers"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/api/middleware"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/config"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/guard"
	uihandlers "github.com/bigkaa/teamdesk/dashboard-module/internal/ui/handlers"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/i18n"
	uimiddleware "github.com/bigkaa/teamdesk/dashboard-module/internal/ui/middleware"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/static"
)

// Handlers — обработчики и зависимости маршрутов.
type Handlers struct {
	Health    *apihandlers.HealthHandler
	Session   *apihandlers.SessionHandler
	Auth      *uihandlers.AuthHandler
	Password  *uihandlers.PasswordHandler
	Role      *uihandlers.RoleHandler
	Dashboard *uihandlers.DashboardHandler
	Shared    *uihandlers.SharedTaskHandler

	// Sessions — хранилище сессий (cookie, memory или postgres).
	Sessions uimiddleware.StorageProvider
	// Bundle — каталоги переводов UI.
	Bundle *i18n.Bundle
	// OpenAPI — контракт JSON API для валидации запросов.
	OpenAPI *openapi3.T
}

// Server — HTTP-сервер Dashboard Module.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, h Handlers) (*Server, error) {
	router, err := NewRouter(logger, h)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}, nil
}

// NewRouter собирает маршруты:
//   - /health/*, /metrics — без сессии (Kubernetes, Prometheus)
//   - /static/* — встроенные CSS
//   - /api/v1/* — JSON API сессии, запросы проверяются по OpenAPI
//   - остальное — HTML страницы, доступ определяет guard
func NewRouter(logger *slog.Logger, h Handlers) (http.Handler, error) {
	validator, err := middleware.RequestValidator(h.OpenAPI, logger)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Get("/metrics", h.Health.GetMetrics)
	router.Handle("/static/*", http.StripPrefix("/static", http.FileServer(static.FileSystem())))

	sessions := uimiddleware.SessionLoader(h.Sessions, logger)

	// JSON API
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(validator)
		r.Use(sessions)
		r.Get("/session", h.Session.GetSession)
		r.Post("/session/role-context", h.Session.SelectRoleContext)
	})

	// HTML страницы
	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware(h.Bundle))
		r.Post("/set-language", uihandlers.HandleSetLanguage)

		r.Group(func(r chi.Router) {
			r.Use(sessions)

			// Вход и восстановление пароля
			r.Get("/login", h.Auth.HandleLoginPage)
			r.Post("/login", h.Auth.HandleLogin)
			r.Post("/login/phone/otp", h.Auth.HandlePhoneOTP)
			r.Post("/login/phone", h.Auth.HandlePhoneLogin)
			r.Post("/logout", h.Auth.HandleLogout)
			r.Get("/forgot-password", h.Password.HandlePage)
			r.Post("/forgot-password", h.Password.HandleRequest)
			r.Post("/forgot-password/verify", h.Password.HandleVerify)
			r.Post("/forgot-password/reset", h.Password.HandleReset)

			// Выбор роли доступен до выбора контекста
			r.Get("/select-role", h.Role.HandleSelectRolePage)
			r.Post("/select-role", h.Role.HandleSelectRole)
			r.With(uimiddleware.RequireAccess(guard.Options{}, logger)).
				Post("/switch-role", h.Role.HandleSelectRole)

			r.Get("/", h.Dashboard.HandleHome)
			// Платформенная роль среди нескольких контекстов не открывает
			// /platform, пока контекст не выбран явно.
			r.With(uimiddleware.RequireAccess(guard.Options{RequirePlatformRole: true, RequireRoleContext: true}, logger)).
				Get("/platform", h.Dashboard.HandlePlatform)
			r.With(uimiddleware.RequireAccess(guard.Options{RequireRoleContext: true}, logger)).
				Get("/organizations/{orgId}", h.Dashboard.HandleOrganization)
			r.With(uimiddleware.RequireAccess(guard.Options{RequireRoleContext: true}, logger)).
				Get("/team", h.Dashboard.HandleTeam)

			// Публичная ссылка на задачу: доступ по токену ссылки, не по сессии
			r.With(uimiddleware.RequireAccess(guard.Options{Skip: true}, logger)).
				Get("/shared/tasks/{taskId}", h.Shared.HandleSharedTask)
		})
	})

	return router, nil
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
