// Пакет middleware — HTTP middleware Dashboard UI.
// session.go — восстановление сессии на каждый запрос.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/service"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/storage"
)

// SessionIDCookieName — cookie с непрозрачным идентификатором браузерной сессии
// для серверных бэкендов хранилища.
const SessionIDCookieName = "teamdesk_sid"

// contextKey — тип ключей контекста UI.
type contextKey string

const contextKeySession contextKey = "ui_session"

// StorageProvider выдаёт долговременное хранилище сессии текущего запроса.
// Реализуется *auth.CookieStore и ServerStorage.
type StorageProvider interface {
	StorageFor(w http.ResponseWriter, r *http.Request) session.Storage
}

// ServerStorage — хранилище сессии на сервере (PostgreSQL, in-memory LRU).
// Браузер хранит только идентификатор сессии в cookie.
type ServerStorage struct {
	backend storage.Backend
	secure  bool
}

// NewServerStorage создаёт провайдер серверного хранилища.
func NewServerStorage(backend storage.Backend, secure bool) *ServerStorage {
	return &ServerStorage{backend: backend, secure: secure}
}

// StorageFor возвращает пространство сессии по cookie teamdesk_sid.
// Если cookie нет или значение не UUID — выдаётся новый идентификатор.
func (s *ServerStorage) StorageFor(w http.ResponseWriter, r *http.Request) session.Storage {
	if c, err := r.Cookie(SessionIDCookieName); err == nil {
		if id, parseErr := uuid.Parse(c.Value); parseErr == nil {
			return s.backend.For(id.String())
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionIDCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return s.backend.For(id)
}

// Redirector — session.Navigator для HTTP: запоминает последний маршрут,
// на который сценарий попросил перейти. Ответ формирует обработчик.
type Redirector struct {
	mu    sync.Mutex
	route string
}

// Navigate запоминает маршрут.
func (n *Redirector) Navigate(route string) {
	n.mu.Lock()
	n.route = route
	n.mu.Unlock()
}

// Route возвращает запрошенный маршрут ("" — перехода не было).
func (n *Redirector) Route() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.route
}

// RequestSession — сессия текущего запроса.
type RequestSession struct {
	Store *session.Store
	Nav   *Redirector
}

// Flow возвращает сессию в виде, принимаемом сценариями service.AuthFlowService.
func (rs *RequestSession) Flow() service.Session {
	return service.Session{Store: rs.Store, Nav: rs.Nav}
}

// SessionLoader создаёт Store запроса поверх хранилища провайдера
// и восстанавливает его до передачи запроса обработчику.
func SessionLoader(provider StorageProvider, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "ui_session"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			nav := &Redirector{}
			store := session.New(provider.StorageFor(w, r), nav, logger)
			store.Restore(r.Context())

			rs := &RequestSession{Store: store, Nav: nav}
			ctx := context.WithValue(r.Context(), contextKeySession, rs)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext извлекает сессию запроса.
// nil — запрос не прошёл через SessionLoader.
func SessionFromContext(ctx context.Context) *RequestSession {
	rs, ok := ctx.Value(contextKeySession).(*RequestSession)
	if !ok {
		return nil
	}
	return rs
}

// WithSession помещает сессию в контекст. Используется в тестах обработчиков.
func WithSession(ctx context.Context, rs *RequestSession) context.Context {
	return context.WithValue(ctx, contextKeySession, rs)
}
