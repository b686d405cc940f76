package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/guard"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v int64) *int64 { return &v }

// seedSession записывает сессию в бэкенд и возвращает её идентификатор.
func seedSession(t *testing.T, b storage.Backend, patch session.LoginPatch) string {
	t.Helper()
	ctx := context.Background()
	sid := uuid.NewString()

	st := session.New(b.For(sid), nil, testLogger())
	st.Restore(ctx)
	if err := st.Login(ctx, patch); err != nil {
		t.Fatalf("Login() ошибка: %v", err)
	}
	return sid
}

func requestWithSID(method, path, sid string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: SessionIDCookieName, Value: sid})
	}
	return req
}

func TestServerStorageIssuesSessionID(t *testing.T) {
	provider := NewServerStorage(storage.NewMemoryBackend(10, time.Hour), true)

	w := httptest.NewRecorder()
	st := provider.StorageFor(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if st == nil {
		t.Fatal("StorageFor() вернул nil")
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionIDCookieName {
		t.Fatalf("ожидается cookie %s, получено %v", SessionIDCookieName, cookies)
	}
	if _, err := uuid.Parse(cookies[0].Value); err != nil {
		t.Errorf("значение cookie не UUID: %q", cookies[0].Value)
	}
	if !cookies[0].Secure || !cookies[0].HttpOnly {
		t.Error("cookie должен быть Secure и HttpOnly")
	}
}

func TestServerStorageReplacesInvalidSessionID(t *testing.T) {
	provider := NewServerStorage(storage.NewMemoryBackend(10, time.Hour), false)

	w := httptest.NewRecorder()
	provider.StorageFor(w, requestWithSID(http.MethodGet, "/", "not-a-uuid"))

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value == "not-a-uuid" {
		t.Fatalf("ожидается новый идентификатор, получено %v", cookies)
	}
}

func TestSessionLoaderRestoresSession(t *testing.T) {
	backend := storage.NewMemoryBackend(10, time.Hour)
	sid := seedSession(t, backend, session.LoginPatch{
		User:  &model.User{ID: 7, Name: "Ann"},
		Token: session.Some("tok"),
	})

	var got session.State
	handler := SessionLoader(NewServerStorage(backend, false), testLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs := SessionFromContext(r.Context())
			if rs == nil {
				t.Fatal("сессия не найдена в контексте")
			}
			got = rs.Store.Snapshot()
		}),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestWithSID(http.MethodGet, "/", sid))

	if got.IsLoading {
		t.Error("IsLoading = true после SessionLoader")
	}
	if got.User == nil || got.User.ID != 7 || got.Token != "tok" {
		t.Errorf("восстановлено %+v", got)
	}
	// Существующий sid не перевыпускается
	if len(w.Result().Cookies()) != 0 {
		t.Errorf("лишний Set-Cookie: %v", w.Result().Cookies())
	}
}

func TestRequireAccess(t *testing.T) {
	backend := storage.NewMemoryBackend(10, time.Hour)
	orgCtx := model.RoleContext{ID: 1, OrganizationID: ptr(5), Role: model.Role{Title: "Owner"}}
	teamCtx := model.RoleContext{ID: 2, TeamID: ptr(9), Role: model.Role{Title: "Editor"}}

	single := seedSession(t, backend, session.LoginPatch{
		User:         &model.User{ID: 1},
		Token:        session.Some("tok"),
		RoleContexts: session.Some([]model.RoleContext{orgCtx}),
	})
	pending := seedSession(t, backend, session.LoginPatch{
		User:                  &model.User{ID: 2},
		Token:                 session.Some("tok"),
		RoleContexts:          session.Some([]model.RoleContext{orgCtx, teamCtx}),
		RequiresRoleSelection: session.Some(true),
	})

	tests := []struct {
		name     string
		sid      string
		opts     guard.Options
		wantCode int
		wantLoc  string
	}{
		{"без сессии", "", guard.Options{}, http.StatusFound, rbac.RouteLogin},
		{"вошёл", single, guard.Options{RequireRoleContext: true}, http.StatusOK, ""},
		{"ждёт выбора роли", pending, guard.Options{RequireRoleContext: true}, http.StatusFound, rbac.RouteSelectRole},
		{"нет платформенной роли", single, guard.Options{RequirePlatformRole: true}, http.StatusFound, rbac.RouteLogin},
		{"публичная ссылка", "", guard.Options{Skip: true}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := SessionLoader(NewServerStorage(backend, false), testLogger())(
				RequireAccess(tt.opts, testLogger())(
					http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
						w.WriteHeader(http.StatusOK)
					}),
				),
			)

			w := httptest.NewRecorder()
			chain.ServeHTTP(w, requestWithSID(http.MethodGet, "/page", tt.sid))

			if w.Code != tt.wantCode {
				t.Fatalf("статус = %d, ожидается %d", w.Code, tt.wantCode)
			}
			if tt.wantLoc != "" && w.Header().Get("Location") != tt.wantLoc {
				t.Errorf("Location = %q, ожидается %q", w.Header().Get("Location"), tt.wantLoc)
			}
		})
	}
}

func TestRedirector(t *testing.T) {
	var nav Redirector
	if nav.Route() != "" {
		t.Fatal("новый Redirector не должен иметь маршрута")
	}
	nav.Navigate("/a")
	nav.Navigate("/b")
	if nav.Route() != "/b" {
		t.Errorf("Route() = %q, ожидается /b", nav.Route())
	}
}
