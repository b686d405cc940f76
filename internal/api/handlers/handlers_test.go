package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/service"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/storage"
	uimiddleware "github.com/bigkaa/teamdesk/dashboard-module/internal/ui/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v int64) *int64 { return &v }

// --- Health ---

type stubChecker struct {
	name   string
	status string
}

func (c stubChecker) Name() string { return c.name }

func (c stubChecker) CheckReady(_ context.Context) (string, string) {
	return c.status, "stub"
}

func TestHealthLive(t *testing.T) {
	h := NewHealthHandler()
	w := httptest.NewRecorder()
	h.HealthLive(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if body["status"] != "ok" || body["service"] != "dashboard-module" {
		t.Errorf("ответ = %v", body)
	}
}

func TestHealthReady(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []ReadinessChecker
		wantCode   int
		wantStatus string
	}{
		{"без проверок", nil, http.StatusOK, "ok"},
		{"все ok", []ReadinessChecker{stubChecker{"a", "ok"}, stubChecker{"b", "ok"}}, http.StatusOK, "ok"},
		{"degraded", []ReadinessChecker{stubChecker{"a", "ok"}, stubChecker{"b", "degraded"}}, http.StatusOK, "degraded"},
		{"fail", []ReadinessChecker{stubChecker{"a", "degraded"}, stubChecker{"b", "fail"}}, http.StatusServiceUnavailable, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checkers...)
			w := httptest.NewRecorder()
			h.HealthReady(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

			if w.Code != tt.wantCode {
				t.Fatalf("статус = %d, ожидается %d", w.Code, tt.wantCode)
			}
			var body healthReadyResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("декодирование: %v", err)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, ожидается %q", body.Status, tt.wantStatus)
			}
			if len(body.Checks) != len(tt.checkers) {
				t.Errorf("checks = %v", body.Checks)
			}
		})
	}
}

// --- Session API ---

type fakeSelector struct {
	route string
	err   error
	gotID int64
}

func (f *fakeSelector) SelectRoleContext(_ context.Context, _ service.Session, id int64) (string, error) {
	f.gotID = id
	return f.route, f.err
}

// newRequestSession создаёт восстановленную сессию поверх memory-хранилища.
func newRequestSession(t *testing.T, patch *session.LoginPatch) *uimiddleware.RequestSession {
	t.Helper()
	ctx := context.Background()
	nav := &uimiddleware.Redirector{}
	st := session.New(storage.NewMemoryBackend(10, time.Hour).For("sid"), nav, testLogger())
	st.Restore(ctx)
	if patch != nil {
		if err := st.Login(ctx, *patch); err != nil {
			t.Fatalf("Login() ошибка: %v", err)
		}
	}
	return &uimiddleware.RequestSession{Store: st, Nav: nav}
}

func withSession(r *http.Request, rs *uimiddleware.RequestSession) *http.Request {
	return r.WithContext(uimiddleware.WithSession(r.Context(), rs))
}

func TestGetSession(t *testing.T) {
	org := model.RoleContext{ID: 1, OrganizationID: ptr(5)}
	team := model.RoleContext{ID: 2, TeamID: ptr(9)}
	rs := newRequestSession(t, &session.LoginPatch{
		User:                  &model.User{ID: 7, Name: "Ann"},
		Token:                 session.Some("secret-token"),
		RoleContexts:          session.Some([]model.RoleContext{org, team}),
		RequiresRoleSelection: session.Some(true),
	})

	h := NewSessionHandler(&fakeSelector{}, testLogger())
	w := httptest.NewRecorder()
	h.GetSession(w, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/session", nil), rs))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", w.Code)
	}
	if strings.Contains(w.Body.String(), "secret-token") {
		t.Fatal("токен не должен попадать в ответ")
	}
	var body sessionResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("декодирование: %v", err)
	}
	if !body.Authenticated || !body.RequiresRoleSelection {
		t.Errorf("флаги = %+v", body)
	}
	if body.Route != rbac.RouteSelectRole || len(body.RoleContexts) != 2 {
		t.Errorf("route = %q, contexts = %d", body.Route, len(body.RoleContexts))
	}
}

func TestGetSessionAnonymous(t *testing.T) {
	h := NewSessionHandler(&fakeSelector{}, testLogger())
	w := httptest.NewRecorder()
	h.GetSession(w, withSession(httptest.NewRequest(http.MethodGet, "/api/v1/session", nil), newRequestSession(t, nil)))

	if w.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"roleContexts":[]`) {
		t.Errorf("пустой список контекстов должен быть массивом: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"route":"/login"`) {
		t.Errorf("ожидается маршрут входа: %s", w.Body.String())
	}
}

func TestGetSessionWithoutLoader(t *testing.T) {
	h := NewSessionHandler(&fakeSelector{}, testLogger())
	w := httptest.NewRecorder()
	h.GetSession(w, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("статус = %d, ожидается 401", w.Code)
	}
}

func TestSelectRoleContextAPI(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"успех", nil, http.StatusOK},
		{"неизвестный контекст", &service.UserError{Message: "Выбранная роль недоступна.", Err: service.ErrUnknownRoleContext}, http.StatusBadRequest},
		{"сессия истекла", service.ErrSessionExpired, http.StatusUnauthorized},
		{"сессия завершилась", service.ErrSessionEnded, http.StatusUnauthorized},
		{"нет пользователя", service.ErrNoUser, http.StatusUnauthorized},
		{"ошибка backend", &service.UserError{Message: "Недоступно", Err: errors.New("502")}, http.StatusBadGateway},
		{"хранилище переполнено", &service.UserError{Message: "Слишком много ролей", Err: fmt.Errorf("cookie: %w", session.ErrStorageFull)}, http.StatusInternalServerError},
		{"внутренняя", errors.New("storage"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := &fakeSelector{route: "/organizations/5", err: tt.err}
			h := NewSessionHandler(sel, testLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/session/role-context",
				strings.NewReader(`{"roleContextId":3}`))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.SelectRoleContext(w, withSession(req, newRequestSession(t, nil)))

			if w.Code != tt.wantCode {
				t.Fatalf("статус = %d, ожидается %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
			if sel.gotID != 3 {
				t.Errorf("roleContextId = %d, ожидается 3", sel.gotID)
			}
			if tt.err == nil && !strings.Contains(w.Body.String(), `"route":"/organizations/5"`) {
				t.Errorf("тело = %s", w.Body.String())
			}
		})
	}
}
