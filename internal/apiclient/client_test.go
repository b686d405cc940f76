package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockBackend запускает mock backend и возвращает клиент к нему.
func setupMockBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/", server.Client(), testLogger())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_SignInByEmail(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/signin" {
			t.Errorf("неожиданный запрос %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ann@example.com" || body["password"] != "pw" {
			t.Errorf("тело запроса = %v", body)
		}
		if _, ok := body["username"]; ok {
			t.Error("username не должен передаваться для email")
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"user":                  map[string]any{"id": 7, "name": "Ann"},
			"roleContexts":          []map[string]any{{"id": 1, "role": map[string]any{"title": "Admin", "scope": "Platform"}}},
			"accessToken":           "jwt",
			"requiresRoleSelection": false,
		}})
	})

	res, err := client.SignIn(context.Background(), Credentials{Login: "ann@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("SignIn() ошибка: %v", err)
	}
	if res.User.ID != 7 || res.AccessToken != "jwt" || len(res.RoleContexts) != 1 {
		t.Errorf("SignIn() = %+v", res)
	}
	if !res.RoleContexts[0].IsPlatform() {
		t.Error("контекст без организации и команды должен быть платформенным")
	}
}

func TestClient_SignInByUsername(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["username"] != "ann" {
			t.Errorf("username = %q", body["username"])
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"user": map[string]any{"id": 1}}})
	})

	if _, err := client.SignIn(context.Background(), Credentials{Login: "ann", Password: "pw"}); err != nil {
		t.Fatalf("SignIn() ошибка: %v", err)
	}
}

func TestClient_SelectRoleContextSendsBearer(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer old" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]int64
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["userId"] != 7 || body["roleContextId"] != 3 {
			t.Errorf("тело запроса = %v", body)
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"accessToken":         "scoped",
			"user":                map[string]any{"id": 7},
			"selectedRoleContext": map[string]any{"id": 3, "organizationId": 9},
		}})
	})

	res, err := client.SelectRoleContext(context.Background(), "old", 7, 3)
	if err != nil {
		t.Fatalf("SelectRoleContext() ошибка: %v", err)
	}
	if res.AccessToken != "scoped" || res.SelectedRoleContext.OrganizationID == nil || *res.SelectedRoleContext.OrganizationID != 9 {
		t.Errorf("SelectRoleContext() = %+v", res)
	}
}

func TestClient_NoBearerWithoutToken(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("Authorization не должен передаваться без токена")
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.ForgotPassword(context.Background(), "ann@example.com"); err != nil {
		t.Fatalf("ForgotPassword() ошибка: %v", err)
	}
}

func TestClient_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message строкой", 400, `{"message":"Invalid credentials"}`, "Invalid credentials"},
		{"message массивом", 422, `{"message":["email must be an email","password too short"]}`, "email must be an email; password too short"},
		{"вложенный error", 409, `{"error":{"code":"CONFLICT","message":"Already exists"}}`, "Already exists"},
		{"error строкой", 500, `{"error":"boom"}`, "boom"},
		{"не JSON", 502, `Bad Gateway`, "Bad Gateway"},
		{"пустое тело", 500, ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupMockBackend(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			})

			err := client.VerifyOTP(context.Background(), "a@b.c", "123456")
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("ожидается *APIError, получено %v", err)
			}
			if apiErr.StatusCode != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("APIError = {%d %q}, ожидается {%d %q}", apiErr.StatusCode, apiErr.Message, tt.status, tt.wantMsg)
			}
		})
	}
}

func TestIsSessionExpired(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"401", &APIError{StatusCode: 401}, true},
		{"403", &APIError{StatusCode: 403}, true},
		{"jwt expired", &APIError{StatusCode: 400, Message: "jwt expired"}, true},
		{"Token is invalid", &APIError{StatusCode: 500, Message: "Token is invalid"}, true},
		{"обёрнутая", fmt.Errorf("загрузка: %w", &APIError{StatusCode: 401}), true},
		{"404", &APIError{StatusCode: 404, Message: "not found"}, false},
		{"не APIError", errors.New("token expired"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsSessionExpired(tt.err); got != tt.want {
				t.Errorf("IsSessionExpired() = %v, ожидается %v", got, tt.want)
			}
		})
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(&APIError{StatusCode: 400, Message: "Wrong password"}, "fallback"); got != "Wrong password" {
		t.Errorf("MessageOf() = %q", got)
	}
	if got := MessageOf(errors.New("dial tcp: refused"), "Не удалось войти"); got != "Не удалось войти" {
		t.Errorf("MessageOf() = %q", got)
	}
}

func TestClient_GetTask(t *testing.T) {
	client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tasks/15" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer link-token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{"id": 15, "title": "Post reel", "status": "open"}})
	})

	task, err := client.GetTask(context.Background(), "link-token", 15)
	if err != nil {
		t.Fatalf("GetTask() ошибка: %v", err)
	}
	if task.Title != "Post reel" {
		t.Errorf("Title = %q", task.Title)
	}
}

func TestReadinessChecker(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   string
	}{
		{"ok", http.StatusOK, "ok"},
		{"не найден", http.StatusNotFound, "degraded"},
		{"ошибка сервера", http.StatusServiceUnavailable, "fail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := setupMockBackend(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/healthz" {
					t.Errorf("путь = %s, ожидается /healthz", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			})
			checker := NewReadinessChecker(client, "/healthz")
			if checker.Name() != "backend-api" {
				t.Errorf("Name() = %q", checker.Name())
			}
			if got, msg := checker.CheckReady(context.Background()); got != tt.want {
				t.Errorf("CheckReady() = %q (%s), ожидается %q", got, msg, tt.want)
			}
		})
	}
}
