package i18n

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadEmbeddedCatalogs(t *testing.T) {
	b, err := Load(testLogger())
	if err != nil {
		t.Fatalf("Load() ошибка: %v", err)
	}
	if !b.HasLang("en") || !b.HasLang("ru") {
		t.Fatal("ожидаются каталоги en и ru")
	}
	if got := b.Translate("ru", "nav.logout"); got != "Выйти" {
		t.Errorf("Translate(ru) = %q", got)
	}
}

// Каталоги должны содержать одинаковый набор ключей.
func TestCatalogsHaveSameKeys(t *testing.T) {
	read := func(lang string) map[string]string {
		data, err := LocaleFS.ReadFile("locales/" + lang + ".json")
		if err != nil {
			t.Fatalf("чтение %s: %v", lang, err)
		}
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("парсинг %s: %v", lang, err)
		}
		return m
	}

	en, ru := read("en"), read("ru")
	for key := range en {
		if _, ok := ru[key]; !ok {
			t.Errorf("ключ %q отсутствует в ru.json", key)
		}
	}
	for key := range ru {
		if _, ok := en[key]; !ok {
			t.Errorf("ключ %q отсутствует в en.json", key)
		}
	}
}

func TestTranslateFallback(t *testing.T) {
	b := NewBundle(nil)
	_ = b.LoadMessages("en", []byte(`{"greeting":"Hello, %s","only_en":"EN"}`))
	_ = b.LoadMessages("ru", []byte(`{"greeting":"Привет, %s"}`))

	if got := b.Translate("ru", "only_en"); got != "EN" {
		t.Errorf("fallback на en: %q", got)
	}
	if got := b.Translate("ru", "missing"); got != "missing" {
		t.Errorf("отсутствующий ключ: %q", got)
	}
	if got := b.Translatef("ru", "greeting", "Аня"); got != "Привет, Аня" {
		t.Errorf("Translatef: %q", got)
	}
}

func TestTWithoutBundle(t *testing.T) {
	ctx := context.Background()
	if got := T(ctx, "key"); got != "key" {
		t.Errorf("T без Bundle = %q", got)
	}
	if got := Tf(ctx, "n=%d", 3); got != "n=3" {
		t.Errorf("Tf без Bundle = %q", got)
	}
}

func TestMatchLanguage(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"ru-RU,ru;q=0.9,en;q=0.8", "ru"},
		{"en-US,en;q=0.9", "en"},
		{"de-DE", "en"},
	}
	for _, tt := range tests {
		if got := MatchLanguage(tt.header); got != tt.want {
			t.Errorf("MatchLanguage(%q) = %q, ожидается %q", tt.header, got, tt.want)
		}
	}
}

func TestMiddlewareDetectsLanguage(t *testing.T) {
	b := NewBundle(nil)
	_ = b.LoadMessages("en", []byte(`{"k":"en"}`))
	_ = b.LoadMessages("ru", []byte(`{"k":"ru"}`))

	var got string
	h := Middleware(b)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "k")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept-Language", "en")
	req.AddCookie(&http.Cookie{Name: LangCookieName, Value: "ru"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "ru" {
		t.Errorf("cookie lang должен иметь приоритет, получено %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: LangCookieName, Value: "xx"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != "en" {
		t.Errorf("неподдерживаемый cookie → en, получено %q", got)
	}
}
