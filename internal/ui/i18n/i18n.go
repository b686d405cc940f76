// Пакет i18n — интернационализация Dashboard UI.
// Переводы берутся из Bundle, который middleware кладёт в контекст запроса
// вместе с языком. Страницы вызывают T(ctx, key) и Tf(ctx, key, args...).
// Поддерживаемые языки: English (en), Русский (ru).
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/text/language"
)

// DefaultLang — язык по умолчанию и язык fallback.
const DefaultLang = "en"

var (
	// SupportedLanguages — теги поддерживаемых языков, первый — по умолчанию.
	SupportedLanguages = []language.Tag{
		language.English,
		language.Russian,
	}

	matcher = language.NewMatcher(SupportedLanguages)
)

type contextKey string

const (
	contextKeyLang   contextKey = "i18n_lang"
	contextKeyBundle contextKey = "i18n_bundle"
)

// Bundle — каталоги переводов всех языков. Загружается при старте.
type Bundle struct {
	mu       sync.RWMutex
	catalogs map[string]map[string]string // lang → key → translation
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle.
func NewBundle(logger *slog.Logger) *Bundle {
	return &Bundle{
		catalogs: make(map[string]map[string]string),
		logger:   logger,
	}
}

// LoadMessages загружает плоский JSON-каталог {"key": "translation"} языка lang.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return fmt.Errorf("i18n: ошибка парсинга каталога %s: %w", lang, err)
	}

	b.mu.Lock()
	b.catalogs[lang] = messages
	b.mu.Unlock()

	if b.logger != nil {
		b.logger.Debug("i18n каталог загружен",
			slog.String("lang", lang),
			slog.Int("keys", len(messages)),
		)
	}
	return nil
}

// HasLang — есть ли каталог языка.
func (b *Bundle) HasLang(lang string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.catalogs[lang]
	return ok
}

// Translate возвращает перевод ключа. Если ключа нет в языке lang —
// берётся английский; если нет и там — ключ как есть.
func (b *Bundle) Translate(lang, key string) string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if msg, ok := b.catalogs[lang][key]; ok {
		return msg
	}
	if msg, ok := b.catalogs[DefaultLang][key]; ok {
		return msg
	}
	return key
}

// Translatef — Translate с подстановкой аргументов.
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	template := b.Translate(lang, key)
	if len(args) == 0 {
		return template
	}
	return formatFunc(template, args...)
}

// WithLang помещает язык в контекст.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, contextKeyLang, lang)
}

// WithBundle помещает каталоги переводов в контекст.
func WithBundle(ctx context.Context, b *Bundle) context.Context {
	return context.WithValue(ctx, contextKeyBundle, b)
}

// LangFromContext извлекает язык из контекста. По умолчанию "en".
func LangFromContext(ctx context.Context) string {
	if lang, ok := ctx.Value(contextKeyLang).(string); ok && lang != "" {
		return lang
	}
	return DefaultLang
}

func bundleFromContext(ctx context.Context) *Bundle {
	b, _ := ctx.Value(contextKeyBundle).(*Bundle)
	return b
}

// T возвращает перевод ключа на языке запроса.
// Без Bundle в контексте возвращает ключ.
func T(ctx context.Context, key string) string {
	b := bundleFromContext(ctx)
	if b == nil {
		return key
	}
	return b.Translate(LangFromContext(ctx), key)
}

// Tf — T с подстановкой аргументов.
func Tf(ctx context.Context, key string, args ...any) string {
	b := bundleFromContext(ctx)
	if b == nil {
		if len(args) == 0 {
			return key
		}
		return formatFunc(key, args...)
	}
	return b.Translatef(LangFromContext(ctx), key, args...)
}

// formatFunc — fmt.Sprintf через переменную: формат-строки приходят
// из JSON-каталогов, printf-анализатор go vet их не проверит.
//
//nolint:govet
var formatFunc = fmt.Sprintf

// MatchLanguage выбирает язык по заголовку Accept-Language: "en" или "ru".
func MatchLanguage(acceptLanguage string) string {
	_, idx := language.MatchStrings(matcher, acceptLanguage)
	base, _ := SupportedLanguages[idx].Base()
	return base.String()
}

// IsSupported — поддерживается ли язык.
func IsSupported(lang string) bool {
	for _, tag := range SupportedLanguages {
		if base, _ := tag.Base(); base.String() == lang {
			return true
		}
	}
	return false
}
