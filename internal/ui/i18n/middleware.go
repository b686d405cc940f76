// middleware.go — определение языка пользователя.
// Приоритет: cookie "lang" → заголовок Accept-Language → "en".
package i18n

import (
	"net/http"
)

// LangCookieName — cookie с выбранным языком.
const LangCookieName = "lang"

// Middleware помещает в контекст запроса каталоги переводов и язык пользователя.
func Middleware(bundle *Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithBundle(r.Context(), bundle)
			ctx = WithLang(ctx, detectLanguage(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func detectLanguage(r *http.Request) string {
	if cookie, err := r.Cookie(LangCookieName); err == nil && IsSupported(cookie.Value) {
		return cookie.Value
	}
	if accept := r.Header.Get("Accept-Language"); accept != "" {
		return MatchLanguage(accept)
	}
	return DefaultLang
}
