// language.go — переключение языка UI.
package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/i18n"
)

// langCookieMaxAge — cookie языка живёт год.
const langCookieMaxAge = 365 * 24 * time.Hour

// HandleSetLanguage — POST /set-language.
// Сохраняет язык в cookie и возвращает на страницу, с которой пришёл запрос.
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if !i18n.IsSupported(lang) {
		lang = i18n.DefaultLang
	}

	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   int(langCookieMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, backTarget(r), http.StatusSeeOther)
}

// backTarget — путь из Referer того же хоста, иначе "/".
// Внешние адреса не принимаются: redirect только внутри приложения.
func backTarget(r *http.Request) string {
	ref, err := url.Parse(r.Header.Get("Referer"))
	if err != nil || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") ||
		(ref.Host != "" && ref.Host != r.Host) {
		return "/"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}
