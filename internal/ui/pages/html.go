// Пакет pages — HTML-страницы Dashboard UI (templ-компоненты).
// Все тексты берутся из i18n по языку запроса, все данные экранируются.
package pages

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/i18n"
)

// htmlWriter — запись HTML с запоминанием первой ошибки.
type htmlWriter struct {
	ctx context.Context
	w   io.Writer
	err error
}

func newWriter(ctx context.Context, w io.Writer) *htmlWriter {
	return &htmlWriter{ctx: ctx, w: w}
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

// text пишет экранированный текст.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// t пишет экранированный перевод ключа.
func (h *htmlWriter) t(key string) {
	h.text(i18n.T(h.ctx, key))
}

func (h *htmlWriter) tf(key string, args ...any) {
	h.text(i18n.Tf(h.ctx, key, args...))
}

func (h *htmlWriter) attr(name, value string) {
	h.raw(" " + name + `="`)
	h.text(value)
	h.raw(`"`)
}

// href пишет ссылку, пропущенную через санитайзер templ.
func (h *htmlWriter) href(url string) {
	h.attr("href", string(templ.URL(url)))
}

func (h *htmlWriter) component(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

// --- Формы ---

func (h *htmlWriter) formStart(action string) {
	h.raw(`<form method="post"`)
	h.attr("action", string(templ.URL(action)))
	h.raw(`>`)
}

func (h *htmlWriter) input(name, typ, labelKey, value string, required bool) {
	h.raw(`<label class="field"><span>`)
	h.t(labelKey)
	h.raw(`</span><input`)
	h.attr("name", name)
	h.attr("type", typ)
	if value != "" {
		h.attr("value", value)
	}
	if required {
		h.raw(` required`)
	}
	h.raw(`></label>`)
}

func (h *htmlWriter) hidden(name, value string) {
	h.raw(`<input type="hidden"`)
	h.attr("name", name)
	h.attr("value", value)
	h.raw(`>`)
}

func (h *htmlWriter) submit(labelKey string) {
	h.raw(`<button type="submit">`)
	h.t(labelKey)
	h.raw(`</button>`)
}

func (h *htmlWriter) formEnd() {
	h.raw(`</form>`)
}

// alert выводит сообщение (уже на языке пользователя).
func (h *htmlWriter) alert(kind, message string) {
	if message == "" {
		return
	}
	h.raw(`<div class="alert alert-` + kind + `" role="alert">`)
	h.text(message)
	h.raw(`</div>`)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
