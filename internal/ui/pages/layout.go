package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/i18n"
)

// Header — шапка страниц роли: пользователь, активный контекст и
// список контекстов для смены роли.
type Header struct {
	User     *model.User
	Active   *model.RoleContext
	Contexts []model.RoleContext
}

// Layout — общий каркас страницы. header может быть nil (страницы входа).
func Layout(titleKey string, header *Header, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<!DOCTYPE html><html`)
		h.attr("lang", i18n.LangFromContext(ctx))
		h.raw(`><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		h.t(titleKey)
		h.raw(` · `)
		h.t("app.title")
		h.raw(`</title><link rel="stylesheet" href="/static/css/app.css"></head><body>`)

		h.raw(`<header class="topbar"><a class="brand" href="/">`)
		h.t("app.title")
		h.raw(`</a>`)
		if header != nil && header.User != nil {
			writeUserMenu(h, header)
		}
		writeLanguageSwitch(h)
		h.raw(`</header><main>`)
		h.component(body)
		h.raw(`</main></body></html>`)
		return h.err
	})
}

func writeUserMenu(h *htmlWriter, header *Header) {
	h.raw(`<div class="user-menu"><span class="user-name">`)
	h.text(header.User.DisplayName())
	h.raw(`</span>`)
	if header.Active != nil {
		h.raw(`<span class="role">`)
		h.text(header.Active.Label())
		h.raw(`</span>`)
	}

	// Смена роли — только если есть из чего выбирать
	if len(header.Contexts) > 1 {
		h.formStart("/switch-role")
		h.raw(`<select name="roleContextId" aria-label="`)
		h.t("nav.switch_role")
		h.raw(`">`)
		for i := range header.Contexts {
			rc := &header.Contexts[i]
			h.raw(`<option`)
			h.attr("value", itoa(rc.ID))
			if header.Active != nil && header.Active.ID == rc.ID {
				h.raw(` selected`)
			}
			h.raw(`>`)
			h.text(rc.Label())
			h.raw(`</option>`)
		}
		h.raw(`</select>`)
		h.submit("nav.switch_role")
		h.formEnd()
	}

	h.formStart("/logout")
	h.submit("nav.logout")
	h.formEnd()
	h.raw(`</div>`)
}

func writeLanguageSwitch(h *htmlWriter) {
	current := i18n.LangFromContext(h.ctx)
	h.formStart("/set-language")
	h.raw(`<select name="lang" aria-label="`)
	h.t("nav.language")
	h.raw(`" onchange="this.form.submit()">`)
	for _, lang := range []string{"en", "ru"} {
		h.raw(`<option`)
		h.attr("value", lang)
		if lang == current {
			h.raw(` selected`)
		}
		h.raw(`>` + lang + `</option>`)
	}
	h.raw(`</select>`)
	h.formEnd()
}
