package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/i18n"
)

func tr(ctx context.Context, key string) string {
	return i18n.T(ctx, key)
}

// Platform — дашборд администратора платформы.
func Platform(header Header) templ.Component {
	return Layout("platform.title", &header, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="card"><h1>`)
		h.t("platform.title")
		h.raw(`</h1><p>`)
		h.tf("platform.welcome", header.User.DisplayName())
		h.raw(`</p><p>`)
		h.tf("platform.contexts", len(header.Contexts))
		h.raw(`</p></section>`)
		return h.err
	}))
}

// Organization — дашборд организации.
func Organization(header Header, org *model.Organization) templ.Component {
	return Layout("org.title", &header, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="card"><h1>`)
		h.text(org.Name)
		h.raw(`</h1>`)
		if org.Description != "" {
			h.raw(`<p class="muted">`)
			h.text(org.Description)
			h.raw(`</p>`)
		}
		h.raw(`<ul class="stats"><li>`)
		h.tf("org.members", org.MemberCount)
		h.raw(`</li><li>`)
		h.tf("org.teams", org.TeamCount)
		h.raw(`</li></ul></section>`)
		return h.err
	}))
}

// Team — рабочее пространство команды.
func Team(header Header, team *model.Team) templ.Component {
	return Layout("team.title", &header, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="card"><h1>`)
		h.text(team.Name)
		h.raw(`</h1><ul class="stats"><li>`)
		h.tf("team.members", team.MemberCount)
		h.raw(`</li></ul></section>`)
		return h.err
	}))
}

// SharedTask — задача, открытая по публичной ссылке. Без шапки пользователя.
func SharedTask(task *model.Task) templ.Component {
	return Layout("task.title", nil, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="card"><h1>`)
		h.text(task.Title)
		h.raw(`</h1>`)
		if task.Description != "" {
			h.raw(`<p>`)
			h.text(task.Description)
			h.raw(`</p>`)
		}
		h.raw(`<dl><dt>`)
		h.t("task.status")
		h.raw(`</dt><dd>`)
		h.text(task.Status)
		h.raw(`</dd>`)
		if task.DueDate != "" {
			h.raw(`<dt>`)
			h.t("task.due")
			h.raw(`</dt><dd>`)
			h.text(task.DueDate)
			h.raw(`</dd>`)
		}
		h.raw(`</dl></section>`)
		return h.err
	}))
}

// Error — страница ошибки. messageKey — ключ i18n.
func Error(header *Header, messageKey string) templ.Component {
	return Layout("error.title", header, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="card"><h1>`)
		h.t("error.title")
		h.raw(`</h1>`)
		h.alert("error", tr(ctx, messageKey))
		h.raw(`<p><a href="/">`)
		h.t("app.title")
		h.raw(`</a></p></section>`)
		return h.err
	}))
}
