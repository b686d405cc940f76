package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
)

// SelectRoleData — данные страницы выбора роли.
type SelectRoleData struct {
	User     *model.User
	Contexts []model.RoleContext
	// Selected — ранее выбранный контекст (подсвечивается)
	Selected *model.RoleContext
	Error    string
}

// SelectRole — список контекстов роли пользователя.
func SelectRole(data SelectRoleData) templ.Component {
	header := &Header{User: data.User}
	return Layout("select_role.title", header, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="card"><h1>`)
		h.t("select_role.title")
		h.raw(`</h1>`)
		h.alert("error", data.Error)

		if len(data.Contexts) == 0 {
			h.alert("info", tr(ctx, "select_role.empty"))
			h.raw(`</section>`)
			return h.err
		}

		h.raw(`<p>`)
		h.t("select_role.subtitle")
		h.raw(`</p>`)
		h.formStart("/select-role")
		h.raw(`<ul class="role-list">`)
		for i := range data.Contexts {
			rc := &data.Contexts[i]
			checked := (data.Selected != nil && data.Selected.ID == rc.ID) ||
				(data.Selected == nil && i == 0)
			h.raw(`<li><label><input type="radio" name="roleContextId"`)
			h.attr("value", itoa(rc.ID))
			if checked {
				h.raw(` checked`)
			}
			h.raw(`><span>`)
			h.text(rc.Label())
			h.raw(`</span></label></li>`)
		}
		h.raw(`</ul>`)
		h.submit("select_role.submit")
		h.formEnd()
		h.raw(`</section>`)
		return h.err
	}))
}
