// Пакет handlers — HTTP-обработчики Dashboard UI.
// render.go — общие помощники: рендеринг страниц и redirect после действий.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
	uimiddleware "github.com/bigkaa/teamdesk/dashboard-module/internal/ui/middleware"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/pages"
)

// renderPage отдаёт HTML-страницу со статусом status.
func renderPage(w http.ResponseWriter, r *http.Request, logger *slog.Logger, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logger.Error("Ошибка рендеринга страницы",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// renderInternalError — страница 500 без подробностей.
func renderInternalError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	logger.Error("Ошибка обработки запроса",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	renderPage(w, r, logger, http.StatusInternalServerError, pages.Error(nil, "error.internal"))
}

// redirectAfterAction завершает POST-действие: переход на маршрут,
// запрошенный сценарием через Navigator, либо на fallback.
func redirectAfterAction(w http.ResponseWriter, r *http.Request, rs *uimiddleware.RequestSession, fallback string) {
	target := rs.Nav.Route()
	if target == "" {
		target = fallback
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// requestSession возвращает сессию запроса; без неё — redirect на вход.
func requestSession(w http.ResponseWriter, r *http.Request) (*uimiddleware.RequestSession, bool) {
	rs := uimiddleware.SessionFromContext(r.Context())
	if rs == nil {
		http.Redirect(w, r, rbac.RouteLogin, http.StatusFound)
		return nil, false
	}
	return rs, true
}

func headerFor(st session.State) pages.Header {
	return pages.Header{
		User:     st.User,
		Active:   st.ActiveContext(),
		Contexts: st.RoleContexts,
	}
}
