// guard.go — проверка доступа к страницам дашборда.
package middleware

import (
	"log/slog"
	"net/http"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/guard"
)

// RequireAccess пропускает запрос, только если guard разрешил доступ.
// Иначе — redirect на маршрут, выбранный guard (вход или выбор роли).
// Должен стоять после SessionLoader.
func RequireAccess(opts guard.Options, logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "ui_guard"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rs := SessionFromContext(r.Context())
			if rs == nil {
				http.Redirect(w, r, rbac.RouteLogin, http.StatusFound)
				return
			}

			g := guard.New(rs.Store, opts, rs.Nav)
			res := g.Result()
			g.Close()

			if !res.IsAuthorized {
				target := rs.Nav.Route()
				if target == "" {
					target = res.RedirectTo
				}
				logger.Debug("Доступ к странице закрыт",
					slog.String("path", r.URL.Path),
					slog.String("status", res.Status.String()),
					slog.String("redirect", target),
				)
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
