// dashboard.go — дашборды платформы, организации и команды.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/service"
	uimiddleware "github.com/bigkaa/teamdesk/dashboard-module/internal/ui/middleware"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/pages"
)

// ResourceAPI — данные дашбордов из backend. Реализуется *apiclient.Client.
type ResourceAPI interface {
	GetOrganization(ctx context.Context, token string, id int64) (*model.Organization, error)
	GetTeam(ctx context.Context, token string, id int64) (*model.Team, error)
}

// DashboardHandler — страницы ролей. Доступ проверяет guard в роутере.
type DashboardHandler struct {
	api    ResourceAPI
	flow   *service.AuthFlowService
	logger *slog.Logger
}

// NewDashboardHandler создаёт DashboardHandler.
func NewDashboardHandler(api ResourceAPI, flow *service.AuthFlowService, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		api:    api,
		flow:   flow,
		logger: logger.With(slog.String("component", "ui.dashboard")),
	}
}

// HandleHome — GET /. Маршрут выводится заново из сохранённой сессии.
func (h *DashboardHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}
	http.Redirect(w, r, rs.Store.Snapshot().HomeRoute(), http.StatusFound)
}

// HandlePlatform — GET /platform.
func (h *DashboardHandler) HandlePlatform(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}
	renderPage(w, r, h.logger, http.StatusOK, pages.Platform(headerFor(rs.Store.Snapshot())))
}

// HandleOrganization — GET /organizations/{orgId}.
// Дашборд чужой организации не показывается: redirect на маршрут активного контекста.
func (h *DashboardHandler) HandleOrganization(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}
	st := rs.Store.Snapshot()

	var orgID int64
	err := runtime.BindStyledParameterWithOptions("simple", "orgId", chi.URLParam(r, "orgId"), &orgID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		header := headerFor(st)
		renderPage(w, r, h.logger, http.StatusNotFound, pages.Error(&header, "error.not_found"))
		return
	}

	active := st.ActiveContext()
	if active == nil || active.OrganizationID == nil || *active.OrganizationID != orgID {
		http.Redirect(w, r, st.HomeRoute(), http.StatusFound)
		return
	}

	org, err := h.api.GetOrganization(r.Context(), st.Token, orgID)
	if err != nil {
		h.backendFailure(w, r, rs, err)
		return
	}
	renderPage(w, r, h.logger, http.StatusOK, pages.Organization(headerFor(st), org))
}

// HandleTeam — GET /team, рабочее пространство команды активного контекста.
func (h *DashboardHandler) HandleTeam(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}
	st := rs.Store.Snapshot()

	active := st.ActiveContext()
	if active == nil || active.TeamID == nil || active.OrganizationID != nil {
		http.Redirect(w, r, st.HomeRoute(), http.StatusFound)
		return
	}

	team, err := h.api.GetTeam(r.Context(), st.Token, *active.TeamID)
	if err != nil {
		h.backendFailure(w, r, rs, err)
		return
	}
	renderPage(w, r, h.logger, http.StatusOK, pages.Team(headerFor(st), team))
}

// backendFailure: отказ авторизации завершает сессию и ведёт на вход,
// прочие ошибки показываются как недоступность сервиса.
func (h *DashboardHandler) backendFailure(w http.ResponseWriter, r *http.Request, rs *uimiddleware.RequestSession, err error) {
	if h.flow.ExpireOnAuthError(r.Context(), rs.Flow(), err) {
		target := rs.Nav.Route()
		if target == "" {
			target = rbac.RouteLogin
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	h.logger.Warn("Ошибка запроса к backend",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	header := headerFor(rs.Store.Snapshot())
	renderPage(w, r, h.logger, http.StatusBadGateway, pages.Error(&header, "error.backend_unavailable"))
}
