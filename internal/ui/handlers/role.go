// role.go — выбор контекста роли после входа и смена роли из шапки.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/service"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
	uimiddleware "github.com/bigkaa/teamdesk/dashboard-module/internal/ui/middleware"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/pages"
)

// RoleHandler — страница выбора роли и смена роли.
type RoleHandler struct {
	flow   *service.AuthFlowService
	logger *slog.Logger
}

// NewRoleHandler создаёт RoleHandler.
func NewRoleHandler(flow *service.AuthFlowService, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{
		flow:   flow,
		logger: logger.With(slog.String("component", "ui.role")),
	}
}

// HandleSelectRolePage — GET /select-role.
func (h *RoleHandler) HandleSelectRolePage(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}
	st := rs.Store.Snapshot()
	if st.User == nil {
		http.Redirect(w, r, rbac.RouteLogin, http.StatusFound)
		return
	}
	h.renderPicker(w, r, rs, http.StatusOK, "")
}

// HandleSelectRole — POST /select-role и POST /switch-role.
// Оба пути выполняют один сценарий: новый токен под контекст и переход
// на маршрут контекста.
func (h *RoleHandler) HandleSelectRole(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		h.renderPicker(w, r, rs, http.StatusBadRequest, "")
		return
	}

	var roleContextID int64
	if err := runtime.BindQueryParameter("form", true, true, "roleContextId", r.PostForm, &roleContextID); err != nil {
		h.logger.Debug("Некорректный roleContextId", slog.String("error", err.Error()))
		h.renderPicker(w, r, rs, http.StatusBadRequest, "")
		return
	}

	_, err := h.flow.SelectRoleContext(r.Context(), rs.Flow(), roleContextID)
	var ue *service.UserError
	switch {
	case err == nil:
		redirectAfterAction(w, r, rs, rbac.RouteSelectRole)
	case errors.Is(err, service.ErrNoUser),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, service.ErrSessionEnded):
		redirectAfterAction(w, r, rs, rbac.RouteLogin)
	case errors.As(err, &ue):
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, service.ErrUnknownRoleContext):
			status = http.StatusBadRequest
		case errors.Is(err, session.ErrStorageFull):
			status = http.StatusInternalServerError
		}
		h.renderPicker(w, r, rs, status, ue.Message)
	default:
		renderInternalError(w, r, h.logger, err)
	}
}

func (h *RoleHandler) renderPicker(w http.ResponseWriter, r *http.Request, rs *uimiddleware.RequestSession, status int, message string) {
	st := rs.Store.Snapshot()
	renderPage(w, r, h.logger, status, pages.SelectRole(pages.SelectRoleData{
		User:     st.User,
		Contexts: st.RoleContexts,
		Selected: st.SelectedRoleContext,
		Error:    message,
	}))
}
