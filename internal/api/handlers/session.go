// session.go — JSON API сессии для клиентских скриптов дашборда.
// GET  /api/v1/session               — снимок сессии и маршрут по умолчанию
// POST /api/v1/session/role-context  — выбор или смена контекста роли
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/bigkaa/teamdesk/dashboard-module/internal/api/errors"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/service"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
	uimiddleware "github.com/bigkaa/teamdesk/dashboard-module/internal/ui/middleware"
)

// RoleContextSelector — сценарий выбора контекста роли.
// Реализуется *service.AuthFlowService.
type RoleContextSelector interface {
	SelectRoleContext(ctx context.Context, sess service.Session, roleContextID int64) (string, error)
}

// SessionHandler — обработчик JSON API сессии.
type SessionHandler struct {
	flow   RoleContextSelector
	logger *slog.Logger
}

// NewSessionHandler создаёт обработчик JSON API сессии.
func NewSessionHandler(flow RoleContextSelector, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		flow:   flow,
		logger: logger.With(slog.String("component", "session_api")),
	}
}

// sessionResponse — снимок сессии. Токен наружу не отдаётся.
type sessionResponse struct {
	Authenticated         bool                `json:"authenticated"`
	RequiresRoleSelection bool                `json:"requiresRoleSelection"`
	Route                 string              `json:"route"`
	User                  *model.User         `json:"user,omitempty"`
	RoleContexts          []model.RoleContext `json:"roleContexts"`
	SelectedRoleContext   *model.RoleContext  `json:"selectedRoleContext,omitempty"`
}

type selectRoleContextRequest struct {
	RoleContextID int64 `json:"roleContextId"`
}

type selectRoleContextResponse struct {
	Route string `json:"route"`
}

// GetSession — GET /api/v1/session.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.SessionFromContext(r.Context())
	if rs == nil {
		apierrors.Unauthorized(w, "Сессия не найдена")
		return
	}

	st := rs.Store.Snapshot()
	resp := sessionResponse{
		Authenticated:         st.IsAuthenticated(),
		RequiresRoleSelection: st.User != nil && st.NeedsRoleSelection(),
		Route:                 st.HomeRoute(),
		User:                  st.User,
		RoleContexts:          st.RoleContexts,
		SelectedRoleContext:   st.SelectedRoleContext,
	}
	if resp.RoleContexts == nil {
		resp.RoleContexts = []model.RoleContext{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SelectRoleContext — POST /api/v1/session/role-context.
// Тело уже проверено по OpenAPI контракту.
func (h *SessionHandler) SelectRoleContext(w http.ResponseWriter, r *http.Request) {
	rs := uimiddleware.SessionFromContext(r.Context())
	if rs == nil {
		apierrors.Unauthorized(w, "Сессия не найдена")
		return
	}

	var req selectRoleContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	route, err := h.flow.SelectRoleContext(r.Context(), rs.Flow(), req.RoleContextID)
	if err != nil {
		h.writeFlowError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectRoleContextResponse{Route: route})
}

// writeFlowError переводит ошибку сценария в HTTP-ответ.
func (h *SessionHandler) writeFlowError(w http.ResponseWriter, err error) {
	var ue *service.UserError
	switch {
	case errors.Is(err, service.ErrNoUser),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, service.ErrSessionEnded):
		apierrors.Unauthorized(w, "Сессия завершена, войдите снова")
	case errors.Is(err, service.ErrUnknownRoleContext):
		apierrors.ValidationError(w, service.UserMessage(err))
	case errors.Is(err, session.ErrStorageFull):
		h.logger.Warn("Сессия не помещается в хранилище", slog.String("error", err.Error()))
		apierrors.InternalError(w, service.UserMessage(err))
	case errors.As(err, &ue):
		apierrors.BackendUnavailable(w, ue.Message)
	default:
		h.logger.Error("Ошибка выбора контекста роли", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка")
	}
}
