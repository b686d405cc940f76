// shared.go — задача по публичной ссылке из письма.
// Страница доступна без входа: доступ даёт токен в ссылке.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/apiclient"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/auth"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/pages"
)

// LinkVerifier проверяет токен ссылки. Реализуется *auth.LinkVerifier.
type LinkVerifier interface {
	Verify(ctx context.Context, token string, taskID int64) (*auth.LinkClaims, error)
}

// TaskAPI — получение задачи по токену ссылки.
type TaskAPI interface {
	GetTask(ctx context.Context, token string, id int64) (*model.Task, error)
}

// SharedTaskHandler — GET /shared/tasks/{taskId}?token=...
type SharedTaskHandler struct {
	verifier LinkVerifier
	api      TaskAPI
	logger   *slog.Logger
}

// NewSharedTaskHandler создаёт SharedTaskHandler.
func NewSharedTaskHandler(verifier LinkVerifier, api TaskAPI, logger *slog.Logger) *SharedTaskHandler {
	return &SharedTaskHandler{
		verifier: verifier,
		api:      api,
		logger:   logger.With(slog.String("component", "ui.shared_task")),
	}
}

// HandleSharedTask отображает задачу, если токен ссылки действителен.
func (h *SharedTaskHandler) HandleSharedTask(w http.ResponseWriter, r *http.Request) {
	var taskID int64
	err := runtime.BindStyledParameterWithOptions("simple", "taskId", chi.URLParam(r, "taskId"), &taskID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		renderPage(w, r, h.logger, http.StatusNotFound, pages.Error(nil, "error.not_found"))
		return
	}

	var token string
	if err := runtime.BindQueryParameter("form", true, true, "token", r.URL.Query(), &token); err != nil {
		h.invalidLink(w, r, taskID, err)
		return
	}

	if _, err := h.verifier.Verify(r.Context(), token, taskID); err != nil {
		h.invalidLink(w, r, taskID, err)
		return
	}

	task, err := h.api.GetTask(r.Context(), token, taskID)
	if err != nil {
		var apiErr *apiclient.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError {
			h.invalidLink(w, r, taskID, err)
			return
		}
		h.logger.Warn("Ошибка получения задачи",
			slog.Int64("task_id", taskID),
			slog.String("error", err.Error()),
		)
		renderPage(w, r, h.logger, http.StatusBadGateway, pages.Error(nil, "error.backend_unavailable"))
		return
	}

	renderPage(w, r, h.logger, http.StatusOK, pages.SharedTask(task))
}

func (h *SharedTaskHandler) invalidLink(w http.ResponseWriter, r *http.Request, taskID int64, err error) {
	h.logger.Info("Ссылка на задачу отклонена",
		slog.Int64("task_id", taskID),
		slog.String("error", err.Error()),
	)
	renderPage(w, r, h.logger, http.StatusForbidden, pages.Error(nil, "task.invalid_link"))
}
