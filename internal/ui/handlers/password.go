// password.go — восстановление пароля по коду из письма.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/service"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/pages"
)

// PasswordHandler — шаги восстановления пароля. Сессию не затрагивает.
type PasswordHandler struct {
	flow   *service.AuthFlowService
	logger *slog.Logger
}

// NewPasswordHandler создаёт PasswordHandler.
func NewPasswordHandler(flow *service.AuthFlowService, logger *slog.Logger) *PasswordHandler {
	return &PasswordHandler{
		flow:   flow,
		logger: logger.With(slog.String("component", "ui.password")),
	}
}

// HandlePage — GET /forgot-password.
func (h *PasswordHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pages.ForgotPasswordData{Step: pages.ResetStepEmail})
}

// HandleRequest — POST /forgot-password, отправка кода на email.
func (h *PasswordHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	if err := h.flow.RequestPasswordReset(r.Context(), email); err != nil {
		h.renderError(w, r, err, pages.ForgotPasswordData{Step: pages.ResetStepEmail, Email: email})
		return
	}
	h.render(w, r, http.StatusOK, pages.ForgotPasswordData{Step: pages.ResetStepVerify, Email: email})
}

// HandleVerify — POST /forgot-password/verify, проверка кода.
func (h *PasswordHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	email, otp := r.FormValue("email"), r.FormValue("otp")
	if err := h.flow.VerifyResetOTP(r.Context(), email, otp); err != nil {
		h.renderError(w, r, err, pages.ForgotPasswordData{Step: pages.ResetStepVerify, Email: email})
		return
	}
	h.render(w, r, http.StatusOK, pages.ForgotPasswordData{Step: pages.ResetStepReset, Email: email, OTP: otp})
}

// HandleReset — POST /forgot-password/reset, установка нового пароля.
func (h *PasswordHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	email, otp := r.FormValue("email"), r.FormValue("otp")
	err := h.flow.ResetPassword(r.Context(), email, otp, r.FormValue("password"), r.FormValue("confirm"))
	if err != nil {
		h.renderError(w, r, err, pages.ForgotPasswordData{Step: pages.ResetStepReset, Email: email, OTP: otp})
		return
	}
	h.render(w, r, http.StatusOK, pages.ForgotPasswordData{Step: pages.ResetStepDone})
}

func (h *PasswordHandler) render(w http.ResponseWriter, r *http.Request, status int, data pages.ForgotPasswordData) {
	renderPage(w, r, h.logger, status, pages.ForgotPassword(data))
}

func (h *PasswordHandler) renderError(w http.ResponseWriter, r *http.Request, err error, data pages.ForgotPasswordData) {
	var ue *service.UserError
	if !errors.As(err, &ue) {
		renderInternalError(w, r, h.logger, err)
		return
	}
	data.Error = ue.Message
	status := http.StatusBadRequest
	if !errors.Is(err, service.ErrValidation) {
		status = http.StatusUnprocessableEntity
	}
	h.render(w, r, status, data)
}
