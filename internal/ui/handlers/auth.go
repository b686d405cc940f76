// auth.go — вход (пароль, телефон), выход.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/apiclient"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/service"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/pages"
)

// AuthHandler — обработчики входа и выхода.
type AuthHandler struct {
	flow   *service.AuthFlowService
	logger *slog.Logger
}

// NewAuthHandler создаёт AuthHandler.
func NewAuthHandler(flow *service.AuthFlowService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		flow:   flow,
		logger: logger.With(slog.String("component", "ui.auth")),
	}
}

// HandleLoginPage — GET /login. Вошедшего пользователя отправляет на его дашборд.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}
	if route := rs.Store.Snapshot().HomeRoute(); route != rbac.RouteLogin {
		http.Redirect(w, r, route, http.StatusFound)
		return
	}
	renderPage(w, r, h.logger, http.StatusOK, pages.Login(pages.LoginData{}))
}

// HandleLogin — POST /login, вход по email/username и паролю.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}

	creds := apiclient.Credentials{
		Login:    r.FormValue("login"),
		Password: r.FormValue("password"),
	}
	if _, err := h.flow.SignIn(r.Context(), rs.Flow(), creds); err != nil {
		h.renderLoginError(w, r, err, pages.LoginData{Login: creds.Login})
		return
	}
	redirectAfterAction(w, r, rs, rbac.RouteSelectRole)
}

// HandlePhoneOTP — POST /login/phone/otp, отправка кода на телефон.
func (h *AuthHandler) HandlePhoneOTP(w http.ResponseWriter, r *http.Request) {
	phone := r.FormValue("phone")
	if err := h.flow.RequestPhoneOTP(r.Context(), phone); err != nil {
		h.renderLoginError(w, r, err, pages.LoginData{Phone: phone})
		return
	}
	renderPage(w, r, h.logger, http.StatusOK, pages.Login(pages.LoginData{Phone: phone, CodeSent: true}))
}

// HandlePhoneLogin — POST /login/phone, вход по телефону и коду.
func (h *AuthHandler) HandlePhoneLogin(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}

	phone := r.FormValue("phone")
	if _, err := h.flow.SignInWithPhone(r.Context(), rs.Flow(), phone, r.FormValue("otp")); err != nil {
		h.renderLoginError(w, r, err, pages.LoginData{Phone: phone, CodeSent: phone != ""})
		return
	}
	redirectAfterAction(w, r, rs, rbac.RouteSelectRole)
}

// HandleLogout — POST /logout.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	rs, ok := requestSession(w, r)
	if !ok {
		return
	}
	if err := h.flow.Logout(r.Context(), rs.Flow()); err != nil {
		renderInternalError(w, r, h.logger, err)
		return
	}
	redirectAfterAction(w, r, rs, rbac.RouteLogin)
}

// renderLoginError показывает страницу входа с сообщением.
// Ошибки, не предназначенные пользователю, дают 500.
func (h *AuthHandler) renderLoginError(w http.ResponseWriter, r *http.Request, err error, data pages.LoginData) {
	var ue *service.UserError
	if !errors.As(err, &ue) {
		renderInternalError(w, r, h.logger, err)
		return
	}
	data.Error = ue.Message
	renderPage(w, r, h.logger, userErrorStatus(err), pages.Login(data))
}

// userErrorStatus — 400 для ошибок ввода, 500 для переполнения хранилища
// сессии, 401 для отказа backend.
func userErrorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrStorageFull):
		return http.StatusInternalServerError
	}
	return http.StatusUnauthorized
}
