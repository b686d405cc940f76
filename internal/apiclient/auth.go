package apiclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
)

// Credentials — учётные данные входа. Login — email или username.
type Credentials struct {
	Login    string
	Password string
}

// envelope — ответы backend вида {"data": {...}}.
type envelope[T any] struct {
	Data T `json:"data"`
}

// SignIn — вход по email/username и паролю.
func (c *Client) SignIn(ctx context.Context, creds Credentials) (*model.SignInResult, error) {
	body := map[string]string{"password": creds.Password}
	if isEmail(creds.Login) {
		body["email"] = creds.Login
	} else {
		body["username"] = creds.Login
	}

	var resp envelope[model.SignInResult]
	if err := c.do(ctx, http.MethodPost, "/auth/signin", "", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// RequestPhoneOTP отправляет одноразовый код входа на телефон.
func (c *Client) RequestPhoneOTP(ctx context.Context, phone string) error {
	return c.do(ctx, http.MethodPost, "/auth/signin/phone/otp", "", map[string]string{"phone": phone}, nil)
}

// SignInWithPhone — вход по телефону и одноразовому коду.
func (c *Client) SignInWithPhone(ctx context.Context, phone, otp string) (*model.SignInResult, error) {
	var resp envelope[model.SignInResult]
	body := map[string]string{"phone": phone, "otp": otp}
	if err := c.do(ctx, http.MethodPost, "/auth/signin/phone", "", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// SelectRoleContext выбирает контекст и получает токен, выпущенный под него.
// token — текущий bearer, если он есть (при множественных контекстах его нет).
func (c *Client) SelectRoleContext(ctx context.Context, token string, userID, roleContextID int64) (*model.SelectRoleContextResult, error) {
	body := map[string]int64{"userId": userID, "roleContextId": roleContextID}

	var resp envelope[model.SelectRoleContextResult]
	if err := c.do(ctx, http.MethodPost, "/auth/select-role-context", token, body, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// ForgotPassword запрашивает код сброса пароля на email.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", "", map[string]string{"email": email}, nil)
}

// VerifyOTP проверяет код сброса пароля.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) error {
	return c.do(ctx, http.MethodPost, "/auth/verify-otp", "", map[string]string{"email": email, "otp": otp}, nil)
}

// ResetPassword устанавливает новый пароль по проверенному коду.
func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	body := map[string]string{"email": email, "otp": otp, "newPassword": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", "", body, nil)
}

// isEmail — грубая проверка, чтобы выбрать поле email или username.
func isEmail(login string) bool {
	at := strings.IndexByte(login, '@')
	return at > 0 && at < len(login)-1
}
