// auth_flow.go — сценарии входа, выбора и смены контекста роли,
// сброса пароля. Тонкая оркестрация поверх session, rbac и Auth API.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/apiclient"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
)

// Prometheus-метрики сценариев аутентификации.
var (
	signInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_signins_total",
		Help: "Количество попыток входа по способу и исходу.",
	}, []string{"method", "outcome"})
	roleSelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dm_role_selections_total",
		Help: "Количество выборов контекста роли по результату.",
	}, []string{"result"})
	sessionExpirationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dm_session_expirations_total",
		Help: "Количество сессий, завершённых из-за отказа авторизации backend.",
	})
)

// Сообщения по умолчанию, когда backend не прислал своего.
const (
	msgSignInFailed      = "Не удалось войти. Проверьте данные и попробуйте снова."
	msgOTPFailed         = "Не удалось проверить код. Попробуйте снова."
	msgRoleSelectFailed  = "Не удалось выбрать роль. Попробуйте снова."
	msgPasswordResetFail = "Не удалось сбросить пароль. Попробуйте снова."
	msgSessionTooLarge   = "Слишком много ролей для сохранения сессии в браузере. Обратитесь к администратору."
)

// otpPattern — одноразовый код из 6 цифр.
var otpPattern = regexp.MustCompile(`^\d{6}$`)

// AuthAPI — операции Auth API backend, нужные сценариям входа.
// Реализуется *apiclient.Client.
type AuthAPI interface {
	SignIn(ctx context.Context, creds apiclient.Credentials) (*model.SignInResult, error)
	RequestPhoneOTP(ctx context.Context, phone string) error
	SignInWithPhone(ctx context.Context, phone, otp string) (*model.SignInResult, error)
	SelectRoleContext(ctx context.Context, token string, userID, roleContextID int64) (*model.SelectRoleContextResult, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
}

// Session — сессия, над которой выполняется сценарий, и навигация хоста.
type Session struct {
	Store *session.Store
	Nav   session.Navigator
}

func (s Session) navigate(route string) {
	if s.Nav != nil {
		s.Nav.Navigate(route)
	}
}

// UserError — ошибка сценария с сообщением для пользователя.
// Сессия при такой ошибке не меняется.
type UserError struct {
	// Message — текст для показа пользователю.
	Message string
	// Err — исходная ошибка.
	Err error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// UserMessage возвращает сообщение для пользователя из ошибки сценария.
func UserMessage(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	return msgSignInFailed
}

// AuthFlowService — сценарии входа и выбора роли.
type AuthFlowService struct {
	api    AuthAPI
	logger *slog.Logger
}

// NewAuthFlowService создаёт сервис сценариев аутентификации.
func NewAuthFlowService(api AuthAPI, logger *slog.Logger) *AuthFlowService {
	return &AuthFlowService{
		api:    api,
		logger: logger.With(slog.String("component", "auth_flow")),
	}
}

// SignIn — вход по email/username и паролю.
func (s *AuthFlowService) SignIn(ctx context.Context, sess Session, creds apiclient.Credentials) (rbac.Decision, error) {
	creds.Login = strings.TrimSpace(creds.Login)
	if creds.Login == "" || creds.Password == "" {
		return 0, &UserError{Message: "Введите логин и пароль.", Err: ErrValidation}
	}

	res, err := s.api.SignIn(ctx, creds)
	if err != nil {
		signInsTotal.WithLabelValues("password", "error").Inc()
		s.logger.Info("Вход отклонён", slog.String("error", err.Error()))
		return 0, &UserError{Message: apiclient.MessageOf(err, msgSignInFailed), Err: err}
	}
	return s.completeSignIn(ctx, sess, res, "password")
}

// RequestPhoneOTP отправляет код входа на телефон.
func (s *AuthFlowService) RequestPhoneOTP(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return &UserError{Message: "Введите номер телефона.", Err: ErrValidation}
	}
	if err := s.api.RequestPhoneOTP(ctx, phone); err != nil {
		return &UserError{Message: apiclient.MessageOf(err, msgOTPFailed), Err: err}
	}
	return nil
}

// SignInWithPhone — вход по телефону и одноразовому коду.
func (s *AuthFlowService) SignInWithPhone(ctx context.Context, sess Session, phone, otp string) (rbac.Decision, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" || !otpPattern.MatchString(otp) {
		return 0, &UserError{Message: "Введите номер телефона и 6-значный код.", Err: ErrValidation}
	}

	res, err := s.api.SignInWithPhone(ctx, phone, otp)
	if err != nil {
		signInsTotal.WithLabelValues("phone", "error").Inc()
		return 0, &UserError{Message: apiclient.MessageOf(err, msgOTPFailed), Err: err}
	}
	return s.completeSignIn(ctx, sess, res, "phone")
}

// completeSignIn записывает результат входа одним переходом Store
// и выполняет один из исходов rbac.DecideAfterSignIn.
func (s *AuthFlowService) completeSignIn(ctx context.Context, sess Session, res *model.SignInResult, method string) (rbac.Decision, error) {
	decision := rbac.DecideAfterSignIn(*res)

	patch := session.LoginPatch{
		User:                  &res.User,
		RoleContexts:          session.Some(res.RoleContexts),
		RequiresRoleSelection: session.Some(res.RequiresRoleSelection),
		// Выбор прежней сессии не переносится на новый вход
		SelectedRoleContext: session.Some[*model.RoleContext](nil),
	}
	if res.AccessToken != "" {
		patch.Token = session.Some(res.AccessToken)
	}

	var route string
	switch decision {
	case rbac.DecisionAutoRoute:
		rc := res.RoleContexts[0]
		patch.SelectedRoleContext = session.Some(&rc)
		route = rbac.RouteFor(rc)
	default:
		route = rbac.RouteSelectRole
	}

	if err := sess.Store.Login(ctx, patch); err != nil {
		signInsTotal.WithLabelValues(method, "error").Inc()
		if errors.Is(err, session.ErrStorageFull) {
			s.logger.Warn("Сессия не помещается в хранилище",
				slog.Int64("user_id", res.User.ID),
				slog.Int("role_contexts", len(res.RoleContexts)),
				slog.String("error", err.Error()),
			)
			return 0, &UserError{Message: msgSessionTooLarge, Err: err}
		}
		return 0, fmt.Errorf("сохранение сессии: %w", err)
	}

	signInsTotal.WithLabelValues(method, decision.String()).Inc()
	s.logger.Info("Вход выполнен",
		slog.Int64("user_id", res.User.ID),
		slog.String("method", method),
		slog.String("outcome", decision.String()),
		slog.Int("role_contexts", len(res.RoleContexts)),
	)

	sess.navigate(route)
	return decision, nil
}

// SelectRoleContext выбирает контекст роли: из списка после входа или
// сменой роли в шапке. Сохраняет новый токен и контекст, затем переходит
// на маршрут контекста. Возвращает этот маршрут.
//
// Если за время запроса сессия завершилась (Logout/Expire), ответ
// отбрасывается и возвращается ErrSessionEnded.
func (s *AuthFlowService) SelectRoleContext(ctx context.Context, sess Session, roleContextID int64) (string, error) {
	st := sess.Store.Snapshot()
	if st.User == nil {
		return "", ErrNoUser
	}
	if _, ok := rbac.FindContext(st.RoleContexts, roleContextID); !ok {
		roleSelectionsTotal.WithLabelValues("unknown_context").Inc()
		return "", &UserError{Message: "Выбранная роль недоступна.", Err: ErrUnknownRoleContext}
	}

	gen := sess.Store.Generation()
	res, err := s.api.SelectRoleContext(ctx, st.Token, st.User.ID, roleContextID)
	if err != nil {
		if s.ExpireOnAuthError(ctx, sess, err) {
			roleSelectionsTotal.WithLabelValues("expired").Inc()
			return "", ErrSessionExpired
		}
		roleSelectionsTotal.WithLabelValues("error").Inc()
		return "", &UserError{Message: apiclient.MessageOf(err, msgRoleSelectFailed), Err: err}
	}

	if sess.Store.Generation() != gen {
		roleSelectionsTotal.WithLabelValues("discarded").Inc()
		s.logger.Info("Ответ выбора роли отброшен: сессия завершилась во время запроса",
			slog.Int64("user_id", st.User.ID),
		)
		return "", ErrSessionEnded
	}

	selected := res.SelectedRoleContext
	err = sess.Store.Login(ctx, session.LoginPatch{
		User:                &res.User,
		Token:               session.Some(res.AccessToken),
		SelectedRoleContext: session.Some(&selected),
	})
	if err != nil {
		roleSelectionsTotal.WithLabelValues("error").Inc()
		if errors.Is(err, session.ErrStorageFull) {
			return "", &UserError{Message: msgSessionTooLarge, Err: err}
		}
		return "", fmt.Errorf("сохранение выбранного контекста: %w", err)
	}

	route := rbac.RouteFor(selected)
	roleSelectionsTotal.WithLabelValues("ok").Inc()
	s.logger.Info("Контекст роли выбран",
		slog.Int64("user_id", res.User.ID),
		slog.Int64("role_context_id", selected.ID),
		slog.String("route", route),
	)

	sess.navigate(route)
	return route, nil
}

// Logout завершает сессию и очищает хранилище.
func (s *AuthFlowService) Logout(ctx context.Context, sess Session) error {
	var userID int64
	if u := sess.Store.Snapshot().User; u != nil {
		userID = u.ID
	}
	if err := sess.Store.Logout(ctx); err != nil {
		return err
	}
	s.logger.Info("Выход выполнен", slog.Int64("user_id", userID))
	return nil
}

// ExpireOnAuthError применяет политику отказа авторизации: если err
// означает недействительный токен, сессия завершается (ключи аутентификации
// удаляются, навигация на вход) и возвращается true.
func (s *AuthFlowService) ExpireOnAuthError(ctx context.Context, sess Session, err error) bool {
	if !apiclient.IsSessionExpired(err) {
		return false
	}
	sessionExpirationsTotal.Inc()
	s.logger.Info("Backend отклонил токен, сессия завершена", slog.String("error", err.Error()))
	if expireErr := sess.Store.Expire(ctx); expireErr != nil {
		s.logger.Error("Ошибка завершения сессии", slog.String("error", expireErr.Error()))
	}
	return true
}

// --- Сброс пароля ---

// RequestPasswordReset отправляет код сброса пароля на email.
func (s *AuthFlowService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if !strings.Contains(email, "@") {
		return &UserError{Message: "Введите корректный email.", Err: ErrValidation}
	}
	if err := s.api.ForgotPassword(ctx, email); err != nil {
		return &UserError{Message: apiclient.MessageOf(err, msgPasswordResetFail), Err: err}
	}
	return nil
}

// VerifyResetOTP проверяет 6-значный код сброса.
func (s *AuthFlowService) VerifyResetOTP(ctx context.Context, email, otp string) error {
	if !otpPattern.MatchString(otp) {
		return &UserError{Message: "Код должен состоять из 6 цифр.", Err: ErrValidation}
	}
	if err := s.api.VerifyOTP(ctx, strings.TrimSpace(email), otp); err != nil {
		return &UserError{Message: apiclient.MessageOf(err, msgOTPFailed), Err: err}
	}
	return nil
}

// ResetPassword устанавливает новый пароль. После сброса нужен новый вход.
func (s *AuthFlowService) ResetPassword(ctx context.Context, email, otp, newPassword, confirm string) error {
	if !otpPattern.MatchString(otp) {
		return &UserError{Message: "Код должен состоять из 6 цифр.", Err: ErrValidation}
	}
	if len(newPassword) < 8 {
		return &UserError{Message: "Пароль должен содержать не менее 8 символов.", Err: ErrValidation}
	}
	if newPassword != confirm {
		return &UserError{Message: "Пароли не совпадают.", Err: ErrValidation}
	}
	if err := s.api.ResetPassword(ctx, strings.TrimSpace(email), otp, newPassword); err != nil {
		return &UserError{Message: apiclient.MessageOf(err, msgPasswordResetFail), Err: err}
	}
	s.logger.Info("Пароль сброшен по коду")
	return nil
}
