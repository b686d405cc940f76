package pages

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/ui/i18n"
)

// LoginData — данные страницы входа.
type LoginData struct {
	// Error — сообщение об ошибке входа
	Error string
	// Login — введённый логин (пароль не возвращается)
	Login string
	// Phone — телефон для входа по коду
	Phone string
	// CodeSent — код на телефон отправлен, показать поле кода
	CodeSent bool
	// Notice — информационное сообщение
	Notice string
}

// Login — страница входа: логин/пароль и вход по телефону.
func Login(data LoginData) templ.Component {
	return Layout("login.title", nil, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="card auth"><h1>`)
		h.t("login.title")
		h.raw(`</h1>`)
		h.alert("error", data.Error)
		h.alert("info", data.Notice)

		h.formStart("/login")
		h.input("login", "text", "login.login", data.Login, true)
		h.input("password", "password", "login.password", "", true)
		h.submit("login.submit")
		h.formEnd()

		h.raw(`<p><a`)
		h.href("/forgot-password")
		h.raw(`>`)
		h.t("login.forgot")
		h.raw(`</a></p><h2>`)
		h.t("login.phone_title")
		h.raw(`</h2>`)

		if data.CodeSent {
			h.formStart("/login/phone")
			h.hidden("phone", data.Phone)
			h.raw(`<p>`)
			h.tf("login.code_sent", data.Phone)
			h.raw(`</p>`)
			h.input("otp", "text", "login.code", "", true)
			h.submit("login.phone_submit")
			h.formEnd()
		} else {
			h.formStart("/login/phone/otp")
			h.input("phone", "tel", "login.phone", data.Phone, true)
			h.submit("login.send_code")
			h.formEnd()
		}

		h.raw(`</section>`)
		return h.err
	}))
}

// Шаги восстановления пароля.
const (
	ResetStepEmail  = "email"
	ResetStepVerify = "verify"
	ResetStepReset  = "reset"
	ResetStepDone   = "done"
)

// ForgotPasswordData — данные страницы восстановления пароля.
type ForgotPasswordData struct {
	Step  string
	Email string
	OTP   string
	Error string
}

// ForgotPassword — восстановление пароля по коду из письма.
func ForgotPassword(data ForgotPasswordData) templ.Component {
	return Layout("forgot.title", nil, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := newWriter(ctx, w)
		h.raw(`<section class="card auth"><h1>`)
		h.t("forgot.title")
		h.raw(`</h1>`)
		h.alert("error", data.Error)

		switch data.Step {
		case ResetStepVerify:
			h.formStart("/forgot-password/verify")
			h.hidden("email", data.Email)
			h.input("otp", "text", "forgot.code", "", true)
			h.submit("forgot.verify")
			h.formEnd()
		case ResetStepReset:
			h.formStart("/forgot-password/reset")
			h.hidden("email", data.Email)
			h.hidden("otp", data.OTP)
			h.input("password", "password", "forgot.new_password", "", true)
			h.input("confirm", "password", "forgot.confirm_password", "", true)
			h.submit("forgot.reset")
			h.formEnd()
		case ResetStepDone:
			h.alert("info", i18n.T(ctx, "forgot.done"))
		default:
			h.formStart("/forgot-password")
			h.input("email", "email", "forgot.email", data.Email, true)
			h.submit("forgot.send")
			h.formEnd()
		}

		h.raw(`<p><a`)
		h.href("/login")
		h.raw(`>`)
		h.t("forgot.back")
		h.raw(`</a></p></section>`)
		return h.err
	}))
}
