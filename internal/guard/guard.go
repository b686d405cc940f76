// Пакет guard — единая проверка доступа к защищённым страницам Dashboard.
// Guard подписан на изменения сессии и пересчитывает вердикт при каждом из них.
package guard

import (
	"sync"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/rbac"
	"github.com/bigkaa/teamdesk/dashboard-module/internal/session"
)

// Status — состояние проверки доступа.
type Status int

const (
	// StatusLoading — сессия ещё восстанавливается, вердикта нет.
	StatusLoading Status = iota
	// StatusUnauthorized — доступ запрещён, выполняется redirect.
	StatusUnauthorized
	// StatusAuthorized — доступ разрешён.
	StatusAuthorized
)

// String возвращает имя состояния для логов.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusUnauthorized:
		return "unauthorized"
	case StatusAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// Options — настройки проверки.
type Options struct {
	// RequirePlatformRole — нужен платформенный контекст.
	RequirePlatformRole bool
	// RedirectTo — куда отправлять неавторизованных (по умолчанию страница входа).
	RedirectTo string
	// Skip — публичный доступ (ссылка с токеном в письме): проверки пропускаются.
	Skip bool
	// RequireRoleContext — страница роли: до выбора контекста отправлять на выбор роли.
	RequireRoleContext bool
	// SelectRoute — страница выбора роли (по умолчанию /select-role).
	SelectRoute string
}

func (o Options) redirectTo() string {
	if o.RedirectTo != "" {
		return o.RedirectTo
	}
	return rbac.RouteLogin
}

func (o Options) selectRoute() string {
	if o.SelectRoute != "" {
		return o.SelectRoute
	}
	return rbac.RouteSelectRole
}

// Result — вердикт проверки.
type Result struct {
	User         *model.User
	IsLoading    bool
	IsAuthorized bool
	Status       Status
	// RedirectTo — цель redirect для StatusUnauthorized.
	RedirectTo string
}

// Evaluate вычисляет вердикт для снимка сессии. Никогда не паникует и не
// возвращает ошибку: отсутствие доступа — это значение, а не исключение.
func Evaluate(st session.State, opts Options) Result {
	res := Result{User: st.User}

	if st.IsLoading {
		res.IsLoading = true
		res.Status = StatusLoading
		return res
	}

	if opts.Skip {
		res.IsAuthorized = true
		res.Status = StatusAuthorized
		return res
	}

	if !st.IsAuthenticated() {
		res.Status = StatusUnauthorized
		res.RedirectTo = opts.redirectTo()
		// Пользователь вошёл, но токена ещё нет — ждёт выбора роли.
		if opts.RequireRoleContext && st.User != nil && st.NeedsRoleSelection() && len(st.RoleContexts) > 0 {
			res.RedirectTo = opts.selectRoute()
		}
		return res
	}

	if opts.RequirePlatformRole && !rbac.HasPlatformContext(st.RoleContexts, st.SelectedRoleContext) {
		res.Status = StatusUnauthorized
		res.RedirectTo = opts.redirectTo()
		return res
	}

	if opts.RequireRoleContext && st.NeedsRoleSelection() {
		res.Status = StatusUnauthorized
		res.RedirectTo = opts.selectRoute()
		return res
	}

	res.IsAuthorized = true
	res.Status = StatusAuthorized
	return res
}

// Source — источник состояния сессии (реализуется *session.Store).
type Source interface {
	Snapshot() session.State
	Subscribe(fn func(session.State)) func()
}

// Guard — проверка доступа, подписанная на изменения сессии.
// Redirect выполняется не более одного раза на каждый переход в StatusUnauthorized.
type Guard struct {
	opts Options
	nav  session.Navigator

	mu          sync.Mutex
	result      Result
	unsubscribe func()
}

// New создаёт Guard, подписывает его на source и сразу вычисляет вердикт.
func New(source Source, opts Options, nav session.Navigator) *Guard {
	g := &Guard{
		opts:   opts,
		nav:    nav,
		result: Result{IsLoading: true, Status: StatusLoading},
	}
	g.unsubscribe = source.Subscribe(g.update)
	g.update(source.Snapshot())
	return g
}

// Result возвращает текущий вердикт.
func (g *Guard) Result() Result {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.result
}

// Close отписывает Guard от изменений сессии.
func (g *Guard) Close() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (g *Guard) update(st session.State) {
	res := Evaluate(st, g.opts)

	g.mu.Lock()
	prev := g.result
	g.result = res
	// Смена цели redirect внутри StatusUnauthorized новым переходом не считается:
	// навигация уже запущена, вердикт лишь обновляется.
	fire := res.Status == StatusUnauthorized && prev.Status != StatusUnauthorized
	g.mu.Unlock()

	if fire && g.nav != nil {
		g.nav.Navigate(res.RedirectTo)
	}
}
