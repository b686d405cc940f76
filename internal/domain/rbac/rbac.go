// Пакет rbac — разрешение «роли в контексте» (RoleContext) в маршрут дашборда
// и решение о шаге выбора роли после входа.
// Чистые функции: без I/O и побочных эффектов.
package rbac

import (
	"fmt"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
)

// Маршруты входа и выбора роли.
const (
	RouteLogin      = "/login"
	RouteSelectRole = "/select-role"
)

// Корневые маршруты дашбордов.
const (
	// RoutePlatform — дашборд администратора платформы.
	RoutePlatform = "/platform"
	// RouteTeam — рабочее пространство команды (social-media team).
	RouteTeam = "/team"
	// routeOrganizationFmt — дашборд организации, параметр — ID организации.
	routeOrganizationFmt = "/organizations/%d"
)

// OrganizationRoute возвращает корневой маршрут дашборда организации.
func OrganizationRoute(orgID int64) string {
	return fmt.Sprintf(routeOrganizationFmt, orgID)
}

// RouteFor возвращает маршрут дашборда для контекста.
// Приоритет: организация → команда → платформа.
// Контекст с OrganizationID и TeamID одновременно ведёт на дашборд организации.
func RouteFor(rc model.RoleContext) string {
	switch {
	case rc.OrganizationID != nil:
		return OrganizationRoute(*rc.OrganizationID)
	case rc.TeamID != nil:
		return RouteTeam
	default:
		return RoutePlatform
	}
}

// Decision — исход после успешного входа.
type Decision int

const (
	// DecisionSelectRole — показать список выбора роли.
	DecisionSelectRole Decision = iota
	// DecisionAutoRoute — единственный контекст, переход без выбора.
	DecisionAutoRoute
)

// String возвращает имя исхода для логов.
func (d Decision) String() string {
	switch d {
	case DecisionSelectRole:
		return "select_role"
	case DecisionAutoRoute:
		return "auto_route"
	default:
		return "unknown"
	}
}

// DecideAfterSignIn определяет исход входа. Порядок проверок:
//  1. сервер выставил requiresRoleSelection — выбор роли;
//  2. ровно один контекст — автопереход;
//  3. иначе (несколько контекстов без флага, ноль контекстов) — выбор роли.
func DecideAfterSignIn(result model.SignInResult) Decision {
	if result.RequiresRoleSelection {
		return DecisionSelectRole
	}
	if len(result.RoleContexts) == 1 {
		return DecisionAutoRoute
	}
	return DecisionSelectRole
}

// NeedsRoleSelection возвращает true, если доступ к страницам роли
// должен быть закрыт до выбора контекста.
func NeedsRoleSelection(flag bool, contexts []model.RoleContext, selected *model.RoleContext) bool {
	if selected != nil {
		return false
	}
	if flag {
		return true
	}
	return len(contexts) != 1
}

// ActiveContext возвращает контекст, в котором действует пользователь:
// выбранный, либо единственный доступный. Иначе nil.
func ActiveContext(contexts []model.RoleContext, selected *model.RoleContext) *model.RoleContext {
	if selected != nil {
		return selected
	}
	if len(contexts) == 1 {
		rc := contexts[0]
		return &rc
	}
	return nil
}

// HasPlatformContext проверяет наличие платформенного контекста.
// Если контекст выбран — проверяется только он, иначе весь список.
func HasPlatformContext(contexts []model.RoleContext, selected *model.RoleContext) bool {
	if selected != nil {
		return selected.IsPlatform()
	}
	for i := range contexts {
		if contexts[i].IsPlatform() {
			return true
		}
	}
	return false
}

// FindContext ищет контекст по ID.
func FindContext(contexts []model.RoleContext, id int64) (model.RoleContext, bool) {
	for _, rc := range contexts {
		if rc.ID == id {
			return rc, true
		}
	}
	return model.RoleContext{}, false
}
