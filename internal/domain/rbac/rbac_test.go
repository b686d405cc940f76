package rbac

import (
	"testing"

	"github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"
)

func ptr(v int64) *int64 { return &v }

// TestRouteFor проверяет приоритет маршрутов: организация → команда → платформа.
func TestRouteFor(t *testing.T) {
	tests := []struct {
		name string
		rc   model.RoleContext
		want string
	}{
		{"платформа", model.RoleContext{ID: 1}, RoutePlatform},
		{"организация", model.RoleContext{ID: 2, OrganizationID: ptr(3)}, "/organizations/3"},
		{"команда", model.RoleContext{ID: 3, TeamID: ptr(9)}, RouteTeam},
		{"организация и команда — побеждает организация", model.RoleContext{ID: 4, OrganizationID: ptr(5), TeamID: ptr(7)}, "/organizations/5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RouteFor(tt.rc); got != tt.want {
				t.Errorf("RouteFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestDecideAfterSignIn проверяет три исхода входа в порядке приоритета.
func TestDecideAfterSignIn(t *testing.T) {
	one := []model.RoleContext{{ID: 5, TeamID: ptr(9)}}
	two := []model.RoleContext{{ID: 1, TeamID: ptr(7)}, {ID: 2, OrganizationID: ptr(3)}}

	tests := []struct {
		name   string
		result model.SignInResult
		want   Decision
	}{
		{"флаг сервера", model.SignInResult{RoleContexts: two, RequiresRoleSelection: true}, DecisionSelectRole},
		{"флаг сервера при одном контексте", model.SignInResult{RoleContexts: one, RequiresRoleSelection: true}, DecisionSelectRole},
		{"один контекст", model.SignInResult{RoleContexts: one, AccessToken: "t"}, DecisionAutoRoute},
		{"несколько контекстов без флага", model.SignInResult{RoleContexts: two}, DecisionSelectRole},
		{"нет контекстов", model.SignInResult{}, DecisionSelectRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecideAfterSignIn(tt.result); got != tt.want {
				t.Errorf("DecideAfterSignIn() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNeedsRoleSelection(t *testing.T) {
	one := []model.RoleContext{{ID: 5}}
	two := []model.RoleContext{{ID: 1}, {ID: 2}}
	selected := &model.RoleContext{ID: 2}

	if NeedsRoleSelection(false, one, nil) {
		t.Error("один контекст не требует выбора")
	}
	if !NeedsRoleSelection(false, two, nil) {
		t.Error("два контекста без выбранного требуют выбора")
	}
	if NeedsRoleSelection(true, two, selected) {
		t.Error("выбранный контекст снимает требование выбора")
	}
	if !NeedsRoleSelection(true, one, nil) {
		t.Error("флаг сервера требует выбора")
	}
}

func TestHasPlatformContext(t *testing.T) {
	contexts := []model.RoleContext{{ID: 1}, {ID: 2, OrganizationID: ptr(3)}}

	if !HasPlatformContext(contexts, nil) {
		t.Error("ожидался платформенный контекст в списке")
	}
	org := contexts[1]
	if HasPlatformContext(contexts, &org) {
		t.Error("выбран контекст организации — платформенного доступа нет")
	}
	if HasPlatformContext(contexts[1:], nil) {
		t.Error("в списке нет платформенного контекста")
	}
}

func TestActiveContextAndFind(t *testing.T) {
	one := []model.RoleContext{{ID: 5, TeamID: ptr(9)}}
	if rc := ActiveContext(one, nil); rc == nil || rc.ID != 5 {
		t.Fatalf("ActiveContext() = %v, want ID=5", rc)
	}
	if rc := ActiveContext(append(one, model.RoleContext{ID: 6}), nil); rc != nil {
		t.Errorf("ActiveContext() = %v, want nil", rc)
	}

	if _, ok := FindContext(one, 5); !ok {
		t.Error("FindContext(5) не нашёл контекст")
	}
	if _, ok := FindContext(one, 42); ok {
		t.Error("FindContext(42) нашёл несуществующий контекст")
	}
}
