package model

import (
	"fmt"
	"slices"
)

// Scope — область действия роли.
type Scope string

const (
	// ScopePlatform — роль действует на всю платформу.
	ScopePlatform Scope = "Platform"
	// ScopeOrganization — роль ограничена организацией или командой.
	ScopeOrganization Scope = "Organization"
)

// Role — роль с набором разрешений.
type Role struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Scope       Scope    `json:"scope"`
	Permissions []string `json:"permissions,omitempty"`
}

// OrganizationRef — краткая ссылка на организацию.
type OrganizationRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TeamRef — краткая ссылка на команду.
type TeamRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RoleContext — одна «роль в контексте»: платформа, организация или команда.
// Для маршрутизации значим не более чем один из OrganizationID / TeamID.
// Если не задан ни один — контекст платформенный.
type RoleContext struct {
	// ID — идентификатор контекста
	ID int64 `json:"id"`
	// Role — роль пользователя в этом контексте
	Role Role `json:"role"`
	// OrganizationID — организация (nil, если не задана)
	OrganizationID *int64 `json:"organizationId,omitempty"`
	// TeamID — команда (nil, если не задана)
	TeamID *int64 `json:"teamId,omitempty"`
	// Organization — данные организации (опционально)
	Organization *OrganizationRef `json:"organization,omitempty"`
	// Team — данные команды (опционально)
	Team *TeamRef `json:"team,omitempty"`
	// UserID — владелец контекста
	UserID int64 `json:"userId"`
}

// IsPlatform возвращает true для контекста без организации и команды.
func (rc *RoleContext) IsPlatform() bool {
	return rc.OrganizationID == nil && rc.TeamID == nil
}

// Label — подпись контекста для списка выбора роли.
func (rc *RoleContext) Label() string {
	switch {
	case rc.OrganizationID != nil:
		name := fmt.Sprintf("#%d", *rc.OrganizationID)
		if rc.Organization != nil && rc.Organization.Name != "" {
			name = rc.Organization.Name
		}
		return fmt.Sprintf("%s — %s", rc.Role.Title, name)
	case rc.TeamID != nil:
		name := fmt.Sprintf("#%d", *rc.TeamID)
		if rc.Team != nil && rc.Team.Name != "" {
			name = rc.Team.Name
		}
		return fmt.Sprintf("%s — %s", rc.Role.Title, name)
	default:
		return rc.Role.Title
	}
}

// Clone — глубокая копия: указатели и список разрешений не разделяются с оригиналом.
func (rc RoleContext) Clone() RoleContext {
	out := rc
	out.Role.Permissions = slices.Clone(rc.Role.Permissions)
	if rc.OrganizationID != nil {
		id := *rc.OrganizationID
		out.OrganizationID = &id
	}
	if rc.TeamID != nil {
		id := *rc.TeamID
		out.TeamID = &id
	}
	if rc.Organization != nil {
		org := *rc.Organization
		out.Organization = &org
	}
	if rc.Team != nil {
		team := *rc.Team
		out.Team = &team
	}
	return out
}

// CloneRoleContexts — глубокая копия списка; nil остаётся nil.
func CloneRoleContexts(list []RoleContext) []RoleContext {
	if list == nil {
		return nil
	}
	out := make([]RoleContext, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out
}
