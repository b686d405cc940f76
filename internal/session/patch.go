package session

import "github.com/bigkaa/teamdesk/dashboard-module/internal/domain/model"

// Opt — значение, которое может быть не передано.
// Нулевое значение Opt означает «поле опущено».
type Opt[T any] struct {
	value T
	set   bool
}

// Some возвращает заданное значение.
func Some[T any](v T) Opt[T] {
	return Opt[T]{value: v, set: true}
}

// Get возвращает значение и признак того, что оно задано.
func (o Opt[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet возвращает true, если значение передано.
func (o Opt[T]) IsSet() bool {
	return o.set
}

// LoginPatch — аргументы Store.Login.
//
// User записывается всегда. Token: если опущен — токен очищается.
// RoleContexts и RequiresRoleSelection: если опущены — остаются как есть,
// Some([]model.RoleContext{}) явно очищает список.
// SelectedRoleContext: если опущен — остаётся как есть, Some(nil) снимает выбор.
type LoginPatch struct {
	User                  *model.User
	Token                 Opt[string]
	RoleContexts          Opt[[]model.RoleContext]
	RequiresRoleSelection Opt[bool]
	SelectedRoleContext   Opt[*model.RoleContext]
}
