// Пакет session — хранилище сессии Dashboard: кто вошёл и в какой роли действует.
// Состояние живёт в памяти и синхронно пишется в долговременное хранилище,
// так что перезагрузка страницы не требует повторного входа.
package session

import (
	"context"
	"errors"
)

// Ключи долговременного хранилища. Каждый ключ независим.
const (
	// KeyUser — JSON model.User.
	KeyUser = "user"
	// KeyToken — bearer token как есть.
	KeyToken = "token"
	// KeyRoleContexts — JSON-массив model.RoleContext.
	KeyRoleContexts = "roleContexts"
	// KeySelectedRoleContext — JSON model.RoleContext или отсутствует.
	KeySelectedRoleContext = "selectedRoleContext"
)

// ErrStorageFull — хранилище не может принять сессию такого размера.
// Реализации Storage оборачивают его в свои ошибки.
var ErrStorageFull = errors.New("сессия не помещается в хранилище")

// AuthKeys — все ключи, относящиеся к аутентификации.
var AuthKeys = []string{KeyUser, KeyToken, KeyRoleContexts, KeySelectedRoleContext}

// Mutation — набор изменений, применяемый к хранилищу атомарно.
type Mutation struct {
	// Set — ключи для записи.
	Set map[string]string
	// Delete — ключи для удаления.
	Delete []string
}

// IsEmpty возвращает true, если изменений нет.
func (m Mutation) IsEmpty() bool {
	return len(m.Set) == 0 && len(m.Delete) == 0
}

// Storage — долговременное хранилище одной сессии: единое пространство
// строковых ключей. Реализации: зашифрованный cookie, PostgreSQL, in-memory LRU.
// nil Storage означает «хранилище недоступно»: операции становятся no-op.
type Storage interface {
	// Load возвращает все записи пространства.
	Load(ctx context.Context) (map[string]string, error)
	// Apply атомарно применяет изменения.
	Apply(ctx context.Context, m Mutation) error
	// Clear удаляет все записи пространства, включая не относящиеся к сессии.
	Clear(ctx context.Context) error
}

// Navigator — навигация хост-приложения (redirect в HTTP, переход в UI).
type Navigator interface {
	Navigate(route string)
}

// NavigatorFunc — адаптер функции к Navigator.
type NavigatorFunc func(route string)

// Navigate вызывает f(route).
func (f NavigatorFunc) Navigate(route string) {
	f(route)
}
