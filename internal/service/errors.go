// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrNoUser — в сессии нет пользователя (вход не выполнен).
	ErrNoUser = errors.New("пользователь не вошёл в систему")
	// ErrUnknownRoleContext — контекст не принадлежит пользователю.
	ErrUnknownRoleContext = errors.New("контекст роли не найден среди доступных")
	// ErrSessionExpired — backend отклонил токен, сессия завершена.
	ErrSessionExpired = errors.New("сессия истекла")
	// ErrSessionEnded — сессия завершилась, пока выполнялся запрос; ответ отброшен.
	ErrSessionEnded = errors.New("сессия завершилась во время запроса")
)
