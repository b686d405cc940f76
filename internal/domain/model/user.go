// Пакет model — доменные модели Dashboard Module.
// Формат JSON совпадает с контрактом backend REST API (camelCase).
package model

// User — учётная запись пользователя.
// Владелец — backend Auth API, клиент хранит read-only копию.
type User struct {
	// ID — числовой идентификатор пользователя
	ID int64 `json:"id"`
	// Name — отображаемое имя
	Name string `json:"name"`
	// Email — адрес электронной почты
	Email string `json:"email"`
	// Phone — номер телефона
	Phone string `json:"phone,omitempty"`
	// Username — имя пользователя для входа
	Username string `json:"username,omitempty"`
	// ProfileImage — ссылка на аватар
	ProfileImage string `json:"profileImage,omitempty"`
	// IsVerified — подтверждён ли email
	IsVerified bool `json:"isVerified"`
	// IsActive — активен ли аккаунт
	IsActive bool `json:"isActive"`
}

// DisplayName возвращает имя для шапки страницы.
func (u *User) DisplayName() string {
	switch {
	case u.Name != "":
		return u.Name
	case u.Username != "":
		return u.Username
	default:
		return u.Email
	}
}
