package model

// SignInResult — ответ backend на вход по учётным данным.
// AccessToken приходит только когда у пользователя ровно один RoleContext.
type SignInResult struct {
	User                  User          `json:"user"`
	RoleContexts          []RoleContext `json:"roleContexts"`
	AccessToken           string        `json:"accessToken,omitempty"`
	RequiresRoleSelection bool          `json:"requiresRoleSelection"`
}

// SelectRoleContextResult — ответ backend на выбор контекста.
// Токен перевыпускается под выбранный контекст, прежний токен отбрасывается.
type SelectRoleContextResult struct {
	AccessToken         string      `json:"accessToken"`
	User                User        `json:"user"`
	SelectedRoleContext RoleContext `json:"selectedRoleContext"`
}

// Organization — данные организации для дашборда организации.
type Organization struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"memberCount"`
	TeamCount   int    `json:"teamCount"`
}

// Team — данные команды (social-media team workspace).
type Team struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	OrganizationID int64  `json:"organizationId"`
	MemberCount    int    `json:"memberCount"`
}

// Task — задача, доступная по публичной ссылке из письма.
type Task struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate,omitempty"`
}
