package models

// Role задаёт уровень доступа пользователя. Уровни линейно упорядочены:
// админ может всё, что может модератор, модератор — всё, что обычный пользователь.
type Role int

const (
	RoleBasicUser Role = 1
	RoleModerator Role = 2
	RoleAdmin     Role = 3
)

// AtLeast сообщает, достаточен ли уровень роли для требуемого.
func (r Role) AtLeast(required Role) bool {
	return r >= required
}

func (r Role) Valid() bool {
	return r >= RoleBasicUser && r <= RoleAdmin
}

func (r Role) String() string {
	switch r {
	case RoleBasicUser:
		return "Пользователь"
	case RoleModerator:
		return "Модератор"
	case RoleAdmin:
		return "Админ"
	}
	return "Неизвестная роль"
}
