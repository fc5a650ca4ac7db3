package models

// Role ist eine Rolle aus user_roles.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleUser      Role = "user"
	RoleReviewer  Role = "reviewer"
	RoleDoctor    Role = "doctor"
	RoleEditor    Role = "editor"
	RoleMember    Role = "member"
)

// StaffRoles dürfen Einreichungen verwalten und Gutachter zuweisen.
var StaffRoles = []Role{RoleAdmin, RoleEditor, RoleModerator}

// ReviewerRoles dürfen als Gutachter zugewiesen werden ("reviewer oder höher").
var ReviewerRoles = []Role{RoleReviewer, RoleEditor, RoleAdmin}

// Valid prüft, ob die Rolle bekannt ist.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleModerator, RoleUser, RoleReviewer, RoleDoctor, RoleEditor, RoleMember:
		return true
	}
	return false
}

// UserRole ordnet einem Nutzer eine Rolle zu.
type UserRole struct {
	Base

	UserID string `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_user_roles_user_role"`
	Role   Role   `json:"role" gorm:"type:varchar(32);not null;uniqueIndex:idx_user_roles_user_role"`
}

// TableName gibt explizit den Tabellennamen an.
func (UserRole) TableName() string {
	return "user_roles"
}
