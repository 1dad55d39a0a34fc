package models

// Account roles carried in access tokens.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleTeacher    = "teacher"
	RoleParent     = "parent"
	RoleStudent    = "student"
)

// StaffRoles may enter scores and read class result sheets.
var StaffRoles = []string{RoleSuperAdmin, RoleAdmin, RoleTeacher}

// AdminRoles may manage grading systems and read analytics.
var AdminRoles = []string{RoleSuperAdmin, RoleAdmin}

// AllRoles lists every role known to the application.
var AllRoles = []string{RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleParent, RoleStudent}
