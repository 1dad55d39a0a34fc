package service

import (
	"strings"

	"github.com/noah-isme/gema-school-api/internal/models"
)

// ActivityActor represents the authenticated user performing an operation.
type ActivityActor struct {
	ID       uint
	Role     string
	SchoolID uint
}

func (a ActivityActor) role() string {
	return strings.ToLower(strings.TrimSpace(a.Role))
}

func (a ActivityActor) isSuperAdmin() bool {
	return a.role() == models.RoleSuperAdmin
}

func (a ActivityActor) hasRole(roles ...string) bool {
	current := a.role()
	for _, role := range roles {
		if current == role {
			return true
		}
	}
	return false
}

// inSchool reports whether the actor is bound to schoolID. Super admins are
// bound to every school.
func (a ActivityActor) inSchool(schoolID uint) bool {
	if a.isSuperAdmin() {
		return true
	}
	return a.SchoolID != 0 && a.SchoolID == schoolID
}

func (a ActivityActor) canAdminister(schoolID uint) bool {
	return a.hasRole(models.AdminRoles...) && a.inSchool(schoolID)
}

func (a ActivityActor) isStaffOf(schoolID uint) bool {
	return a.hasRole(models.StaffRoles...) && a.inSchool(schoolID)
}
