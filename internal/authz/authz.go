package authz

import (
	"github.com/campushub/enrollment-api/internal/models"
	appErrors "github.com/campushub/enrollment-api/pkg/errors"
)

// Action names one guarded operation on tenant data.
type Action string

const (
	ActionEnrollmentCreate     Action = "enrollment:create"
	ActionEnrollmentView       Action = "enrollment:view"
	ActionEnrollmentTransition Action = "enrollment:transition"
	ActionPromotionExecute     Action = "promotion:execute"
	ActionStudentImport        Action = "student:import"
	ActionStudentView          Action = "student:view"
	ActionStudentManage        Action = "student:manage"
	ActionYearManage           Action = "year:manage"
	ActionYearView             Action = "year:view"
	ActionClassManage          Action = "class:manage"
	ActionClassView            Action = "class:view"
)

var adminActions = []Action{
	ActionEnrollmentCreate,
	ActionEnrollmentView,
	ActionEnrollmentTransition,
	ActionPromotionExecute,
	ActionStudentImport,
	ActionStudentView,
	ActionStudentManage,
	ActionYearManage,
	ActionYearView,
	ActionClassManage,
	ActionClassView,
}

var teacherActions = []Action{
	ActionEnrollmentView,
	ActionStudentView,
	ActionYearView,
	ActionClassView,
}

// capabilities is the authorization table consulted on every operation entry.
var capabilities = map[models.UserRole]map[Action]struct{}{
	models.RoleSuperAdmin: toSet(adminActions),
	models.RoleAdmin:      toSet(adminActions),
	models.RoleTeacher:    toSet(teacherActions),
	models.RoleStudent:    {},
}

func toSet(actions []Action) map[Action]struct{} {
	set := make(map[Action]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// Can reports whether the role is allowed to perform the action.
func Can(role models.UserRole, action Action) bool {
	_, ok := capabilities[role][action]
	return ok
}

// Authorize checks the caller's tenant binding and capability for one
// operation. schoolID is the tenant of the targeted records. Callers with no
// tenant binding, or bound to a different tenant, are rejected before any
// storage access happens.
func Authorize(claims *models.JWTClaims, schoolID string, action Action) error {
	if claims == nil || claims.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	if claims.SchoolID == nil || *claims.SchoolID == "" || *claims.SchoolID != schoolID {
		return appErrors.ErrForbidden
	}
	if !Can(claims.Role, action) {
		return appErrors.ErrForbidden
	}
	return nil
}
