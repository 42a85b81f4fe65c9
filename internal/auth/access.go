package auth

import "ms-festbuzz/internal/models"

type Permission string

const (
	CanCreateFests        Permission = "canCreateFests"
	CanManageFests        Permission = "canManageFests"
	CanCreateEvents       Permission = "canCreateEvents"
	CanModifyEvents       Permission = "canModifyEvents"
	CanManageEvents       Permission = "canManageEvents"
	CanAssignEventRoles   Permission = "canAssignEventRoles"
	CanSendCertificates   Permission = "canSendCertificates"
	CanPublishResults     Permission = "canPublishResults"
	CanViewEventDetails   Permission = "canViewEventDetails"
	CanViewParticipants   Permission = "canViewParticipants"
	CanManageUsers        Permission = "canManageUsers"
	CanAccessAllFestivals Permission = "canAccessAllFestivals"
)

type permissionSet map[Permission]bool

func setOf(perms ...Permission) permissionSet {
	s := make(permissionSet, len(perms))
	for _, p := range perms {
		s[p] = true
	}
	return s
}

var (
	eventManagerPerms = []Permission{
		CanCreateEvents, CanModifyEvents, CanManageEvents, CanAssignEventRoles,
		CanSendCertificates, CanPublishResults, CanViewEventDetails, CanViewParticipants,
	}
	festivalHeadPerms = append([]Permission{CanManageFests}, eventManagerPerms...)
	adminPerms        = append([]Permission{CanCreateFests}, festivalHeadPerms...)
	superAdminPerms   = append([]Permission{CanManageUsers, CanAccessAllFestivals}, adminPerms...)
)

var globalPermissions = map[models.Role]permissionSet{
	models.RoleSuperAdmin:       setOf(superAdminPerms...),
	models.RoleAdmin:            setOf(adminPerms...),
	models.RoleFestivalHead:     setOf(festivalHeadPerms...),
	models.RoleEventManager:     setOf(eventManagerPerms...),
	models.RoleEventCoordinator: setOf(CanViewEventDetails, CanViewParticipants),
	models.RoleEventVolunteer:   setOf(CanViewParticipants),
	models.RoleParticipant:      setOf(),
}

var festivalPermissions = map[models.FestivalRole]permissionSet{
	models.FestivalRoleAdmin:            setOf(adminPerms...),
	models.FestivalRoleHead:             setOf(festivalHeadPerms...),
	models.FestivalRoleEventManager:     setOf(eventManagerPerms...),
	models.FestivalRoleEventCoordinator: setOf(CanViewEventDetails, CanViewParticipants),
	models.FestivalRoleEventVolunteer:   setOf(CanViewParticipants),
}

// Access is a caller's authority inside one festival. FestivalRole is empty
// when the caller holds no effective role there.
type Access struct {
	UserID       string
	GlobalRole   models.Role
	FestivalRole models.FestivalRole
}

// Can reports whether either the global or the festival role grants p.
func (a Access) Can(p Permission) bool {
	return globalPermissions[a.GlobalRole][p] || festivalPermissions[a.FestivalRole][p]
}

// IsFestivalAdmin reports authority to act on other users' registrations.
func (a Access) IsFestivalAdmin() bool {
	switch a.GlobalRole {
	case models.RoleSuperAdmin, models.RoleAdmin:
		return true
	}
	switch a.FestivalRole {
	case models.FestivalRoleAdmin, models.FestivalRoleHead:
		return true
	}
	return false
}

// Permissions lists every permission a grants, in table order.
func (a Access) Permissions() []Permission {
	var out []Permission
	for _, p := range superAdminPerms {
		if a.Can(p) {
			out = append(out, p)
		}
	}
	return out
}
