package services

import (
	"context"
	"log"

	"pwab-memberhub/internal/adapters/persistence/repositories"
	"pwab-memberhub/internal/core/domain"
)

// RoleService determines the authorization role for a session and exposes
// the tab permission predicate.
type RoleService struct {
	roleRepo repositories.UserRoleRepository
}

// NewRoleService creates a new role service
func NewRoleService(roleRepo repositories.UserRoleRepository) *RoleService {
	return &RoleService{roleRepo: roleRepo}
}

// rolePrecedence orders roles highest-privilege-first. A user holding
// several role rows resolves to the highest-ranked one; storage order is
// undefined and must never decide.
var rolePrecedence = map[domain.Role]int{
	domain.RoleAdmin:     3,
	domain.RoleCollector: 2,
	domain.RoleMember:    1,
}

// tabAccess is the declarative role -> permitted tabs mapping. Admin is
// handled separately (all tabs).
var tabAccess = map[domain.Role][]string{
	domain.RoleCollector: {"dashboard", "users"},
	domain.RoleMember:    {"dashboard"},
}

// KnownTabs is the full tab surface, used to expand admin permissions
var KnownTabs = []string{"dashboard", "users", "collectors", "database", "system"}

// ResolveRole resolves the role for a session: the metadata role claim is
// a fast path; otherwise the role-assignment rows are consulted. Absence
// of any assignment resolves to member — never empty, never admin.
// Resolution defaults rather than fails: a store error (after one retry)
// is logged and the safe default returned.
func (s *RoleService) ResolveRole(ctx context.Context, session *domain.Session) domain.Role {
	if session == nil {
		return domain.RoleNone
	}

	if session.Role.Valid() {
		return session.Role
	}

	rows, err := s.roleRepo.ListByUser(ctx, session.UserID)
	if err != nil {
		rows, err = s.roleRepo.ListByUser(ctx, session.UserID)
	}
	if err != nil {
		log.Printf("⚠️ Role lookup failed for %s, defaulting to member: %v", session.UserID, err)
		return domain.RoleMember
	}

	best := domain.RoleNone
	for _, row := range rows {
		role := domain.Role(row.Role)
		if rolePrecedence[role] > rolePrecedence[best] {
			best = role
		}
	}
	if best == domain.RoleNone {
		return domain.RoleMember
	}
	return best
}

// CanAccessTab reports whether the role may access the tab. Pure function
// of (role, tab): admin sees every tab, collector dashboard+users, member
// dashboard only, unresolved nothing.
func CanAccessTab(role domain.Role, tab string) bool {
	switch role {
	case domain.RoleAdmin:
		return true
	case domain.RoleCollector, domain.RoleMember:
		for _, allowed := range tabAccess[role] {
			if allowed == tab {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// PermittedTabs lists the tabs the role may access
func PermittedTabs(role domain.Role) []string {
	if role == domain.RoleAdmin {
		return append([]string(nil), KnownTabs...)
	}
	return append([]string(nil), tabAccess[role]...)
}
