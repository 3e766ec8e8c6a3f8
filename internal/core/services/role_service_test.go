package services

import (
	"context"
	"errors"
	"testing"

	"pwab-memberhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestResolveRole_ClaimFastPath(t *testing.T) {
	roleRepo := newFakeUserRoleRepo()
	// Assignment rows disagree with the claim; the claim wins without a
	// store round trip
	roleRepo.roles["user-1"] = []string{"member"}
	svc := NewRoleService(roleRepo)

	role := svc.ResolveRole(context.Background(), &domain.Session{
		UserID: "user-1",
		Role:   domain.RoleAdmin,
	})
	assert.Equal(t, domain.RoleAdmin, role)
}

func TestResolveRole_HighestPrivilegeWins(t *testing.T) {
	roleRepo := newFakeUserRoleRepo()
	roleRepo.roles["user-2"] = []string{"member", "collector", "member"}
	svc := NewRoleService(roleRepo)

	role := svc.ResolveRole(context.Background(), &domain.Session{UserID: "user-2"})
	assert.Equal(t, domain.RoleCollector, role)
}

func TestResolveRole_DefaultsToMember(t *testing.T) {
	svc := NewRoleService(newFakeUserRoleRepo())

	role := svc.ResolveRole(context.Background(), &domain.Session{UserID: "user-3"})
	assert.Equal(t, domain.RoleMember, role, "absence of assignments resolves to member, never empty")
}

func TestResolveRole_UnknownRowsSkipped(t *testing.T) {
	roleRepo := newFakeUserRoleRepo()
	roleRepo.roles["user-4"] = []string{"superuser", "collector"}
	svc := NewRoleService(roleRepo)

	role := svc.ResolveRole(context.Background(), &domain.Session{UserID: "user-4"})
	assert.Equal(t, domain.RoleCollector, role)
}

func TestResolveRole_StoreErrorDefaultsSafely(t *testing.T) {
	roleRepo := newFakeUserRoleRepo()
	storeErr := errors.New("store down")
	roleRepo.listErrs = []error{storeErr, storeErr}
	svc := NewRoleService(roleRepo)

	role := svc.ResolveRole(context.Background(), &domain.Session{UserID: "user-5"})
	assert.Equal(t, domain.RoleMember, role, "role resolution defaults rather than fails")
}

func TestResolveRole_RetriesOnce(t *testing.T) {
	roleRepo := newFakeUserRoleRepo()
	roleRepo.roles["user-6"] = []string{"admin"}
	roleRepo.listErrs = []error{errors.New("transient")}
	svc := NewRoleService(roleRepo)

	role := svc.ResolveRole(context.Background(), &domain.Session{UserID: "user-6"})
	assert.Equal(t, domain.RoleAdmin, role)
}

func TestResolveRole_NilSession(t *testing.T) {
	svc := NewRoleService(newFakeUserRoleRepo())
	assert.Equal(t, domain.RoleNone, svc.ResolveRole(context.Background(), nil))
}

func TestCanAccessTab(t *testing.T) {
	cases := []struct {
		role domain.Role
		tab  string
		want bool
	}{
		{domain.RoleAdmin, "dashboard", true},
		{domain.RoleAdmin, "users", true},
		{domain.RoleAdmin, "collectors", true},
		{domain.RoleAdmin, "database", true},
		{domain.RoleAdmin, "system", true},
		{domain.RoleCollector, "dashboard", true},
		{domain.RoleCollector, "users", true},
		{domain.RoleCollector, "collectors", false},
		{domain.RoleCollector, "system", false},
		{domain.RoleMember, "dashboard", true},
		{domain.RoleMember, "users", false},
		{domain.RoleMember, "system", false},
		{domain.RoleNone, "dashboard", false},
		{domain.RoleNone, "users", false},
		{domain.Role("superuser"), "dashboard", false},
	}

	for _, tc := range cases {
		t.Run(string(tc.role)+"/"+tc.tab, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAccessTab(tc.role, tc.tab))
		})
	}
}

func TestCanAccessTab_Deterministic(t *testing.T) {
	// Consulted on every render path; repeated calls must agree
	for i := 0; i < 3; i++ {
		assert.True(t, CanAccessTab(domain.RoleAdmin, "anything-at-all"))
		assert.False(t, CanAccessTab(domain.RoleMember, "users"))
	}
}

func TestPermittedTabs(t *testing.T) {
	assert.ElementsMatch(t, []string{"dashboard", "users", "collectors", "database", "system"},
		PermittedTabs(domain.RoleAdmin))
	assert.ElementsMatch(t, []string{"dashboard", "users"}, PermittedTabs(domain.RoleCollector))
	assert.ElementsMatch(t, []string{"dashboard"}, PermittedTabs(domain.RoleMember))
	assert.Empty(t, PermittedTabs(domain.RoleNone))
}
