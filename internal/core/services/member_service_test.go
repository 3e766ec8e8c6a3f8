package services

import (
	"context"
	"testing"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemberFixture() (*MemberService, *fakeMemberRepo, *fakeUserRoleRepo, *fakeIdentity) {
	memberRepo := newFakeMemberRepo()
	roleRepo := newFakeUserRoleRepo()
	identity := newFakeIdentity()
	svc := NewMemberService(memberRepo, roleRepo, NewProfileService(memberRepo), identity)
	return svc, memberRepo, roleRepo, identity
}

func TestRegister(t *testing.T) {
	svc, _, _, _ := newMemberFixture()

	member, err := svc.Register(context.Background(), &RegisterMemberRequest{
		MemberNumber: " m4001 ",
		FullName:     "New Member",
	})
	require.NoError(t, err)

	assert.Equal(t, "M4001", member.MemberNumber, "member number is normalized on registration")
	assert.Equal(t, "pending", member.Status, "self-registered members await approval")
	assert.Nil(t, member.AuthUserID, "auth account is provisioned on first login, not registration")
}

func TestRegister_DuplicateNumber(t *testing.T) {
	svc, memberRepo, _, _ := newMemberFixture()
	memberRepo.add(&models.Member{MemberNumber: "M4002"})

	_, err := svc.Register(context.Background(), &RegisterMemberRequest{
		MemberNumber: "M4002",
		FullName:     "Someone Else",
	})
	assert.ErrorIs(t, err, domain.ErrMemberAlreadyExists)
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _, _, _ := newMemberFixture()

	_, err := svc.Register(context.Background(), &RegisterMemberRequest{MemberNumber: "M4003"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Register(context.Background(), &RegisterMemberRequest{FullName: "No Number"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCompleteProfile_ClearsGate(t *testing.T) {
	svc, memberRepo, _, _ := newMemberFixture()
	member := memberRepo.add(&models.Member{MemberNumber: "M4004", FirstTimeLogin: true})

	session := &domain.Session{UserID: "user-1", MemberNumber: "M4004"}
	updated, err := svc.CompleteProfile(context.Background(), session, &CompleteProfileRequest{
		FullName: "Full Name",
		Email:    "member@example.com",
		Phone:    "07700900000",
	})
	require.NoError(t, err)

	assert.False(t, updated.FirstTimeLogin)
	assert.True(t, updated.ProfileCompleted)
	assert.False(t, updated.RequiresProfileCompletion(), "gate clears permanently once both flags flip")
	assert.Equal(t, member.ID, updated.ID)
}

func TestCompleteProfile_Validation(t *testing.T) {
	svc, memberRepo, _, _ := newMemberFixture()
	memberRepo.add(&models.Member{MemberNumber: "M4005"})

	session := &domain.Session{UserID: "user-2", MemberNumber: "M4005"}
	_, err := svc.CompleteProfile(context.Background(), session, &CompleteProfileRequest{
		FullName: "Name Only",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssignRole(t *testing.T) {
	svc, _, roleRepo, identity := newMemberFixture()
	acc := identity.addAccount("target@example.com", "pw", "", "member")

	err := svc.AssignRole(context.Background(), "admin-user", acc.id, domain.RoleCollector)
	require.NoError(t, err)

	assert.Equal(t, []string{"collector"}, roleRepo.roles[acc.id])
	assert.Equal(t, "collector", acc.role, "role claim cache is refreshed")
}

func TestAssignRoleToMember(t *testing.T) {
	svc, memberRepo, roleRepo, identity := newMemberFixture()
	acc := identity.addAccount("linked@example.com", "pw", "M4010", "member")
	member := memberRepo.add(&models.Member{MemberNumber: "M4010", AuthUserID: &acc.id})

	err := svc.AssignRoleToMember(context.Background(), "admin-user", member.ID, domain.RoleCollector)
	require.NoError(t, err)
	assert.Equal(t, []string{"collector"}, roleRepo.roles[acc.id])
}

func TestAssignRoleToMember_Unlinked(t *testing.T) {
	svc, memberRepo, _, _ := newMemberFixture()
	member := memberRepo.add(&models.Member{MemberNumber: "M4011"})

	err := svc.AssignRoleToMember(context.Background(), "admin-user", member.ID, domain.RoleCollector)
	assert.ErrorIs(t, err, domain.ErrMemberNotLinked, "a member who never logged in has no account to hold a role")
}

func TestAssignRoleToMember_UnknownMember(t *testing.T) {
	svc, _, _, _ := newMemberFixture()

	err := svc.AssignRoleToMember(context.Background(), "admin-user", 404, domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAssignRole_CannotChangeOwnRole(t *testing.T) {
	svc, _, _, _ := newMemberFixture()

	err := svc.AssignRole(context.Background(), "user-1", "user-1", domain.RoleMember)
	assert.ErrorIs(t, err, ErrCannotChangeOwnRole)
}

func TestAssignRole_InvalidRole(t *testing.T) {
	svc, _, _, _ := newMemberFixture()

	err := svc.AssignRole(context.Background(), "admin-user", "target", domain.Role("superuser"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAssignRole_LastAdminProtected(t *testing.T) {
	svc, _, roleRepo, identity := newMemberFixture()
	acc := identity.addAccount("only-admin@example.com", "pw", "", "admin")
	roleRepo.roles[acc.id] = []string{"admin"}

	err := svc.AssignRole(context.Background(), "other-admin", acc.id, domain.RoleMember)
	assert.ErrorIs(t, err, ErrLastAdmin)
}

func TestAssignRole_DemoteAdminWithAnotherRemaining(t *testing.T) {
	svc, _, roleRepo, identity := newMemberFixture()
	acc := identity.addAccount("admin-a@example.com", "pw", "", "admin")
	roleRepo.roles[acc.id] = []string{"admin"}
	roleRepo.roles["admin-b"] = []string{"admin"}

	err := svc.AssignRole(context.Background(), "admin-b", acc.id, domain.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, []string{"member"}, roleRepo.roles[acc.id])
}
