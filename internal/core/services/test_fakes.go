package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pwab-memberhub/internal/adapters/persistence/models"
	"pwab-memberhub/internal/core/domain"

	"gorm.io/gorm"
)

// In-memory fakes for the repository and provider interfaces. They record
// call counts so tests can assert on protocol properties (sign-up at most
// once, link writes idempotent) and expose error queues to simulate
// transient store failures.

type fakeMemberRepo struct {
	mu        sync.Mutex
	members   map[uint]*models.Member
	nextID    uint
	linkCalls int
	linkErr   error
	// errors popped one per call before normal behavior
	getByNumberErrs   []error
	getByAuthUserErrs []error
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[uint]*models.Member), nextID: 1}
}

func (f *fakeMemberRepo) add(m *models.Member) *models.Member {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == 0 {
		m.ID = f.nextID
		f.nextID++
	}
	f.members[m.ID] = m
	return m
}

func (f *fakeMemberRepo) Create(ctx context.Context, member *models.Member) error {
	f.add(member)
	return nil
}

func (f *fakeMemberRepo) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.members[id]; ok {
		return m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMemberRepo) GetByNumber(ctx context.Context, number string) (*models.Member, error) {
	f.mu.Lock()
	if len(f.getByNumberErrs) > 0 {
		err := f.getByNumberErrs[0]
		f.getByNumberErrs = f.getByNumberErrs[1:]
		f.mu.Unlock()
		return nil, err
	}
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.MemberNumber == number {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMemberRepo) GetByNumberFold(ctx context.Context, number string) (*models.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if strings.EqualFold(m.MemberNumber, number) {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMemberRepo) GetByAuthUserID(ctx context.Context, authUserID string) (*models.Member, error) {
	f.mu.Lock()
	if len(f.getByAuthUserErrs) > 0 {
		err := f.getByAuthUserErrs[0]
		f.getByAuthUserErrs = f.getByAuthUserErrs[1:]
		f.mu.Unlock()
		return nil, err
	}
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.AuthUserID != nil && *m.AuthUserID == authUserID {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMemberRepo) LinkAuthUser(ctx context.Context, memberID uint, authUserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.linkCalls++
	if f.linkErr != nil {
		return f.linkErr
	}
	m, ok := f.members[memberID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if m.AuthUserID == nil {
		id := authUserID
		m.AuthUserID = &id
	}
	return nil
}

func (f *fakeMemberRepo) CompleteProfile(ctx context.Context, id uint, member *models.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	m.FullName = member.FullName
	m.Email = member.Email
	m.Phone = member.Phone
	m.Address = member.Address
	m.FirstTimeLogin = false
	m.ProfileCompleted = true
	return nil
}

func (f *fakeMemberRepo) Update(ctx context.Context, member *models.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[member.ID] = member
	return nil
}

func (f *fakeMemberRepo) List(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]*models.Member, 0, len(f.members))
	for _, m := range f.members {
		all = append(all, m)
	}
	return all, int64(len(all)), nil
}

func (f *fakeMemberRepo) ListCollectors(ctx context.Context, offset, limit int) ([]*models.Member, int64, error) {
	return nil, 0, nil
}

func (f *fakeMemberRepo) ExistsByNumber(ctx context.Context, number string) (bool, error) {
	_, err := f.GetByNumber(ctx, number)
	if err == nil {
		return true, nil
	}
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return false, err
}

type fakeAccount struct {
	id           string
	password     string
	memberNumber string
	role         string
}

// fakeIdentity implements IdentityProvider over an in-memory account map
// backed by a real event bus
type fakeIdentity struct {
	mu          sync.Mutex
	accounts    map[string]*fakeAccount // keyed by email
	sessions    map[string]*domain.Session
	bus         *AuthEventBus
	nextID      int
	signUpCalls int
	signInCalls int
	signUpErr   error
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		accounts: make(map[string]*fakeAccount),
		sessions: make(map[string]*domain.Session),
		bus:      NewAuthEventBus(),
	}
}

func (f *fakeIdentity) addAccount(email, password, memberNumber, role string) *fakeAccount {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	acc := &fakeAccount{
		id:           fmt.Sprintf("user-%d", f.nextID),
		password:     password,
		memberNumber: memberNumber,
		role:         role,
	}
	f.accounts[email] = acc
	return acc
}

func (f *fakeIdentity) sessionFor(email string, acc *fakeAccount) *domain.Session {
	token := fmt.Sprintf("token-%s-%d", acc.id, time.Now().UnixNano())
	session := &domain.Session{
		UserID:       acc.id,
		Email:        email,
		AccessToken:  token,
		MemberNumber: acc.memberNumber,
		Role:         domain.Role(acc.role),
		ExpiresAt:    time.Now().Add(15 * time.Minute),
	}
	f.sessions[token] = session
	return session
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string, meta domain.SignUpMetadata) (*domain.Session, error) {
	f.mu.Lock()
	f.signUpCalls++
	if f.signUpErr != nil {
		err := f.signUpErr
		f.mu.Unlock()
		return nil, err
	}
	if _, exists := f.accounts[email]; exists {
		f.mu.Unlock()
		return nil, ErrUserAlreadyExists
	}
	f.nextID++
	acc := &fakeAccount{
		id:           fmt.Sprintf("user-%d", f.nextID),
		password:     password,
		memberNumber: meta.MemberNumber,
		role:         string(meta.Role),
	}
	f.accounts[email] = acc
	session := f.sessionFor(email, acc)
	f.mu.Unlock()

	f.bus.Publish(domain.EventSignedIn, session)
	return session, nil
}

func (f *fakeIdentity) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	f.mu.Lock()
	f.signInCalls++
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		f.mu.Unlock()
		return nil, ErrInvalidCredentials
	}
	session := f.sessionFor(email, acc)
	f.mu.Unlock()

	f.bus.Publish(domain.EventSignedIn, session)
	return session, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context, refreshToken string) error {
	f.bus.Publish(domain.EventSignedOut, nil)
	return nil
}

func (f *fakeIdentity) SignOutEverywhere(ctx context.Context, userID string) error {
	f.bus.Publish(domain.EventSignedOut, &domain.Session{UserID: userID})
	return nil
}

func (f *fakeIdentity) GetSession(ctx context.Context, accessToken string) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if session, ok := f.sessions[accessToken]; ok {
		return session, nil
	}
	return nil, ErrInvalidToken
}

func (f *fakeIdentity) GetUser(ctx context.Context, userID string) (*models.AuthAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, acc := range f.accounts {
		if acc.id == userID {
			return &models.AuthAccount{
				ID:           acc.id,
				Email:        email,
				MemberNumber: acc.memberNumber,
				Role:         acc.role,
				IsActive:     true,
			}, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeIdentity) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	return nil, ErrInvalidToken
}

func (f *fakeIdentity) UpdateRoleClaim(ctx context.Context, userID string, role domain.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.id == userID {
			acc.role = string(role)
			return nil
		}
	}
	return ErrUserNotFound
}

func (f *fakeIdentity) Subscribe() (<-chan domain.AuthEvent, func()) {
	return f.bus.Subscribe()
}

type fakeUserRoleRepo struct {
	mu       sync.Mutex
	roles    map[string][]string
	listErrs []error
}

func newFakeUserRoleRepo() *fakeUserRoleRepo {
	return &fakeUserRoleRepo{roles: make(map[string][]string)}
}

func (f *fakeUserRoleRepo) ListByUser(ctx context.Context, authUserID string) ([]*models.UserRole, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.listErrs) > 0 {
		err := f.listErrs[0]
		f.listErrs = f.listErrs[1:]
		return nil, err
	}
	rows := make([]*models.UserRole, 0)
	for _, role := range f.roles[authUserID] {
		rows = append(rows, &models.UserRole{AuthUserID: authUserID, Role: role})
	}
	return rows, nil
}

func (f *fakeUserRoleRepo) Replace(ctx context.Context, authUserID string, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.roles[authUserID] = []string{role}
	return nil
}

func (f *fakeUserRoleRepo) CountByRole(ctx context.Context, role string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, roles := range f.roles {
		for _, r := range roles {
			if r == role {
				count++
			}
		}
	}
	return count, nil
}

type fakeAuthAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*models.AuthAccount // keyed by id
}

func newFakeAuthAccountRepo() *fakeAuthAccountRepo {
	return &fakeAuthAccountRepo{accounts: make(map[string]*models.AuthAccount)}
}

func (f *fakeAuthAccountRepo) Create(ctx context.Context, account *models.AuthAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[account.ID] = account
	return nil
}

func (f *fakeAuthAccountRepo) GetByID(ctx context.Context, id string) (*models.AuthAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if acc, ok := f.accounts[id]; ok {
		return acc, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAuthAccountRepo) GetByEmail(ctx context.Context, email string) (*models.AuthAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.Email == email {
			return acc, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAuthAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	if err == nil {
		return true, nil
	}
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return false, err
}

func (f *fakeAuthAccountRepo) UpdateRoleClaim(ctx context.Context, id string, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	acc.Role = role
	return nil
}

type fakeRefreshTokenRepo struct {
	mu     sync.Mutex
	tokens map[uint]*models.RefreshToken
	nextID uint
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: make(map[uint]*models.RefreshToken), nextID: 1}
}

func (f *fakeRefreshTokenRepo) Create(ctx context.Context, token *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token.ID = f.nextID
	f.nextID++
	f.tokens[token.ID] = token
	return nil
}

func (f *fakeRefreshTokenRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.TokenHash == tokenHash {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRefreshTokenRepo) Revoke(ctx context.Context, id uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tokens[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	t.RevokedAt = &now
	return nil
}

func (f *fakeRefreshTokenRepo) RevokeByTokenHash(ctx context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.TokenHash == tokenHash {
			now := time.Now()
			t.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) RevokeAllByUserID(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.tokens {
		if t.UserID == userID {
			now := time.Now()
			t.RevokedAt = &now
		}
	}
	return nil
}

func (f *fakeRefreshTokenRepo) DeleteExpired(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, t := range f.tokens {
		if time.Now().After(t.ExpiresAt) {
			delete(f.tokens, id)
		}
	}
	return nil
}

// fakeNotifier records delivered notices
type fakeNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (f *fakeNotifier) Notify(userID, title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, userID+": "+title)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notices)
}
