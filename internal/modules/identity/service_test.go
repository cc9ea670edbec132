package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/petlens/core/internal/models"
	"github.com/petlens/core/internal/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memUserStore struct {
	mu    sync.Mutex
	users map[string]*models.IdentityModel // by id
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.IdentityModel{}}
}

func (s *memUserStore) Create(_ context.Context, user *models.IdentityModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrEmailExists
		}
	}
	if user.ID == "" {
		user.ID = "user-" + user.Email
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*models.IdentityModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == FoldEmail(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*models.IdentityModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) UpdatePassword(_ context.Context, id, verifier string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.Password = verifier
	}
	return nil
}

func (s *memUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	return nil
}

type memRefreshStore struct {
	mu   sync.Mutex
	recs map[string]*models.RefreshTokenModel
}

func newMemRefreshStore() *memRefreshStore {
	return &memRefreshStore{recs: map[string]*models.RefreshTokenModel{}}
}

func (s *memRefreshStore) ReplaceActive(_ context.Context, userID string, rec *models.RefreshTokenModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.UserID == userID {
			r.Revoked = true
		}
	}
	cp := *rec
	s.recs[rec.ID] = &cp
	return nil
}

func (s *memRefreshStore) Rotate(_ context.Context, oldID string, rec *models.RefreshTokenModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.recs[oldID]
	if !ok || old.Revoked {
		return ErrTokenRevoked
	}
	old.Revoked = true
	cp := *rec
	s.recs[rec.ID] = &cp
	return nil
}

func (s *memRefreshStore) FindByID(_ context.Context, id string) (*models.RefreshTokenModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, ErrTokenUnknown
	}
	cp := *rec
	return &cp, nil
}

func (s *memRefreshStore) Revoke(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok || rec.Revoked {
		return false, nil
	}
	rec.Revoked = true
	return true, nil
}

func (s *memRefreshStore) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recs {
		if r.UserID == userID {
			r.Revoked = true
		}
	}
	return nil
}

func (s *memRefreshStore) TouchLastUsed(_ context.Context, id string) {}

func (s *memRefreshStore) activeCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.recs {
		if r.UserID == userID && !r.Revoked {
			n++
		}
	}
	return n
}

type fakeUserData struct {
	fail    bool
	called  bool
	summary DeletionSummary
}

func (f *fakeUserData) DeleteUserData(context.Context, string, string) (*DeletionSummary, error) {
	f.called = true
	if f.fail {
		return nil, errors.New("user data service down")
	}
	return &f.summary, nil
}

func newTestService(t *testing.T, userData UserDataClient) (*Service, *memUserStore, *memRefreshStore) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	if userData == nil {
		userData = &fakeUserData{}
	}
	users := newMemUserStore()
	refresh := newMemRefreshStore()
	svc := NewService(users, refresh,
		token.NewSignerFromKey(key), token.NewVerifierFromKey(&key.PublicKey),
		userData, 15*time.Minute, 7*24*time.Hour, zap.NewNop())
	return svc, users, refresh
}

func register(t *testing.T, svc *Service) (*models.IdentityModel, TokenPair) {
	t.Helper()
	user, pair, err := svc.Register(context.Background(),
		&RegisterDTO{Email: "Pat@Example.com", Password: "sunny pup 1"})
	require.NoError(t, err)
	return user, pair
}

func TestRegisterFoldsEmailAndAutoLogs(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)

	user, pair := register(t, svc)
	assert.Equal(t, "pat@example.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEmpty(t, pair.Access)
	assert.NotEmpty(t, pair.Refresh)
	assert.Equal(t, 1, refresh.activeCount(user.ID))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	register(t, svc)

	_, _, err := svc.Register(context.Background(),
		&RegisterDTO{Email: "PAT@example.com", Password: "sunny pup 1"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	register(t, svc)

	_, _, err := svc.Login(context.Background(), "pat@example.com", "wrong pass 1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "sunny pup 1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, users, _ := newTestService(t, nil)
	user, _ := register(t, svc)

	users.mu.Lock()
	users.users[user.ID].IsActive = false
	users.mu.Unlock()

	_, _, err := svc.Login(context.Background(), "pat@example.com", "sunny pup 1")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLoginEnforcesSingleSession(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	user, _ := register(t, svc)

	for i := 0; i < 3; i++ {
		_, _, err := svc.Login(context.Background(), "pat@example.com", "sunny pup 1")
		require.NoError(t, err)
	}
	assert.Equal(t, 1, refresh.activeCount(user.ID))
}

func TestRefreshRotates(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	user, pair := register(t, svc)

	_, next, err := svc.Refresh(context.Background(), pair.Refresh)
	require.NoError(t, err)
	assert.NotEqual(t, pair.Refresh, next.Refresh)
	assert.Equal(t, 1, refresh.activeCount(user.ID))

	// Replaying the consumed token fails.
	_, _, err = svc.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	// The new token still works.
	_, _, err = svc.Refresh(context.Background(), next.Refresh)
	assert.NoError(t, err)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	register(t, svc)

	_, _, err := svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestRefreshRejectsExpiredRecord(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	_, pair := register(t, svc)

	refresh.mu.Lock()
	for _, rec := range refresh.recs {
		rec.ExpiresAt = time.Now().Add(-time.Hour)
	}
	refresh.mu.Unlock()

	_, _, err := svc.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, token.ErrExpired)
}

func TestRefreshRejectsDigestMismatch(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	_, pair := register(t, svc)

	refresh.mu.Lock()
	for _, rec := range refresh.recs {
		rec.TokenDigest = token.Digest("something else")
	}
	refresh.mu.Unlock()

	_, _, err := svc.Refresh(context.Background(), pair.Refresh)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	user, pair := register(t, svc)

	svc.Logout(context.Background(), pair.Refresh)
	assert.Equal(t, 0, refresh.activeCount(user.ID))

	// Second logout with the same token is a no-op.
	svc.Logout(context.Background(), pair.Refresh)
	svc.Logout(context.Background(), "garbage")
}

func TestChangePasswordRevokesAll(t *testing.T) {
	svc, _, refresh := newTestService(t, nil)
	user, pair := register(t, svc)

	_, next, err := svc.ChangePassword(context.Background(), user.ID,
		&ChangePasswordDTO{CurrentPassword: "sunny pup 1", NewPassword: "rainy cat 2"})
	require.NoError(t, err)

	// Old refresh chain is dead, new one works.
	_, _, err = svc.Refresh(context.Background(), pair.Refresh)
	assert.Error(t, err)
	_, _, err = svc.Refresh(context.Background(), next.Refresh)
	assert.NoError(t, err)
	assert.Equal(t, 1, refresh.activeCount(user.ID))

	// Old password no longer logs in.
	_, _, err = svc.Login(context.Background(), "pat@example.com", "sunny pup 1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login(context.Background(), "pat@example.com", "rainy cat 2")
	assert.NoError(t, err)
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	user, _ := register(t, svc)

	_, _, err := svc.ChangePassword(context.Background(), user.ID,
		&ChangePasswordDTO{CurrentPassword: "wrong 1", NewPassword: "rainy cat 2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestDeleteSelfRemovesIdentityAfterUserData(t *testing.T) {
	userData := &fakeUserData{summary: DeletionSummary{ProfilesDeleted: 1, PetsDeleted: 2, AnalysesDeleted: 3}}
	svc, users, _ := newTestService(t, userData)
	user, _ := register(t, svc)

	summary, err := svc.DeleteSelf(context.Background(), user.ID, user.Role)
	require.NoError(t, err)
	assert.True(t, userData.called)
	assert.Equal(t, 2, summary.PetsDeleted)

	_, err = users.FindByID(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteSelfKeepsIdentityWhenUserDataFails(t *testing.T) {
	userData := &fakeUserData{fail: true}
	svc, users, _ := newTestService(t, userData)
	user, _ := register(t, svc)

	_, err := svc.DeleteSelf(context.Background(), user.ID, user.Role)
	assert.ErrorIs(t, err, ErrDeletionFailed)

	_, err = users.FindByID(context.Background(), user.ID)
	assert.NoError(t, err)
}
