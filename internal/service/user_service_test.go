package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

type fakeUserRepo struct {
	users   map[string]*models.User
	revoked []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*models.User{}}
}

func (f *fakeUserRepo) FindByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = "id-" + user.Email
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := f.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) AddToGroup(_ context.Context, userID, group string) error {
	u := f.users[userID]
	for _, g := range u.Groups {
		if g == group {
			return nil
		}
	}
	u.Groups = append(u.Groups, group)
	return nil
}

func (f *fakeUserRepo) RemoveFromGroup(_ context.Context, userID, group string) error {
	u := f.users[userID]
	kept := u.Groups[:0]
	for _, g := range u.Groups {
		if g != group {
			kept = append(kept, g)
		}
	}
	u.Groups = kept
	return nil
}

func (f *fakeUserRepo) RevokeUserRefreshTokens(_ context.Context, userID string) error {
	f.revoked = append(f.revoked, userID)
	return nil
}

func TestUserServiceCreate(t *testing.T) {
	repo := newFakeUserRepo()
	audit := &fakeAuditRepo{}
	svc := NewUserService(repo, NewAuditService(audit, zap.NewNop()), nil, nil, nil)

	user, err := svc.Create(context.Background(), nil, CreateUserRequest{
		Email: " Admin@Example.com ", FullName: "Site Admin", Password: "s3cret-pass", SiteAdmin: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))
	assert.Equal(t, models.RoleSiteAdmin, models.RoleFromGroups(repo.users[user.ID].Groups))
	assert.Equal(t, []string{models.AuditActionUserCreate, models.AuditActionGroupGrant}, audit.actions())

	_, err = svc.Create(context.Background(), nil, CreateUserRequest{Email: "admin@example.com", FullName: "Again", Password: "another-pass"})
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = svc.Create(context.Background(), nil, CreateUserRequest{Email: "x@example.com", FullName: "Short", Password: "short"})
	require.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, appErrors.FromError(err).Fields, "password")
}

func TestUserServiceRevokeSiteAdmin(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["u1"] = &models.User{ID: "u1", Email: "a@example.com", Groups: []string{models.SiteAdminGroup}}
	svc := NewUserService(repo, nil, nil, nil, nil)

	require.NoError(t, svc.RevokeSiteAdmin(context.Background(), siteAdmin, "u1"))
	assert.Empty(t, repo.users["u1"].Groups)
	assert.Equal(t, []string{"u1"}, repo.revoked)

	assert.ErrorIs(t, svc.GrantSiteAdmin(context.Background(), siteAdmin, "missing"), appErrors.ErrNotFound)
}

func TestUserServiceDeleteAndLookup(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["u1"] = &models.User{ID: "u1", Email: "a@example.com"}
	dashboards := newMemoryCache()
	svc := NewUserService(repo, nil, NewCacheService(dashboards, nil, 0, nil, true), nil, nil)

	found, err := svc.Lookup(context.Background(), "A@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u1", found.ID)

	require.NoError(t, svc.Delete(context.Background(), nil, "u1"))
	assert.Equal(t, []string{dashboardCachePattern}, dashboards.invalidated)
	assert.ErrorIs(t, svc.Delete(context.Background(), nil, "u1"), appErrors.ErrNotFound)
	_, err = svc.Lookup(context.Background(), "u1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
