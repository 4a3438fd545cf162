package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	AddToGroup(ctx context.Context, userID, group string) error
	RemoveFromGroup(ctx context.Context, userID, group string) error
	RevokeUserRefreshTokens(ctx context.Context, userID string) error
}

// CreateUserRequest represents payload for creating accounts from the admin CLI.
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	FullName    string `json:"full_name" validate:"required,max=150"`
	Password    string `json:"password" validate:"required,min=8"`
	IsSuperuser bool   `json:"is_superuser"`
	SiteAdmin   bool   `json:"site_admin"`
}

// UserService manages accounts and site_admin membership. Role changes take effect at the
// user's next login or token refresh.
type UserService struct {
	repo      userRepository
	audit     *AuditService
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, audit *AuditService, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &UserService{repo: repo, audit: audit, cache: cache, validator: validate, logger: logger}
}

// Create adds a new active account, optionally in the site_admin group.
func (s *UserService) Create(ctx context.Context, actor *models.Principal, req CreateUserRequest) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateForm(s.validator, req, "invalid create user payload"); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check email uniqueness")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		FullName:     req.FullName,
		IsSuperuser:  req.IsSuperuser,
		Active:       true,
		PasswordHash: string(passwordHash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Internal(err, "failed to create user")
	}
	s.audit.Record(ctx, actor, AuditEntry{
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: user.ID,
		New:        map[string]interface{}{"email": user.Email, "is_superuser": user.IsSuperuser},
	})

	if req.SiteAdmin {
		if err := s.GrantSiteAdmin(ctx, actor, user.ID); err != nil {
			return nil, err
		}
		user.Groups = []string{models.SiteAdminGroup}
	}
	return user, nil
}

// Delete removes an account. Its reports stay, with the reporter cleared, so cached
// dashboards are dropped.
func (s *UserService) Delete(ctx context.Context, actor *models.Principal, id string) error {
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Internal(err, "failed to delete user")
	}
	s.cache.Invalidate(ctx, dashboardCachePattern)
	s.audit.Record(ctx, actor, AuditEntry{
		Action:     models.AuditActionUserDelete,
		Resource:   "users",
		ResourceID: id,
		Old:        map[string]interface{}{"email": user.Email},
	})
	return nil
}

// GrantSiteAdmin adds the user to the site_admin group.
func (s *UserService) GrantSiteAdmin(ctx context.Context, actor *models.Principal, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.AddToGroup(ctx, id, models.SiteAdminGroup); err != nil {
		return appErrors.Internal(err, "failed to grant site admin")
	}
	s.audit.Record(ctx, actor, AuditEntry{
		Action:     models.AuditActionGroupGrant,
		Resource:   "user_groups",
		ResourceID: id,
		New:        map[string]string{"group": models.SiteAdminGroup},
	})
	return nil
}

// RevokeSiteAdmin removes the user from site_admin and revokes their sessions so the
// elevated role cannot outlive the access token.
func (s *UserService) RevokeSiteAdmin(ctx context.Context, actor *models.Principal, id string) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}
	if err := s.repo.RemoveFromGroup(ctx, id, models.SiteAdminGroup); err != nil {
		return appErrors.Internal(err, "failed to revoke site admin")
	}
	if err := s.repo.RevokeUserRefreshTokens(ctx, id); err != nil {
		s.logger.Warn("failed to revoke sessions after group change", zap.String("user_id", id), zap.Error(err))
	}
	s.audit.Record(ctx, actor, AuditEntry{
		Action:     models.AuditActionGroupRevoke,
		Resource:   "user_groups",
		ResourceID: id,
		Old:        map[string]string{"group": models.SiteAdminGroup},
	})
	return nil
}

// Lookup resolves an account by id or email.
func (s *UserService) Lookup(ctx context.Context, idOrEmail string) (*models.User, error) {
	if strings.Contains(idOrEmail, "@") {
		user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(idOrEmail)))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
			}
			return nil, appErrors.Internal(err, "failed to load user")
		}
		return user, nil
	}
	return s.load(ctx, idOrEmail)
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}
