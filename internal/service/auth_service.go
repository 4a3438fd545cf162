package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/whistle-api/internal/models"
	appErrors "github.com/noah-isme/whistle-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
}

// AuthService issues and verifies sessions. The session role is taken from site_admin
// group membership when the token is minted.
type AuthService struct {
	repo      authUserRepository
	audit     *AuditService
	policy    AccessPolicy
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, audit *AuditService, policy AccessPolicy, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	if config.RefreshTokenExpiry <= 0 {
		config.RefreshTokenExpiry = 7 * 24 * time.Hour
	}
	return &AuthService{repo: repo, audit: audit, policy: policy, validator: validate, logger: logger, config: config, now: time.Now}
}

// Login authenticates a user and returns issued tokens plus the post-login redirect target.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if err := validateForm(s.validator, req, "invalid login payload"); err != nil {
		return nil, err
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	principal := principalFor(user)
	accessToken, err := s.generateAccessToken(principal)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create access token")
	}
	refresh, err := s.issueRefreshToken(ctx, user.ID, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to update last login", zap.Error(err))
	}
	s.audit.Record(ctx, principal, AuditEntry{
		Action:     models.AuditActionLogin,
		Resource:   "auth",
		ResourceID: user.ID,
		New:        map[string]string{"status": "success", "role": string(principal.Role)},
	})

	return &models.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     now,
		RedirectTo:   s.policy.RedirectTarget(principal),
		User: models.UserInfo{
			ID:          user.ID,
			Email:       user.Email,
			FullName:    user.FullName,
			Role:        principal.Role,
			IsSuperuser: user.IsSuperuser,
		},
	}, nil
}

// RefreshToken rotates a refresh token. Group membership is re-read so role changes apply.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := validateForm(s.validator, req, "invalid refresh payload"); err != nil {
		return nil, err
	}

	stored, err := s.repo.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
		}
		return nil, appErrors.Internal(err, "failed to fetch refresh token")
	}
	if !stored.Usable(s.now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now().UTC()); err != nil {
		s.logger.Warn("failed to revoke used refresh token", zap.Error(err))
	}

	accessToken, err := s.generateAccessToken(principalFor(user))
	if err != nil {
		return nil, appErrors.Internal(err, "failed to generate access token")
	}
	refresh, err := s.issueRefreshToken(ctx, user.ID, req.IP, req.UserAgent)
	if err != nil {
		return nil, err
	}

	return &models.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     s.now().UTC(),
	}, nil
}

// Logout revokes the refresh token if it belongs to p. Logging out is always allowed, so
// unknown tokens and anonymous callers are not errors.
func (s *AuthService) Logout(ctx context.Context, p *models.Principal, refreshToken string) error {
	if refreshToken != "" {
		stored, err := s.repo.FindRefreshToken(ctx, refreshToken)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return appErrors.Internal(err, "failed to load refresh token")
		case p.Authenticated() && stored.UserID != p.UserID:
			s.logger.Warn("logout with foreign refresh token", zap.String("user_id", p.UserID))
		default:
			if err := s.repo.RevokeRefreshToken(ctx, stored.ID, s.now().UTC()); err != nil {
				return appErrors.Internal(err, "failed to revoke refresh token")
			}
		}
	}
	if p.Authenticated() {
		s.audit.Record(ctx, p, AuditEntry{
			Action:     models.AuditActionLogout,
			Resource:   "auth",
			ResourceID: p.UserID,
		})
	}
	return nil
}

// Profile returns the account behind p.
func (s *AuthService) Profile(ctx context.Context, p *models.Principal) (*models.User, error) {
	if !p.Authenticated() {
		return nil, appErrors.ErrUnauthorized
	}
	user, err := s.repo.FindByID(ctx, p.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now)}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.AccessTokenSecret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// AccessTokenTTL is the lifetime of issued access tokens.
func (s *AuthService) AccessTokenTTL() time.Duration {
	return s.config.AccessTokenExpiry
}

// RefreshTokenTTL is the lifetime of issued refresh tokens.
func (s *AuthService) RefreshTokenTTL() time.Duration {
	return s.config.RefreshTokenExpiry
}

func principalFor(user *models.User) *models.Principal {
	return &models.Principal{
		UserID:      user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        models.RoleFromGroups(user.Groups),
		IsSuperuser: user.IsSuperuser,
	}
}

func (s *AuthService) generateAccessToken(p *models.Principal) (string, error) {
	issuedAt := s.now().UTC()
	claims := &models.JWTClaims{
		UserID:      p.UserID,
		Role:        p.Role,
		Email:       p.Email,
		FullName:    p.FullName,
		IsSuperuser: p.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   p.UserID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

func (s *AuthService) issueRefreshToken(ctx context.Context, userID, ip, userAgent string) (*models.RefreshToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, appErrors.Internal(err, "failed to create refresh token")
	}
	now := s.now().UTC()
	token := &models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     base64.RawURLEncoding.EncodeToString(buf),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: ip,
		UserAgent: userAgent,
	}
	if err := s.repo.CreateRefreshToken(ctx, token); err != nil {
		return nil, appErrors.Internal(err, fmt.Sprintf("failed to persist refresh token for %s", userID))
	}
	return token, nil
}
