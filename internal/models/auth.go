package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required"`
	IP        string `json:"-" form:"-"`
	UserAgent string `json:"-" form:"-"`
}

// LoginResponse returns the issued tokens, the signed-in user and where to go next.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
	RedirectTo   string    `json:"redirect_to"`
}

// RefreshTokenRequest exchanges a refresh token for a new access token.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IP           string `json:"-"`
	UserAgent    string `json:"-"`
}

// RefreshTokenResponse returns the refreshed tokens.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	Role        UserRole `json:"role"`
	IsSuperuser bool     `json:"is_superuser"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID      string   `json:"user_id"`
	Role        UserRole `json:"role"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name"`
	IsSuperuser bool     `json:"is_superuser,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts verified claims into the caller identity used by services.
func (c *JWTClaims) Principal() *Principal {
	if c == nil {
		return nil
	}
	return &Principal{
		UserID:      c.UserID,
		Email:       c.Email,
		FullName:    c.FullName,
		Role:        c.Role,
		IsSuperuser: c.IsSuperuser,
	}
}
