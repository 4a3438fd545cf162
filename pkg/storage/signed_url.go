package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Signed link failures.
var (
	ErrTokenMalformed = errors.New("malformed download token")
	ErrTokenSignature = errors.New("invalid download token signature")
	ErrTokenExpired   = errors.New("download token expired")
)

// DownloadGrant is the attachment a verified token points at.
type DownloadGrant struct {
	ReportID  int64
	FileID    int64
	ExpiresAt time.Time
}

// SignedURLSigner issues short-lived tokens for attachment downloads.
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner constructs a signer with the provided secret and TTL.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// TTL returns how long issued tokens stay valid.
func (s *SignedURLSigner) TTL() time.Duration {
	return s.ttl
}

// Sign returns a token granting access to one attachment of one report.
func (s *SignedURLSigner) Sign(reportID, fileID int64) (string, time.Time, error) {
	if reportID <= 0 || fileID <= 0 {
		return "", time.Time{}, fmt.Errorf("report and file id required")
	}
	if len(s.secret) == 0 {
		return "", time.Time{}, fmt.Errorf("signing secret missing")
	}
	expiresAt := s.now().Add(s.ttl).Truncate(time.Second)
	parts := []string{
		strconv.FormatInt(reportID, 10),
		strconv.FormatInt(fileID, 10),
		strconv.FormatInt(expiresAt.Unix(), 10),
	}
	token := strings.Join(append(parts, s.mac(parts)), ".")
	return token, expiresAt, nil
}

// Verify checks the token signature and expiry and returns the grant it carries.
func (s *SignedURLSigner) Verify(token string) (*DownloadGrant, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 4 {
		return nil, ErrTokenMalformed
	}
	if !hmac.Equal([]byte(s.mac(parts[:3])), []byte(parts[3])) {
		return nil, ErrTokenSignature
	}
	reportID, err1 := strconv.ParseInt(parts[0], 10, 64)
	fileID, err2 := strconv.ParseInt(parts[1], 10, 64)
	expUnix, err3 := strconv.ParseInt(parts[2], 10, 64)
	if err := errors.Join(err1, err2, err3); err != nil {
		return nil, ErrTokenMalformed
	}
	expiresAt := time.Unix(expUnix, 0)
	if s.now().After(expiresAt) {
		return nil, ErrTokenExpired
	}
	return &DownloadGrant{ReportID: reportID, FileID: fileID, ExpiresAt: expiresAt}, nil
}

func (s *SignedURLSigner) mac(parts []string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))
}
