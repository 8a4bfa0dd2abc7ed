// Package services – AuthService
//
// This file implements the AuthService, the control-plane login flow. It
// verifies the platform-native login proof (the Telegram Login Widget
// payload, HMAC-signed with a key derived from the bot token), upserts the
// principal, opens a session, and wraps the opaque session token inside a
// signed, time-boxed JWT. JWT lifetime and session lifetime are configured to
// match; a refresh replaces both.
package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/dkraev/tg-bot-backend/internal/config"
	"github.com/dkraev/tg-bot-backend/internal/domain"
	"github.com/dkraev/tg-bot-backend/internal/repo"
)

// loginMaxAge bounds how stale a login payload's auth_date may be.
const loginMaxAge = 24 * time.Hour

// LoginRequest is the Telegram Login Widget payload presented at /auth/login.
type LoginRequest struct {
	ID        int64  `json:"id"         binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	PhotoURL  string `json:"photo_url"`
	AuthDate  int64  `json:"auth_date"  binding:"required"`
	Hash      string `json:"hash"       binding:"required"`
}

// TokenPair is the credential set returned by login and refresh.
type TokenPair struct {
	// AccessToken is the signed JWT presented as the bearer credential.
	AccessToken string `json:"access_token"`
	// RefreshToken is the opaque session token; exchanging it at
	// /auth/refresh extends the session and yields a new JWT.
	RefreshToken string `json:"refresh_token"`
	// ExpiresAt is the shared expiry of both tokens.
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims is the JWT claim set: principal id (subject), the platform id, and
// the backing session token under "sid".
type Claims struct {
	PlatformID   int64  `json:"platform_id"`
	SessionToken string `json:"sid"`
	jwt.RegisteredClaims
}

// AuthService validates login proofs and issues/validates bearer tokens.
type AuthService struct {
	DB       *gorm.DB
	Sessions *SessionService
	JWT      config.JWTConfig

	// BotToken keys the login-proof HMAC (key = SHA256(BotToken)).
	BotToken string

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB, sessions *SessionService, jwtCfg config.JWTConfig, botToken string) *AuthService {
	return &AuthService{
		DB:       db,
		Sessions: sessions,
		JWT:      jwtCfg,
		BotToken: botToken,
		now:      time.Now,
	}
}

// Login verifies the platform proof, upserts the principal, opens a session,
// and returns the token pair. A blocked principal is rejected with
// ErrPrincipalBlocked even when the proof is valid.
func (a *AuthService) Login(ctx context.Context, req LoginRequest) (*TokenPair, error) {
	if !a.verifyLoginHash(req) {
		return nil, ErrInvalidLogin
	}
	if age := a.now().UTC().Sub(time.Unix(req.AuthDate, 0)); age > loginMaxAge || age < -5*time.Minute {
		return nil, ErrInvalidLogin
	}

	p := &domain.Principal{
		ID:        req.ID,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if err := repo.UpsertPrincipal(ctx, a.DB, p); err != nil {
		return nil, err
	}
	stored, err := repo.GetPrincipal(ctx, a.DB, req.ID)
	if err != nil {
		return nil, err
	}
	if stored.Blocked {
		return nil, ErrPrincipalBlocked
	}

	sess, err := a.Sessions.Create(ctx, stored.ID, 0, "")
	if err != nil {
		return nil, err
	}
	return a.pair(stored.ID, sess)
}

// Refresh exchanges a valid session token for an extended session and a new
// JWT. It fails with ErrSessionNotFound on unknown/expired tokens and with
// ErrPrincipalBlocked when the owner has been blocked since login.
func (a *AuthService) Refresh(ctx context.Context, sessionToken string) (*TokenPair, error) {
	sess, ok := a.Sessions.Refresh(ctx, sessionToken)
	if !ok {
		return nil, ErrSessionNotFound
	}
	p, err := repo.GetPrincipal(ctx, a.DB, sess.PrincipalID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if p.Blocked {
		return nil, ErrPrincipalBlocked
	}
	return a.pair(p.ID, sess)
}

// Logout invalidates the backing session. Idempotent.
func (a *AuthService) Logout(ctx context.Context, sessionToken string) error {
	return a.Sessions.Invalidate(ctx, sessionToken)
}

// VerifyToken parses and validates a bearer JWT (signature, issuer, audience,
// expiry) and returns its claims. Session validity is a separate check made
// by the auth gateway on every request.
func (a *AuthService) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
			}
			return []byte(a.JWT.Secret), nil
		},
		jwt.WithIssuer(a.JWT.Issuer),
		jwt.WithAudience(a.JWT.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.SessionToken == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// pair issues the JWT wrapping the session token and bundles both tokens.
func (a *AuthService) pair(principalID int64, sess *domain.Session) (*TokenPair, error) {
	now := a.now().UTC()
	claims := Claims{
		PlatformID:   principalID,
		SessionToken: sess.Token,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(principalID, 10),
			Issuer:    a.JWT.Issuer,
			Audience:  jwt.ClaimStrings{a.JWT.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &TokenPair{
		AccessToken:  signed,
		RefreshToken: sess.Token,
		ExpiresAt:    sess.ExpiresAt,
	}, nil
}

// verifyLoginHash checks the login payload signature: the data-check string
// is the key=value pairs (hash excluded, empty fields omitted) sorted
// alphabetically and joined with newlines, HMAC-SHA256 keyed by
// SHA256(bot token), hex-compared in constant time.
func (a *AuthService) verifyLoginHash(req LoginRequest) bool {
	if req.Hash == "" {
		return false
	}
	fields := map[string]string{
		"id":        strconv.FormatInt(req.ID, 10),
		"auth_date": strconv.FormatInt(req.AuthDate, 10),
	}
	if req.FirstName != "" {
		fields["first_name"] = req.FirstName
	}
	if req.LastName != "" {
		fields["last_name"] = req.LastName
	}
	if req.Username != "" {
		fields["username"] = req.Username
	}
	if req.PhotoURL != "" {
		fields["photo_url"] = req.PhotoURL
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}

	secret := sha256.Sum256([]byte(a.BotToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(strings.ToLower(req.Hash)))
}
