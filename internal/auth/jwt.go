// Package auth provides JWT token generation and validation plus password
// hashing for the social-network API.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. Client POSTs /auth/login with username + password
// 2. Server verifies the bcrypt hash and issues a token PAIR:
//    - access token  (15 minutes) — sent as "Authorization: Bearer ..." on
//      every protected request; carries the account id, username and name
//    - refresh token (7 days) — carries only the account id; its single
//      purpose is POST /auth/refresh, which mints a fresh access token
// 3. Middleware validates the access token and puts the caller's identity
//    in the request context
//
// WHY TWO TOKENS?
// The access token crosses the wire on every request, so it is kept short-
// lived to limit the damage window if it leaks. The refresh token crosses
// the wire only on renewal and deliberately carries nothing but the subject
// id — the username and display name in a renewed access token are re-read
// from the database, so a renamed account gets correct claims.
//
// Neither token is stored server-side. Validity is structural (signature +
// expiry) and a token cannot be revoked before it expires. That is a known
// trade-off for the simplicity of a stateless session model.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	issuer = "social-network"

	// AccessTokenTTL and RefreshTokenTTL are exported so tests and the
	// handler layer can reference the configured lifetimes.
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Identity is the authenticated caller as carried by an access token.
type Identity struct {
	ID       string
	Username string
	Name     string
}

// TokenService mints and verifies the access/refresh token pair.
//
// It holds the HMAC secret used to sign and verify tokens. The secret is
// injected at construction — there is no package-level signing state.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService with the given secret.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	return &TokenService{secret: []byte(secret)}, nil
}

// accessClaims is the access-token payload. The subject holds the account
// id; username and name ride along so protected handlers can act on the
// caller's identity without a database lookup per request.
type accessClaims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// refreshClaims is the refresh-token payload: registered claims only, with
// the account id in the subject. No username, no display name — those are
// resolved from the current account record when the token is redeemed.
type refreshClaims struct {
	jwt.RegisteredClaims
}

// GenerateAccess creates and signs a 15-minute access token for the given
// identity.
//
// Signing algorithm: HS256 (HMAC-SHA256) — symmetric, same key signs and
// verifies, which is all a single-server deployment needs.
func (s *TokenService) GenerateAccess(id Identity) (string, error) {
	now := time.Now()

	c := accessClaims{
		Username: id.Username,
		Name:     id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing access token: %w", err)
	}

	return signed, nil
}

// GenerateRefresh creates and signs a 7-day refresh token carrying only the
// account id.
func (s *TokenService) GenerateRefresh(accountID string) (string, error) {
	now := time.Now()

	c := refreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(RefreshTokenTTL)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing refresh token: %w", err)
	}

	return signed, nil
}

// ValidateAccess parses and verifies an access token and returns the
// identity it encodes.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks —
//     jwt.WithValidMethods rejects "none" and RS256-signed tokens)
func (s *TokenService) ValidateAccess(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&accessClaims{},
		s.keyFunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: token expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("auth: token has no subject")
	}

	return Identity{ID: c.Subject, Username: c.Username, Name: c.Name}, nil
}

// ValidateRefresh parses and verifies a refresh token and returns the
// account id in its subject. Validity is purely structural — the caller is
// responsible for checking that the subject still resolves to an account.
func (s *TokenService) ValidateRefresh(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&refreshClaims{},
		s.keyFunc,
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("auth: token expired")
		}
		return "", fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*refreshClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("auth: token has no subject")
	}

	return c.Subject, nil
}

func (s *TokenService) keyFunc(token *jwt.Token) (any, error) {
	// Reject tokens that aren't signed with HMAC
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}
