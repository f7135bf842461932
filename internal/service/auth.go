// Package service — session issuance.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/social-network/internal/apperror"
	"github.com/sakif/social-network/internal/auth"
	"github.com/sakif/social-network/internal/repository"
)

// AuthService is the session issuer: it exchanges credentials for a token
// pair and refresh tokens for fresh access tokens. It never stores session
// state — validity lives entirely inside the signed tokens.
type AuthService struct {
	accounts  repository.AccountRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	accounts repository.AccountRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		accounts:  accounts,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// TokenPair is what a successful sign-in returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// SignIn verifies the credentials and issues an access/refresh token pair.
//
// An unknown username and a wrong password produce the IDENTICAL error —
// same category, same message — so the response can't be used to probe
// which usernames exist.
func (s *AuthService) SignIn(ctx context.Context, username, password string) (*TokenPair, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.Unauthorized()
	}

	if err := s.passwords.Verify(account.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized()
	}

	access, err := s.tokens.GenerateAccess(auth.Identity{
		ID:       account.ID,
		Username: account.Username,
		Name:     account.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("issuing access token: %w", err)
	}

	refresh, err := s.tokens.GenerateRefresh(account.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing refresh token: %w", err)
	}

	s.logger.Info("sign-in", slog.String("username", account.Username))

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh redeems a refresh token for a new access token.
//
// The refresh token carries only the account id. The username and display
// name in the new access token are read from the CURRENT account record,
// not echoed from the old token — so an account renamed since login gets
// correct claims on its next refresh. Unauthorized if the token fails
// structural verification or its subject no longer resolves.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	accountID, err := s.tokens.ValidateRefresh(refreshToken)
	if err != nil {
		return "", apperror.Unauthorized()
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", apperror.Unauthorized()
	}

	access, err := s.tokens.GenerateAccess(auth.Identity{
		ID:       account.ID,
		Username: account.Username,
		Name:     account.Name,
	})
	if err != nil {
		return "", fmt.Errorf("issuing access token: %w", err)
	}

	s.logger.Info("token refreshed", slog.String("username", account.Username))

	return access, nil
}
