// Package service contains the business logic layer of the application.
//
// Handlers parse HTTP and write responses; services enforce the rules;
// repositories read and write rows. Services receive repository INTERFACES,
// not concrete types, so tests swap in in-memory fakes and the wiring in
// the server package decides what runs in production.
//
// The invariant this package guards above all others: the follow relation
// is stored on both endpoints, and after every mutation
//
//	B.Name ∈ A.Following  ⇔  A.Name ∈ B.Followers
//
// with no account ever following itself. Nothing in the storage schema
// enforces this — every code path that touches the graph goes through the
// methods here, and they keep both sides in step.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/social-network/internal/apperror"
	"github.com/sakif/social-network/internal/auth"
	"github.com/sakif/social-network/internal/model"
	"github.com/sakif/social-network/internal/repository"
)

const (
	MaxUsernameLength = 50
	MaxNameLength     = 50
)

// AccountService handles registration, lookups, the social graph, and the
// deletion cascade.
//
// It holds the post repository as well as the account repository because
// deleting an account must also delete that account's posts — posts
// reference their author by display name, and nothing else will clean them
// up.
type AccountService struct {
	accounts  repository.AccountRepository
	posts     repository.PostRepository
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAccountService(
	accounts repository.AccountRepository,
	posts repository.PostRepository,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		accounts:  accounts,
		posts:     posts,
		passwords: passwords,
		logger:    logger,
	}
}

// Register creates a new account with empty follow sets.
//
// Uniqueness of username and display name is checked with one combined
// lookup, then disambiguated, so the error can say WHICH field collided
// without two round trips.
func (s *AccountService) Register(ctx context.Context, username, password, name string) (*model.Account, error) {
	username = strings.TrimSpace(username)
	name = strings.TrimSpace(name)

	if username == "" {
		return nil, apperror.ValidationFailed("username", "username is required")
	}
	if len(username) > MaxUsernameLength {
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("username must be %d characters or less", MaxUsernameLength))
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}

	existing, err := s.accounts.FindByUsernameOrName(ctx, username, name)
	if err != nil {
		return nil, fmt.Errorf("checking for existing account: %w", err)
	}
	if existing != nil {
		if existing.Username == username {
			return nil, apperror.Conflict("username already used by another account", "username")
		}
		return nil, apperror.Conflict("name already used by another account", "name")
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	account := &model.Account{
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		Following:    []string{},
		Followers:    []string{},
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		s.logger.Error("failed to create account",
			slog.String("username", username),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating account: %w", err)
	}

	s.logger.Info("account registered",
		slog.String("id", account.ID),
		slog.String("username", account.Username),
		slog.String("name", account.Name),
	)

	return account, nil
}

// GetByID returns the account for the given internal id. Used by
// /accounts/me after the middleware has validated the access token.
func (s *AccountService) GetByID(ctx context.Context, id string) (*model.Account, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "account id is required")
	}
	return s.accounts.GetByID(ctx, id)
}

// GetByName resolves an account by its public display name.
func (s *AccountService) GetByName(ctx context.Context, name string) (*model.Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	return s.accounts.GetByName(ctx, name)
}

// ListOthers returns every account except the caller's own, for the
// account directory.
func (s *AccountService) ListOthers(ctx context.Context, callerID string) ([]model.Account, error) {
	all, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}

	others := make([]model.Account, 0, len(all))
	for _, a := range all {
		if a.ID != callerID {
			others = append(others, a)
		}
	}
	return others, nil
}

// Follow adds a directed edge from the actor to the target, written to both
// endpoints.
//
// Failure order matters and is part of the contract:
//  1. either side missing          → NotFound
//  2. actor and target are the same → InvalidOperation
//  3. edge already present          → Conflict (and the sets are untouched,
//     so re-issuing a follow after an ambiguous failure is safe)
//
// The two updated rows are persisted in one transaction by the repository,
// which is what keeps a crash from leaving the edge on one side only.
func (s *AccountService) Follow(ctx context.Context, actorUsername, targetName string) (*model.Account, error) {
	actor, target, err := s.resolvePair(ctx, actorUsername, targetName)
	if err != nil {
		return nil, err
	}

	if actor.Name == target.Name {
		return nil, apperror.InvalidOperation("cannot follow yourself")
	}
	if actor.IsFollowing(target.Name) {
		return nil, apperror.Conflict("already following "+target.Name, "name")
	}

	actor.Following = append(actor.Following, target.Name)
	target.Followers = append(target.Followers, actor.Name)

	if err := s.accounts.UpdateGraphPair(ctx, actor, target); err != nil {
		s.logger.Error("failed to persist follow",
			slog.String("actor", actor.Name),
			slog.String("target", target.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("persisting follow: %w", err)
	}

	s.logger.Info("follow",
		slog.String("actor", actor.Name),
		slog.String("target", target.Name),
	)

	return actor, nil
}

// Unfollow removes the edge from both endpoints. Mirror image of Follow:
// NotFound if either side is missing, InvalidOperation on self-reference,
// and Conflict if the actor is not currently following the target — the
// same category the duplicate follow gets, since both are "the edge set is
// not in the state this call assumes".
func (s *AccountService) Unfollow(ctx context.Context, actorUsername, targetName string) (*model.Account, error) {
	actor, target, err := s.resolvePair(ctx, actorUsername, targetName)
	if err != nil {
		return nil, err
	}

	if actor.Name == target.Name {
		return nil, apperror.InvalidOperation("cannot unfollow yourself")
	}
	if !actor.IsFollowing(target.Name) {
		return nil, apperror.Conflict("not following "+target.Name, "name")
	}

	actor.Following = removeNameFrom(actor.Following, target.Name)
	target.Followers = removeNameFrom(target.Followers, actor.Name)

	if err := s.accounts.UpdateGraphPair(ctx, actor, target); err != nil {
		s.logger.Error("failed to persist unfollow",
			slog.String("actor", actor.Name),
			slog.String("target", target.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("persisting unfollow: %w", err)
	}

	s.logger.Info("unfollow",
		slog.String("actor", actor.Name),
		slog.String("target", target.Name),
	)

	return actor, nil
}

// resolvePair loads the actor by login username and the target by display
// name. The two sides of every graph mutation.
func (s *AccountService) resolvePair(ctx context.Context, actorUsername, targetName string) (actor, target *model.Account, err error) {
	targetName = strings.TrimSpace(targetName)
	if targetName == "" {
		return nil, nil, apperror.ValidationFailed("name", "target name is required")
	}

	actor, err = s.accounts.GetByUsername(ctx, actorUsername)
	if err != nil {
		return nil, nil, err
	}
	target, err = s.accounts.GetByName(ctx, targetName)
	if err != nil {
		return nil, nil, err
	}
	return actor, target, nil
}

// UpdateName changes the account's public display name.
//
// The display name is the graph-node key and the post authorship key, so a
// rename rewrites every stored occurrence (peers' follow sets, posts,
// comments) in one repository transaction. Without that, the renamed
// account would silently lose its followers, its posts, and ownership of
// its comments.
func (s *AccountService) UpdateName(ctx context.Context, username, newName string) (*model.Account, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(newName) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if account.Name == newName {
		return account, nil
	}

	if taken, err := s.accounts.GetByName(ctx, newName); err == nil && taken != nil {
		return nil, apperror.Conflict("name already used by another account", "name")
	}

	oldName := account.Name
	if err := s.accounts.Rename(ctx, account.ID, oldName, newName); err != nil {
		s.logger.Error("failed to rename account",
			slog.String("id", account.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("renaming account: %w", err)
	}

	s.logger.Info("account renamed",
		slog.String("id", account.ID),
		slog.String("from", oldName),
		slog.String("to", newName),
	)

	account.Name = newName
	return account, nil
}

// DeletionSummary reports what an account deletion removed.
type DeletionSummary struct {
	Username     string `json:"username"`
	RemovedPosts int64  `json:"removedPosts"`
}

// DeleteAccount runs the full deletion cascade:
//
//  1. resolve the account (NotFound if absent)
//  2. delete every post authored under its display name
//  3. purge the display name from every other account's follow sets
//  4. delete the account record itself — LAST
//
// Steps 2 and 3 are idempotent, and the account row is only removed once
// they have both succeeded. A failure partway therefore leaves the account
// resolvable and the whole call safe to re-issue; the retry re-runs the
// cleanups as no-ops and finishes the job.
func (s *AccountService) DeleteAccount(ctx context.Context, username string) (*DeletionSummary, error) {
	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	removed, err := s.posts.DeleteByAuthor(ctx, account.Name)
	if err != nil {
		s.logger.Error("cascade: failed to delete posts",
			slog.String("name", account.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("deleting posts of %s: %w", account.Name, err)
	}

	if err := s.accounts.PurgeName(ctx, account.Name); err != nil {
		s.logger.Error("cascade: failed to purge graph",
			slog.String("name", account.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("purging %s from graph: %w", account.Name, err)
	}

	if err := s.accounts.Delete(ctx, username); err != nil {
		return nil, fmt.Errorf("deleting account %s: %w", username, err)
	}

	s.logger.Info("account deleted",
		slog.String("username", username),
		slog.String("name", account.Name),
		slog.Int64("removedPosts", removed),
	)

	return &DeletionSummary{Username: username, RemovedPosts: removed}, nil
}

func removeNameFrom(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}
