// Package repository declares the storage interfaces the service layer
// programs against. The sqlite subpackage provides the one real
// implementation; tests substitute in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/social-network/internal/model"
)

// AccountRepository stores accounts and the denormalized follow sets that
// live on them.
//
// UpdateGraphPair exists because follow/unfollow touch two account records
// at once: the implementation must persist both sides in a single atomic
// write so the symmetry invariant cannot be observed half-applied. The
// other graph mutators (PurgeName, RenameEverywhere) are bulk rewrites that
// must be idempotent — safe to re-run if a caller retries after a failure.
type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	GetByID(ctx context.Context, id string) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByName(ctx context.Context, name string) (*model.Account, error)
	// FindByUsernameOrName returns any account whose username OR display
	// name matches, for single-lookup conflict detection on registration.
	// Returns (nil, nil) when neither matches.
	FindByUsernameOrName(ctx context.Context, username, name string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	// UpdateGraphPair persists the Following/Followers sets of both
	// accounts atomically.
	UpdateGraphPair(ctx context.Context, a, b *model.Account) error
	// PurgeName removes the given display name from every account's
	// Following and Followers sets.
	PurgeName(ctx context.Context, name string) error
	// Rename updates the account's display name and rewrites every
	// occurrence of the old name: other accounts' follow sets and the
	// authorship key on posts. All rewrites happen atomically, since a
	// half-renamed graph would leave dangling edges with no retry path
	// (the old name no longer resolves once the account row is updated).
	Rename(ctx context.Context, id, oldName, newName string) error
	Delete(ctx context.Context, username string) error
}

// PostRepository stores posts with their embedded comment sequences.
//
// Method names carry the Post suffix because the sqlite implementation
// lives on the same *DB as AccountRepository, whose method set already
// claims the bare CRUD names.
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	// ListByAuthors returns all posts whose author is in names, newest
	// first. An empty names slice yields an empty result, not an error.
	ListByAuthors(ctx context.Context, names []string) ([]model.Post, error)
	// UpdatePost persists the post's text and comment sequence.
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id string) error
	// DeleteByAuthor removes every post by the given display name and
	// returns how many were removed. Zero is not an error.
	DeleteByAuthor(ctx context.Context, name string) (int64, error)
}
