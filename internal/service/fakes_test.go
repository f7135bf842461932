package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/sakif/social-network/internal/apperror"
	"github.com/sakif/social-network/internal/model"
)

// In-memory fakes for the repository interfaces. They return COPIES from
// every read, so a service that mutates a fetched account or post only
// changes stored state through an explicit write call — same observable
// behavior as the real store.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAccountRepo struct {
	accounts map[string]*model.Account // keyed by ID

	nextID int
	// failUpdateGraph makes UpdateGraphPair fail without writing, to test
	// that callers surface the error and stored state is untouched.
	failUpdateGraph bool
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{accounts: make(map[string]*model.Account)}
}

func cloneAccount(a *model.Account) *model.Account {
	c := *a
	c.Following = slices.Clone(a.Following)
	c.Followers = slices.Clone(a.Followers)
	return &c
}

// add seeds an account directly, bypassing Create's ID assignment when the
// test supplies one.
func (f *fakeAccountRepo) add(a *model.Account) *model.Account {
	if a.ID == "" {
		f.nextID++
		a.ID = fmt.Sprintf("acct-%d", f.nextID)
	}
	if a.Following == nil {
		a.Following = []string{}
	}
	if a.Followers == nil {
		a.Followers = []string{}
	}
	f.accounts[a.ID] = cloneAccount(a)
	return a
}

func (f *fakeAccountRepo) Create(_ context.Context, account *model.Account) error {
	f.add(account)
	return nil
}

func (f *fakeAccountRepo) GetByID(_ context.Context, id string) (*model.Account, error) {
	if a, ok := f.accounts[id]; ok {
		return cloneAccount(a), nil
	}
	return nil, apperror.NotFound("account", id)
}

func (f *fakeAccountRepo) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	for _, a := range f.accounts {
		if a.Username == username {
			return cloneAccount(a), nil
		}
	}
	return nil, apperror.NotFound("account", username)
}

func (f *fakeAccountRepo) GetByName(_ context.Context, name string) (*model.Account, error) {
	for _, a := range f.accounts {
		if a.Name == name {
			return cloneAccount(a), nil
		}
	}
	return nil, apperror.NotFound("account", name)
}

func (f *fakeAccountRepo) FindByUsernameOrName(_ context.Context, username, name string) (*model.Account, error) {
	for _, a := range f.accounts {
		if a.Username == username || a.Name == name {
			return cloneAccount(a), nil
		}
	}
	return nil, nil
}

func (f *fakeAccountRepo) List(_ context.Context) ([]model.Account, error) {
	out := make([]model.Account, 0, len(f.accounts))
	for _, a := range f.accounts {
		out = append(out, *cloneAccount(a))
	}
	return out, nil
}

func (f *fakeAccountRepo) UpdateGraphPair(_ context.Context, a, b *model.Account) error {
	if f.failUpdateGraph {
		return fmt.Errorf("fake: graph write refused")
	}
	for _, acct := range []*model.Account{a, b} {
		if _, ok := f.accounts[acct.ID]; !ok {
			return apperror.NotFound("account", acct.ID)
		}
	}
	f.accounts[a.ID] = cloneAccount(a)
	f.accounts[b.ID] = cloneAccount(b)
	return nil
}

func (f *fakeAccountRepo) PurgeName(_ context.Context, name string) error {
	for _, a := range f.accounts {
		a.Following = slices.DeleteFunc(a.Following, func(n string) bool { return n == name })
		a.Followers = slices.DeleteFunc(a.Followers, func(n string) bool { return n == name })
	}
	return nil
}

func (f *fakeAccountRepo) Rename(_ context.Context, id, oldName, newName string) error {
	a, ok := f.accounts[id]
	if !ok {
		return apperror.NotFound("account", id)
	}
	a.Name = newName
	for _, peer := range f.accounts {
		for i, n := range peer.Following {
			if n == oldName {
				peer.Following[i] = newName
			}
		}
		for i, n := range peer.Followers {
			if n == oldName {
				peer.Followers[i] = newName
			}
		}
	}
	return nil
}

func (f *fakeAccountRepo) Delete(_ context.Context, username string) error {
	for id, a := range f.accounts {
		if a.Username == username {
			delete(f.accounts, id)
			return nil
		}
	}
	return apperror.NotFound("account", username)
}

// stored returns the account as the fake holds it, for assertions about
// persisted (not just returned) state.
func (f *fakeAccountRepo) stored(t *testing.T, id string) *model.Account {
	t.Helper()
	a, ok := f.accounts[id]
	if !ok {
		t.Fatalf("account %s not in fake store", id)
	}
	return cloneAccount(a)
}

type fakePostRepo struct {
	posts  map[string]*model.Post // keyed by ID
	nextID int
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*model.Post)}
}

func clonePost(p *model.Post) *model.Post {
	c := *p
	c.Comments = slices.Clone(p.Comments)
	return &c
}

func (f *fakePostRepo) add(p *model.Post) *model.Post {
	if p.ID == "" {
		f.nextID++
		p.ID = fmt.Sprintf("post-%d", f.nextID)
	}
	if p.Comments == nil {
		p.Comments = []model.Comment{}
	}
	f.posts[p.ID] = clonePost(p)
	return p
}

func (f *fakePostRepo) CreatePost(_ context.Context, post *model.Post) error {
	f.add(post)
	return nil
}

func (f *fakePostRepo) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	if p, ok := f.posts[id]; ok {
		return clonePost(p), nil
	}
	return nil, apperror.NotFound("post", id)
}

func (f *fakePostRepo) ListByAuthors(_ context.Context, names []string) ([]model.Post, error) {
	out := []model.Post{}
	for _, p := range f.posts {
		if slices.Contains(names, p.PostBy) {
			out = append(out, *clonePost(p))
		}
	}
	slices.SortFunc(out, func(a, b model.Post) int {
		return b.Date.Compare(a.Date)
	})
	return out, nil
}

func (f *fakePostRepo) UpdatePost(_ context.Context, post *model.Post) error {
	if _, ok := f.posts[post.ID]; !ok {
		return apperror.NotFound("post", post.ID)
	}
	f.posts[post.ID] = clonePost(post)
	return nil
}

func (f *fakePostRepo) DeletePost(_ context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return apperror.NotFound("post", id)
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepo) DeleteByAuthor(_ context.Context, name string) (int64, error) {
	var removed int64
	for id, p := range f.posts {
		if p.PostBy == name {
			delete(f.posts, id)
			removed++
		}
	}
	return removed, nil
}
