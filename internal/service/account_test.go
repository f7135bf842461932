package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/social-network/internal/apperror"
	"github.com/sakif/social-network/internal/auth"
	"github.com/sakif/social-network/internal/model"
)

func newAccountService(accounts *fakeAccountRepo, posts *fakePostRepo) *AccountService {
	return NewAccountService(accounts, posts,
		auth.NewPasswordServiceForTest(bcrypt.MinCost), discardLogger())
}

// seedAccount puts an account with the given username and display name into
// the fake store.
func seedAccount(repo *fakeAccountRepo, username, name string) *model.Account {
	return repo.add(&model.Account{Username: username, Name: name, PasswordHash: "x"})
}

// =========================================================================
// REGISTRATION
// =========================================================================

func TestRegister(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())

	account, err := svc.Register(context.Background(), "alice_login", "s3cret", "Alice")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if account.ID == "" {
		t.Error("Register() returned an account with no ID")
	}
	if account.PasswordHash == "s3cret" {
		t.Error("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("s3cret")); err != nil {
		t.Errorf("stored hash does not verify against the password: %v", err)
	}
	if len(account.Following) != 0 || len(account.Followers) != 0 {
		t.Error("a fresh account should have empty follow sets")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc := newAccountService(newFakeAccountRepo(), newFakePostRepo())

	long := make([]byte, MaxUsernameLength+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		label    string
		username string
		password string
		name     string
	}{
		{"empty username", "", "pw", "Alice"},
		{"blank username", "   ", "pw", "Alice"},
		{"empty password", "alice_login", "", "Alice"},
		{"empty name", "alice_login", "pw", ""},
		{"overlong username", string(long), "pw", "Alice"},
		{"overlong name", "alice_login", "pw", string(long)},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.username, tt.password, tt.name)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Register() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegister_Conflicts(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	seedAccount(repo, "alice_login", "Alice")

	_, err := svc.Register(context.Background(), "alice_login", "pw", "Someone Else")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate username: error = %v, want ErrConflict", err)
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Field != "username" {
		t.Errorf("conflict field = %q, want %q", appErr.Field, "username")
	}

	_, err = svc.Register(context.Background(), "other_login", "pw", "Alice")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("duplicate name: error = %v, want ErrConflict", err)
	}
	if errors.As(err, &appErr) && appErr.Field != "name" {
		t.Errorf("conflict field = %q, want %q", appErr.Field, "name")
	}
}

// =========================================================================
// FOLLOW / UNFOLLOW
// =========================================================================

func TestFollow(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	alice := seedAccount(repo, "alice_login", "Alice")
	bob := seedAccount(repo, "bob_login", "Bob")

	got, err := svc.Follow(context.Background(), "alice_login", "Bob")
	if err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if !slices.Contains(got.Following, "Bob") {
		t.Errorf("returned actor Following = %v, want it to contain Bob", got.Following)
	}

	// Both endpoints must be persisted, not just the returned copy.
	storedAlice := repo.stored(t, alice.ID)
	storedBob := repo.stored(t, bob.ID)
	if !slices.Contains(storedAlice.Following, "Bob") {
		t.Error("Alice.Following was not persisted")
	}
	if !slices.Contains(storedBob.Followers, "Alice") {
		t.Error("Bob.Followers was not persisted")
	}
	// Following is one-directional: Bob does not follow Alice back.
	if slices.Contains(storedBob.Following, "Alice") {
		t.Error("follow must not create the reverse edge")
	}
}

func TestFollow_Failures(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	seedAccount(repo, "alice_login", "Alice")
	seedAccount(repo, "bob_login", "Bob")

	if _, err := svc.Follow(context.Background(), "alice_login", "Ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown target: error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Follow(context.Background(), "ghost_login", "Bob"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown actor: error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Follow(context.Background(), "alice_login", "Alice"); !errors.Is(err, apperror.ErrInvalidOperation) {
		t.Errorf("self follow: error = %v, want ErrInvalidOperation", err)
	}

	if _, err := svc.Follow(context.Background(), "alice_login", "Bob"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if _, err := svc.Follow(context.Background(), "alice_login", "Bob"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate follow: error = %v, want ErrConflict", err)
	}
}

func TestFollow_PersistFailureLeavesStateUntouched(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	alice := seedAccount(repo, "alice_login", "Alice")
	bob := seedAccount(repo, "bob_login", "Bob")

	repo.failUpdateGraph = true
	if _, err := svc.Follow(context.Background(), "alice_login", "Bob"); err == nil {
		t.Fatal("Follow() should surface the storage error")
	}

	if len(repo.stored(t, alice.ID).Following) != 0 {
		t.Error("Alice.Following changed despite the failed write")
	}
	if len(repo.stored(t, bob.ID).Followers) != 0 {
		t.Error("Bob.Followers changed despite the failed write")
	}

	// And the follow can be retried once storage recovers.
	repo.failUpdateGraph = false
	if _, err := svc.Follow(context.Background(), "alice_login", "Bob"); err != nil {
		t.Errorf("retry after recovery: error = %v", err)
	}
}

func TestUnfollow(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	alice := seedAccount(repo, "alice_login", "Alice")
	bob := seedAccount(repo, "bob_login", "Bob")

	if _, err := svc.Follow(context.Background(), "alice_login", "Bob"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if _, err := svc.Unfollow(context.Background(), "alice_login", "Bob"); err != nil {
		t.Fatalf("Unfollow() error = %v", err)
	}

	if slices.Contains(repo.stored(t, alice.ID).Following, "Bob") {
		t.Error("Alice.Following still contains Bob")
	}
	if slices.Contains(repo.stored(t, bob.ID).Followers, "Alice") {
		t.Error("Bob.Followers still contains Alice")
	}

	// Removing an edge that is not there is a conflict, same as adding one
	// that already is.
	if _, err := svc.Unfollow(context.Background(), "alice_login", "Bob"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("unfollow of non-followed: error = %v, want ErrConflict", err)
	}
}

func TestUnfollow_Self(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	seedAccount(repo, "alice_login", "Alice")

	if _, err := svc.Unfollow(context.Background(), "alice_login", "Alice"); !errors.Is(err, apperror.ErrInvalidOperation) {
		t.Errorf("self unfollow: error = %v, want ErrInvalidOperation", err)
	}
}

// =========================================================================
// DIRECTORY
// =========================================================================

func TestListOthers(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	alice := seedAccount(repo, "alice_login", "Alice")
	seedAccount(repo, "bob_login", "Bob")
	seedAccount(repo, "carol_login", "Carol")

	others, err := svc.ListOthers(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("ListOthers() error = %v", err)
	}
	if len(others) != 2 {
		t.Fatalf("ListOthers() returned %d accounts, want 2", len(others))
	}
	for _, a := range others {
		if a.ID == alice.ID {
			t.Error("ListOthers() must exclude the caller")
		}
	}
}

// =========================================================================
// RENAME
// =========================================================================

func TestUpdateName(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	alice := seedAccount(repo, "alice_login", "Alice")
	bob := seedAccount(repo, "bob_login", "Bob")

	if _, err := svc.Follow(context.Background(), "bob_login", "Alice"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	updated, err := svc.UpdateName(context.Background(), "alice_login", "Alicia")
	if err != nil {
		t.Fatalf("UpdateName() error = %v", err)
	}
	if updated.Name != "Alicia" {
		t.Errorf("Name = %q, want %q", updated.Name, "Alicia")
	}

	// Bob's edge must follow the rename.
	storedBob := repo.stored(t, bob.ID)
	if !slices.Contains(storedBob.Following, "Alicia") || slices.Contains(storedBob.Following, "Alice") {
		t.Errorf("Bob.Following = %v, want Alice rewritten to Alicia", storedBob.Following)
	}
	if repo.stored(t, alice.ID).Name != "Alicia" {
		t.Error("rename not persisted")
	}
}

func TestUpdateName_SameNameIsNoOp(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	seedAccount(repo, "alice_login", "Alice")

	got, err := svc.UpdateName(context.Background(), "alice_login", "Alice")
	if err != nil {
		t.Fatalf("UpdateName() error = %v", err)
	}
	if got.Name != "Alice" {
		t.Errorf("Name = %q, want %q", got.Name, "Alice")
	}
}

func TestUpdateName_Taken(t *testing.T) {
	repo := newFakeAccountRepo()
	svc := newAccountService(repo, newFakePostRepo())
	seedAccount(repo, "alice_login", "Alice")
	seedAccount(repo, "bob_login", "Bob")

	if _, err := svc.UpdateName(context.Background(), "alice_login", "Bob"); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("UpdateName() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// DELETION CASCADE
// =========================================================================

func TestDeleteAccount(t *testing.T) {
	accounts := newFakeAccountRepo()
	posts := newFakePostRepo()
	svc := newAccountService(accounts, posts)

	alice := seedAccount(accounts, "alice_login", "Alice")
	bob := seedAccount(accounts, "bob_login", "Bob")
	if _, err := svc.Follow(context.Background(), "bob_login", "Alice"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}
	if _, err := svc.Follow(context.Background(), "alice_login", "Bob"); err != nil {
		t.Fatalf("Follow() error = %v", err)
	}

	posts.add(&model.Post{Text: "one", PostBy: "Alice"})
	posts.add(&model.Post{Text: "two", PostBy: "Alice"})
	keeper := posts.add(&model.Post{Text: "keep", PostBy: "Bob"})

	summary, err := svc.DeleteAccount(context.Background(), "alice_login")
	if err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
	if summary.Username != "alice_login" {
		t.Errorf("summary.Username = %q, want %q", summary.Username, "alice_login")
	}
	if summary.RemovedPosts != 2 {
		t.Errorf("summary.RemovedPosts = %d, want 2", summary.RemovedPosts)
	}

	// Account gone.
	if _, err := accounts.GetByID(context.Background(), alice.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("account still resolvable after delete: %v", err)
	}
	// No trace in the survivor's graph.
	storedBob := accounts.stored(t, bob.ID)
	if slices.Contains(storedBob.Following, "Alice") || slices.Contains(storedBob.Followers, "Alice") {
		t.Errorf("Bob still references Alice: following=%v followers=%v",
			storedBob.Following, storedBob.Followers)
	}
	// Other authors' posts survive.
	if _, err := posts.GetPostByID(context.Background(), keeper.ID); err != nil {
		t.Errorf("unrelated post was deleted: %v", err)
	}
}

func TestDeleteAccount_Unknown(t *testing.T) {
	svc := newAccountService(newFakeAccountRepo(), newFakePostRepo())

	if _, err := svc.DeleteAccount(context.Background(), "ghost"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteAccount() error = %v, want ErrNotFound", err)
	}
}
