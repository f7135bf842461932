package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/social-network/internal/apperror"
	"github.com/sakif/social-network/internal/model"
	"github.com/sakif/social-network/internal/repository"
)

// Compile-time check that *DB implements repository.AccountRepository.
var _ repository.AccountRepository = (*DB)(nil)

// marshalNames serializes a display-name set for storage. A nil slice is
// stored as "[]" so the column never holds SQL NULL or JSON null.
func marshalNames(names []string) (string, error) {
	if names == nil {
		names = []string{}
	}
	b, err := json.Marshal(names)
	if err != nil {
		return "", fmt.Errorf("marshaling name set: %w", err)
	}
	return string(b), nil
}

func unmarshalNames(raw string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("unmarshaling name set: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// scanAccount reads one account row. The row must select columns in the
// order: id, username, password_hash, name, following, followers, created_at.
func scanAccount(row interface{ Scan(...any) error }) (*model.Account, error) {
	var (
		a                    model.Account
		following, followers string
	)
	err := row.Scan(
		&a.ID,
		&a.Username,
		&a.PasswordHash,
		&a.Name,
		&following,
		&followers,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if a.Following, err = unmarshalNames(following); err != nil {
		return nil, err
	}
	if a.Followers, err = unmarshalNames(followers); err != nil {
		return nil, err
	}
	return &a, nil
}

const accountColumns = `id, username, password_hash, name, following, followers, created_at`

// Create inserts a new account. The caller is expected to have done the
// combined uniqueness lookup already; the UNIQUE constraints on username and
// name are the backstop against a race between that lookup and this insert.
func (db *DB) Create(ctx context.Context, account *model.Account) error {
	account.ID = xid.New().String()
	account.CreatedAt = time.Now()
	if account.Following == nil {
		account.Following = []string{}
	}
	if account.Followers == nil {
		account.Followers = []string{}
	}

	following, err := marshalNames(account.Following)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	followers, err := marshalNames(account.Followers)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO accounts (id, username, password_hash, name, following, followers, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		account.ID,
		account.Username,
		account.PasswordHash,
		account.Name,
		following,
		followers,
		account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating account %s: %w", account.Username, err)
	}

	return nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.Account, error) {
	return db.getAccountBy(ctx, "id", id)
}

func (db *DB) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return db.getAccountBy(ctx, "username", username)
}

func (db *DB) GetByName(ctx context.Context, name string) (*model.Account, error) {
	return db.getAccountBy(ctx, "name", name)
}

// getAccountBy fetches one account by an exact match on the given column.
// The column name is always one of our own identifiers, never user input.
func (db *DB) getAccountBy(ctx context.Context, column, value string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = ?`, value)

	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("account", value)
		}
		return nil, fmt.Errorf("sqlite: getting account by %s %q: %w", column, value, err)
	}
	return account, nil
}

// FindByUsernameOrName is the single combined lookup used for registration
// conflict detection. Unlike the Get* methods it returns (nil, nil) when no
// account matches — absence is the success path here.
func (db *DB) FindByUsernameOrName(ctx context.Context, username, name string) (*model.Account, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ? OR name = ?`,
		username, name)

	account, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite: finding account %q/%q: %w", username, name, err)
	}
	return account, nil
}

func (db *DB) List(ctx context.Context) ([]model.Account, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning account row: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating accounts: %w", err)
	}

	return accounts, nil
}

// UpdateGraphPair persists the Following/Followers sets of two accounts in
// one transaction.
//
// This is the write underneath every follow and unfollow. The relation is
// stored redundantly on both endpoints, so a non-transactional version could
// crash between the two UPDATEs and leave an asymmetric edge behind. SQLite
// gives us multi-row atomicity for free; we use it rather than building a
// compensation scheme.
func (db *DB) UpdateGraphPair(ctx context.Context, a, b *model.Account) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning graph transaction: %w", err)
	}
	defer tx.Rollback()

	for _, account := range []*model.Account{a, b} {
		following, err := marshalNames(account.Following)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		followers, err := marshalNames(account.Followers)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE accounts SET following = ?, followers = ? WHERE id = ?`,
			following, followers, account.ID)
		if err != nil {
			return fmt.Errorf("sqlite: updating graph for account %s: %w", account.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlite: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("account", account.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing graph transaction: %w", err)
	}
	return nil
}

// PurgeName removes a display name from every account's Following and
// Followers sets. Used by the account-deletion cascade.
//
// json_each expands the JSON array column into rows, so the WHERE clause is
// a real set-membership test rather than a substring match. Accounts that
// don't reference the name are never touched, which also makes the purge
// idempotent — re-running it after a partial failure matches nothing.
func (db *DB) PurgeName(ctx context.Context, name string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning purge transaction: %w", err)
	}
	defer tx.Rollback()

	if err := purgeNameTx(ctx, tx, name); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing purge transaction: %w", err)
	}
	return nil
}

func purgeNameTx(ctx context.Context, tx *sql.Tx, name string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, following, followers FROM accounts
		 WHERE EXISTS (SELECT 1 FROM json_each(accounts.following) WHERE json_each.value = ?)
		    OR EXISTS (SELECT 1 FROM json_each(accounts.followers) WHERE json_each.value = ?)`,
		name, name)
	if err != nil {
		return fmt.Errorf("sqlite: finding accounts referencing %q: %w", name, err)
	}

	type graphPatch struct {
		id                   string
		following, followers []string
	}
	var patches []graphPatch

	for rows.Next() {
		var (
			p                       graphPatch
			followingRaw, followers string
		)
		if err := rows.Scan(&p.id, &followingRaw, &followers); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: scanning graph row: %w", err)
		}
		if p.following, err = unmarshalNames(followingRaw); err != nil {
			rows.Close()
			return err
		}
		if p.followers, err = unmarshalNames(followers); err != nil {
			rows.Close()
			return err
		}
		p.following = removeName(p.following, name)
		p.followers = removeName(p.followers, name)
		patches = append(patches, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("sqlite: iterating graph rows: %w", err)
	}
	rows.Close()

	for _, p := range patches {
		following, err := marshalNames(p.following)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		followers, err := marshalNames(p.followers)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET following = ?, followers = ? WHERE id = ?`,
			following, followers, p.id); err != nil {
			return fmt.Errorf("sqlite: purging %q from account %s: %w", name, p.id, err)
		}
	}

	return nil
}

// Rename changes an account's display name and rewrites every stored
// occurrence of the old one: peers' follow sets, post authorship, and
// comment authorship. One transaction — once the account row carries the
// new name, the old name resolves to nothing, so there is no retry path for
// stragglers.
func (db *DB) Rename(ctx context.Context, id, oldName, newName string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning rename transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET name = ? WHERE id = ?`, newName, id)
	if err != nil {
		return fmt.Errorf("sqlite: renaming account %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("account", id)
	}

	// Peers' follow sets: replace oldName with newName element-wise.
	if err := replaceNameTx(ctx, tx, oldName, newName); err != nil {
		return err
	}

	// Post authorship.
	if _, err := tx.ExecContext(ctx,
		`UPDATE posts SET post_by = ? WHERE post_by = ?`, newName, oldName); err != nil {
		return fmt.Errorf("sqlite: renaming post author %q: %w", oldName, err)
	}

	// Comment authorship, so the renamed account keeps ownership of its
	// old comments.
	if err := renameCommentAuthorTx(ctx, tx, oldName, newName); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing rename transaction: %w", err)
	}
	return nil
}

func replaceNameTx(ctx context.Context, tx *sql.Tx, oldName, newName string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, following, followers FROM accounts
		 WHERE EXISTS (SELECT 1 FROM json_each(accounts.following) WHERE json_each.value = ?)
		    OR EXISTS (SELECT 1 FROM json_each(accounts.followers) WHERE json_each.value = ?)`,
		oldName, oldName)
	if err != nil {
		return fmt.Errorf("sqlite: finding accounts referencing %q: %w", oldName, err)
	}

	type graphPatch struct {
		id                   string
		following, followers []string
	}
	var patches []graphPatch

	for rows.Next() {
		var (
			p                       graphPatch
			followingRaw, followers string
		)
		if err := rows.Scan(&p.id, &followingRaw, &followers); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: scanning graph row: %w", err)
		}
		if p.following, err = unmarshalNames(followingRaw); err != nil {
			rows.Close()
			return err
		}
		if p.followers, err = unmarshalNames(followers); err != nil {
			rows.Close()
			return err
		}
		p.following = replaceName(p.following, oldName, newName)
		p.followers = replaceName(p.followers, oldName, newName)
		patches = append(patches, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("sqlite: iterating graph rows: %w", err)
	}
	rows.Close()

	for _, p := range patches {
		following, err := marshalNames(p.following)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		followers, err := marshalNames(p.followers)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET following = ?, followers = ? WHERE id = ?`,
			following, followers, p.id); err != nil {
			return fmt.Errorf("sqlite: rewriting %q in account %s: %w", oldName, p.id, err)
		}
	}

	return nil
}

func renameCommentAuthorTx(ctx context.Context, tx *sql.Tx, oldName, newName string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, comments FROM posts
		 WHERE EXISTS (
		 	SELECT 1 FROM json_each(posts.comments)
		 	WHERE json_extract(json_each.value, '$.commentBy') = ?
		 )`,
		oldName)
	if err != nil {
		return fmt.Errorf("sqlite: finding comments by %q: %w", oldName, err)
	}

	type commentPatch struct {
		id       string
		comments []model.Comment
	}
	var patches []commentPatch

	for rows.Next() {
		var (
			p   commentPatch
			raw string
		)
		if err := rows.Scan(&p.id, &raw); err != nil {
			rows.Close()
			return fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		if p.comments, err = unmarshalComments(raw); err != nil {
			rows.Close()
			return err
		}
		for i := range p.comments {
			if p.comments[i].CommentBy == oldName {
				p.comments[i].CommentBy = newName
			}
		}
		patches = append(patches, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("sqlite: iterating post rows: %w", err)
	}
	rows.Close()

	for _, p := range patches {
		comments, err := marshalComments(p.comments)
		if err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE posts SET comments = ? WHERE id = ?`, comments, p.id); err != nil {
			return fmt.Errorf("sqlite: rewriting comments on post %s: %w", p.id, err)
		}
	}

	return nil
}

// Delete removes the account record itself. It deliberately does NOT touch
// the graph or posts — the deletion cascade in the service layer runs those
// cleanups first, so that a failure mid-cascade leaves the account row in
// place and the whole cascade re-runnable.
func (db *DB) Delete(ctx context.Context, username string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM accounts WHERE username = ?`, username)
	if err != nil {
		return fmt.Errorf("sqlite: deleting account %s: %w", username, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("account", username)
	}
	return nil
}

func removeName(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

func replaceName(names []string, oldName, newName string) []string {
	for i, n := range names {
		if n == oldName {
			names[i] = newName
		}
	}
	return names
}
