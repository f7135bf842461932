package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/social-network/internal/apperror"
	"github.com/sakif/social-network/internal/model"
	"github.com/sakif/social-network/internal/repository"
)

// Compile-time check that *DB implements repository.PostRepository.
var _ repository.PostRepository = (*DB)(nil)

func marshalComments(comments []model.Comment) (string, error) {
	if comments == nil {
		comments = []model.Comment{}
	}
	b, err := json.Marshal(comments)
	if err != nil {
		return "", fmt.Errorf("marshaling comments: %w", err)
	}
	return string(b), nil
}

func unmarshalComments(raw string) ([]model.Comment, error) {
	var comments []model.Comment
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		return nil, fmt.Errorf("unmarshaling comments: %w", err)
	}
	if comments == nil {
		comments = []model.Comment{}
	}
	return comments, nil
}

func scanPost(row interface{ Scan(...any) error }) (*model.Post, error) {
	var (
		p        model.Post
		comments string
	)
	err := row.Scan(&p.ID, &p.Text, &p.PostBy, &p.Date, &comments)
	if err != nil {
		return nil, err
	}
	if p.Comments, err = unmarshalComments(comments); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a new post. The ID and creation timestamp are assigned
// here; the timestamp is immutable from then on.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.Date = time.Now()
	if post.Comments == nil {
		post.Comments = []model.Comment{}
	}

	comments, err := marshalComments(post.Comments)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, text, post_by, date, comments) VALUES (?, ?, ?, ?, ?)`,
		post.ID, post.Text, post.PostBy, post.Date, comments)
	if err != nil {
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

func (db *DB) GetPostByID(ctx context.Context, id string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, text, post_by, date, comments FROM posts WHERE id = ?`, id)

	post, err := scanPost(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	return post, nil
}

// ListByAuthors returns every post whose author is in names, newest first.
//
// This is the feed query: the viewer's following set (or a single author)
// becomes an IN clause over the denormalized post_by column. No join — the
// set of names came off the viewer's account row. An empty set short-
// circuits to an empty result without touching the database.
func (db *DB) ListByAuthors(ctx context.Context, names []string) ([]model.Post, error) {
	if len(names) == 0 {
		return []model.Post{}, nil
	}

	// Build "?, ?, ?" for the IN clause; the values ride as parameters.
	placeholders := strings.Repeat("?, ", len(names)-1) + "?"
	args := make([]any, len(names))
	for i, n := range names {
		args[i] = n
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, text, post_by, date, comments FROM posts
		 WHERE post_by IN (`+placeholders+`)
		 ORDER BY date DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// UpdatePost persists the post's text and comment sequence. ID, author and
// date are immutable and not written.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	comments, err := marshalComments(post.Comments)
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET text = ?, comments = ? WHERE id = ?`,
		post.Text, comments, post.ID)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", post.ID)
	}
	return nil
}

func (db *DB) DeletePost(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting post %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("post", id)
	}
	return nil
}

// DeleteByAuthor removes every post by the given display name. Zero removed
// posts is a valid outcome (the author simply had none), so unlike
// DeletePost this never reports NotFound.
func (db *DB) DeleteByAuthor(ctx context.Context, name string) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE post_by = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("sqlite: deleting posts by %q: %w", name, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
