// Package service — posts, comments, and feed construction.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/social-network/internal/apperror"
	"github.com/sakif/social-network/internal/model"
	"github.com/sakif/social-network/internal/repository"
)

const MaxPostLength = 4000

// PostService owns post and comment mutations (with their ownership checks)
// and composes the social graph with the post store to build feeds.
//
// Only the creator of a post may edit or delete it, and only the creator of
// a comment may remove it — comment ownership is independent of the parent
// post's ownership. Anyone authenticated may comment on any post.
type PostService struct {
	posts    repository.PostRepository
	accounts repository.AccountRepository
	logger   *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	accounts repository.AccountRepository,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:    posts,
		accounts: accounts,
		logger:   logger,
	}
}

// Create publishes a new post under the given display name.
func (s *PostService) Create(ctx context.Context, text, authorName string) (*model.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "post text is required")
	}
	if len(text) > MaxPostLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("post text must be %d characters or less", MaxPostLength))
	}

	post := &model.Post{
		Text:     text,
		PostBy:   authorName,
		Comments: []model.Comment{},
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.logger.Error("failed to create post",
			slog.String("postBy", authorName),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("postBy", post.PostBy),
	)

	return post, nil
}

// GetByID fetches a single post.
func (s *PostService) GetByID(ctx context.Context, id string) (*model.Post, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "post id is required")
	}
	return s.posts.GetPostByID(ctx, id)
}

// FollowingFeed builds the viewer's aggregated feed: every post authored by
// an account the viewer follows, newest first.
//
// The viewer's Following set IS the query — post authorship is keyed by
// display name, so the feed is one set-membership fetch with no joins. A
// viewer following nobody gets an empty feed, not an error.
func (s *PostService) FollowingFeed(ctx context.Context, viewerUsername string) ([]model.Post, error) {
	viewer, err := s.accounts.GetByUsername(ctx, viewerUsername)
	if err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByAuthors(ctx, viewer.Following)
	if err != nil {
		return nil, fmt.Errorf("building feed for %s: %w", viewerUsername, err)
	}
	return posts, nil
}

// AuthorFeed returns all posts by one display name, newest first. NotFound
// if no such account exists; an existing account with no posts yields an
// empty slice.
func (s *PostService) AuthorFeed(ctx context.Context, displayName string) ([]model.Post, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, apperror.ValidationFailed("postBy", "author name is required")
	}

	// The author must exist even if they have no posts — a feed for a
	// nonexistent account is a 404, not an empty 200.
	if _, err := s.accounts.GetByName(ctx, displayName); err != nil {
		return nil, err
	}

	posts, err := s.posts.ListByAuthors(ctx, []string{displayName})
	if err != nil {
		return nil, fmt.Errorf("listing posts by %s: %w", displayName, err)
	}
	return posts, nil
}

// Edit replaces the text of a post. Only the author may edit.
func (s *PostService) Edit(ctx context.Context, postID, newText, requesterName string) (*model.Post, error) {
	newText = strings.TrimSpace(newText)
	if newText == "" {
		return nil, apperror.ValidationFailed("text", "post text is required")
	}
	if len(newText) > MaxPostLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("post text must be %d characters or less", MaxPostLength))
	}

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.PostBy != requesterName {
		return nil, apperror.Forbidden("only the author can edit this post")
	}

	post.Text = newText
	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("updating post %s: %w", postID, err)
	}

	s.logger.Info("post edited", slog.String("id", post.ID))
	return post, nil
}

// Delete removes a post. Only the author may delete.
func (s *PostService) Delete(ctx context.Context, postID, requesterName string) error {
	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.PostBy != requesterName {
		return apperror.Forbidden("only the author can delete this post")
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return err
	}

	s.logger.Info("post deleted", slog.String("id", postID))
	return nil
}

// Comment appends a new comment to a post. Any authenticated account may
// comment — following the author is not required.
func (s *PostService) Comment(ctx context.Context, postID, text, commentorName string) (*model.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:        xid.New().String(),
		Text:      text,
		CommentBy: commentorName,
		Date:      time.Now(),
	}
	post.Comments = append(post.Comments, comment)

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("saving comment on post %s: %w", postID, err)
	}

	s.logger.Info("comment added",
		slog.String("postID", post.ID),
		slog.String("commentID", comment.ID),
		slog.String("commentBy", commentorName),
	)

	return post, nil
}

// DeleteComment removes exactly one comment from a post. Ownership is
// checked against the COMMENT's author — the post's author has no say over
// other people's comments.
func (s *PostService) DeleteComment(ctx context.Context, postID, commentID, requesterName string) (*model.Post, error) {
	if strings.TrimSpace(commentID) == "" {
		return nil, apperror.ValidationFailed("comment_id", "comment id is required")
	}

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, c := range post.Comments {
		if c.ID == commentID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, apperror.NotFound("comment", commentID)
	}
	if post.Comments[idx].CommentBy != requesterName {
		return nil, apperror.Forbidden("only the comment's author can delete it")
	}

	post.Comments = append(post.Comments[:idx], post.Comments[idx+1:]...)

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("removing comment from post %s: %w", postID, err)
	}

	s.logger.Info("comment deleted",
		slog.String("postID", post.ID),
		slog.String("commentID", commentID),
	)

	return post, nil
}
