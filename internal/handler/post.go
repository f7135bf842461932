package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/social-network/internal/auth"
	"github.com/sakif/social-network/internal/service"
)

// PostHandler exposes post creation, the feeds, and the ownership-scoped
// post/comment mutations.
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

type postTextRequest struct {
	Text string `json:"text"`
}

type deleteCommentRequest struct {
	CommentID string `json:"comment_id"`
}

// HandleCreate publishes a new post under the caller's display name.
//
// HTTP: POST /posts/createPost (bearer)
// REQUEST BODY: {"text": "..."}
// RESPONSE: 201 with the created post.
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req postTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid post JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	post, err := h.posts.Create(r.Context(), req.Text, caller.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, post)
}

// HandleMyPosts returns the caller's own posts, newest first.
//
// HTTP: GET /posts/me (bearer)
func (h *PostHandler) HandleMyPosts(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	posts, err := h.posts.AuthorFeed(r.Context(), caller.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleFollowingFeed returns the caller's aggregated feed: all posts by
// accounts they follow, newest first. Empty following set — empty feed.
//
// HTTP: GET /posts/allFollowing (bearer)
func (h *PostHandler) HandleFollowingFeed(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	posts, err := h.posts.FollowingFeed(r.Context(), caller.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleGetPost fetches a single post by id.
//
// HTTP: GET /posts/post/{id} (bearer)
func (h *PostHandler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleAuthorPosts returns all posts by one display name.
//
// HTTP: GET /posts/{postBy} (bearer)
// RESPONSE: 200 with the author's posts (possibly empty), 404 if no such
// account exists.
func (h *PostHandler) HandleAuthorPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.AuthorFeed(r.Context(), chi.URLParam(r, "postBy"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, posts)
}

// HandleEdit replaces a post's text. 403 for anyone but the author.
//
// HTTP: PATCH /posts/editPost/{id} (bearer)
func (h *PostHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req postTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	post, err := h.posts.Edit(r.Context(), chi.URLParam(r, "id"), req.Text, caller.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post. 403 for anyone but the author.
//
// HTTP: DELETE /posts/deletePost/{id} (bearer)
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.posts.Delete(r.Context(), id, caller.Name); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"deleted": id})
}

// HandleComment appends a comment to a post. Any authenticated account may
// comment on any post.
//
// HTTP: PATCH /posts/comment/{id} (bearer)
func (h *PostHandler) HandleComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req postTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	post, err := h.posts.Comment(r.Context(), chi.URLParam(r, "id"), req.Text, caller.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

// HandleDeleteComment removes one comment from a post. 403 for anyone but
// the comment's own author — including the post's author.
//
// HTTP: PATCH /posts/deleteComment/{id} (bearer)
// REQUEST BODY: {"comment_id": "..."}
func (h *PostHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req deleteCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	post, err := h.posts.DeleteComment(r.Context(), chi.URLParam(r, "id"), req.CommentID, caller.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}
