package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/social-network/internal/auth"
	"github.com/sakif/social-network/internal/model"
	"github.com/sakif/social-network/internal/service"
)

// AccountHandler exposes registration, profile lookups, the account
// directory, follow/unfollow, rename, and account deletion.
type AccountHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: logger}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type updateNameRequest struct {
	Name string `json:"name"`
}

// registerResponse is the registration body: the new account without its
// followers set (always empty at creation) and never the credential.
type registerResponse struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Name      string   `json:"name"`
	Following []string `json:"following"`
}

// accountResponse is the full public view of an account.
type accountResponse struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Name      string   `json:"name"`
	Following []string `json:"following"`
	Followers []string `json:"followers"`
}

// directoryEntry is one row of GET /accounts/all.
type directoryEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toAccountResponse(a *model.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Username:  a.Username,
		Name:      a.Name,
		Following: a.Following,
		Followers: a.Followers,
	}
}

// HandleRegister creates a new account.
//
// HTTP: POST /accounts/register
// RESPONSE: 201 with the new account, or 400 on validation failure or a
// username/name collision (the body says which field collided).
func (h *AccountHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid register JSON", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Username, req.Password, req.Name)
	if err != nil {
		writeAccountError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{
		ID:        account.ID,
		Username:  account.Username,
		Name:      account.Name,
		Following: account.Following,
	})
}

// HandleMe returns the caller's own account.
//
// HTTP: GET /accounts/me (bearer)
func (h *AccountHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	account, err := h.accounts.GetByID(r.Context(), caller.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// HandleAll returns the account directory: id and display name of every
// account except the caller's own.
//
// HTTP: GET /accounts/all (bearer)
func (h *AccountHandler) HandleAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	accounts, err := h.accounts.ListOthers(r.Context(), caller.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	entries := make([]directoryEntry, 0, len(accounts))
	for _, a := range accounts {
		entries = append(entries, directoryEntry{ID: a.ID, Name: a.Name})
	}

	writeJSON(w, http.StatusOK, entries)
}

// HandleFind looks up an account by display name.
//
// HTTP: GET /accounts/find/{name} (bearer)
func (h *AccountHandler) HandleFind(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	account, err := h.accounts.GetByName(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// HandleFollow adds a follow edge from the caller to the named account.
//
// HTTP: PATCH /accounts/follow/{name} (bearer)
// RESPONSE: 200 with the caller's updated account; 400 on self-follow or
// duplicate; 404 if the target doesn't exist.
func (h *AccountHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	account, err := h.accounts.Follow(r.Context(), caller.Username, chi.URLParam(r, "name"))
	if err != nil {
		writeAccountError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// HandleUnfollow removes the follow edge from the caller to the named
// account. Same contract as HandleFollow, mirrored.
//
// HTTP: PATCH /accounts/unfollow/{name} (bearer)
func (h *AccountHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	account, err := h.accounts.Unfollow(r.Context(), caller.Username, chi.URLParam(r, "name"))
	if err != nil {
		writeAccountError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// HandleUpdateName changes the caller's display name.
//
// The caller's access token still carries the OLD name until it expires or
// is refreshed — which is why tokens are short-lived and refresh re-reads
// the account record.
//
// HTTP: PATCH /accounts/updateName (bearer)
func (h *AccountHandler) HandleUpdateName(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	var req updateNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "invalid JSON body",
		})
		return
	}

	account, err := h.accounts.UpdateName(r.Context(), caller.Username, req.Name)
	if err != nil {
		writeAccountError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// HandleDelete deletes the caller's account and everything that references
// it: their posts, and their display name in every other account's follow
// sets.
//
// HTTP: DELETE /accounts/delete (bearer)
func (h *AccountHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "valid authentication required"})
		return
	}

	summary, err := h.accounts.DeleteAccount(r.Context(), caller.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
