package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	// Each case checks that errors.Is() correctly identifies the category.
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("account", "alice"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("name", "name is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("username already used by another account", "username"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("only the author can edit this post"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "InvalidOperation wraps ErrInvalidOperation",
			err:       InvalidOperation("cannot follow yourself"),
			target:    ErrInvalidOperation,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized(),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrConflict",
			err:       NotFound("post", "abc123"),
			target:    ErrConflict,
			wantMatch: false,
		},
		{
			name:      "InvalidOperation does NOT match ErrConflict",
			err:       InvalidOperation("cannot unfollow yourself"),
			target:    ErrConflict,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

// Services wrap errors with fmt.Errorf("...: %w", err); the category must
// survive any number of wrapping layers.
func TestErrorsIs_ThroughWrapping(t *testing.T) {
	inner := Conflict("already following bob", "name")
	wrapped := fmt.Errorf("persisting follow: %w", inner)

	if !errors.Is(wrapped, ErrConflict) {
		t.Error("wrapped error should still match ErrConflict")
	}

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As should extract *AppError through wrapping")
	}
	if appErr.Message != "already following bob" {
		t.Errorf("Message = %q, want %q", appErr.Message, "already following bob")
	}
}

func TestUnauthorized_ConstantShape(t *testing.T) {
	// The login failure must not reveal whether the username or the
	// password was wrong, so every Unauthorized is identical.
	a, b := Unauthorized(), Unauthorized()
	if a.Message != b.Message {
		t.Errorf("Unauthorized messages differ: %q vs %q", a.Message, b.Message)
	}
}
