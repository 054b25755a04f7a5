package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Conflict("dup"), http.StatusConflict},
		{Unauthorized("who"), http.StatusUnauthorized},
		{Forbidden("no"), http.StatusForbidden},
		{NotFound("gone"), http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", NotFound("gone")), http.StatusNotFound},
	}
	for _, tc := range cases {
		if got := StatusCode(tc.err); got != tc.want {
			t.Fatalf("StatusCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestMessageHidesInternalDetail(t *testing.T) {
	err := Internal("insert team", errors.New("connection refused"))
	if got := Message(err); got != "Internal server error" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message(errors.New("raw")); got != "Internal server error" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message(Forbidden("You are not the creator")); got != "You are not the creator" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("ctx: %w", NotFound("Team does not exist"))
	if !errors.Is(err, NotFound("")) {
		t.Fatalf("expected kind match")
	}
	if errors.Is(err, Forbidden("")) {
		t.Fatalf("unexpected match across kinds")
	}
	cause := errors.New("cause")
	if !errors.Is(Internal("x", cause), cause) {
		t.Fatalf("expected cause to be unwrapped")
	}
}
