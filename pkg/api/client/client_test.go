package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewNormalisesBaseURL(t *testing.T) {
	c, err := New("api.example.com/")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if c.baseURL != "http://api.example.com" {
		t.Fatalf("unexpected base url %q", c.baseURL)
	}
	if c.httpClient.Jar == nil {
		t.Fatalf("expected cookie jar to be configured")
	}
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"You are not a member of this team"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	_, err = c.ListMembers(context.Background(), "abc")
	var apiErr APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden || apiErr.Message != "You are not a member of this team" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value != "saved-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"name":"Ada","email":"ada@example.com","image":""}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, WithSessionToken("saved-token"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := c.SessionToken(); got != "saved-token" {
		t.Fatalf("unexpected session token %q", got)
	}
	me, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", me)
	}
}
