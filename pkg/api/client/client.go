package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "user_token"

// Client provides typed access to the tasky API. The session cookie issued
// on login is kept in the client's cookie jar.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    string
}

// Option customises client instantiation.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. A cookie jar is added
// when the client has none.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithSessionToken seeds the cookie jar with a previously saved session.
func WithSessionToken(token string) Option {
	return func(c *Client) {
		c.session = strings.TrimSpace(token)
	}
}

// New constructs a Client pointing at the provided API base URL.
func New(base string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = "http://localhost:3000"
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	cli := &Client{
		baseURL:    strings.TrimRight(trimmed, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(cli)
	}
	if cli.httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		cli.httpClient.Jar = jar
	}
	if cli.session != "" {
		cli.httpClient.Jar.SetCookies(u, []*http.Cookie{{Name: SessionCookie, Value: cli.session, Path: "/"}})
	}
	return cli, nil
}

// SessionToken returns the session token currently held in the jar.
func (c *Client) SessionToken() string {
	u, err := url.Parse(c.baseURL)
	if err != nil || c.httpClient.Jar == nil {
		return ""
	}
	for _, cookie := range c.httpClient.Jar.Cookies(u) {
		if cookie.Name == SessionCookie {
			return cookie.Value
		}
	}
	return ""
}

// APIError represents an error response from the API.
type APIError struct {
	Status  int
	Message string
}

func (e APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.Status)
	}
	return fmt.Sprintf("api request failed (%d): %s", e.Status, e.Message)
}

// User is the public profile of an account.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image"`
}

// Team is a team as returned on creation.
type Team struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	JoinCode    string    `json:"joinCode"`
	CreatorID   string    `json:"creatorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Membership is one of the caller's teams with their role.
type Membership struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	JoinCode    string    `json:"joinCode"`
	CreatedAt   time.Time `json:"createdAt"`
	JoinedAt    time.Time `json:"joinedAt"`
	Role        string    `json:"role"`
}

// Member is a team member's profile.
type Member struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Image    string    `json:"image"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register creates a local account.
func (c *Client) Register(ctx context.Context, firstName, lastName, email, password string) (User, error) {
	var out User
	err := c.do(ctx, http.MethodPost, "/auth/register", map[string]string{
		"firstName": firstName,
		"lastName":  lastName,
		"email":     email,
		"password":  password,
	}, &out)
	return out, err
}

// Login signs in and stores the session cookie.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	var out struct {
		Message string `json:"message"`
		User    User   `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{"email": email, "password": password}, &out)
	return out.User, err
}

// Logout expires the session cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the signed-in user's profile.
func (c *Client) Me(ctx context.Context) (User, error) {
	var out User
	err := c.do(ctx, http.MethodGet, "/user/get-user", nil, &out)
	return out, err
}

// CreateTeam creates a team owned by the caller.
func (c *Client) CreateTeam(ctx context.Context, name, description string) (Team, error) {
	var out Team
	err := c.do(ctx, http.MethodPost, "/team/new", map[string]string{"name": name, "description": description}, &out)
	return out, err
}

// JoinTeam joins a team by code and returns the welcome message.
func (c *Client) JoinTeam(ctx context.Context, code string) (string, error) {
	var out messageResponse
	err := c.do(ctx, http.MethodPost, "/team/join", map[string]string{"teamCode": code}, &out)
	return out.Message, err
}

// ListTeams lists the caller's memberships.
func (c *Client) ListTeams(ctx context.Context) ([]Membership, error) {
	var out []Membership
	err := c.do(ctx, http.MethodGet, "/team/", nil, &out)
	return out, err
}

// ListMembers lists a team's members.
func (c *Client) ListMembers(ctx context.Context, code string) ([]Member, error) {
	var out []Member
	err := c.do(ctx, http.MethodGet, "/team/"+url.PathEscape(code)+"/members", nil, &out)
	return out, err
}

// DeleteTeam deletes a team the caller created.
func (c *Client) DeleteTeam(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodDelete, "/team/"+url.PathEscape(code), nil, nil)
}

// LeaveTeam removes the caller from a team.
func (c *Client) LeaveTeam(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodDelete, "/team/"+url.PathEscape(code)+"/members/me", nil, nil)
}

// RemoveMember removes another member by email.
func (c *Client) RemoveMember(ctx context.Context, code, email string) error {
	return c.do(ctx, http.MethodDelete, "/team/"+url.PathEscape(code)+"/members/"+url.PathEscape(email), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, v any) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return APIError{Status: resp.StatusCode, Message: extractMessage(resp.Body)}
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func extractMessage(body io.Reader) string {
	var payload messageResponse
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil || len(data) == 0 {
		return ""
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}
	return payload.Message
}
