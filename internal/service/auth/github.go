package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"github.com/ksmcod/tasky-api/internal/service/account"
	"github.com/ksmcod/tasky-api/pkg/apperr"
	"github.com/ksmcod/tasky-api/pkg/config"
)

// ProviderGitHub tags accounts created through GitHub login.
const ProviderGitHub = "github"

const defaultGitHubAPI = "https://api.github.com"

var githubScopes = []string{"user:email"}

// GitHub exchanges authorization codes for GitHub user profiles.
type GitHub struct {
	config  oauth2.Config
	apiBase string
	client  *http.Client
}

// GitHubOption customises a GitHub provider.
type GitHubOption func(*GitHub)

// WithGitHubEndpoint overrides the OAuth authorize and token URLs.
func WithGitHubEndpoint(endpoint oauth2.Endpoint) GitHubOption {
	return func(g *GitHub) {
		g.config.Endpoint = endpoint
	}
}

// WithGitHubAPIBase overrides the REST API base URL.
func WithGitHubAPIBase(base string) GitHubOption {
	return func(g *GitHub) {
		g.apiBase = strings.TrimRight(base, "/")
	}
}

// WithGitHubHTTPClient sets the client used for token exchange and API calls.
func WithGitHubHTTPClient(client *http.Client) GitHubOption {
	return func(g *GitHub) {
		if client != nil {
			g.client = client
		}
	}
}

// NewGitHub returns a provider configured from cfg, or nil when GitHub
// credentials are absent.
func NewGitHub(cfg config.APIConfig, opts ...GitHubOption) *GitHub {
	if !cfg.GitHubEnabled() {
		return nil
	}
	g := &GitHub{
		config: oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubCallbackURL(),
			Scopes:       githubScopes,
			Endpoint:     github.Endpoint,
		},
		apiBase: defaultGitHubAPI,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AuthCodeURL returns the consent page URL.
func (g *GitHub) AuthCodeURL(state string) string {
	return g.config.AuthCodeURL(state)
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Profile exchanges code for a token and reads the user's profile and
// primary verified email.
func (g *GitHub) Profile(ctx context.Context, code string) (account.FederatedProfile, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, g.client)
	tok, err := g.config.Exchange(ctx, code)
	if err != nil {
		return account.FederatedProfile{}, apperr.Wrap(apperr.KindUnauthorized, "GitHub authorization failed", err)
	}
	client := g.config.Client(ctx, tok)

	var user githubUser
	if err := g.get(ctx, client, "/user", &user); err != nil {
		return account.FederatedProfile{}, err
	}
	email := user.Email
	if email == "" {
		var emails []githubEmail
		if err := g.get(ctx, client, "/user/emails", &emails); err != nil {
			return account.FederatedProfile{}, err
		}
		email = primaryEmail(emails)
	}
	if email == "" {
		return account.FederatedProfile{}, apperr.Validation("GitHub account has no verified email")
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}
	return account.FederatedProfile{
		Email:       email,
		DisplayName: name,
		PhotoURL:    user.AvatarURL,
		Provider:    ProviderGitHub,
		ProviderID:  strconv.FormatInt(user.ID, 10),
	}, nil
}

func (g *GitHub) get(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return apperr.Internal("build github request", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return apperr.Internal("call github api", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apperr.Internal("call github api", fmt.Errorf("GET %s: status %d", path, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Internal("decode github response", err)
	}
	return nil
}

func primaryEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

// NewState returns a random OAuth state value.
func NewState() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
