package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ksmcod/tasky-api/pkg/api/client"
)

func newClient(t *testing.T, srv *httptest.Server) *client.Client {
	t.Helper()
	c, err := client.New(srv.URL, client.WithHTTPClient(&http.Client{Transport: srv.Client().Transport}))
	require.NoError(t, err)
	return c
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	var apiErr client.APIError
	require.True(t, errors.As(err, &apiErr), "expected api error, got %v", err)
	assert.Equal(t, status, apiErr.Status, apiErr.Message)
}

func TestTeamLifecycleEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()
	ctx := context.Background()

	alice := newClient(t, srv)
	bob := newClient(t, srv)

	_, err := alice.Register(ctx, "Alice", "Smith", "alice@example.com", "alice-password")
	require.NoError(t, err)
	_, err = bob.Register(ctx, "Bob", "Jones", "bob@example.com", "bob-password")
	require.NoError(t, err)

	_, err = alice.Me(ctx)
	requireStatus(t, err, http.StatusUnauthorized)

	_, err = alice.Login(ctx, "alice@example.com", "alice-password")
	require.NoError(t, err)
	_, err = bob.Login(ctx, "bob@example.com", "bob-password")
	require.NoError(t, err)

	me, err := alice.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", me.Name)
	assert.Equal(t, "https://avatar.iran.liara.run/username?username=Alice+Smith", me.Image)

	created, err := alice.CreateTeam(ctx, "Alpha", "first team")
	require.NoError(t, err)
	require.Len(t, created.JoinCode, 8)

	welcome, err := bob.JoinTeam(ctx, created.JoinCode)
	require.NoError(t, err)
	assert.Equal(t, "Welcome to Alpha", welcome)

	_, err = bob.JoinTeam(ctx, created.JoinCode)
	requireStatus(t, err, http.StatusConflict)

	members, err := alice.ListMembers(ctx, created.JoinCode)
	require.NoError(t, err)
	require.Len(t, members, 2)
	roles := map[string]string{}
	for _, m := range members {
		roles[m.Email] = m.Role
	}
	assert.Equal(t, "CREATOR", roles["alice@example.com"])
	assert.Equal(t, "MEMBER", roles["bob@example.com"])

	bobTeams, err := bob.ListTeams(ctx)
	require.NoError(t, err)
	require.Len(t, bobTeams, 1)
	assert.Equal(t, "MEMBER", bobTeams[0].Role)

	requireStatus(t, alice.LeaveTeam(ctx, created.JoinCode), http.StatusBadRequest)
	requireStatus(t, bob.DeleteTeam(ctx, created.JoinCode), http.StatusForbidden)
	requireStatus(t, bob.RemoveMember(ctx, created.JoinCode, "alice@example.com"), http.StatusForbidden)
	requireStatus(t, alice.RemoveMember(ctx, created.JoinCode, "alice@example.com"), http.StatusBadRequest)

	require.NoError(t, alice.RemoveMember(ctx, created.JoinCode, "bob@example.com"))
	_, err = bob.ListMembers(ctx, created.JoinCode)
	requireStatus(t, err, http.StatusForbidden)

	_, err = bob.JoinTeam(ctx, created.JoinCode)
	require.NoError(t, err)
	require.NoError(t, bob.LeaveTeam(ctx, created.JoinCode))

	require.NoError(t, alice.DeleteTeam(ctx, created.JoinCode))
	_, err = alice.ListMembers(ctx, created.JoinCode)
	requireStatus(t, err, http.StatusNotFound)

	aliceTeams, err := alice.ListTeams(ctx)
	require.NoError(t, err)
	assert.Empty(t, aliceTeams)

	require.NoError(t, alice.Logout(ctx))
	_, err = alice.Me(ctx)
	requireStatus(t, err, http.StatusUnauthorized)
}
