package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCredentialLifecycleScenario walks the whole flow: register, use the
// pair, refresh, observe the old pair die and the new one work, then logout.
func TestCredentialLifecycleScenario(t *testing.T) {
	h := newTestHarness(t)

	pair := h.register(t, "alice@example.com", "alice")
	require.Equal(t, "Bearer", pair.TokenType)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "alice", pair.User.Username)

	// The fresh access token opens a protected route.
	var me struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	resp := h.doJSON(t, http.MethodGet, "/api/users/me", pair.AccessToken, nil, &me)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, pair.User.ID, me.ID)
	require.Equal(t, "alice@example.com", me.Email)

	// Rotate.
	var rotated pairResponse
	resp = h.doJSON(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, &rotated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEqual(t, pair.AccessToken, rotated.AccessToken)

	// The old pair is dead on both fronts.
	resp = h.doJSON(t, http.MethodGet, "/api/users/me", pair.AccessToken, nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refresh_token": pair.RefreshToken,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// The rotated access token works.
	resp = h.doJSON(t, http.MethodGet, "/api/users/me", rotated.AccessToken, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Logout kills it; a second logout is still 204.
	resp = h.doJSON(t, http.MethodPost, "/api/auth/logout", rotated.AccessToken, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = h.doJSON(t, http.MethodGet, "/api/users/me", rotated.AccessToken, nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPost, "/api/auth/logout", rotated.AccessToken, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRegistrationConflicts(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "alice@example.com", "alice")

	resp := h.doJSON(t, http.MethodPost, "/api/auth/registration", "", map[string]string{
		"email": "alice@example.com", "password": "pw", "name": "x", "username": "other",
	}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPost, "/api/auth/registration", "", map[string]string{
		"email": "other@example.com", "password": "pw", "name": "x", "username": "alice",
	}, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	h := newTestHarness(t)
	h.register(t, "alice@example.com", "alice")

	var wrongPw, unknown map[string]string
	resp := h.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "wrong",
	}, &wrongPw)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = h.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "nobody@example.com", "password": "wrong",
	}, &unknown)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Same error body for both: no account enumeration.
	require.Equal(t, wrongPw, unknown)
}

func TestOpportunisticGateOnAnnouncements(t *testing.T) {
	h := newTestHarness(t)
	pair := h.register(t, "alice@example.com", "alice")

	var created struct {
		ID string `json:"id"`
	}
	resp := h.doJSON(t, http.MethodPost, "/api/announcements", pair.AccessToken, map[string]any{
		"title":       "calculus notes",
		"description": "second-year notes for sale",
		"tags":        []string{"maths", "notes"},
	}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	type entry struct {
		ID    string `json:"id"`
		Owned bool   `json:"owned"`
	}

	// Anonymous read succeeds, with no ownership attribution.
	var anon []entry
	resp = h.doJSON(t, http.MethodGet, "/api/announcements", "", nil, &anon)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, anon, 1)
	require.False(t, anon[0].Owned)

	// A garbage token degrades to anonymous instead of failing.
	resp = h.doJSON(t, http.MethodGet, "/api/announcements", "garbage-token", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The owner sees the flag.
	var owned []entry
	resp = h.doJSON(t, http.MethodGet, "/api/announcements", pair.AccessToken, nil, &owned)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, owned[0].Owned)

	// A different user does not, and cannot delete.
	other := h.register(t, "bob@example.com", "bob")
	var viewed []entry
	resp = h.doJSON(t, http.MethodGet, "/api/announcements", other.AccessToken, nil, &viewed)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, viewed[0].Owned)

	resp = h.doJSON(t, http.MethodDelete, "/api/announcements/"+created.ID, other.AccessToken, nil, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The owner can.
	resp = h.doJSON(t, http.MethodDelete, "/api/announcements/"+created.ID, pair.AccessToken, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestMandatoryGateRejectsUniformly(t *testing.T) {
	h := newTestHarness(t)
	pair := h.register(t, "alice@example.com", "alice")

	cases := map[string]string{
		"no token":      "",
		"garbage":       "garbage",
		"refresh token": pair.RefreshToken,
	}

	var bodies []map[string]string
	for name, token := range cases {
		var body map[string]string
		resp := h.doJSON(t, http.MethodGet, "/api/users/me", token, nil, &body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
		bodies = append(bodies, body)
	}

	// Every rejection carries the identical body.
	for _, b := range bodies[1:] {
		require.Equal(t, bodies[0], b)
	}
}

func TestPublicUserProfile(t *testing.T) {
	h := newTestHarness(t)
	pair := h.register(t, "alice@example.com", "alice")

	var summary struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	resp := h.doJSON(t, http.MethodGet, "/api/users/"+pair.User.ID, "", nil, &summary)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "alice", summary.Username)
	require.Empty(t, summary.Email, "public summary must not leak the email")

	resp = h.doJSON(t, http.MethodGet, "/api/users/nope", "", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestHarness(t)

	resp := h.doJSON(t, http.MethodGet, "/livez", "", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var ready struct {
		Status string `json:"status"`
	}
	resp = h.doJSON(t, http.MethodGet, "/readyz", "", nil, &ready)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", ready.Status)
}
