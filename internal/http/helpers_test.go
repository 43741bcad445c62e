package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/studymate/studymate/internal/chat"
	"github.com/studymate/studymate/internal/service"
	"github.com/studymate/studymate/internal/store/drivers/sqlite"
	"github.com/studymate/studymate/pkg/cryptox"
	"github.com/studymate/studymate/pkg/jwtx"
	"github.com/studymate/studymate/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "http-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type testHarness struct {
	server   *httptest.Server
	router   *Router
	registry *chat.Registry
	auth     *service.AuthService
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	// File-backed, like production: the server handles requests on many pool
	// connections, and each must see the same database.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(t.TempDir(), "http-test.db"))
	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)
	codec, err := jwtx.NewCodec("test-key", pemKey, "studymate-test")
	require.NoError(t, err)

	logger := slogx.New(slogx.Config{
		Service: "studymate-test",
		Level:   "error",
		Format:  "text",
	})

	registry := chat.NewRegistry()
	t.Cleanup(registry.CloseAll)

	router := NewRouter(codec, "test", st, registry, logger)
	router.Gate = &service.AccessGate{Codec: codec, Store: st}
	router.AuthService = &service.AuthService{
		Codec:      codec,
		Store:      st,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	router.UserService = &service.UserService{Store: st}
	router.AnnouncementService = &service.AnnouncementService{Store: st}
	router.ChatService = &service.ChatService{Store: st, Registry: registry}
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testHarness{
		server:   srv,
		router:   router,
		registry: registry,
		auth:     router.AuthService,
	}
}

// doJSON fires a JSON request and decodes the response body into out (when
// out is non-nil).
func (h *testHarness) doJSON(t *testing.T, method, path, bearer string, body, out any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, h.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

type pairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"user"`
}

func (h *testHarness) register(t *testing.T, email, username string) pairResponse {
	t.Helper()

	var pair pairResponse
	resp := h.doJSON(t, http.MethodPost, "/api/auth/registration", "", map[string]string{
		"email":    email,
		"password": "correct horse battery staple",
		"name":     username,
		"username": username,
	}, &pair)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return pair
}
