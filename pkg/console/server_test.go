package console

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"filterdesk/internal/testutil"
	"filterdesk/pkg/config"
	"filterdesk/pkg/logger"
	"filterdesk/pkg/settingsapi"
)

type testConsole struct {
	stub   *testutil.SettingsStub
	server *httptest.Server
	client *http.Client
	audit  string
}

func startConsole(t *testing.T, state testutil.State) *testConsole {
	t.Helper()
	stub := testutil.StartSettingsStub(t, state)
	audit := filepath.Join(t.TempDir(), "audit.log")
	srv, err := New(Options{
		API: settingsapi.Options{BaseURL: stub.URL, Timeout: 5 * time.Second},
		Console: config.ConsoleConfig{
			SessionIdle: time.Minute,
			MaxSessions: 16,
			ResolveWait: 5 * time.Second,
		},
		AuditLog: audit,
		Log:      logger.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.audit.Close() })

	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)

	return &testConsole{stub: stub, server: server, client: newBrowserClient(t), audit: audit}
}

func newBrowserClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

// get fetches path and returns the final path after redirects and the body.
func (c *testConsole) get(t *testing.T, path string) (string, string) {
	t.Helper()
	resp, err := c.client.Get(c.server.URL + path)
	require.NoError(t, err)
	return finish(t, resp)
}

func (c *testConsole) post(t *testing.T, path string, form url.Values) (string, string) {
	t.Helper()
	resp, err := c.client.PostForm(c.server.URL+path, form)
	require.NoError(t, err)
	return finish(t, resp)
}

func (c *testConsole) login(t *testing.T) {
	t.Helper()
	final, _ := c.post(t, "/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	require.Equal(t, "/white-list", final)
}

func finish(t *testing.T, resp *http.Response) (string, string) {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	return resp.Request.URL.Path, string(body)
}

func registered() testutil.State {
	return testutil.State{Users: map[string]string{"admin": "secret"}}
}

func TestGateRedirectsToRegisterWithoutAccounts(t *testing.T) {
	c := startConsole(t, testutil.State{})

	final, body := c.get(t, "/white-list")
	assert.Equal(t, "/register", final)
	assert.Contains(t, body, "<h1>Register</h1>")
}

func TestGateRedirectsToLoginWhenRegistered(t *testing.T) {
	c := startConsole(t, registered())

	for _, path := range []string{"/", "/white-list", "/filter-content", "/plugins-list", "/plugins-manager"} {
		final, _ := c.get(t, path)
		assert.Equal(t, "/login", final, path)
	}
}

func TestGateRedirectsToRegisterWhenAPIDown(t *testing.T) {
	c := startConsole(t, registered())
	c.stub.Fail(http.MethodGet, "/api/auth/check", 0)
	c.stub.Fail(http.MethodGet, "/api/auth/any", 0)

	final, _ := c.get(t, "/white-list")
	assert.Equal(t, "/register", final)
}

func TestRegisterThenLogin(t *testing.T) {
	c := startConsole(t, testutil.State{Domains: []string{"example.com"}})

	final, _ := c.post(t, "/register", url.Values{"username": {"admin"}, "password": {"secret"}})
	assert.Equal(t, "/login", final)

	final, body := c.post(t, "/login", url.Values{"username": {"admin"}, "password": {"nope"}})
	assert.Equal(t, "/login", final)
	assert.Contains(t, body, "Invalid username or password.")

	final, body = c.post(t, "/login", url.Values{"username": {"admin"}, "password": {"secret"}})
	assert.Equal(t, "/white-list", final)
	assert.Contains(t, body, "example.com")

	final, _ = c.get(t, "/")
	assert.Equal(t, "/white-list", final)
}

func TestBrowsersDoNotShareSessions(t *testing.T) {
	c := startConsole(t, registered())
	c.login(t)

	other := &testConsole{stub: c.stub, server: c.server, client: newBrowserClient(t)}
	final, _ := other.get(t, "/white-list")
	assert.Equal(t, "/login", final)
}

func TestDomainDeleteUsesServerList(t *testing.T) {
	state := registered()
	state.Domains = []string{"example.com", "go.dev"}
	c := startConsole(t, state)
	c.login(t)

	_, body := c.post(t, "/white-list/delete", url.Values{"domain": {"example.com"}})
	assert.NotContains(t, body, "example.com")
	assert.Contains(t, body, "go.dev")
	assert.Equal(t, 1, c.stub.Count(http.MethodDelete, "/api/approved-domains"))

	_, body = c.post(t, "/white-list/add", url.Values{"domain": {"not a domain"}})
	assert.Contains(t, body, "Could not add domain")
	assert.Equal(t, 0, c.stub.Count(http.MethodPost, "/api/approved-domains"))

	_, body = c.post(t, "/white-list/check", url.Values{"host": {"www.go.dev"}})
	assert.Contains(t, body, "www.go.dev is allowed.")

	audit, err := os.ReadFile(c.audit)
	require.NoError(t, err)
	assert.Contains(t, string(audit), `action=domain.delete target="example.com" result=ok`)
	assert.Contains(t, string(audit), `action=domain.add target="not a domain" result=failed`)
}

func TestContentPage(t *testing.T) {
	c := startConsole(t, registered())
	c.login(t)

	_, body := c.get(t, "/filter-content")
	assert.Contains(t, body, "There are no approved domains added.")

	c.post(t, "/white-list/add", url.Values{"domain": {"example.com"}})
	_, body = c.post(t, "/filter-content/add", url.Values{"domain": {"example.com"}, "content": {"video"}})
	assert.Contains(t, body, `<option value="example.com" selected>`)
	assert.Contains(t, body, "video")

	_, body = c.post(t, "/filter-content/add", url.Values{"domain": {"example.com"}, "content": {"font"}})
	assert.Contains(t, body, "Unknown content type font.")

	c.post(t, "/filter-content/delete", url.Values{"domain": {"example.com"}, "content": {"video"}})
	assert.Empty(t, c.stub.Snapshot().Contents)
}

func TestPluginOrderMoveAndSave(t *testing.T) {
	state := registered()
	state.Request = []string{"A", "B", "C"}
	state.Response = []string{"X", "Y"}
	c := startConsole(t, state)
	c.login(t)

	_, body := c.get(t, "/plugins-list")
	assert.NotContains(t, body, "Unsaved changes")

	_, body = c.post(t, "/plugins-list/move", url.Values{
		"stage": {"request"}, "to_stage": {"request"}, "from": {"0"}, "to": {"2"},
	})
	assert.Contains(t, body, "Unsaved changes")
	assert.Equal(t, 0, c.stub.Count(http.MethodPut, "/api/plugins"))

	c.post(t, "/plugins-list/move", url.Values{
		"stage": {"request"}, "to_stage": {"response"}, "from": {"0"}, "to": {"0"},
	})

	_, body = c.post(t, "/plugins-list/save", nil)
	assert.Contains(t, body, "Plugin order saved.")
	assert.NotContains(t, body, "Unsaved changes")
	assert.Equal(t, 1, c.stub.Count(http.MethodPut, "/api/plugins"))

	snap := c.stub.Snapshot()
	assert.Equal(t, []string{"B", "C", "A"}, snap.Request)
	assert.Equal(t, []string{"X", "Y"}, snap.Response)
}

func TestPluginListDeleteAndReload(t *testing.T) {
	state := registered()
	state.Request = []string{"A", "B"}
	state.Response = []string{"X"}
	c := startConsole(t, state)
	c.login(t)

	c.get(t, "/plugins-list")
	_, body := c.post(t, "/plugins-list/delete", url.Values{"stage": {"response"}, "index": {"0"}})
	assert.Contains(t, body, "Unsaved changes")

	_, body = c.post(t, "/plugins-list/reload", nil)
	assert.NotContains(t, body, "Unsaved changes")
	assert.Contains(t, body, "<td>X</td>")
}

func TestPluginManagerUploadAndDelete(t *testing.T) {
	state := registered()
	state.Request = []string{"A"}
	state.Files = []string{"A"}
	c := startConsole(t, state)
	c.login(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "my_plugin.py")
	require.NoError(t, err)
	_, err = part.Write([]byte("print('hello')\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := c.client.Post(c.server.URL+"/plugins-manager/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	final, body := finish(t, resp)
	assert.Equal(t, "/plugins-manager", final)
	assert.Contains(t, body, "File uploaded successfully")
	assert.Contains(t, body, "My Plugin")

	_, body = c.post(t, "/plugins-manager/delete", url.Values{"plugin": {"Missing"}})
	assert.Contains(t, body, "Failed to delete plugin")

	_, body = c.post(t, "/plugins-manager/delete", url.Values{"plugin": {"A"}})
	assert.Contains(t, body, "Plugin removed successfully")
	assert.NotContains(t, c.stub.Snapshot().Files, "A")
}

// blockingTransport holds every request until released.
type blockingTransport struct {
	release chan struct{}
}

func (b *blockingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	select {
	case <-b.release:
	case <-r.Context().Done():
	}
	return nil, errors.New("settings api unavailable")
}

func TestGateShowsLoadingWhileResolving(t *testing.T) {
	transport := &blockingTransport{release: make(chan struct{})}
	srv, err := New(Options{
		API:     settingsapi.Options{BaseURL: "http://settings.invalid", Transport: transport},
		Console: config.ConsoleConfig{MaxSessions: 4, ResolveWait: 20 * time.Millisecond},
		Log:     logger.Discard(),
	})
	require.NoError(t, err)
	server := httptest.NewServer(srv.Handler())
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(transport.release) })

	c := &testConsole{server: server, client: newBrowserClient(t)}
	final, body := c.get(t, "/white-list")
	assert.Equal(t, "/white-list", final)
	assert.Contains(t, body, "Loading...")
	assert.Contains(t, body, `http-equiv="refresh"`)
}

func TestOperationalEndpoints(t *testing.T) {
	c := startConsole(t, testutil.State{})

	for _, path := range []string{"/live", "/ready"} {
		resp, err := http.Get(c.server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	c.stub.Fail(http.MethodGet, "/api/auth/any", 0)
	resp, err := http.Get(c.server.URL + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Get(c.server.URL + "/metrics")
	require.NoError(t, err)
	metrics, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(metrics), "filterdesk_settings_api_requests_total"))
}

func TestServerStartAndShutdown(t *testing.T) {
	stub := testutil.StartSettingsStub(t, testutil.State{})
	srv, err := New(Options{
		Listen: "127.0.0.1:0",
		API:    settingsapi.Options{BaseURL: stub.URL},
		Log:    logger.Discard(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, srv.Start(ctx))

	resp, err := http.Get("http://" + srv.Addr() + "/live")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	require.NoError(t, srv.Shutdown(shutdownCtx))
}
