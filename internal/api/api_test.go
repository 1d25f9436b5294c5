package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mcp-supervisor/mcp-supervisor/internal/catalogconfig"
	"github.com/mcp-supervisor/mcp-supervisor/internal/secretstore"
	"github.com/mcp-supervisor/mcp-supervisor/internal/supervisor"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	secrets, err := secretstore.Open(filepath.Join(t.TempDir(), "secrets"), filepath.Join(t.TempDir(), "tmpfs"))
	require.NoError(t, err)

	sup := supervisor.New(supervisor.Options{})

	s := &Server{
		Supervisor: sup,
		Secrets:    secrets,
		Desired:    func() catalogconfig.DesiredSet { return catalogconfig.DesiredSet{} },
	}
	return s, httptest.NewServer(s.Handler())
}

func TestHandleStatusEmpty(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snapshot supervisor.StatusSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snapshot))
	require.Empty(t, snapshot.Entries)
}

func TestHandleOpenAPIEndpointsEmpty(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/openapi-endpoints")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var endpoints []supervisor.OpenAPIEndpoint
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&endpoints))
	require.Empty(t, endpoints)
}

func TestHandleHealthUnknownServerIs404(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health/no-such-server")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleStartUnknownServerIs404(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/servers/no-such-server/start", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleReloadInvokesCallback(t *testing.T) {
	s, srv := newTestServer(t)
	defer srv.Close()

	called := false
	s.Reload = func() { called = true }

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/reload", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.True(t, called)
}

func TestHandleReloadWithoutCallbackStillAccepts(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/reload", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestSecretSetUnsetRoundTrip(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	setReq, err := http.NewRequest(http.MethodPut, srv.URL+"/api/secrets/my-server/API_KEY", strings.NewReader(`{"value":"sekrit"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(setReq)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	sumResp, err := http.Get(srv.URL + "/api/secrets/my-server")
	require.NoError(t, err)
	defer sumResp.Body.Close()
	require.Equal(t, http.StatusOK, sumResp.StatusCode)

	var summary []secretstore.Summary
	require.NoError(t, json.NewDecoder(sumResp.Body).Decode(&summary))
	require.Len(t, summary, 1)
	require.Equal(t, "API_KEY", summary[0].Name)

	unsetReq, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/secrets/my-server/API_KEY", nil)
	require.NoError(t, err)
	unsetResp, err := http.DefaultClient.Do(unsetReq)
	require.NoError(t, err)
	unsetResp.Body.Close()
	require.Equal(t, http.StatusNoContent, unsetResp.StatusCode)

	afterResp, err := http.Get(srv.URL + "/api/secrets/my-server")
	require.NoError(t, err)
	defer afterResp.Body.Close()
	var after []secretstore.Summary
	require.NoError(t, json.NewDecoder(afterResp.Body).Decode(&after))
	require.Empty(t, after)
}

func TestSecretSetInvalidBodyIs400(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/api/secrets/my-server/API_KEY", strings.NewReader("not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSecretDeleteAll(t *testing.T) {
	_, srv := newTestServer(t)
	defer srv.Close()

	setReq, err := http.NewRequest(http.MethodPut, srv.URL+"/api/secrets/my-server/TOKEN", strings.NewReader(`{"value":"x"}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(setReq)
	require.NoError(t, err)
	resp.Body.Close()

	delReq, err := http.NewRequest(http.MethodDelete, srv.URL+"/api/secrets/my-server", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)
}
