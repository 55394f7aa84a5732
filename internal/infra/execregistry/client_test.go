package execregistry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpdex/internal/domain"
)

func discoveredServer(name string) domain.ToolServer {
	return domain.ToolServer{
		Name:        name,
		DisplayName: "Search Tools",
		Endpoint:    "http://" + name + ".internal/mcp",
		Provenance:  domain.ProvenanceCluster,
		Arguments:   map[string]string{"profile": "default"},
		SourceRef:   "mcpdex.dev/v1alpha2/toolservers agents/" + name,
		ObservedAt:  time.Now().UTC(),
	}
}

func TestHTTPClientRegister_Success(t *testing.T) {
	var gotPath, gotContentType string
	var gotPayload providerPayload
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
	}))
	t.Cleanup(httpServer.Close)

	client := NewHTTPClient(HTTPClientOptions{BaseURL: httpServer.URL})
	err := client.Register(context.Background(), discoveredServer("search"))

	require.NoError(t, err)
	require.Equal(t, "/v1/providers", gotPath)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, "search", gotPayload.Name)
	require.Equal(t, "http://search.internal/mcp", gotPayload.Endpoint)
	require.Equal(t, string(domain.ProvenanceCluster), gotPayload.Provenance)
	require.Equal(t, map[string]string{"profile": "default"}, gotPayload.Arguments)
}

func TestHTTPClientRegister_ConflictMapsToSentinel(t *testing.T) {
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "provider exists", http.StatusConflict)
	}))
	t.Cleanup(httpServer.Close)

	client := NewHTTPClient(HTTPClientOptions{BaseURL: httpServer.URL})
	err := client.Register(context.Background(), discoveredServer("search"))

	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestHTTPClientRegister_ErrorStatusIncludesBody(t *testing.T) {
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	t.Cleanup(httpServer.Close)

	client := NewHTTPClient(HTTPClientOptions{BaseURL: httpServer.URL})
	err := client.Register(context.Background(), discoveredServer("search"))

	require.Error(t, err)
	require.NotErrorIs(t, err, domain.ErrAlreadyRegistered)
	require.Contains(t, err.Error(), "500")
	require.Contains(t, err.Error(), "backend down")
}

func TestHTTPClientRegister_TrimsTrailingSlash(t *testing.T) {
	var gotPath string
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(httpServer.Close)

	client := NewHTTPClient(HTTPClientOptions{BaseURL: httpServer.URL + "/"})
	err := client.Register(context.Background(), discoveredServer("search"))

	require.NoError(t, err)
	require.Equal(t, "/v1/providers", gotPath)
}

func TestHTTPClientRegister_Timeout(t *testing.T) {
	release := make(chan struct{})
	httpServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(httpServer.Close)
	t.Cleanup(func() { close(release) })

	client := NewHTTPClient(HTTPClientOptions{BaseURL: httpServer.URL, Timeout: 50 * time.Millisecond})
	err := client.Register(context.Background(), discoveredServer("search"))

	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
