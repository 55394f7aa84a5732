package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/telemetry"
)

type stubDirectory struct {
	view       domain.CatalogView
	viewErr    error
	refresh    domain.RefreshSummary
	refreshErr error
	status     domain.DiscoveryStatusReport

	getServer  domain.ToolServer
	getErr     error
	created    domain.ToolServer
	createErr  error
	updated    domain.ToolServer
	updateErr  error
	deleteErr  error
	lastName   string
	lastServer domain.ToolServer
}

func (d *stubDirectory) Catalog(context.Context) (domain.CatalogView, error) {
	return d.view, d.viewErr
}

func (d *stubDirectory) Refresh(context.Context) (domain.RefreshSummary, error) {
	return d.refresh, d.refreshErr
}

func (d *stubDirectory) Status(context.Context) domain.DiscoveryStatusReport {
	return d.status
}

func (d *stubDirectory) GetServer(_ context.Context, name string) (domain.ToolServer, error) {
	d.lastName = name
	return d.getServer, d.getErr
}

func (d *stubDirectory) CreateServer(_ context.Context, server domain.ToolServer) (domain.ToolServer, error) {
	d.lastServer = server
	if d.createErr != nil {
		return domain.ToolServer{}, d.createErr
	}
	if d.created.Name != "" {
		return d.created, nil
	}
	return server, nil
}

func (d *stubDirectory) UpdateServer(_ context.Context, name string, server domain.ToolServer) (domain.ToolServer, error) {
	d.lastName = name
	d.lastServer = server
	if d.updateErr != nil {
		return domain.ToolServer{}, d.updateErr
	}
	if d.updated.Name != "" {
		return d.updated, nil
	}
	return server, nil
}

func (d *stubDirectory) DeleteServer(_ context.Context, name string) error {
	d.lastName = name
	return d.deleteErr
}

func newTestServer(directory *stubDirectory) *Server {
	return NewServer(ServerOptions{Directory: directory})
}

func doRequest(t *testing.T, server *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for key, value := range header {
		req.Header.Set(key, value)
	}
	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, req)
	return recorder
}

func decodeErrorBody(t *testing.T, recorder *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	return body
}

func TestServerCatalog_ReturnsMergedView(t *testing.T) {
	directory := &stubDirectory{
		view: domain.CatalogView{
			Servers: []domain.ToolServer{
				{Name: "local", Endpoint: "http://local.internal/mcp", Provenance: domain.ProvenanceManual},
				{Name: "remote", Endpoint: "http://remote.svc/mcp", Provenance: domain.ProvenanceCluster},
			},
			ETag:        "abc123",
			GeneratedAt: time.Now().UTC(),
		},
	}
	server := newTestServer(directory)

	recorder := doRequest(t, server, http.MethodGet, "/api/v1/servers", "", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	require.Equal(t, `"abc123"`, recorder.Header().Get("ETag"))
	require.NotEmpty(t, recorder.Header().Get(telemetry.RequestIDHeader))

	var view domain.CatalogView
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &view))
	require.Len(t, view.Servers, 2)
	require.Equal(t, domain.ProvenanceManual, view.Servers[0].Provenance)
	require.Equal(t, domain.ProvenanceCluster, view.Servers[1].Provenance)
}

func TestServerCatalog_EchoesRequestID(t *testing.T) {
	server := newTestServer(&stubDirectory{})

	recorder := doRequest(t, server, http.MethodGet, "/api/v1/servers", "", map[string]string{
		telemetry.RequestIDHeader: "req-42",
	})

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "req-42", recorder.Header().Get(telemetry.RequestIDHeader))
}

func TestServerGetServer_NotFoundMapsTo404(t *testing.T) {
	directory := &stubDirectory{
		getErr: domain.E(domain.CodeNotFound, "directory.get", `tool server "ghost" not found`, domain.ErrServerNotFound),
	}
	server := newTestServer(directory)

	recorder := doRequest(t, server, http.MethodGet, "/api/v1/servers/ghost", "", nil)

	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.Equal(t, "ghost", directory.lastName)
	body := decodeErrorBody(t, recorder)
	require.Equal(t, "NOT_FOUND", body.Code)
	require.Contains(t, body.Message, "ghost")
}

func TestServerCreateServer_Returns201(t *testing.T) {
	directory := &stubDirectory{}
	server := newTestServer(directory)

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/servers",
		`{"name":"local","endpoint":"http://local.internal/mcp","arguments":{"profile":"default"}}`, nil)

	require.Equal(t, http.StatusCreated, recorder.Code)
	require.Equal(t, "local", directory.lastServer.Name)
	require.Equal(t, map[string]string{"profile": "default"}, directory.lastServer.Arguments)

	var created domain.ToolServer
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &created))
	require.Equal(t, "local", created.Name)
}

func TestServerCreateServer_ConflictMapsTo409(t *testing.T) {
	directory := &stubDirectory{
		createErr: domain.E(domain.CodeAlreadyExists, "store.create", `tool server "local" already exists`, domain.ErrServerExists),
	}
	server := newTestServer(directory)

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/servers",
		`{"name":"local","endpoint":"http://local.internal/mcp"}`, nil)

	require.Equal(t, http.StatusConflict, recorder.Code)
	require.Equal(t, "ALREADY_EXISTS", decodeErrorBody(t, recorder).Code)
}

func TestServerCreateServer_MalformedJSONMapsTo400(t *testing.T) {
	server := newTestServer(&stubDirectory{})

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/servers", `{"name":`, nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Equal(t, "INVALID_ARGUMENT", decodeErrorBody(t, recorder).Code)
}

func TestServerCreateServer_EmptyBodyMapsTo400(t *testing.T) {
	server := newTestServer(&stubDirectory{})

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/servers", "", nil)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestServerUpdateServer_GuardDenialMapsTo403(t *testing.T) {
	directory := &stubDirectory{
		updateErr: domain.E(domain.CodePermissionDenied, "guard.update",
			`read-only: "remote" is managed by cluster discovery`, domain.ErrExternallyManaged),
	}
	server := newTestServer(directory)

	recorder := doRequest(t, server, http.MethodPut, "/api/v1/servers/remote",
		`{"name":"remote","endpoint":"http://hijack.internal/mcp"}`, nil)

	require.Equal(t, http.StatusForbidden, recorder.Code)
	body := decodeErrorBody(t, recorder)
	require.Equal(t, "PERMISSION_DENIED", body.Code)
	require.Contains(t, body.Message, "read-only")
}

func TestServerDeleteServer_Returns204(t *testing.T) {
	directory := &stubDirectory{}
	server := newTestServer(directory)

	recorder := doRequest(t, server, http.MethodDelete, "/api/v1/servers/local", "", nil)

	require.Equal(t, http.StatusNoContent, recorder.Code)
	require.Equal(t, "local", directory.lastName)
	require.Empty(t, recorder.Body.String())
}

func TestServerRefresh_ReturnsSummary(t *testing.T) {
	directory := &stubDirectory{
		refresh: domain.RefreshSummary{
			CycleID:     "cycle-1",
			Mode:        domain.ModeAuto,
			Status:      domain.DiscoveryOK,
			Discovered:  2,
			CatalogSize: 3,
		},
	}
	server := newTestServer(directory)

	recorder := doRequest(t, server, http.MethodPost, "/api/v1/discovery/refresh", "", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var summary domain.RefreshSummary
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &summary))
	require.Equal(t, "cycle-1", summary.CycleID)
	require.Equal(t, 2, summary.Discovered)
	require.Equal(t, 3, summary.CatalogSize)
}

func TestServerStatus_ReturnsReport(t *testing.T) {
	directory := &stubDirectory{
		status: domain.DiscoveryStatusReport{
			Enabled:        true,
			Mode:           domain.ModeAuto,
			TimeoutSeconds: 10,
			InFlight:       true,
		},
	}
	server := newTestServer(directory)

	recorder := doRequest(t, server, http.MethodGet, "/api/v1/discovery/status", "", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	var report domain.DiscoveryStatusReport
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &report))
	require.True(t, report.Enabled)
	require.True(t, report.InFlight)
	require.Equal(t, 10, report.TimeoutSeconds)
}

func TestServerRouting_MethodNotAllowed(t *testing.T) {
	server := newTestServer(&stubDirectory{})

	recorder := doRequest(t, server, http.MethodPatch, "/api/v1/servers", "", nil)

	require.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}
