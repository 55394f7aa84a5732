package execregistry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mcpdex/internal/domain"
)

const registerPath = "/v1/providers"

// maxErrorBodyBytes bounds how much of a failure response is kept for
// the error message.
const maxErrorBodyBytes = 512

// RegistryClient submits one tool server to the execution registry.
// Register must return domain.ErrAlreadyRegistered when the registry
// already knows the identifier.
type RegistryClient interface {
	Register(ctx context.Context, server domain.ToolServer) error
}

// HTTPClient is the production registry client. One POST per
// registration; the synchronizer drops pooled connections when a pass
// ends.
type HTTPClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

type HTTPClientOptions struct {
	BaseURL string
	Timeout time.Duration
}

func NewHTTPClient(opts HTTPClientOptions) *HTTPClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultRegistryTimeoutSeconds * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		timeout: timeout,
		client:  &http.Client{},
	}
}

// providerPayload is the registry's provider submission document.
type providerPayload struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName,omitempty"`
	Endpoint    string            `json:"endpoint"`
	Provenance  string            `json:"provenance"`
	Arguments   map[string]string `json:"arguments,omitempty"`
	SourceRef   string            `json:"sourceRef,omitempty"`
}

func (c *HTTPClient) Register(ctx context.Context, server domain.ToolServer) error {
	body, err := json.Marshal(providerPayload{
		Name:        server.Name,
		DisplayName: server.DisplayName,
		Endpoint:    server.Endpoint,
		Provenance:  string(server.Provenance),
		Arguments:   server.Arguments,
		SourceRef:   server.SourceRef,
	})
	if err != nil {
		return fmt.Errorf("encode provider %q: %w", server.Name, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+registerPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request for %q: %w", server.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("register %q: %w", server.Name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("register %q: %w", server.Name, domain.ErrAlreadyRegistered)
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		msg := strings.TrimSpace(string(snippet))
		if msg == "" {
			return fmt.Errorf("register %q: unexpected status %s", server.Name, resp.Status)
		}
		return fmt.Errorf("register %q: unexpected status %s: %s", server.Name, resp.Status, msg)
	}
}

// CloseIdleConnections releases pooled connections between passes.
func (c *HTTPClient) CloseIdleConnections() {
	c.client.CloseIdleConnections()
}
