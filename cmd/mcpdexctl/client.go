package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"mcpdex/internal/domain"
	"mcpdex/internal/infra/telemetry"
)

const maxErrorBodyBytes = 4096

type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
	if e.message != "" {
		return fmt.Sprintf("daemon returned status %d: %s", e.status, e.message)
	}
	return fmt.Sprintf("daemon returned status %d", e.status)
}

type apiClient struct {
	baseURL string
	client  *http.Client
}

func newAPIClient(opts *cliOptions) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(opts.addr, "/"),
		client:  &http.Client{Timeout: opts.timeout},
	}
}

func (c *apiClient) catalog(ctx context.Context) (domain.CatalogView, error) {
	var view domain.CatalogView
	err := c.do(ctx, http.MethodGet, "/api/v1/servers", nil, &view)
	return view, err
}

func (c *apiClient) getServer(ctx context.Context, name string) (domain.ToolServer, error) {
	var server domain.ToolServer
	err := c.do(ctx, http.MethodGet, "/api/v1/servers/"+url.PathEscape(name), nil, &server)
	return server, err
}

func (c *apiClient) createServer(ctx context.Context, server domain.ToolServer) (domain.ToolServer, error) {
	var created domain.ToolServer
	err := c.do(ctx, http.MethodPost, "/api/v1/servers", server, &created)
	return created, err
}

func (c *apiClient) updateServer(ctx context.Context, name string, server domain.ToolServer) (domain.ToolServer, error) {
	var updated domain.ToolServer
	err := c.do(ctx, http.MethodPut, "/api/v1/servers/"+url.PathEscape(name), server, &updated)
	return updated, err
}

func (c *apiClient) deleteServer(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/servers/"+url.PathEscape(name), nil, nil)
}

func (c *apiClient) refresh(ctx context.Context) (domain.RefreshSummary, error) {
	var summary domain.RefreshSummary
	err := c.do(ctx, http.MethodPost, "/api/v1/discovery/refresh", nil, &summary)
	return summary, err
}

func (c *apiClient) status(ctx context.Context) (domain.DiscoveryStatusReport, error) {
	var report domain.DiscoveryStatusReport
	err := c.do(ctx, http.MethodGet, "/api/v1/discovery/status", nil, &report)
	return report, err
}

func (c *apiClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(telemetry.RequestIDHeader, telemetry.NewRequestID())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("call daemon at %s: %w", c.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Code == "" {
		return &apiError{status: resp.StatusCode, message: strings.TrimSpace(string(data))}
	}
	return &apiError{status: resp.StatusCode, code: body.Code, message: body.Message}
}

func apiErrorStatus(err error) (int, bool) {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return apiErr.status, true
	}
	return 0, false
}
