package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"mcpdex/internal/domain"
)

const apiListingPath = "/api/v1/toolservers"

// maxListingBytes caps how much of a listing response is read; a
// management API answering with something enormous is treated like any
// other unusable payload.
const maxListingBytes = 4 << 20

// APIProvider discovers tool servers from a management API with a
// single bounded GET per cycle. It never retries; the next catalog read
// is the retry.
type APIProvider struct {
	logger *zap.Logger
}

type APIProviderOptions struct {
	Logger *zap.Logger
}

func NewAPIProvider(opts APIProviderOptions) *APIProvider {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIProvider{logger: logger.Named("discovery.api")}
}

func (p *APIProvider) Name() string {
	return ProviderNameAPI
}

func (p *APIProvider) Kind() domain.Provenance {
	return domain.ProvenanceAPI
}

// apiToolServer is one record of the listing payload. Endpoint and url
// are accepted interchangeably, endpoint preferred.
type apiToolServer struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName"`
	Endpoint    string            `json:"endpoint"`
	URL         string            `json:"url"`
	Arguments   map[string]string `json:"arguments"`
}

func (p *APIProvider) Discover(ctx context.Context, settings domain.DiscoverySettings) domain.DiscoveryResult {
	if settings.APIBaseURL == "" {
		return unavailable("management api base url not configured")
	}
	listingURL := settings.APIBaseURL + apiListingPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listingURL, nil)
	if err != nil {
		return unavailable(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Accept", "application/json")

	// One client per cycle; nothing is kept warm between cycles.
	client := &http.Client{}
	defer client.CloseIdleConnections()

	resp, err := client.Do(req)
	if err != nil {
		if isTimeoutErr(err) {
			return timedOut(fmt.Sprintf("get %s: %v", listingURL, err))
		}
		return unavailable(fmt.Sprintf("get %s: %v", listingURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return unavailable(fmt.Sprintf("get %s: unexpected status %s", listingURL, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		if isTimeoutErr(err) {
			return timedOut(fmt.Sprintf("read listing: %v", err))
		}
		return unavailable(fmt.Sprintf("read listing: %v", err))
	}

	var records []apiToolServer
	if err := json.Unmarshal(body, &records); err != nil {
		return unavailable(fmt.Sprintf("decode listing: %v", err))
	}

	observedAt := time.Now().UTC()
	servers := make([]domain.ToolServer, 0, len(records))
	for _, record := range records {
		server, ok := projectAPIRecord(record, listingURL, observedAt)
		if !ok {
			p.logger.Debug("listing record skipped", zap.String("name", record.Name))
			continue
		}
		servers = append(servers, server)
	}
	return domain.DiscoveryResult{Status: domain.DiscoveryOK, Servers: servers}
}

func projectAPIRecord(record apiToolServer, listingURL string, observedAt time.Time) (domain.ToolServer, bool) {
	endpoint := record.Endpoint
	if endpoint == "" {
		endpoint = record.URL
	}
	if endpoint == "" {
		return domain.ToolServer{}, false
	}

	displayName := record.DisplayName
	if displayName == "" {
		displayName = record.Name
	}

	server := domain.ToolServer{
		Name:        record.Name,
		DisplayName: displayName,
		Endpoint:    endpoint,
		Provenance:  domain.ProvenanceAPI,
		Arguments:   record.Arguments,
		SourceRef:   listingURL,
		ObservedAt:  observedAt,
	}
	if err := server.Validate(); err != nil {
		return domain.ToolServer{}, false
	}
	return server, true
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
