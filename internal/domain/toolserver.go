package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Provenance records how a tool server entered the directory.
type Provenance string

const (
	// ProvenanceManual: created by an operator through the directory API
	// and persisted in the local store. Fully mutable.
	ProvenanceManual Provenance = "manual"

	// ProvenanceCluster: observed on the cluster control plane during a
	// discovery cycle. The cluster owns the definition; the directory
	// treats it as read-only.
	ProvenanceCluster Provenance = "cluster-discovered"

	// ProvenanceAPI: reported by the management API during a discovery
	// cycle. The management plane owns the definition; the directory
	// treats it as read-only.
	ProvenanceAPI Provenance = "api-discovered"
)

// Discovered reports whether the provenance marks an externally managed
// entry. Mutations on discovered entries are rejected by the access guard.
func (p Provenance) Discovered() bool {
	return p == ProvenanceCluster || p == ProvenanceAPI
}

func (p Provenance) Valid() bool {
	switch p {
	case ProvenanceManual, ProvenanceCluster, ProvenanceAPI:
		return true
	default:
		return false
	}
}

// ToolServer describes one MCP tool server known to the directory.
// Name is the identifier: unique within a merged catalog view.
type ToolServer struct {
	Name        string            `json:"name"`
	DisplayName string            `json:"displayName,omitempty"`
	Endpoint    string            `json:"endpoint"`
	Provenance  Provenance        `json:"provenance"`
	Arguments   map[string]string `json:"arguments,omitempty"`
	SourceRef   string            `json:"sourceRef,omitempty"`
	ObservedAt  time.Time         `json:"observedAt"`
}

// Validate checks the fields an operator controls. Discovery providers
// apply the same rules before emitting a descriptor.
func (s ToolServer) Validate() error {
	var problems []string
	if strings.TrimSpace(s.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.ContainsAny(s.Name, " \t\n/") {
		problems = append(problems, "name must not contain whitespace or '/'")
	}
	if strings.TrimSpace(s.Endpoint) == "" {
		problems = append(problems, "endpoint is required")
	} else if u, err := url.Parse(s.Endpoint); err != nil || u.Scheme == "" {
		problems = append(problems, fmt.Sprintf("endpoint %q is not a valid URI", s.Endpoint))
	}
	if len(problems) > 0 {
		return E(CodeInvalidArgument, "", strings.Join(problems, "; "), ErrInvalidDescriptor)
	}
	return nil
}

// Clone returns a deep copy so callers can hold descriptors without
// sharing the arguments map.
func (s ToolServer) Clone() ToolServer {
	out := s
	if s.Arguments != nil {
		out.Arguments = make(map[string]string, len(s.Arguments))
		for k, v := range s.Arguments {
			out.Arguments[k] = v
		}
	}
	return out
}

// CatalogView is a merged snapshot of the directory: manual entries first
// in store order, then discovered entries in discovery order. Views are
// assembled per read and never persisted.
type CatalogView struct {
	Servers     []ToolServer `json:"servers"`
	ETag        string       `json:"etag,omitempty"`
	GeneratedAt time.Time    `json:"generatedAt"`
}

// Find returns the descriptor for name, honoring view order.
func (v CatalogView) Find(name string) (ToolServer, bool) {
	for _, s := range v.Servers {
		if s.Name == name {
			return s, true
		}
	}
	return ToolServer{}, false
}

// CountByProvenance tallies entries per provenance for status surfaces.
func (v CatalogView) CountByProvenance() map[Provenance]int {
	counts := make(map[Provenance]int, 3)
	for _, s := range v.Servers {
		counts[s.Provenance]++
	}
	return counts
}

// MutationOp names a write operation checked by the access guard.
type MutationOp string

const (
	MutationUpdate MutationOp = "update"
	MutationDelete MutationOp = "delete"
)

var ErrInvalidDescriptor = errors.New("invalid tool server descriptor")
var ErrServerNotFound = errors.New("tool server not found")
var ErrServerExists = errors.New("tool server already exists")
var ErrExternallyManaged = errors.New("read-only: externally managed")
var ErrDiscoveryDisabled = errors.New("discovery is disabled")
var ErrAlreadyRegistered = errors.New("tool server already registered")
var ErrStoreClosed = errors.New("store is closed")
