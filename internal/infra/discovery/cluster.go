package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"

	"mcpdex/internal/domain"
)

// clusterResourceCandidates are tried in order; the first schema the
// control plane serves is authoritative for the whole cycle. The
// kagent.dev entry is a compatibility alias for clusters that predate
// the mcpdex resource group.
var clusterResourceCandidates = []schema.GroupVersionResource{
	{Group: "mcpdex.dev", Version: "v1alpha2", Resource: "toolservers"},
	{Group: "mcpdex.dev", Version: "v1alpha1", Resource: "toolservers"},
	{Group: "kagent.dev", Version: "v1alpha1", Resource: "toolservers"},
}

// ResourceLister is the narrow control-plane boundary the provider
// queries. The production implementation wraps a dynamic client built
// fresh for each cycle; tests substitute fakes.
type ResourceLister interface {
	List(ctx context.Context, gvr schema.GroupVersionResource, namespace string) (*unstructured.UnstructuredList, error)
}

// ListerFactory builds a ResourceLister for one discovery cycle. No
// control-plane client survives the cycle that created it.
type ListerFactory func(settings domain.DiscoverySettings) (ResourceLister, error)

type ClusterProvider struct {
	logger     *zap.Logger
	newLister  ListerFactory
	candidates []schema.GroupVersionResource
}

type ClusterProviderOptions struct {
	Logger *zap.Logger
	// Lister overrides the production factory; nil means "build a
	// dynamic client per cycle from the configured kubeconfig".
	Lister ListerFactory
	// Candidates overrides the resource schemas tried, newest first.
	Candidates []schema.GroupVersionResource
}

func NewClusterProvider(opts ClusterProviderOptions) *ClusterProvider {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := opts.Lister
	if factory == nil {
		factory = NewKubeListerFactory()
	}
	candidates := opts.Candidates
	if len(candidates) == 0 {
		candidates = clusterResourceCandidates
	}
	return &ClusterProvider{
		logger:     logger.Named("discovery.cluster"),
		newLister:  factory,
		candidates: candidates,
	}
}

func (p *ClusterProvider) Name() string {
	return ProviderNameCluster
}

func (p *ClusterProvider) Kind() domain.Provenance {
	return domain.ProvenanceCluster
}

// Discover walks the candidate schemas in priority order. A NotFound
// from the API server means the schema is absent and the next candidate
// is tried; any candidate that lists successfully ends the walk.
func (p *ClusterProvider) Discover(ctx context.Context, settings domain.DiscoverySettings) domain.DiscoveryResult {
	lister, err := p.newLister(settings)
	if err != nil {
		return unavailable(fmt.Sprintf("control plane client: %v", err))
	}

	observedAt := time.Now().UTC()
	for _, gvr := range p.candidates {
		list, err := lister.List(ctx, gvr, settings.Namespace)
		if err != nil {
			if apierrors.IsNotFound(err) {
				p.logger.Debug("candidate schema absent",
					zap.String("resource", gvrString(gvr)),
				)
				continue
			}
			if errors.Is(err, context.DeadlineExceeded) || apierrors.IsTimeout(err) {
				return timedOut(fmt.Sprintf("list %s: %v", gvrString(gvr), err))
			}
			return unavailable(fmt.Sprintf("list %s: %v", gvrString(gvr), err))
		}
		return domain.DiscoveryResult{
			Status:  domain.DiscoveryOK,
			Servers: p.project(gvr, list, observedAt),
		}
	}
	return unavailable("no candidate toolserver resource is served by the cluster")
}

func (p *ClusterProvider) project(gvr schema.GroupVersionResource, list *unstructured.UnstructuredList, observedAt time.Time) []domain.ToolServer {
	if list == nil {
		return nil
	}
	servers := make([]domain.ToolServer, 0, len(list.Items))
	for _, item := range list.Items {
		server, ok := projectClusterObject(gvr, item, observedAt)
		if !ok {
			p.logger.Debug("object skipped",
				zap.String("resource", gvrString(gvr)),
				zap.String("object", objectRef(item)),
			)
			continue
		}
		servers = append(servers, server)
	}
	return servers
}

func projectClusterObject(gvr schema.GroupVersionResource, item unstructured.Unstructured, observedAt time.Time) (domain.ToolServer, bool) {
	endpoint, _, _ := unstructured.NestedString(item.Object, "spec", "endpoint")
	if endpoint == "" {
		endpoint, _, _ = unstructured.NestedString(item.Object, "spec", "url")
	}
	if endpoint == "" {
		return domain.ToolServer{}, false
	}

	displayName, _, _ := unstructured.NestedString(item.Object, "spec", "displayName")
	if displayName == "" {
		displayName = item.GetName()
	}
	arguments, _, _ := unstructured.NestedStringMap(item.Object, "spec", "arguments")

	server := domain.ToolServer{
		Name:        item.GetName(),
		DisplayName: displayName,
		Endpoint:    endpoint,
		Provenance:  domain.ProvenanceCluster,
		Arguments:   arguments,
		SourceRef:   fmt.Sprintf("%s %s", gvrString(gvr), objectRef(item)),
		ObservedAt:  observedAt,
	}
	if err := server.Validate(); err != nil {
		return domain.ToolServer{}, false
	}
	return server, true
}

func gvrString(gvr schema.GroupVersionResource) string {
	return fmt.Sprintf("%s/%s/%s", gvr.Group, gvr.Version, gvr.Resource)
}

func objectRef(item unstructured.Unstructured) string {
	if ns := item.GetNamespace(); ns != "" {
		return ns + "/" + item.GetName()
	}
	return item.GetName()
}
