package discovery

import (
	"context"
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"mcpdex/internal/domain"
)

// NewKubeListerFactory returns the production lister factory: a dynamic
// client is built from scratch on every cycle and garbage-collected with
// it, so no control-plane connection outlives a cycle.
func NewKubeListerFactory() ListerFactory {
	return func(settings domain.DiscoverySettings) (ResourceLister, error) {
		config, err := buildRestConfig(settings.Kubeconfig)
		if err != nil {
			return nil, err
		}
		if settings.Timeout > 0 {
			config.Timeout = settings.Timeout
		}
		client, err := dynamic.NewForConfig(config)
		if err != nil {
			return nil, fmt.Errorf("dynamic client: %w", err)
		}
		return &dynamicLister{client: client}, nil
	}
}

// buildRestConfig prefers an explicit kubeconfig, then in-cluster
// credentials, then the default loading rules (~/.kube/config,
// $KUBECONFIG).
func buildRestConfig(kubeconfig string) (*rest.Config, error) {
	if kubeconfig != "" {
		config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("kubeconfig %s: %w", kubeconfig, err)
		}
		return config, nil
	}
	if config, err := rest.InClusterConfig(); err == nil {
		return config, nil
	}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, &clientcmd.ConfigOverrides{}).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("cluster credentials: %w", err)
	}
	return config, nil
}

type dynamicLister struct {
	client dynamic.Interface
}

func (l *dynamicLister) List(ctx context.Context, gvr schema.GroupVersionResource, namespace string) (*unstructured.UnstructuredList, error) {
	if namespace != "" {
		return l.client.Resource(gvr).Namespace(namespace).List(ctx, metav1.ListOptions{})
	}
	return l.client.Resource(gvr).List(ctx, metav1.ListOptions{})
}
