package telemetry

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcpdex/internal/domain"
)

func TestResolveObservabilityState(t *testing.T) {
	defaults := ObservabilityControllerOptions{
		DefaultMetricsEnabled: true,
		DefaultHealthzEnabled: false,
	}

	state := resolveObservabilityState(defaults, domain.ObservabilitySettings{
		ListenAddress: "127.0.0.1:9090",
	})
	require.True(t, state.metricsEnabled)
	require.False(t, state.healthzEnabled)
	require.Equal(t, "127.0.0.1:9090", state.addr)

	state = resolveObservabilityState(defaults, domain.ObservabilitySettings{
		ListenAddress:  "",
		MetricsEnabled: boolPtr(false),
		HealthzEnabled: boolPtr(true),
	})
	require.False(t, state.metricsEnabled)
	require.True(t, state.healthzEnabled)
	require.Equal(t, domain.DefaultObservabilityListenAddress, state.addr)
}

func TestObservabilityControllerApplyAndMove(t *testing.T) {
	first := mustListen(t)
	firstPort := first.Addr().(*net.TCPAddr).Port
	first.Close()
	second := mustListen(t)
	secondPort := second.Addr().(*net.TCPAddr).Port
	second.Close()

	registry := prometheus.NewRegistry()
	controller := NewObservabilityController(ObservabilityControllerOptions{
		DefaultMetricsEnabled: true,
		Registry:              registry,
		Logger:                zap.NewNop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, controller.Apply(ctx, domain.ObservabilitySettings{
		ListenAddress: fmt.Sprintf("127.0.0.1:%d", firstPort),
	}))
	waitForHTTPStatus(t, fmt.Sprintf("http://127.0.0.1:%d/metrics", firstPort), http.StatusOK, false)

	// Moving the listener restarts the server on the new address.
	require.NoError(t, controller.Apply(ctx, domain.ObservabilitySettings{
		ListenAddress: fmt.Sprintf("127.0.0.1:%d", secondPort),
	}))
	waitForHTTPStatus(t, fmt.Sprintf("http://127.0.0.1:%d/metrics", secondPort), http.StatusOK, false)

	// Disabling both endpoints stops the listener.
	disabled := false
	require.NoError(t, controller.Apply(ctx, domain.ObservabilitySettings{
		ListenAddress:  fmt.Sprintf("127.0.0.1:%d", secondPort),
		MetricsEnabled: &disabled,
	}))
	require.Eventually(t, func() bool {
		_, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", secondPort))
		return err != nil
	}, 2*time.Second, 25*time.Millisecond)
}

func boolPtr(value bool) *bool {
	return &value
}
