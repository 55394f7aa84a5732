package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mcpdex/internal/domain"
)

func TestDynamicProvider_SnapshotAfterLoad(t *testing.T) {
	path := writeTempConfig(t, `
listenAddress: 127.0.0.1:7470
discovery:
  mode: cluster
  namespace: tools
`)

	provider, err := NewDynamicProvider(context.Background(), path, zap.NewNop())
	require.NoError(t, err)

	cfg := provider.Snapshot()
	require.Equal(t, "127.0.0.1:7470", cfg.ListenAddress)
	require.Equal(t, domain.ModeCluster, cfg.Discovery.Mode)
	require.Equal(t, "tools", cfg.Discovery.Namespace)
	require.Equal(t, cfg.Discovery, provider.DiscoverySettings())
}

func TestDynamicProvider_RejectsInvalidConfig(t *testing.T) {
	path := writeTempConfig(t, "discovery:\n  mode: sideways\n")

	_, err := NewDynamicProvider(context.Background(), path, zap.NewNop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "discovery.mode")
}

func TestDynamicProvider_ManualReloadBroadcasts(t *testing.T) {
	path := writeTempConfig(t, "listenAddress: 127.0.0.1:7470\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := NewDynamicProvider(ctx, path, zap.NewNop())
	require.NoError(t, err)

	updates, err := provider.Watch(ctx)
	require.NoError(t, err)

	writeConfig(t, path, "listenAddress: 127.0.0.1:7471\n")
	require.NoError(t, provider.Reload(ctx))

	select {
	case update := <-updates:
		require.Equal(t, domain.ConfigUpdateSourceManual, update.Source)
		require.Equal(t, uint64(2), update.Revision)
		require.Equal(t, "127.0.0.1:7471", update.Config.ListenAddress)
	case <-time.After(2 * time.Second):
		t.Fatal("no config update received")
	}
	require.Equal(t, "127.0.0.1:7471", provider.Snapshot().ListenAddress)
}

func TestDynamicProvider_ReloadUnchangedIsQuiet(t *testing.T) {
	path := writeTempConfig(t, "listenAddress: 127.0.0.1:7470\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := NewDynamicProvider(ctx, path, zap.NewNop())
	require.NoError(t, err)

	updates, err := provider.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, provider.Reload(ctx))

	select {
	case update := <-updates:
		t.Fatalf("unexpected update for unchanged config: revision %d", update.Revision)
	case <-time.After(150 * time.Millisecond):
	}

	writeConfig(t, path, "listenAddress: 127.0.0.1:7471\n")
	require.NoError(t, provider.Reload(ctx))

	select {
	case update := <-updates:
		require.Equal(t, uint64(2), update.Revision)
	case <-time.After(2 * time.Second):
		t.Fatal("no config update received")
	}
}

func TestDynamicProvider_WatchDetectsFileChange(t *testing.T) {
	path := writeTempConfig(t, "listenAddress: 127.0.0.1:7470\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := NewDynamicProvider(ctx, path, zap.NewNop())
	require.NoError(t, err)

	updates, err := provider.Watch(ctx)
	require.NoError(t, err)

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	writeConfig(t, path, "listenAddress: 127.0.0.1:7471\n")

	select {
	case update := <-updates:
		require.Equal(t, domain.ConfigUpdateSourceWatch, update.Source)
		require.Equal(t, "127.0.0.1:7471", update.Config.ListenAddress)
	case <-time.After(5 * time.Second):
		t.Fatal("no config update received")
	}
	require.Equal(t, "127.0.0.1:7471", provider.Snapshot().ListenAddress)
}

func TestDynamicProvider_CanceledSubscriberRemoved(t *testing.T) {
	path := writeTempConfig(t, "listenAddress: 127.0.0.1:7470\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := NewDynamicProvider(ctx, path, zap.NewNop())
	require.NoError(t, err)

	subCtx, subCancel := context.WithCancel(context.Background())
	_, err = provider.Watch(subCtx)
	require.NoError(t, err)

	provider.subsMu.Lock()
	count := len(provider.subs)
	provider.subsMu.Unlock()
	require.Equal(t, 1, count)

	subCancel()
	require.Eventually(t, func() bool {
		provider.subsMu.Lock()
		defer provider.subsMu.Unlock()
		return len(provider.subs) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestDynamicProvider_ReloadInvalidKeepsState(t *testing.T) {
	path := writeTempConfig(t, "listenAddress: 127.0.0.1:7470\n")

	provider, err := NewDynamicProvider(context.Background(), path, zap.NewNop())
	require.NoError(t, err)

	writeConfig(t, path, "discovery:\n  mode: sideways\n")
	err = provider.Reload(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "discovery.mode")
	require.Equal(t, "127.0.0.1:7470", provider.Snapshot().ListenAddress)
}
