package config

import (
	"context"
	"path/filepath"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"mcpdex/internal/domain"
)

const defaultReloadDebounce = 200 * time.Millisecond

// DynamicProvider loads the daemon config and watches it for changes.
// Snapshots are lock-free; updates are broadcast to subscribers.
type DynamicProvider struct {
	logger     *zap.Logger
	loader     *Loader
	configPath string

	state    atomic.Value
	revision atomic.Uint64

	subsMu sync.Mutex
	subs   map[chan domain.ConfigUpdate]struct{}

	reloadMu  sync.Mutex
	watchOnce sync.Once
	watchCtx  context.Context
}

func NewDynamicProvider(ctx context.Context, configPath string, logger *zap.Logger) (*DynamicProvider, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	loader := NewLoader(logger)
	cfg, err := loader.Load(ctx, configPath)
	if err != nil {
		return nil, err
	}

	provider := &DynamicProvider{
		logger:     logger.Named("config_provider"),
		loader:     loader,
		configPath: configPath,
		subs:       make(map[chan domain.ConfigUpdate]struct{}),
		watchCtx:   ctx,
	}
	provider.state.Store(cfg)
	provider.revision.Store(1)
	return provider, nil
}

// Snapshot returns the current configuration.
func (p *DynamicProvider) Snapshot() domain.DirectoryConfig {
	return p.state.Load().(domain.DirectoryConfig)
}

// DiscoverySettings returns the discovery slice of the current
// configuration. The orchestrator snapshots it per cycle.
func (p *DynamicProvider) DiscoverySettings() domain.DiscoverySettings {
	return p.Snapshot().Discovery
}

// Watch subscribes to config updates. The channel is dropped when ctx
// ends; slow subscribers miss intermediate updates rather than block
// the reload path.
func (p *DynamicProvider) Watch(ctx context.Context) (<-chan domain.ConfigUpdate, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ch := make(chan domain.ConfigUpdate, 1)
	p.subsMu.Lock()
	p.subs[ch] = struct{}{}
	p.subsMu.Unlock()

	p.watchOnce.Do(func() {
		go p.runWatcher(p.watchCtx)
	})

	go func() {
		<-ctx.Done()
		p.subsMu.Lock()
		delete(p.subs, ch)
		p.subsMu.Unlock()
	}()

	return ch, nil
}

// Reload forces a config reload.
func (p *DynamicProvider) Reload(ctx context.Context) error {
	return p.reload(ctx, domain.ConfigUpdateSourceManual)
}

func (p *DynamicProvider) reload(ctx context.Context, source domain.ConfigUpdateSource) error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	prev := p.state.Load().(domain.DirectoryConfig)
	next, err := p.loader.Load(ctx, p.configPath)
	if err != nil {
		return err
	}
	if reflect.DeepEqual(prev, next) {
		return nil
	}

	revision := p.revision.Add(1)
	p.state.Store(next)
	p.logger.Info("config reloaded",
		zap.String("source", string(source)),
		zap.Uint64("revision", revision),
	)
	p.broadcast(domain.ConfigUpdate{
		Config:   next,
		Source:   source,
		Revision: revision,
	})
	return nil
}

func (p *DynamicProvider) broadcast(update domain.ConfigUpdate) {
	subs := p.copySubscribers()
	for _, ch := range subs {
		select {
		case ch <- update:
		default:
		}
	}
}

func (p *DynamicProvider) copySubscribers() []chan domain.ConfigUpdate {
	p.subsMu.Lock()
	defer p.subsMu.Unlock()

	out := make([]chan domain.ConfigUpdate, 0, len(p.subs))
	for ch := range p.subs {
		out = append(out, ch)
	}
	return out
}

func (p *DynamicProvider) runWatcher(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Warn("config watcher failed", zap.Error(err))
		return
	}
	defer watcher.Close()

	// Watch the directory: editors replace files instead of writing
	// in place, which drops watches on the file itself.
	if err := watcher.Add(filepath.Dir(p.configPath)); err != nil {
		p.logger.Warn("config watcher add failed", zap.String("path", p.configPath), zap.Error(err))
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-watcher.Errors:
			if err != nil {
				p.logger.Warn("config watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if !shouldReloadForPath(event.Name, p.configPath) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(defaultReloadDebounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(defaultReloadDebounce)
		case <-timerChan(timer):
			timer = nil
			if err := p.reload(ctx, domain.ConfigUpdateSourceWatch); err != nil {
				p.logger.Warn("config reload failed", zap.Error(err))
			}
		}
	}
}

func shouldReloadForPath(path string, configPath string) bool {
	if path == "" || configPath == "" {
		return false
	}
	return filepath.Clean(path) == filepath.Clean(configPath)
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
