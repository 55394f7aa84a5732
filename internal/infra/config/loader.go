package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"mcpdex/internal/domain"
)

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newDirectoryViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDirectoryDefaults(v)
	return v
}

func setDirectoryDefaults(v *viper.Viper) {
	v.SetDefault("listenAddress", domain.DefaultListenAddress)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("discovery.enabled", true)
	v.SetDefault("discovery.mode", string(domain.ModeAuto))
	v.SetDefault("discovery.timeoutSeconds", domain.DefaultDiscoveryTimeoutSeconds)
	v.SetDefault("registry.timeoutSeconds", domain.DefaultRegistryTimeoutSeconds)
	v.SetDefault("registry.concurrency", domain.DefaultRegistryConcurrency)
}

type rawDirectoryConfig struct {
	ListenAddress string           `mapstructure:"listenAddress"`
	StorePath     string           `mapstructure:"storePath"`
	SeedPath      string           `mapstructure:"seedPath"`
	Observability rawObservability `mapstructure:"observability"`
	Discovery     rawDiscovery     `mapstructure:"discovery"`
	Registry      rawRegistry      `mapstructure:"registry"`
}

type rawObservability struct {
	ListenAddress  string `mapstructure:"listenAddress"`
	MetricsEnabled *bool  `mapstructure:"metricsEnabled"`
	HealthzEnabled *bool  `mapstructure:"healthzEnabled"`
}

type rawDiscovery struct {
	Enabled        bool   `mapstructure:"enabled"`
	Mode           string `mapstructure:"mode"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	Namespace      string `mapstructure:"namespace"`
	Kubeconfig     string `mapstructure:"kubeconfig"`
	APIBaseURL     string `mapstructure:"apiBaseURL"`
}

type rawRegistry struct {
	BaseURL        string `mapstructure:"baseURL"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	Concurrency    int    `mapstructure:"concurrency"`
}

// Load reads, expands and validates the daemon config file.
func (l *Loader) Load(ctx context.Context, path string) (domain.DirectoryConfig, error) {
	if path == "" {
		return domain.DirectoryConfig{}, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.DirectoryConfig{}, fmt.Errorf("read config: %w", err)
	}

	expanded, missing, err := expandConfigEnv(data)
	if err != nil {
		return domain.DirectoryConfig{}, err
	}
	if len(missing) > 0 {
		l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
	}

	v := newDirectoryViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return domain.DirectoryConfig{}, fmt.Errorf("parse config: %w", err)
	}

	var raw rawDirectoryConfig
	if err := v.Unmarshal(&raw); err != nil {
		return domain.DirectoryConfig{}, fmt.Errorf("decode config: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return domain.DirectoryConfig{}, err
	}

	cfg, errs := normalizeDirectoryConfig(raw, path)
	if len(errs) > 0 {
		return domain.DirectoryConfig{}, errors.New(strings.Join(errs, "; "))
	}
	return cfg, nil
}

func normalizeDirectoryConfig(raw rawDirectoryConfig, path string) (domain.DirectoryConfig, []string) {
	var errs []string

	listenAddress := strings.TrimSpace(raw.ListenAddress)
	if listenAddress == "" {
		listenAddress = domain.DefaultListenAddress
	}

	storePath := strings.TrimSpace(raw.StorePath)
	if storePath == "" {
		storePath = filepath.Join(filepath.Dir(path), domain.DefaultStoreFileName)
	}

	mode := domain.DiscoveryMode(strings.ToLower(strings.TrimSpace(raw.Discovery.Mode)))
	if mode == "" {
		mode = domain.ModeAuto
	}
	if !mode.Valid() {
		errs = append(errs, fmt.Sprintf("discovery.mode must be one of: auto, cluster, api, disabled (got %q)", raw.Discovery.Mode))
	}

	if raw.Discovery.TimeoutSeconds <= 0 {
		errs = append(errs, "discovery.timeoutSeconds must be > 0")
	}

	apiBaseURL := strings.TrimRight(strings.TrimSpace(raw.Discovery.APIBaseURL), "/")
	if apiBaseURL != "" {
		errs = append(errs, validateBaseURL("discovery.apiBaseURL", apiBaseURL)...)
	}
	if mode == domain.ModeAPI && apiBaseURL == "" {
		errs = append(errs, "discovery.apiBaseURL is required when discovery.mode is api")
	}

	registryBaseURL := strings.TrimRight(strings.TrimSpace(raw.Registry.BaseURL), "/")
	if registryBaseURL != "" {
		errs = append(errs, validateBaseURL("registry.baseURL", registryBaseURL)...)
	}
	if raw.Registry.TimeoutSeconds <= 0 {
		errs = append(errs, "registry.timeoutSeconds must be > 0")
	}
	if raw.Registry.Concurrency < 1 {
		errs = append(errs, "registry.concurrency must be >= 1")
	}

	cfg := domain.DirectoryConfig{
		ListenAddress: listenAddress,
		StorePath:     storePath,
		SeedPath:      strings.TrimSpace(raw.SeedPath),
		Observability: domain.ObservabilitySettings{
			ListenAddress:  strings.TrimSpace(raw.Observability.ListenAddress),
			MetricsEnabled: raw.Observability.MetricsEnabled,
			HealthzEnabled: raw.Observability.HealthzEnabled,
		},
		Discovery: domain.DiscoverySettings{
			Enabled:    raw.Discovery.Enabled,
			Mode:       mode,
			Timeout:    time.Duration(raw.Discovery.TimeoutSeconds) * time.Second,
			Namespace:  strings.TrimSpace(raw.Discovery.Namespace),
			Kubeconfig: strings.TrimSpace(raw.Discovery.Kubeconfig),
			APIBaseURL: apiBaseURL,
		},
		Registry: domain.RegistrySettings{
			BaseURL:     registryBaseURL,
			Timeout:     time.Duration(raw.Registry.TimeoutSeconds) * time.Second,
			Concurrency: raw.Registry.Concurrency,
		},
	}
	return cfg, errs
}

func validateBaseURL(field, value string) []string {
	u, err := url.Parse(value)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return []string{fmt.Sprintf("%s must be an http(s) URL (got %q)", field, value)}
	}
	return nil
}
