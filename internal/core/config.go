// Package core contains the business logic of cimatrix: snapshot diffing,
// support policy lookups, test matrix planning, catalog admission, build
// observation collection and history reconciliation.
package core

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// ConfigFileName is the configuration file looked up in the base directory.
const ConfigFileName = ".cimatrix"

// ConfigurationManager loads and validates the tool configuration.
type ConfigurationManager interface {
	Load() (*models.Config, error)
	ValidateConfig(cfg *models.Config) error
}

// viperConfigManager implements ConfigurationManager using Viper for reading
// .cimatrix.yaml and CIMATRIX_* environment variables.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager reading from basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *models.Config {
	collect := DefaultCollectorConfig()
	return &models.Config{
		Snapshot: models.DefaultSnapshotLayout(),
		Files: models.FilesConfig{
			Versions:       "versions.json",
			SupportPolicy:  "support_matrix.yaml",
			TestsToTrigger: "tests_to_trigger.txt",
			History:        "history.json",
			EventLog:       ".cimatrix_events.jsonl",
		},
		Component: models.ComponentConfig{
			Name:              collect.ComponentName,
			Package:           DefaultCatalogPackage,
			ShortlistSize:     DefaultShortlistSize,
			TagsURL:           "https://nvcr.io/v2/nvidia/gpu-operator/tags/list",
			AuthURL:           "https://nvcr.io/proxy_auth?scope=repository:nvidia/gpu-operator:pull",
			BundleManifestURL: "https://ghcr.io/v2/nvidia/gpu-operator/gpu-operator-bundle/manifests/main-latest",
			BundleAuthURL:     "https://ghcr.io/token?scope=repository:nvidia/gpu-operator/gpu-operator-bundle:pull",
		},
		Platform: models.PlatformConfig{
			IgnoredVersionsRegex: "x^",
			ReleaseStreamURL:     "https://amd64.ocp.releases.ci.openshift.org/api/v1/releasestreams/accepted",
			ReleaseStream:        "4-stable",
		},
		Catalog: models.CatalogConfig{
			BaseURL:  "https://catalog.redhat.com/api/containers/v1",
			PageSize: DefaultCatalogPageSize,
		},
		Blob: models.BlobConfig{
			Backend:       "gcs",
			Bucket:        "test-platform-results",
			PRRepos:       collect.PRRepos,
			JobPrefix:     collect.JobPrefix,
			ArtifactsDir:  collect.ArtifactsDir,
			URLPrefix:     collect.URLPrefix,
			JobHistoryURL: collect.JobHistoryURL,
			CacheSize:     1024,
			CacheTTL:      10 * time.Minute,
		},
		GitHub: models.GitHubConfig{
			APIURL:     "https://api.github.com",
			Repo:       "rh-ecosystem-edge/nvidia-ci",
			BaseBranch: "main",
			Head:       "rh-ecosystem-edge:create-pull-request/patch",
		},
		Collect: models.CollectConfig{
			Concurrency: collect.Concurrency,
			BundleLimit: 0,
		},
		Alerts: models.AlertConfig{
			BundleFailureStreak: 3,
			StaleBundleDays:     7,
		},
		RequestTimeout:    30 * time.Second,
		RequestsPerSecond: 5,
		Log: models.LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .cimatrix.yaml from the base path, applies environment
// overrides and returns the result. A missing file yields the defaults.
func (cm *viperConfigManager) Load() (*models.Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)
	v.SetEnvPrefix("CIMATRIX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	// Environment names kept from the shell scripts this tool replaces.
	_ = v.BindEnv("platform.ignored_versions_regex", "CIMATRIX_PLATFORM_IGNORED_VERSIONS_REGEX", "OCP_IGNORED_VERSIONS_REGEX")
	_ = v.BindEnv("files.versions", "CIMATRIX_FILES_VERSIONS", "VERSION_FILE_PATH")
	_ = v.BindEnv("files.tests_to_trigger", "CIMATRIX_FILES_TESTS_TO_TRIGGER", "TEST_TO_TRIGGER_FILE_PATH")
	_ = v.BindEnv("request_timeout_seconds", "REQUEST_TIMEOUT_SECONDS")
	_ = v.BindEnv("github.token", "CIMATRIX_GITHUB_TOKEN", "GITHUB_TOKEN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s.yaml: %w", ConfigFileName, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding configuration: %w", err)
	}
	if v.IsSet("request_timeout_seconds") {
		cfg.RequestTimeout = time.Duration(v.GetInt("request_timeout_seconds")) * time.Second
	}
	cfg.Platform.IgnoredVersionsRegex = strings.TrimRight(cfg.Platform.IgnoredVersionsRegex, " \t\r\n")

	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override keys
// that are absent from the file.
func setDefaults(v *viper.Viper, cfg *models.Config) {
	v.SetDefault("snapshot.bundle_key", cfg.Snapshot.BundleKey)
	v.SetDefault("snapshot.component_key", cfg.Snapshot.ComponentKey)
	v.SetDefault("snapshot.platform_key", cfg.Snapshot.PlatformKey)

	v.SetDefault("files.versions", cfg.Files.Versions)
	v.SetDefault("files.support_policy", cfg.Files.SupportPolicy)
	v.SetDefault("files.tests_to_trigger", cfg.Files.TestsToTrigger)
	v.SetDefault("files.history", cfg.Files.History)
	v.SetDefault("files.event_log", cfg.Files.EventLog)

	v.SetDefault("component.name", cfg.Component.Name)
	v.SetDefault("component.package", cfg.Component.Package)
	v.SetDefault("component.shortlist_size", cfg.Component.ShortlistSize)
	v.SetDefault("component.tags_url", cfg.Component.TagsURL)
	v.SetDefault("component.auth_url", cfg.Component.AuthURL)
	v.SetDefault("component.bundle_manifest_url", cfg.Component.BundleManifestURL)
	v.SetDefault("component.bundle_auth_url", cfg.Component.BundleAuthURL)

	v.SetDefault("platform.ignored_versions_regex", cfg.Platform.IgnoredVersionsRegex)
	v.SetDefault("platform.release_stream_url", cfg.Platform.ReleaseStreamURL)
	v.SetDefault("platform.release_stream", cfg.Platform.ReleaseStream)

	v.SetDefault("catalog.base_url", cfg.Catalog.BaseURL)
	v.SetDefault("catalog.page_size", cfg.Catalog.PageSize)

	v.SetDefault("blob.backend", cfg.Blob.Backend)
	v.SetDefault("blob.bucket", cfg.Blob.Bucket)
	v.SetDefault("blob.local_dir", cfg.Blob.LocalDir)
	v.SetDefault("blob.credentials_file", cfg.Blob.CredentialsFile)
	v.SetDefault("blob.pr_repos", cfg.Blob.PRRepos)
	v.SetDefault("blob.job_prefix", cfg.Blob.JobPrefix)
	v.SetDefault("blob.artifacts_dir", cfg.Blob.ArtifactsDir)
	v.SetDefault("blob.url_prefix", cfg.Blob.URLPrefix)
	v.SetDefault("blob.job_history_url", cfg.Blob.JobHistoryURL)
	v.SetDefault("blob.cache_size", cfg.Blob.CacheSize)
	v.SetDefault("blob.cache_ttl", cfg.Blob.CacheTTL)

	v.SetDefault("github.api_url", cfg.GitHub.APIURL)
	v.SetDefault("github.repo", cfg.GitHub.Repo)
	v.SetDefault("github.base_branch", cfg.GitHub.BaseBranch)
	v.SetDefault("github.head", cfg.GitHub.Head)
	v.SetDefault("github.token", cfg.GitHub.Token)

	v.SetDefault("collect.concurrency", cfg.Collect.Concurrency)
	v.SetDefault("collect.bundle_limit", cfg.Collect.BundleLimit)

	v.SetDefault("alerts.bundle_failure_streak", cfg.Alerts.BundleFailureStreak)
	v.SetDefault("alerts.stale_bundle_days", cfg.Alerts.StaleBundleDays)

	v.SetDefault("slack_webhook_url", cfg.SlackWebhookURL)
	v.SetDefault("request_timeout", cfg.RequestTimeout)
	v.SetDefault("requests_per_second", cfg.RequestsPerSecond)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

var validBackends = map[string]bool{
	"gcs":   true,
	"local": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidateConfig checks the configuration for invalid values and reports
// every problem found.
func (cm *viperConfigManager) ValidateConfig(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	var errs []string

	if cfg.Snapshot.BundleKey == "" || cfg.Snapshot.ComponentKey == "" || cfg.Snapshot.PlatformKey == "" {
		errs = append(errs, "snapshot keys must not be empty")
	}
	if cfg.Component.Name == "" {
		errs = append(errs, "component.name must not be empty")
	}
	if cfg.Component.ShortlistSize <= 0 {
		errs = append(errs, fmt.Sprintf("component.shortlist_size must be positive, got %d", cfg.Component.ShortlistSize))
	}
	if _, err := regexp.Compile(cfg.Platform.IgnoredVersionsRegex); err != nil {
		errs = append(errs, fmt.Sprintf("platform.ignored_versions_regex is invalid: %v", err))
	}
	if cfg.Catalog.PageSize <= 0 {
		errs = append(errs, fmt.Sprintf("catalog.page_size must be positive, got %d", cfg.Catalog.PageSize))
	}
	if !validBackends[cfg.Blob.Backend] {
		errs = append(errs, fmt.Sprintf("blob.backend %q is invalid, must be one of: gcs, local", cfg.Blob.Backend))
	}
	if cfg.Blob.Backend == "local" && cfg.Blob.LocalDir == "" {
		errs = append(errs, "blob.local_dir must be set for the local backend")
	}
	if cfg.Collect.Concurrency <= 0 {
		errs = append(errs, fmt.Sprintf("collect.concurrency must be positive, got %d", cfg.Collect.Concurrency))
	}
	if _, err := CompileVariants(cfg.Collect.Variants); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.Collect.BundleLimit < 0 {
		errs = append(errs, fmt.Sprintf("collect.bundle_limit must be non-negative, got %d", cfg.Collect.BundleLimit))
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, "request_timeout must be positive")
	}
	if cfg.RequestsPerSecond <= 0 {
		errs = append(errs, "requests_per_second must be positive")
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level %q is invalid, must be one of: debug, info, warn, error", cfg.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

// CompileIgnoredPlatforms compiles the ignored platform pattern. The
// default "x^" never matches.
func CompileIgnoredPlatforms(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling ignored platform pattern %q: %w", pattern, err)
	}
	return re, nil
}

// CollectorConfigFrom maps the blob and collect settings to a CollectorConfig.
func CollectorConfigFrom(cfg *models.Config) CollectorConfig {
	return CollectorConfig{
		PRRepos:       cfg.Blob.PRRepos,
		JobPrefix:     cfg.Blob.JobPrefix,
		ComponentName: cfg.Component.Name,
		ArtifactsDir:  cfg.Blob.ArtifactsDir,
		URLPrefix:     cfg.Blob.URLPrefix,
		JobHistoryURL: cfg.Blob.JobHistoryURL,
		Concurrency:   cfg.Collect.Concurrency,
		Variants:      cfg.Collect.Variants,
	}
}
