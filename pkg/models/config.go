package models

import "time"

// FilesConfig locates the files a run reads and writes. Relative paths are
// resolved against the base directory.
type FilesConfig struct {
	Versions       string `yaml:"versions" mapstructure:"versions"`
	SupportPolicy  string `yaml:"support_policy" mapstructure:"support_policy"`
	TestsToTrigger string `yaml:"tests_to_trigger" mapstructure:"tests_to_trigger"`
	History        string `yaml:"history" mapstructure:"history"`
	EventLog       string `yaml:"event_log" mapstructure:"event_log"`
}

// ComponentConfig describes the add-on component under test.
type ComponentConfig struct {
	// Name appears in job names, e.g. nvidia-gpu-operator.
	Name string `yaml:"name" mapstructure:"name"`
	// Package is the catalog package name.
	Package       string `yaml:"package" mapstructure:"package"`
	ShortlistSize int    `yaml:"shortlist_size" mapstructure:"shortlist_size"`
	// TagsURL and AuthURL locate the image registry listing release tags.
	TagsURL string `yaml:"tags_url" mapstructure:"tags_url"`
	AuthURL string `yaml:"auth_url" mapstructure:"auth_url"`
	// BundleManifestURL and BundleAuthURL locate the development bundle manifest.
	BundleManifestURL string `yaml:"bundle_manifest_url" mapstructure:"bundle_manifest_url"`
	BundleAuthURL     string `yaml:"bundle_auth_url" mapstructure:"bundle_auth_url"`
}

// PlatformConfig describes how platform releases are discovered.
type PlatformConfig struct {
	IgnoredVersionsRegex string `yaml:"ignored_versions_regex" mapstructure:"ignored_versions_regex"`
	ReleaseStreamURL     string `yaml:"release_stream_url" mapstructure:"release_stream_url"`
	ReleaseStream        string `yaml:"release_stream" mapstructure:"release_stream"`
}

// CatalogConfig locates the operator bundle catalog.
type CatalogConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	PageSize int    `yaml:"page_size" mapstructure:"page_size"`
}

// BlobConfig selects and configures the build artifact store.
type BlobConfig struct {
	// Backend is "gcs" or "local".
	Backend         string        `yaml:"backend" mapstructure:"backend"`
	Bucket          string        `yaml:"bucket" mapstructure:"bucket"`
	LocalDir        string        `yaml:"local_dir" mapstructure:"local_dir"`
	CredentialsFile string        `yaml:"credentials_file" mapstructure:"credentials_file"`
	PRRepos         []string      `yaml:"pr_repos" mapstructure:"pr_repos"`
	JobPrefix       string        `yaml:"job_prefix" mapstructure:"job_prefix"`
	ArtifactsDir    string        `yaml:"artifacts_dir" mapstructure:"artifacts_dir"`
	URLPrefix       string        `yaml:"url_prefix" mapstructure:"url_prefix"`
	JobHistoryURL   string        `yaml:"job_history_url" mapstructure:"job_history_url"`
	CacheSize       int           `yaml:"cache_size" mapstructure:"cache_size"`
	CacheTTL        time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// GitHubConfig locates the repository whose pull requests are scanned.
type GitHubConfig struct {
	APIURL     string `yaml:"api_url" mapstructure:"api_url"`
	Repo       string `yaml:"repo" mapstructure:"repo"`
	BaseBranch string `yaml:"base_branch" mapstructure:"base_branch"`
	// Head limits the listing to pull requests from one owner:branch.
	Head  string `yaml:"head" mapstructure:"head"`
	Token string `yaml:"token" mapstructure:"token"`
}

// CollectConfig tunes build collection and history merging.
type CollectConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	// BundleLimit caps bundle observations per platform. Zero keeps all.
	BundleLimit int `yaml:"bundle_limit" mapstructure:"bundle_limit"`
	// Variants label observations by job name; the first matching rule wins.
	Variants []VariantRule `yaml:"variants" mapstructure:"variants"`
}

// VariantRule maps job names matching a glob to a test variant label.
type VariantRule struct {
	Match string `yaml:"match" mapstructure:"match"`
	Label string `yaml:"label" mapstructure:"label"`
}

// AlertConfig holds history alert thresholds.
type AlertConfig struct {
	BundleFailureStreak int `yaml:"bundle_failure_streak" mapstructure:"bundle_failure_streak"`
	StaleBundleDays     int `yaml:"stale_bundle_days" mapstructure:"stale_bundle_days"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Config is the full tool configuration read from .cimatrix.yaml.
type Config struct {
	Snapshot          SnapshotLayout  `yaml:"snapshot" mapstructure:"snapshot"`
	Files             FilesConfig     `yaml:"files" mapstructure:"files"`
	Component         ComponentConfig `yaml:"component" mapstructure:"component"`
	Platform          PlatformConfig  `yaml:"platform" mapstructure:"platform"`
	Catalog           CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Blob              BlobConfig      `yaml:"blob" mapstructure:"blob"`
	GitHub            GitHubConfig    `yaml:"github" mapstructure:"github"`
	Collect           CollectConfig   `yaml:"collect" mapstructure:"collect"`
	Alerts            AlertConfig     `yaml:"alerts" mapstructure:"alerts"`
	SlackWebhookURL   string          `yaml:"slack_webhook_url" mapstructure:"slack_webhook_url"`
	RequestTimeout    time.Duration   `yaml:"request_timeout" mapstructure:"request_timeout"`
	RequestsPerSecond float64         `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Log               LogConfig       `yaml:"log" mapstructure:"log"`
}
