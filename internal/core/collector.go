package core

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	slogcontext "github.com/veqryn/slog-context"
	"golang.org/x/sync/errgroup"

	"github.com/rh-ecosystem-edge/ci-matrix/pkg/models"
)

// CollectorConfig describes where CI builds of the component live.
type CollectorConfig struct {
	// PRRepos are the blob-store repository directories scanned for each PR.
	PRRepos []string
	// JobPrefix precedes the platform minor in job names.
	JobPrefix string
	// ComponentName appears in job names, e.g. nvidia-gpu-operator.
	ComponentName string
	// ArtifactsDir is the step directory holding the version files.
	ArtifactsDir string
	// URLPrefix turns a blob directory into a browsable job URL.
	URLPrefix string
	// JobHistoryURL is the prefix of per-job history pages.
	JobHistoryURL string
	// Concurrency bounds how many PRs are fetched at once.
	Concurrency int
	// Variants label observations by job name.
	Variants []models.VariantRule
}

// DefaultCollectorConfig returns the settings of the NVIDIA GPU operator CI.
func DefaultCollectorConfig() CollectorConfig {
	return CollectorConfig{
		PRRepos:       []string{"rh-ecosystem-edge_nvidia-ci", "openshift_release"},
		JobPrefix:     "pull-ci-rh-ecosystem-edge-nvidia-ci-main-",
		ComponentName: "nvidia-gpu-operator",
		ArtifactsDir:  "gpu-operator-e2e",
		URLPrefix:     "https://gcsweb-ci.apps.ci.l2s4.p1.openshiftapps.com/gcs/test-platform-results",
		JobHistoryURL: "https://prow.ci.openshift.org/job-history/gs/test-platform-results/pr-logs/directory",
		Concurrency:   4,
	}
}

// buildKeyPattern matches the pr/job/build part of any PR build path or URL.
var buildKeyPattern = regexp.MustCompile(`pr-logs/pull/[^/]+/(\d+)/([^/]+)/([^/]+)`)

// BuildKeyFromURL recovers the build key of a job URL or blob path.
func BuildKeyFromURL(u string) (models.BuildKey, bool) {
	if i := strings.Index(u, "/artifacts/"); i >= 0 {
		u = u[:i]
	}
	m := buildKeyPattern.FindStringSubmatch(u)
	if m == nil {
		return models.BuildKey{}, false
	}
	return models.BuildKey{PRNumber: m[1], JobName: m[2], BuildID: m[3]}, true
}

// JobPath is a parsed CI build location.
type JobPath struct {
	Repo     string
	Key      models.BuildKey
	Platform string
	Suffix   string
}

// IsBundle reports whether the job tested the development bundle.
func (j JobPath) IsBundle() bool {
	return j.Suffix == models.BundleComponent
}

// JobPathParser extracts build coordinates from blob paths.
type JobPathParser struct {
	re *regexp.Regexp
}

// NewJobPathParser compiles the job path pattern for cfg.
func NewJobPathParser(cfg CollectorConfig) *JobPathParser {
	pattern := `pr-logs/pull/(?P<repo>[^/]+)/(?P<pr>\d+)/` +
		`(?P<job>(?:rehearse-\d+-)?` + regexp.QuoteMeta(cfg.JobPrefix) +
		`(?P<platform>\d+\.\d+)-stable-` + regexp.QuoteMeta(cfg.ComponentName) +
		`-e2e-(?P<suffix>\d+-\d+-x|` + models.BundleComponent + `))/(?P<build>[^/]+)`
	return &JobPathParser{re: regexp.MustCompile(pattern)}
}

// Parse reads a blob path. Anything after /artifacts/ is ignored.
func (p *JobPathParser) Parse(blobPath string) (JobPath, bool) {
	if i := strings.Index(blobPath, "/artifacts/"); i >= 0 {
		blobPath = blobPath[:i] + "/"
	}
	m := p.re.FindStringSubmatch(blobPath)
	if m == nil {
		return JobPath{}, false
	}
	get := func(name string) string { return m[p.re.SubexpIndex(name)] }
	return JobPath{
		Repo:     get("repo"),
		Key:      models.BuildKey{PRNumber: get("pr"), JobName: get("job"), BuildID: get("build")},
		Platform: get("platform"),
		Suffix:   get("suffix"),
	}, true
}

// CollectResult is the outcome of scanning pull requests.
type CollectResult struct {
	Batches map[string]models.PlatformBatch
	Builds  int
	Skipped int
}

// ObservationCollector turns CI artifacts into build observations.
type ObservationCollector interface {
	CollectPR(ctx context.Context, pr int) (CollectResult, error)
	CollectAll(ctx context.Context, prs []int) (CollectResult, error)
}

type observationCollector struct {
	store    BlobStore
	cfg      CollectorConfig
	parser   *JobPathParser
	variants *VariantMatcher
	events   EventLogger
}

// NewObservationCollector creates a collector reading from store. events may be nil.
func NewObservationCollector(store BlobStore, cfg CollectorConfig, events EventLogger) ObservationCollector {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &observationCollector{
		store:    store,
		cfg:      cfg,
		parser:   NewJobPathParser(cfg),
		variants: CompileVariantsLenient(cfg.Variants),
		events:   events,
	}
}

// CollectAll scans prs concurrently and folds the results in PR order.
func (c *observationCollector) CollectAll(ctx context.Context, prs []int) (CollectResult, error) {
	slots := make([]CollectResult, len(prs))

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.cfg.Concurrency)
	for i, pr := range prs {
		eg.Go(func() error {
			res, err := c.CollectPR(egctx, pr)
			if err != nil {
				return fmt.Errorf("collecting PR #%d: %w", pr, err)
			}
			slots[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return CollectResult{}, err
	}

	total := CollectResult{Batches: make(map[string]models.PlatformBatch)}
	for _, res := range slots {
		total.Builds += res.Builds
		total.Skipped += res.Skipped
		for platform, batch := range res.Batches {
			merged := total.Batches[platform]
			merged.Bundle = append(merged.Bundle, batch.Bundle...)
			merged.Release = append(merged.Release, batch.Release...)
			merged.SourceLinks = append(merged.SourceLinks, batch.SourceLinks...)
			total.Batches[platform] = merged
		}
	}
	return total, nil
}

// buildFiles groups the artifacts of one build.
type buildFiles struct {
	job       JobPath
	nested    string
	topLevel  string
	platform  string
	component string
}

func (b *buildFiles) finished() string {
	if b.nested != "" {
		return b.nested
	}
	return b.topLevel
}

// CollectPR scans every configured repository directory of one PR.
func (c *observationCollector) CollectPR(ctx context.Context, pr int) (CollectResult, error) {
	logger := slogcontext.FromCtx(ctx).With("pr", pr)

	builds := make(map[models.BuildKey]*buildFiles)
	get := func(job JobPath) *buildFiles {
		b, ok := builds[job.Key]
		if !ok {
			b = &buildFiles{job: job}
			builds[job.Key] = b
		}
		return b
	}

	for _, repo := range c.cfg.PRRepos {
		prefix := fmt.Sprintf("pr-logs/pull/%s/%d/", repo, pr)
		finished, err := c.store.ListFilteredFiles(ctx, prefix, "**/finished.json")
		if err != nil {
			return CollectResult{}, fmt.Errorf("listing finished files under %s: %w", prefix, err)
		}
		platformFiles, err := c.store.ListFilteredFiles(ctx, prefix, "**/"+c.cfg.ArtifactsDir+"/artifacts/ocp.version")
		if err != nil {
			return CollectResult{}, fmt.Errorf("listing platform version files under %s: %w", prefix, err)
		}
		componentFiles, err := c.store.ListFilteredFiles(ctx, prefix, "**/"+c.cfg.ArtifactsDir+"/artifacts/operator.version")
		if err != nil {
			return CollectResult{}, fmt.Errorf("listing component version files under %s: %w", prefix, err)
		}

		for _, f := range finished {
			kind := c.classifyFinished(f.Name)
			if kind == finishedIgnored {
				continue
			}
			job, ok := c.parser.Parse(f.Name)
			if !ok || isLatestBuildMarker(job.Key.BuildID) {
				continue
			}
			b := get(job)
			if kind == finishedNested {
				b.nested = f.Name
			} else {
				b.topLevel = f.Name
			}
		}
		for _, f := range platformFiles {
			if job, ok := c.parser.Parse(f.Name); ok && !isLatestBuildMarker(job.Key.BuildID) {
				get(job).platform = f.Name
			}
		}
		for _, f := range componentFiles {
			if job, ok := c.parser.Parse(f.Name); ok && !isLatestBuildMarker(job.Key.BuildID) {
				get(job).component = f.Name
			}
		}
	}

	keys := make([]models.BuildKey, 0, len(builds))
	for k, b := range builds {
		if b.finished() != "" {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	logger.Info("found builds", "count", len(keys))

	result := CollectResult{Batches: make(map[string]models.PlatformBatch)}
	for _, key := range keys {
		b := builds[key]
		obs, err := c.observe(ctx, b)
		if err != nil {
			if ctx.Err() != nil {
				return CollectResult{}, ctx.Err()
			}
			result.Skipped++
			logger.Warn("skipping build", "build", key.String(), "error", err)
			if c.events != nil {
				_ = c.events.LogEvent("collect.build_skipped", map[string]any{
					"build":  key.String(),
					"reason": err.Error(),
				})
			}
			continue
		}
		batch := result.Batches[b.job.Platform]
		batch.Add(obs, b.job.IsBundle())
		batch.SourceLinks = append(batch.SourceLinks, c.jobHistoryLink(b.job.Key.JobName))
		result.Batches[b.job.Platform] = batch
		result.Builds++
	}
	return result, nil
}

type finishedKind int

const (
	finishedIgnored finishedKind = iota
	finishedNested
	finishedTopLevel
)

// classifyFinished keeps the component e2e finished.json files: the nested
// step result and the top-level build result.
func (c *observationCollector) classifyFinished(name string) finishedKind {
	e2e := c.cfg.ComponentName + "-e2e"
	if !strings.Contains(name, e2e) || !strings.HasSuffix(name, "/finished.json") {
		return finishedIgnored
	}
	if strings.Contains(name, "/artifacts/"+e2e+"-") && strings.Contains(name, "/"+c.cfg.ArtifactsDir+"/finished.json") {
		return finishedNested
	}
	if !strings.Contains(name, "/artifacts/") {
		return finishedTopLevel
	}
	return finishedIgnored
}

type finishedRecord struct {
	Result    string      `json:"result"`
	Timestamp json.Number `json:"timestamp"`
}

func (c *observationCollector) readFinished(ctx context.Context, name string) (finishedRecord, error) {
	data, err := c.store.Fetch(ctx, name)
	if err != nil {
		return finishedRecord{}, fmt.Errorf("fetching %s: %w", name, err)
	}
	var rec finishedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return finishedRecord{}, fmt.Errorf("decoding %s: %v: %w", name, err, ErrMalformedData)
	}
	return rec, nil
}

func (c *observationCollector) observe(ctx context.Context, b *buildFiles) (models.Observation, error) {
	logger := slogcontext.FromCtx(ctx)
	finishedPath := b.finished()

	rec, err := c.readFinished(ctx, finishedPath)
	if err != nil {
		return models.Observation{}, err
	}
	outcome := models.ParseOutcome(rec.Result)
	var ts int64
	if rec.Timestamp != "" {
		ts, err = strconv.ParseInt(rec.Timestamp.String(), 10, 64)
		if err != nil {
			return models.Observation{}, fmt.Errorf("timestamp %q in %s: %w", rec.Timestamp, finishedPath, ErrMalformedData)
		}
	}

	if b.nested != "" && b.topLevel != "" && outcome == models.OutcomeSuccess {
		top, err := c.readFinished(ctx, b.topLevel)
		if err == nil && models.ParseOutcome(top.Result) == models.OutcomeFailure {
			logger.Warn("component tests succeeded but the overall build failed",
				"build", b.job.Key.String())
		}
	}

	obs := models.Observation{
		PlatformVersion:  b.job.Platform,
		ComponentVersion: b.job.Suffix,
		Outcome:          outcome,
		SourceURL:        c.cfg.URLPrefix + "/" + path.Dir(finishedPath),
		ObservedAt:       ts,
		Variant:          c.variants.Label(b.job.Key.JobName),
		Build:            b.job.Key,
	}
	if b.platform != "" && b.component != "" {
		platform, err := c.fetchVersion(ctx, b.platform)
		if err != nil {
			return models.Observation{}, err
		}
		component, err := c.fetchVersion(ctx, b.component)
		if err != nil {
			return models.Observation{}, err
		}
		obs.PlatformVersion = platform
		obs.ComponentVersion = component
	}
	return obs, nil
}

func (c *observationCollector) fetchVersion(ctx context.Context, name string) (string, error) {
	data, err := c.store.Fetch(ctx, name)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", name, err)
	}
	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", fmt.Errorf("empty version file %s: %w", name, ErrMalformedData)
	}
	return v, nil
}

func (c *observationCollector) jobHistoryLink(job string) string {
	return strings.TrimSuffix(c.cfg.JobHistoryURL, "/") + "/" + job
}

func isLatestBuildMarker(buildID string) bool {
	return buildID == "latest-build.txt" || buildID == "latest-build"
}
