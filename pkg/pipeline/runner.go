package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/matzehuels/geoadjacency/pkg/cache"
	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/core/geom"
	"github.com/matzehuels/geoadjacency/pkg/observability"
)

// Cache key types reported to the cache hooks.
const (
	keyTypeAnalysis = "analysis"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// MaxSites caps the vertices of one analysis. Zero keeps
	// adjacency.DefaultMaxSites; a negative value removes the limit.
	MaxSites int
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Execute runs the complete analyze → render pipeline with caching.
func (r *Runner) Execute(ctx context.Context, in adjacency.Input, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		RunID:     uuid.NewString(),
		InputHash: HashInput(in),
		Stats: Stats{
			Sources:   len(in.Sources),
			Targets:   len(in.Targets),
			Obstacles: len(in.Obstacles),
		},
	}
	logger := opts.Logger.With("run", result.RunID[:8])
	opts.Logger = logger
	hooks := observability.Pipeline()

	// Stage 1: Analyze
	hooks.OnAnalyzeStart(ctx, len(in.Sources)+len(in.Targets)+len(in.Obstacles))
	analyzeStart := time.Now()
	doc, a, analysisHit, err := r.AnalyzeWithCacheInfo(ctx, in, opts)
	result.Stats.AnalyzeTime = time.Since(analyzeStart)
	hooks.OnAnalyzeComplete(ctx, len(doc.Mapping.Pairs()), doc.Degenerate, result.Stats.AnalyzeTime, err)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	result.Mapping = doc.Mapping
	result.Analysis = a
	result.Stats.Pairs = len(doc.Mapping.Pairs())
	result.Stats.Mode = doc.Mode
	result.Stats.Degenerate = doc.Degenerate
	result.CacheInfo.AnalysisHit = analysisHit

	logger.Info("resolved adjacency",
		"sources", doc.Mapping.Len(),
		"pairs", result.Stats.Pairs,
		"mode", doc.Mode,
		"cached", analysisHit,
		"duration", result.Stats.AnalyzeTime)
	if doc.Degenerate {
		logger.Warn("too few distinct vertices for a partition, mapping is empty")
	}

	// Stage 2: Render
	hooks.OnRenderStart(ctx, opts.Formats)
	renderStart := time.Now()
	analysisKey := r.Keyer.AnalysisKey(result.InputHash, opts.AnalysisKeyOpts())
	artifacts, renderHit, err := r.renderWithCacheInfo(ctx, analysisKey, opts, func() (*adjacency.Analysis, error) {
		if result.Analysis != nil {
			return result.Analysis, nil
		}
		a, err := r.Analyze(ctx, in, opts)
		result.Analysis = a
		return a, err
	})
	result.Stats.RenderTime = time.Since(renderStart)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.CacheInfo.RenderHit = renderHit

	logger.Info("rendered outputs",
		"formats", opts.Formats,
		"cached", renderHit,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Analyze runs the adjacency engine without caching.
func (r *Runner) Analyze(ctx context.Context, in adjacency.Input, opts Options) (*adjacency.Analysis, error) {
	r.applyLogger(&opts)
	cfg, err := opts.ToConfig()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	engOpts := []adjacency.Option{adjacency.WithLogger(opts.Logger)}
	if r.MaxSites != 0 {
		engOpts = append(engOpts, adjacency.WithMaxSites(r.MaxSites))
	}
	eng, err := adjacency.New(cfg, engOpts...)
	if err != nil {
		return nil, err
	}
	return eng.Analyze(in)
}

// AnalyzeWithCacheInfo returns the mapping document of in, from the cache
// when possible. The analysis is nil on a cache hit.
func (r *Runner) AnalyzeWithCacheInfo(ctx context.Context, in adjacency.Input, opts Options) (Document, *adjacency.Analysis, bool, error) {
	r.applyLogger(&opts)
	cacheKey := r.Keyer.AnalysisKey(HashInput(in), opts.AnalysisKeyOpts())
	hooks := observability.Cache()

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			var doc Document
			if err := json.Unmarshal(data, &doc); err == nil {
				hooks.OnCacheHit(ctx, keyTypeAnalysis)
				return doc, nil, true, nil // Cache hit
			}
			// If deserialization fails, fall through to recompute
		} else if err != nil {
			opts.Logger.Warn("cache read failed", "error", err)
		}
		hooks.OnCacheMiss(ctx, keyTypeAnalysis)
	}

	a, err := r.Analyze(ctx, in, opts)
	if err != nil {
		return Document{}, nil, false, err
	}
	doc := NewDocument(a)

	if data, err := json.Marshal(doc); err == nil {
		r.store(ctx, cacheKey, keyTypeAnalysis, data, cache.TTLAnalysis, opts.Logger)
	}
	return doc, a, false, nil // Cache miss
}

// Render is a convenience wrapper that renders an existing analysis with
// artifact caching. The analysis key must identify a.
func (r *Runner) Render(ctx context.Context, analysisKey string, a *adjacency.Analysis, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.renderWithCacheInfo(ctx, analysisKey, opts, func() (*adjacency.Analysis, error) {
		return a, nil
	})
	return artifacts, err
}

// renderWithCacheInfo returns every requested format, calling analysis only
// when some format is missing from the cache.
func (r *Runner) renderWithCacheInfo(ctx context.Context, analysisKey string, opts Options, analysis func() (*adjacency.Analysis, error)) (map[string][]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	r.applyLogger(&opts)
	hooks := observability.Cache()

	// Try to get all formats from cache
	artifacts := make(map[string][]byte, len(opts.Formats))
	var missing []string
	for _, format := range opts.Formats {
		if opts.Refresh {
			missing = append(missing, format)
			continue
		}
		cacheKey := r.Keyer.ArtifactKey(analysisKey, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			hooks.OnCacheHit(ctx, keyTypeArtifact)
			artifacts[format] = data
		} else {
			hooks.OnCacheMiss(ctx, keyTypeArtifact)
			missing = append(missing, format)
		}
	}

	if len(missing) == 0 {
		return artifacts, true, nil // All artifacts from cache
	}

	a, err := analysis()
	if err != nil {
		return nil, false, err
	}
	renderOpts := opts
	renderOpts.Formats = missing
	rendered, err := Render(a, renderOpts)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(analysisKey, opts.ArtifactKeyOpts(format))
		r.store(ctx, cacheKey, keyTypeArtifact, data, cache.TTLArtifact, opts.Logger)
		artifacts[format] = data
	}

	return artifacts, false, nil
}

func (r *Runner) store(ctx context.Context, key, keyType string, data []byte, ttl time.Duration, logger *log.Logger) {
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		logger.Warn("cache write failed", "type", keyType, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

// HashInput returns the content hash of the input geometries. Slot order
// and nil slots are part of the hash since they determine the mapping.
func HashInput(in adjacency.Input) string {
	var buf bytes.Buffer
	for _, l := range in.Layers() {
		fmt.Fprintf(&buf, "%s %d\n", l.Role, l.Len())
		for _, g := range l.Geometries {
			switch {
			case g == nil:
				buf.WriteString("NULL")
			case geom.Supported(g):
				buf.WriteString(wkt.MarshalString(g))
			default:
				fmt.Fprintf(&buf, "%T %v", g, g)
			}
			buf.WriteByte('\n')
		}
	}
	return cache.Hash(buf.Bytes())
}
