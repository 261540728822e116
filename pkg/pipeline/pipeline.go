// Package pipeline provides the analysis pipeline shared by the CLI and the
// HTTP server.
//
// This package wraps the adjacency engine with everything an entry point
// needs around it: option defaults and validation, result caching, rendering
// and observability. By centralizing this logic, every entry point behaves
// the same way for the same options.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Analyze: Normalize, index, partition and resolve the input geometries
//  2. Render: Produce the requested output formats from the analysis
//
// Each stage can be run independently or as part of the complete pipeline.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    DensifyFeatures: true,
//	    Formats:         []string{"json", "png"},
//	}
//	result, err := runner.Execute(ctx, adjacency.Input{Sources: parcels, Targets: roads}, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Artifacts["png"]
//
// Run individual stages:
//
//	// Analyze only
//	a, err := runner.Analyze(ctx, in, opts)
//
//	// Render an existing analysis
//	artifacts, err := pipeline.Render(a, opts)
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/geoadjacency/pkg/cache"
	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/core/partition"
	"github.com/matzehuels/geoadjacency/pkg/core/resolve"
	"github.com/matzehuels/geoadjacency/pkg/errors"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultPartitioner is the default Voronoi backend.
	DefaultPartitioner = partition.DefaultBackend

	// DefaultWidth is the default plot width in points.
	DefaultWidth = 600

	// DefaultHeight is the default plot height in points.
	DefaultHeight = 600
)

// Format constants for output formats.
const (
	// FormatJSON is the adjacency mapping with a run summary.
	FormatJSON = "json"
	// FormatArtifacts is the site, cell and vertex data behind the mapping.
	FormatArtifacts = "artifacts"
	// FormatGeoJSON is the adjacency links as a FeatureCollection.
	FormatGeoJSON = "geojson"
	// FormatDOT is the adjacency graph in Graphviz DOT.
	FormatDOT = "dot"
	// FormatSVG is the adjacency graph rendered by Graphviz.
	FormatSVG = "svg"
	// FormatPNG is the plot of geometries, region vertices and links.
	FormatPNG = "png"
)

var validate = errors.NewValidator()

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:      true,
	FormatArtifacts: true,
	FormatGeoJSON:   true,
	FormatDOT:       true,
	FormatSVG:       true,
	FormatPNG:       true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the analysis pipeline.
// It is read from JSON requests and from TOML or YAML config files.
type Options struct {
	// Analysis options
	BoundingBox      []float64 `json:"bounding_box,omitempty" toml:"bounding_box" yaml:"bounding_box,omitempty" validate:"omitempty,len=4"`
	DensifyFeatures  bool      `json:"densify_features,omitempty" toml:"densify_features" yaml:"densify_features,omitempty"`
	MaxSegmentLength *float64  `json:"max_segment_length,omitempty" toml:"max_segment_length" yaml:"max_segment_length,omitempty" validate:"omitempty,gt=0"`
	MaxDistance      *float64  `json:"max_distance,omitempty" toml:"max_distance" yaml:"max_distance,omitempty" validate:"omitempty,gte=0"`
	Partitioner      string    `json:"partitioner,omitempty" toml:"partitioner" yaml:"partitioner,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty" toml:"formats" yaml:"formats,omitempty"`
	Width   int      `json:"width,omitempty" toml:"width" yaml:"width,omitempty" validate:"gte=0"`
	Height  int      `json:"height,omitempty" toml:"height" yaml:"height,omitempty" validate:"gte=0"`
	Title   string   `json:"title,omitempty" toml:"title" yaml:"title,omitempty"`

	// Refresh skips cache reads; results are still written.
	Refresh bool `json:"refresh,omitempty" toml:"-" yaml:"-"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" toml:"-" yaml:"-" validate:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs and responses.
	RunID string `json:"run_id"`

	// InputHash is the content hash of the input geometries.
	InputHash string `json:"input_hash"`

	// Mapping is the adjacency mapping.
	Mapping resolve.Mapping `json:"mapping"`

	// Analysis is the full analysis, or nil when the mapping came from the
	// cache and no format needed it.
	Analysis *adjacency.Analysis `json:"-"`

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte `json:"-"`

	// Stats contains timing and size information.
	Stats Stats `json:"stats"`

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo `json:"cache"`
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Sources     int            `json:"sources"`
	Targets     int            `json:"targets"`
	Obstacles   int            `json:"obstacles"`
	Pairs       int            `json:"pairs"`
	Mode        adjacency.Mode `json:"mode"`
	Degenerate  bool           `json:"degenerate"`
	AnalyzeTime time.Duration  `json:"analyze_ns"`
	RenderTime  time.Duration  `json:"render_ns"`
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	AnalysisHit bool `json:"analysis_hit"` // Whether the mapping came from cache
	RenderHit   bool `json:"render_hit"`   // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: json, artifacts, geojson, dot, svg, png)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks all fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := validate.Struct(o); err != nil {
		return errors.FromValidation(err)
	}
	if _, err := o.ToConfig(); err != nil {
		return err
	}
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatJSON}
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
}

// ToConfig converts the analysis options into a validated engine config.
func (o *Options) ToConfig() (adjacency.Config, error) {
	cfg := adjacency.Config{
		DensifyFeatures:  o.DensifyFeatures,
		MaxSegmentLength: o.MaxSegmentLength,
		MaxDistance:      o.MaxDistance,
		Partitioner:      o.Partitioner,
	}
	if len(o.BoundingBox) > 0 {
		if len(o.BoundingBox) != 4 {
			return adjacency.Config{}, errors.New(errors.ErrCodeInvalidConfig,
				"bounding_box must have 4 values [min_x, min_y, max_x, max_y], got %d", len(o.BoundingBox))
		}
		b := o.BoundingBox
		cfg.BoundingBox = &orb.Bound{Min: orb.Point{b[0], b[1]}, Max: orb.Point{b[2], b[3]}}
	}
	if err := cfg.Validate(); err != nil {
		return adjacency.Config{}, err
	}
	return cfg, nil
}

// PartitionerName returns the backend that will run, resolving the default.
func (o *Options) PartitionerName() string {
	if o.Partitioner == "" {
		return DefaultPartitioner
	}
	return o.Partitioner
}

// AnalysisKeyOpts returns cache key options for the analysis stage.
func (o *Options) AnalysisKeyOpts() cache.AnalysisKeyOpts {
	return cache.AnalysisKeyOpts{
		BoundingBox:      o.BoundingBox,
		DensifyFeatures:  o.DensifyFeatures,
		MaxSegmentLength: o.MaxSegmentLength,
		MaxDistance:      o.MaxDistance,
		Partitioner:      o.PartitionerName(),
	}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
// Only the plot depends on the frame size and title.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	if format == FormatPNG {
		opts.Width, opts.Height, opts.Title = o.Width, o.Height, o.Title
	}
	return opts
}
