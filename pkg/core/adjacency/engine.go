package adjacency

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/paulmach/orb"

	"github.com/matzehuels/geoadjacency/pkg/core/geom"
	"github.com/matzehuels/geoadjacency/pkg/core/index"
	"github.com/matzehuels/geoadjacency/pkg/core/normalize"
	"github.com/matzehuels/geoadjacency/pkg/core/partition"
	"github.com/matzehuels/geoadjacency/pkg/core/resolve"
	"github.com/matzehuels/geoadjacency/pkg/errors"
)

// Mode tells how candidate pairs were formed.
type Mode string

const (
	// ModeSourceTarget pairs every source with every target.
	ModeSourceTarget Mode = "source-target"
	// ModeSourceSource pairs distinct sources when no targets were given.
	ModeSourceSource Mode = "source-source"
)

// Input holds the three geometry collections of an analysis. A geometry's
// position in its slice is the index reported in the mapping. Nil entries
// are allowed and never adjacent to anything.
type Input struct {
	Sources   []orb.Geometry
	Targets   []orb.Geometry
	Obstacles []orb.Geometry
}

// Layers returns the input as role-tagged layers in role order.
func (in Input) Layers() []geom.Layer {
	return []geom.Layer{
		{Role: geom.Source, Geometries: in.Sources},
		{Role: geom.Target, Geometries: in.Targets},
		{Role: geom.Obstacle, Geometries: in.Obstacles},
	}
}

// DefaultMaxSites caps the vertices of one analysis, after densification.
const DefaultMaxSites = 1_000_000

// Engine runs analyses with a fixed configuration. It holds no per-run state
// and is safe for concurrent use.
type Engine struct {
	cfg       Config
	primitive partition.Primitive
	logger    *log.Logger
	maxSites  int
}

// Option customizes an [Engine].
type Option func(*Engine)

// WithLogger sets the logger for stage progress.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithPrimitive replaces the Voronoi backend named in the config.
func WithPrimitive(p partition.Primitive) Option {
	return func(e *Engine) {
		if p != nil {
			e.primitive = p
		}
	}
}

// WithMaxSites overrides [DefaultMaxSites]. Zero or less removes the limit.
func WithMaxSites(n int) Option {
	return func(e *Engine) { e.maxSites = n }
}

// New validates cfg and returns an engine. Configuration errors carry
// [errors.ErrCodeInvalidConfig].
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		maxSites: DefaultMaxSites,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.primitive == nil {
		p, err := partition.Lookup(cfg.Partitioner)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "partitioner")
		}
		e.primitive = p
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Analyze computes the adjacency mapping of in. It fails on geometry types
// it cannot process, on NaN or infinite coordinates, and on densification
// beyond the configured site limit. Degenerate input yields an empty mapping.
func (e *Engine) Analyze(in Input) (*Analysis, error) {
	layers := in.Layers()
	for _, l := range layers {
		for i, g := range l.Geometries {
			if g != nil && !geom.Supported(g) {
				return nil, errors.New(errors.ErrCodeInvalidGeometry,
					"%s %d: unsupported geometry type %s", l.Role, i, g.GeoJSONType())
			}
			if p, bad := geom.NonFinite(g); bad {
				return nil, errors.New(errors.ErrCodeInvalidGeometry,
					"%s %d: non-finite coordinate (%g, %g)", l.Role, i, p[0], p[1])
			}
		}
	}

	norm, err := normalize.Normalize(layers, normalize.Options{
		BoundingBox:      e.cfg.BoundingBox,
		Densify:          e.cfg.DensifyFeatures,
		MaxSegmentLength: e.cfg.MaxSegmentLength,
		MaxSites:         max(e.maxSites, 0),
		Logger:           e.logger,
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("normalized geometries",
		"sources", norm.Layers[0].Present(),
		"targets", norm.Layers[1].Present(),
		"obstacles", norm.Layers[2].Present(),
		"interval", norm.Interval)

	idx := index.Build(norm.Layers)
	counts := idx.Counts()
	e.logger.Debug("indexed sites",
		"total", idx.Len(),
		"sources", counts[geom.Source],
		"targets", counts[geom.Target],
		"obstacles", counts[geom.Obstacle])

	part := partition.New(e.primitive, e.logger).Partition(idx.Points())
	e.logger.Debug("computed partition",
		"backend", part.Backend,
		"vertices", len(part.Vertices),
		"degenerate", part.Degenerate)

	mode := ModeSourceTarget
	if len(in.Targets) == 0 {
		mode = ModeSourceSource
	}
	mapping := resolve.Resolve(resolve.Input{
		Index:       idx,
		Partition:   part,
		Layers:      norm.Layers,
		Originals:   norm.Originals,
		MaxDistance: e.cfg.MaxDistance,
		Logger:      e.logger,
	})
	e.logger.Debug("resolved adjacency", "mode", mode, "sources", mapping.Len(), "pairs", len(mapping.Pairs()))

	return &Analysis{
		mapping: mapping,
		artifacts: &Artifacts{
			Sites:      idx.Sites(),
			Cells:      part.Cells,
			Vertices:   part.Vertices,
			Sets:       resolve.Aggregate(idx, part.Cells, norm.Layers),
			Layers:     norm.Layers,
			Originals:  norm.Originals,
			Interval:   norm.Interval,
			Degenerate: part.Degenerate,
			Backend:    part.Backend,
			Mode:       mode,
		},
	}, nil
}
