package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb"
	"github.com/spf13/cobra"

	"github.com/matzehuels/geoadjacency/pkg/core/adjacency"
	"github.com/matzehuels/geoadjacency/pkg/core/partition"
	"github.com/matzehuels/geoadjacency/pkg/errors"
	gio "github.com/matzehuels/geoadjacency/pkg/io"
	"github.com/matzehuels/geoadjacency/pkg/pipeline"
)

// defaultOutputBase names output files when several formats are written
// without an explicit --output.
const defaultOutputBase = "adjacency"

// formatExt maps output formats to file extensions.
var formatExt = map[string]string{
	pipeline.FormatJSON:      ".json",
	pipeline.FormatArtifacts: ".artifacts.json",
	pipeline.FormatGeoJSON:   ".geojson",
	pipeline.FormatDOT:       ".dot",
	pipeline.FormatSVG:       ".svg",
	pipeline.FormatPNG:       ".png",
}

// analyzeFlags holds the raw flag values of the analyze command.
type analyzeFlags struct {
	sources   string
	targets   string
	obstacles string
	config    string
	output    string
	formats   string
	noCache   bool

	bbox             []float64
	densify          bool
	maxSegmentLength float64
	maxDistance      float64
	partitioner      string
	width            int
	height           int
	title            string
	refresh          bool
	maxSites         int
}

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var f analyzeFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute the adjacency mapping of geometry files",
		Long: `Compute which sources are adjacent to which targets.

Geometry files are GeoJSON (.geojson, .json) or WKT with one geometry per
line (.wkt, .txt). Without --targets, sources are compared with each other.`,
		Example: `  geoadjacency analyze --sources parcels.geojson --targets roads.geojson
  geoadjacency analyze --sources parcels.wkt --obstacles rivers.wkt -f json,png -o out
  geoadjacency analyze --sources parcels.geojson --densify --max-segment-length 5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options(cmd)
			if err != nil {
				return err
			}
			ctx := withLogger(cmd.Context(), c.Logger)
			return c.runAnalyze(ctx, f, opts)
		},
	}

	cmd.Flags().StringVarP(&f.sources, "sources", "s", "", "source geometry file (required)")
	cmd.Flags().StringVarP(&f.targets, "targets", "t", "", "target geometry file")
	cmd.Flags().StringVar(&f.obstacles, "obstacles", "", "obstacle geometry file")
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "options file (.toml, .yaml, .json)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file, or base name for several formats (default stdout)")
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output formats: json, artifacts, geojson, dot, svg, png (comma-separated)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "recompute even when cached")

	cmd.Flags().Float64SliceVar(&f.bbox, "bbox", nil, "clip to minx,miny,maxx,maxy")
	cmd.Flags().BoolVar(&f.densify, "densify", false, "insert vertices along long edges")
	cmd.Flags().Float64Var(&f.maxSegmentLength, "max-segment-length", 0, "densification interval (default derived from the data)")
	cmd.Flags().Float64Var(&f.maxDistance, "max-distance", 0, "drop pairs farther apart than this")
	cmd.Flags().StringVar(&f.partitioner, "partitioner", "", "voronoi backend: "+strings.Join(partitioners(), ", "))
	cmd.Flags().IntVar(&f.width, "width", pipeline.DefaultWidth, "png width in points")
	cmd.Flags().IntVar(&f.height, "height", pipeline.DefaultHeight, "png height in points")
	cmd.Flags().StringVar(&f.title, "title", "", "png title")
	cmd.Flags().IntVar(&f.maxSites, "max-sites", adjacency.DefaultMaxSites, "maximum vertices after densification (-1 for no limit)")

	_ = cmd.MarkFlagRequired("sources")

	return cmd
}

// options merges the config file, if any, with the flags set on cmd.
// Flags win over the file.
func (f *analyzeFlags) options(cmd *cobra.Command) (pipeline.Options, error) {
	var opts pipeline.Options
	if f.config != "" {
		loaded, err := loadConfig(f.config)
		if err != nil {
			return opts, err
		}
		opts = loaded
	}

	changed := cmd.Flags().Changed
	if changed("bbox") {
		opts.BoundingBox = f.bbox
	}
	if changed("densify") {
		opts.DensifyFeatures = f.densify
	}
	if changed("max-segment-length") {
		v := f.maxSegmentLength
		if err := errors.ValidatePositive("max-segment-length", &v); err != nil {
			return opts, err
		}
		opts.MaxSegmentLength = &v
	}
	if changed("max-distance") {
		v := f.maxDistance
		if err := errors.ValidateNonNegative("max-distance", &v); err != nil {
			return opts, err
		}
		opts.MaxDistance = &v
	}
	if changed("partitioner") {
		opts.Partitioner = f.partitioner
	}
	if changed("format") || len(opts.Formats) == 0 {
		opts.Formats = parseFormats(f.formats)
	}
	if changed("width") || opts.Width == 0 {
		opts.Width = f.width
	}
	if changed("height") || opts.Height == 0 {
		opts.Height = f.height
	}
	if changed("title") {
		opts.Title = f.title
	}
	opts.Refresh = f.refresh
	return opts, nil
}

func (c *CLI) runAnalyze(ctx context.Context, f analyzeFlags, opts pipeline.Options) error {
	logger := loggerFromContext(ctx)

	opts.Logger = logger
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return err
	}
	in, err := readInput(ctx, f)
	if err != nil {
		return err
	}

	env, err := readEnv()
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, env, f.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()
	runner.MaxSites = f.maxSites

	prog := newProgress(logger)
	result, err := runner.Execute(ctx, in, opts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Analyzed %d geometries", result.Stats.Sources+result.Stats.Targets+result.Stats.Obstacles))

	if f.output == "" && len(opts.Formats) == 1 {
		_, err := os.Stdout.Write(result.Artifacts[opts.Formats[0]])
		return err
	}

	paths, err := writeOutputs(result.Artifacts, opts.Formats, f.output)
	if err != nil {
		return err
	}
	printSummary(result)
	for _, p := range paths {
		printFile(p)
	}
	return nil
}

// readInput loads the geometry files named by the flags.
func readInput(ctx context.Context, f analyzeFlags) (adjacency.Input, error) {
	logger := loggerFromContext(ctx)
	var in adjacency.Input

	files := []struct {
		name string
		path string
		dst  *[]orb.Geometry
	}{
		{"sources", f.sources, &in.Sources},
		{"targets", f.targets, &in.Targets},
		{"obstacles", f.obstacles, &in.Obstacles},
	}
	for _, file := range files {
		if file.path == "" {
			continue
		}
		if err := errors.ValidatePath(file.path); err != nil {
			return in, fmt.Errorf("%s: %w", file.name, err)
		}
		geoms, err := gio.ImportGeometries(file.path)
		if err != nil {
			return in, fmt.Errorf("%s: %w", file.name, err)
		}
		logger.Debug("read geometries", "role", file.name, "path", file.path, "count", len(geoms))
		*file.dst = geoms
	}
	return in, nil
}

// outputPaths returns the file each format is written to. A single format
// goes to output as given; several formats share output's base name.
func outputPaths(formats []string, output string) map[string]string {
	paths := make(map[string]string, len(formats))
	if len(formats) == 1 && output != "" {
		paths[formats[0]] = output
		return paths
	}

	base := output
	if base == "" {
		base = defaultOutputBase
	}
	if ext := filepath.Ext(base); ext != "" {
		for _, known := range formatExt {
			if strings.EqualFold(ext, known) {
				base = strings.TrimSuffix(base, ext)
				break
			}
		}
	}
	for _, format := range formats {
		paths[format] = base + formatExt[format]
	}
	return paths
}

func writeOutputs(artifacts map[string][]byte, formats []string, output string) ([]string, error) {
	paths := outputPaths(formats, output)
	written := make([]string, 0, len(paths))
	for _, format := range formats {
		path := paths[format]
		if err := errors.ValidatePath(path); err != nil {
			return written, err
		}
		if err := os.WriteFile(path, artifacts[format], 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", format, err)
		}
		written = append(written, path)
	}
	sort.Strings(written)
	return written, nil
}

func partitioners() []string {
	names := partition.Backends()
	sort.Strings(names)
	return names
}
