package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/geoadjacency/pkg/errors"
	"github.com/matzehuels/geoadjacency/pkg/pipeline"
)

const (
	squareA = "POLYGON((0 0, 0 1, 1 1, 1 0, 0 0))\n"
	squareB = "POLYGON((3 0, 3 1, 4 1, 4 0, 3 0))\n"
	wall    = "POLYGON((1.5 0, 1.5 1, 2.5 1, 2.5 0, 1.5 0))\n"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv(envCache, "")

	var logs bytes.Buffer
	root := New(&logs, LogInfo).RootCommand()
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return logs.String(), err
}

func readDocument(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return doc
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	want := []string{"analyze", "cache", "completion", "serve"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeWritesFormats(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "sources.wkt", squareA)
	tgt := writeFile(t, dir, "targets.wkt", squareB)
	out := filepath.Join(dir, "out")

	logs, err := execute(t, "analyze", "--sources", src, "--targets", tgt, "-f", "json,geojson,dot", "-o", out)
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, logs)
	}

	doc := readDocument(t, out+".json")
	if diff := cmp.Diff(map[string]any{"0": []any{float64(0)}}, doc["mapping"]); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
	if doc["mode"] != "source-target" {
		t.Errorf("mode = %v, want source-target", doc["mode"])
	}

	links := readDocument(t, out+".geojson")
	if features, _ := links["features"].([]any); len(features) != 1 {
		t.Errorf("geojson has %d features, want 1", len(features))
	}
	if _, err := os.Stat(out + ".dot"); err != nil {
		t.Errorf("dot output missing: %v", err)
	}
}

func TestAnalyzeObstacleBreaksAdjacency(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "sources.wkt", squareA)
	tgt := writeFile(t, dir, "targets.wkt", squareB)
	obs := writeFile(t, dir, "obstacles.wkt", wall)
	out := filepath.Join(dir, "blocked.json")

	if _, err := execute(t, "analyze", "-s", src, "-t", tgt, "--obstacles", obs, "-o", out, "--no-cache"); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	doc := readDocument(t, out)
	if diff := cmp.Diff(map[string]any{}, doc["mapping"]); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestAnalyzeConfigFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "sources.wkt", squareA)
	tgt := writeFile(t, dir, "targets.wkt", squareB)
	cfg := writeFile(t, dir, "opts.toml", "max_distance = 0.5\n")
	out := filepath.Join(dir, "far.json")

	if _, err := execute(t, "analyze", "-s", src, "-t", tgt, "-c", cfg, "-o", out); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	doc := readDocument(t, out)
	if diff := cmp.Diff(map[string]any{}, doc["mapping"]); diff != "" {
		t.Errorf("max_distance from config not applied (-want +got):\n%s", diff)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "sources.wkt", squareA)
	bad := writeFile(t, dir, "bad.wkt", "POLYGON((0 0,\n")

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"missing file", []string{"analyze", "-s", filepath.Join(dir, "nope.wkt")}, errors.ErrCodeFileNotFound},
		{"unknown extension", []string{"analyze", "-s", writeFile(t, dir, "x.csv", "")}, errors.ErrCodeInvalidFormat},
		{"bad wkt", []string{"analyze", "-s", bad}, errors.ErrCodeInvalidGeometry},
		{"bad format", []string{"analyze", "-s", src, "-f", "pdf"}, errors.ErrCodeInvalidFormat},
		{"negative distance", []string{"analyze", "-s", src, "--max-distance", "-1"}, errors.ErrCodeInvalidConfig},
		{"zero segment", []string{"analyze", "-s", src, "--densify", "--max-segment-length", "0"}, errors.ErrCodeInvalidConfig},
		{"short bbox", []string{"analyze", "-s", src, "--bbox", "0,0,1"}, errors.ErrCodeInvalidConfig},
		{"site limit", []string{"analyze", "-s", src, "--densify", "--max-segment-length", "0.01", "--max-sites", "10"}, errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %s, want %s (%v)", got, tt.code, err)
			}
		})
	}
}

func TestAnalyzeRequiresSources(t *testing.T) {
	if _, err := execute(t, "analyze"); err == nil {
		t.Fatal("expected error without --sources")
	}
}

func TestFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "opts.yaml", "partitioner: fortune\nformats: [dot]\nwidth: 300\n")

	var f analyzeFlags
	cmd := &cobra.Command{}
	cmd.Flags().StringVar(&f.partitioner, "partitioner", "", "")
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "")
	cmd.Flags().IntVar(&f.width, "width", pipeline.DefaultWidth, "")
	cmd.Flags().IntVar(&f.height, "height", pipeline.DefaultHeight, "")
	if err := cmd.Flags().Parse([]string{"-f", "png"}); err != nil {
		t.Fatal(err)
	}
	f.config = cfg

	opts, err := f.options(cmd)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.Partitioner != "fortune" {
		t.Errorf("Partitioner = %q, want fortune from config", opts.Partitioner)
	}
	if diff := cmp.Diff([]string{"png"}, opts.Formats); diff != "" {
		t.Errorf("Formats mismatch (-want +got):\n%s", diff)
	}
	if opts.Width != 300 || opts.Height != pipeline.DefaultHeight {
		t.Errorf("size = %dx%d, want 300x%d", opts.Width, opts.Height, pipeline.DefaultHeight)
	}
}

func TestOutputPaths(t *testing.T) {
	tests := []struct {
		name    string
		formats []string
		output  string
		want    map[string]string
	}{
		{"single explicit", []string{"png"}, "map.png", map[string]string{"png": "map.png"}},
		{"several default", []string{"json", "svg"}, "", map[string]string{"json": "adjacency.json", "svg": "adjacency.svg"}},
		{"several with ext", []string{"json", "artifacts"}, "out/run.json", map[string]string{"json": "out/run.json", "artifacts": "out/run.artifacts.json"}},
		{"unknown ext kept", []string{"dot", "png"}, "run.v2", map[string]string{"dot": "run.v2.dot", "png": "run.v2.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, outputPaths(tt.formats, tt.output)); diff != "" {
				t.Errorf("outputPaths mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"json"}},
		{"svg", []string{"svg"}},
		{"JSON, png,,dot", []string{"json", "png", "dot"}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseFormats(tt.in)); diff != "" {
			t.Errorf("parseFormats(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestCacheClear(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "sources.wkt", squareA)
	cacheHome := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheHome)
	t.Setenv(envCache, "file")

	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	root.SetArgs([]string{"analyze", "-s", src, "-o", filepath.Join(dir, "out.json")})
	if err := root.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	cdir, err := cacheDir()
	if err != nil {
		t.Fatal(err)
	}
	count, err := clearCache(cdir)
	if err != nil {
		t.Fatalf("clearCache: %v", err)
	}
	if count == 0 {
		t.Error("expected cached entries after an analyze run")
	}
	if count, _ := clearCache(cdir); count != 0 {
		t.Errorf("second clear removed %d entries, want 0", count)
	}
}

func TestLoadEnvMissingFile(t *testing.T) {
	if err := loadEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Errorf("loadEnv on missing file: %v", err)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), ".env", envAddr+"=:9999\n")
	t.Setenv(envAddr, "")
	os.Unsetenv(envAddr)

	if err := loadEnv(path); err != nil {
		t.Fatalf("loadEnv: %v", err)
	}
	env, err := readEnv()
	if err != nil {
		t.Fatal(err)
	}
	if env.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", env.Addr)
	}
}
