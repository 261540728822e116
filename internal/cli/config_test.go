package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/geoadjacency/pkg/cache"
	"github.com/matzehuels/geoadjacency/pkg/errors"
)

func TestLoadConfigFormats(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"toml", "opts.toml", "densify_features = true\nmax_segment_length = 2.5\nbounding_box = [0.0, 0.0, 10.0, 10.0]\nformats = [\"json\", \"png\"]\n"},
		{"yaml", "opts.yaml", "densify_features: true\nmax_segment_length: 2.5\nbounding_box: [0, 0, 10, 10]\nformats: [json, png]\n"},
		{"yml", "opts.yml", "densify_features: true\nmax_segment_length: 2.5\nbounding_box: [0, 0, 10, 10]\nformats: [json, png]\n"},
		{"json", "opts.json", `{"densify_features": true, "max_segment_length": 2.5, "bounding_box": [0, 0, 10, 10], "formats": ["json", "png"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := loadConfig(writeFile(t, t.TempDir(), tt.file, tt.content))
			if err != nil {
				t.Fatalf("loadConfig: %v", err)
			}
			if !opts.DensifyFeatures {
				t.Error("DensifyFeatures not set")
			}
			if opts.MaxSegmentLength == nil || *opts.MaxSegmentLength != 2.5 {
				t.Errorf("MaxSegmentLength = %v, want 2.5", opts.MaxSegmentLength)
			}
			if diff := cmp.Diff([]float64{0, 0, 10, 10}, opts.BoundingBox); diff != "" {
				t.Errorf("BoundingBox mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff([]string{"json", "png"}, opts.Formats); diff != "" {
				t.Errorf("Formats mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		path string
		code errors.Code
	}{
		{"missing", dir + "/none.toml", errors.ErrCodeFileNotFound},
		{"extension", writeFile(t, dir, "opts.ini", "x=1"), errors.ErrCodeInvalidFormat},
		{"malformed toml", writeFile(t, dir, "bad.toml", "max_distance = [\n"), errors.ErrCodeInvalidConfig},
		{"malformed json", writeFile(t, dir, "bad.json", "{"), errors.ErrCodeInvalidConfig},
		{"empty path", "", errors.ErrCodeInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(tt.path)
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (%v)", got, tt.code, err)
			}
		})
	}
}

func TestReadEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    environment
		wantErr bool
	}{
		{
			name: "defaults",
			want: environment{CacheBackend: cache.BackendFile, Addr: defaultAddr},
		},
		{
			name: "redis",
			env:  map[string]string{envCache: "Redis", envCachePrefix: "staging", envRedisURL: "redis://localhost:6379/0", envAddr: ":9000"},
			want: environment{CacheBackend: cache.BackendRedis, CachePrefix: "staging", RedisURL: "redis://localhost:6379/0", Addr: ":9000"},
		},
		{
			name: "mongo",
			env:  map[string]string{envCache: "mongo", envMongoURI: "mongodb://localhost:27017"},
			want: environment{CacheBackend: cache.BackendMongo, MongoURI: "mongodb://localhost:27017", Addr: defaultAddr},
		},
		{name: "redis without url", env: map[string]string{envCache: "redis"}, wantErr: true},
		{name: "mongo without uri", env: map[string]string{envCache: "mongo"}, wantErr: true},
		{name: "unknown backend", env: map[string]string{envCache: "memcached"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{envCache, envCachePrefix, envRedisURL, envMongoURI, envAddr} {
				t.Setenv(k, tt.env[k])
			}

			got, err := readEnv()
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeInvalidConfig) {
					t.Errorf("readEnv() error = %v, want INVALID_CONFIG", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("readEnv: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("readEnv mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewCacheNoCache(t *testing.T) {
	c, err := newCache(t.Context(), environment{CacheBackend: cache.BackendRedis}, true)
	if err != nil {
		t.Fatalf("newCache: %v", err)
	}
	if _, ok := c.(*cache.NullCache); !ok {
		t.Errorf("newCache(noCache) = %T, want *cache.NullCache", c)
	}
}

func TestNewRunnerScopesKeys(t *testing.T) {
	c := New(&bytes.Buffer{}, LogInfo)
	runner, err := c.newRunner(t.Context(), environment{CacheBackend: cache.BackendNone, CachePrefix: "staging"}, false)
	if err != nil {
		t.Fatalf("newRunner: %v", err)
	}
	defer runner.Close()

	key := runner.Keyer.AnalysisKey("abc", cache.AnalysisKeyOpts{})
	if !strings.HasPrefix(key, "staging:analysis:") {
		t.Errorf("AnalysisKey = %q, want staging:analysis: prefix", key)
	}
}
