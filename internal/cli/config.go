package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/geoadjacency/pkg/cache"
	"github.com/matzehuels/geoadjacency/pkg/errors"
	"github.com/matzehuels/geoadjacency/pkg/pipeline"
)

// Environment variables read by the CLI.
const (
	envCache       = "GEOADJ_CACHE"
	envCachePrefix = "GEOADJ_CACHE_PREFIX"
	envRedisURL    = "GEOADJ_REDIS_URL"
	envMongoURI    = "GEOADJ_MONGO_URI"
	envAddr        = "GEOADJ_ADDR"
)

const defaultAddr = ":8080"

// environment holds settings taken from the process environment.
type environment struct {
	CacheBackend string
	// CachePrefix scopes cache keys so deployments can share a backend.
	CachePrefix  string
	RedisURL     string
	MongoURI     string
	Addr         string
}

// readEnv reads the CLI environment, applying defaults for unset variables.
func readEnv() (environment, error) {
	env := environment{
		CacheBackend: strings.ToLower(os.Getenv(envCache)),
		CachePrefix:  os.Getenv(envCachePrefix),
		RedisURL:     os.Getenv(envRedisURL),
		MongoURI:     os.Getenv(envMongoURI),
		Addr:         os.Getenv(envAddr),
	}
	if env.CacheBackend == "" {
		env.CacheBackend = cache.BackendFile
	}
	if env.Addr == "" {
		env.Addr = defaultAddr
	}

	switch env.CacheBackend {
	case cache.BackendNone, cache.BackendFile:
	case cache.BackendRedis:
		if env.RedisURL == "" {
			return env, errors.New(errors.ErrCodeInvalidConfig, "%s=redis requires %s", envCache, envRedisURL)
		}
	case cache.BackendMongo:
		if env.MongoURI == "" {
			return env, errors.New(errors.ErrCodeInvalidConfig, "%s=mongo requires %s", envCache, envMongoURI)
		}
	default:
		return env, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown cache backend %q (want none, file, redis or mongo)", envCache, env.CacheBackend)
	}
	return env, nil
}

// loadConfig reads pipeline options from a TOML, YAML or JSON file, chosen
// by extension.
func loadConfig(path string) (pipeline.Options, error) {
	var opts pipeline.Options
	if err := errors.ValidatePath(path); err != nil {
		return opts, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, errors.New(errors.ErrCodeFileNotFound, "config file %s not found", path)
		}
		return opts, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		_, err = toml.Decode(string(data), &opts)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &opts)
	case ".json":
		err = json.Unmarshal(data, &opts)
	default:
		return opts, errors.New(errors.ErrCodeInvalidFormat, "unsupported config file %q (want .toml, .yaml, .yml or .json)", filepath.Base(path))
	}
	if err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config %s", filepath.Base(path))
	}
	return opts, nil
}
