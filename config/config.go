// Package config loads engine configuration with layered precedence:
// built-in defaults, then an optional YAML file, then RECGO_ environment
// variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// EnvPrefix is the environment variable prefix. RECGO_STORE__BACKEND
// overrides store.backend; a double underscore separates nesting levels
// so key names may contain single underscores.
const EnvPrefix = "RECGO_"

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "RECGO_CONFIG"

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"recgo.yaml",
	"recgo.yml",
	"/etc/recgo/config.yaml",
}

// Config is the engine configuration.
type Config struct {
	Store    StoreConfig            `koanf:"store"`
	Models   map[string]ModelConfig `koanf:"models"`
	Defaults DefaultsConfig         `koanf:"defaults"`
	Hybrid   HybridConfig           `koanf:"hybrid"`
	Search   SearchConfig           `koanf:"search"`
	Registry RegistryConfig         `koanf:"registry"`
	Workers  WorkersConfig          `koanf:"workers"`
}

// StoreConfig selects where model bundles are fetched from.
type StoreConfig struct {
	// Backend is one of local, memory, s3, minio.
	Backend string `koanf:"backend"`
	// Root is the bundle directory for the local backend.
	Root string `koanf:"root"`
	// Bucket/Prefix apply to the s3 and minio backends.
	Bucket string `koanf:"bucket"`
	Prefix string `koanf:"prefix"`
	// Region applies to the s3 backend.
	Region string `koanf:"region"`
	// Endpoint/AccessKey/SecretKey/UseSSL apply to the minio backend.
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl"`
}

// ModelConfig describes one named model variant. Kind and metric are
// self-described by the bundle; configuration only points at it.
type ModelConfig struct {
	// Source is the blob name (path or object key) of the bundle.
	Source string `koanf:"source"`
}

// DefaultsConfig names the model initially active per kind. Empty
// values leave the kind without a default until switched at runtime.
type DefaultsConfig struct {
	AudioModel  string `koanf:"audio_model"`
	LyricsModel string `koanf:"lyrics_model"`
}

// HybridConfig tunes the hybrid strategy blend.
type HybridConfig struct {
	// ClusterWeight is the cluster leg's weight, in (0,1).
	ClusterWeight float64 `koanf:"cluster_weight"`
}

// SearchConfig tunes nearest-neighbor search.
type SearchConfig struct {
	// NProbe is the number of IVF cells probed on artifacts carrying a
	// coarse index.
	NProbe int `koanf:"nprobe"`
}

// RegistryConfig tunes artifact lifecycle management.
type RegistryConfig struct {
	// MaxLoaded caps resident models (0 = unlimited).
	MaxLoaded int `koanf:"max_loaded"`
	// MaxConcurrentLoads bounds parallel bundle loads.
	MaxConcurrentLoads int `koanf:"max_concurrent_loads"`
	// RetryInterval throttles reload attempts of failed models.
	RetryInterval time.Duration `koanf:"retry_interval"`
}

// WorkersConfig sizes the compute pools.
type WorkersConfig struct {
	// SearchWorkers sizes the CPU-bound search pool (0 = GOMAXPROCS).
	SearchWorkers int `koanf:"search_workers"`
	// CompareParallelism bounds concurrent model runs per comparison.
	CompareParallelism int `koanf:"compare_parallelism"`
}

// Default returns the built-in defaults, applied before file and env
// layers.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: "local",
			Root:    "./models",
			UseSSL:  true,
		},
		Models: map[string]ModelConfig{},
		Hybrid: HybridConfig{
			ClusterWeight: 0.7,
		},
		Search: SearchConfig{
			NProbe: 8,
		},
		Registry: RegistryConfig{
			MaxLoaded:          0,
			MaxConcurrentLoads: 2,
			RetryInterval:      5 * time.Second,
		},
		Workers: WorkersConfig{
			SearchWorkers:      0,
			CompareParallelism: 4,
		},
	}
}

// Validate checks cross-field consistency.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "local", "memory", "s3", "minio":
	default:
		return fmt.Errorf("store.backend: unsupported backend %q", c.Store.Backend)
	}

	if w := c.Hybrid.ClusterWeight; w <= 0 || w >= 1 {
		return fmt.Errorf("hybrid.cluster_weight: %v outside (0,1)", w)
	}
	if c.Search.NProbe <= 0 {
		return fmt.Errorf("search.nprobe: must be positive, got %d", c.Search.NProbe)
	}

	for name, m := range c.Models {
		if m.Source == "" {
			return fmt.Errorf("models.%s: missing source", name)
		}
	}
	for _, def := range []struct{ key, name string }{
		{"defaults.audio_model", c.Defaults.AudioModel},
		{"defaults.lyrics_model", c.Defaults.LyricsModel},
	} {
		if def.name == "" {
			continue
		}
		if _, ok := c.Models[def.name]; !ok {
			return fmt.Errorf("%s: model %q not configured", def.key, def.name)
		}
	}

	return nil
}

// Sources returns the model-name → blob-name map consumed by the
// registry loader.
func (c *Config) Sources() map[string]string {
	out := make(map[string]string, len(c.Models))
	for name, m := range c.Models {
		out[name] = m.Source
	}
	return out
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform maps RECGO_STORE__BACKEND to store.backend. Double
// underscores separate nesting levels; single underscores are key
// characters.
func envTransform(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	s = strings.ToLower(s)
	return strings.ReplaceAll(s, "__", ".")
}
