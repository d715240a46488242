// Package config loads spawnpool runtime settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment identifies the runtime environment.
type Environment string

const (
	// EnvDev marks the development environment.
	EnvDev Environment = "dev"
	// EnvStaging marks the staging environment.
	EnvStaging Environment = "staging"
	// EnvProd marks the production environment.
	EnvProd Environment = "prod"
)

// PoolSettings configures one typed pool.
type PoolSettings struct {
	// Prewarm is the number of idle instances built when the pool is created.
	Prewarm int  `yaml:"prewarm"`
	Strict  bool `yaml:"strict"`
}

// SpawnerSettings configures the spawner simulation.
type SpawnerSettings struct {
	LifetimeTicks   int           `yaml:"lifetimeTicks"`
	SpawnsPerSecond float64       `yaml:"spawnsPerSecond"`
	Burst           int           `yaml:"burst"`
	TickInterval    time.Duration `yaml:"tickInterval"`
	SpawnsPerWave   int           `yaml:"spawnsPerWave"`
}

// TelemetrySettings configures metric export.
type TelemetrySettings struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	Insecure     bool   `yaml:"insecure"`
	ServiceName  string `yaml:"serviceName"`
}

// Settings is the root configuration tree.
type Settings struct {
	Environment Environment             `yaml:"environment"`
	LogLevel    string                  `yaml:"logLevel"`
	Pools       map[string]PoolSettings `yaml:"pools"`
	Spawner     SpawnerSettings         `yaml:"spawner"`
	Telemetry   TelemetrySettings       `yaml:"telemetry"`
}

// Default returns the built-in configuration.
func Default() Settings {
	return Settings{
		Environment: EnvDev,
		LogLevel:    "info",
		Pools: map[string]PoolSettings{
			"projectile": {Prewarm: 16, Strict: false},
		},
		Spawner: SpawnerSettings{
			LifetimeTicks:   5,
			SpawnsPerSecond: 1000,
			Burst:           100,
			TickInterval:    10 * time.Millisecond,
			SpawnsPerWave:   50,
		},
		Telemetry: TelemetrySettings{
			Enabled:      false,
			OTLPEndpoint: "localhost:4318",
			Insecure:     true,
			ServiceName:  "spawnpool",
		},
	}
}

// Load reads settings from a YAML file. Fields absent from the file keep
// their default values.
func Load(path string) (Settings, error) {
	reader, closer, err := openConfigFile(path)
	if err != nil {
		return Settings{}, err
	}
	defer closer()
	return Decode(reader)
}

// LoadOrDefault behaves like Load but falls back to Default when the file
// does not exist. The boolean reports whether the file was read.
func LoadOrDefault(path string) (Settings, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		return cfg, false, cfg.normalise()
	}
	return Settings{}, false, err
}

// Decode parses YAML settings from r on top of Default.
func Decode(r io.Reader) (Settings, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Settings{}, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if len(strings.TrimSpace(string(data))) > 0 {
		var pools struct {
			Pools map[string]PoolSettings `yaml:"pools"`
		}
		if err := yaml.Unmarshal(data, &pools); err != nil {
			return Settings{}, fmt.Errorf("unmarshal config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Settings{}, fmt.Errorf("unmarshal config: %w", err)
		}
		if pools.Pools != nil {
			cfg.Pools = pools.Pools
		}
	}
	if err := cfg.normalise(); err != nil {
		return Settings{}, err
	}
	return cfg, nil
}

// PoolNames returns the configured pool names in sorted order.
func (s Settings) PoolNames() []string {
	names := make([]string, 0, len(s.Pools))
	for name := range s.Pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Settings) normalise() error {
	s.Environment = Environment(strings.ToLower(strings.TrimSpace(string(s.Environment))))
	if s.Environment == "" {
		s.Environment = EnvDev
	}
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}

	normalised := make(map[string]PoolSettings, len(s.Pools))
	for key, value := range s.Pools {
		name := strings.ToLower(strings.TrimSpace(key))
		if name == "" {
			return fmt.Errorf("pool name must not be empty")
		}
		if _, exists := normalised[name]; exists {
			return fmt.Errorf("duplicate pool name %q", name)
		}
		if value.Prewarm < 0 {
			return fmt.Errorf("pool %s: prewarm must be >= 0, got %d", name, value.Prewarm)
		}
		normalised[name] = value
	}
	s.Pools = normalised

	if s.Spawner.LifetimeTicks <= 0 {
		s.Spawner.LifetimeTicks = 1
	}
	if s.Spawner.SpawnsPerSecond <= 0 {
		return fmt.Errorf("spawner: spawnsPerSecond must be positive")
	}
	if s.Spawner.Burst <= 0 {
		s.Spawner.Burst = 1
	}
	if s.Spawner.TickInterval <= 0 {
		s.Spawner.TickInterval = 10 * time.Millisecond
	}
	if s.Spawner.SpawnsPerWave <= 0 {
		s.Spawner.SpawnsPerWave = 1
	}

	s.Telemetry.OTLPEndpoint = strings.TrimSpace(s.Telemetry.OTLPEndpoint)
	s.Telemetry.ServiceName = strings.TrimSpace(s.Telemetry.ServiceName)
	return nil
}

func openConfigFile(path string) (io.Reader, func(), error) {
	candidate := filepath.Clean(strings.TrimSpace(path))
	file, err := os.Open(candidate) // #nosec G304 -- path is operator controlled.
	if err != nil {
		return nil, nil, fmt.Errorf("open config: %w", err)
	}
	return file, func() { _ = file.Close() }, nil
}
