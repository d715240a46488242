// Command spawnsim runs projectile spawner waves against typed pools and
// prints the resulting pool statistics as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/coachpo/spawnpool/config"
	"github.com/coachpo/spawnpool/internal/observability"
	"github.com/coachpo/spawnpool/internal/pool"
	"github.com/coachpo/spawnpool/internal/spawner"
	"github.com/coachpo/spawnpool/internal/telemetry"
)

const (
	defaultConfigPath        = "config/spawnpool.yaml"
	registryShutdownTimeout  = 5 * time.Second
	telemetryShutdownTimeout = 5 * time.Second
)

type options struct {
	configPath string
	waves      int
}

func main() {
	opts := parseFlags()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "spawnsim: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	cfgPath := flag.String("config", defaultConfigPath, "Path to the spawnpool configuration file")
	waves := flag.Int("waves", 10, "Number of spawn waves to run per pool")
	flag.Parse()
	return options{configPath: *cfgPath, waves: *waves}
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, loaded, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, zl, err := observability.NewProductionLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	observability.SetLogger(logger)
	defer observability.SetLogger(nil)

	if !loaded {
		logger.Info("configuration file not found, using defaults", observability.F("path", opts.configPath))
	}
	logger.Info("configuration initialised",
		observability.F("env", string(cfg.Environment)),
		observability.F("pools", len(cfg.Pools)))

	provider, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	metrics, err := pool.NewMetrics(provider.Meter("spawnpool/pool"))
	if err != nil {
		return fmt.Errorf("init pool metrics: %w", err)
	}

	registry := pool.NewRegistry(logger)
	spawners, err := buildSpawners(cfg, registry, logger, metrics)
	if err != nil {
		return err
	}

	var wg conc.WaitGroup
	for _, s := range spawners {
		wg.Go(func() {
			runWaves(ctx, s, cfg.Spawner, opts.waves, logger)
		})
	}
	wg.Wait()

	var shutdownErrs []error
	shutdownCtx, cancel := context.WithTimeout(context.Background(), registryShutdownTimeout)
	defer cancel()
	if err := registry.Shutdown(shutdownCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("registry: %w", err))
	}
	if err := pool.WriteJSON(out, registry.Snapshot()); err != nil {
		shutdownErrs = append(shutdownErrs, err)
	}
	_, _ = io.WriteString(out, "\n")

	telemetryCtx, cancelTelemetry := context.WithTimeout(context.Background(), telemetryShutdownTimeout)
	defer cancelTelemetry()
	if err := provider.Shutdown(telemetryCtx); err != nil {
		shutdownErrs = append(shutdownErrs, fmt.Errorf("telemetry: %w", err))
	}
	return observability.AggregateErrors(logger, "spawnsim shutdown", shutdownErrs)
}

func initTelemetry(ctx context.Context, cfg config.Settings) (*telemetry.Provider, error) {
	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.Enabled = cfg.Telemetry.Enabled
	if cfg.Telemetry.OTLPEndpoint != "" {
		telemetryCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	}
	if cfg.Telemetry.ServiceName != "" {
		telemetryCfg.ServiceName = cfg.Telemetry.ServiceName
	}
	telemetryCfg.OTLPInsecure = cfg.Telemetry.Insecure
	telemetryCfg.Environment = string(cfg.Environment)
	provider, err := telemetry.NewProvider(ctx, telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("create telemetry provider: %w", err)
	}
	return provider, nil
}

func buildSpawners(cfg config.Settings, registry *pool.Registry, logger observability.Logger, metrics *pool.Metrics) ([]*spawner.Spawner, error) {
	spawners := make([]*spawner.Spawner, 0, len(cfg.Pools))
	for _, name := range cfg.PoolNames() {
		p, err := spawner.NewProjectilePool(name, cfg.Pools[name], logger, metrics)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(p); err != nil {
			return nil, fmt.Errorf("register pool %s: %w", name, err)
		}
		s, err := spawner.New(p, cfg.Spawner, logger)
		if err != nil {
			return nil, fmt.Errorf("spawner %s: %w", name, err)
		}
		spawners = append(spawners, s)
	}
	return spawners, nil
}

// runWaves spawns a ring of projectiles per wave and ticks until the wave has
// expired. Cancellation clears whatever is still in flight.
func runWaves(ctx context.Context, s *spawner.Spawner, settings config.SpawnerSettings, waves int, logger observability.Logger) {
	defer s.Clear()

	ticker := time.NewTicker(settings.TickInterval)
	defer ticker.Stop()

	for wave := 0; wave < waves; wave++ {
		throttled := 0
		for i := 0; i < settings.SpawnsPerWave; i++ {
			angle := 2 * math.Pi * float64(i) / float64(settings.SpawnsPerWave)
			velocity := pool.Vector3{X: math.Cos(angle), Z: math.Sin(angle)}
			rotation := pool.Rotation{Y: math.Sin(angle / 2), W: math.Cos(angle / 2)}
			if _, err := s.Spawn(pool.Vector3{}, rotation, velocity); err != nil {
				if errors.Is(err, spawner.ErrThrottled) {
					throttled++
					continue
				}
				logger.Error("spawn failed",
					observability.F("pool", s.Pool().Name()),
					observability.F("error", err))
				return
			}
		}
		if throttled > 0 {
			logger.Debug("spawns throttled",
				observability.F("pool", s.Pool().Name()),
				observability.F("wave", wave),
				observability.F("count", throttled))
		}
		for s.Live() > 0 {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}
}
