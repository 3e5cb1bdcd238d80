package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/wildlife"
)

// Load reads the YAML configuration file at path and returns a validated
// Config. Keys missing from the file keep their Default values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Unknown keys are an error.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.LogLevel != "" && !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}

	// Engine
	if cfg.Engine.Interval <= 0 {
		errs = append(errs, fmt.Errorf("engine.interval must be positive, got %s", cfg.Engine.Interval))
	}
	if cfg.Engine.Speed < 0 {
		errs = append(errs, fmt.Errorf("engine.speed %.2f must not be negative", cfg.Engine.Speed))
	}
	if cfg.Engine.HistoryLimit < 0 {
		errs = append(errs, fmt.Errorf("engine.history_limit %d must not be negative", cfg.Engine.HistoryLimit))
	}

	// World
	if cfg.World.Width <= 0 || cfg.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world size %dx%d must be positive", cfg.World.Width, cfg.World.Height))
	}
	if cfg.World.WaterLevel >= cfg.World.MountainLevel {
		errs = append(errs, fmt.Errorf("world.water_level %.2f must be below world.mountain_level %.2f",
			cfg.World.WaterLevel, cfg.World.MountainLevel))
	}

	// Village
	if _, err := economy.BundleFromMap(cfg.Village.StartingResources); err != nil {
		errs = append(errs, fmt.Errorf("village.starting_resources: %w", err))
	}
	if cfg.Village.StartingFamilies < 0 || cfg.Village.FamilyAdults < 0 || cfg.Village.FamilyChildren < 0 {
		errs = append(errs, errors.New("village family counts must not be negative"))
	}
	for name, n := range cfg.Village.StartingWildlife {
		if _, err := wildlife.ParseSpecies(name); err != nil {
			errs = append(errs, fmt.Errorf("village.starting_wildlife: %w", err))
		}
		if n < 0 {
			errs = append(errs, fmt.Errorf("village.starting_wildlife.%s %d must not be negative", name, n))
		}
	}

	// People
	p := cfg.People
	if p.HungerPerTick < 0 || p.SleepHungerPerTick < 0 {
		errs = append(errs, errors.New("people hunger rates must not be negative"))
	}
	if p.TiredThreshold >= p.RestedThreshold {
		errs = append(errs, fmt.Errorf("people.tired_threshold %.2f must be below people.rested_threshold %.2f",
			p.TiredThreshold, p.RestedThreshold))
	}
	if p.FoodValue <= 0 {
		errs = append(errs, fmt.Errorf("people.food_value %.2f must be positive", p.FoodValue))
	}

	// Wildlife
	if cfg.Wildlife.BreedingEnabled && cfg.Wildlife.BreedingTicks <= 0 {
		errs = append(errs, errors.New("wildlife.breeding_ticks must be positive when breeding is enabled"))
	}

	if cfg.Construction.WorkPerWorker <= 0 {
		errs = append(errs, fmt.Errorf("construction.work_per_worker %d must be positive", cfg.Construction.WorkPerWorker))
	}
	if cfg.Production.IntervalTicks == 0 {
		errs = append(errs, errors.New("production.interval_ticks must be positive"))
	}
	if cfg.Storage.TraceDir != "" && cfg.Storage.TraceSegmentTicks == 0 {
		errs = append(errs, errors.New("storage.trace_segment_ticks must be positive when trace_dir is set"))
	}
	if cfg.API.CommandRate < 0 || cfg.API.CommandBurst < 0 {
		errs = append(errs, errors.New("api command rate limits must not be negative"))
	}

	return errors.Join(errs...)
}
