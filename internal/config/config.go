// Package config provides the configuration schema and loader for a hamlet
// simulation. A Config is an explicit value passed into the engine; there is
// no process-wide instance.
package config

import (
	"log/slog"
	"time"

	"github.com/talgya/hamlet/internal/agents"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/wildlife"
	"github.com/talgya/hamlet/internal/world"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog returns the matching slog level. Unknown levels map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure.
type Config struct {
	LogLevel LogLevel `yaml:"log_level"`

	Engine       EngineConfig       `yaml:"engine"`
	World        world.GenConfig    `yaml:"world"`
	Village      VillageConfig      `yaml:"village"`
	People       agents.Tuning      `yaml:"people"`
	Wildlife     wildlife.Tuning    `yaml:"wildlife"`
	Construction ConstructionConfig `yaml:"construction"`
	Production   ProductionConfig   `yaml:"production"`
	Storage      StorageConfig      `yaml:"storage"`
	API          APIConfig          `yaml:"api"`
}

// EngineConfig controls the tick loop.
type EngineConfig struct {
	Interval time.Duration `yaml:"interval"` // wall time per tick at speed 1
	Speed    float64       `yaml:"speed"`    // 0 starts paused
	Seed     int64         `yaml:"seed"`

	// Debug makes invariant violations panic instead of logging.
	Debug bool `yaml:"debug"`

	HistoryLimit int  `yaml:"history_limit"` // execution records kept in memory, 0 = all
	Diagonal     bool `yaml:"diagonal"`      // 8-connected pathfinding
	MaxPathNodes int  `yaml:"max_path_nodes"`
}

// VillageConfig seeds the starting settlement.
type VillageConfig struct {
	Name              string         `yaml:"name"`
	StartingResources map[string]int `yaml:"starting_resources"`
	StartingFamilies  int            `yaml:"starting_families"`
	FamilyAdults      int            `yaml:"family_adults"`
	FamilyChildren    int            `yaml:"family_children"`
	StartingWildlife  map[string]int `yaml:"starting_wildlife"`
}

// Resources parses the starting stock. Validate has already checked it.
func (v VillageConfig) Resources() economy.Bundle {
	b, _ := economy.BundleFromMap(v.StartingResources)
	return b
}

// ConstructionConfig tunes the construction pass.
type ConstructionConfig struct {
	WorkPerWorker int `yaml:"work_per_worker"`
}

// ProductionConfig tunes the production pass.
type ProductionConfig struct {
	IntervalTicks uint64 `yaml:"interval_ticks"`
}

// StorageConfig locates the journal and trace log. Empty paths disable them.
type StorageConfig struct {
	DBPath            string `yaml:"db_path"`
	TraceDir          string `yaml:"trace_dir"`
	TraceSegmentTicks uint64 `yaml:"trace_segment_ticks"`
}

// APIConfig controls the observer/admin HTTP server.
type APIConfig struct {
	Addr         string  `yaml:"addr"`
	AdminKey     string  `yaml:"admin_key"`
	CommandRate  float64 `yaml:"command_rate"` // admin commands per second
	CommandBurst int     `yaml:"command_burst"`
}

// Default returns a complete configuration with every tunable set.
func Default() Config {
	return Config{
		LogLevel: LogInfo,
		Engine: EngineConfig{
			Interval:     200 * time.Millisecond,
			Speed:        1,
			Seed:         42,
			HistoryLimit: 10000,
			MaxPathNodes: 4096,
		},
		World: world.DefaultGenConfig(),
		Village: VillageConfig{
			Name: "Ashby",
			StartingResources: map[string]int{
				"wood": 60, "stone": 20, "food": 40,
			},
			StartingFamilies: 3,
			FamilyAdults:     2,
			FamilyChildren:   1,
			StartingWildlife: map[string]int{
				"deer": 4, "rabbit": 6, "wolf": 1,
			},
		},
		People:       agents.DefaultTuning(),
		Wildlife:     wildlife.DefaultTuning(),
		Construction: ConstructionConfig{WorkPerWorker: 1},
		Production:   ProductionConfig{IntervalTicks: 20},
		Storage: StorageConfig{
			TraceSegmentTicks: 1000,
		},
		API: APIConfig{
			Addr:         ":8080",
			CommandRate:  5,
			CommandBurst: 10,
		},
	}
}
