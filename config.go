package main

import (
	"github.com/caarlos0/env/v11"
	"github.com/memmaker/octovox/engine/util"
	"github.com/memmaker/octovox/engine/voxel"
	"github.com/pkg/errors"
)

type Config struct {
	Generator   string `env:"OCTOVOX_GENERATOR"     envDefault:"heightmap"`
	Seed        int64  `env:"OCTOVOX_SEED"          envDefault:"99"`
	InitialSize int32  `env:"OCTOVOX_INITIAL_SIZE"  envDefault:"2"`
	MaxTreeSize int32  `env:"OCTOVOX_MAX_TREE_SIZE" envDefault:"1024"`
	MaxBatch    int    `env:"OCTOVOX_MAX_BATCH"     envDefault:"200"`
	// Workers defaults to the number of CPUs when zero.
	Workers int `env:"OCTOVOX_WORKERS" envDefault:"0"`

	ViewDistance    float32 `env:"OCTOVOX_VIEW_DISTANCE"    envDefault:"64"`
	Ticks           int     `env:"OCTOVOX_TICKS"            envDefault:"600"`
	TickRate        int     `env:"OCTOVOX_TICK_RATE"        envDefault:"60"`
	PlayerRadius    float32 `env:"OCTOVOX_PLAYER_RADIUS"    envDefault:"0.4"`
	PlayerSpeed     float32 `env:"OCTOVOX_PLAYER_SPEED"     envDefault:"4"`
	Gravity         float32 `env:"OCTOVOX_GRAVITY"          envDefault:"20"`
	ExplosionRadius float32 `env:"OCTOVOX_EXPLOSION_RADIUS" envDefault:"3"`
	FireInterval    int     `env:"OCTOVOX_FIRE_INTERVAL"    envDefault:"30"`

	SnapshotPath  string   `env:"OCTOVOX_SNAPSHOT_PATH"`
	LogLevel      string   `env:"OCTOVOX_LOG_LEVEL"      envDefault:"info"`
	LogCategories []string `env:"OCTOVOX_LOG_CATEGORIES" envDefault:"voxel,generation,io,system" envSeparator:","`
}

// ParseEnv loads the configuration from environment variables and validates it.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if _, err := voxel.GeneratorByName(c.Generator, c.Seed); err != nil {
		return err
	}
	if !util.IsPowerOfTwo(c.InitialSize) {
		return errors.Errorf("initial size %d is not a power of two", c.InitialSize)
	}
	if !util.IsPowerOfTwo(c.MaxTreeSize) || c.MaxTreeSize < c.InitialSize {
		return errors.Errorf("max tree size %d must be a power of two not below the initial size %d", c.MaxTreeSize, c.InitialSize)
	}
	if c.MaxBatch <= 0 {
		return errors.Errorf("max batch %d must be positive", c.MaxBatch)
	}
	if c.Workers < 0 {
		return errors.Errorf("workers %d must not be negative", c.Workers)
	}
	if c.ViewDistance <= 0 {
		return errors.Errorf("view distance %v must be positive", c.ViewDistance)
	}
	if c.Ticks < 0 || c.TickRate <= 0 {
		return errors.Errorf("invalid tick setup: %d ticks at %d per second", c.Ticks, c.TickRate)
	}
	if c.PlayerRadius <= util.SKIN_WIDTH {
		return errors.Errorf("player radius %v must exceed the skin width %v", c.PlayerRadius, util.SKIN_WIDTH)
	}
	if c.ExplosionRadius <= 0 {
		return errors.Errorf("explosion radius %v must be positive", c.ExplosionRadius)
	}
	if _, err := util.ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := util.ParseLogCategories(c.LogCategories); err != nil {
		return err
	}
	return nil
}

// ApplyLogging sets the global log level and categories.
func (c Config) ApplyLogging() error {
	level, err := util.ParseLogLevel(c.LogLevel)
	if err != nil {
		return err
	}
	categories, err := util.ParseLogCategories(c.LogCategories)
	if err != nil {
		return err
	}
	util.GLOBAL_LOG_LEVEL = level
	util.GLOBAL_LOG_CATEGORIES = categories
	return nil
}

func (c Config) WorldConfig() voxel.WorldConfig {
	worldConfig := voxel.DefaultWorldConfig()
	worldConfig.MaxChunksPerBatch = c.MaxBatch
	worldConfig.MaxTreeSize = c.MaxTreeSize
	if c.Workers > 0 {
		worldConfig.Workers = c.Workers
	}
	return worldConfig
}
