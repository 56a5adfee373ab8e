package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultWindow = 24 * time.Hour

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Recordings RecordingsConfig `yaml:"recordings"`
	Database   DatabaseConfig   `yaml:"database"`
	Previews   PreviewsConfig   `yaml:"previews"`
	Playback   PlaybackConfig   `yaml:"playback"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type RecordingsConfig struct {
	Path         string `yaml:"path"`
	ScanOnStart  bool   `yaml:"scan_on_start"`
	DefaultRange string `yaml:"default_range"` // Go duration looked back from now, e.g. 24h
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type PreviewsConfig struct {
	OutputDir     string `yaml:"output_dir"`
	CacheCapacity int    `yaml:"cache_capacity"`
	CacheMaxSize  int64  `yaml:"cache_max_size"` // bytes
	Width         int    `yaml:"width"`
}

type PlaybackConfig struct {
	ChunkDuration      time.Duration `yaml:"chunk_duration"`
	SeekTolerance      time.Duration `yaml:"seek_tolerance"`
	ResetScrubOnSwitch bool          `yaml:"reset_scrub_on_switch"`
	AlignChunks        bool          `yaml:"align_chunks"`
	SegmentCacheSize   int           `yaml:"segment_cache_size"`
	IdleTimeout        time.Duration `yaml:"idle_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         6550,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 0,
		},
		Recordings: RecordingsConfig{
			Path:         "",
			ScanOnStart:  true,
			DefaultRange: "24h",
		},
		Database: DatabaseConfig{
			Path: "data/review.db",
		},
		Previews: PreviewsConfig{
			OutputDir:     "data/previews",
			CacheCapacity: 2000,
			CacheMaxSize:  256 * 1024 * 1024, // 256 MB
			Width:         320,
		},
		Playback: PlaybackConfig{
			ChunkDuration:      time.Hour,
			SeekTolerance:      time.Second,
			ResetScrubOnSwitch: true,
			AlignChunks:        true,
			SegmentCacheSize:   256,
			IdleTimeout:        30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Playback.ChunkDuration <= 0 {
		errs = append(errs, errors.New("playback.chunk_duration must be positive"))
	}
	if c.Playback.SeekTolerance < 0 {
		errs = append(errs, errors.New("playback.seek_tolerance must not be negative"))
	}
	if c.Playback.SegmentCacheSize <= 0 {
		errs = append(errs, errors.New("playback.segment_cache_size must be positive"))
	}
	if c.Previews.CacheCapacity <= 0 {
		errs = append(errs, errors.New("previews.cache_capacity must be positive"))
	}
	if c.Recordings.DefaultRange != "" {
		d, err := time.ParseDuration(c.Recordings.DefaultRange)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("recordings.default_range: %w", err))
		case d <= 0:
			errs = append(errs, errors.New("recordings.default_range must be positive"))
		}
	}
	return errors.Join(errs...)
}

// DefaultWindow returns how far back from now a request without a time range
// looks. An unset or unusable default_range falls back to 24h.
func (r RecordingsConfig) DefaultWindow() time.Duration {
	d, err := time.ParseDuration(r.DefaultRange)
	if err != nil || d <= 0 {
		return defaultWindow
	}
	return d
}

// ChunkSeconds returns the chunk duration in seconds.
func (p PlaybackConfig) ChunkSeconds() float64 {
	return p.ChunkDuration.Seconds()
}
