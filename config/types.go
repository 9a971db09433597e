package config

import (
	"time"

	"github.com/s0up4200/civshow/slideshow"
)

// Config represents the complete configuration structure
type Config struct {
	Civitai   CivitaiConfig   `mapstructure:"civitai"`
	Slideshow SlideshowConfig `mapstructure:"slideshow"`
	Server    ServerConfig    `mapstructure:"server"`
	Filters   FilterConfig    `mapstructure:"filters"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// File is the config file that was read, empty when defaults were used
	File string `mapstructure:"-"`
}

// CivitaiConfig holds Civitai API connection details
type CivitaiConfig struct {
	URL      string        `mapstructure:"url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
}

// SlideshowConfig contains playback settings and the initial filters
type SlideshowConfig struct {
	Delay             int                      `mapstructure:"delay"`
	PrefetchThreshold int                      `mapstructure:"prefetch_threshold"`
	Defaults          slideshow.FilterSnapshot `mapstructure:"defaults"`
}

// ServerConfig contains web viewer settings
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// FilterConfig maps preset names to view filter expressions
type FilterConfig map[string]string

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
