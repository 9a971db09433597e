package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/s0up4200/civshow/civitai"
	"github.com/s0up4200/civshow/slideshow"
)

// EnvPrefix is prepended to environment overrides, e.g. CIVSHOW_CIVITAI_API_KEY
const EnvPrefix = "CIVSHOW"

// Load loads the configuration. An explicit path must exist; otherwise the
// standard locations are searched and defaults apply when none has a file.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".civshow"))
		}
		v.AddConfigPath("/etc/civshow/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	defaults := slideshow.DefaultFilters()

	v.SetDefault("civitai.url", civitai.DefaultBaseURL)
	v.SetDefault("civitai.api_key", "")
	v.SetDefault("civitai.timeout", "30s")
	v.SetDefault("civitai.page_size", slideshow.DefaultPageSize)

	v.SetDefault("slideshow.delay", slideshow.DefaultDelaySeconds)
	v.SetDefault("slideshow.prefetch_threshold", slideshow.DefaultPrefetchThreshold)
	v.SetDefault("slideshow.defaults.nsfw", defaults.NSFW)
	v.SetDefault("slideshow.defaults.media_type", string(defaults.Kind))
	v.SetDefault("slideshow.defaults.search", defaults.Search)
	v.SetDefault("slideshow.defaults.sort", string(defaults.Sort))
	v.SetDefault("slideshow.defaults.period", string(defaults.Period))

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks the configuration and normalizes the default filters
func validate(cfg *Config) error {
	if cfg.Civitai.URL == "" {
		return fmt.Errorf("civitai.url is required")
	}
	if _, err := url.ParseRequestURI(cfg.Civitai.URL); err != nil {
		return fmt.Errorf("invalid civitai.url: %w", err)
	}
	if cfg.Civitai.Timeout <= 0 {
		return fmt.Errorf("civitai.timeout must be positive")
	}
	if cfg.Civitai.PageSize < 1 || cfg.Civitai.PageSize > civitai.MaxPageSize {
		return fmt.Errorf("civitai.page_size must be between 1 and %d", civitai.MaxPageSize)
	}

	if cfg.Slideshow.Delay < slideshow.MinDelaySeconds || cfg.Slideshow.Delay > slideshow.MaxDelaySeconds {
		return fmt.Errorf("slideshow.delay must be between %d and %d seconds",
			slideshow.MinDelaySeconds, slideshow.MaxDelaySeconds)
	}
	if cfg.Slideshow.PrefetchThreshold < 0 {
		return fmt.Errorf("slideshow.prefetch_threshold must not be negative")
	}

	defaults, err := cfg.Slideshow.Defaults.Normalize()
	if err != nil {
		return fmt.Errorf("invalid slideshow.defaults: %w", err)
	}
	cfg.Slideshow.Defaults = defaults

	for name, expression := range cfg.Filters {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filters.%s has an empty expression", name)
		}
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}
