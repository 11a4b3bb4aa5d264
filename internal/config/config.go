package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/moksha-hub/metabrainz-har/internal/filter"
)

// Config application configuration structure
type Config struct {
	Filter  FilterConfig  `yaml:"filter" mapstructure:"filter"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Web     WebConfig     `yaml:"web" mapstructure:"web"`
}

// FilterConfig domain allow-list configuration
type FilterConfig struct {
	// Domains are host substrings identifying the web-domain family of
	// interest. Empty means the built-in MetaBrainz list.
	Domains []string `yaml:"domains" mapstructure:"domains"`
	// DomainsFile optionally points at a YAML file holding a list of
	// additional domain strings, merged after Domains.
	DomainsFile string `yaml:"domains_file" mapstructure:"domains_file"`
}

// LogConfig log configuration
type LogConfig struct {
	Level       string        `yaml:"level" mapstructure:"level"`
	FileLogging FileLogConfig `yaml:"file_logging" mapstructure:"file_logging"`
}

// FileLogConfig file log configuration
type FileLogConfig struct {
	Enable     bool   `yaml:"enable" mapstructure:"enable"`
	Path       string `yaml:"path" mapstructure:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
}

// OutputConfig controls CLI output style
type OutputConfig struct {
	Mode    string `yaml:"mode" mapstructure:"mode"`
	Silence bool   `yaml:"silence" mapstructure:"silence"`
}

// StorageConfig scan history persistence parameters
type StorageConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	Path     string `yaml:"path" mapstructure:"path"`
	MaxScans int    `yaml:"max_scans" mapstructure:"max_scans"`
}

// WebConfig inspection API parameters
type WebConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// LoadConfig load configuration
// If v is nil, a new viper instance will be created
func LoadConfig(configPath string, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	setDefaults(v)

	v.SetEnvPrefix("MBHAR")
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.metabrainz-har")
		v.AddConfigPath("/etc/metabrainz-har")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file found, defaults apply.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	applyDefaults(&config, v)

	if config.Filter.DomainsFile != "" {
		extra, err := loadDomainsFile(config.Filter.DomainsFile)
		if err != nil {
			return nil, err
		}
		config.Filter.Domains = append(config.Filter.Domains, extra...)
	}

	return &config, nil
}

// applyDefaults applies default values to zero-value fields that Unmarshal
// leaves empty. Command line flags are merged separately in main.go and take
// priority over everything here.
func applyDefaults(cfg *Config, v *viper.Viper) {
	if len(cfg.Filter.Domains) == 0 {
		cfg.Filter.Domains = v.GetStringSlice("filter.domains")
	}
	if cfg.Filter.DomainsFile == "" {
		cfg.Filter.DomainsFile = v.GetString("filter.domains_file")
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = v.GetString("log.level")
	}
	cfg.Log.FileLogging.Enable = v.GetBool("log.file_logging.enable")
	cfg.Log.FileLogging.Compress = v.GetBool("log.file_logging.compress")
	if cfg.Log.FileLogging.Path == "" {
		cfg.Log.FileLogging.Path = v.GetString("log.file_logging.path")
	}
	if cfg.Log.FileLogging.MaxSizeMB == 0 {
		cfg.Log.FileLogging.MaxSizeMB = v.GetInt("log.file_logging.max_size_mb")
	}
	if cfg.Log.FileLogging.MaxBackups == 0 {
		cfg.Log.FileLogging.MaxBackups = v.GetInt("log.file_logging.max_backups")
	}
	if cfg.Log.FileLogging.MaxAgeDays == 0 {
		cfg.Log.FileLogging.MaxAgeDays = v.GetInt("log.file_logging.max_age_days")
	}

	if cfg.Output.Mode == "" {
		cfg.Output.Mode = v.GetString("output.mode")
	}
	cfg.Output.Silence = v.GetBool("output.silence")

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = v.GetString("storage.driver")
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = v.GetString("storage.path")
	}
	if cfg.Storage.MaxScans == 0 {
		cfg.Storage.MaxScans = v.GetInt("storage.max_scans")
	}

	if cfg.Web.Addr == "" {
		cfg.Web.Addr = v.GetString("web.addr")
	}
	if cfg.Web.ShutdownTimeout == 0 {
		if timeout, err := time.ParseDuration(v.GetString("web.shutdown_timeout")); err == nil {
			cfg.Web.ShutdownTimeout = timeout
		} else {
			cfg.Web.ShutdownTimeout = 5 * time.Second
		}
	}
}

// setDefaults set default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("filter.domains", filter.MetaBrainzDomains)
	v.SetDefault("filter.domains_file", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_logging.enable", false)
	v.SetDefault("log.file_logging.path", "./metabrainz-har.log")
	v.SetDefault("log.file_logging.max_size_mb", 10)
	v.SetDefault("log.file_logging.max_backups", 5)
	v.SetDefault("log.file_logging.max_age_days", 30)
	v.SetDefault("log.file_logging.compress", true)

	v.SetDefault("output.mode", "console")
	v.SetDefault("output.silence", false)

	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", "./data/metabrainz-har.db")
	v.SetDefault("storage.max_scans", 1000)

	v.SetDefault("web.addr", "127.0.0.1:38420")
	v.SetDefault("web.shutdown_timeout", "5s")
}

// loadDomainsFile reads additional allow-list entries from a YAML list file.
func loadDomainsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read domains file: %w", err)
	}
	var domains []string
	if err := yaml.Unmarshal(data, &domains); err != nil {
		return nil, fmt.Errorf("parse domains file %s: %w", path, err)
	}
	return domains, nil
}

// Validate checks and normalizes the configuration.
func (c *Config) Validate() error {
	for i, d := range c.Filter.Domains {
		if strings.TrimSpace(d) == "" {
			return fmt.Errorf("filter domain %d cannot be blank", i+1)
		}
	}

	switch strings.ToLower(c.Output.Mode) {
	case "", "console", "json":
		if c.Output.Mode == "" {
			c.Output.Mode = "console"
		}
	default:
		return fmt.Errorf("output mode must be 'console' or 'json'")
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Driver) == "" {
			c.Storage.Driver = "sqlite"
		}
	default:
		return fmt.Errorf("storage driver must be sqlite")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fmt.Errorf("storage path cannot be empty")
	}
	if c.Storage.MaxScans < 0 {
		return fmt.Errorf("storage max_scans cannot be negative")
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if c.Log.FileLogging.Enable {
		if c.Log.FileLogging.Path == "" {
			return fmt.Errorf("log file path cannot be empty when file logging is enabled")
		}
		if c.Log.FileLogging.MaxSizeMB < 1 {
			return fmt.Errorf("log file max size must be at least 1MB")
		}
		if c.Log.FileLogging.MaxBackups < 0 {
			return fmt.Errorf("log file max backups cannot be negative")
		}
		if c.Log.FileLogging.MaxAgeDays < 0 {
			return fmt.Errorf("log file max age cannot be negative")
		}
	}

	if strings.TrimSpace(c.Web.Addr) == "" {
		return fmt.Errorf("web addr cannot be empty")
	}
	if c.Web.ShutdownTimeout < 0 {
		return fmt.Errorf("web shutdown timeout cannot be negative")
	}

	return nil
}
