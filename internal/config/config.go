package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "SWITCHTUBE"
	configName     = "config"
	configFileType = "yaml"

	DefaultServerURL         = "https://tube.switch.ch"
	DefaultDownloadChunkSize = 16384
	DefaultUploadChunkSize   = 5 * 1024 * 1024
)

// Config holds all application configuration.
// It is loaded once and passed by value; nothing reads it from global state.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Download DownloadConfig `mapstructure:"download"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds the remote service configuration
type ServerConfig struct {
	URL     string        `mapstructure:"url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"` // Per-request timeout for catalog calls, 0 disables
}

// DownloadConfig holds channel download settings
type DownloadConfig struct {
	Destination string `mapstructure:"destination"` // Local path or vfs URI (file://, s3://, ...)
	ChunkSize   int    `mapstructure:"chunk_size"`
	Atomic      bool   `mapstructure:"atomic"` // Write to <name>.part and rename on success
	Match       string `mapstructure:"match"`  // Fuzzy title filter
}

// UploadConfig holds resumable upload settings
type UploadConfig struct {
	Endpoint   string `mapstructure:"endpoint"` // Path of the tus creation endpoint
	ChunkSize  int    `mapstructure:"chunk_size"`
	SessionDB  string `mapstructure:"session_db"`
	MaxResyncs int    `mapstructure:"max_resyncs"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"` // "" or "-" logs to stderr
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			URL:     DefaultServerURL,
			Timeout: 60 * time.Second,
		},
		Download: DownloadConfig{
			Destination: ".",
			ChunkSize:   DefaultDownloadChunkSize,
		},
		Upload: UploadConfig{
			Endpoint:   "/files",
			ChunkSize:  DefaultUploadChunkSize,
			SessionDB:  defaultSessionDBPath(),
			MaxResyncs: 3,
		},
		Logging: LoggingConfig{
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the per-user data directory for the current OS
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "switchtube")
	default:
		return filepath.Join("~", ".local", "share", "switchtube")
	}
}

func defaultSessionDBPath() string {
	return filepath.Join(defaultDataPath(), "sessions.db")
}

// DefaultConfigPath returns the default config directory for the current OS
func DefaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "switchtube")
	default:
		home, _ := homedir.Dir()
		return filepath.Join(home, ".config", "switchtube")
	}
}

// LoadOptions controls where LoadConfig looks for values.
type LoadOptions struct {
	// File is an explicit config file; when empty the default search paths are used.
	File string
	// Paths overrides the default search paths.
	Paths []string
	// Flags are bound by their long name onto config keys, see FlagKeys.
	Flags *pflag.FlagSet
	// FlagKeys maps flag names to config keys (e.g. "token" -> "server.token").
	FlagKeys map[string]string
}

// LoadConfig merges defaults, the config file, SWITCHTUBE_* environment
// variables and command line flags, in increasing precedence.
func LoadConfig(opts LoadOptions) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigType(configFileType)
	if opts.File != "" {
		v.SetConfigFile(opts.File)
	} else {
		v.SetConfigName(configName)
		paths := opts.Paths
		if paths == nil {
			paths = []string{DefaultConfigPath(), "."}
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || opts.File != "" {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if opts.Flags != nil {
		for name, key := range opts.FlagKeys {
			f := opts.Flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return Config{}, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Upload.SessionDB = expandPath(cfg.Upload.SessionDB)
	cfg.Logging.File = expandPath(cfg.Logging.File)

	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("server.url", cfg.Server.URL)
	v.SetDefault("server.token", cfg.Server.Token)
	v.SetDefault("server.timeout", cfg.Server.Timeout)

	v.SetDefault("download.destination", cfg.Download.Destination)
	v.SetDefault("download.chunk_size", cfg.Download.ChunkSize)
	v.SetDefault("download.atomic", cfg.Download.Atomic)
	v.SetDefault("download.match", cfg.Download.Match)

	v.SetDefault("upload.endpoint", cfg.Upload.Endpoint)
	v.SetDefault("upload.chunk_size", cfg.Upload.ChunkSize)
	v.SetDefault("upload.session_db", cfg.Upload.SessionDB)
	v.SetDefault("upload.max_resyncs", cfg.Upload.MaxResyncs)

	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.level", cfg.Logging.Level)
}

func expandPath(p string) string {
	if p == "" || p == "-" {
		return p
	}
	expanded, err := homedir.Expand(p)
	if err != nil {
		return p
	}
	return expanded
}

// Validate checks the values a transfer cannot run without.
func (c Config) Validate() error {
	var errs []error
	if c.Server.URL == "" {
		errs = append(errs, errors.New("server.url is required"))
	} else if u, err := url.Parse(c.Server.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("server.url %q is not an absolute URL", c.Server.URL))
	}
	if c.Server.Token == "" {
		errs = append(errs, errors.New("server.token is required"))
	}
	if c.Download.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("download.chunk_size must be positive, got %d", c.Download.ChunkSize))
	}
	if c.Upload.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("upload.chunk_size must be positive, got %d", c.Upload.ChunkSize))
	}
	if c.Upload.MaxResyncs < 0 {
		errs = append(errs, fmt.Errorf("upload.max_resyncs must not be negative, got %d", c.Upload.MaxResyncs))
	}
	return errors.Join(errs...)
}

// IsConfigured returns true if the server URL and token are set
func (c Config) IsConfigured() bool {
	return c.Server.URL != "" && c.Server.Token != ""
}

// SaveToken writes the token into the config file in dir, keeping any other
// values already stored there.
func SaveToken(dir, token string) error {
	if dir == "" {
		dir = DefaultConfigPath()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(dir, configName+"."+configFileType)

	v := viper.New()
	v.SetConfigFile(configFile)
	if _, err := os.Stat(configFile); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	v.Set("server.token", token)

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
