package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/kidwatch/internal/bytesize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the kidwatch configuration.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (KIDWATCH_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// SMB is the share reached from outside the camera network.
	SMB SMBConfig `mapstructure:"smb" yaml:"smb"`

	// SMBInternal is the same share reached from inside the camera network.
	SMBInternal SMBConfig `mapstructure:"smb_internal" yaml:"smb_internal"`

	// IsInternal selects SMBInternal over SMB.
	IsInternal bool `mapstructure:"is_internal" yaml:"is_internal"`

	Reader   ReaderConfig   `mapstructure:"reader" yaml:"reader"`
	Dispatch DispatchConfig `mapstructure:"dispatch" yaml:"dispatch"`

	// VideoExtension selects which files count as recordings. Matched exactly.
	VideoExtension string `mapstructure:"video_extension" validate:"required,startswith=." yaml:"video_extension"`

	// Cameras maps a camera name to its folder and thresholds.
	// The "default" entry supplies values missing from the others.
	Cameras map[string]CameraConfig `mapstructure:"cameras" validate:"dive" yaml:"cameras"`

	Classifier ClassifierConfig `mapstructure:"classifier" yaml:"classifier"`
	Notify     NotifyConfig     `mapstructure:"notify" yaml:"notify"`
	Sink       SinkConfig       `mapstructure:"sink" yaml:"sink"`
	Ledger     LedgerConfig     `mapstructure:"ledger" yaml:"ledger"`
	Results    ResultsConfig    `mapstructure:"results" yaml:"results"`

	// OutputDir receives CSV reports.
	OutputDir string `mapstructure:"output_dir" validate:"required" yaml:"output_dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use a non-TLS connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL
	// Default: "http://localhost:4040"
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the /metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// SMBConfig describes one SMB share and the session pool in front of it.
type SMBConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
	Share    string `mapstructure:"share" yaml:"share"`
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password,omitempty"`
	Domain   string `mapstructure:"domain" yaml:"domain,omitempty"`

	// MaxSessions caps concurrently open sessions.
	// Default: 5
	MaxSessions int `mapstructure:"max_sessions" validate:"omitempty,min=1" yaml:"max_sessions"`

	// DialTimeout bounds TCP connect and authentication.
	// Default: 30s
	DialTimeout time.Duration `mapstructure:"dial_timeout" yaml:"dial_timeout"`

	// FreshnessWindow is how long a verified session is reused without a probe.
	// Default: 60s
	FreshnessWindow time.Duration `mapstructure:"freshness_window" yaml:"freshness_window"`
}

// ReaderConfig configures retried reads of remote files.
type ReaderConfig struct {
	// RetryAttempts is the total number of attempts per file.
	// Default: 3
	RetryAttempts int `mapstructure:"retry_attempts" validate:"omitempty,min=1" yaml:"retry_attempts"`

	PreDelayMin time.Duration `mapstructure:"pre_delay_min" yaml:"pre_delay_min"`
	PreDelayMax time.Duration `mapstructure:"pre_delay_max" validate:"gtefield=PreDelayMin" yaml:"pre_delay_max"`
	BackoffMin  time.Duration `mapstructure:"backoff_min" yaml:"backoff_min"`
	BackoffMax  time.Duration `mapstructure:"backoff_max" validate:"gtefield=BackoffMin" yaml:"backoff_max"`

	// MaxFileSize rejects larger files before reading them.
	// Supports human-readable formats: "2Gi", "500MB"
	// Default: 2Gi
	MaxFileSize bytesize.ByteSize `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// DispatchConfig configures concurrent batch processing.
type DispatchConfig struct {
	// MaxWorkers is an upper bound; the pool size caps it further.
	// Default: 4
	MaxWorkers int `mapstructure:"max_workers" validate:"omitempty,min=1" yaml:"max_workers"`

	// BatchSize is how many paths are handed to workers at a time.
	// Default: 10
	BatchSize int `mapstructure:"batch_size" validate:"omitempty,min=1" yaml:"batch_size"`

	// FailureRateThreshold fails the run when failed/total exceeds it.
	// Unset means 0.30; an explicit 0 fails the run on any failure.
	FailureRateThreshold *float64 `mapstructure:"failure_rate_threshold" validate:"omitempty,gte=0,lte=1" yaml:"failure_rate_threshold,omitempty"`
}

// CameraConfig describes where a camera stores its recordings and how its
// frames are classified. Zero fields fall back to the "default" camera.
type CameraConfig struct {
	// Folder is the camera's directory relative to the share root.
	Folder string `mapstructure:"folder" yaml:"folder"`

	// Name is the human-readable camera label used in reports.
	Name string `mapstructure:"name" yaml:"name"`

	// SampleInterval is the spacing between decoded frames.
	SampleInterval time.Duration `mapstructure:"sample_interval" yaml:"sample_interval"`

	ConfThreshold float64 `mapstructure:"conf_threshold" validate:"gte=0,lte=1" yaml:"conf_threshold"`
	HeightRatio   float64 `mapstructure:"height_ratio" validate:"gte=0,lte=1" yaml:"height_ratio"`

	// SampleSize is how many videos the sample command picks.
	SampleSize int `mapstructure:"sample_size" validate:"gte=0" yaml:"sample_size"`
}

// ClassifierConfig points at the person detection service.
type ClassifierConfig struct {
	Endpoint string        `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Model    string        `mapstructure:"model" yaml:"model"`
}

// NotifyConfig configures where missing-recording alerts go.
type NotifyConfig struct {
	Webhook WebhookConfig `mapstructure:"webhook" yaml:"webhook"`
	MQTT    MQTTConfig    `mapstructure:"mqtt" yaml:"mqtt"`
}

// WebhookConfig configures the HTTP alert endpoint. An empty URL disables it.
type WebhookConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url" yaml:"url"`
	APIToken string `mapstructure:"api_token" yaml:"api_token,omitempty"`
	UserID   string `mapstructure:"user_id" yaml:"user_id"`
	Platform string `mapstructure:"platform" yaml:"platform"`
}

// MQTTConfig configures the MQTT alert publisher. An empty broker disables it.
type MQTTConfig struct {
	Broker   string `mapstructure:"broker" yaml:"broker"`
	ClientID string `mapstructure:"client_id" yaml:"client_id"`
	Topic    string `mapstructure:"topic" yaml:"topic"`
	QoS      byte   `mapstructure:"qos" validate:"lte=2" yaml:"qos"`
}

// SinkConfig selects where downloaded videos and extracted frames are written.
type SinkConfig struct {
	// Type is "fs" or "s3".
	// Default: "fs"
	Type string       `mapstructure:"type" validate:"required,oneof=fs s3" yaml:"type"`
	FS   FSSinkConfig `mapstructure:"fs" yaml:"fs"`
	S3   S3SinkConfig `mapstructure:"s3" yaml:"s3"`
}

// FSSinkConfig configures the local filesystem sink.
type FSSinkConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// S3SinkConfig configures the S3 sink.
type S3SinkConfig struct {
	Bucket         string `mapstructure:"bucket" yaml:"bucket"`
	Region         string `mapstructure:"region" yaml:"region"`
	Endpoint       string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	KeyPrefix      string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style"`

	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// LedgerConfig configures the processed-item checkpoint store.
type LedgerConfig struct {
	// Path is the badger directory. Empty keeps the ledger in memory.
	Path string `mapstructure:"path" yaml:"path"`
}

// ResultsConfig configures the classification results database.
type ResultsConfig struct {
	// Type is "sqlite" or "postgres".
	// Default: "sqlite"
	Type     string                `mapstructure:"type" validate:"required,oneof=sqlite postgres" yaml:"type"`
	SQLite   SQLiteResultsConfig   `mapstructure:"sqlite" yaml:"sqlite"`
	Postgres PostgresResultsConfig `mapstructure:"postgres" yaml:"postgres"`
}

// SQLiteResultsConfig configures the embedded results database.
type SQLiteResultsConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// PostgresResultsConfig configures a PostgreSQL results database.
type PostgresResultsConfig struct {
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (KIDWATCH_*)
//  2. Configuration file
//  3. Default values
//
// An empty configPath searches the default location. A missing file yields
// the default configuration.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  kidwatch config init\n\n"+
				"Or specify a custom config file:\n"+
				"  kidwatch <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  kidwatch config init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file holds share and API credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: KIDWATCH_SMB_PASSWORD=secret
	v.SetEnvPrefix("KIDWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for ByteSize and time.Duration.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and numbers to bytesize.ByteSize, so
// config files can use sizes like "2Gi" or "500MB".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" or "5m" to time.Duration.
// Raw integers are nanoseconds.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/kidwatch, ~/.config/kidwatch, or "."
// when no home directory can be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "kidwatch")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "kidwatch")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
