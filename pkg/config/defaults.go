package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/kidwatch/internal/bytesize"
	"github.com/marmos91/kidwatch/pkg/dispatch"
	"github.com/marmos91/kidwatch/pkg/smb"
)

// DefaultCamera is the camera entry whose fields fill gaps in the others.
const DefaultCamera = "default"

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applySMBDefaults(&cfg.SMB)
	applySMBDefaults(&cfg.SMBInternal)
	applyReaderDefaults(&cfg.Reader)
	applyDispatchDefaults(&cfg.Dispatch)
	applyCameraDefaults(cfg)
	applyClassifierDefaults(&cfg.Classifier)
	applyNotifyDefaults(&cfg.Notify)

	if cfg.VideoExtension == "" {
		cfg.VideoExtension = smb.DefaultVideoExtension
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}

	applySinkDefaults(&cfg.Sink, cfg.OutputDir)
	applyResultsDefaults(&cfg.Results, cfg.OutputDir)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{
			"cpu",
			"alloc_objects",
			"alloc_space",
			"inuse_objects",
			"inuse_space",
			"goroutines",
		}
	}
}

// applyMetricsDefaults sets the metrics port when metrics are enabled.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applySMBDefaults(cfg *SMBConfig) {
	if cfg.Port == 0 {
		cfg.Port = smb.DefaultPort
	}
	if cfg.MaxSessions == 0 {
		cfg.MaxSessions = smb.DefaultMaxSessions
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 30 * time.Second
	}
	if cfg.FreshnessWindow == 0 {
		cfg.FreshnessWindow = smb.DefaultFreshnessWindow
	}
}

func applyReaderDefaults(cfg *ReaderConfig) {
	def := smb.DefaultReaderConfig()
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = def.Attempts
	}
	// Delays are defaulted as pairs so an explicit "0s/0s" can disable them.
	if cfg.PreDelayMin == 0 && cfg.PreDelayMax == 0 {
		cfg.PreDelayMin = def.PreDelayMin
		cfg.PreDelayMax = def.PreDelayMax
	}
	if cfg.BackoffMin == 0 && cfg.BackoffMax == 0 {
		cfg.BackoffMin = def.BackoffMin
		cfg.BackoffMax = def.BackoffMax
	}
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 2 * bytesize.GiB
	}
}

func applyDispatchDefaults(cfg *DispatchConfig) {
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = dispatch.DefaultBatchSize
	}
	if cfg.FailureRateThreshold == nil {
		threshold := dispatch.DefaultFailureRateThreshold
		cfg.FailureRateThreshold = &threshold
	}
}

// applyCameraDefaults makes sure a "default" camera exists with usable
// thresholds. Named cameras keep their zero fields; Camera resolves them.
func applyCameraDefaults(cfg *Config) {
	if cfg.Cameras == nil {
		cfg.Cameras = make(map[string]CameraConfig)
	}

	def := cfg.Cameras[DefaultCamera]
	if def.SampleInterval == 0 {
		def.SampleInterval = 5 * time.Second
	}
	if def.ConfThreshold == 0 {
		def.ConfThreshold = 0.5
	}
	if def.HeightRatio == 0 {
		def.HeightRatio = 0.5
	}
	if def.SampleSize == 0 {
		def.SampleSize = 10
	}
	cfg.Cameras[DefaultCamera] = def
}

func applyClassifierDefaults(cfg *ClassifierConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:8000/detect"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "yolov8n"
	}
}

func applyNotifyDefaults(cfg *NotifyConfig) {
	if cfg.Webhook.Platform == "" {
		cfg.Webhook.Platform = "kidwatch"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "kidwatch"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "kidwatch/alerts"
	}
}

func applySinkDefaults(cfg *SinkConfig, outputDir string) {
	if cfg.Type == "" {
		cfg.Type = "fs"
	}
	if cfg.Type == "fs" && cfg.FS.Path == "" {
		cfg.FS.Path = filepath.Join(outputDir, "artifacts")
	}
}

func applyResultsDefaults(cfg *ResultsConfig, outputDir string) {
	if cfg.Type == "" {
		cfg.Type = "sqlite"
	}
	if cfg.Type == "sqlite" && cfg.SQLite.Path == "" {
		cfg.SQLite.Path = filepath.Join(outputDir, "results.db")
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Cameras: map[string]CameraConfig{
			DefaultCamera: {},
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
