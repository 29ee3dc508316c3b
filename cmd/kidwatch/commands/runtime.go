package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/kidwatch/internal/app"
	"github.com/marmos91/kidwatch/internal/cli/prompt"
	"github.com/marmos91/kidwatch/internal/logger"
	"github.com/marmos91/kidwatch/internal/telemetry"
	"github.com/marmos91/kidwatch/pkg/classifier"
	"github.com/marmos91/kidwatch/pkg/codec/gstreamer"
	"github.com/marmos91/kidwatch/pkg/config"
	"github.com/marmos91/kidwatch/pkg/ledger"
	"github.com/marmos91/kidwatch/pkg/metrics"
	"github.com/marmos91/kidwatch/pkg/notify"
	"github.com/marmos91/kidwatch/pkg/results"
	"github.com/marmos91/kidwatch/pkg/sink"
	sinkfs "github.com/marmos91/kidwatch/pkg/sink/fs"
	sinks3 "github.com/marmos91/kidwatch/pkg/sink/s3"
	"github.com/marmos91/kidwatch/pkg/smb"
	"github.com/marmos91/kidwatch/pkg/smb/smb2"
)

// loadConfig loads the configuration and applies global flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(logLevel)
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if cmd.Flags().Changed("internal") {
		cfg.IsInternal = internal
	}
	if workers > 0 {
		cfg.Dispatch.MaxWorkers = workers
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// runtime owns everything a command opens and closes it in reverse order.
type runtime struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	pool    *smb.Pool
	deps    app.Deps
	closers []func() error
}

// newRuntime loads configuration, starts observability and opens the
// session pool. The returned context is cancelled on SIGINT/SIGTERM.
func newRuntime(cmd *cobra.Command) (context.Context, *runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if err := InitLogger(cfg); err != nil {
		return nil, nil, err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	rt := &runtime{cfg: cfg}
	rt.onClose(func() error { stop(); return nil })

	if err := rt.startObservability(ctx, cmd.Name()); err != nil {
		_ = rt.Close()
		return nil, nil, err
	}
	if err := rt.openShare(); err != nil {
		_ = rt.Close()
		return nil, nil, err
	}
	return ctx, rt, nil
}

func (rt *runtime) onClose(fn func() error) {
	rt.closers = append(rt.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *runtime) startObservability(ctx context.Context, command string) error {
	cfg := rt.cfg
	share := cfg.ActiveSMB()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "kidwatch",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
		Attributes: map[string]string{
			telemetry.AttrHost:    share.Host,
			telemetry.AttrShare:   share.Share,
			telemetry.AttrCommand: command,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	rt.onClose(func() error { return telemetryShutdown(context.Background()) })

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "kidwatch",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
		Tags:           map[string]string{"command": command},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	rt.onClose(profilingShutdown)

	if cfg.Metrics.Enabled {
		reg := metrics.InitRegistry()
		rt.metrics = metrics.NewMetrics(reg)
		srv := metrics.NewServer(cfg.Metrics.Port, reg)
		srv.Start(ctx)
		rt.onClose(srv.Stop)
	}

	logger.Debug("observability ready",
		"telemetry", telemetry.IsEnabled(),
		"profiling", telemetry.IsProfilingEnabled(),
		"metrics", cfg.Metrics.Enabled)
	return nil
}

func (rt *runtime) openShare() error {
	if err := config.ValidateRemote(rt.cfg); err != nil {
		return err
	}

	ep := rt.cfg.Endpoint()
	if ep.Password == "" && isInteractive() {
		pw, err := prompt.Password(fmt.Sprintf("Password for %s@%s", ep.Username, ep.Host))
		if err != nil {
			return err
		}
		ep.Password = pw
	}

	rt.pool = smb.NewPool(smb2.NewDialer(), ep, rt.cfg.PoolConfig(), rt.metrics)
	rt.onClose(rt.pool.Close)

	rt.deps.Remote = smb.NewWalker(rt.pool, rt.cfg.VideoExtension, rt.metrics)
	rt.deps.Reader = smb.NewReader(rt.pool, rt.cfg.ReaderConfig(), rt.metrics)
	rt.deps.Limiter = rt.pool
	rt.deps.Metrics = rt.metrics

	logger.Info("share configured", logger.KeyHost, ep.Host, logger.KeyShare, ep.Share,
		logger.KeyMax, rt.pool.MaxSessions(), "workers", rt.pool.SafeConcurrencyLimit())
	return nil
}

func isInteractive() bool {
	fi, err := os.Stdin.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

// openSink opens the configured artifact sink.
func (rt *runtime) openSink(ctx context.Context) error {
	var s sink.Sink
	switch rt.cfg.Sink.Type {
	case "s3":
		c := rt.cfg.Sink.S3
		store, err := sinks3.NewFromConfig(ctx, sinks3.Config{
			Bucket:          c.Bucket,
			Region:          c.Region,
			Endpoint:        c.Endpoint,
			KeyPrefix:       c.KeyPrefix,
			ForcePathStyle:  c.ForcePathStyle,
			AccessKeyID:     c.AccessKeyID,
			SecretAccessKey: c.SecretAccessKey,
		})
		if err != nil {
			return fmt.Errorf("failed to open s3 sink: %w", err)
		}
		if err := store.HealthCheck(ctx); err != nil {
			logger.Warn("s3 sink health check failed", logger.KeyError, err)
		}
		s = store
	default:
		store, err := sinkfs.NewWithPath(rt.cfg.Sink.FS.Path)
		if err != nil {
			return fmt.Errorf("failed to open fs sink: %w", err)
		}
		s = store
	}

	logger.Info("sink ready", "sink", s.Describe())
	rt.deps.Sink = s
	rt.onClose(s.Close)
	return nil
}

// openLedger opens the checkpoint ledger.
func (rt *runtime) openLedger() error {
	l, err := ledger.Open(rt.cfg.Ledger.Path)
	if err != nil {
		return err
	}
	rt.deps.Ledger = l
	rt.onClose(l.Close)
	return nil
}

// openResults opens the classification store.
func (rt *runtime) openResults() (*results.GORMStore, error) {
	store, err := results.New(&results.Config{
		Type:        results.DatabaseType(rt.cfg.Results.Type),
		SQLitePath:  rt.cfg.Results.SQLite.Path,
		PostgresDSN: rt.cfg.Results.Postgres.DSN,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open results store: %w", err)
	}
	rt.deps.Results = store
	rt.onClose(store.Close)
	return store, nil
}

// useDecoder wires the GStreamer frame decoder.
func (rt *runtime) useDecoder() {
	rt.deps.Decoder = gstreamer.New("")
}

// useClassifier wires the decoder and the HTTP person detector.
func (rt *runtime) useClassifier() {
	rt.useDecoder()
	c := rt.cfg.Classifier
	detector := classifier.NewHTTPDetector(c.Endpoint, c.Model, c.Timeout)
	rt.deps.Classifier = classifier.New(rt.deps.Decoder, detector)
}

// openNotifier wires the configured alert channels. With none configured
// alerts are only logged.
func (rt *runtime) openNotifier() error {
	var multi notify.Multi

	if w := rt.cfg.Notify.Webhook; w.URL != "" {
		multi = append(multi, notify.NewWebhook(notify.WebhookConfig{
			URL:      w.URL,
			APIToken: w.APIToken,
			UserID:   w.UserID,
			Platform: w.Platform,
		}))
	}

	if m := rt.cfg.Notify.MQTT; m.Broker != "" {
		client, err := notify.DialMQTT(notify.MQTTConfig{
			Broker:   m.Broker,
			ClientID: m.ClientID,
			Topic:    m.Topic,
			QoS:      m.QoS,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to mqtt broker: %w", err)
		}
		rt.onClose(func() error { client.Close(); return nil })
		multi = append(multi, client)
	}

	if len(multi) == 0 {
		logger.Warn("no notification channel configured; alerts are only logged")
		return nil
	}
	rt.deps.Notifier = multi
	return nil
}

// newApp builds the use-case layer over the opened dependencies.
func (rt *runtime) newApp() *app.App {
	return app.New(rt.cfg, rt.deps)
}
