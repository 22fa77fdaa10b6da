// Command parking-logger reads slot status frames from the parking controller
// over serial and records every debounced change to the ledger, SQLite and MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sweeney/parking-logger/internal/config"
	"github.com/sweeney/parking-logger/internal/ingest"
	"github.com/sweeney/parking-logger/internal/ledger"
	"github.com/sweeney/parking-logger/internal/logging"
	"github.com/sweeney/parking-logger/internal/logic"
	"github.com/sweeney/parking-logger/internal/mqtt"
	"github.com/sweeney/parking-logger/internal/serial"
	"github.com/sweeney/parking-logger/internal/status"
	"github.com/sweeney/parking-logger/internal/store"
	"github.com/sweeney/parking-logger/internal/web"
)

const statusRefreshInterval = time.Second

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	log := logging.New(os.Stderr, zerolog.InfoLevel)

	if err := newRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("parking-logger")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:   "parking-logger",
		Short: "Log parking slot changes reported by the slot controller",
		Example: `  parking-logger --port /dev/ttyACM0 --broker tcp://192.168.1.200:1883
  parking-logger --config /etc/parking-logger.toml --db-path off`,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, &cfg, cfgPath); err != nil {
				return err
			}

			level, err := logging.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			log := logging.New(os.Stderr, level)
			log.Info().Interface("config", cfg).Msg("configuration")

			return run(cmd.Context(), cfg, log)
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.parking-logger/config.toml)")
	f.StringVar(&cfg.SerialPort, "port", cfg.SerialPort, "serial device of the slot controller")
	f.IntVar(&cfg.BaudRate, "baud", cfg.BaudRate, "serial baud rate")
	f.DurationVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "serial read timeout")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "serial polling interval")
	f.DurationVar(&cfg.MinStateDuration, "min-state-duration", cfg.MinStateDuration, "debounce window after a reported change")
	f.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the daily CSV ledger")
	f.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, `SQLite database path (default: <data-dir>/parking.db, "off" disables)`)
	f.StringVar(&cfg.Broker, "broker", cfg.Broker, "MQTT broker address (empty disables)")
	f.StringVar(&cfg.ClientID, "client-id", cfg.ClientID, "MQTT client ID")
	f.StringVar(&cfg.HTTPAddr, "http", cfg.HTTPAddr, `HTTP status address ("off" disables)`)
	f.DurationVar(&cfg.Heartbeat, "heartbeat", cfg.Heartbeat, "heartbeat interval (0 to disable)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")

	root.AddCommand(newPrintLineCmd(), newSimulateCmd(), newPortsCmd())
	return root
}

// loadConfig layers the config file, then PARKING_* variables, under any
// flags set explicitly on the command line.
func loadConfig(cmd *cobra.Command, cfg *config.Config, path string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := path
	if cfgFile == "" {
		cfgFile = config.DefaultPath()
	}
	if path != "" && !config.FileExists(path) {
		return fmt.Errorf("config file %s not found", path)
	}
	if cfgFile != "" && config.FileExists(cfgFile) {
		fc, err := config.LoadFile(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyFile(cfg, fc, changed); err != nil {
			return err
		}
	}

	if err := config.ApplyEnv(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	led, err := ledger.Open(cfg.DataDir, time.Now(), log)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer led.Close()
	sinks := []ingest.Sink{led}

	if config.Enabled(cfg.DBPath) {
		st, err := store.Open(ctx, cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		sinks = append(sinks, st)
	}

	var (
		system systemPublisher
		conn   mqtt.ConnectionStatus
	)
	if config.Enabled(cfg.Broker) {
		publisher, err := mqtt.NewRealPublisher(cfg.Broker, cfg.ClientID, log)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer publisher.Close()
		system, conn = publisher, publisher
		sinks = append(sinks, publisher)
	}

	src, err := serial.Open(cfg.SerialPort, cfg.BaudRate, cfg.ReadTimeout)
	if err != nil {
		return fmt.Errorf("open serial port: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), status.Config{
		SerialPort:  cfg.SerialPort,
		PollMs:      cfg.PollInterval.Milliseconds(),
		MinStateMs:  cfg.MinStateDuration.Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Milliseconds(),
		Broker:      cfg.Broker,
		HTTPAddr:    cfg.HTTPAddr,
		DataDir:     cfg.DataDir,
	})

	pipeline := ingest.New(ingest.Options{
		Detector: logic.NewDetector(cfg.MinStateDuration),
		Sinks:    sinks,
		Log:      log,
		Tracker:  tracker,
	})

	if config.Enabled(cfg.HTTPAddr) {
		srv := web.New(cfg.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http status server listening")
	}

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()
	refresh := time.NewTicker(statusRefreshInterval)
	defer refresh.Stop()

	var heartbeat <-chan time.Time
	if cfg.Heartbeat > 0 {
		hb := time.NewTicker(cfg.Heartbeat)
		defer hb.Stop()
		heartbeat = hb.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	l := &loop{
		pipeline:  pipeline,
		source:    src,
		system:    system,
		conn:      conn,
		tracker:   tracker,
		log:       log,
		now:       time.Now,
		tick:      ticker.C,
		heartbeat: heartbeat,
		refresh:   refresh.C,
	}
	l.publishSystem("STARTUP", "")

	log.Info().
		Str("port", cfg.SerialPort).
		Dur("poll", cfg.PollInterval).
		Dur("min_state_duration", cfg.MinStateDuration).
		Int("sinks", len(sinks)).
		Msg("started")

	return l.run(ctx, sigCh)
}

// systemPublisher is the part of the MQTT publisher the loop needs for
// lifecycle events.
type systemPublisher interface {
	PublishSystem(event mqtt.SystemEvent) error
}

// loop owns the daemon's run state. system and conn are nil when MQTT is disabled.
type loop struct {
	pipeline *ingest.Pipeline
	source   serial.Source
	system   systemPublisher
	conn     mqtt.ConnectionStatus
	tracker  *status.Tracker
	log      zerolog.Logger
	now      func() time.Time

	tick      <-chan time.Time
	heartbeat <-chan time.Time
	refresh   <-chan time.Time
}

// run ingests lines until a signal arrives, ctx is done or the source fails,
// then publishes SHUTDOWN. Only a source failure is returned.
func (l *loop) run(ctx context.Context, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var reason string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.pipeline.Run(gctx, l.source, l.tick)
	})
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case s := <-sig:
				reason = signalName(s)
				l.log.Info().Str("signal", reason).Msg("shutting down")
				cancel()
				return nil
			case <-l.heartbeat:
				l.sendHeartbeat()
			case <-l.refresh:
				l.refreshConnection()
			}
		}
	})

	err := g.Wait()
	switch {
	case err != nil:
		l.log.Error().Err(err).Msg("ingest stopped")
		reason = "ERROR"
	case reason == "":
		reason = "STOPPED"
	}
	l.publishSystem("SHUTDOWN", reason)
	return err
}

func (l *loop) sendHeartbeat() {
	snap := l.tracker.Snapshot()
	l.log.Info().
		Dur("uptime", snap.Uptime().Truncate(time.Second)).
		Int("lines", snap.Counts.Lines).
		Int("reported", snap.Counts.Reported).
		Int("malformed", snap.Counts.Malformed).
		Int("checksum_failures", snap.Counts.ChecksumFailures).
		Msg("heartbeat")
	l.publishSystem("HEARTBEAT", "")
}

func (l *loop) refreshConnection() {
	if l.conn != nil {
		l.tracker.SetMQTTConnected(l.conn.IsConnected())
	}
}

func (l *loop) publishSystem(event, reason string) {
	l.refreshConnection()
	if l.system == nil {
		return
	}

	snap := l.tracker.Snapshot()
	ev := mqtt.SystemEvent{
		Timestamp:  l.now(),
		Event:      event,
		Reason:     reason,
		Retained:   event != "HEARTBEAT",
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
	if err := l.system.PublishSystem(ev); err != nil {
		l.log.Warn().Err(err).Str("event", event).Msg("failed to publish system event")
		return
	}
	l.log.Debug().Str("event", event).Msg("published system event")
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return s.String()
	}
}
