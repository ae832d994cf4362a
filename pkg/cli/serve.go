package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/todomock/todomock/pkg/config"
	"github.com/todomock/todomock/pkg/engine"
	"github.com/todomock/todomock/pkg/logging"
)

// serveFlags holds the flag values for the serve command.
type serveFlags struct {
	configFile string
	host       string
	port       int
	delayMS    int
	validation string
	session    string
	logLevel   string
	logFormat  string
	logFile    string
	printURL   bool
}

var serveFlagVals serveFlags

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the mock todo API server (foreground)",
	Example: `  # Start with defaults on port 5001
  todomock serve

  # Custom port and a slower artificial delay
  todomock serve --port 3000 --delay 250

  # Strict request validation, as the real backend enforces it
  todomock serve --validation strict

  # Persist state across restarts
  todomock serve --session /tmp/todomock-session.json

  # Load everything from a config file
  todomock serve --config todomock.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(&serveFlagVals)
	},
}

func initServeCmd() {
	rootCmd.AddCommand(serveCmd)

	f := &serveFlagVals
	serveCmd.Flags().StringVarP(&f.configFile, "config", "c", "", "Path to configuration file (JSON or YAML)")
	serveCmd.Flags().StringVar(&f.host, "host", "", "Interface to bind (default 127.0.0.1)")
	serveCmd.Flags().IntVarP(&f.port, "port", "p", -1, "HTTP port (0 picks a free port)")
	serveCmd.Flags().IntVar(&f.delayMS, "delay", -1, "Artificial response delay in milliseconds")
	serveCmd.Flags().StringVar(&f.validation, "validation", "", "Request validation mode (compat or strict)")
	serveCmd.Flags().StringVar(&f.session, "session", "", "Session snapshot file for persistent state")
	serveCmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	serveCmd.Flags().StringVar(&f.logFormat, "log-format", "", "Log format (text or json)")
	serveCmd.Flags().StringVar(&f.logFile, "log-file", "", "Mirror logs to a file in addition to stderr")
	serveCmd.Flags().BoolVar(&f.printURL, "print-url", false, "Print the base URL once the server is listening")
}

// buildConfig layers defaults, config file, environment, and flags, in that
// order. Flags win.
func buildConfig(f *serveFlags) (*config.Config, error) {
	cfg := config.Default()

	path := f.configFile
	if path == "" {
		discovered, err := config.DiscoverConfig()
		if err != nil {
			return nil, err
		}
		path = discovered
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if f.host != "" {
		cfg.Server.Host = f.host
	}
	if f.port >= 0 {
		cfg.Server.Port = f.port
	}
	if f.delayMS >= 0 {
		cfg.Mock.DelayMS = f.delayMS
	}
	if f.validation != "" {
		cfg.Mock.Validation = f.validation
	}
	if f.session != "" {
		cfg.Session.File = f.session
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if f.logFormat != "" {
		cfg.Logging.Format = f.logFormat
	}
	if f.logFile != "" {
		cfg.Logging.File = f.logFile
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildLogger constructs the operational logger from config, mirroring to a
// file when one is configured.
func buildLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	format := logging.ParseFormat(cfg.Logging.Format)

	stderrLog := logging.New(logging.Config{Level: level, Format: format, Output: os.Stderr})
	if cfg.Logging.File == "" {
		return stderrLog, func() {}, nil
	}

	fileOut, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	fileLog := logging.New(logging.Config{Level: level, Format: logging.FormatJSON, Output: fileOut})
	combined := slog.New(logging.NewMultiHandler(stderrLog.Handler(), fileLog.Handler()))
	return combined, func() { _ = fileOut.Close() }, nil
}

func runServe(f *serveFlags) error {
	cfg, err := buildConfig(f)
	if err != nil {
		return err
	}

	log, closeLog, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	srv, err := engine.NewServer(cfg, engine.WithLogger(log))
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}

	log.Info("todomock serving",
		"url", srv.URL(),
		"delay_ms", cfg.Mock.DelayMS,
		"validation", cfg.Mock.Validation,
		"session", cfg.Session.File,
	)
	if f.printURL {
		fmt.Println(srv.URL())
	}

	// Block until interrupted.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	s := <-sig
	log.Info("shutting down", "signal", s.String())

	return srv.Stop()
}
