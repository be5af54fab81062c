package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/edi/internal/codes"
	"github.com/ehr/edi/internal/config"
	"github.com/ehr/edi/internal/pipeline"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "edi-engine",
		Short:        "Healthcare EDI parsing and mapping engine",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(convertEOBCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(listenCmd())
	rootCmd.AddCommand(loadDenialsCmd())
	rootCmd.AddCommand(denialsCmd())
	rootCmd.AddCommand(migrateCmd())
	return rootCmd
}

// app is what every command loads first.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
}

func loadApp(logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &app{cfg: cfg, logger: newLogger(cfg, logOut)}, nil
}

// newLogger writes JSON, or console output in development, at LOG_LEVEL.
// Commands log to stderr so reports can go to stdout.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// runner builds the pipeline, loading the CARC overlay when one is
// configured. workers overrides WORKERS when positive.
func (a *app) runner(workers int) (*pipeline.Runner, error) {
	remapper := codes.DefaultRemapper()
	if path := a.cfg.CARCMappingFile; path != "" {
		overlay, err := codes.LoadOverlay(path)
		if err != nil {
			return nil, err
		}
		remapper = codes.NewRemapper(overlay)
		a.logger.Info().Str("file", path).Int("codes", len(overlay)).Msg("CARC overlay loaded")
	}
	if workers <= 0 {
		workers = a.cfg.Workers
	}
	return pipeline.NewRunner(pipeline.Options{
		Workers:       workers,
		Remapper:      remapper,
		Now:           a.cfg.Now(),
		DefaultSystem: a.cfg.DefaultSystem,
		Logger:        a.logger,
	}), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func requireArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%s: at least one file or directory is required", cmd.Name())
	}
	return nil
}
