package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"brdwizard/internal/config"
	"brdwizard/internal/logging"
)

// rootOptions carries global flags and the state PersistentPreRunE builds.
type rootOptions struct {
	verbose    bool
	configPath string
	dataDir    string
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	root := &cobra.Command{
		Use:   "brd",
		Short: "brd - business requirements document wizard",
		Long: `brd walks you through a business requirements document one section
at a time, keeps a draft while you work, and stores finished documents
locally and, when signed in, in your remote collection.

Run "brd new" to start a document.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.CloseAudit()
			logging.CloseAll()
			if o.logger != nil {
				_ = o.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Config file (default: <data-dir>/config.yaml)")
	root.PersistentFlags().StringVarP(&o.dataDir, "data-dir", "d", "", "Data directory (default: ~/.brd)")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", 2*time.Minute, "Timeout for non-interactive commands")

	root.AddCommand(
		newNewCmd(o),
		newEditCmd(o),
		newFillCmd(o),
		newListCmd(o),
		newShowCmd(o),
		newDeleteCmd(o),
		newExportCmd(o),
		newMigrateCmd(o),
		newAuthCmd(o),
		newThemeCmd(o),
		newDraftCmd(o),
	)
	return root
}

// setup builds the zap logger, loads config and starts file logging.
func (o *rootOptions) setup() error {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stderr"}
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if o.verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.logger = logger

	dataDir := o.dataDir
	if dataDir == "" {
		dataDir = config.DefaultDataDir()
		if v := os.Getenv("BRD_DATA_DIR"); v != "" {
			dataDir = v
		}
	}
	path := o.configPath
	if path == "" {
		path = config.DefaultConfigPath(dataDir)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	} else if cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}
	o.cfg = cfg

	if err := logging.Initialize(cfg.DataDir, cfg.Logging.Settings()); err != nil {
		logger.Warn("File logging disabled", zap.Error(err))
	}
	if err := logging.InitAudit(); err != nil {
		logger.Warn("Audit logging disabled", zap.Error(err))
	}
	logging.Boot("brd starting (data dir %s, local %s, remote enabled=%v)", cfg.DataDir, cfg.Local.Driver, cfg.Remote.Enabled)
	logger.Debug("Config loaded", zap.String("path", path), zap.String("data_dir", cfg.DataDir))
	return nil
}

// commandContext returns a context bounded by --timeout and cancelled on
// SIGINT or SIGTERM.
func (o *rootOptions) commandContext(bounded bool) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if !bounded || o.timeout <= 0 {
		return ctx, stop
	}
	tctx, cancel := context.WithTimeout(ctx, o.timeout)
	return tctx, func() {
		cancel()
		stop()
	}
}

// withApp opens the app for one command run and closes it afterwards.
func (o *rootOptions) withApp(bounded bool, fn func(ctx context.Context, a *app) error) error {
	ctx, cancel := o.commandContext(bounded)
	defer cancel()

	a, err := openApp(ctx, o.cfg, o.logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			o.logger.Warn("Close failed", zap.Error(cerr))
		}
	}()
	return fn(ctx, a)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
