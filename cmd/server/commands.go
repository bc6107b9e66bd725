package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/warp/settlement-engine/api"
	"github.com/warp/settlement-engine/config"
	"github.com/warp/settlement-engine/ledger"
	"github.com/warp/settlement-engine/logging"
	"github.com/warp/settlement-engine/settlement"
	"github.com/warp/settlement-engine/store/memory"
	"github.com/warp/settlement-engine/store/sqlite"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	defaults := config.Default()

	root := &cobra.Command{
		Use:           "server",
		Short:         "Settlement engine: earnings, payable balances and remittances",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "YAML config file")
	flags.String("driver", defaults.Database.Driver, "storage driver (sqlite|memory)")
	flags.String("db", defaults.Database.Path, "SQLite database path")
	flags.String("log-level", defaults.Log.Level, "log level (debug|info|warn|error)")
	flags.String("log-file", "", "rotating log file in addition to stderr")
	flags.Int("workers", defaults.Settlement.Workers, "users settled in parallel per generation run")

	root.AddCommand(newServeCmd(opts), newGenerateCmd(opts), newSeedCmd(opts))
	return root
}

// loadConfig layers flags the user actually set over the config file.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("driver") {
		cfg.Database.Driver, _ = flags.GetString("driver")
	}
	if flags.Changed("db") {
		cfg.Database.Path, _ = flags.GetString("db")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-file") {
		cfg.Log.File, _ = flags.GetString("log-file")
	}
	if flags.Changed("workers") {
		cfg.Settlement.Workers, _ = flags.GetInt("workers")
	}
	if flags.Lookup("addr") != nil && flags.Changed("addr") {
		cfg.HTTP.Addr, _ = flags.GetString("addr")
	}
	if flags.Lookup("schedule-interval") != nil && flags.Changed("schedule-interval") {
		cfg.Settlement.ScheduleInterval, _ = flags.GetDuration("schedule-interval")
	}

	return cfg, cfg.Validate()
}

// runtime is everything a command needs once config is resolved.
type runtime struct {
	cfg    config.Config
	logger *log.Logger
	store  ledger.TxStore
	users  ledger.UserDirectory
	close  func()
}

func setup(cmd *cobra.Command, opts *rootOptions) (*runtime, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger}
	switch cfg.Database.Driver {
	case config.DriverMemory:
		m := memory.New()
		rt.store, rt.users = m, m
		rt.close = func() { closeLog() }
	default:
		s, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			closeLog()
			return nil, fmt.Errorf("initializing database: %w", err)
		}
		rt.store, rt.users = s, s
		rt.close = func() {
			if err := s.Close(); err != nil {
				logger.Warn("closing database", "err", err)
			}
			closeLog()
		}
	}

	logger.Debug("storage ready", "driver", cfg.Database.Driver, "path", cfg.Database.Path)
	return rt, nil
}

// =============================================================================
// SERVE
// =============================================================================

func newServeCmd(opts *rootOptions) *cobra.Command {
	defaults := config.Default()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.close()
			return serve(cmd.Context(), rt)
		},
	}
	cmd.Flags().String("addr", defaults.HTTP.Addr, "HTTP listen address")
	cmd.Flags().Duration("schedule-interval", 0, "run remittance generation on this interval (0 disables)")
	return cmd
}

func serve(ctx context.Context, rt *runtime) error {
	cfg, logger := rt.cfg, rt.logger

	handler := api.NewHandler(rt.store, rt.users, logger)
	handler.Generator.Workers = cfg.Settlement.Workers

	scheduler := settlement.NewScheduler(handler.Generator, cfg.Settlement.ScheduleInterval, logger)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewRouter(handler, cfg.HTTP.AllowedOrigins),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// =============================================================================
// GENERATE
// =============================================================================

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate remittances for every user with a payable balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.close()

			g := settlement.NewGenerator(rt.store, rt.users, rt.logger)
			g.Workers = rt.cfg.Settlement.Workers

			result, err := g.Run(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range result.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %v\n", f)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "generated %d remittance(s), %d failure(s)\n", result.Generated, len(result.Failures))
			return nil
		},
	}
}

// =============================================================================
// SEED
// =============================================================================

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [scenario]",
		Short: "Replace the ledger with a demo scenario (lists scenarios without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, s := range api.Scenarios() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", s.ID, s.Description)
				}
				return nil
			}

			rt, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := api.SeedScenario(cmd.Context(), rt.store, rt.users, args[0], time.Now()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded scenario %s\n", args[0])
			return nil
		},
	}
}
