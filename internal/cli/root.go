package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"MarketSniper/internal/app"
	"MarketSniper/internal/config"
	"MarketSniper/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

func (o *RootOptions) load() (config.Config, *slog.Logger) {
	cfg := config.Load(o.ConfigPath)
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	return cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format)
}

// NewRootCommand creates the marketsniper command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "marketsniper",
		Short:         "Float sniper for the Steam Community Market",
		Long:          "Polls listing pages for configured tasks, inspects asset floats and buys qualifying listings.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config (default $MARKETSNIPER_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log level (debug|info|warn|error)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newRateCommand(opts))

	return cmd
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func newRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler, purchase and exchange-rate loops",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := opts.load()
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Close(); err != nil {
					logger.Error("close application", "error", err)
				}
			}()

			return application.Run(ctx)
		},
	}
}

func newMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := opts.load()
			if err := app.Migrate(cmd.Context(), cfg); err != nil {
				return err
			}
			logger.Info("migrations applied", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

func newRateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rate",
		Short: "Sample the exchange rate once and send it to the alert channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger := opts.load()
			cfg.ExchangeRate.Enabled = true

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			application, err := app.New(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := application.Close(); err != nil {
					logger.Error("close application", "error", err)
				}
			}()

			rate, err := application.SampleRate(ctx)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", rate.StringFixed(2))
			return err
		},
	}
}
