package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	appLog "festcal/internal/log"
	"festcal/internal/web"
)

const refreshTimeout = 2 * time.Minute

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with scheduled programme refresh",
		Long: `Load the programme, migrate legacy favorites, then serve the API and
day grids. The programme is refreshed on the configured cron schedule
until SIGINT or SIGTERM.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts, listen)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, listen string) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(); err != nil {
			appLog.Error("failed to close favorites store", err)
		}
	}()

	if listen != "" {
		a.cfg.Listen = listen
	}

	appLog.Info("festcal starting", "pid", os.Getpid(), "listen", a.cfg.Listen)

	// Favorites must be migrated before the first request reads them.
	initCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
	if _, err := a.refresh(initCtx); err != nil {
		appLog.Error("initial programme refresh failed; serving without programme", err)
	}
	cancel()

	c := cron.New(cron.WithLocation(a.loc))
	if _, err := c.AddFunc(a.cfg.RefreshCron, func() {
		rctx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()
		if _, err := a.refresh(rctx); err != nil {
			appLog.Error("scheduled programme refresh failed", err)
		}
	}); err != nil {
		return WrapExitError(ExitCommandError, "invalid refresh schedule", err)
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	srv := web.NewServer(web.Deps{
		Config:    a.cfg,
		Schedule:  a.schedule,
		Favorites: a.favorites,
		Flags:     a.flags,
	})
	if err := srv.Serve(ctx); err != nil {
		return WrapExitError(ExitFailure, "http server failed", err)
	}
	appLog.Info("festcal exiting")
	return nil
}
