package cli

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	appLog "panchcal/internal/log"
	"panchcal/internal/scheduler"
	"panchcal/internal/web"
)

// Version is stamped at build time with -ldflags "-X panchcal/internal/cli.Version=...".
var Version = "0.1.0-dev"

type serveOptions struct {
	listen      string
	monthsAhead int
	noWarm      bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the grid warm-up scheduler",
		Long: `Serve the JSON API, the iCalendar feed and the printable /calendar page.
Month grids are pre-computed on the configured cron schedule.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, so, cmd)
		},
	}

	cmd.Flags().StringVar(&so.listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().IntVar(&so.monthsAhead, "months-ahead", 1, "months after the current one to pre-compute")
	cmd.Flags().BoolVar(&so.noWarm, "no-warm", false, "disable the warm-up scheduler")
	return cmd
}

func runServe(opts *RootOptions, so *serveOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	cfg := opts.cfg
	if so.listen != "" {
		cfg.Listen = so.listen
	}

	appLog.Info("panchcal starting",
		"version", Version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"rules", opts.svc.Engine().Len(),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(cfg, opts.svc)

	if !so.noWarm {
		sched, err := scheduler.New(cfg.RefreshCron, opts.svc.Location(), server,
			scheduler.WithMonthsAhead(so.monthsAhead))
		if err != nil {
			return f.Fail("scheduler", err)
		}
		sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				appLog.Warn("scheduler did not stop cleanly", "error", err)
			}
		}()
	}

	if err := server.ListenAndServe(ctx); err != nil {
		appLog.Error("HTTP server failed", err)
		return f.Fail("serve", err)
	}
	appLog.Info("panchcal exiting")
	return nil
}
