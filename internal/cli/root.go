// Package cli implements the panchcal command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"panchcal/internal/calendar"
	"panchcal/internal/config"
	"panchcal/internal/ics"
	appLog "panchcal/internal/log"
	"panchcal/internal/rules"
)

// RootOptions holds global flags and the state PersistentPreRunE builds
// from them.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	EnvFile    string

	cfg *config.Config
	svc *calendar.Service
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "panchcal",
		Short: "Malayalam Panchang calendar",
		Long: `panchcal computes the Malayalam (Kollavarsham) solar date, tithi and
nakshatra for any day, evaluates the Kerala festival table and serves
month grids, JSON APIs and an iCalendar feed.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				err := NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
				return opts.formatter(cmd).Fail("bad flags", err)
			}
			if err := opts.setup(cmd.Context()); err != nil {
				return opts.formatter(cmd).Fail("startup failed", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logging)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", config.DefaultPath, "path to config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file read before the config")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewPanchangCommand(opts))
	cmd.AddCommand(NewEventsCommand(opts))
	cmd.AddCommand(NewMonthCommand(opts))
	cmd.AddCommand(NewRulesCommand(opts))
	cmd.AddCommand(NewICSCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))

	return cmd
}

// setup loads the environment and config, sets the log level and builds
// the calendar service.
func (o *RootOptions) setup(ctx context.Context) error {
	if err := config.LoadDotEnv(o.EnvFile); err != nil {
		return WrapExitError(ExitCommandError, "env file", err)
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", o.ConfigPath)
		return WrapExitError(ExitCommandError, "config", err)
	}

	level, err := appLog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return WrapExitError(ExitCommandError, "config", err)
	}
	if o.Verbose {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	loc, err := cfg.Location()
	if err != nil {
		return WrapExitError(ExitCommandError, "config", err)
	}
	engine, err := buildEngine(ctx, cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "rules", err)
	}

	o.cfg = cfg
	o.svc = calendar.New(calendar.WithEngine(engine), calendar.WithLocation(loc))
	appLog.Debug("effective config",
		"config_path", o.ConfigPath,
		"timezone", cfg.Timezone,
		"rules", engine.Len(),
		"ics_imports", len(cfg.ICS.Import),
	)
	return nil
}

// buildEngine extends the built-in table with configured holidays and
// imported .ics files or feeds. Imported events whose predicate duplicates
// an existing rule are skipped.
func buildEngine(ctx context.Context, cfg *config.Config) (*rules.Engine, error) {
	engine, err := rules.Default().With(cfg.HolidayRules()...)
	if err != nil {
		return nil, err
	}
	var fetcher *ics.Fetcher
	for i, path := range cfg.ICS.Import {
		var imported []rules.Rule
		if ics.IsRemote(path) {
			if fetcher == nil {
				fetcher = ics.NewFetcher(cfg.ICS.CacheDir, nil)
			}
			imported, err = fetcher.Holidays(ctx, path)
		} else {
			imported, err = ics.ReadHolidaysFile(path)
		}
		if err != nil {
			return nil, err
		}
		fresh := make([]rules.Rule, 0, len(imported))
		for _, r := range imported {
			if engine.Has(r.Match) || slices.ContainsFunc(fresh, func(f rules.Rule) bool {
				return f.Match.Key() == r.Match.Key()
			}) {
				appLog.Warn("skipping duplicate imported holiday", "import", i+1, "name", r.Name, "predicate", r.Match.Key())
				continue
			}
			fresh = append(fresh, r)
		}
		if engine, err = engine.With(fresh...); err != nil {
			return nil, fmt.Errorf("import %d: %w", i+1, err)
		}
		appLog.Info("holidays imported", "import", i+1, "rules", len(fresh))
	}
	return engine, nil
}

// Execute runs the root command and returns the process exit code.
// Errors the commands already reported are not printed again.
func Execute() int {
	cmd := NewRootCommand()
	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return ExitCommandError
	}
	return exitErr.Code
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
