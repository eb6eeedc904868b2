package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"panchcal/internal/ics"
	appLog "panchcal/internal/log"
	"panchcal/internal/model"
)

// ICSResult is reported when the feed is written to a file.
type ICSResult struct {
	Path   string     `json:"path"`
	From   model.Date `json:"from"`
	To     model.Date `json:"to"`
	Events int        `json:"events"`
	Bytes  int        `json:"bytes"`
}

type icsOptions struct {
	year   int
	from   string
	to     string
	output string
}

// NewICSCommand creates the ics command.
func NewICSCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &icsOptions{}

	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Export festivals as an iCalendar file",
		Long: `Export the festivals of a year (default: the current year) or of
--from..--to as all-day iCalendar events. Without --output the feed is
written to stdout.`,
		Example:       "  panchcal ics --year 2026 -o kerala-2026.ics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runICS(rootOpts, flags, cmd)
		},
	}

	cmd.Flags().IntVar(&flags.year, "year", 0, "Gregorian year to export (default: current year)")
	cmd.Flags().StringVar(&flags.from, "from", "", "range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&flags.to, "to", "", "range end, inclusive (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "write to this file instead of stdout")
	cmd.MarkFlagsRequiredTogether("from", "to")
	cmd.MarkFlagsMutuallyExclusive("year", "from")
	return cmd
}

func runICS(opts *RootOptions, o *icsOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	svc := opts.svc

	var from, to model.Date
	var err error
	if o.from != "" {
		if from, err = svc.ParseDate(o.from); err != nil {
			return f.Fail("invalid --from", err)
		}
		if to, err = svc.ParseDate(o.to); err != nil {
			return f.Fail("invalid --to", err)
		}
	} else {
		year := o.year
		if year == 0 {
			year = svc.Today().Year
		}
		if from, err = svc.Date(year, time.January, 1); err != nil {
			return f.Fail("invalid --year", err)
		}
		if to, err = svc.Date(year, time.December, 31); err != nil {
			return f.Fail("invalid --year", err)
		}
	}

	events, err := svc.EventsBetween(from, to)
	if err != nil {
		return f.Fail("events", err)
	}

	exporter := ics.Exporter{
		ProductID:    opts.cfg.ICS.ProductID,
		CalendarName: opts.cfg.ICS.CalendarName,
		Location:     svc.Location(),
	}
	var buf bytes.Buffer
	if err := exporter.Export(&buf, events); err != nil {
		return f.Fail("ics export", err)
	}

	if o.output == "" {
		if _, err := buf.WriteTo(cmd.OutOrStdout()); err != nil {
			return f.Fail("write", err)
		}
		return nil
	}

	if dir := filepath.Dir(o.output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return f.Fail("write", err)
		}
	}
	if err := os.WriteFile(o.output, buf.Bytes(), 0o644); err != nil {
		return f.Fail("write", err)
	}
	res := ICSResult{Path: o.output, From: from, To: to, Events: len(events), Bytes: buf.Len()}
	appLog.Info("ics written", "path", res.Path, "events", res.Events, "from", from, "to", to)
	return f.Success(res, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "wrote %d event(s) %s..%s to %s\n", res.Events, res.From, res.To, res.Path)
		return err
	})
}
