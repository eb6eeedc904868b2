package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"panchcal/internal/model"
)

// DayEvents is the events payload for a single date.
type DayEvents struct {
	Date    model.Date         `json:"date"`
	Primary *model.Occurrence  `json:"primary"`
	Events  []model.Occurrence `json:"events"`
}

// RangeEvents is the events payload for an inclusive date range.
type RangeEvents struct {
	From   model.Date              `json:"from"`
	To     model.Date              `json:"to"`
	Events []model.DatedOccurrence `json:"events"`
}

type eventsOptions struct {
	from string
	to   string
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	eo := &eventsOptions{}

	cmd := &cobra.Command{
		Use:   "events [YYYY-MM-DD]",
		Short: "List festivals on a day or across a range",
		Long: `List the festivals falling on a day (default: today), or on every day
between --from and --to inclusive.`,
		Example:       "  panchcal events 2025-10-02\n  panchcal events --from 2025-12-01 --to 2026-01-31",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvents(rootOpts, eo, args, cmd)
		},
	}

	cmd.Flags().StringVar(&eo.from, "from", "", "range start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&eo.to, "to", "", "range end, inclusive (YYYY-MM-DD)")
	cmd.MarkFlagsRequiredTogether("from", "to")
	return cmd
}

func runEvents(opts *RootOptions, eo *eventsOptions, args []string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	if eo.from != "" {
		if len(args) > 0 {
			return f.Fail("bad arguments", NewExitError(ExitCommandError, "a date argument cannot be combined with --from/--to"))
		}
		from, err := opts.svc.ParseDate(eo.from)
		if err != nil {
			return f.Fail("invalid --from", err)
		}
		to, err := opts.svc.ParseDate(eo.to)
		if err != nil {
			return f.Fail("invalid --to", err)
		}
		events, err := opts.svc.EventsBetween(from, to)
		if err != nil {
			return f.Fail("events", err)
		}
		if events == nil {
			events = []model.DatedOccurrence{}
		}
		res := RangeEvents{From: from, To: to, Events: events}
		return f.Success(res, func(w io.Writer) error {
			for _, e := range res.Events {
				if _, err := fmt.Fprintf(w, "%s  %-3s  %s [%s]\n", e.Date, e.Date.Weekday().String()[:3], e.Name, e.Category); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintf(w, "%d event(s) between %s and %s\n", len(res.Events), res.From, res.To)
			return err
		})
	}

	d, err := opts.svc.ParseDate(firstArg(args))
	if err != nil {
		return f.Fail("invalid date", err)
	}
	events, err := opts.svc.EventsForDate(d)
	if err != nil {
		return f.Fail("events", err)
	}
	res := DayEvents{Date: d, Events: events}
	if res.Events == nil {
		res.Events = []model.Occurrence{}
	}
	if len(res.Events) > 0 {
		res.Primary = &res.Events[0]
	}
	return f.Success(res, func(w io.Writer) error {
		if len(res.Events) == 0 {
			_, err := fmt.Fprintf(w, "%s: no events\n", res.Date)
			return err
		}
		for i, e := range res.Events {
			marker := " "
			if i == 0 {
				marker = "*"
			}
			if _, err := fmt.Fprintf(w, "%s %s  %s [%s]\n", marker, res.Date, e.Name, e.Category); err != nil {
				return err
			}
		}
		return nil
	})
}
