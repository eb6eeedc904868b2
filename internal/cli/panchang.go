package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"panchcal/internal/model"
	"panchcal/internal/panchang"
)

// PanchangResult is the payload of the panchang command.
type PanchangResult struct {
	Date      model.Date          `json:"date"`
	Panchang  panchang.Snapshot   `json:"panchang"`
	Positions *panchang.Positions `json:"positions,omitempty"`
	Events    []model.Occurrence  `json:"events"`
}

// NewPanchangCommand creates the panchang command.
func NewPanchangCommand(rootOpts *RootOptions) *cobra.Command {
	var positions bool

	cmd := &cobra.Command{
		Use:   "panchang [YYYY-MM-DD]",
		Short: "Show the Panchang for a day",
		Long: `Show the Malayalam solar date, tithi, nakshatra and festivals for a day
(default: today in the configured timezone).`,
		Example:       "  panchcal panchang 2025-09-06\n  panchcal panchang --positions --format json",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanchang(rootOpts, args, positions, cmd)
		},
	}

	cmd.Flags().BoolVar(&positions, "positions", false, "include sidereal sun and moon longitudes")
	return cmd
}

func runPanchang(opts *RootOptions, args []string, withPositions bool, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	d, err := opts.svc.ParseDate(firstArg(args))
	if err != nil {
		return f.Fail("invalid date", err)
	}
	p, err := opts.svc.ComputePanchang(d)
	if err != nil {
		return f.Fail("panchang", err)
	}
	events := opts.svc.EventsFor(d, p)

	res := PanchangResult{Date: d, Panchang: p, Events: events}
	if res.Events == nil {
		res.Events = []model.Occurrence{}
	}
	if withPositions || opts.Verbose {
		pos, err := panchang.PositionsOf(d)
		if err != nil {
			return f.Fail("positions", err)
		}
		res.Positions = &pos
	}
	f.VerboseLog("computed %s in %s", d, opts.svc.Location())

	return f.Success(res, func(w io.Writer) error {
		return writePanchangText(w, res)
	})
}

func writePanchangText(w io.Writer, r PanchangResult) error {
	p := r.Panchang
	boundary := ""
	if p.Solar.NearBoundary {
		boundary = "  (near sankranti)"
	}
	fmt.Fprintf(w, "Date:       %s (%s)\n", r.Date, r.Date.Weekday())
	fmt.Fprintf(w, "Solar:      %s %d  %s%s\n", p.Solar.MonthName.English, p.Solar.Day, p.Solar.MonthName.Native, boundary)
	fmt.Fprintf(w, "Nakshatra:  %s  %s\n", p.Nakshatra.Name.English, p.Nakshatra.Name.Native)
	fmt.Fprintf(w, "Tithi:      %s  %s (%s)\n", p.Tithi.Name.English, p.Tithi.Name.Native, p.Tithi.Paksha)
	if r.Positions != nil {
		fmt.Fprintf(w, "Sun:        %.3f°\n", r.Positions.SunSidereal)
		fmt.Fprintf(w, "Moon:       %.3f°\n", r.Positions.MoonSidereal)
		fmt.Fprintf(w, "Ayanamsa:   %.4f°\n", r.Positions.Ayanamsa)
	}
	if len(r.Events) == 0 {
		_, err := fmt.Fprintln(w, "Events:     -")
		return err
	}
	for i, e := range r.Events {
		label := "Events:"
		if i > 0 {
			label = ""
		}
		if _, err := fmt.Fprintf(w, "%-11s %s [%s]\n", label, e.Name, e.Category); err != nil {
			return err
		}
	}
	return nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
