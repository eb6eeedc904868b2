package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"panchcal/internal/grid"
	"panchcal/internal/model"
)

// MonthResult is the payload of the month command.
type MonthResult struct {
	grid.Grid
	Today model.Date `json:"today"`
}

// NewMonthCommand creates the month command.
func NewMonthCommand(rootOpts *RootOptions) *cobra.Command {
	var offset int

	cmd := &cobra.Command{
		Use:   "month [YEAR [MONTH]]",
		Short: "Print the 42-cell month grid",
		Long: `Print the six-week grid for a Gregorian month with the Malayalam date
of every day and the month's festivals. The default is the current month,
or January when only YEAR is given. --offset moves that many months.`,
		Example:       "  panchcal month 2026 10\n  panchcal month --offset -1 --format json",
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMonth(rootOpts, args, offset, cmd)
		},
	}

	cmd.Flags().IntVar(&offset, "offset", 0, "months to move from the selected month")
	return cmd
}

func runMonth(opts *RootOptions, args []string, offset int, cmd *cobra.Command) error {
	f := opts.formatter(cmd)

	today := opts.svc.Today()
	year, month := today.Year, today.Month
	if len(args) > 0 {
		y, err := strconv.Atoi(args[0])
		if err != nil {
			return f.Fail("invalid year", &model.InvalidDateError{Input: args[0], Reason: "year is not a number"})
		}
		year, month = y, time.January
	}
	if len(args) > 1 {
		m, err := strconv.Atoi(args[1])
		if err != nil || m < 1 || m > 12 {
			return f.Fail("invalid month", &model.InvalidDateError{Input: args[1], Reason: "month must be 1..12"})
		}
		month = time.Month(m)
	}

	g, err := opts.svc.Navigate(year, month, offset)
	if err != nil {
		return f.Fail("month", err)
	}
	res := MonthResult{Grid: g, Today: today}
	return f.Success(res, func(w io.Writer) error {
		return writeMonthText(w, res)
	})
}

// writeMonthText prints a terminal calendar: day numbers with the solar
// day beneath, '*' marking days with festivals, then the festival list.
func writeMonthText(w io.Writer, r MonthResult) error {
	current := r.CurrentMonthCells()
	first := current[0].Panchang.Solar.MonthName.English
	last := current[len(current)-1].Panchang.Solar.MonthName.English
	solar := first
	if first != last {
		solar = first + " / " + last
	}
	fmt.Fprintf(w, "%s %d  (%s)\n", r.Month, r.Year, solar)
	fmt.Fprintln(w, " Sun    Mon    Tue    Wed    Thu    Fri    Sat")

	for _, week := range r.Weeks() {
		var days, solarDays strings.Builder
		for _, c := range week {
			if !c.IsCurrentMonth {
				days.WriteString("       ")
				solarDays.WriteString("       ")
				continue
			}
			mark := " "
			if len(c.Events) > 0 {
				mark = "*"
			}
			if c.Date.SameDay(r.Today) {
				mark = ">"
			}
			fmt.Fprintf(&days, "%s%2d    ", mark, c.Date.Day)
			fmt.Fprintf(&solarDays, " %2d    ", c.Panchang.Solar.Day)
		}
		fmt.Fprintln(w, strings.TrimRight(days.String(), " "))
		fmt.Fprintln(w, strings.TrimRight(solarDays.String(), " "))
	}

	for _, c := range current {
		for _, e := range c.Events {
			if _, err := fmt.Fprintf(w, "%2d  %s [%s]\n", c.Date.Day, e.Name, e.Category); err != nil {
				return err
			}
		}
	}
	return nil
}
