package cli

import (
	"io"

	"github.com/spf13/cobra"

	"panchcal/internal/model"
)

// RuleInfo describes one entry of the active rule table.
type RuleInfo struct {
	Position    int            `json:"position"`
	Name        string         `json:"name"`
	Category    model.Category `json:"category"`
	Group       string         `json:"group"`
	Predicate   string         `json:"predicate"`
	Description string         `json:"description,omitempty"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "rules",
		Short:         "List the festival rule table in evaluation order",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRules(rootOpts, cmd)
		},
	}
}

func runRules(opts *RootOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	engine := opts.svc.Engine()

	table := engine.Rules()
	out := make([]RuleInfo, 0, len(table))
	for i, r := range table {
		out = append(out, RuleInfo{
			Position:    i + 1,
			Name:        r.Name,
			Category:    r.Category,
			Group:       r.Match.Group().String(),
			Predicate:   r.Match.Key(),
			Description: r.Description,
		})
	}
	if err := f.Success(out, func(w io.Writer) error { return engine.Describe(w) }); err != nil {
		return f.Fail("rules", err)
	}
	return nil
}
