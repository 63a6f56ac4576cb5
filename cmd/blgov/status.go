package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blgov/internal/governor"
)

var statusCmd = &cobra.Command{
	Use:   "status <identity>...",
	Short: "Refresh objects once and print their state",
	Long: `Resolves the given objects (and their parents) once and prints a tree of
their readiness.

Example:
  blgov status /00:1A:7D:DA:71:13/AA:BB:CC:DD:EE:FF/180d/2a37`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ids, err := parseIdentities(args)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true
	defer s.close()

	s.track(ids)
	s.manager.RefreshAll()

	return renderStatus(cmd.OutOrStdout(), s.manager.Governors())
}

// renderStatus prints one line per governor, indented by kind
func renderStatus(w io.Writer, govs []*governor.Governor) error {
	row := func(indent int) func(*governor.Governor) error {
		return func(g *governor.Governor) error {
			last := "-"
			if at, ok := g.LastInteracted(); ok {
				last = at.Format(time.RFC3339)
			}
			name := strings.Repeat("  ", indent) + g.Identity().String()
			_, err := fmt.Fprintf(w, "%-72s %-9s %s\n", name, readyLabel(g.IsReady()), last)
			return err
		}
	}

	header := color.New(color.Bold).Sprintf("%-72s %-9s %s", "IDENTITY", "STATE", "LAST INTERACTED")
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	return governor.Walk(govs, governor.VisitorFuncs{
		Adapter:        row(0),
		Device:         row(1),
		Characteristic: row(2),
	})
}
