package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/srg/blgov/internal/governor"
)

var watchCmd = &cobra.Command{
	Use:   "watch <identity>...",
	Short: "Govern objects and print every state change",
	Long: `Keeps the given objects (and their parents) governed until interrupted,
printing readiness changes as they happen.

Examples:
  # Watch a device
  blgov watch /00:1A:7D:DA:71:13/AA:BB:CC:DD:EE:FF

  # Watch two characteristics, refreshing every second
  blgov watch /00:1A:7D:DA:71:13/AA:BB:CC:DD:EE:FF/180d/2a37 /00:1A:7D:DA:71:13/AA:BB:CC:DD:EE:FF/180f/2a19 --refresh-interval 1s`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ids, err := parseIdentities(args)
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true
	defer s.close()

	s.track(ids)
	printer := newStatePrinter(cmd.OutOrStdout(), s.manager.Clock())
	for _, g := range s.manager.Governors() {
		g.AddListener(printer.listenerFor(g))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %d object(s). Press Ctrl+C to stop...\n", len(ids))
	s.manager.Start(ctx)
	<-ctx.Done()

	return nil
}

// statePrinter serializes notifications from every governor onto one writer
type statePrinter struct {
	mu    sync.Mutex
	out   io.Writer
	clock clock.Clock
}

// newStatePrinter stamps lines with clk, which should be the manager's clock so
// line stamps and interaction times agree
func newStatePrinter(out io.Writer, clk clock.Clock) *statePrinter {
	return &statePrinter{out: out, clock: clk}
}

func (p *statePrinter) listenerFor(g *governor.Governor) governor.Listener {
	prefix := fmt.Sprintf("%-14s %s", g.Kind(), g.Identity())
	return &governor.ListenerFuncs{
		OnReady: func(ready bool) {
			p.printf("%s %s\n", prefix, readyLabel(ready))
		},
		OnLastInteracted: func(at time.Time) {
			p.printf("%s interacted at %s\n", prefix, at.Format(time.RFC3339Nano))
		},
	}
}

func (p *statePrinter) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s "+format, append([]any{p.clock.Now().Format(time.RFC3339)}, args...)...)
}

func readyLabel(ready bool) string {
	if ready {
		return color.GreenString("READY")
	}
	return color.RedString("NOT_READY")
}
