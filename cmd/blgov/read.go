package main

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/srg/blgov/internal/governor"
	"github.com/srg/blgov/internal/identity"
)

var readCmd = &cobra.Command{
	Use:   "read <characteristic>",
	Short: "Read a characteristic value through its governor",
	Long: `Binds the characteristic (connecting to its device if needed) and reads
its value. A failed read releases the characteristic.

Examples:
  # Read Battery Level as raw bytes
  blgov read /00:1A:7D:DA:71:13/AA:BB:CC:DD:EE:FF/180f/2a19

  # Read as hex
  blgov read /00:1A:7D:DA:71:13/AA:BB:CC:DD:EE:FF/180d/2a37 --hex`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

var readHex bool

func init() {
	readCmd.Flags().BoolVar(&readHex, "hex", false, "Output as hex string (e.g., 'ff01'); raw bytes by default")
}

func runRead(cmd *cobra.Command, args []string) error {
	id, err := parseCharacteristic(args[0])
	if err != nil {
		return err
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	cmd.SilenceUsage = true
	defer s.close()

	g := s.track([]identity.Identity{id})[0]
	s.manager.RefreshAll()

	data, err := governor.Interact(g, "read", s.platform.Read)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", id, err)
	}
	g.UpdateLastInteracted()

	return outputData(cmd.OutOrStdout(), data, readHex)
}

func outputData(w io.Writer, data []byte, asHex bool) error {
	if asHex {
		_, err := fmt.Fprintln(w, hex.EncodeToString(data))
		return err
	}

	// Default: raw binary output
	_, err := w.Write(data)
	return err
}
