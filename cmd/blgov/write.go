package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/srg/blgov/internal/governor"
	"github.com/srg/blgov/internal/identity"
)

var writeCmd = &cobra.Command{
	Use:   "write <characteristic> <data>",
	Short: "Write a characteristic value through its governor",
	Long: `Binds the characteristic (connecting to its device if needed) and writes
data to it. A failed write releases the characteristic.

Examples:
  # Write string data
  blgov write /00:1A:7D:DA:71:13/AA:BB:CC:DD:EE:FF/ffe0/ffe1 "hello"

  # Write hex data without response
  blgov write /00:1A:7D:DA:71:13/AA:BB:CC:DD:EE:FF/ffe0/ffe1 0100 --hex --without-response`,
	Args: cobra.ExactArgs(2),
	RunE: runWrite,
}

var (
	writeHex        bool
	writeNoResponse bool
)

func init() {
	writeCmd.Flags().BoolVar(&writeHex, "hex", false, "Parse input as hex string (e.g., 'FF01'); raw bytes by default")
	writeCmd.Flags().BoolVar(&writeNoResponse, "without-response", false, "Write without response (faster, no ACK)")
}

func runWrite(cmd *cobra.Command, args []string) error {
	id, err := parseCharacteristic(args[0])
	if err != nil {
		return err
	}
	data, err := parseWriteData(args[1], writeHex)
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

	err = governor.Do(g, "write", func(obj governor.Object) error {
		return s.platform.Write(obj, data, !writeNoResponse)
	})
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", id, err)
	}
	g.UpdateLastInteracted()

	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d byte(s) to %s\n", len(data), id)
	return nil
}

func parseWriteData(dataStr string, asHex bool) ([]byte, error) {
	if !asHex {
		return []byte(dataStr), nil
	}

	// Remove spaces and common separators
	cleaned := strings.ReplaceAll(dataStr, " ", "")
	cleaned = strings.ReplaceAll(cleaned, ":", "")
	cleaned = strings.ReplaceAll(cleaned, "-", "")
	cleaned = strings.ReplaceAll(cleaned, "0x", "")

	data, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data: %w", err)
	}
	return data, nil
}
