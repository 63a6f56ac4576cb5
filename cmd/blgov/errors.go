package main

import (
	"errors"
	"fmt"

	"github.com/srg/blgov/internal/governor"
	"github.com/srg/blgov/internal/identity"
	"github.com/srg/blgov/internal/transport/goble"
)

// FormatUserError turns internal errors into a message for the terminal
func FormatUserError(err error) string {
	var (
		parseErr    *identity.ParseError
		interactErr *governor.InteractionError
	)

	switch {
	case errors.Is(err, goble.ErrBluetoothOff):
		return "Bluetooth is turned off - please enable Bluetooth and retry"
	case errors.Is(err, goble.ErrUnsupported):
		return "Bluetooth is not supported on this platform"
	case errors.As(err, &interactErr) && interactErr.Reason == governor.ReasonNotReady:
		return fmt.Sprintf("%s is not available - check that the device is powered on and in range", interactErr.Identity)
	case errors.Is(err, goble.ErrNotConnected):
		return fmt.Sprintf("connection lost: %v", err)
	case errors.As(err, &parseErr):
		return fmt.Sprintf("invalid identity %q: %s", parseErr.Input, parseErr.Reason)
	default:
		return err.Error()
	}
}
