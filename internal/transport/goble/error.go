package goble

import (
	"errors"
	"fmt"
	"strings"
)

// Transport errors. Hooks return them so that the governor drops the object
// and retries on the next refresh.
var (
	ErrNotConnected     = errors.New("device not connected")
	ErrBluetoothOff     = errors.New("bluetooth is turned off")
	ErrUnsupported      = errors.New("unsupported platform")
	ErrUnexpectedObject = errors.New("unexpected object type")
)

// NormalizeError maps known go-ble error strings to the sentinel errors above.
// The original error is kept in the chain for context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case containsIgnoreCase(msg, "is Bluetooth turned on"):
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "bluetooth is turned off"):
		return fmt.Errorf("%w: %v", ErrBluetoothOff, err)
	case containsIgnoreCase(msg, "device not connected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	case containsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", ErrNotConnected, err)
	default:
		return err
	}
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func unexpected(obj interface{}, want string) error {
	return fmt.Errorf("%w: got %T, want %s", ErrUnexpectedObject, obj, want)
}
