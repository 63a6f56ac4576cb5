//go:build !darwin && !linux

package goble

import "github.com/go-ble/ble"

// DeviceFactory creates the local ble.Device (can be overridden in tests)
var DeviceFactory = func() (ble.Device, error) {
	return nil, ErrUnsupported
}
