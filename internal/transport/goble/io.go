package goble

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-ble/ble"
	"github.com/srg/blgov/internal/governor"
)

const (
	// DefaultBLEWriteChunkSize is the maximum number of bytes to write in a single BLE operation.
	// The minimum ATT MTU is 23 bytes (3 bytes header + 20 bytes payload).
	DefaultBLEWriteChunkSize = 20

	// DefaultBLEWriteDelay is the delay between consecutive write chunks.
	DefaultBLEWriteDelay = 10 * time.Millisecond

	// DefaultReadTimeout bounds a single characteristic read
	DefaultReadTimeout = 5 * time.Second
)

// Read reads the current value of a characteristic. Call it from inside
// governor.Interact so a failed read drops the characteristic.
func Read(obj governor.Object) ([]byte, error) {
	return ReadWithTimeout(obj, DefaultReadTimeout)
}

// ReadWithTimeout reads with an explicit timeout to avoid blocking on an unresponsive peer
func ReadWithTimeout(obj governor.Object, timeout time.Duration) ([]byte, error) {
	c, ok := obj.(*Characteristic)
	if !ok {
		return nil, unexpected(obj, "*goble.Characteristic")
	}
	if c.char.Property&ble.CharRead == 0 {
		return nil, fmt.Errorf("characteristic %s is not readable", c.id)
	}

	type readResult struct {
		data []byte
		err  error
	}
	resultCh := make(chan readResult, 1)

	go func() {
		data, err := c.device.client.ReadCharacteristic(c.char)
		resultCh <- readResult{data: data, err: err}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return nil, fmt.Errorf("failed to read characteristic %s: %w", c.id, NormalizeError(result.err))
		}
		return result.data, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout reading characteristic %s after %v", c.id, timeout)
	}
}

// Write writes data to a characteristic in DefaultBLEWriteChunkSize pieces.
// Writes to one device are serialized.
func Write(obj governor.Object, data []byte, withResponse bool) error {
	c, ok := obj.(*Characteristic)
	if !ok {
		return unexpected(obj, "*goble.Characteristic")
	}

	want := ble.CharWriteNR
	if withResponse {
		want = ble.CharWrite
	}
	if c.char.Property&want == 0 {
		return fmt.Errorf("characteristic %s does not support %s", c.id, PropertyNames(want))
	}

	c.device.writeMu.Lock()
	defer c.device.writeMu.Unlock()

	for len(data) > 0 {
		n := len(data)
		if n > DefaultBLEWriteChunkSize {
			n = DefaultBLEWriteChunkSize
		}
		if err := c.device.client.WriteCharacteristic(c.char, data[:n], !withResponse); err != nil {
			return fmt.Errorf("failed to write to characteristic %s: %w", c.id, NormalizeError(err))
		}
		data = data[n:]
		if len(data) > 0 {
			time.Sleep(DefaultBLEWriteDelay)
		}
	}
	return nil
}

var propertyNames = []struct {
	bit  ble.Property
	name string
}{
	{ble.CharBroadcast, "Broadcast"},
	{ble.CharRead, "Read"},
	{ble.CharWriteNR, "WriteWithoutResponse"},
	{ble.CharWrite, "Write"},
	{ble.CharNotify, "Notify"},
	{ble.CharIndicate, "Indicate"},
	{ble.CharSignedWrite, "AuthenticatedSignedWrites"},
	{ble.CharExtended, "ExtendedProperties"},
}

// PropertyNames renders property bits as a comma-separated list
func PropertyNames(p ble.Property) string {
	var names []string
	for _, pn := range propertyNames {
		if p&pn.bit != 0 {
			names = append(names, pn.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
