// Package goble is the go-ble backed platform layer: it turns identities into
// live go-ble objects and supplies the per-kind governor hooks for them.
package goble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"
	"github.com/srg/blgov/internal/governor"
	"github.com/srg/blgov/internal/identity"
	"go.uber.org/multierr"
)

// DefaultConnectTimeout bounds a single dial attempt
const DefaultConnectTimeout = 30 * time.Second

// Transport resolves identities against one local Bluetooth device.
//
// The platform exposes a single radio, so every adapter identity resolves to
// the same ble.Device. Device identities dial on demand; characteristic
// identities never dial and only resolve while their device is connected and
// its profile has been discovered.
type Transport struct {
	logger         *logrus.Logger
	connectTimeout time.Duration

	devMu    sync.Mutex
	dev      ble.Device
	adapters *hashmap.Map[string, *Adapter]
	devices  *hashmap.Map[string, *Device]

	dialMu sync.Mutex
}

// New creates a transport. A zero connectTimeout means DefaultConnectTimeout.
func New(logger *logrus.Logger, connectTimeout time.Duration) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	return &Transport{
		logger:         logger,
		connectTimeout: connectTimeout,
		adapters:       hashmap.New[string, *Adapter](),
		devices:        hashmap.New[string, *Device](),
	}
}

// Resolve implements manager.Transport
func (t *Transport) Resolve(id identity.Identity) (governor.Object, bool) {
	var (
		obj governor.Object
		err error
	)

	switch governor.KindOf(id) {
	case governor.KindAdapter:
		var a *Adapter
		if a, err = t.resolveAdapter(id); a != nil {
			obj = a
		}
	case governor.KindDevice:
		var d *Device
		if d, err = t.resolveDevice(id); d != nil {
			obj = d
		}
	case governor.KindCharacteristic:
		var c *Characteristic
		if c, err = t.resolveCharacteristic(id); c != nil {
			obj = c
		}
	}

	if err != nil {
		t.logger.WithFields(logrus.Fields{
			"identity": id.String(),
			"error":    err,
		}).Debug("Object not available")
		return nil, false
	}
	return obj, obj != nil
}

// Hooks implements manager.Transport
func (t *Transport) Hooks(kind governor.Kind) governor.Hooks {
	switch kind {
	case governor.KindDevice:
		return &deviceHooks{t: t}
	case governor.KindCharacteristic:
		return &characteristicHooks{t: t}
	default:
		return &adapterHooks{t: t}
	}
}

func (t *Transport) bleDevice() (ble.Device, error) {
	t.devMu.Lock()
	defer t.devMu.Unlock()

	if t.dev != nil {
		return t.dev, nil
	}

	dev, err := DeviceFactory()
	if err != nil {
		return nil, NormalizeError(err)
	}
	t.dev = dev
	t.logger.Debug("Local BLE device created")
	return dev, nil
}

// stopDevice shuts the radio down and forgets every object built on it
func (t *Transport) stopDevice() error {
	t.devMu.Lock()
	dev := t.dev
	t.dev = nil
	t.devMu.Unlock()

	t.adapters.Range(func(key string, _ *Adapter) bool {
		t.adapters.Del(key)
		return true
	})
	t.devices.Range(func(key string, _ *Device) bool {
		t.devices.Del(key)
		return true
	})

	if dev == nil {
		return nil
	}
	return NormalizeError(dev.Stop())
}

func (t *Transport) resolveAdapter(id identity.Identity) (*Adapter, error) {
	dev, err := t.bleDevice()
	if err != nil {
		return nil, err
	}

	if a, ok := t.adapters.Get(id.String()); ok && a.dev == dev {
		return a, nil
	}
	a, _ := t.adapters.GetOrInsert(id.String(), &Adapter{id: id, dev: dev})
	return a, nil
}

func (t *Transport) resolveDevice(id identity.Identity) (*Device, error) {
	// A dropped connection is handed back as is: the refresh hook rejects it and
	// the release hook forgets it, so the next resolve dials again and the
	// device governor runs Init (profile discovery) on the new client.
	key := id.String()
	if d, ok := t.devices.Get(key); ok {
		return d, nil
	}

	dev, err := t.bleDevice()
	if err != nil {
		return nil, err
	}

	t.dialMu.Lock()
	defer t.dialMu.Unlock()

	// Another governor may have dialed while we waited
	if d, ok := t.devices.Get(key); ok {
		return d, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.connectTimeout)
	defer cancel()

	t.logger.WithFields(logrus.Fields{
		"address": id.Device,
		"timeout": t.connectTimeout,
	}).Debug("Dialing BLE device...")

	client, err := dev.Dial(ctx, ble.NewAddr(id.Device))
	if err != nil {
		return nil, NormalizeError(err)
	}

	d := newDevice(id, client)
	t.devices.Set(key, d)
	t.logger.WithField("address", id.Device).Info("BLE device connected")
	return d, nil
}

func (t *Transport) resolveCharacteristic(id identity.Identity) (*Characteristic, error) {
	d, ok := t.devices.Get(id.DeviceIdentity().String())
	if !ok || !d.Connected() {
		return nil, ErrNotConnected
	}

	key := id.String()
	if c, ok := d.chars.Get(key); ok {
		return c, nil
	}

	bc := findCharacteristic(d.client.Profile(), id)
	if bc == nil {
		return nil, nil
	}

	c, _ := d.chars.GetOrInsert(key, &Characteristic{id: id, device: d, char: bc})
	return c, nil
}

// Close cancels every open connection and stops the local device
func (t *Transport) Close() error {
	var err error
	t.devices.Range(func(key string, d *Device) bool {
		t.devices.Del(key)
		if cerr := d.client.CancelConnection(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("disconnecting %s: %w", d.id.Device, NormalizeError(cerr)))
		}
		return true
	})
	return multierr.Append(err, t.stopDevice())
}

// forgetDevice drops d from the cache unless it was already replaced
func (t *Transport) forgetDevice(d *Device) {
	key := d.id.String()
	if current, ok := t.devices.Get(key); ok && current == d {
		t.devices.Del(key)
	}
}
