package goble

import (
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/go-ble/ble"
	"github.com/srg/blgov/internal/identity"
)

// Adapter is the live object behind an adapter identity: the local ble.Device
type Adapter struct {
	id  identity.Identity
	dev ble.Device
}

func (a *Adapter) Identity() identity.Identity { return a.id }

// BLEDevice exposes the underlying go-ble device
func (a *Adapter) BLEDevice() ble.Device { return a.dev }

// Device is the live object behind a device identity: a connected ble.Client
type Device struct {
	id     identity.Identity
	client ble.Client
	chars  *hashmap.Map[string, *Characteristic]

	writeMu sync.Mutex
}

func newDevice(id identity.Identity, client ble.Client) *Device {
	return &Device{
		id:     id,
		client: client,
		chars:  hashmap.New[string, *Characteristic](),
	}
}

func (d *Device) Identity() identity.Identity { return d.id }

// Client exposes the underlying go-ble client
func (d *Device) Client() ble.Client { return d.client }

// Connected reports whether the client is still up. Clients that cannot
// report disconnection are assumed connected until an operation fails.
func (d *Device) Connected() bool {
	dc, ok := d.client.(interface{ Disconnected() <-chan struct{} })
	if !ok {
		return true
	}
	select {
	case <-dc.Disconnected():
		return false
	default:
		return true
	}
}

// Characteristic is the live object behind a characteristic identity
type Characteristic struct {
	id     identity.Identity
	device *Device
	char   *ble.Characteristic
}

func (c *Characteristic) Identity() identity.Identity { return c.id }

// BLECharacteristic exposes the underlying go-ble characteristic
func (c *Characteristic) BLECharacteristic() *ble.Characteristic { return c.char }

// Property returns the GATT property bits
func (c *Characteristic) Property() ble.Property { return c.char.Property }

// findCharacteristic searches a discovered profile for the service/characteristic pair of id
func findCharacteristic(profile *ble.Profile, id identity.Identity) *ble.Characteristic {
	if profile == nil {
		return nil
	}
	for _, svc := range profile.Services {
		if identity.NormalizeUUID(svc.UUID.String()) != id.Service {
			continue
		}
		for _, char := range svc.Characteristics {
			if identity.NormalizeUUID(char.UUID.String()) == id.Characteristic {
				return char
			}
		}
	}
	return nil
}
