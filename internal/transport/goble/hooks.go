package goble

import (
	"github.com/sirupsen/logrus"
	"github.com/srg/blgov/internal/governor"
)

type adapterHooks struct {
	t *Transport
}

func (h *adapterHooks) Init(obj governor.Object) error {
	if _, ok := obj.(*Adapter); !ok {
		return unexpected(obj, "*goble.Adapter")
	}
	h.t.logger.WithField("identity", obj.Identity().String()).Debug("Adapter bound")
	return nil
}

func (h *adapterHooks) Refresh(obj governor.Object) error {
	if _, ok := obj.(*Adapter); !ok {
		return unexpected(obj, "*goble.Adapter")
	}
	return nil
}

// Release stops the radio; devices and characteristics are released by the cascade
func (h *adapterHooks) Release(governor.Object) error {
	return h.t.stopDevice()
}

type deviceHooks struct {
	t *Transport
}

// Init discovers the GATT profile so characteristics can be resolved
func (h *deviceHooks) Init(obj governor.Object) error {
	d, ok := obj.(*Device)
	if !ok {
		return unexpected(obj, "*goble.Device")
	}

	profile, err := d.client.DiscoverProfile(true)
	if err != nil {
		return NormalizeError(err)
	}

	h.t.logger.WithFields(logrus.Fields{
		"address":  d.id.Device,
		"services": len(profile.Services),
	}).Debug("Profile discovered successfully")
	return nil
}

func (h *deviceHooks) Refresh(obj governor.Object) error {
	d, ok := obj.(*Device)
	if !ok {
		return unexpected(obj, "*goble.Device")
	}
	if !d.Connected() {
		return ErrNotConnected
	}
	return nil
}

func (h *deviceHooks) Release(obj governor.Object) error {
	d, ok := obj.(*Device)
	if !ok {
		return unexpected(obj, "*goble.Device")
	}

	h.t.forgetDevice(d)
	if err := d.client.CancelConnection(); err != nil {
		return NormalizeError(err)
	}
	h.t.logger.WithField("address", d.id.Device).Info("BLE device disconnected")
	return nil
}

type characteristicHooks struct {
	t *Transport
}

func (h *characteristicHooks) Init(obj governor.Object) error {
	c, ok := obj.(*Characteristic)
	if !ok {
		return unexpected(obj, "*goble.Characteristic")
	}

	h.t.logger.WithFields(logrus.Fields{
		"identity": c.id.String(),
		"property": int(c.char.Property),
	}).Debug("Characteristic bound")
	return nil
}

func (h *characteristicHooks) Refresh(obj governor.Object) error {
	c, ok := obj.(*Characteristic)
	if !ok {
		return unexpected(obj, "*goble.Characteristic")
	}
	if !c.device.Connected() {
		return ErrNotConnected
	}
	return nil
}

// Release drops the cached lookup so the next bind re-reads the profile
func (h *characteristicHooks) Release(obj governor.Object) error {
	c, ok := obj.(*Characteristic)
	if !ok {
		return unexpected(obj, "*goble.Characteristic")
	}
	c.device.chars.Del(c.id.String())
	return nil
}
