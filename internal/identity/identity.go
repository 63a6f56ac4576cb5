package identity

import (
	"fmt"
	"strings"

	"github.com/go-ble/ble"
)

// sigBaseSuffix is the tail of the Bluetooth SIG base UUID (0000xxxx-0000-1000-8000-00805f9b34fb)
const sigBaseSuffix = "00001000800000805f9b34fb"

// Identity is the stable logical address of a Bluetooth object.
//
// It is independent of any live handle: an identity keeps naming the same
// adapter, device or characteristic while the object disappears and comes
// back. The string form is
//
//	/<adapter>/<device>/<service>/<characteristic>
//
// where trailing segments are omitted for adapters and devices.
type Identity struct {
	Adapter        string
	Device         string
	Service        string
	Characteristic string
}

// ParseError describes a malformed identity string
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid identity %q: %s", e.Input, e.Reason)
}

// Parse converts "/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66/180d/2a37" into an Identity.
// Addresses are upper-cased, UUIDs are normalized (see NormalizeUUID).
func Parse(s string) (Identity, error) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "/") {
		return Identity{}, &ParseError{Input: s, Reason: "must start with '/'"}
	}

	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return Identity{}, &ParseError{Input: s, Reason: "adapter address is required"}
	}
	if len(parts) > 4 {
		return Identity{}, &ParseError{Input: s, Reason: "too many segments"}
	}
	if len(parts) == 3 {
		return Identity{}, &ParseError{Input: s, Reason: "service requires a characteristic"}
	}

	var id Identity
	for i, part := range parts {
		if part == "" {
			return Identity{}, &ParseError{Input: s, Reason: fmt.Sprintf("segment %d is empty", i+1)}
		}

		switch i {
		case 0, 1:
			addr, err := normalizeAddress(part)
			if err != nil {
				return Identity{}, &ParseError{Input: s, Reason: err.Error()}
			}
			if i == 0 {
				id.Adapter = addr
			} else {
				id.Device = addr
			}
		case 2, 3:
			uuid := NormalizeUUID(part)
			if uuid == "" {
				return Identity{}, &ParseError{Input: s, Reason: fmt.Sprintf("malformed UUID %q", part)}
			}
			if i == 2 {
				id.Service = uuid
			} else {
				id.Characteristic = uuid
			}
		}
	}

	return id, nil
}

// MustParse is like Parse but panics on error. Intended for constants and tests.
func MustParse(s string) Identity {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String renders the identity in its canonical slash-separated form
func (i Identity) String() string {
	var b strings.Builder
	for _, seg := range i.segments() {
		b.WriteByte('/')
		b.WriteString(seg)
	}
	return b.String()
}

// Depth is the number of populated levels: 1 adapter, 2 device, 3 characteristic.
func (i Identity) Depth() int {
	switch {
	case i.Characteristic != "":
		return 3
	case i.Device != "":
		return 2
	case i.Adapter != "":
		return 1
	default:
		return 0
	}
}

// IsZero reports whether no segment is set
func (i Identity) IsZero() bool {
	return i == Identity{}
}

// Parent returns the enclosing identity. A characteristic's parent is its
// device; adapters have no parent.
func (i Identity) Parent() (Identity, bool) {
	switch i.Depth() {
	case 3:
		return i.DeviceIdentity(), true
	case 2:
		return Identity{Adapter: i.Adapter}, true
	default:
		return Identity{}, false
	}
}

// DeviceIdentity strips service and characteristic segments
func (i Identity) DeviceIdentity() Identity {
	return Identity{Adapter: i.Adapter, Device: i.Device}
}

// IsDescendantOf reports whether i lies strictly below ancestor
func (i Identity) IsDescendantOf(ancestor Identity) bool {
	if i.Depth() <= ancestor.Depth() || ancestor.IsZero() {
		return false
	}
	for p, ok := i.Parent(); ok; p, ok = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

func (i Identity) segments() []string {
	segs := make([]string, 0, 4)
	for _, s := range []string{i.Adapter, i.Device, i.Service, i.Characteristic} {
		if s == "" {
			break
		}
		segs = append(segs, s)
	}
	return segs
}

// normalizeAddress validates a 48-bit MAC address ("aa:bb:cc:dd:ee:ff") and upper-cases it.
// CoreBluetooth peripheral identifiers are UUIDs and are accepted as-is (lower-cased).
func normalizeAddress(s string) (string, error) {
	if isMAC(s) {
		return strings.ToUpper(s), nil
	}
	if _, err := ble.Parse(s); err == nil && len(strings.ReplaceAll(s, "-", "")) == 32 {
		return strings.ToLower(s), nil
	}
	return "", fmt.Errorf("malformed address %q", s)
}

func isMAC(s string) bool {
	octets := strings.Split(s, ":")
	if len(octets) != 6 {
		return false
	}
	for _, o := range octets {
		if len(o) != 2 || !isHex(o) {
			return false
		}
	}
	return true
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeUUID converts a UUID string to the internal form: lowercase, no dashes,
// no 0x prefix. SIG base UUIDs are shortened to their 16-bit form.
// Returns "" if the input is not a 16, 32 or 128-bit UUID.
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.TrimSpace(uuid))
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, "-", "")

	switch len(s) {
	case 4, 8, 32:
	default:
		return ""
	}
	if _, err := ble.Parse(s); err != nil {
		return ""
	}

	if len(s) == 32 && strings.HasPrefix(s, "0000") && strings.HasSuffix(s, sigBaseSuffix) {
		return s[4:8]
	}
	return s
}
