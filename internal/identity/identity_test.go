package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Identity
		str      string
	}{
		{
			name:     "adapter only",
			input:    "/11:22:33:44:55:66",
			expected: Identity{Adapter: "11:22:33:44:55:66"},
			str:      "/11:22:33:44:55:66",
		},
		{
			name:     "device with lowercase addresses",
			input:    "/aa:bb:cc:dd:ee:ff/11:22:33:44:55:6a",
			expected: Identity{Adapter: "AA:BB:CC:DD:EE:FF", Device: "11:22:33:44:55:6A"},
			str:      "/AA:BB:CC:DD:EE:FF/11:22:33:44:55:6A",
		},
		{
			name:  "characteristic with SIG base UUIDs",
			input: "/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66/0000180D-0000-1000-8000-00805F9B34FB/0x2A37",
			expected: Identity{
				Adapter:        "AA:BB:CC:DD:EE:FF",
				Device:         "11:22:33:44:55:66",
				Service:        "180d",
				Characteristic: "2a37",
			},
			str: "/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66/180d/2a37",
		},
		{
			name:  "custom 128-bit UUIDs keep full form",
			input: "/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66/6E400001-B5A3-F393-E0A9-E50E24DCCA9E/6e400003-b5a3-f393-e0a9-e50e24dcca9e/",
			expected: Identity{
				Adapter:        "AA:BB:CC:DD:EE:FF",
				Device:         "11:22:33:44:55:66",
				Service:        "6e400001b5a3f393e0a9e50e24dcca9e",
				Characteristic: "6e400003b5a3f393e0a9e50e24dcca9e",
			},
			str: "/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66/6e400001b5a3f393e0a9e50e24dcca9e/6e400003b5a3f393e0a9e50e24dcca9e",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, id)
			assert.Equal(t, tt.str, id.String())
		})
	}
}

func TestParse_PeripheralUUIDDevice(t *testing.T) {
	id, err := Parse("/AA:BB:CC:DD:EE:FF/5F1C2B3A-0000-4000-8000-00AABBCCDDEE")
	require.NoError(t, err)
	assert.Equal(t, "5f1c2b3a-0000-4000-8000-00aabbccddee", id.Device)
	assert.Equal(t, 2, id.Depth())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"missing leading slash", "AA:BB:CC:DD:EE:FF", "must start with '/'"},
		{"empty", "/", "adapter address is required"},
		{"service without characteristic", "/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66/180d", "service requires a characteristic"},
		{"too many segments", "/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66/180d/2a37/2902", "too many segments"},
		{"bad mac", "/AA:BB:CC:DD:EE", "malformed address"},
		{"adapter name instead of address", "/hci0", "malformed address"},
		{"empty middle segment", "/AA:BB:CC:DD:EE:FF//180d/2a37", "segment 2 is empty"},
		{"bad uuid", "/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66/180d/zz", "malformed UUID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.input, perr.Input)
			assert.Contains(t, err.Error(), tt.reason)
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
	assert.NotPanics(t, func() { MustParse("/11:22:33:44:55:66") })
}

func TestIdentity_Hierarchy(t *testing.T) {
	adapter := MustParse("/AA:BB:CC:DD:EE:FF")
	device := MustParse("/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66")
	char := MustParse("/AA:BB:CC:DD:EE:FF/11:22:33:44:55:66/180d/2a37")
	otherDevice := MustParse("/AA:BB:CC:DD:EE:FF/66:55:44:33:22:11")

	t.Run("depth", func(t *testing.T) {
		assert.Equal(t, 0, Identity{}.Depth())
		assert.Equal(t, 1, adapter.Depth())
		assert.Equal(t, 2, device.Depth())
		assert.Equal(t, 3, char.Depth())
	})

	t.Run("parent chain", func(t *testing.T) {
		p, ok := char.Parent()
		require.True(t, ok)
		assert.Equal(t, device, p)

		p, ok = device.Parent()
		require.True(t, ok)
		assert.Equal(t, adapter, p)

		_, ok = adapter.Parent()
		assert.False(t, ok)
	})

	t.Run("descendants", func(t *testing.T) {
		assert.True(t, char.IsDescendantOf(device))
		assert.True(t, char.IsDescendantOf(adapter))
		assert.True(t, device.IsDescendantOf(adapter))

		assert.False(t, device.IsDescendantOf(device))
		assert.False(t, adapter.IsDescendantOf(device))
		assert.False(t, char.IsDescendantOf(otherDevice))
		assert.False(t, char.IsDescendantOf(Identity{}))
	})

	t.Run("device identity", func(t *testing.T) {
		assert.Equal(t, device, char.DeviceIdentity())
	})
}

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2902", "2902"},
		{"0X2A37", "2a37"},
		{"0000290200001000800000805f9b34fb", "2902"},
		{"00002902-0000-1000-8000-00805F9B34FB", "2902"},
		{"6E400001-B5A3-F393-E0A9-E50E24DCCA9E", "6e400001b5a3f393e0a9e50e24dcca9e"},
		{"1000180d-0000-1000-8000-00805f9b34fb", "1000180d00001000800000805f9b34fb"},
		{"12", ""},
		{"xyzw", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUUID(tt.input))
		})
	}
}
