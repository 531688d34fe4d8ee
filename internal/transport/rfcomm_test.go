package transport

import (
	"os"
	"path/filepath"
	"testing"

	uuid "github.com/satori/go.uuid"
)

const objectPush = "00001105-0000-1000-8000-00805f9b34fb"

func TestRFCOMMChannel(t *testing.T) {
	adapter := Device{
		Name:    "OBDII",
		Address: "00:1D:A5:68:98:8B",
		Channel: 3,
		Services: []Service{
			{UUID: "00001101-0000-1000-8000-00805f9b34fb", Channel: 1},
			{UUID: objectPush, Channel: 7},
			{UUID: "not-a-uuid", Channel: 9},
		},
	}

	tests := []struct {
		name    string
		service uuid.UUID
		device  Device
		want    uint8
	}{
		{"serial port profile by default", uuid.Nil, adapter, 1},
		{"explicit serial port profile", ServiceUUID, adapter, 1},
		{"other service", uuid.Must(uuid.FromString(objectPush)), adapter, 7},
		{"unknown service uses device channel", uuid.NewV4(), adapter, 3},
		{"no records uses device channel", ServiceUUID, Device{Channel: 4}, 4},
		{"nothing configured", ServiceUUID, Device{}, DefaultChannel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := RFCOMMDialer{Service: tt.service}
			if got := d.channel(tt.device); got != tt.want {
				t.Errorf("channel = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRegistryServices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	data := `devices:
  - name: OBDII
    address: "00:1D:A5:68:98:8B"
    services:
      - uuid: 00001101-0000-1000-8000-00805F9B34FB
        channel: 2
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := (RFCOMMDialer{}).channel(r.Devices[0]); got != 2 {
		t.Errorf("channel = %d, want 2", got)
	}
}
