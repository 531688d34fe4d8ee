package transport

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryLister(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	data := `devices:
  - name: Speaker
    address: "11:22:33:44:55:66"
  - name: OBDII
    address: "00:1D:A5:68:98:8B"
    path: /dev/rfcomm0
    channel: 2
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	devices, err := RegistryLister{Path: path}.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("got %d devices, want 2", len(devices))
	}
	d, ok := Select(devices, DefaultMarker)
	if !ok {
		t.Fatal("no OBD device selected")
	}
	if d.Path != "/dev/rfcomm0" || d.Channel != 2 || d.Address != "00:1D:A5:68:98:8B" {
		t.Errorf("unexpected device %+v", d)
	}
}

func TestRegistryMissingFile(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestStatusJSON(t *testing.T) {
	st := Status{State: StateNoDeviceFound, Attempt: 3, Err: ErrNoDeviceFound}
	b, err := json.Marshal(st)
	if err != nil {
		t.Fatal(err)
	}
	s := string(b)
	if !strings.Contains(s, `"state":"no device found"`) || !strings.Contains(s, `"error":"no device found"`) {
		t.Errorf("json = %s", s)
	}
}

func TestServiceUUID(t *testing.T) {
	if !strings.EqualFold(ServiceUUID.String(), SerialPortProfile) {
		t.Errorf("ServiceUUID = %s", ServiceUUID)
	}
}
