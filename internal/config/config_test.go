package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefaultsPreserveConstants(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	c, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}

	if c.Poll.Backoff != 5000*time.Millisecond {
		t.Errorf("backoff = %v", c.Poll.Backoff)
	}
	if c.Poll.Interval != 100*time.Millisecond {
		t.Errorf("interval = %v", c.Poll.Interval)
	}
	if c.Poll.BufferSize != 1024 {
		t.Errorf("buffer = %d", c.Poll.BufferSize)
	}
	if c.Calibration.Torque != 380.0 || c.Calibration.Power != 310.0 {
		t.Errorf("calibration = %+v", c.Calibration)
	}
	if !strings.EqualFold(c.Device.ServiceUUID, "00001101-0000-1000-8000-00805F9B34FB") {
		t.Errorf("service uuid = %s", c.Device.ServiceUUID)
	}
	if c.Device.Marker != "OBD" {
		t.Errorf("marker = %q", c.Device.Marker)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "obdmeter.yaml")
	data := `device:
  driver: rfcomm
  address: "00:1D:A5:68:98:8B"
  channel: 2
  init: [ATZ, ATE0]
poll:
  interval: 250ms
calibration:
  max-torque: 450
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	c, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper: %v", err)
	}
	if c.Device.Driver != DriverRFCOMM || c.Device.Channel != 2 || c.Device.Address != "00:1D:A5:68:98:8B" {
		t.Errorf("device = %+v", c.Device)
	}
	if len(c.Device.InitCommands) != 2 || c.Device.InitCommands[1] != "ATE0" {
		t.Errorf("init = %v", c.Device.InitCommands)
	}
	if c.Poll.Interval != 250*time.Millisecond || c.Poll.Backoff != 5*time.Second {
		t.Errorf("poll = %+v", c.Poll)
	}
	if c.Calibration.Torque != 450 || c.Calibration.Power != 310 {
		t.Errorf("calibration = %+v", c.Calibration)
	}
}

func TestMockOverridesDriver(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("mock", true)
	c, err := FromViper(v)
	if err != nil {
		t.Fatal(err)
	}
	if c.Device.Driver != DriverMock {
		t.Errorf("driver = %q", c.Device.Driver)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Device.Driver = "can" }},
		{"marker", func(c *Config) { c.Device.Marker = "" }},
		{"channel", func(c *Config) { c.Device.Channel = 0 }},
		{"uuid", func(c *Config) { c.Device.ServiceUUID = "not-a-uuid" }},
		{"interval", func(c *Config) { c.Poll.Interval = 0 }},
		{"buffer", func(c *Config) { c.Poll.BufferSize = -1 }},
		{"calibration", func(c *Config) { c.Calibration.Power = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			if err := c.Validate(); err == nil {
				t.Error("Validate accepted invalid config")
			}
		})
	}
	if err := Default().Validate(); err != nil {
		t.Errorf("Default invalid: %v", err)
	}
}
