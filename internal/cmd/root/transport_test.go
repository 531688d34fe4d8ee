package root

import (
	"context"
	"fmt"
	"testing"

	"obdmeter/internal/config"
	"obdmeter/internal/obd/mock"
	"obdmeter/internal/transport"

	uuid "github.com/satori/go.uuid"
)

func TestTransportStaticDevice(t *testing.T) {
	c := config.Default()
	c.Device.Driver = config.DriverRFCOMM
	c.Device.Address = "00:1D:A5:68:98:8B"
	c.Device.Channel = 2

	lister, dialer, err := Transport(c)
	if err != nil {
		t.Fatal(err)
	}
	rd, ok := dialer.(transport.RFCOMMDialer)
	if !ok {
		t.Fatalf("dialer = %T", dialer)
	}
	if !uuid.Equal(rd.Service, transport.ServiceUUID) {
		t.Errorf("service = %s", rd.Service)
	}
	devices, err := lister.Devices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	dev, ok := transport.Select(devices, c.Device.Marker)
	if !ok {
		t.Fatalf("no device selected from %v", devices)
	}
	if dev.Address != c.Device.Address || dev.Channel != 2 {
		t.Errorf("device = %+v", dev)
	}
}

func TestTransportDrivers(t *testing.T) {
	tests := []struct {
		driver   string
		registry string
		path     string
		dialer   any
		lister   any
	}{
		{config.DriverSerial, "", "/dev/rfcomm0", transport.SerialDialer{}, transport.StaticLister{}},
		{config.DriverPort, "", "", transport.PortDialer{}, transport.PortLister{}},
		{config.DriverTCP, "devices.yaml", "192.168.0.10:35000", transport.TCPDialer{}, transport.RegistryLister{}},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			c := config.Default()
			c.Device.Driver = tt.driver
			c.Device.Registry = tt.registry
			c.Device.Path = tt.path

			lister, dialer, err := Transport(c)
			if err != nil {
				t.Fatal(err)
			}
			if got, want := typeName(dialer), typeName(tt.dialer); got != want {
				t.Errorf("dialer = %s, want %s", got, want)
			}
			if got, want := typeName(lister), typeName(tt.lister); got != want {
				t.Errorf("lister = %s, want %s", got, want)
			}
		})
	}
}

func TestTransportMock(t *testing.T) {
	c := config.Default()
	c.Device.Driver = config.DriverMock

	lister, _, err := Transport(c)
	if err != nil {
		t.Fatal(err)
	}
	devices, _ := lister.Devices(context.Background())
	dev, ok := transport.Select(devices, c.Device.Marker)
	if !ok || dev.Name != mock.DeviceName {
		t.Errorf("selected %+v, %v", dev, ok)
	}
}

func TestTransportUnknownDriver(t *testing.T) {
	c := config.Default()
	c.Device.Driver = "can"
	if _, _, err := Transport(c); err == nil {
		t.Error("expected error")
	}
}

func typeName(v any) string {
	return fmt.Sprintf("%T", v)
}

func TestTransportServiceUUID(t *testing.T) {
	c := config.Default()
	c.Device.Driver = config.DriverRFCOMM
	c.Device.ServiceUUID = "00001105-0000-1000-8000-00805F9B34FB"

	_, dialer, err := Transport(c)
	if err != nil {
		t.Fatal(err)
	}
	want := uuid.Must(uuid.FromString(c.Device.ServiceUUID))
	if rd := dialer.(transport.RFCOMMDialer); !uuid.Equal(rd.Service, want) {
		t.Errorf("service = %s, want %s", rd.Service, want)
	}

	c.Device.ServiceUUID = "serial"
	if _, _, err := Transport(c); err == nil {
		t.Error("malformed service uuid accepted")
	}
}
