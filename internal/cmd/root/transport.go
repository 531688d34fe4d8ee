package root

import (
	"fmt"
	"time"

	"obdmeter/internal/config"
	"obdmeter/internal/obd/mock"
	"obdmeter/internal/transport"

	uuid "github.com/satori/go.uuid"
)

// Transport returns the lister and dialer for the configured driver.
func Transport(c config.Config) (transport.Lister, transport.Dialer, error) {
	dev := c.Device
	if dev.Driver == config.DriverMock {
		return mock.Lister(), mock.NewDialer(time.Now().UnixNano()), nil
	}

	var dialer transport.Dialer
	switch dev.Driver {
	case config.DriverSerial:
		dialer = transport.SerialDialer{Baud: dev.Baud, ReadTimeout: dev.ReadTimeout}
	case config.DriverPort:
		dialer = transport.PortDialer{Baud: dev.Baud, ReadTimeout: dev.ReadTimeout}
	case config.DriverRFCOMM:
		service, err := uuid.FromString(dev.ServiceUUID)
		if err != nil {
			return nil, nil, fmt.Errorf("service uuid: %w", err)
		}
		dialer = transport.RFCOMMDialer{Service: service, ReadTimeout: dev.ReadTimeout}
	case config.DriverTCP:
		dialer = transport.TCPDialer{ReadTimeout: dev.ReadTimeout}
	default:
		return nil, nil, fmt.Errorf("unknown device driver %q", dev.Driver)
	}

	var lister transport.Lister
	switch {
	case dev.Registry != "":
		lister = transport.RegistryLister{Path: dev.Registry}
	case dev.Driver == config.DriverPort && dev.Path == "":
		lister = transport.PortLister{}
	default:
		lister = transport.StaticLister{{
			Name:    dev.Name,
			Address: dev.Address,
			Path:    dev.Path,
			Channel: uint8(dev.Channel),
		}}
	}
	return lister, dialer, nil
}
