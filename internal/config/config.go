package config

import (
	"errors"
	"fmt"
	"time"

	"obdmeter/internal/mqtt"
	"obdmeter/internal/obd"
	"obdmeter/internal/transport"

	uuid "github.com/satori/go.uuid"
	"github.com/spf13/viper"
)

// Drivers selectable with device.driver.
const (
	DriverSerial = "serial"
	DriverPort   = "port"
	DriverRFCOMM = "rfcomm"
	DriverTCP    = "tcp"
	DriverMock   = "mock"
)

// DefaultDeviceName names the single configured device when no registry is used.
const DefaultDeviceName = "OBDII"

// Config is the typed view of the viper settings.
type Config struct {
	Debug   bool
	NoTUI   bool
	Mock    bool
	LogFile string

	Device      DeviceConfig
	Poll        PollConfig
	Calibration obd.Maxima
	StatePath   string
	MQTT        mqtt.Config
	HTTPListen  string
}

type DeviceConfig struct {
	Driver       string
	Marker       string
	Name         string
	Registry     string
	Path         string
	Address      string
	Channel      int
	Baud         int
	ReadTimeout  time.Duration
	ServiceUUID  string
	InitCommands []string
}

type PollConfig struct {
	Interval   time.Duration
	Backoff    time.Duration
	BufferSize int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Driver:      DriverSerial,
			Marker:      transport.DefaultMarker,
			Name:        DefaultDeviceName,
			Path:        "/dev/rfcomm0",
			Channel:     transport.DefaultChannel,
			Baud:        transport.DefaultBaud,
			ReadTimeout: transport.DefaultReadTimeout,
			ServiceUUID: transport.SerialPortProfile,
		},
		Poll: PollConfig{
			Interval:   obd.DefaultInterval,
			Backoff:    transport.DefaultBackoff,
			BufferSize: obd.DefaultBufferSize,
		},
		Calibration: obd.DefaultMaxima(),
		MQTT: mqtt.Config{
			ClientID: mqtt.DefaultClientID,
			Topic:    mqtt.DefaultTopic,
		},
	}
}

// SetDefaults registers Default() with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("debug", d.Debug)
	v.SetDefault("no-tui", d.NoTUI)
	v.SetDefault("mock", d.Mock)
	v.SetDefault("log-file", d.LogFile)

	v.SetDefault("device.driver", d.Device.Driver)
	v.SetDefault("device.marker", d.Device.Marker)
	v.SetDefault("device.name", d.Device.Name)
	v.SetDefault("device.registry", d.Device.Registry)
	v.SetDefault("device.path", d.Device.Path)
	v.SetDefault("device.address", d.Device.Address)
	v.SetDefault("device.channel", d.Device.Channel)
	v.SetDefault("device.baud", d.Device.Baud)
	v.SetDefault("device.read-timeout", d.Device.ReadTimeout)
	v.SetDefault("device.service-uuid", d.Device.ServiceUUID)
	v.SetDefault("device.init", d.Device.InitCommands)

	v.SetDefault("poll.interval", d.Poll.Interval)
	v.SetDefault("poll.backoff", d.Poll.Backoff)
	v.SetDefault("poll.buffer-size", d.Poll.BufferSize)

	v.SetDefault("calibration.max-torque", d.Calibration.Torque)
	v.SetDefault("calibration.max-power", d.Calibration.Power)

	v.SetDefault("state", d.StatePath)
	v.SetDefault("mqtt.broker", d.MQTT.Broker)
	v.SetDefault("mqtt.client-id", d.MQTT.ClientID)
	v.SetDefault("mqtt.topic", d.MQTT.Topic)
	v.SetDefault("http.listen", d.HTTPListen)
}

// FromViper reads and validates the configuration.
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		Debug:   v.GetBool("debug"),
		NoTUI:   v.GetBool("no-tui"),
		Mock:    v.GetBool("mock"),
		LogFile: v.GetString("log-file"),
		Device: DeviceConfig{
			Driver:       v.GetString("device.driver"),
			Marker:       v.GetString("device.marker"),
			Name:         v.GetString("device.name"),
			Registry:     v.GetString("device.registry"),
			Path:         v.GetString("device.path"),
			Address:      v.GetString("device.address"),
			Channel:      v.GetInt("device.channel"),
			Baud:         v.GetInt("device.baud"),
			ReadTimeout:  v.GetDuration("device.read-timeout"),
			ServiceUUID:  v.GetString("device.service-uuid"),
			InitCommands: v.GetStringSlice("device.init"),
		},
		Poll: PollConfig{
			Interval:   v.GetDuration("poll.interval"),
			Backoff:    v.GetDuration("poll.backoff"),
			BufferSize: v.GetInt("poll.buffer-size"),
		},
		Calibration: obd.Maxima{
			Torque: v.GetFloat64("calibration.max-torque"),
			Power:  v.GetFloat64("calibration.max-power"),
		},
		StatePath: v.GetString("state"),
		MQTT: mqtt.Config{
			Broker:   v.GetString("mqtt.broker"),
			ClientID: v.GetString("mqtt.client-id"),
			Topic:    v.GetString("mqtt.topic"),
		},
		HTTPListen: v.GetString("http.listen"),
	}
	if c.Mock {
		c.Device.Driver = DriverMock
	}
	return c, c.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Device.Driver {
	case DriverSerial, DriverPort, DriverRFCOMM, DriverTCP, DriverMock:
	default:
		return fmt.Errorf("unknown device driver %q", c.Device.Driver)
	}
	if c.Device.Marker == "" {
		return errors.New("device marker must not be empty")
	}
	if c.Device.Channel < 1 || c.Device.Channel > 30 {
		return fmt.Errorf("rfcomm channel %d out of range 1-30", c.Device.Channel)
	}
	if _, err := uuid.FromString(c.Device.ServiceUUID); err != nil {
		return fmt.Errorf("service uuid: %w", err)
	}
	if c.Poll.Interval <= 0 || c.Poll.Backoff <= 0 || c.Device.ReadTimeout <= 0 {
		return errors.New("poll interval, backoff and read timeout must be positive")
	}
	if c.Poll.BufferSize <= 0 {
		return fmt.Errorf("buffer size %d must be positive", c.Poll.BufferSize)
	}
	if c.Calibration.Torque <= 0 || c.Calibration.Power <= 0 {
		return errors.New("calibration maxima must be positive")
	}
	return nil
}
