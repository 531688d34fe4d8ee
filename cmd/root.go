package cmd

import (
	"fmt"
	"os"
	"strings"

	"obdmeter/internal/cmd/root"
	"obdmeter/internal/config"
	"obdmeter/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:           "obdmeter",
	Short:         "Live engine data from an ELM327 OBD-II adapter",
	RunE:          root.Run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// flags maps each persistent flag to its viper key.
var flags = map[string]string{
	"debug":          "debug",
	"no-tui":         "no-tui",
	"mock":           "mock",
	"log-file":       "log-file",
	"driver":         "device.driver",
	"marker":         "device.marker",
	"device-name":    "device.name",
	"registry":       "device.registry",
	"device-path":    "device.path",
	"device-address": "device.address",
	"channel":        "device.channel",
	"baud":           "device.baud",
	"read-timeout":   "device.read-timeout",
	"init":           "device.init",
	"interval":       "poll.interval",
	"backoff":        "poll.backoff",
	"max-torque":     "calibration.max-torque",
	"max-power":      "calibration.max-power",
	"state":          "state",
	"mqtt-broker":    "mqtt.broker",
	"mqtt-topic":     "mqtt.topic",
	"http-listen":    "http.listen",
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	d := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json)")
	pf.Bool("debug", false, "Enable debug mode")
	pf.Bool("no-tui", false, "Run without TUI and log each snapshot")
	pf.Bool("mock", false, "Use the simulated ELM327 adapter")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
	pf.String("driver", d.Device.Driver, "Device driver: serial, port, rfcomm, tcp or mock")
	pf.String("marker", d.Device.Marker, "Select the first device whose name contains this")
	pf.String("device-name", d.Device.Name, "Name of the configured device when no registry is used")
	pf.String("registry", "", "YAML file listing known devices")
	pf.String("device-path", d.Device.Path, "Serial port path or host:port")
	pf.String("device-address", "", "Bluetooth address for the rfcomm driver")
	pf.Int("channel", d.Device.Channel, "RFCOMM channel")
	pf.Int("baud", d.Device.Baud, "Baud rate for serial connection")
	pf.Duration("read-timeout", d.Device.ReadTimeout, "Time to wait for a reply")
	pf.StringSlice("init", nil, "Commands sent after connecting, e.g. ATZ,ATE0")
	pf.Duration("interval", d.Poll.Interval, "Delay between polling cycles")
	pf.Duration("backoff", d.Poll.Backoff, "Delay between connection attempts")
	pf.Float64("max-torque", d.Calibration.Torque, "Initial peak torque")
	pf.Float64("max-power", d.Calibration.Power, "Initial peak power")
	pf.String("state", "", "bbolt file keeping peak values across runs")
	pf.String("mqtt-broker", "", "Publish snapshots to this MQTT broker")
	pf.String("mqtt-topic", d.MQTT.Topic, "MQTT topic for snapshots")
	pf.String("http-listen", "", "Serve the live feed on this address")

	for name, key := range flags {
		viper.BindPFlag(key, pf.Lookup(name))
	}
	config.SetDefaults(viper.GetViper())

	rootCmd.AddCommand(devicesCmd)
}

func initConfig() {
	viper.SetEnvPrefix("obdmeter")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile == "" {
		return
	}
	viper.SetConfigFile(cfgFile)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read config %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}

func initLogger() {
	if path := viper.GetString("log-file"); path != "" {
		log.InitLogger(viper.GetBool("debug"), path)
		return
	}
	log.InitLogger(viper.GetBool("debug"))
}

func Execute() {
	defer log.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
