package cmd

import (
	"fmt"

	"obdmeter/internal/cmd/root"
	"obdmeter/internal/config"
	"obdmeter/internal/transport"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List candidate devices and show which one would be used",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.FromViper(viper.GetViper())
		if err != nil {
			return err
		}
		lister, _, err := root.Transport(c)
		if err != nil {
			return err
		}
		devices, err := lister.Devices(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		selected := transport.SelectIndex(devices, c.Device.Marker)
		for i, d := range devices {
			mark := " "
			if i == selected {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, d)
		}
		if selected < 0 {
			fmt.Fprintf(out, "no device found: no known device name contains %q\n", c.Device.Marker)
		}
		return nil
	},
}
