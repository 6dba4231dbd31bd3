package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luki/tempdash/internal/api"
	"github.com/luki/tempdash/internal/sensor"
)

type settingsView struct {
	DeviceID  string `json:"device_id" yaml:"device_id"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Period    int    `json:"period" yaml:"period"`
	Amplitude int    `json:"amplitude" yaml:"amplitude"`
}

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change a simulated sensor's signal settings",
	}
	cmd.AddCommand(newSettingsGetCmd(a), newSettingsSetCmd(a))
	return cmd
}

func newSettingsGetCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "get <device>",
		Short: "Print a device's simulated sensor settings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			defer a.log.Sync()

			client, err := a.apiClient()
			if err != nil {
				return err
			}
			s, err := client.SimulatedSettings(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeSettings(cmd.OutOrStdout(), output, s)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}

func newSettingsSetCmd(a *app) *cobra.Command {
	var (
		enabled   bool
		period    int
		amplitude int
	)

	cmd := &cobra.Command{
		Use:   "set <device>",
		Short: "Change a device's simulated sensor settings",
		Long: fmt.Sprintf(`Change the simulated signal of a device. Flags that are not given keep
the device's current value.

Bounds: period %d..%d ms, amplitude %d..%d.`,
			sensor.MinPeriod, sensor.MaxPeriod, sensor.MinAmplitude, sensor.MaxAmplitude),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if !flags.Changed("enabled") && !flags.Changed("period") && !flags.Changed("amplitude") {
				return fmt.Errorf("nothing to change: give --enabled, --period or --amplitude")
			}
			if err := a.setup(false); err != nil {
				return err
			}
			defer a.log.Sync()

			client, err := a.apiClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			device := args[0]

			s, err := client.SimulatedSettings(ctx, device)
			if err != nil {
				return err
			}
			if verr := s.Validate(); verr != nil {
				a.log.Debug("starting from default settings", zap.String("device", device), zap.Error(verr))
				s = sensor.DefaultSettings(device)
			}
			s.DeviceID = device
			if flags.Changed("enabled") {
				s.Enabled = enabled
			}
			if flags.Changed("period") {
				s.Period = period
			}
			if flags.Changed("amplitude") {
				s.Amplitude = amplitude
			}

			if err := client.SetSimulatedSettings(ctx, s); err != nil {
				return fmt.Errorf("applying settings: %s", api.Message(err))
			}
			applied, err := client.SimulatedSettings(ctx, device)
			if err != nil {
				return fmt.Errorf("re-reading settings: %s", api.Message(err))
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Settings applied!")
			return writeSettings(out, "table", applied)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&enabled, "enabled", true, "enable the simulated signal")
	flags.IntVar(&period, "period", sensor.DefaultPeriod, "signal period in ms")
	flags.IntVar(&amplitude, "amplitude", sensor.DefaultAmplitude, "signal amplitude")
	return cmd
}

func writeSettings(w io.Writer, format string, s sensor.Settings) error {
	if format != "table" {
		return encode(w, format, settingsView(s))
	}

	state := red("disabled")
	if s.Enabled {
		state = green("enabled")
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\n", bold("DEVICE"), cyan(s.DeviceID))
	fmt.Fprintf(tw, "%s\t%s\n", bold("SIGNAL"), state)
	fmt.Fprintf(tw, "%s\t%d ms\n", bold("PERIOD"), s.Period)
	fmt.Fprintf(tw, "%s\t%d\n", bold("AMPLITUDE"), s.Amplitude)
	return tw.Flush()
}
