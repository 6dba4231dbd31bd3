package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDevicesCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List the devices known to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			defer a.log.Sync()

			client, err := a.apiClient()
			if err != nil {
				return err
			}
			devices, err := client.Devices(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch output {
			case "table":
				if len(devices) == 0 {
					printWarning(out, "No devices")
					return nil
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, bold("#")+"\t"+bold("DEVICE"))
				for i, d := range devices {
					fmt.Fprintf(w, "%d\t%s\n", i+1, cyan(d))
				}
				return w.Flush()
			default:
				return encode(out, output, devices)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table, json or yaml")
	return cmd
}
