package cmd

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luki/tempdash/internal/sensor"
	"github.com/luki/tempdash/internal/socket"
)

func newWatchCmd(a *app) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream push notifications from the backend",
		Long: `Subscribe to the backend's push channel and print every
sensor-settings-updated and sensor-connection-lost event until interrupted.
The connection is re-established automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(false); err != nil {
				return err
			}
			defer a.log.Sync()

			sock, err := a.socketClient()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			printf := func(format string, args ...any) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "%s "+format+"\n", append([]any{time.Now().Format("15:04:05")}, args...)...)
			}

			sock.OnStatus(func(s socket.Status, err error) {
				switch s {
				case socket.StatusConnected:
					printf("%s push channel connected", green("●"))
				case socket.StatusDisconnected:
					if err != nil {
						printf("%s push channel lost: %v", red("○"), err)
					}
				}
			})
			sock.OnSettingsUpdated(func(s sensor.Settings) {
				if device != "" && s.DeviceID != device {
					return
				}
				data, _ := json.Marshal(s)
				printf("%s %s %s", cyan(socket.EventSettingsUpdated), bold(s.DeviceID), data)
			})
			sock.OnConnectionLost(func(id string) {
				if device != "" && id != device {
					return
				}
				printf("%s %s", yellow(socket.EventConnectionLost), bold(id))
			})

			a.log.Info("watching push channel", zap.String("socket", a.cfg.SocketURL))
			sock.Run(cmd.Context())
			return nil
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "only show events for this device")
	return cmd
}
