package cmd

import (
	"github.com/spf13/cobra"

	"github.com/luki/tempdash/internal/store"
	"github.com/luki/tempdash/internal/viewer"
)

func newViewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Browse cached readings offline",
		Long: `Browse the readings cached by earlier dashboard and readings runs
without contacting the backend. Switch devices with [ and ], timescales
with 1-4, and scrub through buckets with h/l, H/L and home/end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(true); err != nil {
				return err
			}
			defer a.log.Sync()

			ds, err := store.New(a.cfg.DataDir)
			if err != nil {
				return err
			}
			return viewer.Run(ds, a.cfg.Location())
		},
	}
}
