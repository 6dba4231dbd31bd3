package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/luki/tempdash/internal/aggregate"
	"github.com/luki/tempdash/internal/sensor"
)

type bucketRow struct {
	Time  time.Time `json:"time" yaml:"time"`
	Avg   float64   `json:"avg" yaml:"avg"`
	Min   float64   `json:"min" yaml:"min"`
	Max   float64   `json:"max" yaml:"max"`
	Count int       `json:"count" yaml:"count"`
}

func newReadingsCmd(a *app) *cobra.Command {
	var (
		timescale string
		format    string
		limit     int
		raw       bool
	)

	cmd := &cobra.Command{
		Use:   "readings <device>",
		Short: "Fetch a device's readings, bucketed by timescale",
		Long: `Fetch readings for a device and print them aggregated into calendar
buckets (minutely, hourly, daily or monthly), keeping the trailing window
of the timescale: the last 60 minutes, 24 hours, 30 days or 12 months.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := aggregate.ParseTimescale(timescale)
			if err != nil {
				return err
			}
			switch format {
			case "table", "json", "yaml", "csv":
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err := a.setup(false); err != nil {
				return err
			}
			defer a.log.Sync()

			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = ts.FetchLimit()
			}

			device := args[0]
			readings, err := client.Readings(cmd.Context(), device, limit)
			if err != nil {
				return err
			}
			a.record(device, readings)

			out := cmd.OutOrStdout()
			loc := a.cfg.Location()
			if raw {
				return writeReadings(out, format, readings, loc)
			}

			buckets, err := aggregate.Series(readings, ts, time.Now(), loc)
			if err != nil {
				return err
			}
			if len(buckets) == 0 && format == "table" {
				printWarning(out, "No data")
				return nil
			}
			return writeBuckets(out, format, ts, buckets, loc)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&timescale, "timescale", "t", aggregate.Default.String(), "minutely, hourly, daily or monthly")
	flags.StringVarP(&format, "format", "f", "table", "output format: table, json, yaml or csv")
	flags.IntVar(&limit, "limit", 0, "number of readings to request (default depends on the timescale)")
	flags.BoolVar(&raw, "raw", false, "print the readings without bucketing")
	return cmd
}

// record caches readings when recording is on. Failures only warn.
func (a *app) record(device string, readings []sensor.Reading) {
	if len(readings) == 0 {
		return
	}
	ds, err := a.recorder()
	if err != nil {
		a.log.Warn("reading cache unavailable", zap.Error(err))
		return
	}
	if ds == nil {
		return
	}
	if err := ds.Save(device, readings); err != nil {
		a.log.Warn("caching readings failed", zap.String("device", device), zap.Error(err))
	}
}

func bucketLabel(ts aggregate.Timescale, t time.Time) string {
	switch ts {
	case aggregate.Minutely, aggregate.Hourly:
		return t.Format("2006-01-02 15:04")
	}
	return ts.Format(t)
}

func writeBuckets(w io.Writer, format string, ts aggregate.Timescale, buckets []aggregate.Bucket, loc *time.Location) error {
	switch format {
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, bold("BUCKET")+"\t"+bold("AVG")+"\t"+bold("MIN")+"\t"+bold("MAX")+"\t"+bold("COUNT"))
		for _, b := range buckets {
			fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%d\n", bucketLabel(ts, b.Time.In(loc)), b.Avg, b.Min, b.Max, b.Count)
		}
		return tw.Flush()
	case "csv":
		cw := csv.NewWriter(w)
		cw.Write([]string{"time", "avg", "min", "max", "count"})
		for _, b := range buckets {
			cw.Write([]string{
				b.Time.In(loc).Format(time.RFC3339),
				strconv.FormatFloat(b.Avg, 'f', -1, 64),
				strconv.FormatFloat(b.Min, 'f', -1, 64),
				strconv.FormatFloat(b.Max, 'f', -1, 64),
				strconv.Itoa(b.Count),
			})
		}
		cw.Flush()
		return cw.Error()
	}

	rows := make([]bucketRow, len(buckets))
	for i, b := range buckets {
		rows[i] = bucketRow{Time: b.Time.In(loc), Avg: b.Avg, Min: b.Min, Max: b.Max, Count: b.Count}
	}
	return encode(w, format, rows)
}

func writeReadings(w io.Writer, format string, readings []sensor.Reading, loc *time.Location) error {
	switch format {
	case "table":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, bold("TIMESTAMP")+"\t"+bold("VALUE"))
		for _, r := range readings {
			fmt.Fprintf(tw, "%s\t%.2f\n", r.Timestamp.In(loc).Format("2006-01-02 15:04:05"), r.Value)
		}
		return tw.Flush()
	case "csv":
		cw := csv.NewWriter(w)
		cw.Write([]string{"timestamp", "value"})
		for _, r := range readings {
			cw.Write([]string{r.Timestamp.In(loc).Format(time.RFC3339Nano), strconv.FormatFloat(r.Value, 'f', -1, 64)})
		}
		cw.Flush()
		return cw.Error()
	case "yaml":
		type row struct {
			Timestamp time.Time `yaml:"timestamp"`
			Value     float64   `yaml:"value"`
		}
		rows := make([]row, len(readings))
		for i, r := range readings {
			rows[i] = row{Timestamp: r.Timestamp.In(loc), Value: r.Value}
		}
		return encode(w, format, rows)
	}
	return encode(w, format, readings)
}
