// Package sensor holds the domain types exchanged with the temperature
// sensor backend: device readings and simulated-sensor settings.
package sensor

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Reading represents a single temperature reading from a device.
type Reading struct {
	Timestamp time.Time
	Value     float64 // degrees Celsius
}

// Zone-less layouts are interpreted in local time.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

type wireReading struct {
	Timestamp   json.RawMessage `json:"timestamp"`
	Value       *float64        `json:"value"`
	Temperature *float64        `json:"temperature"`
}

// UnmarshalJSON accepts a timestamp given as an RFC 3339 string, a zone-less
// date-time string or epoch milliseconds, and a value under either "value"
// or "temperature".
func (r *Reading) UnmarshalJSON(data []byte) error {
	var w wireReading
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	ts, err := ParseTimestamp(w.Timestamp)
	if err != nil {
		return err
	}

	switch {
	case w.Value != nil:
		r.Value = *w.Value
	case w.Temperature != nil:
		r.Value = *w.Temperature
	default:
		return fmt.Errorf("reading at %s has no value", ts.Format(time.RFC3339))
	}
	r.Timestamp = ts
	return nil
}

// MarshalJSON writes the reading in the backend's shape.
func (r Reading) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Timestamp string  `json:"timestamp"`
		Value     float64 `json:"value"`
	}{
		Timestamp: r.Timestamp.Format(time.RFC3339Nano),
		Value:     r.Value,
	})
}

// ParseTimestamp decodes a JSON timestamp (string or epoch milliseconds).
func ParseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		return parseTimeString(s)
	}

	var ms float64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %s", string(raw))
	}
	if math.IsNaN(ms) || math.IsInf(ms, 0) {
		return time.Time{}, fmt.Errorf("invalid timestamp %s", string(raw))
	}
	return time.UnixMilli(int64(ms)), nil
}

func parseTimeString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
