package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Bounds of the simulated signal, as accepted by the backend.
const (
	MinPeriod     = 100
	MaxPeriod     = 10000
	PeriodStep    = 100
	MinAmplitude  = 1
	MaxAmplitude  = 50
	AmplitudeStep = 1

	DefaultPeriod    = 1000
	DefaultAmplitude = 10
)

// ErrInvalidSettings is returned by Validate.
var ErrInvalidSettings = errors.New("invalid sensor settings")

// Settings are the signal parameters of a simulated sensor.
type Settings struct {
	DeviceID  string `json:"device_id"`
	Enabled   bool   `json:"enabled"`
	Period    int    `json:"period"`    // ms
	Amplitude int    `json:"amplitude"` // degrees Celsius
}

// DefaultSettings returns the editor's starting values for a device.
func DefaultSettings(deviceID string) Settings {
	return Settings{
		DeviceID:  deviceID,
		Enabled:   true,
		Period:    DefaultPeriod,
		Amplitude: DefaultAmplitude,
	}
}

// Validate checks the settings against the backend's bounds.
func (s Settings) Validate() error {
	switch {
	case s.DeviceID == "":
		return fmt.Errorf("%w: device id is required", ErrInvalidSettings)
	case s.Period < MinPeriod || s.Period > MaxPeriod:
		return fmt.Errorf("%w: period %d outside %d..%d", ErrInvalidSettings, s.Period, MinPeriod, MaxPeriod)
	case s.Amplitude < MinAmplitude || s.Amplitude > MaxAmplitude:
		return fmt.Errorf("%w: amplitude %d outside %d..%d", ErrInvalidSettings, s.Amplitude, MinAmplitude, MaxAmplitude)
	}
	return nil
}

// StepPeriod moves the period by n steps, clamped to the bounds.
func (s Settings) StepPeriod(n int) Settings {
	s.Period = clamp(s.Period+n*PeriodStep, MinPeriod, MaxPeriod)
	return s
}

// StepAmplitude moves the amplitude by n steps, clamped to the bounds.
func (s Settings) StepAmplitude(n int) Settings {
	s.Amplitude = clamp(s.Amplitude+n*AmplitudeStep, MinAmplitude, MaxAmplitude)
	return s
}

// UnmarshalJSON accepts both "device_id" (REST) and "deviceId" (events).
func (s *Settings) UnmarshalJSON(data []byte) error {
	var w struct {
		DeviceID    string `json:"device_id"`
		DeviceIDAlt string `json:"deviceId"`
		Enabled     bool   `json:"enabled"`
		Period      int    `json:"period"`
		Amplitude   int    `json:"amplitude"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Settings{
		DeviceID:  w.DeviceID,
		Enabled:   w.Enabled,
		Period:    w.Period,
		Amplitude: w.Amplitude,
	}
	if s.DeviceID == "" {
		s.DeviceID = w.DeviceIDAlt
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
