package sensor

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

const testReadingsPayload = `[
  {"timestamp": "2026-02-21T14:00:05Z", "value": 21.5},
  {"timestamp": "2026-02-21 14:00:06", "value": 22},
  {"timestamp": 1771682407000, "temperature": 22.5}
]`

func TestDecodeReadings(t *testing.T) {
	var readings []Reading
	if err := json.Unmarshal([]byte(testReadingsPayload), &readings); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d", len(readings))
	}

	want := time.Date(2026, 2, 21, 14, 0, 5, 0, time.UTC)
	if !readings[0].Timestamp.Equal(want) {
		t.Errorf("reading 0 time: got %v, want %v", readings[0].Timestamp, want)
	}
	if readings[0].Value != 21.5 {
		t.Errorf("reading 0 value: got %f, want 21.5", readings[0].Value)
	}

	local := time.Date(2026, 2, 21, 14, 0, 6, 0, time.Local)
	if !readings[1].Timestamp.Equal(local) {
		t.Errorf("zone-less timestamp: got %v, want %v", readings[1].Timestamp, local)
	}

	if got := readings[2].Timestamp.UnixMilli(); got != 1771682407000 {
		t.Errorf("epoch timestamp: got %d", got)
	}
	if readings[2].Value != 22.5 {
		t.Errorf("temperature fallback: got %f, want 22.5", readings[2].Value)
	}
}

func TestDecodeReadingErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"missing timestamp", `{"value": 1}`},
		{"missing value", `{"timestamp": "2026-02-21T14:00:05Z"}`},
		{"garbage timestamp", `{"timestamp": "yesterday", "value": 1}`},
		{"bool timestamp", `{"timestamp": true, "value": 1}`},
	}
	for _, tt := range tests {
		var r Reading
		if err := json.Unmarshal([]byte(tt.payload), &r); err == nil {
			t.Errorf("%s: expected error, got %+v", tt.name, r)
		}
	}
}

func TestSettingsDecodeBothSpellings(t *testing.T) {
	var rest, event Settings
	if err := json.Unmarshal([]byte(`{"device_id":"dev-1","enabled":true,"period":500,"amplitude":5}`), &rest); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"deviceId":"dev-1","enabled":true,"period":500,"amplitude":5}`), &event); err != nil {
		t.Fatal(err)
	}
	if rest != event {
		t.Errorf("spellings decode differently: %+v vs %+v", rest, event)
	}

	out, err := json.Marshal(rest)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"device_id":"dev-1","enabled":true,"period":500,"amplitude":5}` {
		t.Errorf("marshal: got %s", out)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		s    Settings
		want bool
	}{
		{DefaultSettings("dev-1"), true},
		{DefaultSettings(""), false},
		{Settings{DeviceID: "d", Period: 99, Amplitude: 10}, false},
		{Settings{DeviceID: "d", Period: 10001, Amplitude: 10}, false},
		{Settings{DeviceID: "d", Period: 100, Amplitude: 0}, false},
		{Settings{DeviceID: "d", Period: 10000, Amplitude: 50}, true},
	}
	for _, tt := range tests {
		err := tt.s.Validate()
		if tt.want && err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", tt.s, err)
		}
		if !tt.want && !errors.Is(err, ErrInvalidSettings) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidSettings", tt.s, err)
		}
	}
}

func TestSettingsStep(t *testing.T) {
	s := DefaultSettings("dev-1")
	if got := s.StepPeriod(3).Period; got != 1300 {
		t.Errorf("StepPeriod(3): got %d, want 1300", got)
	}
	if got := s.StepPeriod(-100).Period; got != MinPeriod {
		t.Errorf("StepPeriod clamp low: got %d", got)
	}
	if got := s.StepAmplitude(100).Amplitude; got != MaxAmplitude {
		t.Errorf("StepAmplitude clamp high: got %d", got)
	}
	if s.Period != DefaultPeriod {
		t.Error("StepPeriod mutated the receiver")
	}
}
