package dashboard

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/tempdash/internal/aggregate"
	"github.com/luki/tempdash/internal/api"
	"github.com/luki/tempdash/internal/sensor"
	"github.com/luki/tempdash/internal/socket"
	"github.com/luki/tempdash/internal/store"
)

var testNow = time.Date(2026, 2, 21, 12, 30, 0, 0, time.UTC)

type fakeBackend struct {
	mu        sync.Mutex
	devices   []string
	devErr    error
	readings  map[string][]sensor.Reading
	settings  map[string]sensor.Settings
	setErr    error
	limits    []int
	saved     []sensor.Settings
	settingsQ []string
}

func (f *fakeBackend) Devices(ctx context.Context) ([]string, error) {
	return f.devices, f.devErr
}

func (f *fakeBackend) Readings(ctx context.Context, deviceID string, limit int) ([]sensor.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	return f.readings[deviceID], nil
}

func (f *fakeBackend) SimulatedSettings(ctx context.Context, deviceID string) (sensor.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settingsQ = append(f.settingsQ, deviceID)
	return f.settings[deviceID], nil
}

func (f *fakeBackend) SetSimulatedSettings(ctx context.Context, s sensor.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.saved = append(f.saved, s)
	f.settings[s.DeviceID] = s
	return nil
}

func newBackend() *fakeBackend {
	var readings []sensor.Reading
	for i := 0; i < 30; i++ {
		readings = append(readings, sensor.Reading{
			Timestamp: time.Date(2026, 2, 21, 12, i, 0, 0, time.UTC),
			Value:     20 + float64(i%5),
		})
	}
	return &fakeBackend{
		devices:  []string{"dev-1", "dev-2"},
		readings: map[string][]sensor.Reading{"dev-1": readings},
		settings: map[string]sensor.Settings{
			"dev-1": {DeviceID: "dev-1", Enabled: true, Period: 2000, Amplitude: 5},
			"dev-2": {DeviceID: "dev-2", Enabled: false, Period: 500, Amplitude: 20},
		},
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

// run executes cmd and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	m, _ = update(t, m, cmd())
	return m
}

func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return update(t, m, msg)
}

// started returns a model with devices loaded and dev-1's settings fetched.
func started(t *testing.T, b *fakeBackend, opts Options) Model {
	t.Helper()
	opts.Backend = b
	opts.Location = time.UTC
	opts.Now = func() time.Time { return testNow }
	m := New(opts)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 200})

	m, cmd := update(t, m, m.fetchDevices())
	if cmd != nil {
		m = run(t, m, cmd)
	}
	return m
}

func TestStartSelectsFirstDevice(t *testing.T) {
	b := newBackend()
	m := started(t, b, Options{})

	assert.Equal(t, "dev-1", m.Device())
	assert.Equal(t, aggregate.Hourly, m.Timescale())
	assert.Equal(t, []string{"dev-1"}, b.settingsQ)
	assert.False(t, m.settingsBusy)
	assert.Equal(t, sensor.Settings{DeviceID: "dev-1", Enabled: true, Period: 2000, Amplitude: 5}, m.draft)

	view := m.View()
	assert.Contains(t, view, "Temperature Trend for")
	assert.Contains(t, view, "No data")
	assert.Contains(t, view, "Period (ms): 2000")
}

func TestNoDevices(t *testing.T) {
	b := newBackend()
	b.devices = []string{}
	m := started(t, b, Options{})

	assert.Equal(t, "", m.Device())
	assert.Empty(t, b.settingsQ)
	assert.Contains(t, m.View(), "No devices")

	_, cmd := press(t, m, "enter")
	assert.Nil(t, cmd)
	_, cmd = press(t, m, "a")
	assert.Nil(t, cmd)
}

func TestDevicesError(t *testing.T) {
	b := newBackend()
	b.devErr = errors.New("connection refused")
	m := started(t, b, Options{})

	assert.Equal(t, "", m.Device())
	assert.Contains(t, m.View(), "ERROR: connection refused")
}

func TestLoadReadings(t *testing.T) {
	b := newBackend()
	ds, err := store.New(t.TempDir())
	require.NoError(t, err)
	m := started(t, b, Options{Store: ds})

	m, _ = press(t, m, "1")
	assert.Equal(t, aggregate.Minutely, m.Timescale())

	m, cmd := press(t, m, "enter")
	assert.True(t, m.loading)
	m = run(t, m, cmd)

	assert.False(t, m.loading)
	assert.Equal(t, []int{3600}, b.limits)
	assert.Len(t, m.readings, 30)

	view := m.View()
	assert.NotContains(t, view, "No data")
	assert.Contains(t, view, "30 buckets, 30 readings")

	cached, err := ds.Load("dev-1")
	require.NoError(t, err)
	assert.Len(t, cached, 30)
}

func TestTimescaleChangeKeepsData(t *testing.T) {
	b := newBackend()
	m := started(t, b, Options{})

	m, cmd := press(t, m, "1")
	assert.Nil(t, cmd)
	m, cmd = press(t, m, "enter")
	m = run(t, m, cmd)
	require.Len(t, m.readings, 30)

	m, cmd = press(t, m, "t")
	assert.Nil(t, cmd, "changing the timescale must not refetch")
	assert.Equal(t, aggregate.Hourly, m.Timescale())
	assert.Len(t, m.readings, 30)
	assert.Contains(t, m.View(), "1 buckets, 30 readings")
	assert.Len(t, b.limits, 1)
}

func TestDeviceChangeClearsState(t *testing.T) {
	b := newBackend()
	m := started(t, b, Options{})

	m, cmd := press(t, m, "enter")
	m = run(t, m, cmd)
	m, _ = update(t, m, ConnectionLostMsg{DeviceID: "dev-1"})
	require.NotEmpty(t, m.readings)
	require.Equal(t, "dev-1", m.lostDevice)

	m, cmd = press(t, m, "]")
	assert.Equal(t, "dev-2", m.Device())
	assert.Nil(t, m.readings)
	assert.Equal(t, "", m.lostDevice)
	assert.True(t, m.settingsBusy)

	m = run(t, m, cmd)
	assert.Equal(t, []string{"dev-1", "dev-2"}, b.settingsQ)
	assert.Equal(t, 500, m.draft.Period)

	m, _ = press(t, m, "[")
	assert.Equal(t, "dev-1", m.Device())
}

func TestStaleResponsesIgnored(t *testing.T) {
	b := newBackend()
	m := started(t, b, Options{})

	m, load := press(t, m, "enter")
	m, _ = press(t, m, "]")
	m = run(t, m, load)

	assert.Equal(t, "dev-2", m.Device())
	assert.Nil(t, m.readings)
}

func TestConnectionLostBanner(t *testing.T) {
	m := started(t, newBackend(), Options{})

	m, _ = update(t, m, ConnectionLostMsg{DeviceID: "dev-9"})
	view := m.View()
	assert.Contains(t, view, "Sensor connection lost for device:")
	assert.Contains(t, view, "dev-9")
}

func TestSettingsUpdatedForSelectedDevice(t *testing.T) {
	m := started(t, newBackend(), Options{})

	m, _ = update(t, m, SettingsUpdatedMsg{Settings: sensor.Settings{DeviceID: "dev-2", Period: 700, Amplitude: 3}})
	assert.Nil(t, m.current)

	m, _ = update(t, m, SettingsUpdatedMsg{Settings: sensor.Settings{DeviceID: "dev-1", Enabled: true, Period: 3000, Amplitude: 8}})
	require.NotNil(t, m.current)

	view := m.View()
	assert.Contains(t, view, "Current Sensor Settings:")
	assert.Contains(t, view, `"period": 3000`)
}

func TestEditorAndApply(t *testing.T) {
	b := newBackend()
	m := started(t, b, Options{})

	m, _ = press(t, m, "down")
	m, _ = press(t, m, "right")
	m, _ = press(t, m, "right")
	assert.Equal(t, 2200, m.draft.Period)

	m, _ = press(t, m, "down")
	m, _ = press(t, m, "left")
	assert.Equal(t, 4, m.draft.Amplitude)

	m, _ = press(t, m, " ")
	assert.False(t, m.draft.Enabled)

	m, cmd := press(t, m, "a")
	assert.True(t, m.settingsBusy)
	_, again := press(t, m, "a")
	assert.Nil(t, again, "apply is disabled while busy")

	m = run(t, m, cmd)
	require.Len(t, b.saved, 1)
	assert.Equal(t, sensor.Settings{DeviceID: "dev-1", Enabled: false, Period: 2200, Amplitude: 4}, b.saved[0])
	assert.Equal(t, []string{"dev-1", "dev-1"}, b.settingsQ, "apply re-reads the settings")
	assert.True(t, m.applied)
	assert.Contains(t, m.View(), "Settings applied!")
}

func TestEditorClampsToBounds(t *testing.T) {
	m := started(t, newBackend(), Options{})

	m, _ = press(t, m, "down")
	for i := 0; i < 200; i++ {
		m, _ = press(t, m, "right")
	}
	assert.Equal(t, sensor.MaxPeriod, m.draft.Period)

	m, _ = press(t, m, "down")
	for i := 0; i < 100; i++ {
		m, _ = press(t, m, "left")
	}
	assert.Equal(t, sensor.MinAmplitude, m.draft.Amplitude)
}

func TestApplyError(t *testing.T) {
	b := newBackend()
	b.setErr = &api.Error{Status: http.StatusBadRequest, Message: "Invalid period"}
	m := started(t, b, Options{})

	m, cmd := press(t, m, "a")
	m = run(t, m, cmd)

	assert.False(t, m.applied)
	view := m.View()
	assert.Contains(t, view, "Invalid period")
	assert.NotContains(t, view, "Settings applied!")
}

func TestLinkStatus(t *testing.T) {
	m := started(t, newBackend(), Options{})
	assert.Contains(t, m.View(), "offline")

	m, _ = update(t, m, LinkStatusMsg{Status: socket.StatusConnected})
	assert.Contains(t, m.View(), "live")
}

func TestWaitForEvent(t *testing.T) {
	assert.Nil(t, waitForEvent(nil))

	ch := make(chan tea.Msg, 1)
	ch <- ConnectionLostMsg{DeviceID: "dev-1"}
	assert.Equal(t, ConnectionLostMsg{DeviceID: "dev-1"}, waitForEvent(ch)())

	close(ch)
	assert.Nil(t, waitForEvent(ch)())
}

func TestEventsKeepListening(t *testing.T) {
	ch := make(chan tea.Msg, 1)
	m := started(t, newBackend(), Options{Events: ch})

	_, cmd := update(t, m, ConnectionLostMsg{DeviceID: "dev-1"})
	require.NotNil(t, cmd)

	ch <- LinkStatusMsg{Status: socket.StatusConnecting}
	assert.Equal(t, LinkStatusMsg{Status: socket.StatusConnecting}, cmd())
}
