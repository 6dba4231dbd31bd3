// Package dashboard implements the interactive sensor dashboard: device
// selection, timescale-bucketed trend charts of fetched readings, the
// simulated-signal editor and live push notifications.
package dashboard

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/luki/tempdash/internal/aggregate"
	"github.com/luki/tempdash/internal/api"
	"github.com/luki/tempdash/internal/sensor"
	"github.com/luki/tempdash/internal/socket"
	"github.com/luki/tempdash/internal/store"
)

// Backend is the sensor service the dashboard talks to. *api.Client
// implements it.
type Backend interface {
	Devices(ctx context.Context) ([]string, error)
	Readings(ctx context.Context, deviceID string, limit int) ([]sensor.Reading, error)
	SimulatedSettings(ctx context.Context, deviceID string) (sensor.Settings, error)
	SetSimulatedSettings(ctx context.Context, s sensor.Settings) error
}

// Options configures a dashboard Model. Only Backend is required.
type Options struct {
	Backend  Backend
	Events   <-chan tea.Msg   // push events, see Subscribe
	Store    *store.DiskStore // when set, loaded readings are cached here
	Location *time.Location   // bucketing zone, defaults to time.Local
	Now      func() time.Time
	Log      *zap.Logger
	Context  context.Context
}

// Editor fields, top to bottom.
const (
	fieldEnabled = iota
	fieldPeriod
	fieldAmplitude
	fieldCount
)

// ── Messages ─────────────────────────────────────────────────────────

type devicesMsg struct {
	devices []string
	err     error
}

type readingsMsg struct {
	device   string
	readings []sensor.Reading
	err      error
}

type settingsMsg struct {
	device   string
	settings sensor.Settings
	err      error
}

type appliedMsg struct {
	device   string
	settings sensor.Settings
	err      error
}

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the dashboard.
type Model struct {
	backend Backend
	events  <-chan tea.Msg
	store   *store.DiskStore
	loc     *time.Location
	now     func() time.Time
	log     *zap.Logger
	ctx     context.Context

	devices    []string
	selected   int // -1 when no device is selected
	devicesErr string
	timescale  aggregate.Timescale

	readings []sensor.Reading
	loading  bool
	loadErr  string

	lostDevice string

	draft        sensor.Settings
	focus        int
	settingsBusy bool
	applied      bool
	settingsErr  string
	current      *sensor.Settings

	link    socket.Status
	linkErr error

	spinner spinner.Model
	help    help.Model
	width   int
	height  int
	scroll  int
}

// New creates the initial dashboard model.
func New(opts Options) Model {
	m := Model{
		backend:   opts.Backend,
		events:    opts.Events,
		store:     opts.Store,
		loc:       opts.Location,
		now:       opts.Now,
		log:       opts.Log,
		ctx:       opts.Context,
		selected:  -1,
		timescale: aggregate.Default,
		draft:     sensor.DefaultSettings(""),
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:      help.New(),
	}
	m.spinner.Style = lipgloss.NewStyle().Foreground(colorAccent)
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	return m
}

// Device returns the selected device id, or "" when none is selected.
func (m Model) Device() string {
	if m.selected < 0 || m.selected >= len(m.devices) {
		return ""
	}
	return m.devices[m.selected]
}

// Timescale returns the selected timescale.
func (m Model) Timescale() aggregate.Timescale { return m.timescale }

// ── Commands ─────────────────────────────────────────────────────────

func (m Model) fetchDevices() tea.Msg {
	devices, err := m.backend.Devices(m.ctx)
	return devicesMsg{devices: devices, err: err}
}

func (m Model) fetchSettings(device string) tea.Cmd {
	return func() tea.Msg {
		s, err := m.backend.SimulatedSettings(m.ctx, device)
		return settingsMsg{device: device, settings: s, err: err}
	}
}

func (m Model) loadReadings(device string, limit int) tea.Cmd {
	return func() tea.Msg {
		readings, err := m.backend.Readings(m.ctx, device, limit)
		if err != nil {
			return readingsMsg{device: device, err: err}
		}
		if m.store != nil && len(readings) > 0 {
			if err := m.store.Save(device, readings); err != nil {
				m.log.Warn("caching readings failed", zap.String("device", device), zap.Error(err))
			}
		}
		return readingsMsg{device: device, readings: readings}
	}
}

// applySettings posts s and reads the settings back.
func (m Model) applySettings(s sensor.Settings) tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.SetSimulatedSettings(m.ctx, s); err != nil {
			return appliedMsg{device: s.DeviceID, err: err}
		}
		got, err := m.backend.SimulatedSettings(m.ctx, s.DeviceID)
		return appliedMsg{device: s.DeviceID, settings: got, err: err}
	}
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchDevices, waitForEvent(m.events), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case devicesMsg:
		if msg.err != nil {
			m.devicesErr = api.Message(msg.err)
			m.log.Error("fetching devices failed", zap.Error(msg.err))
			return m, nil
		}
		m.devices = msg.devices
		m.devicesErr = ""
		if len(m.devices) == 0 {
			return m.selectDevice(-1)
		}
		return m.selectDevice(0)

	case settingsMsg:
		if msg.device != m.Device() {
			return m, nil
		}
		m.settingsBusy = false
		if msg.err != nil {
			m.settingsErr = api.Message(msg.err)
			m.log.Warn("fetching settings failed", zap.String("device", msg.device), zap.Error(msg.err))
			return m, nil
		}
		m.seedDraft(msg.settings)

	case appliedMsg:
		if msg.device != m.Device() {
			return m, nil
		}
		m.settingsBusy = false
		if msg.err != nil {
			m.settingsErr = api.Message(msg.err)
			m.log.Warn("applying settings failed", zap.String("device", msg.device), zap.Error(msg.err))
			return m, nil
		}
		m.applied = true
		m.seedDraft(msg.settings)
		m.log.Info("settings applied", zap.String("device", msg.device))

	case readingsMsg:
		if msg.device != m.Device() {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.loadErr = api.Message(msg.err)
			m.log.Warn("loading readings failed", zap.String("device", msg.device), zap.Error(msg.err))
			return m, nil
		}
		m.readings = msg.readings
		m.loadErr = ""

	case SettingsUpdatedMsg:
		if msg.Settings.DeviceID != "" && msg.Settings.DeviceID == m.Device() {
			s := msg.Settings
			m.current = &s
		}
		return m, waitForEvent(m.events)

	case ConnectionLostMsg:
		m.lostDevice = msg.DeviceID
		m.log.Warn("sensor connection lost", zap.String("device", msg.DeviceID))
		return m, waitForEvent(m.events)

	case LinkStatusMsg:
		m.link = msg.Status
		m.linkErr = msg.Err
		return m, waitForEvent(m.events)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, keys.NextDevice):
		if len(m.devices) > 0 {
			return m.selectDevice((m.selected + 1) % len(m.devices))
		}
	case key.Matches(msg, keys.PrevDevice):
		if len(m.devices) > 0 {
			return m.selectDevice((m.selected - 1 + len(m.devices)) % len(m.devices))
		}

	case key.Matches(msg, keys.Timescale):
		m.timescale = m.timescale.Next()
	case key.Matches(msg, keys.Minutely):
		m.timescale = aggregate.Minutely
	case key.Matches(msg, keys.Hourly):
		m.timescale = aggregate.Hourly
	case key.Matches(msg, keys.Daily):
		m.timescale = aggregate.Daily
	case key.Matches(msg, keys.Monthly):
		m.timescale = aggregate.Monthly

	case key.Matches(msg, keys.Load):
		device := m.Device()
		if device == "" || m.loading {
			return m, nil
		}
		m.loading = true
		m.loadErr = ""
		return m, m.loadReadings(device, m.timescale.FetchLimit())

	case key.Matches(msg, keys.Up):
		m.focus = (m.focus - 1 + fieldCount) % fieldCount
	case key.Matches(msg, keys.Down):
		m.focus = (m.focus + 1) % fieldCount
	case key.Matches(msg, keys.Decrease):
		m.adjust(-1)
	case key.Matches(msg, keys.Increase):
		m.adjust(1)
	case key.Matches(msg, keys.Toggle):
		m.draft.Enabled = !m.draft.Enabled

	case key.Matches(msg, keys.Apply):
		device := m.Device()
		if device == "" || m.settingsBusy {
			return m, nil
		}
		s := m.draft
		s.DeviceID = device
		m.settingsBusy = true
		m.applied = false
		m.settingsErr = ""
		return m, m.applySettings(s)

	case key.Matches(msg, keys.PageUp):
		if m.scroll > 0 {
			m.scroll--
		}
	case key.Matches(msg, keys.PageDown):
		m.scroll++
	}
	return m, nil
}

// selectDevice switches the selection, dropping everything tied to the
// previous device, and fetches the new device's settings.
func (m Model) selectDevice(i int) (tea.Model, tea.Cmd) {
	m.selected = i
	m.lostDevice = ""
	m.readings = nil
	m.loading = false
	m.loadErr = ""
	m.applied = false
	m.settingsErr = ""
	m.current = nil
	m.scroll = 0

	device := m.Device()
	if device == "" {
		m.settingsBusy = false
		return m, nil
	}
	m.settingsBusy = true
	m.log.Debug("device selected", zap.String("device", device))
	return m, m.fetchSettings(device)
}

// seedDraft copies backend settings into the editor when they are usable.
func (m *Model) seedDraft(s sensor.Settings) {
	s.DeviceID = m.Device()
	if s.Validate() != nil {
		return
	}
	m.draft = s
}

func (m *Model) adjust(dir int) {
	switch m.focus {
	case fieldEnabled:
		m.draft.Enabled = !m.draft.Enabled
	case fieldPeriod:
		m.draft = m.draft.StepPeriod(dir)
	case fieldAmplitude:
		m.draft = m.draft.StepAmplitude(dir)
	}
}
