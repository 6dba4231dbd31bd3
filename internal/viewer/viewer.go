// Package viewer implements the offline browser for cached readings: per
// device bucketed history with a time scrubber and sparkline windows.
package viewer

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/tempdash/internal/aggregate"
	"github.com/luki/tempdash/internal/chart"
	"github.com/luki/tempdash/internal/history"
	"github.com/luki/tempdash/internal/store"
)

// ErrNoData is returned by Run when the store holds no cached device.
var ErrNoData = errors.New("no cached readings")

// Run launches the offline viewer TUI over the devices cached in ds.
func Run(ds *store.DiskStore, loc *time.Location) error {
	devices, err := ds.ListDevices()
	if err != nil {
		return fmt.Errorf("listing %s: %w", ds.Dir(), err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w in %s", ErrNoData, ds.Dir())
	}

	p := tea.NewProgram(
		New(ds, devices, loc),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = p.Run()
	return err
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorChipName = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorCursor   = lipgloss.Color("214")
	colorCrit     = lipgloss.Color("196")
)

// ── Model ────────────────────────────────────────────────────────────

// Model is the BubbleTea model for the offline viewer.
type Model struct {
	ds        *store.DiskStore
	loc       *time.Location
	devices   []string
	deviceIdx int
	timescale aggregate.Timescale
	readings  int
	buckets   []aggregate.Bucket
	series    *history.Buffer
	cursor    int // index into buckets
	scroll    int
	width     int
	height    int
	err       error
}

// New creates a viewer over the given cached devices, showing the first.
func New(ds *store.DiskStore, devices []string, loc *time.Location) Model {
	if loc == nil {
		loc = time.Local
	}
	m := Model{
		ds:        ds,
		loc:       loc,
		devices:   devices,
		timescale: aggregate.Default,
	}
	m.loadDevice()
	return m
}

// Device returns the device being browsed.
func (m Model) Device() string {
	if len(m.devices) == 0 {
		return ""
	}
	return m.devices[m.deviceIdx]
}

// Cursor returns the bucket under the cursor.
func (m Model) Cursor() (aggregate.Bucket, bool) {
	if m.cursor < 0 || m.cursor >= len(m.buckets) {
		return aggregate.Bucket{}, false
	}
	return m.buckets[m.cursor], true
}

// loadDevice reads the selected device's cache and buckets it.
func (m *Model) loadDevice() {
	m.buckets = nil
	m.series = nil
	m.readings = 0
	m.cursor = 0
	m.scroll = 0

	device := m.Device()
	if device == "" {
		return
	}
	readings, err := m.ds.Load(device)
	if err != nil {
		m.err = err
		return
	}
	m.err = nil
	m.readings = len(readings)

	buckets, err := aggregate.Aggregate(readings, m.timescale, m.loc)
	if err != nil {
		m.err = err
		return
	}
	m.buckets = buckets
	m.series = history.FromBuckets(buckets, 0)
	if len(buckets) > 0 {
		m.cursor = len(buckets) - 1
	}
}

// setTimescale re-buckets the current device, keeping the cursor on the
// bucket that contains the old cursor time.
func (m *Model) setTimescale(ts aggregate.Timescale) {
	if ts == m.timescale {
		return
	}
	var at time.Time
	if b, ok := m.Cursor(); ok {
		at = b.Time
	}
	m.timescale = ts
	m.loadDevice()
	if at.IsZero() {
		return
	}
	start := ts.Truncate(at, m.loc)
	for i, b := range m.buckets {
		if !b.Time.Before(start) {
			m.cursor = i
			break
		}
	}
}

// skip is the H/L jump: one unit of the next-larger calendar period.
func (m Model) skip() int {
	switch m.timescale {
	case aggregate.Minutely:
		return 60
	case aggregate.Hourly:
		return 24
	case aggregate.Daily:
		return 30
	}
	return 12
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		last := len(m.buckets) - 1
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case "left", "h":
			if m.cursor > 0 {
				m.cursor--
			}
		case "right", "l":
			if m.cursor < last {
				m.cursor++
			}
		case "shift+left", "H":
			m.cursor -= m.skip()
			if m.cursor < 0 {
				m.cursor = 0
			}
		case "shift+right", "L":
			m.cursor += m.skip()
			if m.cursor > last {
				m.cursor = max(last, 0)
			}
		case "home":
			m.cursor = 0
		case "end":
			m.cursor = max(last, 0)

		case "[":
			if m.deviceIdx > 0 {
				m.deviceIdx--
				m.loadDevice()
			}
		case "]":
			if m.deviceIdx < len(m.devices)-1 {
				m.deviceIdx++
				m.loadDevice()
			}

		case "1":
			m.setTimescale(aggregate.Minutely)
		case "2":
			m.setTimescale(aggregate.Hourly)
		case "3":
			m.setTimescale(aggregate.Daily)
		case "4":
			m.setTimescale(aggregate.Monthly)

		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Loading..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string

	sections = append(sections, m.renderTitle(contentWidth))

	if m.err != nil {
		errBox := lipgloss.NewStyle().
			Foreground(colorCrit).
			Bold(true).
			Padding(0, 1).
			Render(fmt.Sprintf("ERROR: %v", m.err))
		sections = append(sections, errBox)
	}

	if len(m.buckets) == 0 {
		empty := lipgloss.NewStyle().
			Foreground(colorDim).
			Padding(2, 0).
			Align(lipgloss.Center).
			Width(contentWidth).
			Render("No data for this device.")
		sections = append(sections, empty)
	} else {
		sections = append(sections, m.renderCursorInfo(contentWidth))
		sections = append(sections, m.renderPanel(contentWidth))
	}

	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	start := m.scroll
	if start > maxScroll {
		start = maxScroll
	}
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m Model) renderTitle(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("TEMPDASH HISTORY")

	deviceText := lipgloss.NewStyle().
		Foreground(colorCursor).
		Bold(true).
		Render(m.Device())

	nav := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  [ %d/%d ]  %s", m.deviceIdx+1, len(m.devices), m.timescale))

	dataInfo := ""
	if len(m.buckets) > 0 {
		first := bucketLabel(m.timescale, m.buckets[0].Time)
		last := bucketLabel(m.timescale, m.buckets[len(m.buckets)-1].Time)
		dataInfo = lipgloss.NewStyle().
			Foreground(colorDim).
			Render(fmt.Sprintf("  %s - %s  (%d readings, %d buckets)",
				first, last, m.readings, len(m.buckets)))
	}

	right := deviceText + nav + dataInfo

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderCursorInfo(width int) string {
	b, ok := m.Cursor()
	if !ok {
		return ""
	}

	ts := lipgloss.NewStyle().
		Foreground(colorCursor).
		Bold(true).
		Render(bucketLabel(m.timescale, b.Time))

	pos := lipgloss.NewStyle().
		Foreground(colorDim).
		Render(fmt.Sprintf("  %d/%d", m.cursor+1, len(m.buckets)))

	barWidth := width - 40
	if barWidth < 10 {
		barWidth = 10
	}

	return lipgloss.NewStyle().
		Padding(0, 1).
		Render("  " + ts + pos + "  " + m.renderScrubber(barWidth))
}

func (m Model) renderScrubber(width int) string {
	n := len(m.buckets)
	if n == 0 || width <= 0 {
		return ""
	}

	pos := 0
	if n > 1 {
		pos = m.cursor * (width - 1) / (n - 1)
	}
	if pos >= width {
		pos = width - 1
	}

	var sb strings.Builder
	dimS := lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	curS := lipgloss.NewStyle().Foreground(colorCursor).Bold(true)
	tickS := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i := 0; i < width; i++ {
		if i == pos {
			sb.WriteString(curS.Render("◆"))
			continue
		}
		idx := 0
		if n > 1 && width > 1 {
			idx = i * (n - 1) / (width - 1)
		}
		if idx > 0 && m.timescale.Boundary(m.buckets[idx-1].Time, m.buckets[idx].Time) {
			sb.WriteString(tickS.Render("│"))
			continue
		}
		sb.WriteString(dimS.Render("─"))
	}

	return sb.String()
}

func (m Model) renderPanel(totalWidth int) string {
	b, ok := m.Cursor()
	if !ok {
		return ""
	}

	innerWidth := totalWidth - 4
	if innerWidth < 30 {
		innerWidth = 30
	}
	chartWidth := innerWidth - 50
	if chartWidth < 15 {
		chartWidth = 15
	}
	if chartWidth > 140 {
		chartWidth = 140
	}

	labelW := 16
	tempW := 8
	lo, hi := m.series.Range(1)
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	var rows []string
	rows = append(rows, lipgloss.NewStyle().Bold(true).Foreground(colorChipName).Render(m.Device())+
		"  "+dimS.Render(m.ds.Dir()))

	colLabel := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(labelW).Render("bucket")
	colVal := lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(tempW).Align(lipgloss.Right).Render("avg")
	colHist := lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(strings.Repeat(" ", chartWidth/2-3) + "history")
	rows = append(rows, colLabel+" "+colVal+"  "+colHist)
	rows = append(rows, lipgloss.NewStyle().Foreground(lipgloss.Color("237")).Render(strings.Repeat("─", innerWidth)))

	window := sparkWindow(m.series.Points, m.cursor, chartWidth)

	label := lipgloss.NewStyle().
		Foreground(colorLabel).
		Bold(true).
		Width(labelW).
		Render(bucketLabel(m.timescale, b.Time))
	temp := lipgloss.NewStyle().
		Width(tempW).
		Align(lipgloss.Right).
		Render(chart.RenderTempValue(b.Avg, lo, hi))

	frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
	frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")
	spark := frameL + chart.RenderSparklinePoints(window, chartWidth, lo, hi, m.timescale) + frameR

	stats := dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", b.Min)) +
		dimS.Render(" hi") + valS.Render(fmt.Sprintf("%5.1f", b.Max)) +
		dimS.Render(" n") + valS.Render(fmt.Sprintf("%d", b.Count))

	rows = append(rows, label+" "+temp+" "+spark+stats)

	if timeline := chart.RenderTimeline(window, chartWidth, m.timescale); strings.TrimSpace(timeline) != "" {
		rows = append(rows, strings.Repeat(" ", labelW+tempW+2)+timeline)
	}

	overall := dimS.Render("all  avg") + valS.Render(fmt.Sprintf("%5.1f", m.series.Avg())) +
		dimS.Render(" lo") + valS.Render(fmt.Sprintf("%5.1f", m.series.Min)) +
		dimS.Render(" pk") + valS.Render(fmt.Sprintf("%5.1f", m.series.Peak))
	rows = append(rows, "", overall)

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(totalWidth).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderFooter(width int) string {
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	keyS := lipgloss.NewStyle().Foreground(colorLabel)

	keys := dimS.Render("q") + keyS.Render(":quit") +
		dimS.Render("  h/l") + keyS.Render(":scrub") +
		dimS.Render("  H/L") + keyS.Render(":skip") +
		dimS.Render("  home/end") + keyS.Render(":jump") +
		dimS.Render("  [/]") + keyS.Render(":device") +
		dimS.Render("  1-4") + keyS.Render(":timescale") +
		dimS.Render("  j/k") + keyS.Render(":scroll")

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(keys)
}

// ── Helpers ──────────────────────────────────────────────────────────

// bucketLabel names a bucket unambiguously, unlike the short axis labels.
func bucketLabel(ts aggregate.Timescale, t time.Time) string {
	switch ts {
	case aggregate.Minutely, aggregate.Hourly:
		return t.Format("2006-01-02 15:04")
	}
	return ts.Format(t)
}

// sparkWindow returns up to width points ending at the cursor.
func sparkWindow(pts []history.Point, cursor, width int) []history.Point {
	if len(pts) == 0 || cursor < 0 || cursor >= len(pts) || width <= 0 {
		return nil
	}
	start := cursor - width + 1
	if start < 0 {
		start = 0
	}
	return pts[start : cursor+1]
}
