package dashboard

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/tempdash/internal/aggregate"
	"github.com/luki/tempdash/internal/chart"
	"github.com/luki/tempdash/internal/history"
	"github.com/luki/tempdash/internal/sensor"
	"github.com/luki/tempdash/internal/socket"
)

const (
	trendHeight = 10
	sliderWidth = 40
	axisWidth   = 8 // y axis labels plus the axis line
)

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorAccent   = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorOk       = lipgloss.Color("78")
	colorWarn     = lipgloss.Color("220")
	colorCrit     = lipgloss.Color("196")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.renderTitleBar(contentWidth))
	sections = append(sections, m.renderControls(contentWidth))

	if m.devicesErr != "" {
		sections = append(sections, errorLine(contentWidth, m.devicesErr))
	}

	if m.Device() != "" {
		if m.lostDevice != "" {
			banner := lipgloss.NewStyle().
				Foreground(colorCrit).
				Width(contentWidth).
				Padding(0, 1).
				Render("Sensor connection lost for device: " + lipgloss.NewStyle().Bold(true).Render(m.lostDevice))
			sections = append(sections, banner)
		}
		sections = append(sections, m.renderSettings(contentWidth))
		sections = append(sections, m.renderTrend(contentWidth))
	} else if m.devicesErr == "" && m.devices != nil {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(colorDim).
			Width(contentWidth).
			Align(lipgloss.Center).
			Padding(1, 0).
			Render("No devices"))
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

func errorLine(width int, msg string) string {
	return lipgloss.NewStyle().
		Foreground(colorCrit).
		Bold(true).
		Width(width).
		Padding(0, 1).
		Render(" ERROR: " + msg)
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("TEMPERATURE SENSOR DASHBOARD")

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	statusParts := []string{m.renderLink()}

	if m.store != nil {
		rec := lipgloss.NewStyle().Foreground(colorCrit).Render("REC") +
			dimS.Render(" "+m.store.Dir())
		statusParts = append(statusParts, rec)
	}
	statusParts = append(statusParts, dimS.Render(m.now().In(m.loc).Format("15:04:05")))

	sep := dimS.Render(" │ ")
	right := strings.Join(statusParts, sep)

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

func (m Model) renderLink() string {
	switch m.link {
	case socket.StatusConnected:
		return lipgloss.NewStyle().Foreground(colorOk).Render("● live")
	case socket.StatusConnecting:
		return lipgloss.NewStyle().Foreground(colorWarn).Render("◌ connecting")
	}
	return lipgloss.NewStyle().Foreground(colorCrit).Render("○ offline")
}

func (m Model) renderControls(width int) string {
	active := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("16")).
		Background(colorAccent).
		Padding(0, 1)
	inactive := lipgloss.NewStyle().
		Foreground(colorLabel).
		Padding(0, 1)

	var chips []string
	for i, ts := range aggregate.Timescales {
		label := fmt.Sprintf("%d %s", i+1, ts)
		if ts == m.timescale {
			chips = append(chips, active.Render(label))
		} else {
			chips = append(chips, inactive.Render(label))
		}
	}

	dimS := lipgloss.NewStyle().Foreground(colorDim)
	device := dimS.Render("-- Select a device --")
	if d := m.Device(); d != "" {
		device = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(d) +
			dimS.Render(fmt.Sprintf(" (%d/%d)", m.selected+1, len(m.devices)))
	}

	load := dimS.Render("[enter] Load Temperature Data")
	if m.loading {
		load = m.spinner.View() + " Loading..."
	} else if m.Device() == "" {
		load = lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render("[enter] Load Temperature Data")
	}

	row := strings.Join(chips, " ") + "   " + dimS.Render("Device: ") + device + "   " + load
	return lipgloss.NewStyle().Width(width).Padding(0, 1).Render(row)
}

func (m Model) renderSettings(width int) string {
	labelS := lipgloss.NewStyle().Foreground(colorLabel)
	dimS := lipgloss.NewStyle().Foreground(colorDim)
	cursor := func(field int) string {
		if m.focus == field {
			return lipgloss.NewStyle().Foreground(colorAccent).Render("▸ ")
		}
		return "  "
	}

	var rows []string
	rows = append(rows, lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render("Sensor Settings"))

	toggle := dimS.Render("[ ]")
	if m.draft.Enabled {
		toggle = lipgloss.NewStyle().Foreground(colorOk).Render("[x]")
	}
	rows = append(rows, cursor(fieldEnabled)+toggle+" "+labelS.Render("Signal Enabled"))

	rows = append(rows, cursor(fieldPeriod)+labelS.Render(fmt.Sprintf("Period (ms): %d", m.draft.Period)))
	rows = append(rows, "  "+chart.RenderSlider(float64(m.draft.Period), sensor.MinPeriod, sensor.MaxPeriod, sliderWidth, m.focus == fieldPeriod))
	rows = append(rows, cursor(fieldAmplitude)+labelS.Render(fmt.Sprintf("Amplitude: %d", m.draft.Amplitude)))
	rows = append(rows, "  "+chart.RenderSlider(float64(m.draft.Amplitude), sensor.MinAmplitude, sensor.MaxAmplitude, sliderWidth, m.focus == fieldAmplitude))

	button := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("16")).
		Background(colorAccent).
		Padding(0, 1).
		Render("[a] Apply")
	if m.settingsBusy {
		button = dimS.Render("[a] Apply") + " " + m.spinner.View()
	}
	rows = append(rows, "", button)

	if m.applied && !m.settingsBusy {
		rows = append(rows, lipgloss.NewStyle().Foreground(colorOk).Render("Settings applied!"))
	}
	if m.settingsErr != "" {
		rows = append(rows, lipgloss.NewStyle().Foreground(colorCrit).Render(m.settingsErr))
	}

	if m.current != nil {
		rows = append(rows, "", labelS.Render("Current Sensor Settings:"))
		if data, err := json.MarshalIndent(m.current, "", "  "); err == nil {
			rows = append(rows, lipgloss.NewStyle().
				Foreground(lipgloss.Color("250")).
				Background(colorFooterBg).
				Padding(0, 1).
				Render(string(data)))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderTrend(width int) string {
	device := m.Device()
	title := lipgloss.NewStyle().Foreground(colorLabel).Render("Temperature Trend for ") +
		lipgloss.NewStyle().Bold(true).Foreground(colorAccent).Render(device)

	rows := []string{title}
	if m.loadErr != "" {
		rows = append(rows, lipgloss.NewStyle().Foreground(colorCrit).Render(m.loadErr))
	}

	buckets, err := aggregate.Series(m.readings, m.timescale, m.now(), m.loc)
	if err != nil {
		rows = append(rows, lipgloss.NewStyle().Foreground(colorCrit).Render(err.Error()))
	}

	innerWidth := width - 4
	if len(buckets) == 0 {
		rows = append(rows, lipgloss.NewStyle().Foreground(colorDim).PaddingTop(1).Render("No data"))
	} else {
		buf := history.FromBuckets(buckets, 0)
		lo, hi := buf.Range(1)
		pts := buf.LastNPoints(innerWidth - axisWidth)

		rows = append(rows, chart.RenderTrend(pts, innerWidth, trendHeight, lo, hi))
		if timeline := chart.RenderTimeline(pts, innerWidth-axisWidth, m.timescale); strings.TrimSpace(timeline) != "" {
			rows = append(rows, strings.Repeat(" ", axisWidth)+timeline)
		}

		dimS := lipgloss.NewStyle().Foreground(colorDim)
		valS := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
		stats := dimS.Render("last ") + chart.RenderTempValue(buf.Last(), lo, hi) +
			dimS.Render("  avg") + valS.Render(fmt.Sprintf("%5.1f", buf.Avg())) +
			dimS.Render("  lo") + valS.Render(fmt.Sprintf("%5.1f", buf.Min)) +
			dimS.Render("  pk") + valS.Render(fmt.Sprintf("%5.1f", buf.Peak)) +
			dimS.Render(fmt.Sprintf("  %d buckets, %d readings", len(buckets), len(m.readings)))
		rows = append(rows, stats)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderFooter(width int) string {
	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(m.help.View(keys))
}
