// Package chart renders temperature series for the terminal: sparklines
// with calendar boundary ticks, timeline labels, a multi-row trend chart
// and slider bars.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/tempdash/internal/aggregate"
	"github.com/luki/tempdash/internal/history"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

var (
	colorEmpty = lipgloss.Color("236")
	colorTick  = lipgloss.Color("239")
	colorAxis  = lipgloss.Color("243")
)

// ValueColor returns the color for v relative to the [lo, hi] span.
func ValueColor(v, lo, hi float64) lipgloss.Color {
	norm := normalize(v, lo, hi)
	switch {
	case norm >= 0.9:
		return lipgloss.Color("196") // red
	case norm >= 0.75:
		return lipgloss.Color("208") // orange
	case norm >= 0.5:
		return lipgloss.Color("220") // yellow
	case norm >= 0.25:
		return lipgloss.Color("78") // soft green
	default:
		return lipgloss.Color("75") // blue
	}
}

func normalize(v, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	return math.Max(0, math.Min(1, (v-lo)/span))
}

func tail(points []history.Point, width int) []history.Point {
	if len(points) > width {
		return points[len(points)-width:]
	}
	return points
}

func isTick(points []history.Point, i int, ts aggregate.Timescale) bool {
	if i == 0 || points[i].Time.IsZero() || points[i-1].Time.IsZero() {
		return false
	}
	return ts.Boundary(points[i-1].Time, points[i].Time)
}

// RenderSparkline renders bare values without ticks.
func RenderSparkline(values []float64, width int, lo, hi float64) string {
	pts := make([]history.Point, len(values))
	for i, v := range values {
		pts[i] = history.Point{Value: v}
	}
	return RenderSparklinePoints(pts, width, lo, hi, aggregate.Default)
}

// RenderSparklinePoints renders a sparkline with a subtle pipe wherever the
// next-larger calendar unit of ts changes.
func RenderSparklinePoints(points []history.Point, width int, lo, hi float64, ts aggregate.Timescale) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(colorEmpty)
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}

	points = tail(points, width)
	padLen := width - len(points)

	var sb strings.Builder
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(colorTick)
	for i, p := range points {
		if isTick(points, i, ts) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}
		idx := int(normalize(p.Value, lo, hi) * 7)
		if idx > 7 {
			idx = 7
		}
		style := lipgloss.NewStyle().Foreground(ValueColor(p.Value, lo, hi))
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

// TickLabel formats the label printed under a boundary tick: the larger
// unit that just started.
func TickLabel(ts aggregate.Timescale, p history.Point) string {
	switch ts {
	case aggregate.Minutely:
		return p.Time.Format("15:04")
	case aggregate.Hourly:
		return p.Time.Format("Jan 02")
	case aggregate.Daily:
		return p.Time.Format("Jan")
	case aggregate.Monthly:
		return p.Time.Format("2006")
	}
	return ""
}

// RenderTimeline renders the labels under a sparkline or trend chart,
// one at each boundary tick, plus the first and last bucket.
func RenderTimeline(points []history.Point, width int, ts aggregate.Timescale) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	points = tail(points, width)
	padLen := width - len(points)

	line := []rune(strings.Repeat(" ", width))

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick
	if !points[0].Time.IsZero() {
		ticks = append(ticks, tick{pos: padLen, label: ts.Format(points[0].Time)})
	}
	for i := range points {
		if isTick(points, i, ts) {
			ticks = append(ticks, tick{pos: padLen + i, label: TickLabel(ts, points[i])})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos
		end := start + len([]rune(t.label))
		if end > width || start <= lastEnd+1 {
			continue
		}
		for j, ch := range []rune(t.label) {
			line[start+j] = ch
		}
		lastEnd = end
	}

	last := points[len(points)-1]
	if !last.Time.IsZero() {
		label := []rune(ts.Format(last.Time))
		start := width - len(label)
		if start > lastEnd+1 {
			copy(line[start:], label)
		}
	}

	return lipgloss.NewStyle().Foreground(colorTick).Render(string(line))
}

// RenderTrend renders a height-row column chart with a y axis on the left.
// Each column is one point; the newest point is on the right.
func RenderTrend(points []history.Point, width, height int, lo, hi float64) string {
	const axisW = 7
	if height < 2 {
		height = 2
	}
	plotW := width - axisW - 1
	if plotW <= 0 {
		return ""
	}

	points = tail(points, plotW)
	padLen := plotW - len(points)

	axis := lipgloss.NewStyle().Foreground(colorAxis)
	rows := make([]string, 0, height)

	for r := 0; r < height; r++ {
		level := height - 1 - r

		var label string
		switch r {
		case 0:
			label = fmt.Sprintf("%6.1f", hi)
		case height - 1:
			label = fmt.Sprintf("%6.1f", lo)
		case height / 2:
			label = fmt.Sprintf("%6.1f", lo+(hi-lo)*float64(level)/float64(height-1))
		default:
			label = strings.Repeat(" ", 6)
		}

		var sb strings.Builder
		sb.WriteString(axis.Render(label + " │"))
		sb.WriteString(strings.Repeat(" ", padLen))

		for _, p := range points {
			eighths := int(math.Round(normalize(p.Value, lo, hi) * float64(height*8)))
			if eighths < 1 {
				eighths = 1
			}
			fill := eighths - level*8
			switch {
			case fill <= 0:
				sb.WriteString(" ")
			default:
				if fill > 8 {
					fill = 8
				}
				style := lipgloss.NewStyle().Foreground(ValueColor(p.Value, lo, hi))
				sb.WriteString(style.Render(string(sparkBlocks[fill-1])))
			}
		}
		rows = append(rows, sb.String())
	}

	rows = append(rows, axis.Render(strings.Repeat(" ", axisW)+"└"+strings.Repeat("─", plotW)))
	return strings.Join(rows, "\n")
}

// RenderSlider renders a slider bar with a marker at value within [min, max].
func RenderSlider(value, min, max float64, width int, active bool) string {
	if width <= 0 {
		return ""
	}

	pos := int(float64(width-1) * normalize(value, min, max))

	markerColor := lipgloss.Color("250")
	if active {
		markerColor = lipgloss.Color("214")
	}
	filled := lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	empty := lipgloss.NewStyle().Foreground(colorEmpty)
	marker := lipgloss.NewStyle().Foreground(markerColor).Bold(true)

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == pos:
			sb.WriteString(marker.Render("◆"))
		case i < pos:
			sb.WriteString(filled.Render("━"))
		default:
			sb.WriteString(empty.Render("·"))
		}
	}
	return sb.String()
}

// RenderTempValue renders a temperature with color coding relative to the
// series span.
func RenderTempValue(v, lo, hi float64) string {
	s := fmt.Sprintf("%5.1f°C", v)
	style := lipgloss.NewStyle().Foreground(ValueColor(v, lo, hi))
	if normalize(v, lo, hi) >= 0.9 {
		style = style.Bold(true)
	}
	return style.Render(s)
}
