package chart

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/tempdash/internal/aggregate"
	"github.com/luki/tempdash/internal/history"
)

func hourlyPoints(n int) []history.Point {
	base := time.Date(2026, 2, 21, 12, 0, 0, 0, time.Local)
	var pts []history.Point
	for i := 0; i < n; i++ {
		pts = append(pts, history.Point{
			Value: float64(20 + i%5),
			Time:  base.Add(time.Duration(i) * time.Hour),
		})
	}
	return pts
}

func TestSparkline(t *testing.T) {
	values := []float64{30, 35, 40, 50, 60, 70, 80, 90, 100}
	result := RenderSparkline(values, 20, 20, 110)
	if len(result) == 0 {
		t.Error("sparkline should not be empty")
	}
	if w := lipgloss.Width(result); w != 20 {
		t.Errorf("sparkline width: got %d, want 20", w)
	}
	t.Logf("Sparkline: %s", result)
}

func TestSparklineDayTicks(t *testing.T) {
	pts := hourlyPoints(20)

	result := RenderSparklinePoints(pts, 20, 15, 30, aggregate.Hourly)
	if !strings.Contains(result, "│") {
		t.Error("expected a midnight tick mark in hourly sparkline")
	}
	t.Logf("Sparkline with ticks: %s", result)
}

func TestSparklineEmpty(t *testing.T) {
	result := RenderSparklinePoints(nil, 10, 0, 1, aggregate.Daily)
	if w := lipgloss.Width(result); w != 10 {
		t.Errorf("empty sparkline width: got %d, want 10", w)
	}
}

func TestTimeline(t *testing.T) {
	pts := hourlyPoints(20)
	line := RenderTimeline(pts, 20, aggregate.Hourly)
	if !strings.Contains(line, "Feb 22") {
		t.Errorf("expected day label in timeline, got %q", line)
	}
	if !strings.Contains(line, "12:00") {
		t.Errorf("expected first bucket label in timeline, got %q", line)
	}
}

func TestTrendDimensions(t *testing.T) {
	pts := hourlyPoints(30)
	out := RenderTrend(pts, 50, 6, 15, 30)
	rows := strings.Split(out, "\n")
	if len(rows) != 7 {
		t.Fatalf("expected 6 rows plus axis, got %d", len(rows))
	}
	for i, r := range rows {
		if w := lipgloss.Width(r); w != 50 {
			t.Errorf("row %d width: got %d, want 50", i, w)
		}
	}
	if !strings.Contains(rows[0], "30.0") || !strings.Contains(rows[5], "15.0") {
		t.Errorf("expected axis labels, got %q / %q", rows[0], rows[5])
	}
}

func TestSlider(t *testing.T) {
	s := RenderSlider(50, 0, 100, 21, true)
	if w := lipgloss.Width(s); w != 21 {
		t.Errorf("slider width: got %d, want 21", w)
	}
	if !strings.Contains(s, "◆") {
		t.Error("slider should contain a marker")
	}
}

func TestValueColor(t *testing.T) {
	if ValueColor(0, 0, 10) == ValueColor(10, 0, 10) {
		t.Error("bottom and top of range should differ in color")
	}
	if ValueColor(5, 5, 5) == "" {
		t.Error("degenerate range should still produce a color")
	}
}
