package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Braille cells are 2 dots wide and 4 dots tall. Bits from U+2800:
//
//	row 0: bit 0, bit 3
//	row 1: bit 1, bit 4
//	row 2: bit 2, bit 5
//	row 3: bit 6, bit 7
const brailleBase = '⠀'

var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

var sparklineBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Scale selects how values map onto graph height.
type Scale int

const (
	// ScalePercent pins the range to 0..100.
	ScalePercent Scale = iota
	// ScaleRate stretches 0..max(data), for throughput.
	ScaleRate
)

func bounds(data []float64, scale Scale) (lo, hi float64) {
	if scale == ScalePercent {
		return 0, 100
	}
	for _, v := range data {
		if v > hi {
			hi = v
		}
	}
	return 0, hi
}

func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	n := (v - lo) / (hi - lo)
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}

func clampInt(v, maxVal int) int {
	if v < 0 {
		return 0
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// RenderBrailleGraph draws data as a width x height braille graph. Short
// series are right-aligned so the newest point sits at the right edge.
// Percent graphs are colored per column by threshold; rate graphs use color.
func RenderBrailleGraph(data []float64, width, height int, scale Scale, color lipgloss.Color) string {
	if len(data) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	lo, hi := bounds(data, scale)
	totalDots := height * 4
	points := width * 2

	series := data
	if len(data) > points {
		series = resample(data, points)
	}

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(string(brailleBase), width))
	}
	colMax := make([]float64, width)

	offset := points - len(series)
	for i, v := range series {
		x := i + offset
		col := x / 2
		if col >= width {
			continue
		}
		if v > colMax[col] {
			colMax[col] = v
		}

		dots := clampInt(int(normalize(v, lo, hi)*float64(totalDots)), totalDots)
		for d := 0; d < dots; d++ {
			row := height - 1 - d/4
			grid[row][col] |= rune(1 << brailleDots[3-d%4][x%2])
		}
	}

	lines := make([]string, 0, height)
	for _, row := range grid {
		var b strings.Builder
		for col, ch := range row {
			c := color
			if scale == ScalePercent {
				c = MetricColor(colMax[col])
			}
			b.WriteString(lipgloss.NewStyle().Foreground(c).Render(string(ch)))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// RenderSparkline draws a one-row block sparkline of the last width points.
func RenderSparkline(data []float64, width int, scale Scale) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	lo, hi := bounds(data, scale)
	var b strings.Builder
	for _, v := range data {
		idx := clampInt(int(normalize(v, lo, hi)*float64(len(sparklineBlocks)-1)), len(sparklineBlocks)-1)
		b.WriteRune(sparklineBlocks[idx])
	}

	color := ColorGraph
	if scale == ScalePercent {
		color = MetricColor(data[len(data)-1])
	}
	return lipgloss.NewStyle().Foreground(color).Render(b.String())
}

// resample shrinks data to size buckets keeping each bucket's peak.
func resample(data []float64, size int) []float64 {
	if size <= 0 || len(data) == 0 {
		return nil
	}
	if len(data) <= size {
		return data
	}

	out := make([]float64, size)
	bucket := float64(len(data)) / float64(size)
	for i := range out {
		start := int(float64(i) * bucket)
		end := int(float64(i+1) * bucket)
		if end > len(data) {
			end = len(data)
		}
		if start >= end {
			start = end - 1
		}

		peak := data[start]
		for _, v := range data[start+1 : end] {
			if v > peak {
				peak = v
			}
		}
		out[i] = peak
	}
	return out
}
