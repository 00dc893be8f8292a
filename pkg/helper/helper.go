package helper

import (
	"fmt"
	"math"
	"strings"
)

// SecondsToMinutes formats a lap time as mm:ss.mmm.
func SecondsToMinutes(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	minutes := int(seconds / 60)
	seconds = seconds - float64(minutes*60)
	milliseconds := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d.%03d", minutes, int(seconds), milliseconds)
}

// SecondsToDiff formats a gap right aligned to nine columns.
func SecondsToDiff(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return padLeft(fmt.Sprintf("%.3fs", seconds), 9)
}

// SignedGap formats a relative gap, negative for cars ahead.
func SignedGap(seconds float64) string {
	if math.Abs(seconds) < 0.0005 {
		return padLeft("0.000s", 9)
	}
	return padLeft(fmt.Sprintf("%+.3fs", seconds), 9)
}

// Percent formats a 0..1 fraction.
func Percent(v float64) string {
	return fmt.Sprintf("%3.0f%%", math.Max(0, math.Min(v, 1))*100)
}

func padLeft(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", width-len(s)) + s
}
