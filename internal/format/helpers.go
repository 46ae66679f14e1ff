package format

import (
	"fmt"
	"math"
	"strconv"
)

// Duration formats seconds as "h:mm:ss", rounded to the nearest second.
// Negative and non-finite values render as "0:00:00".
func Duration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		seconds = 0
	}
	s := int64(math.Round(seconds))
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
}

// Energy formats an energy in eV with the fewest digits that survive a
// round trip, capped at three decimals.
func Energy(ev float64) string {
	return strconv.FormatFloat(math.Round(ev*1000)/1000, 'f', -1, 64)
}

// Seconds formats an exposure or step time.
func Seconds(s float64) string {
	return strconv.FormatFloat(math.Round(s*100)/100, 'f', -1, 64)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// BoolMark returns "✓" for true and "✗" for false.
func BoolMark(v bool) string {
	if v {
		return "✓"
	}
	return "✗"
}
