package workout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/claude/stitch/internal/models"
)

// FormatClock renders seconds as m:ss, the session and rest clock format.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatDuration renders a planned duration compactly: plain seconds under
// a minute, m:ss otherwise.
func FormatDuration(seconds int) string {
	if seconds < 60 {
		return strconv.Itoa(seconds)
	}
	return FormatClock(seconds)
}

// ParseDuration accepts "90" or "1:30" and returns seconds. Malformed input
// yields 0.
func ParseDuration(input string) int {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0
	}

	if strings.Contains(input, ":") {
		parts := strings.Split(input, ":")
		if len(parts) != 2 {
			return 0
		}
		m, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
		s, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
		return m*60 + s
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		return 0
	}
	return n
}

// TargetLabel renders the rep or time target of a step, or an em dash for
// failure sets which have none.
func TargetLabel(s Step) string {
	if !s.HasRepTarget() {
		return "—"
	}
	if s.TrackingType == models.TrackTime {
		return FormatDuration(s.TargetTime)
	}
	return strconv.Itoa(s.TargetReps)
}
