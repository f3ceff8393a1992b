package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/treppan-learn/backend/internal/models"
)

// ParseDurationLabel parses "mm:ss" or "h:mm:ss" lesson labels.
func ParseDurationLabel(label string) (time.Duration, bool) {
	parts := strings.Split(strings.TrimSpace(label), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	var total int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0, false
		}
		if i > 0 && n >= 60 {
			return 0, false
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second, true
}

// TotalDuration sums the parseable duration labels of lessons.
func TotalDuration(lessons []models.Lesson) time.Duration {
	var total time.Duration
	for _, l := range lessons {
		if d, ok := ParseDurationLabel(l.DurationLabel); ok {
			total += d
		}
	}
	return total
}

// FormatTotal renders a course length as "2h 17m" or "45m". Seconds are truncated.
func FormatTotal(d time.Duration) string {
	minutes := int(d / time.Minute)
	h, m := minutes/60, minutes%60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

// CourseSummaryLine renders the sidebar header line, e.g. "6 lessons • 2h 17m total".
func CourseSummaryLine(lessons []models.Lesson) string {
	noun := "lessons"
	if len(lessons) == 1 {
		noun = "lesson"
	}
	return fmt.Sprintf("%d %s • %s total", len(lessons), noun, FormatTotal(TotalDuration(lessons)))
}
