package lutronleap

import (
	"fmt"
	"time"
)

// encodeFadeTime renders d as LEAP's zero-padded HH:MM:SS duration
// string. Negative durations clamp to zero; d is truncated to whole
// seconds, matching the bridge's own resolution.
func encodeFadeTime(d time.Duration) string {
	total := int(d / time.Second)
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
