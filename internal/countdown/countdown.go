package countdown

import (
	"fmt"
	"time"
)

// ExpiredLabel replaces the time value once a session has expired.
const ExpiredLabel = "Expired"

// Format renders d as MM:SS using whole seconds, truncating any fraction.
// Zero and negative durations render as "00:00". There is no hours field.
func Format(d time.Duration) string {
	if d <= 0 {
		return "00:00"
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// FormatMillis is Format for a signed millisecond count. It works on the
// count directly so values beyond time.Duration's range do not wrap.
func FormatMillis(ms int64) string {
	if ms <= 0 {
		return "00:00"
	}
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
