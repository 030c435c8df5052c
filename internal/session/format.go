package session

import (
	"fmt"
	"time"
)

// FormatRemaining renders d as whole minutes and seconds, e.g. "29:05".
// Negative durations render as "0:00".
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
