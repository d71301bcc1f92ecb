package calltimer

import (
	"fmt"
	"time"
)

// Format renders d as MM:SS, floored to whole seconds. There is no hour
// component; from 100 minutes on the minute field simply grows (123:04).
func Format(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
