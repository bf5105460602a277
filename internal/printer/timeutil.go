package printer

import (
	"fmt"
	"time"
)

const noTime = "-"

var relativeUnits = []struct {
	size time.Duration
	name string
}{
	{24 * time.Hour, "day"},
	{time.Hour, "hour"},
	{time.Minute, "minute"},
	{time.Second, "second"},
}

// TimeAgo returns how long ago t was, e.g "3 hours ago".
func TimeAgo(t time.Time) string {
	return RelativeTime(time.Now(), t)
}

// RelativeTime returns how long before now t was, using the largest whole unit.
// Zero times (not returned by the API) are printed as "-".
func RelativeTime(now, t time.Time) string {
	if t.IsZero() {
		return noTime
	}

	diff := now.Sub(t)
	if diff < 0 {
		return "in the future"
	}

	for _, u := range relativeUnits {
		n := int(diff / u.size)
		if n == 0 {
			continue
		}
		if n == 1 {
			return fmt.Sprintf("1 %s ago", u.name)
		}
		return fmt.Sprintf("%d %ss ago", n, u.name)
	}

	return "just now"
}

// FormatTimestamp returns t in UTC, e.g "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return noTime
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}
