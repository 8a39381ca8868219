package transform

import (
	"time"

	"github.com/vvka-141/sparketl/pkg/sparketl"
)

// DecomposeTime interprets ms as milliseconds since the Unix epoch in UTC
// and derives the time dimension columns. Weekday counts Monday as 0.
func DecomposeTime(ms int64) sparketl.TimeRecord {
	t := time.UnixMilli(ms).UTC()
	_, week := t.ISOWeek()
	return sparketl.TimeRecord{
		StartTime: t,
		Hour:      t.Hour(),
		Day:       t.Day(),
		Week:      week,
		Month:     int(t.Month()),
		Year:      t.Year(),
		Weekday:   (int(t.Weekday()) + 6) % 7,
	}
}
