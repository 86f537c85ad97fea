// internal/stats/fields.go
package stats

import (
	"fmt"
	"strconv"
	"time"
)

// timeFields are the bucket labels of one commit, all derived in UTC.
type timeFields struct {
	Date    string
	Month   string
	Week    string
	Year    string
	WeekDay string
	Hour    string
	Quarter string
}

func fieldsOf(t time.Time) timeFields {
	t = t.UTC()
	isoYear, isoWeek := t.ISOWeek()
	return timeFields{
		Date:    t.Format(time.DateOnly),
		Month:   t.Format("2006-01"),
		Week:    fmt.Sprintf("%d-W%02d", isoYear, isoWeek),
		Year:    strconv.Itoa(t.Year()),
		WeekDay: strconv.Itoa(int(t.Weekday())),
		Hour:    strconv.Itoa(t.Hour()),
		Quarter: strconv.Itoa(t.Hour()*4 + t.Minute()/15),
	}
}
