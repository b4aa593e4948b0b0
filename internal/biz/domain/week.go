package domain

import "time"

// WeekLayout is the persisted form of a week start date
const WeekLayout = "2006-01-02"

// WeekStart returns midnight of the Monday at or before t, in loc
func WeekStart(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	offset := (int(local.Weekday()) + 6) % 7 // Monday=0 ... Sunday=6
	y, m, d := local.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
}

// WeekKey formats the week containing t as its Monday date (YYYY-MM-DD)
func WeekKey(t time.Time, loc *time.Location) string {
	return WeekStart(t, loc).Format(WeekLayout)
}
