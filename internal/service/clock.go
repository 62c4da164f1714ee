package service

import "time"

// DateLayout is the calendar-day format used for streaks, plans and schedules.
const DateLayout = "2006-01-02"

// Clock supplies the current instant and the calendar day in the planner's
// time zone. Instants are always returned in UTC.
type Clock struct {
	now func() time.Time
	loc *time.Location
}

func NewClock(loc *time.Location) Clock {
	return NewClockFunc(time.Now, loc)
}

// NewClockFunc builds a Clock over an arbitrary time source.
func NewClockFunc(now func() time.Time, loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{now: now, loc: loc}
}

func (c Clock) Now() time.Time {
	return c.now().UTC()
}

// Today is the current calendar day in the clock's zone.
func (c Clock) Today() string {
	return c.now().In(c.loc).Format(DateLayout)
}

// DaysAgo is the calendar day n days before today.
func (c Clock) DaysAgo(n int) string {
	return c.now().In(c.loc).AddDate(0, 0, -n).Format(DateLayout)
}

// previousDay returns the calendar day before date, or "" if date is malformed.
func previousDay(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return d.AddDate(0, 0, -1).Format(DateLayout)
}
