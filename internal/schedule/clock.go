package schedule

import "time"

const (
	clockLayout = "15:04:05"
	dayLayout   = "2006-01-02"
)

// ClockString formats the wall-clock part of t the way schedules store it.
func ClockString(t time.Time) string {
	return t.Format(clockLayout)
}

// DayKey formats the calendar day of t, used to key sessions and attendance rows.
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// clockShift returns the wall-clock time of t+d, clamped to the calendar day of t.
func clockShift(t time.Time, d time.Duration) string {
	shifted := t.Add(d)
	if DayKey(shifted) != DayKey(t) {
		if d > 0 {
			return "23:59:59"
		}
		return "00:00:00"
	}
	return ClockString(shifted)
}
