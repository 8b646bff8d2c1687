package utils

import "time"

// DateFormat is the YYYY-MM-DD layout used in the price store and the API.
const DateFormat = "2006-01-02"

// UnixToDate converts a unix timestamp to midnight UTC of its calendar day.
func UnixToDate(ts int64) time.Time {
	y, m, d := time.Unix(ts, 0).UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayUnix returns the unix timestamp of midnight UTC of t's calendar day.
func DayUnix(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// IsWeekday reports whether t falls Monday through Friday.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
