package store

import "time"

// timeLayout matches the format of datetime('now') columns.
const timeLayout = "2006-01-02 15:04:05"

// WeekStart returns the most recent Sunday 00:00 in local time for t.
// The weekly-read window starts there.
func WeekStart(t time.Time) time.Time {
	t = t.Local()
	d := t.AddDate(0, 0, -int(t.Weekday()))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
}

// weekCutoff formats the current week start as a UTC timestamp comparable
// to the store's server-assigned datetime('now') columns.
func weekCutoff(now time.Time) string {
	return WeekStart(now).UTC().Format(timeLayout)
}

// FormatTimestamp formats a stored UTC timestamp for human-readable display.
// Unparseable values are returned unchanged.
func FormatTimestamp(ts string) string {
	t, err := time.ParseInLocation(timeLayout, ts, time.UTC)
	if err != nil {
		return ts
	}
	return t.Local().Format("Jan 02, 2006 15:04")
}
