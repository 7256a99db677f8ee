package models

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used by every dated record.
const DateLayout = "2006-01-02"

// ParseDate reads a calendar date, ignoring any time-of-day suffix.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(value) > len(DateLayout) {
		value = value[:len(DateLayout)]
	}
	return time.Parse(DateLayout, value)
}

// FormatDate renders t as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
