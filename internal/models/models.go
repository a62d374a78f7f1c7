package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TaskKind selects how a task is bound to the calendar.
type TaskKind string

const (
	// KindRecurring tasks repeat weekly on a set of weekdays.
	KindRecurring TaskKind = "days"
	// KindExactDate tasks happen once on a single calendar date.
	KindExactDate TaskKind = "date"
)

// Task is a single schedulable activity. Exactly one of Days (non-empty) or
// Date (set) holds: a task is either a weekly recurrence or a one-off.
type Task struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Time        string   `json:"time"` // HH:MM, 24-hour
	Description string   `json:"description,omitempty"`
	Color       string   `json:"color"`
	Days        []string `json:"days"`
	Date        string   `json:"date,omitempty"` // YYYY-MM-DD
}

// Recurring reports whether the task repeats weekly.
func (t Task) Recurring() bool {
	return len(t.Days) > 0
}

// Kind returns the calendar binding of the task.
func (t Task) Kind() TaskKind {
	if t.Recurring() {
		return KindRecurring
	}
	return KindExactDate
}

// Validate checks the weekly-or-one-off invariant and the shape of the
// calendar fields.
func (t Task) Validate() error {
	if len(t.Days) > 0 && t.Date != "" {
		return fmt.Errorf("task %d is both recurring and date-bound", t.ID)
	}
	if len(t.Days) == 0 && t.Date == "" {
		return fmt.Errorf("task %d is neither recurring nor date-bound", t.ID)
	}
	for _, day := range t.Days {
		if !ValidWeekday(day) {
			return fmt.Errorf("task %d has unknown weekday %q", t.ID, day)
		}
	}
	if t.Date != "" {
		if _, err := ParseISODate(t.Date); err != nil {
			return fmt.Errorf("task %d: %w", t.ID, err)
		}
	}
	return nil
}

// Document is the per-user remote record: the whole task list, replaced as a
// unit on every write.
type Document struct {
	Tasks []Task `json:"tasks"`
}

// CompletionStatus maps a task id to the exact dates it was marked done.
// It is independent of recurrence: finishing a recurring task on one Tuesday
// says nothing about the next Tuesday.
type CompletionStatus map[int64]map[string]bool

// DayOfWeekAbbr is indexed by time.Weekday, so position 0 is Sunday.
var DayOfWeekAbbr = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// WeekDays lists the week grid display order, Monday first.
var WeekDays = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// ValidWeekday reports whether abbr is one of the seven weekday labels.
func ValidWeekday(abbr string) bool {
	for _, d := range DayOfWeekAbbr {
		if d == abbr {
			return true
		}
	}
	return false
}

// ImportanceLevel pairs a display name with the color that encodes it on
// recurring tasks.
type ImportanceLevel struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ImportanceColors are the four importance levels for recurring tasks,
// highest first.
var ImportanceColors = [4]ImportanceLevel{
	{Name: "High", Color: "#e74c3c"},
	{Name: "Medium", Color: "#e67e22"},
	{Name: "Low", Color: "#f1c40f"},
	{Name: "Minimal", Color: "#2ecc71"},
}

// ExactDateColor marks one-off tasks on the grid.
const ExactDateColor = "#3498db"

const isoDateLayout = "2006-01-02"

// FormatISODate renders a date as YYYY-MM-DD.
func FormatISODate(t time.Time) string {
	return t.Format(isoDateLayout)
}

// ParseISODate parses a YYYY-MM-DD date in the local time zone.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(isoDateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// WeekdayAbbrOf returns the weekday label of a date.
func WeekdayAbbrOf(t time.Time) string {
	return DayOfWeekAbbr[t.Weekday()]
}

// ClockOf splits an HH:MM string into numeric hour and minute. It accepts a
// single-digit hour so a stray "7:30" still buckets correctly.
func ClockOf(clock string) (hour, minute int, ok bool) {
	parts := strings.SplitN(clock, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}
