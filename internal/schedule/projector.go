package schedule

import (
	"fmt"
	"sort"
	"time"

	"planner/internal/models"
)

// DaySchedule is one day of the week grid: the date, its labels and the
// tasks visible on it in time order.
type DaySchedule struct {
	Date    time.Time
	ISO     string
	Weekday string
	Tasks   []models.Task
}

// TasksOn returns the tasks visible on the given date, sorted ascending by
// time. A task is visible when its exact date matches, or when it recurs on
// the date's weekday. Zero-padded HH:MM strings compare lexicographically in
// chronological order, so the sort key is the raw time string.
func TasksOn(date time.Time, tasks []models.Task) []models.Task {
	iso := models.FormatISODate(date)
	abbr := models.WeekdayAbbrOf(date)

	var out []models.Task
	for _, t := range tasks {
		if t.Date == iso || (t.Date == "" && containsDay(t.Days, abbr)) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time < out[j].Time
	})
	return out
}

// WeekOf rolls a date back to the most recent Monday at midnight.
func WeekOf(anchor time.Time) time.Time {
	diff := (int(anchor.Weekday()) + 6) % 7
	y, m, d := anchor.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, anchor.Location())
	return midnight.AddDate(0, 0, -diff)
}

// TasksInWeek projects the task list onto the seven days of the anchor's
// week, Monday first.
func TasksInWeek(anchor time.Time, tasks []models.Task) [7]DaySchedule {
	monday := WeekOf(anchor)
	var week [7]DaySchedule
	for i := range week {
		day := monday.AddDate(0, 0, i)
		week[i] = DaySchedule{
			Date:    day,
			ISO:     models.FormatISODate(day),
			Weekday: models.WeekdayAbbrOf(day),
			Tasks:   TasksOn(day, tasks),
		}
	}
	return week
}

// HourKey renders an hour as the "HH:00" bucket label used by the day view.
func HourKey(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// TasksByHour groups the date's visible tasks into "HH:00" buckets. Within a
// bucket tasks are ordered by hour then minute compared numerically, so a
// non-padded time cannot sort out of place. Tasks with an unparseable time
// are dropped rather than misfiled.
func TasksByHour(date time.Time, tasks []models.Task) map[string][]models.Task {
	buckets := make(map[string][]models.Task)
	for _, t := range TasksOn(date, tasks) {
		hour, _, ok := models.ClockOf(t.Time)
		if !ok {
			continue
		}
		key := HourKey(hour)
		buckets[key] = append(buckets[key], t)
	}
	for key, group := range buckets {
		sort.SliceStable(group, func(i, j int) bool {
			hi, mi, _ := models.ClockOf(group[i].Time)
			hj, mj, _ := models.ClockOf(group[j].Time)
			if hi != hj {
				return hi < hj
			}
			return mi < mj
		})
		buckets[key] = group
	}
	return buckets
}

func containsDay(days []string, abbr string) bool {
	for _, d := range days {
		if d == abbr {
			return true
		}
	}
	return false
}
