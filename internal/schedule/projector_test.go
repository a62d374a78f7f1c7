package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planner/internal/models"
)

func date(t *testing.T, iso string) time.Time {
	t.Helper()
	parsed, err := models.ParseISODate(iso)
	require.NoError(t, err)
	return parsed
}

func TestTasksOn_RecurringAndExactDate(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Title: "Gym", Time: "07:30", Days: []string{"Mon", "Wed"}},
		{ID: 2, Title: "Doctor", Time: "09:00", Date: "2024-06-10"},
	}

	// 2024-06-10 is a Monday: both tasks are visible, earliest time first.
	monday := TasksOn(date(t, "2024-06-10"), tasks)
	require.Len(t, monday, 2)
	assert.Equal(t, "Gym", monday[0].Title)
	assert.Equal(t, "Doctor", monday[1].Title)

	// The following Monday only the recurring task remains.
	nextMonday := TasksOn(date(t, "2024-06-17"), tasks)
	require.Len(t, nextMonday, 1)
	assert.Equal(t, "Gym", nextMonday[0].Title)

	// Wednesday picks up the Wed recurrence, Tuesday nothing.
	assert.Len(t, TasksOn(date(t, "2024-06-12"), tasks), 1)
	assert.Empty(t, TasksOn(date(t, "2024-06-11"), tasks))
}

func TestTasksOn_SortIsStableOnEqualTimes(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Title: "first", Time: "09:00", Days: []string{"Mon"}},
		{ID: 2, Title: "second", Time: "09:00", Days: []string{"Mon"}},
		{ID: 3, Title: "earlier", Time: "08:00", Days: []string{"Mon"}},
	}

	got := TasksOn(date(t, "2024-06-10"), tasks)
	require.Len(t, got, 3)
	assert.Equal(t, "earlier", got[0].Title)
	assert.Equal(t, "first", got[1].Title)
	assert.Equal(t, "second", got[2].Title)

	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(t, got[i-1].Time, got[i].Time)
	}
}

func TestWeekOf_RollsBackToMonday(t *testing.T) {
	// Any Thursday anchors the week starting the previous Monday.
	thursday := date(t, "2024-06-13")
	assert.Equal(t, "2024-06-10", models.FormatISODate(WeekOf(thursday)))

	// A Monday anchors its own week; a Sunday rolls back six days.
	assert.Equal(t, "2024-06-10", models.FormatISODate(WeekOf(date(t, "2024-06-10"))))
	assert.Equal(t, "2024-06-10", models.FormatISODate(WeekOf(date(t, "2024-06-16"))))
}

func TestTasksInWeek_MondayFirstSevenDays(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Title: "Gym", Time: "07:30", Days: []string{"Mon", "Wed"}},
		{ID: 2, Title: "Doctor", Time: "09:00", Date: "2024-06-10"},
	}

	week := TasksInWeek(date(t, "2024-06-13"), tasks)
	require.Len(t, week, 7)
	assert.Equal(t, "2024-06-10", week[0].ISO)
	assert.Equal(t, "Mon", week[0].Weekday)
	assert.Equal(t, "2024-06-16", week[6].ISO)
	assert.Equal(t, "Sun", week[6].Weekday)

	assert.Len(t, week[0].Tasks, 2) // Monday: Gym + Doctor
	assert.Len(t, week[2].Tasks, 1) // Wednesday: Gym
	assert.Empty(t, week[1].Tasks)
}

func TestTasksByHour_BucketsAndNumericSort(t *testing.T) {
	tasks := []models.Task{
		{ID: 1, Title: "late", Time: "09:45", Days: []string{"Mon"}},
		{ID: 2, Title: "early", Time: "09:05", Days: []string{"Mon"}},
		{ID: 3, Title: "unpadded", Time: "9:30", Days: []string{"Mon"}},
		{ID: 4, Title: "evening", Time: "23:00", Date: "2024-06-10"},
		{ID: 5, Title: "broken", Time: "not-a-time", Days: []string{"Mon"}},
	}

	buckets := TasksByHour(date(t, "2024-06-10"), tasks)

	nine := buckets["09:00"]
	require.Len(t, nine, 3)
	assert.Equal(t, "early", nine[0].Title)
	assert.Equal(t, "unpadded", nine[1].Title)
	assert.Equal(t, "late", nine[2].Title)

	require.Len(t, buckets["23:00"], 1)
	assert.Equal(t, "evening", buckets["23:00"][0].Title)

	// The unparseable time is dropped, not misfiled.
	total := 0
	for _, group := range buckets {
		total += len(group)
	}
	assert.Equal(t, 4, total)
}

func TestHourKey(t *testing.T) {
	assert.Equal(t, "00:00", HourKey(0))
	assert.Equal(t, "07:00", HourKey(7))
	assert.Equal(t, "23:00", HourKey(23))
}
