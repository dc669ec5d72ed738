// Package week maps instants to the Monday-anchored weekly cycle the
// quest system runs on. All functions are pure; the caller is responsible
// for resolving the user's IANA timezone into a *time.Location (an
// unloadable zone is a fatal input error, not something recovered here).
package week

import (
	"time"
)

// Day is a lowercase weekday name ("monday" .. "sunday").
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// QuestDays are the days that carry a daily quest, in cycle order.
var QuestDays = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

var questDayIndex = map[Day]int{
	Monday:    0,
	Tuesday:   1,
	Wednesday: 2,
	Thursday:  3,
	Friday:    4,
}

// Index returns the position of d in the Mon-Fri quest sequence,
// or -1 if d is not a quest day.
func (d Day) Index() int {
	if i, ok := questDayIndex[d]; ok {
		return i
	}
	return -1
}

// IsQuestDay reports whether d carries a daily quest.
func (d Day) IsQuestDay() bool {
	return d.Index() >= 0
}

// ConsecutiveAfter reports whether d directly follows prev in the
// Mon-Fri quest sequence (Friday has no successor).
func (d Day) ConsecutiveAfter(prev Day) bool {
	di, pi := d.Index(), prev.Index()
	return di >= 0 && pi >= 0 && di == pi+1
}

// Before reports whether d comes earlier than other in the quest sequence.
func (d Day) Before(other Day) bool {
	return d.Index() >= 0 && other.Index() >= 0 && d.Index() < other.Index()
}

// DayOf returns the lowercase weekday name of t observed in loc.
func DayOf(t time.Time, loc *time.Location) Day {
	switch t.In(loc).Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// Start returns the Monday 00:00 instant that opens the week containing t,
// observed in loc.
func Start(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	back := (int(local.Weekday()) + 6) % 7
	monday := local.AddDate(0, 0, -back)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc)
}

// Same reports whether a and b fall inside the same Monday-anchored week
// observed in loc.
func Same(a, b time.Time, loc *time.Location) bool {
	return Start(a, loc).Equal(Start(b, loc))
}

// HoursBetween returns the wall-clock hours elapsed from earlier to later.
func HoursBetween(earlier, later time.Time) float64 {
	return later.Sub(earlier).Hours()
}
