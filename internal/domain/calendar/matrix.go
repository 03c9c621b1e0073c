package calendar

import (
	"strconv"
	"time"
)

// KeyLayout formats the per-day lookup key used across the calendar.
const KeyLayout = "2006-01-02"

// MaxWeeks bounds the number of rows in a month view.
const MaxWeeks = 6

// Cell is one slot of the month grid. Cells outside the month are empty.
type Cell struct {
	Day  int
	Date time.Time
}

func (c Cell) Empty() bool { return c.Day == 0 }

// Key returns the YYYY-MM-DD key of the cell, or "" for an empty cell.
func (c Cell) Key() string {
	if c.Empty() {
		return ""
	}
	return c.Date.Format(KeyLayout)
}

// Week is one Monday-first row of the grid.
type Week [7]Cell

// BuildMonthMatrix lays out month as Monday-first weeks. Rows stop after the
// one containing the last day of the month, so a month yields four to six rows.
// Cell dates carry only the calendar day and are expressed in UTC.
func BuildMonthMatrix(year int, month time.Month) []Week {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	firstIdx := (int(first.Weekday()) + 6) % 7

	var weeks []Week
	current := 1 - firstIdx
	for w := 0; w < MaxWeeks; w++ {
		var row Week
		for d := 0; d < 7; d++ {
			if current >= 1 && current <= daysInMonth {
				row[d] = Cell{Day: current, Date: time.Date(year, month, current, 0, 0, 0, 0, time.UTC)}
			}
			current++
		}
		weeks = append(weeks, row)
		if current > daysInMonth {
			break
		}
	}
	return weeks
}

// IsToday reports whether the cell falls on now's calendar day.
func IsToday(c Cell, now time.Time) bool {
	if c.Empty() {
		return false
	}
	y, m, d := now.Date()
	return c.Date.Year() == y && c.Date.Month() == m && c.Date.Day() == d
}

// PrevMonth steps the view back one month, wrapping the year.
func PrevMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

// NextMonth steps the view forward one month, wrapping the year.
func NextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// WeekdayLabels heads the Monday-first columns.
var WeekdayLabels = [7]string{"Sen", "Sel", "Rab", "Kam", "Jum", "Sab", "Min"}

var monthNames = [12]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthTitle renders the month heading, e.g. "Februari 2025".
func MonthTitle(year int, month time.Month) string {
	if month < time.January || month > time.December {
		return ""
	}
	return monthNames[month-1] + " " + strconv.Itoa(year)
}
