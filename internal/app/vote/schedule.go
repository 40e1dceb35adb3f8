package vote

import "time"

// Schedule describes the weekly contest calendar. Which weekdays may open a
// window is deliberate configuration, never inferred from the calendar; the
// cycle itself always recurs weekly starting at CycleStart.
type Schedule struct {
	// CreationDays are the weekdays on which OpenWindow is permitted.
	CreationDays []time.Weekday
	// CycleStart is the first day of the voting span (default Monday).
	CycleStart time.Weekday
	// CycleDays is the length of the voting span in days (default 6,
	// i.e. Monday through Saturday with a half-open end).
	CycleDays int
}

// DefaultSchedule opens windows on Sunday for a Monday-to-Saturday contest.
func DefaultSchedule() Schedule {
	return Schedule{
		CreationDays: []time.Weekday{time.Sunday},
		CycleStart:   time.Monday,
		CycleDays:    6,
	}
}

func (s Schedule) AllowsCreation(day time.Weekday) bool {
	for _, d := range s.CreationDays {
		if d == day {
			return true
		}
	}
	return false
}

// NextCycleStart returns the first instant of the cycle after the day
// containing t: triggering on Sunday targets the upcoming Monday, triggering
// on the cycle-start day itself targets the following week.
func (s Schedule) NextCycleStart(t time.Time) time.Time {
	day := startOfDay(t)
	for {
		day = day.AddDate(0, 0, 1)
		if day.Weekday() == s.CycleStart {
			return day
		}
	}
}

// CurrentCycleStart returns the first instant of the cycle containing t.
func (s Schedule) CurrentCycleStart(t time.Time) time.Time {
	day := startOfDay(t)
	for day.Weekday() != s.CycleStart {
		day = day.AddDate(0, 0, -1)
	}
	return day
}

// PreviousCycleStart identifies the cycle preceding the one containing t;
// the winner cache keys its memo on this instant.
func (s Schedule) PreviousCycleStart(t time.Time) time.Time {
	return s.CurrentCycleStart(t).AddDate(0, 0, -7)
}

// CycleEnd returns the half-open end of the voting span beginning at start.
func (s Schedule) CycleEnd(start time.Time) time.Time {
	days := s.CycleDays
	if days <= 0 {
		days = 6
	}
	return start.AddDate(0, 0, days)
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
