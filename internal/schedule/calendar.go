package schedule

import (
	"time"

	"gobarber/client/internal/domain"
)

// Calendar is the dashboard's date picker state. Only Monday to Friday can be
// selected, and months before the one the calendar opened on are not shown.
// A Calendar is not safe for concurrent use.
type Calendar struct {
	selected domain.Date
	month    domain.Month
	earliest domain.Month
}

// NewCalendar opens on today's date and month.
func NewCalendar(now time.Time, loc *time.Location) *Calendar {
	month := domain.MonthOf(now, loc)
	return &Calendar{
		selected: domain.DateOf(now, loc),
		month:    month,
		earliest: month,
	}
}

func (c *Calendar) Selected() domain.Date  { return c.selected }
func (c *Calendar) Month() domain.Month    { return c.month }
func (c *Calendar) Earliest() domain.Month { return c.earliest }

// Select moves the selection to d. Weekends and days in months before the
// earliest month are refused and the selection is kept.
func (c *Calendar) Select(d domain.Date) bool {
	if d.IsWeekend() || d.CalendarMonth().Before(c.earliest) {
		return false
	}
	c.selected = d
	return true
}

// ShowMonth changes the displayed month unless it is before the earliest.
func (c *Calendar) ShowMonth(m domain.Month) bool {
	if m.Before(c.earliest) {
		return false
	}
	c.month = m
	return true
}

func (c *Calendar) NextMonth() bool { return c.ShowMonth(c.month.Next()) }

func (c *Calendar) PrevMonth() bool { return c.ShowMonth(c.month.Prev()) }
