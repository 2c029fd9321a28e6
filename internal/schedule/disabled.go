package schedule

import (
	"sort"

	"gobarber/client/internal/domain"
)

// DateSet is a set of calendar days.
type DateSet map[domain.Date]struct{}

func (s DateSet) Add(d domain.Date) { s[d] = struct{}{} }

func (s DateSet) Contains(d domain.Date) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the members in calendar order.
func (s DateSet) Sorted() []domain.Date {
	out := make([]domain.Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// DisabledDates returns the days of month that cannot be booked: every day
// the provider marked unavailable plus every Saturday and Sunday. Weekends
// stay disabled even when an item marks them available.
func DisabledDates(month domain.Month, items []domain.MonthAvailabilityItem) DateSet {
	out := make(DateSet)
	for _, it := range items {
		if !it.Available {
			out.Add(month.Date(it.Day))
		}
	}
	for day := 1; day <= month.Days(); day++ {
		if d := month.Date(day); d.IsWeekend() {
			out.Add(d)
		}
	}
	return out
}
