package schedule

import (
	"time"

	"gobarber/client/internal/domain"
)

// Inputs is everything a dashboard view is derived from.
type Inputs struct {
	Selected     domain.Date
	Month        domain.Month
	Availability []domain.MonthAvailabilityItem
	Appointments []domain.Appointment
	Now          time.Time
	// Location defaults to time.Local.
	Location *time.Location
}

type View struct {
	Selected     domain.Date
	Month        domain.Month
	IsToday      bool
	DateLabel    string
	WeekdayLabel string
	MonthLabel   string

	Disabled  DateSet
	Morning   []domain.Appointment
	Afternoon []domain.Appointment
	// Next is nil unless the selected day is today and something is still ahead.
	Next *domain.Appointment

	// Set by Loader.Snapshot when the latest fetch for the month or day has
	// not succeeded and older data is shown instead.
	StaleAvailability bool
	StaleAppointments bool
}

// Derive computes the dashboard view. It never reads the clock and never
// modifies the slices in in.
func Derive(in Inputs) View {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}

	isToday := domain.DateOf(in.Now, loc) == in.Selected
	formatted := FormatHours(in.Appointments, loc)
	part := PartitionAppointments(in.Appointments, loc)

	v := View{
		Selected:     in.Selected,
		Month:        in.Month,
		IsToday:      isToday,
		DateLabel:    DateLabel(in.Selected),
		WeekdayLabel: WeekdayLabel(in.Selected),
		MonthLabel:   MonthLabel(in.Month),
		Disabled:     DisabledDates(in.Month, in.Availability),
		Morning:      part.Morning,
		Afternoon:    part.Afternoon,
	}
	if next, ok := NextAppointment(formatted, in.Now, isToday); ok {
		v.Next = &next
	}
	return v
}
