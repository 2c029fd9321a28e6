package schedule

import (
	"time"

	"gobarber/client/internal/domain"
)

const hourLayout = "15:04"

// Partition splits a day's appointments by local time of day.
type Partition struct {
	Morning   []domain.Appointment
	Afternoon []domain.Appointment
}

// FormatHours returns copies of appts with HourFormatted set from each
// timestamp in loc. A nil loc means time.Local.
func FormatHours(appts []domain.Appointment, loc *time.Location) []domain.Appointment {
	if loc == nil {
		loc = time.Local
	}
	out := make([]domain.Appointment, len(appts))
	for i, a := range appts {
		a.HourFormatted = a.Date.In(loc).Format(hourLayout)
		out[i] = a
	}
	return out
}

// PartitionAppointments puts appointments starting before noon in Morning
// and the rest, noon included, in Afternoon. Input order is kept in both.
func PartitionAppointments(appts []domain.Appointment, loc *time.Location) Partition {
	if loc == nil {
		loc = time.Local
	}
	var p Partition
	for _, a := range FormatHours(appts, loc) {
		if a.Date.In(loc).Hour() < 12 {
			p.Morning = append(p.Morning, a)
		} else {
			p.Afternoon = append(p.Afternoon, a)
		}
	}
	return p
}

// NextAppointment returns the first appointment in input order that starts
// strictly after now. It reports false when selectedIsToday is false. The
// input is expected in chronological order and is not sorted here.
func NextAppointment(appts []domain.Appointment, now time.Time, selectedIsToday bool) (domain.Appointment, bool) {
	if !selectedIsToday {
		return domain.Appointment{}, false
	}
	for _, a := range appts {
		if a.Date.After(now) {
			return a, true
		}
	}
	return domain.Appointment{}, false
}
