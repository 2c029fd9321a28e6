package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gobarber/client/internal/domain"
	"gobarber/client/internal/observability/metrics"
)

// ErrSuperseded is returned by a load whose response arrived after a newer
// load of the same kind was started. The response is discarded.
var ErrSuperseded = errors.New("superseded by a newer request")

// Fetcher supplies the remote data a dashboard needs.
type Fetcher interface {
	MonthAvailability(ctx context.Context, providerID string, month domain.Month) ([]domain.MonthAvailabilityItem, error)
	AppointmentsOn(ctx context.Context, date domain.Date) ([]domain.Appointment, error)
}

type LoaderOptions struct {
	Metrics *metrics.ClientMetrics
	Logger  *slog.Logger
}

// Loader coordinates availability and appointment fetches. Within each kind
// the most recently started request wins; a failed fetch keeps whatever was
// loaded before. The two kinds are independent and may run concurrently.
type Loader struct {
	fetcher Fetcher
	metrics *metrics.ClientMetrics
	logger  *slog.Logger

	mu sync.Mutex

	monthGen     uint64
	availMonth   domain.Month
	hasAvail     bool
	availability []domain.MonthAvailabilityItem

	dayGen       uint64
	apptDay      domain.Date
	hasAppts     bool
	appointments []domain.Appointment
}

func NewLoader(fetcher Fetcher, opts LoaderOptions) *Loader {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		fetcher: fetcher,
		metrics: opts.Metrics,
		logger:  logger.With(slog.String("component", "schedule")),
	}
}

// LoadMonth fetches providerID's availability for month.
func (l *Loader) LoadMonth(ctx context.Context, providerID string, month domain.Month) error {
	l.mu.Lock()
	l.monthGen++
	gen := l.monthGen
	l.mu.Unlock()

	items, err := l.fetcher.MonthAvailability(ctx, providerID, month)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.monthGen {
		l.metrics.ObserveLoad("month", "superseded")
		l.logger.Debug("discarding superseded availability", "month", month.String())
		return ErrSuperseded
	}
	if err != nil {
		l.metrics.ObserveLoad("month", "failed")
		l.logger.Warn("availability fetch failed; keeping previous data", "month", month.String(), slog.Any("err", err))
		return err
	}

	l.availability = append([]domain.MonthAvailabilityItem(nil), items...)
	l.availMonth = month
	l.hasAvail = true
	l.metrics.ObserveLoad("month", "applied")
	return nil
}

// LoadDay fetches the appointments on date. They are kept sorted by start
// time, ties in server order.
func (l *Loader) LoadDay(ctx context.Context, date domain.Date) error {
	l.mu.Lock()
	l.dayGen++
	gen := l.dayGen
	l.mu.Unlock()

	appts, err := l.fetcher.AppointmentsOn(ctx, date)

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.dayGen {
		l.metrics.ObserveLoad("day", "superseded")
		l.logger.Debug("discarding superseded appointments", "date", date.String())
		return ErrSuperseded
	}
	if err != nil {
		l.metrics.ObserveLoad("day", "failed")
		l.logger.Warn("appointments fetch failed; keeping previous data", "date", date.String(), slog.Any("err", err))
		return err
	}

	sorted := append([]domain.Appointment(nil), appts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })
	l.appointments = sorted
	l.apptDay = date
	l.hasAppts = true
	l.metrics.ObserveLoad("day", "applied")
	return nil
}

// Availability returns the last applied availability and the month it is for.
func (l *Loader) Availability() ([]domain.MonthAvailabilityItem, domain.Month, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.MonthAvailabilityItem(nil), l.availability...), l.availMonth, l.hasAvail
}

// Appointments returns the last applied appointments and the day they are for.
func (l *Loader) Appointments() ([]domain.Appointment, domain.Date, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Appointment(nil), l.appointments...), l.apptDay, l.hasAppts
}

// Snapshot derives the view for selected and month from the held data.
// Appointments loaded for another day are still listed and flagged stale, but
// never offered as the next appointment. Availability loaded for another month
// is not mapped onto month; only the weekend rule applies until it loads.
func (l *Loader) Snapshot(selected domain.Date, month domain.Month, now time.Time, loc *time.Location) View {
	items, availMonth, hasAvail := l.Availability()
	appts, apptDay, hasAppts := l.Appointments()

	staleAvail := hasAvail && availMonth != month
	staleAppts := hasAppts && apptDay != selected
	if staleAvail {
		items = nil
	}

	v := Derive(Inputs{
		Selected:     selected,
		Month:        month,
		Availability: items,
		Appointments: appts,
		Now:          now,
		Location:     loc,
	})
	v.StaleAvailability = staleAvail
	v.StaleAppointments = staleAppts
	if staleAppts {
		v.Next = nil
	}
	return v
}
