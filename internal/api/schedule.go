package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"gobarber/client/internal/domain"
)

// MonthAvailability lists which days of month the provider can still take
// bookings on. Days outside the month are rejected.
func (c *Client) MonthAvailability(ctx context.Context, providerID string, month domain.Month) ([]domain.MonthAvailabilityItem, error) {
	const op = "month_availability"

	q := url.Values{}
	q.Set("year", strconv.Itoa(month.Year))
	q.Set("month", strconv.Itoa(int(month.Month)))
	path := fmt.Sprintf("/providers/%s/month-availability", url.PathEscape(providerID))

	var items []domain.MonthAvailabilityItem
	if err := c.doJSON(ctx, op, http.MethodGet, path, q, nil, &items); err != nil {
		return nil, err
	}

	days := month.Days()
	for _, it := range items {
		if it.Day < 1 || it.Day > days {
			return nil, fmt.Errorf("%s: %w: day %d outside %s", op, ErrMalformedResponse, it.Day, month)
		}
	}
	return items, nil
}

// AppointmentsOn lists the signed-in provider's appointments on date, in the
// order the server returned them.
func (c *Client) AppointmentsOn(ctx context.Context, date domain.Date) ([]domain.Appointment, error) {
	const op = "appointments_on"

	q := url.Values{}
	q.Set("year", strconv.Itoa(date.Year))
	q.Set("month", strconv.Itoa(int(date.Month)))
	q.Set("day", strconv.Itoa(date.Day))

	var out []domain.Appointment
	if err := c.doJSON(ctx, op, http.MethodGet, "/appointments/me", q, nil, &out); err != nil {
		return nil, err
	}
	for _, a := range out {
		if a.Date.IsZero() {
			return nil, fmt.Errorf("%s: %w: appointment %q has no date", op, ErrMalformedResponse, a.ID)
		}
	}
	return out, nil
}
