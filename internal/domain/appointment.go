package domain

import (
	"time"
)

type MonthAvailabilityItem struct {
	Day       int  `json:"day"`
	Available bool `json:"available"`
}

// Appointment is one booking on a provider's agenda. HourFormatted is
// derived locally and never sent by the server.
type Appointment struct {
	ID            string    `json:"id"`
	ProviderID    string    `json:"provider_id"`
	UserID        string    `json:"user_id"`
	Date          time.Time `json:"date"`
	Client        User      `json:"user"`
	HourFormatted string    `json:"-"`
}
