package models

import "time"

type Salon struct {
	ID              int64      `json:"id"`
	OwnerID         int64      `json:"ownerId"`
	Name            string     `json:"name"`
	Location        string     `json:"location"`
	Phone           string     `json:"phone"`
	IsOpen          bool       `json:"isOpen"`
	IsOnBreak       bool       `json:"isOnBreak"`
	BreakStartTime  *time.Time `json:"breakStartTime,omitempty"`
	CurrentToken    int        `json:"currentToken"`
	LastIssuedToken int        `json:"lastIssuedToken"`
	LastTokenReset  time.Time  `json:"lastTokenReset"`
}

type Service struct {
	ID              int64  `json:"id"`
	SalonID         int64  `json:"salonId"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"durationMinutes"`
	Price           int    `json:"price"`
}

// SalonWithServices is the detail payload for a single salon lookup.
type SalonWithServices struct {
	Salon
	Services []Service `json:"services"`
}
