package models

import "time"

type QueueEntry struct {
	ID                   int64     `json:"id"`
	SalonID              int64     `json:"salonId"`
	CustomerID           int64     `json:"customerId"`
	ServiceID            int64     `json:"serviceId"`
	TokenNumber          int       `json:"tokenNumber"`
	Status               string    `json:"status"`
	CreatedAt            time.Time `json:"createdAt"`
	EstimatedWaitMinutes int       `json:"estimatedWaitMinutes"`
}

const (
	StatusWaiting   = "waiting"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// QueueItem is a waiting entry enriched for the salon's queue board.
type QueueItem struct {
	QueueEntry
	Customer User    `json:"customer"`
	Service  Service `json:"service"`
	Position int     `json:"position"`
}

// CustomerQueueItem is an active entry enriched for the customer's own view.
// Position and EstimatedWaitMinutes are recomputed on every fetch; the
// stored snapshot is historical only.
type CustomerQueueItem struct {
	QueueEntry
	Salon    Salon   `json:"salon"`
	Service  Service `json:"service"`
	Position int     `json:"position"`
}

type QueueStatus struct {
	CurrentToken         int `json:"currentToken"`
	LastIssuedToken      int `json:"lastIssuedToken"`
	QueueLength          int `json:"queueLength"`
	TotalWaitTimeMinutes int `json:"totalWaitTimeMinutes"`
}
