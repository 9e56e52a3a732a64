package store

import (
	"context"
	"time"

	"salonq/internal/models"
)

type CreateUserInput struct {
	Name     string
	Phone    string
	Role     string
	Location string
}

type CreateSalonInput struct {
	OwnerID  int64
	Name     string
	Location string
	Phone    string
}

type CreateServiceInput struct {
	SalonID         int64
	Name            string
	DurationMinutes int
	Price           int
}

type JoinQueueInput struct {
	SalonID    int64
	ServiceID  int64
	CustomerID int64
}

// JoinResult is the created entry plus the position computed at join time.
type JoinResult struct {
	Entry    models.QueueEntry
	Position int
}

// CallNextResult reports a queue advance. Finished is zero when the queue
// was empty; NextToken is nil when no waiting entry remains.
type CallNextResult struct {
	Finished  models.QueueEntry
	Advanced  bool
	NextToken *int
}

// StatusPatch is a partial salon status update, applied only when no
// action is given.
type StatusPatch struct {
	IsOpen    *bool
	IsOnBreak *bool
}

type Store interface {
	CreateUser(ctx context.Context, input CreateUserInput) (models.User, error)
	GetUser(ctx context.Context, id int64) (models.User, error)
	GetUserByPhone(ctx context.Context, phone string) (models.User, error)

	CreateSession(ctx context.Context, userID int64, expiresAt time.Time) (models.Session, error)
	GetSession(ctx context.Context, token string) (models.Session, models.User, error)

	CreateSalon(ctx context.Context, input CreateSalonInput) (models.Salon, error)
	GetSalon(ctx context.Context, id int64) (models.Salon, error)
	GetSalonByOwner(ctx context.Context, ownerID int64) (models.Salon, error)
	SearchSalons(ctx context.Context, query string) ([]models.Salon, error)
	UpdateSalonStatus(ctx context.Context, salonID int64, action string, patch StatusPatch, now time.Time) (models.Salon, error)

	CreateService(ctx context.Context, input CreateServiceInput) (models.Service, error)
	ListServices(ctx context.Context, salonID int64) ([]models.Service, error)

	JoinQueue(ctx context.Context, input JoinQueueInput, now time.Time) (JoinResult, error)
	ListQueue(ctx context.Context, salonID int64) ([]models.QueueItem, error)
	ListCustomerQueue(ctx context.Context, customerID int64) ([]models.CustomerQueueItem, error)
	GetQueueEntry(ctx context.Context, entryID int64) (models.QueueEntry, error)
	UpdateEntryStatus(ctx context.Context, entryID int64, status string) (models.QueueEntry, error)
	CallNext(ctx context.Context, salonID int64) (CallNextResult, error)
	QueueStatus(ctx context.Context, salonID int64) (models.QueueStatus, error)

	CreateSubscription(ctx context.Context, userID int64, subType string, now time.Time) (models.Subscription, error)
}
