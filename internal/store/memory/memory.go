// Package memory implements store.Store without external state, for tests
// and for running the service before a database is provisioned. All state
// lives behind one mutex, which also provides the serialization that
// token issuance and queue advance require.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"salonq/internal/models"
	"salonq/internal/queue"
	"salonq/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.Mutex

	users         map[int64]*models.User
	usersByPhone  map[string]int64
	sessions      map[string]*models.Session
	salons        map[int64]*models.Salon
	services      map[int64]*models.Service
	entries       map[int64]*models.QueueEntry
	subscriptions map[int64]*models.Subscription

	nextUserID         int64
	nextSalonID        int64
	nextServiceID      int64
	nextEntryID        int64
	nextSubscriptionID int64
}

func NewStore() *Store {
	return &Store{
		users:         make(map[int64]*models.User),
		usersByPhone:  make(map[string]int64),
		sessions:      make(map[string]*models.Session),
		salons:        make(map[int64]*models.Salon),
		services:      make(map[int64]*models.Service),
		entries:       make(map[int64]*models.QueueEntry),
		subscriptions: make(map[int64]*models.Subscription),
	}
}

func (s *Store) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByPhone[input.Phone]; taken {
		return models.User{}, store.ErrPhoneTaken
	}

	s.nextUserID++
	user := models.User{
		ID:        s.nextUserID,
		Name:      input.Name,
		Phone:     input.Phone,
		Role:      input.Role,
		Location:  input.Location,
		CreatedAt: time.Now().UTC(),
	}
	s.users[user.ID] = &user
	s.usersByPhone[user.Phone] = user.ID
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return *user, nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.usersByPhone[phone]
	if !ok {
		return models.User{}, store.ErrUserNotFound
	}
	return *s.users[id], nil
}

func (s *Store) CreateSession(ctx context.Context, userID int64, expiresAt time.Time) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return models.Session{}, store.ErrUserNotFound
	}

	session := models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	s.sessions[session.Token] = &session
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, token string) (models.Session, models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[token]
	if !ok || time.Now().After(session.ExpiresAt) {
		return models.Session{}, models.User{}, store.ErrSessionNotFound
	}
	user, ok := s.users[session.UserID]
	if !ok {
		return models.Session{}, models.User{}, store.ErrSessionNotFound
	}
	return *session, *user, nil
}

func (s *Store) CreateSalon(ctx context.Context, input store.CreateSalonInput) (models.Salon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSalonID++
	salon := models.Salon{
		ID:             s.nextSalonID,
		OwnerID:        input.OwnerID,
		Name:           input.Name,
		Location:       input.Location,
		Phone:          input.Phone,
		LastTokenReset: time.Now().UTC(),
	}
	s.salons[salon.ID] = &salon
	return salon, nil
}

func (s *Store) GetSalon(ctx context.Context, id int64) (models.Salon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	salon, ok := s.salons[id]
	if !ok {
		return models.Salon{}, store.ErrSalonNotFound
	}
	return *salon, nil
}

func (s *Store) GetSalonByOwner(ctx context.Context, ownerID int64) (models.Salon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, salon := range s.salons {
		if salon.OwnerID == ownerID {
			return *salon, nil
		}
	}
	return models.Salon{}, store.ErrSalonNotFound
}

func (s *Store) SearchSalons(ctx context.Context, query string) ([]models.Salon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(query))
	var salons []models.Salon
	for _, salon := range s.salons {
		if needle == "" || strings.Contains(strings.ToLower(salon.Name), needle) {
			salons = append(salons, *salon)
		}
	}
	sort.Slice(salons, func(i, j int) bool { return salons[i].ID < salons[j].ID })
	return salons, nil
}

func (s *Store) UpdateSalonStatus(ctx context.Context, salonID int64, action string, patch store.StatusPatch, now time.Time) (models.Salon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	salon, ok := s.salons[salonID]
	if !ok {
		return models.Salon{}, store.ErrSalonNotFound
	}

	if action != "" {
		updated, reset, err := queue.ApplyStatusAction(*salon, action, now)
		if err != nil {
			return models.Salon{}, err
		}
		if reset {
			// Token numbers restart at 1 after the reset, so entries left
			// waiting from the previous day must not stay in the queue.
			for _, entry := range s.entries {
				if entry.SalonID == salonID && entry.Status == models.StatusWaiting {
					entry.Status = models.StatusCancelled
				}
			}
		}
		*salon = updated
		return updated, nil
	}

	if patch.IsOpen != nil {
		salon.IsOpen = *patch.IsOpen
	}
	if patch.IsOnBreak != nil {
		salon.IsOnBreak = *patch.IsOnBreak
	}
	return *salon, nil
}

func (s *Store) CreateService(ctx context.Context, input store.CreateServiceInput) (models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.salons[input.SalonID]; !ok {
		return models.Service{}, store.ErrSalonNotFound
	}

	s.nextServiceID++
	svc := models.Service{
		ID:              s.nextServiceID,
		SalonID:         input.SalonID,
		Name:            input.Name,
		DurationMinutes: input.DurationMinutes,
		Price:           input.Price,
	}
	s.services[svc.ID] = &svc
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context, salonID int64) ([]models.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var services []models.Service
	for _, svc := range s.services {
		if svc.SalonID == salonID {
			services = append(services, *svc)
		}
	}
	sort.Slice(services, func(i, j int) bool { return services[i].ID < services[j].ID })
	return services, nil
}

func (s *Store) JoinQueue(ctx context.Context, input store.JoinQueueInput, now time.Time) (store.JoinResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	salon, ok := s.salons[input.SalonID]
	if !ok {
		return store.JoinResult{}, store.ErrSalonNotFound
	}
	svc, ok := s.services[input.ServiceID]
	if !ok {
		return store.JoinResult{}, store.ErrServiceNotFound
	}
	if _, ok := s.users[input.CustomerID]; !ok {
		return store.JoinResult{}, store.ErrUserNotFound
	}

	issued, err := queue.IssueToken(*salon, *svc, s.waitingEntries(input.SalonID))
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrSalonClosed):
			return store.JoinResult{}, store.ErrSalonClosed
		case errors.Is(err, queue.ErrInvalidService):
			return store.JoinResult{}, store.ErrServiceNotFound
		}
		return store.JoinResult{}, err
	}

	s.nextEntryID++
	entry := models.QueueEntry{
		ID:                   s.nextEntryID,
		SalonID:              input.SalonID,
		CustomerID:           input.CustomerID,
		ServiceID:            input.ServiceID,
		TokenNumber:          issued.TokenNumber,
		Status:               models.StatusWaiting,
		CreatedAt:            now,
		EstimatedWaitMinutes: issued.EstimatedWaitMinutes,
	}
	s.entries[entry.ID] = &entry
	salon.LastIssuedToken = issued.TokenNumber

	return store.JoinResult{Entry: entry, Position: issued.Position}, nil
}

func (s *Store) ListQueue(ctx context.Context, salonID int64) ([]models.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.salons[salonID]; !ok {
		return nil, store.ErrSalonNotFound
	}

	var items []models.QueueItem
	for _, placement := range queue.BuildView(s.waitingEntries(salonID)) {
		entry := s.entries[placement.EntryID]
		item := models.QueueItem{
			QueueEntry: *entry,
			Position:   placement.Position,
		}
		item.EstimatedWaitMinutes = placement.EstimatedWaitMinutes
		if customer, ok := s.users[entry.CustomerID]; ok {
			item.Customer = *customer
		}
		if svc, ok := s.services[entry.ServiceID]; ok {
			item.Service = *svc
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) ListCustomerQueue(ctx context.Context, customerID int64) ([]models.CustomerQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []*models.QueueEntry
	for _, entry := range s.entries {
		if entry.CustomerID == customerID && entry.Status == models.StatusWaiting {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	var items []models.CustomerQueueItem
	for _, entry := range entries {
		item := models.CustomerQueueItem{QueueEntry: *entry}
		if salon, ok := s.salons[entry.SalonID]; ok {
			item.Salon = *salon
		}
		if svc, ok := s.services[entry.ServiceID]; ok {
			item.Service = *svc
		}
		for _, placement := range queue.BuildView(s.waitingEntries(entry.SalonID)) {
			if placement.EntryID == entry.ID {
				item.Position = placement.Position
				item.EstimatedWaitMinutes = placement.EstimatedWaitMinutes
				break
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Store) GetQueueEntry(ctx context.Context, entryID int64) (models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return models.QueueEntry{}, store.ErrEntryNotFound
	}
	return *entry, nil
}

func (s *Store) UpdateEntryStatus(ctx context.Context, entryID int64, status string) (models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return models.QueueEntry{}, store.ErrEntryNotFound
	}
	if err := queue.ValidateTransition(entry.Status, status); err != nil {
		return models.QueueEntry{}, store.ErrInvalidState
	}
	entry.Status = status
	return *entry, nil
}

func (s *Store) CallNext(ctx context.Context, salonID int64) (store.CallNextResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	salon, ok := s.salons[salonID]
	if !ok {
		return store.CallNextResult{}, store.ErrSalonNotFound
	}

	advanced, ok := queue.Advance(s.waitingEntries(salonID))
	if !ok {
		return store.CallNextResult{}, nil
	}

	finished := s.entries[advanced.Finished.ID]
	finished.Status = models.StatusCompleted
	salon.CurrentToken = finished.TokenNumber

	result := store.CallNextResult{Finished: *finished, Advanced: true}
	if advanced.HasNext {
		next := advanced.NextToken
		result.NextToken = &next
	}
	return result, nil
}

func (s *Store) QueueStatus(ctx context.Context, salonID int64) (models.QueueStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	salon, ok := s.salons[salonID]
	if !ok {
		return models.QueueStatus{}, store.ErrSalonNotFound
	}

	waiting := s.waitingEntries(salonID)
	total := 0
	for _, entry := range waiting {
		total += entry.DurationMinutes
	}
	return models.QueueStatus{
		CurrentToken:         salon.CurrentToken,
		LastIssuedToken:      salon.LastIssuedToken,
		QueueLength:          len(waiting),
		TotalWaitTimeMinutes: total,
	}, nil
}

func (s *Store) CreateSubscription(ctx context.Context, userID int64, subType string, now time.Time) (models.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return models.Subscription{}, store.ErrUserNotFound
	}

	s.nextSubscriptionID++
	sub := models.Subscription{
		ID:        s.nextSubscriptionID,
		UserID:    userID,
		Type:      subType,
		StartDate: now,
		EndDate:   now.Add(30 * 24 * time.Hour),
		IsActive:  true,
	}
	s.subscriptions[sub.ID] = &sub
	return sub, nil
}

// waitingEntries collects the salon's waiting entries joined with service
// durations. Callers must hold s.mu.
func (s *Store) waitingEntries(salonID int64) []queue.Entry {
	var waiting []queue.Entry
	for _, entry := range s.entries {
		if entry.SalonID != salonID || entry.Status != models.StatusWaiting {
			continue
		}
		duration := 0
		if svc, ok := s.services[entry.ServiceID]; ok {
			duration = svc.DurationMinutes
		}
		waiting = append(waiting, queue.Entry{
			ID:              entry.ID,
			TokenNumber:     entry.TokenNumber,
			DurationMinutes: duration,
		})
	}
	return waiting
}
