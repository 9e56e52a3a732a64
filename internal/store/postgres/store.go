package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"salonq/internal/models"
	"salonq/internal/queue"
	"salonq/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error code for unique_violation.
const uniqueViolation = "23505"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) CreateUser(ctx context.Context, input store.CreateUserInput) (models.User, error) {
	var user models.User
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (name, phone, role, location, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone) DO NOTHING
		RETURNING id, name, phone, role, location, created_at
	`, input.Name, input.Phone, input.Role, input.Location, time.Now().UTC())
	if err := row.Scan(&user.ID, &user.Name, &user.Phone, &user.Role, &user.Location, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrPhoneTaken
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, phone, role, location, created_at
		FROM users
		WHERE id = $1
	`, id)
	if err := row.Scan(&user.ID, &user.Name, &user.Phone, &user.Role, &user.Location, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (models.User, error) {
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, phone, role, location, created_at
		FROM users
		WHERE phone = $1
	`, phone)
	if err := row.Scan(&user.ID, &user.Name, &user.Phone, &user.Role, &user.Location, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, store.ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Store) CreateSession(ctx context.Context, userID int64, expiresAt time.Time) (models.Session, error) {
	session := models.Session{Token: uuid.NewString(), UserID: userID, ExpiresAt: expiresAt}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, expires_at)
		VALUES ($1, $2, $3)
	`, session.Token, session.UserID, session.ExpiresAt)
	if err != nil {
		return models.Session{}, err
	}
	return session, nil
}

func (s *Store) GetSession(ctx context.Context, token string) (models.Session, models.User, error) {
	var session models.Session
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT s.token, s.user_id, s.expires_at, u.id, u.name, u.phone, u.role, u.location, u.created_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = $1 AND s.expires_at > $2
	`, token, time.Now().UTC())
	if err := row.Scan(&session.Token, &session.UserID, &session.ExpiresAt, &user.ID, &user.Name, &user.Phone, &user.Role, &user.Location, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, models.User{}, store.ErrSessionNotFound
		}
		return models.Session{}, models.User{}, err
	}
	return session, user, nil
}

func (s *Store) CreateSalon(ctx context.Context, input store.CreateSalonInput) (models.Salon, error) {
	var salon models.Salon
	var breakStartNull sql.NullTime
	row := s.pool.QueryRow(ctx, `
		INSERT INTO salons (owner_id, name, location, phone, is_open, is_on_break, current_token, last_issued_token, last_token_reset)
		VALUES ($1, $2, $3, $4, FALSE, FALSE, 0, 0, $5)
		RETURNING id, owner_id, name, location, phone, is_open, is_on_break, break_start_time, current_token, last_issued_token, last_token_reset
	`, input.OwnerID, input.Name, input.Location, input.Phone, time.Now().UTC())
	if err := scanSalon(row, &salon, &breakStartNull); err != nil {
		return models.Salon{}, err
	}
	salon.BreakStartTime = nullTimePtr(breakStartNull)
	return salon, nil
}

func (s *Store) GetSalon(ctx context.Context, id int64) (models.Salon, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, location, phone, is_open, is_on_break, break_start_time, current_token, last_issued_token, last_token_reset
		FROM salons
		WHERE id = $1
	`, id)
	return readSalon(row)
}

func (s *Store) GetSalonByOwner(ctx context.Context, ownerID int64) (models.Salon, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, location, phone, is_open, is_on_break, break_start_time, current_token, last_issued_token, last_token_reset
		FROM salons
		WHERE owner_id = $1
		ORDER BY id ASC
		LIMIT 1
	`, ownerID)
	return readSalon(row)
}

func (s *Store) SearchSalons(ctx context.Context, query string) ([]models.Salon, error) {
	sqlQuery := `
		SELECT id, owner_id, name, location, phone, is_open, is_on_break, break_start_time, current_token, last_issued_token, last_token_reset
		FROM salons
	`
	args := []interface{}{}
	if strings.TrimSpace(query) != "" {
		sqlQuery += " WHERE name ILIKE $1 OR location ILIKE $1"
		args = append(args, "%"+strings.TrimSpace(query)+"%")
	}
	sqlQuery += " ORDER BY id ASC"

	rows, err := s.pool.Query(ctx, sqlQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var salons []models.Salon
	for rows.Next() {
		var salon models.Salon
		var breakStartNull sql.NullTime
		if err := scanSalon(rows, &salon, &breakStartNull); err != nil {
			return nil, err
		}
		salon.BreakStartTime = nullTimePtr(breakStartNull)
		salons = append(salons, salon)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return salons, nil
}

func (s *Store) UpdateSalonStatus(ctx context.Context, salonID int64, action string, patch store.StatusPatch, now time.Time) (models.Salon, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.Salon{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	salon, err := lockSalon(ctx, tx, salonID)
	if err != nil {
		return models.Salon{}, err
	}

	if action != "" {
		var reset bool
		salon, reset, err = queue.ApplyStatusAction(salon, action, now)
		if err != nil {
			return models.Salon{}, err
		}
		if reset {
			// Token numbers restart at 1 after the reset, so entries left
			// waiting from the previous day must not stay in the queue.
			_, err = tx.Exec(ctx, `
				UPDATE queue_entries
				SET status = 'cancelled'
				WHERE salon_id = $1 AND status = 'waiting'
			`, salonID)
			if err != nil {
				return models.Salon{}, err
			}
		}
	} else {
		if patch.IsOpen != nil {
			salon.IsOpen = *patch.IsOpen
		}
		if patch.IsOnBreak != nil {
			salon.IsOnBreak = *patch.IsOnBreak
			if !salon.IsOnBreak {
				salon.BreakStartTime = nil
			} else if salon.BreakStartTime == nil {
				t := now
				salon.BreakStartTime = &t
			}
		}
	}

	_, err = tx.Exec(ctx, `
		UPDATE salons
		SET is_open = $1,
			is_on_break = $2,
			break_start_time = $3,
			current_token = $4,
			last_issued_token = $5,
			last_token_reset = $6
		WHERE id = $7
	`, salon.IsOpen, salon.IsOnBreak, salon.BreakStartTime, salon.CurrentToken, salon.LastIssuedToken, salon.LastTokenReset, salon.ID)
	if err != nil {
		return models.Salon{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return models.Salon{}, err
	}
	return salon, nil
}

func (s *Store) CreateService(ctx context.Context, input store.CreateServiceInput) (models.Service, error) {
	var exists bool
	row := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM salons WHERE id = $1)`, input.SalonID)
	if err := row.Scan(&exists); err != nil {
		return models.Service{}, err
	}
	if !exists {
		return models.Service{}, store.ErrSalonNotFound
	}

	var svc models.Service
	row = s.pool.QueryRow(ctx, `
		INSERT INTO services (salon_id, name, duration_minutes, price)
		VALUES ($1, $2, $3, $4)
		RETURNING id, salon_id, name, duration_minutes, price
	`, input.SalonID, input.Name, input.DurationMinutes, input.Price)
	if err := row.Scan(&svc.ID, &svc.SalonID, &svc.Name, &svc.DurationMinutes, &svc.Price); err != nil {
		return models.Service{}, err
	}
	return svc, nil
}

func (s *Store) ListServices(ctx context.Context, salonID int64) ([]models.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, salon_id, name, duration_minutes, price
		FROM services
		WHERE salon_id = $1
		ORDER BY id ASC
	`, salonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		var svc models.Service
		if err := rows.Scan(&svc.ID, &svc.SalonID, &svc.Name, &svc.DurationMinutes, &svc.Price); err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return services, nil
}

// JoinQueue serializes token issuance per salon by locking the salon row.
// Concurrent joins on the same salon queue behind the lock and receive
// distinct consecutive tokens.
func (s *Store) JoinQueue(ctx context.Context, input store.JoinQueueInput, now time.Time) (store.JoinResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.JoinResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	salon, err := lockSalon(ctx, tx, input.SalonID)
	if err != nil {
		return store.JoinResult{}, err
	}

	var svc models.Service
	row := tx.QueryRow(ctx, `
		SELECT id, salon_id, name, duration_minutes, price
		FROM services
		WHERE id = $1
	`, input.ServiceID)
	if err = row.Scan(&svc.ID, &svc.SalonID, &svc.Name, &svc.DurationMinutes, &svc.Price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrServiceNotFound
		}
		return store.JoinResult{}, err
	}

	waiting, err := waitingEntries(ctx, tx, input.SalonID)
	if err != nil {
		return store.JoinResult{}, err
	}

	issued, err := queue.IssueToken(salon, svc, waiting)
	if err != nil {
		switch {
		case errors.Is(err, queue.ErrSalonClosed):
			err = store.ErrSalonClosed
		case errors.Is(err, queue.ErrInvalidService):
			err = store.ErrServiceNotFound
		}
		return store.JoinResult{}, err
	}

	var entry models.QueueEntry
	row = tx.QueryRow(ctx, `
		INSERT INTO queue_entries (salon_id, customer_id, service_id, token_number, status, created_at, estimated_wait_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, salon_id, customer_id, service_id, token_number, status, created_at, estimated_wait_minutes
	`, input.SalonID, input.CustomerID, input.ServiceID, issued.TokenNumber, models.StatusWaiting, now, issued.EstimatedWaitMinutes)
	if err = row.Scan(&entry.ID, &entry.SalonID, &entry.CustomerID, &entry.ServiceID, &entry.TokenNumber, &entry.Status, &entry.CreatedAt, &entry.EstimatedWaitMinutes); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			err = store.ErrTokenConflict
		}
		return store.JoinResult{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE salons
		SET last_issued_token = $1
		WHERE id = $2
	`, issued.TokenNumber, input.SalonID)
	if err != nil {
		return store.JoinResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.JoinResult{}, err
	}
	return store.JoinResult{Entry: entry, Position: issued.Position}, nil
}

func (s *Store) ListQueue(ctx context.Context, salonID int64) ([]models.QueueItem, error) {
	if _, err := s.GetSalon(ctx, salonID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.salon_id, e.customer_id, e.service_id, e.token_number, e.status, e.created_at, e.estimated_wait_minutes,
			u.id, u.name, u.phone, u.role, u.location, u.created_at,
			s.id, s.salon_id, s.name, s.duration_minutes, s.price
		FROM queue_entries e
		JOIN users u ON u.id = e.customer_id
		JOIN services s ON s.id = e.service_id
		WHERE e.salon_id = $1 AND e.status = 'waiting'
		ORDER BY e.token_number ASC
	`, salonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.QueueItem
	for rows.Next() {
		var item models.QueueItem
		if err := rows.Scan(
			&item.ID, &item.SalonID, &item.CustomerID, &item.ServiceID, &item.TokenNumber, &item.Status, &item.CreatedAt, &item.EstimatedWaitMinutes,
			&item.Customer.ID, &item.Customer.Name, &item.Customer.Phone, &item.Customer.Role, &item.Customer.Location, &item.Customer.CreatedAt,
			&item.Service.ID, &item.Service.SalonID, &item.Service.Name, &item.Service.DurationMinutes, &item.Service.Price,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]queue.Entry, len(items))
	for i, item := range items {
		entries[i] = queue.Entry{ID: item.ID, TokenNumber: item.TokenNumber, DurationMinutes: item.Service.DurationMinutes}
	}
	for i, placement := range queue.BuildView(entries) {
		items[i].Position = placement.Position
		items[i].EstimatedWaitMinutes = placement.EstimatedWaitMinutes
	}
	return items, nil
}

func (s *Store) ListCustomerQueue(ctx context.Context, customerID int64) ([]models.CustomerQueueItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.salon_id, e.customer_id, e.service_id, e.token_number, e.status, e.created_at, e.estimated_wait_minutes,
			sa.id, sa.owner_id, sa.name, sa.location, sa.phone, sa.is_open, sa.is_on_break, sa.break_start_time, sa.current_token, sa.last_issued_token, sa.last_token_reset,
			sv.id, sv.salon_id, sv.name, sv.duration_minutes, sv.price
		FROM queue_entries e
		JOIN salons sa ON sa.id = e.salon_id
		JOIN services sv ON sv.id = e.service_id
		WHERE e.customer_id = $1 AND e.status = 'waiting'
		ORDER BY e.created_at ASC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.CustomerQueueItem
	for rows.Next() {
		var item models.CustomerQueueItem
		var breakStartNull sql.NullTime
		if err := rows.Scan(
			&item.ID, &item.SalonID, &item.CustomerID, &item.ServiceID, &item.TokenNumber, &item.Status, &item.CreatedAt, &item.EstimatedWaitMinutes,
			&item.Salon.ID, &item.Salon.OwnerID, &item.Salon.Name, &item.Salon.Location, &item.Salon.Phone, &item.Salon.IsOpen, &item.Salon.IsOnBreak, &breakStartNull, &item.Salon.CurrentToken, &item.Salon.LastIssuedToken, &item.Salon.LastTokenReset,
			&item.Service.ID, &item.Service.SalonID, &item.Service.Name, &item.Service.DurationMinutes, &item.Service.Price,
		); err != nil {
			return nil, err
		}
		item.Salon.BreakStartTime = nullTimePtr(breakStartNull)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Position and wait are live values computed against each salon's
	// current waiting set, not the snapshot taken at join time.
	for i := range items {
		placement, err := s.placementFor(ctx, items[i].SalonID, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Position = placement.Position
		items[i].EstimatedWaitMinutes = placement.EstimatedWaitMinutes
	}
	return items, nil
}

func (s *Store) placementFor(ctx context.Context, salonID, entryID int64) (queue.Placement, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.token_number, s.duration_minutes
		FROM queue_entries e
		JOIN services s ON s.id = e.service_id
		WHERE e.salon_id = $1 AND e.status = 'waiting'
		ORDER BY e.token_number ASC
	`, salonID)
	if err != nil {
		return queue.Placement{}, err
	}
	defer rows.Close()

	var entries []queue.Entry
	for rows.Next() {
		var entry queue.Entry
		if err := rows.Scan(&entry.ID, &entry.TokenNumber, &entry.DurationMinutes); err != nil {
			return queue.Placement{}, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return queue.Placement{}, err
	}

	for _, placement := range queue.BuildView(entries) {
		if placement.EntryID == entryID {
			return placement, nil
		}
	}
	return queue.Placement{}, store.ErrEntryNotFound
}

func (s *Store) GetQueueEntry(ctx context.Context, entryID int64) (models.QueueEntry, error) {
	var entry models.QueueEntry
	row := s.pool.QueryRow(ctx, `
		SELECT id, salon_id, customer_id, service_id, token_number, status, created_at, estimated_wait_minutes
		FROM queue_entries
		WHERE id = $1
	`, entryID)
	if err := row.Scan(&entry.ID, &entry.SalonID, &entry.CustomerID, &entry.ServiceID, &entry.TokenNumber, &entry.Status, &entry.CreatedAt, &entry.EstimatedWaitMinutes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.QueueEntry{}, store.ErrEntryNotFound
		}
		return models.QueueEntry{}, err
	}
	return entry, nil
}

func (s *Store) UpdateEntryStatus(ctx context.Context, entryID int64, status string) (models.QueueEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return models.QueueEntry{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var entry models.QueueEntry
	row := tx.QueryRow(ctx, `
		SELECT id, salon_id, customer_id, service_id, token_number, status, created_at, estimated_wait_minutes
		FROM queue_entries
		WHERE id = $1
		FOR UPDATE
	`, entryID)
	if err = row.Scan(&entry.ID, &entry.SalonID, &entry.CustomerID, &entry.ServiceID, &entry.TokenNumber, &entry.Status, &entry.CreatedAt, &entry.EstimatedWaitMinutes); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = store.ErrEntryNotFound
		}
		return models.QueueEntry{}, err
	}

	if err = queue.ValidateTransition(entry.Status, status); err != nil {
		err = store.ErrInvalidState
		return models.QueueEntry{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE queue_entries
		SET status = $1
		WHERE id = $2
	`, status, entryID)
	if err != nil {
		return models.QueueEntry{}, err
	}
	entry.Status = status

	if err = tx.Commit(ctx); err != nil {
		return models.QueueEntry{}, err
	}
	return entry, nil
}

// CallNext finishes the lowest waiting token and records it as the salon's
// current token. The salon row lock serializes concurrent calls against
// joins on the same salon.
func (s *Store) CallNext(ctx context.Context, salonID int64) (store.CallNextResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return store.CallNextResult{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = lockSalon(ctx, tx, salonID); err != nil {
		return store.CallNextResult{}, err
	}

	waiting, err := waitingEntries(ctx, tx, salonID)
	if err != nil {
		return store.CallNextResult{}, err
	}

	advanced, ok := queue.Advance(waiting)
	if !ok {
		if err = tx.Commit(ctx); err != nil {
			return store.CallNextResult{}, err
		}
		return store.CallNextResult{}, nil
	}

	var entry models.QueueEntry
	row := tx.QueryRow(ctx, `
		UPDATE queue_entries
		SET status = 'completed'
		WHERE id = $1
		RETURNING id, salon_id, customer_id, service_id, token_number, status, created_at, estimated_wait_minutes
	`, advanced.Finished.ID)
	if err = row.Scan(&entry.ID, &entry.SalonID, &entry.CustomerID, &entry.ServiceID, &entry.TokenNumber, &entry.Status, &entry.CreatedAt, &entry.EstimatedWaitMinutes); err != nil {
		return store.CallNextResult{}, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE salons
		SET current_token = $1
		WHERE id = $2
	`, entry.TokenNumber, salonID)
	if err != nil {
		return store.CallNextResult{}, err
	}

	if err = tx.Commit(ctx); err != nil {
		return store.CallNextResult{}, err
	}

	result := store.CallNextResult{Finished: entry, Advanced: true}
	if advanced.HasNext {
		next := advanced.NextToken
		result.NextToken = &next
	}
	return result, nil
}

func (s *Store) QueueStatus(ctx context.Context, salonID int64) (models.QueueStatus, error) {
	salon, err := s.GetSalon(ctx, salonID)
	if err != nil {
		return models.QueueStatus{}, err
	}

	var length int
	var totalWait int
	row := s.pool.QueryRow(ctx, `
		SELECT COUNT(1), COALESCE(SUM(s.duration_minutes), 0)
		FROM queue_entries e
		JOIN services s ON s.id = e.service_id
		WHERE e.salon_id = $1 AND e.status = 'waiting'
	`, salonID)
	if err := row.Scan(&length, &totalWait); err != nil {
		return models.QueueStatus{}, err
	}

	return models.QueueStatus{
		CurrentToken:         salon.CurrentToken,
		LastIssuedToken:      salon.LastIssuedToken,
		QueueLength:          length,
		TotalWaitTimeMinutes: totalWait,
	}, nil
}

func (s *Store) CreateSubscription(ctx context.Context, userID int64, subType string, now time.Time) (models.Subscription, error) {
	var sub models.Subscription
	row := s.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, type, start_date, end_date, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, user_id, type, start_date, end_date, is_active
	`, userID, subType, now, now.Add(30*24*time.Hour))
	if err := row.Scan(&sub.ID, &sub.UserID, &sub.Type, &sub.StartDate, &sub.EndDate, &sub.IsActive); err != nil {
		return models.Subscription{}, err
	}
	return sub, nil
}

func lockSalon(ctx context.Context, tx pgx.Tx, salonID int64) (models.Salon, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, owner_id, name, location, phone, is_open, is_on_break, break_start_time, current_token, last_issued_token, last_token_reset
		FROM salons
		WHERE id = $1
		FOR UPDATE
	`, salonID)
	return readSalon(row)
}

func waitingEntries(ctx context.Context, tx pgx.Tx, salonID int64) ([]queue.Entry, error) {
	rows, err := tx.Query(ctx, `
		SELECT e.id, e.token_number, s.duration_minutes
		FROM queue_entries e
		JOIN services s ON s.id = e.service_id
		WHERE e.salon_id = $1 AND e.status = 'waiting'
		ORDER BY e.token_number ASC
	`, salonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []queue.Entry
	for rows.Next() {
		var entry queue.Entry
		if err := rows.Scan(&entry.ID, &entry.TokenNumber, &entry.DurationMinutes); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func readSalon(row pgx.Row) (models.Salon, error) {
	var salon models.Salon
	var breakStartNull sql.NullTime
	if err := scanSalon(row, &salon, &breakStartNull); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Salon{}, store.ErrSalonNotFound
		}
		return models.Salon{}, err
	}
	salon.BreakStartTime = nullTimePtr(breakStartNull)
	return salon, nil
}

func scanSalon(row pgx.Row, salon *models.Salon, breakStartNull *sql.NullTime) error {
	return row.Scan(&salon.ID, &salon.OwnerID, &salon.Name, &salon.Location, &salon.Phone, &salon.IsOpen, &salon.IsOnBreak, breakStartNull, &salon.CurrentToken, &salon.LastIssuedToken, &salon.LastTokenReset)
}

func nullTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time
	return &t
}
