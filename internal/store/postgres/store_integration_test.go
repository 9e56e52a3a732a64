package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"salonq/internal/models"
	"salonq/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func TestJoinQueueConcurrency(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	salon, svc, customer := seedSalon(t, ctx, st, true)

	const joins = 8
	var wg sync.WaitGroup
	tokens := make(chan int, joins)
	for i := 0; i < joins; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := st.JoinQueue(ctx, store.JoinQueueInput{SalonID: salon.ID, ServiceID: svc.ID, CustomerID: customer.ID}, time.Now().UTC())
			if err != nil {
				t.Errorf("join: %v", err)
				return
			}
			tokens <- result.Entry.TokenNumber
		}()
	}
	wg.Wait()
	close(tokens)

	var issued []int
	for token := range tokens {
		issued = append(issued, token)
	}
	sort.Ints(issued)
	if len(issued) != joins {
		t.Fatalf("expected %d tokens, got %d", joins, len(issued))
	}
	for i, token := range issued {
		if token != i+1 {
			t.Fatalf("expected dense tokens 1..%d, got %v", joins, issued)
		}
	}

	status, err := st.QueueStatus(ctx, salon.ID)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if status.LastIssuedToken != joins || status.QueueLength != joins {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestJoinAndCallNextFlow(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	salon, svc30, customer := seedSalon(t, ctx, st, true)
	svc15, err := st.CreateService(ctx, store.CreateServiceInput{SalonID: salon.ID, Name: "Beard Trim", DurationMinutes: 15, Price: 120})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}

	now := time.Now().UTC()
	first, err := st.JoinQueue(ctx, store.JoinQueueInput{SalonID: salon.ID, ServiceID: svc30.ID, CustomerID: customer.ID}, now)
	if err != nil {
		t.Fatalf("join 1: %v", err)
	}
	second, err := st.JoinQueue(ctx, store.JoinQueueInput{SalonID: salon.ID, ServiceID: svc15.ID, CustomerID: customer.ID}, now)
	if err != nil {
		t.Fatalf("join 2: %v", err)
	}
	if first.Entry.TokenNumber != 1 || second.Entry.TokenNumber != 2 {
		t.Fatalf("expected tokens 1,2 got %d,%d", first.Entry.TokenNumber, second.Entry.TokenNumber)
	}
	if second.Entry.EstimatedWaitMinutes != 30 {
		t.Fatalf("expected wait 30, got %d", second.Entry.EstimatedWaitMinutes)
	}

	result, err := st.CallNext(ctx, salon.ID)
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if !result.Advanced || result.Finished.TokenNumber != 1 {
		t.Fatalf("unexpected advance: %+v", result)
	}
	if result.NextToken == nil || *result.NextToken != 2 {
		t.Fatalf("expected next token 2, got %+v", result.NextToken)
	}

	items, err := st.ListQueue(ctx, salon.ID)
	if err != nil {
		t.Fatalf("list queue: %v", err)
	}
	if len(items) != 1 || items[0].Position != 1 || items[0].EstimatedWaitMinutes != 0 {
		t.Fatalf("unexpected live view: %+v", items)
	}

	result, err = st.CallNext(ctx, salon.ID)
	if err != nil {
		t.Fatalf("second call next: %v", err)
	}
	if !result.Advanced || result.NextToken != nil {
		t.Fatalf("unexpected second advance: %+v", result)
	}

	result, err = st.CallNext(ctx, salon.ID)
	if err != nil {
		t.Fatalf("empty call next: %v", err)
	}
	if result.Advanced {
		t.Fatalf("expected no-op on empty queue, got %+v", result)
	}
}

func TestJoinQueueClosedSalon(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	salon, svc, customer := seedSalon(t, ctx, st, false)
	_, err := st.JoinQueue(ctx, store.JoinQueueInput{SalonID: salon.ID, ServiceID: svc.ID, CustomerID: customer.ID}, time.Now().UTC())
	if !errors.Is(err, store.ErrSalonClosed) {
		t.Fatalf("expected ErrSalonClosed, got %v", err)
	}
}

func TestOpenResetsCountersOnNewDay(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	salon, svc, customer := seedSalon(t, ctx, st, true)
	stale, err := st.JoinQueue(ctx, store.JoinQueueInput{SalonID: salon.ID, ServiceID: svc.ID, CustomerID: customer.ID}, time.Now().UTC())
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	tomorrow := time.Now().UTC().Add(24 * time.Hour)
	updated, err := st.UpdateSalonStatus(ctx, salon.ID, "open", store.StatusPatch{}, tomorrow)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if updated.CurrentToken != 0 || updated.LastIssuedToken != 0 {
		t.Fatalf("expected counter reset, got %+v", updated)
	}
	if !updated.LastTokenReset.Equal(tomorrow) {
		t.Fatalf("expected reset stamp %v, got %v", tomorrow, updated.LastTokenReset)
	}

	// The reset cancels entries left waiting from the previous day.
	entry, err := st.GetQueueEntry(ctx, stale.Entry.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if entry.Status != models.StatusCancelled {
		t.Fatalf("expected stale entry cancelled, got %s", entry.Status)
	}

	// Yesterday's token number is reissued without tripping the waiting
	// uniqueness constraint.
	fresh, err := st.JoinQueue(ctx, store.JoinQueueInput{SalonID: salon.ID, ServiceID: svc.ID, CustomerID: customer.ID}, tomorrow)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if fresh.Entry.TokenNumber != 1 || fresh.Position != 1 {
		t.Fatalf("expected token 1 position 1 after reset, got %+v", fresh)
	}

	result, err := st.CallNext(ctx, salon.ID)
	if err != nil {
		t.Fatalf("call next: %v", err)
	}
	if !result.Advanced || result.Finished.ID != fresh.Entry.ID {
		t.Fatalf("expected fresh entry served, got %+v", result)
	}
	status, err := st.QueueStatus(ctx, salon.ID)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	if status.CurrentToken > status.LastIssuedToken {
		t.Fatalf("current token %d exceeds last issued %d", status.CurrentToken, status.LastIssuedToken)
	}
}

func TestUpdateEntryStatusTransitions(t *testing.T) {
	ctx := context.Background()
	st, cleanup := setupTestStore(t, ctx)
	t.Cleanup(cleanup)

	salon, svc, customer := seedSalon(t, ctx, st, true)
	result, err := st.JoinQueue(ctx, store.JoinQueueInput{SalonID: salon.ID, ServiceID: svc.ID, CustomerID: customer.ID}, time.Now().UTC())
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	entry, err := st.UpdateEntryStatus(ctx, result.Entry.ID, models.StatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if entry.Status != models.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", entry.Status)
	}

	if _, err := st.UpdateEntryStatus(ctx, result.Entry.ID, models.StatusCompleted); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func seedSalon(t *testing.T, ctx context.Context, st *Store, open bool) (models.Salon, models.Service, models.User) {
	t.Helper()

	owner, err := st.CreateUser(ctx, store.CreateUserInput{Name: "Ravi", Phone: "9" + uuid.NewString()[:9], Role: models.RoleBarber})
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	customer, err := st.CreateUser(ctx, store.CreateUserInput{Name: "Asha", Phone: "9" + uuid.NewString()[:9], Role: models.RoleCustomer})
	if err != nil {
		t.Fatalf("create customer: %v", err)
	}
	salon, err := st.CreateSalon(ctx, store.CreateSalonInput{OwnerID: owner.ID, Name: "Fade Factory", Location: "Indiranagar", Phone: "080123456"})
	if err != nil {
		t.Fatalf("create salon: %v", err)
	}
	if open {
		salon, err = st.UpdateSalonStatus(ctx, salon.ID, "open", store.StatusPatch{}, time.Now().UTC())
		if err != nil {
			t.Fatalf("open salon: %v", err)
		}
	}
	svc, err := st.CreateService(ctx, store.CreateServiceInput{SalonID: salon.ID, Name: "Haircut", DurationMinutes: 30, Price: 250})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return salon, svc, customer
}

func setupTestStore(t *testing.T, ctx context.Context) (*Store, func()) {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		dsn = os.Getenv("DB_DSN")
	}
	if dsn == "" {
		t.Skip("TEST_DB_DSN or DB_DSN is required for integration tests")
	}

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := createSchema(ctx, dsn, schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	pool, err := newPoolWithSchema(ctx, dsn, schema)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("apply migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		_ = dropSchema(context.Background(), dsn, schema)
	}
	return NewStore(pool), cleanup
}

func createSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "CREATE SCHEMA "+schema)
	return err
}

func dropSchema(ctx context.Context, dsn, schema string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE")
	return err
}

func newPoolWithSchema(ctx context.Context, dsn, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	return pgxpool.NewWithConfig(ctx, cfg)
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	dir := filepath.Join("..", "..", "..", "migrations")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		if _, err := pool.Exec(ctx, string(content)); err != nil {
			return err
		}
	}
	return nil
}
