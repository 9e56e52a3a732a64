package queue

import (
	"errors"
	"testing"
	"time"

	"salonq/internal/models"
)

func openSalon(lastIssued int) models.Salon {
	return models.Salon{
		ID:              1,
		IsOpen:          true,
		LastIssuedToken: lastIssued,
		LastTokenReset:  time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
	}
}

func TestIssueTokenClosedSalon(t *testing.T) {
	salon := openSalon(0)
	salon.IsOpen = false

	_, err := IssueToken(salon, models.Service{ID: 10, SalonID: 1}, nil)
	if !errors.Is(err, ErrSalonClosed) {
		t.Fatalf("expected ErrSalonClosed, got %v", err)
	}
}

func TestIssueTokenForeignService(t *testing.T) {
	_, err := IssueToken(openSalon(0), models.Service{ID: 10, SalonID: 2}, nil)
	if !errors.Is(err, ErrInvalidService) {
		t.Fatalf("expected ErrInvalidService, got %v", err)
	}
}

func TestIssueTokenEmptyQueue(t *testing.T) {
	issued, err := IssueToken(openSalon(0), models.Service{ID: 10, SalonID: 1, DurationMinutes: 30}, nil)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if issued.TokenNumber != 1 || issued.Position != 1 || issued.EstimatedWaitMinutes != 0 {
		t.Fatalf("unexpected issue result: %+v", issued)
	}
}

func TestIssueTokenSumsAllWaiting(t *testing.T) {
	waiting := []Entry{
		{ID: 1, TokenNumber: 1, DurationMinutes: 30},
		{ID: 2, TokenNumber: 2, DurationMinutes: 15},
	}
	issued, err := IssueToken(openSalon(2), models.Service{ID: 10, SalonID: 1, DurationMinutes: 45}, waiting)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if issued.TokenNumber != 3 {
		t.Fatalf("expected token 3, got %d", issued.TokenNumber)
	}
	if issued.Position != 3 {
		t.Fatalf("expected position 3, got %d", issued.Position)
	}
	if issued.EstimatedWaitMinutes != 45 {
		t.Fatalf("expected wait 45, got %d", issued.EstimatedWaitMinutes)
	}
}

func TestBuildViewOrdersByToken(t *testing.T) {
	waiting := []Entry{
		{ID: 3, TokenNumber: 7, DurationMinutes: 20},
		{ID: 1, TokenNumber: 2, DurationMinutes: 30},
		{ID: 2, TokenNumber: 5, DurationMinutes: 15},
	}

	view := BuildView(waiting)
	if len(view) != 3 {
		t.Fatalf("expected 3 placements, got %d", len(view))
	}

	expected := []Placement{
		{EntryID: 1, TokenNumber: 2, Position: 1, EstimatedWaitMinutes: 0},
		{EntryID: 2, TokenNumber: 5, Position: 2, EstimatedWaitMinutes: 30},
		{EntryID: 3, TokenNumber: 7, Position: 3, EstimatedWaitMinutes: 45},
	}
	for i, want := range expected {
		if view[i] != want {
			t.Fatalf("placement %d: got %+v, want %+v", i, view[i], want)
		}
	}
}

func TestBuildViewIdempotent(t *testing.T) {
	waiting := []Entry{
		{ID: 1, TokenNumber: 4, DurationMinutes: 10},
		{ID: 2, TokenNumber: 9, DurationMinutes: 25},
	}
	first := BuildView(waiting)
	second := BuildView(waiting)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("view changed between polls: %+v vs %+v", first[i], second[i])
		}
	}
	// Input order must be untouched.
	if waiting[0].ID != 1 || waiting[1].ID != 2 {
		t.Fatalf("input slice reordered: %+v", waiting)
	}
}

func TestAdvanceEmptyQueue(t *testing.T) {
	if _, ok := Advance(nil); ok {
		t.Fatal("expected no advance on empty queue")
	}
}

func TestAdvancePicksLowestToken(t *testing.T) {
	waiting := []Entry{
		{ID: 2, TokenNumber: 5, DurationMinutes: 15},
		{ID: 1, TokenNumber: 2, DurationMinutes: 30},
	}

	advanced, ok := Advance(waiting)
	if !ok {
		t.Fatal("expected advance")
	}
	if advanced.Finished.TokenNumber != 2 {
		t.Fatalf("expected token 2 finished, got %d", advanced.Finished.TokenNumber)
	}
	if !advanced.HasNext || advanced.NextToken != 5 {
		t.Fatalf("expected next token 5, got %+v", advanced)
	}
}

func TestAdvanceLastEntry(t *testing.T) {
	advanced, ok := Advance([]Entry{{ID: 1, TokenNumber: 8}})
	if !ok {
		t.Fatal("expected advance")
	}
	if advanced.HasNext {
		t.Fatalf("expected no next token, got %d", advanced.NextToken)
	}
}

// Scenario from the queue semantics: two services (30min, 15min) joined in
// order, then the owner calls next twice.
func TestJoinAndAdvanceScenario(t *testing.T) {
	salon := openSalon(0)
	svc30 := models.Service{ID: 10, SalonID: 1, DurationMinutes: 30}
	svc15 := models.Service{ID: 11, SalonID: 1, DurationMinutes: 15}

	first, err := IssueToken(salon, svc30, nil)
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	if first.TokenNumber != 1 || first.Position != 1 || first.EstimatedWaitMinutes != 0 {
		t.Fatalf("unexpected first join: %+v", first)
	}
	salon.LastIssuedToken = first.TokenNumber
	waiting := []Entry{{ID: 1, TokenNumber: 1, DurationMinutes: 30}}

	second, err := IssueToken(salon, svc15, waiting)
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if second.TokenNumber != 2 || second.Position != 2 || second.EstimatedWaitMinutes != 30 {
		t.Fatalf("unexpected second join: %+v", second)
	}
	salon.LastIssuedToken = second.TokenNumber
	waiting = append(waiting, Entry{ID: 2, TokenNumber: 2, DurationMinutes: 15})

	advanced, ok := Advance(waiting)
	if !ok || advanced.Finished.TokenNumber != 1 {
		t.Fatalf("unexpected first advance: %+v", advanced)
	}
	if !advanced.HasNext || advanced.NextToken != 2 {
		t.Fatalf("expected next token 2, got %+v", advanced)
	}
	salon.CurrentToken = advanced.Finished.TokenNumber
	if salon.CurrentToken > salon.LastIssuedToken {
		t.Fatalf("current token %d exceeds last issued %d", salon.CurrentToken, salon.LastIssuedToken)
	}
	waiting = waiting[1:]

	advanced, ok = Advance(waiting)
	if !ok || advanced.Finished.TokenNumber != 2 {
		t.Fatalf("unexpected second advance: %+v", advanced)
	}
	if advanced.HasNext {
		t.Fatalf("expected empty queue after second advance: %+v", advanced)
	}
}

func TestApplyStatusActionOpenResetsOnNewDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	salon := models.Salon{
		ID:              1,
		CurrentToken:    4,
		LastIssuedToken: 9,
		LastTokenReset:  time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
	}

	updated, reset, err := ApplyStatusAction(salon, ActionOpen, now)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !reset {
		t.Fatal("expected reset flag on new-day open")
	}
	if !updated.IsOpen || updated.IsOnBreak {
		t.Fatalf("unexpected flags: %+v", updated)
	}
	if updated.CurrentToken != 0 || updated.LastIssuedToken != 0 {
		t.Fatalf("expected counter reset, got %+v", updated)
	}
	if !updated.LastTokenReset.Equal(now) {
		t.Fatalf("expected reset stamp %v, got %v", now, updated.LastTokenReset)
	}

	// Same-day reopen keeps the counters.
	updated.CurrentToken = 3
	updated.LastIssuedToken = 5
	again, reset, err := ApplyStatusAction(updated, ActionOpen, now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reset {
		t.Fatal("same-day open must not report a reset")
	}
	if again.CurrentToken != 3 || again.LastIssuedToken != 5 {
		t.Fatalf("same-day open must not reset counters: %+v", again)
	}
}

func TestApplyStatusActionCloseAndBreak(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	salon := models.Salon{ID: 1, IsOpen: true, LastTokenReset: now}

	onBreak, _, err := ApplyStatusAction(salon, ActionBreakStart, now)
	if err != nil {
		t.Fatalf("break_start: %v", err)
	}
	if !onBreak.IsOnBreak || onBreak.BreakStartTime == nil || !onBreak.BreakStartTime.Equal(now) {
		t.Fatalf("unexpected break state: %+v", onBreak)
	}

	offBreak, _, err := ApplyStatusAction(onBreak, ActionBreakEnd, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("break_end: %v", err)
	}
	if offBreak.IsOnBreak || offBreak.BreakStartTime != nil {
		t.Fatalf("unexpected state after break_end: %+v", offBreak)
	}

	closed, _, err := ApplyStatusAction(offBreak, ActionClose, now)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.IsOpen || closed.IsOnBreak {
		t.Fatalf("unexpected state after close: %+v", closed)
	}

	if _, _, err := ApplyStatusAction(salon, "pause", now); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
}

func TestValidateTransition(t *testing.T) {
	cases := []struct {
		from  string
		to    string
		valid bool
	}{
		{models.StatusWaiting, models.StatusCompleted, true},
		{models.StatusWaiting, models.StatusCancelled, true},
		{models.StatusWaiting, models.StatusWaiting, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCompleted, models.StatusCompleted, false},
		{models.StatusCancelled, models.StatusCompleted, false},
	}

	for _, tt := range cases {
		err := ValidateTransition(tt.from, tt.to)
		if tt.valid && err != nil {
			t.Fatalf("ValidateTransition(%q, %q): unexpected error %v", tt.from, tt.to, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("ValidateTransition(%q, %q): expected ErrInvalidTransition, got %v", tt.from, tt.to, err)
		}
	}
}
