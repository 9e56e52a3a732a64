// Package queue implements the token and ordering rules for a single
// salon's queue. It performs no I/O; callers load the salon, service, and
// waiting entries, invoke an operation, and persist the described
// mutation. Serialization of concurrent issuance/advance for the same
// salon is the caller's responsibility (row lock or mutex).
package queue

import (
	"errors"
	"sort"
	"time"

	"salonq/internal/models"
)

var (
	ErrSalonClosed       = errors.New("salon is closed")
	ErrInvalidService    = errors.New("service does not belong to salon")
	ErrInvalidTransition = errors.New("invalid queue entry transition")
	ErrUnknownAction     = errors.New("unknown status action")
)

// Entry is a waiting queue entry joined with its service duration, the
// only inputs the ordering math needs.
type Entry struct {
	ID              int64
	TokenNumber     int
	DurationMinutes int
}

// Issued describes the outcome of a join: the token to assign, the
// 1-based position at the end of the line, and the wait-time snapshot to
// store on the new entry. The caller must persist
// salon.LastIssuedToken = TokenNumber in the same critical section.
type Issued struct {
	TokenNumber          int
	Position             int
	EstimatedWaitMinutes int
}

// IssueToken validates the join preconditions and computes the next token.
// The estimated wait is the sum of durations over every currently waiting
// entry, a point-in-time snapshot that is never updated retroactively.
func IssueToken(salon models.Salon, svc models.Service, waiting []Entry) (Issued, error) {
	if !salon.IsOpen {
		return Issued{}, ErrSalonClosed
	}
	if svc.SalonID != salon.ID {
		return Issued{}, ErrInvalidService
	}

	wait := 0
	for _, entry := range waiting {
		wait += entry.DurationMinutes
	}

	return Issued{
		TokenNumber:          salon.LastIssuedToken + 1,
		Position:             len(waiting) + 1,
		EstimatedWaitMinutes: wait,
	}, nil
}

// Placement is a waiting entry's live rank and wait time.
type Placement struct {
	EntryID              int64
	TokenNumber          int
	Position             int
	EstimatedWaitMinutes int
}

// BuildView recomputes positions and wait times for the waiting set.
// Token number is the authoritative order; the wait for an entry is the
// sum of durations of entries with strictly lower tokens. Idempotent, safe
// to call on every poll.
func BuildView(waiting []Entry) []Placement {
	sorted := make([]Entry, len(waiting))
	copy(sorted, waiting)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].TokenNumber < sorted[j].TokenNumber
	})

	placements := make([]Placement, 0, len(sorted))
	wait := 0
	for i, entry := range sorted {
		placements = append(placements, Placement{
			EntryID:              entry.ID,
			TokenNumber:          entry.TokenNumber,
			Position:             i + 1,
			EstimatedWaitMinutes: wait,
		})
		wait += entry.DurationMinutes
	}
	return placements
}

// SelectNext returns the waiting entry with the lowest token number.
func SelectNext(waiting []Entry) (Entry, bool) {
	if len(waiting) == 0 {
		return Entry{}, false
	}
	next := waiting[0]
	for _, entry := range waiting[1:] {
		if entry.TokenNumber < next.TokenNumber {
			next = entry
		}
	}
	return next, true
}

// Advanced describes the outcome of a queue advance: the entry that was
// finished and the new lowest waiting token, if any.
type Advanced struct {
	Finished  Entry
	NextToken int
	HasNext   bool
}

// Advance finishes the lowest waiting token and reports the new head of
// the line. There is no separate in-progress state: one call both
// completes the current customer and republishes the next token. The
// caller must mark the finished entry completed and set
// salon.CurrentToken = Finished.TokenNumber.
func Advance(waiting []Entry) (Advanced, bool) {
	finished, ok := SelectNext(waiting)
	if !ok {
		return Advanced{}, false
	}

	result := Advanced{Finished: finished}
	remaining := make([]Entry, 0, len(waiting)-1)
	for _, entry := range waiting {
		if entry.ID != finished.ID {
			remaining = append(remaining, entry)
		}
	}
	if next, ok := SelectNext(remaining); ok {
		result.NextToken = next.TokenNumber
		result.HasNext = true
	}
	return result, true
}

const (
	ActionOpen       = "open"
	ActionClose      = "close"
	ActionBreakStart = "break_start"
	ActionBreakEnd   = "break_end"
)

// ApplyStatusAction maps a status action onto the salon. The action fully
// determines the fields applied. Opening on a new calendar day resets both
// token counters atomically with the open transition; the reset flag tells
// the caller to cancel any entries still waiting from the previous day in
// the same critical section, because their token numbers will be reissued.
func ApplyStatusAction(salon models.Salon, action string, now time.Time) (models.Salon, bool, error) {
	reset := false
	switch action {
	case ActionOpen:
		salon.IsOpen = true
		salon.IsOnBreak = false
		if !sameDate(salon.LastTokenReset, now) {
			salon.CurrentToken = 0
			salon.LastIssuedToken = 0
			salon.LastTokenReset = now
			reset = true
		}
	case ActionClose:
		salon.IsOpen = false
		salon.IsOnBreak = false
	case ActionBreakStart:
		salon.IsOnBreak = true
		breakStart := now
		salon.BreakStartTime = &breakStart
	case ActionBreakEnd:
		salon.IsOnBreak = false
		salon.BreakStartTime = nil
	default:
		return models.Salon{}, false, ErrUnknownAction
	}
	return salon, reset, nil
}

// ValidateTransition checks a queue entry status change. Waiting entries
// may complete or cancel; completed and cancelled are terminal.
func ValidateTransition(from, to string) error {
	if from != models.StatusWaiting {
		return ErrInvalidTransition
	}
	switch to {
	case models.StatusCompleted, models.StatusCancelled:
		return nil
	}
	return ErrInvalidTransition
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
