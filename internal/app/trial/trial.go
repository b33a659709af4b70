/*
Package trial tracks the free-trial time budget for unauthenticated users.

The budget is anchored on a persisted origin timestamp rather than a running
counter: remaining time is always recomputed as budget minus elapsed-since-
origin, so reconnects, refreshes, and server restarts cannot stretch the
trial.
*/
package trial

import (
	"context"
	"errors"
	"time"

	"guruvani/internal/app/db"
)

// DefaultBudget is the free-trial allowance when none is configured.
const DefaultBudget = 15 * time.Minute

// Store persists trial origin timestamps.
type Store interface {
	GetOrCreateTrialStart(ctx context.Context, userID string) (time.Time, error)
	GetTrialStart(ctx context.Context, userID string) (time.Time, error)
	ResetTrialStart(ctx context.Context, userID string) error
}

// State is the externally visible trial status for one user.
type State struct {
	UserID           string     `json:"userId"`
	Started          bool       `json:"started"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	BudgetSeconds    int        `json:"budgetSeconds"`
	RemainingSeconds int        `json:"remainingSeconds"`
	Expired          bool       `json:"expired"`
}

// Service computes trial state from the stored origin.
type Service struct {
	store  Store
	budget time.Duration

	// now is injectable for tests.
	now func() time.Time
}

// NewService constructs a Service. A non-positive budget falls back to
// DefaultBudget.
func NewService(store Store, budget time.Duration) *Service {
	if budget <= 0 {
		budget = DefaultBudget
	}

	return &Service{
		store:  store,
		budget: budget,
		now:    time.Now,
	}
}

// Begin returns the user's trial state, anchoring the origin now if this is
// the user's first session.
func (s *Service) Begin(ctx context.Context, userID string) (*State, error) {
	startedAt, err := s.store.GetOrCreateTrialStart(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.stateFrom(userID, startedAt), nil
}

// Status returns the user's trial state without starting the clock. A user
// with no stored origin has the full budget remaining.
func (s *Service) Status(ctx context.Context, userID string) (*State, error) {
	startedAt, err := s.store.GetTrialStart(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return &State{
			UserID:           userID,
			BudgetSeconds:    int(s.budget / time.Second),
			RemainingSeconds: int(s.budget / time.Second),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return s.stateFrom(userID, startedAt), nil
}

// Reset clears the stored origin, renewing the full budget.
func (s *Service) Reset(ctx context.Context, userID string) error {
	return s.store.ResetTrialStart(ctx, userID)
}

// Deadline converts a trial state into the wall-clock instant the budget
// runs out.
func (s *Service) Deadline(state *State) time.Time {
	return s.now().Add(time.Duration(state.RemainingSeconds) * time.Second)
}

func (s *Service) stateFrom(userID string, startedAt time.Time) *State {
	remaining := s.budget - s.now().Sub(startedAt)
	if remaining < 0 {
		remaining = 0
	}

	return &State{
		UserID:           userID,
		Started:          true,
		StartedAt:        &startedAt,
		BudgetSeconds:    int(s.budget / time.Second),
		RemainingSeconds: int(remaining / time.Second),
		Expired:          remaining == 0,
	}
}
