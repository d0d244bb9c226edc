// Package memory provides an in-memory history store for tests and
// keyless read-only runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"bounty-board/internal/history"
)

// Store is an in-memory implementation of history.Store.
type Store struct {
	mu   sync.RWMutex
	data map[string]*history.Activity
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*history.Activity),
	}
}

// Compile-time interface check.
var _ history.Store = (*Store)(nil)

// Record adds a new pending activity. Returns ErrDuplicateKey if the id
// exists.
func (s *Store) Record(_ context.Context, a *history.Activity) error {
	if a == nil || a.ID == "" {
		return history.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[a.ID]; exists {
		return history.ErrDuplicateKey
	}

	// Store a copy to prevent external mutation.
	activityCopy := *a
	s.data[a.ID] = &activityCopy
	return nil
}

// MarkConfirmed finalizes an activity as confirmed.
func (s *Store) MarkConfirmed(_ context.Context, id string, bountyID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[id]
	if !exists {
		return history.ErrNotFound
	}
	a.Outcome = history.OutcomeConfirmed
	if bountyID != 0 {
		a.BountyID = bountyID
	}
	a.UpdatedAt = time.Now()
	return nil
}

// MarkFailed finalizes an activity as failed with a reason.
func (s *Store) MarkFailed(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.data[id]
	if !exists {
		return history.ErrNotFound
	}
	a.Outcome = history.OutcomeFailed
	a.Detail = reason
	a.UpdatedAt = time.Now()
	return nil
}

// ByActor retrieves all activities of one account, ordered by created_at ASC.
func (s *Store) ByActor(_ context.Context, actor common.Address) ([]*history.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*history.Activity
	for _, a := range s.data {
		if a.Actor == actor {
			activityCopy := *a
			result = append(result, &activityCopy)
		}
	}
	sortByCreation(result)
	return result, nil
}

// ByBounty retrieves all activities touching one bounty, ordered by
// created_at ASC.
func (s *Store) ByBounty(_ context.Context, bountyID uint64) ([]*history.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*history.Activity
	for _, a := range s.data {
		if a.BountyID == bountyID {
			activityCopy := *a
			result = append(result, &activityCopy)
		}
	}
	sortByCreation(result)
	return result, nil
}

func sortByCreation(activities []*history.Activity) {
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].CreatedAt.Equal(activities[j].CreatedAt) {
			return activities[i].ID < activities[j].ID
		}
		return activities[i].CreatedAt.Before(activities[j].CreatedAt)
	})
}
