package memstore

import (
	"context"
	"sort"
	"time"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/documents/commercial"
)

// IntentRepo implements commercial.IntentStore.
type IntentRepo struct {
	s *Store
}

var _ commercial.IntentStore = (*IntentRepo)(nil)

func copyLog(l *commercial.OperationLog) *commercial.OperationLog {
	c := *l
	c.Steps = append([]commercial.Step(nil), l.Steps...)
	return &c
}

// Begin stores a new intent.
func (r *IntentRepo) Begin(_ context.Context, log *commercial.OperationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.intents[log.ID]; ok {
		return apperror.NewConflict("intent already exists").WithDetail("id", log.ID.String())
	}
	r.s.intents[log.ID] = copyLog(log)
	return nil
}

// Save overwrites a stored intent.
func (r *IntentRepo) Save(_ context.Context, log *commercial.OperationLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.intents[log.ID]; !ok {
		return apperror.NewNotFound("intent", log.ID.String())
	}
	r.s.intents[log.ID] = copyLog(log)
	return nil
}

// Get retrieves an intent.
func (r *IntentRepo) Get(_ context.Context, intentID id.ID) (*commercial.OperationLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	l, ok := r.s.intents[intentID]
	if !ok {
		return nil, apperror.NewNotFound("intent", intentID.String())
	}
	return copyLog(l), nil
}

// ListStale returns open intents started before olderThan, oldest first.
func (r *IntentRepo) ListStale(_ context.Context, olderThan time.Time, limit int) ([]*commercial.OperationLog, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*commercial.OperationLog, 0)
	for _, l := range r.s.intents {
		if l.Status == commercial.IntentOpen && l.StartedAt.Before(olderThan) {
			out = append(out, copyLog(l))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
