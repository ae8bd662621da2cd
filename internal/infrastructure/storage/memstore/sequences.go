package memstore

import (
	"context"
	"time"

	"ledgerbook/pkg/numerator"
)

// SequenceRepo numbers documents from in-memory counters using the same
// keys and format as the postgres numerator.
type SequenceRepo struct {
	s *Store
}

// Next returns the next number for prefix within the business.
func (r *SequenceRepo) Next(_ context.Context, businessID, prefix string, date time.Time) (string, error) {
	cfg := numerator.DefaultConfig(prefix)
	key := businessID + "/" + numerator.BuildKey(cfg, date)

	r.s.mu.Lock()
	r.s.sequences[key]++
	n := r.s.sequences[key]
	r.s.mu.Unlock()

	return numerator.Format(cfg, date, n), nil
}
