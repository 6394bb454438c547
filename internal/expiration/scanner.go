package expiration

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdesignweb/crm-notifier/internal/storage"
)

// Scanner finds services whose renewal date falls inside the lookahead window.
type Scanner struct {
	store   storage.ServiceStore
	loc     *time.Location
	timeout time.Duration
}

// NewScanner returns a Scanner that evaluates "today" in loc.
func NewScanner(store storage.ServiceStore, loc *time.Location, timeout time.Duration) *Scanner {
	if loc == nil {
		loc = time.UTC
	}
	return &Scanner{store: store, loc: loc, timeout: timeout}
}

// FindCandidates returns active, notification-enabled services renewing
// between today and today+lookaheadDays, both inclusive. An empty result is
// not an error. Store failures are wrapped in ErrStoreUnavailable.
func (s *Scanner) FindCandidates(ctx context.Context, now time.Time, lookaheadDays int) ([]storage.Candidate, error) {
	if lookaheadDays < 0 {
		return nil, fmt.Errorf("%w: negative lookahead %d", ErrInvalidConfig, lookaheadDays)
	}
	from, to := Window(now, s.loc, lookaheadDays)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	candidates, err := s.store.FindExpiring(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if candidates == nil {
		candidates = []storage.Candidate{}
	}
	return candidates, nil
}
