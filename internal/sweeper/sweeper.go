// Package sweeper demotes stale reservations to expired. It runs as an
// independent batch job (cmd/sweeper), never as part of the API process.
package sweeper

import (
	"context"
	"log"
	"time"

	"devicelab/internal/domain"
)

// ReservationSource is the storage slice the sweeper needs.
type ReservationSource interface {
	FindExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
	ExpireIf(ctx context.Context, id int64, expect domain.ReservationStatus, now time.Time) (int64, error)
}

type Sweeper struct {
	reservations ReservationSource
	batchSize    int
}

func New(reservations ReservationSource, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{reservations: reservations, batchSize: batchSize}
}

// Sweep expires every pending or approved reservation whose window ended
// before now. Each row is written conditionally on the status the sweep
// observed, so a concurrent cancel, complete or extend wins and the row
// is simply skipped. Re-running over already-expired rows is a no-op.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	total := 0
	for {
		batch, err := s.reservations.FindExpiredCandidates(ctx, now, s.batchSize)
		if err != nil {
			return total, err
		}
		if len(batch) == 0 {
			return total, nil
		}

		expired := 0
		for i := range batch {
			r := &batch[i]
			rows, err := s.reservations.ExpireIf(ctx, r.ID, r.Status, now)
			if err != nil {
				return total, err
			}
			if rows == 0 {
				// Lost the race to a lifecycle call; the row has left
				// the candidate set either way.
				continue
			}
			expired++
		}
		total += expired

		if expired == 0 && len(batch) < s.batchSize {
			return total, nil
		}
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := s.Sweep(ctx, time.Now())
			if err != nil {
				log.Printf("sweep failed after %d rows: %v", n, err)
				continue
			}
			if n > 0 {
				log.Printf("sweep expired %d reservations", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
