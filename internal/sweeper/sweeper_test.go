package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"devicelab/internal/domain"
)

// fakeSource is an in-memory reservation table; the sweep loop needs
// stateful reads, which a call-recording mock cannot express.
type fakeSource struct {
	rows map[int64]*domain.Reservation
	// afterFind runs once after the next candidate read, to model a
	// lifecycle call landing between the read and the conditional write.
	afterFind func()
}

func newFakeSource(rows ...domain.Reservation) *fakeSource {
	f := &fakeSource{rows: make(map[int64]*domain.Reservation)}
	for i := range rows {
		r := rows[i]
		f.rows[r.ID] = &r
	}
	return f
}

func (f *fakeSource) FindExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range f.rows {
		if r.Active() && r.EndTime.Before(now) {
			out = append(out, *r)
			if len(out) == limit {
				break
			}
		}
	}
	if f.afterFind != nil {
		f.afterFind()
		f.afterFind = nil
	}
	return out, nil
}

func (f *fakeSource) ExpireIf(ctx context.Context, id int64, expect domain.ReservationStatus, now time.Time) (int64, error) {
	r, ok := f.rows[id]
	if !ok || r.Status != expect || !r.EndTime.Before(now) {
		return 0, nil
	}
	r.Status = domain.ReservationExpired
	return 1, nil
}

func TestSweeper_ExpiresStaleActiveRows(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	src := newFakeSource(
		domain.Reservation{ID: 1, Status: domain.ReservationPending, EndTime: now.Add(-time.Hour)},
		domain.Reservation{ID: 2, Status: domain.ReservationApproved, EndTime: now.Add(-time.Minute)},
		domain.Reservation{ID: 3, Status: domain.ReservationApproved, EndTime: now.Add(time.Hour)},
		domain.Reservation{ID: 4, Status: domain.ReservationCancelled, EndTime: now.Add(-time.Hour)},
	)

	n, err := New(src, 100).Sweep(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, domain.ReservationExpired, src.rows[1].Status)
	assert.Equal(t, domain.ReservationExpired, src.rows[2].Status)
	assert.Equal(t, domain.ReservationApproved, src.rows[3].Status, "future window untouched")
	assert.Equal(t, domain.ReservationCancelled, src.rows[4].Status, "terminal row untouched")
}

func TestSweeper_Idempotent(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	src := newFakeSource(
		domain.Reservation{ID: 1, Status: domain.ReservationApproved, EndTime: now.Add(-time.Hour)},
	)

	sw := New(src, 100)
	n, err := sw.Sweep(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = sw.Sweep(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSweeper_PagesThroughLargeBacklog(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	var rows []domain.Reservation
	for i := int64(1); i <= 25; i++ {
		rows = append(rows, domain.Reservation{ID: i, Status: domain.ReservationPending, EndTime: now.Add(-time.Hour)})
	}
	src := newFakeSource(rows...)

	n, err := New(src, 10).Sweep(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 25, n)

	for _, r := range src.rows {
		assert.Equal(t, domain.ReservationExpired, r.Status)
	}
}

func TestSweeper_SkipsRowsLostToConcurrentUpdate(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	src := newFakeSource(
		domain.Reservation{ID: 1, Status: domain.ReservationApproved, EndTime: now.Add(-time.Hour)},
		domain.Reservation{ID: 2, Status: domain.ReservationApproved, EndTime: now.Add(-time.Hour)},
	)
	// a cancel lands between the candidate read and the conditional write
	src.afterFind = func() {
		src.rows[2].Status = domain.ReservationCancelled
	}

	n, err := New(src, 100).Sweep(context.Background(), now)
	assert.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.ReservationCancelled, src.rows[2].Status)
}
