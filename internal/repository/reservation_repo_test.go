package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"devicelab/internal/database"
	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func seedReservation(t *testing.T, repo *ReservationRepository, deviceID int64, status domain.ReservationStatus, start, end time.Time) *domain.Reservation {
	t.Helper()
	r := &domain.Reservation{
		DeviceID:    deviceID,
		RequesterID: 1,
		StartTime:   start,
		EndTime:     end,
		Status:      status,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, repo.Create(context.Background(), r))
	return r
}

func TestReservationRepository_CreateAndGet(t *testing.T) {
	repo := NewReservationRepository(newTestDB(t))
	ctx := context.Background()

	start := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	r := &domain.Reservation{
		DeviceID:       10,
		RequesterID:    5,
		Purpose:        "signal lab",
		StartTime:      start,
		EndTime:        start.Add(2 * time.Hour),
		Status:         domain.ReservationPending,
		RequesterNotes: "bring probes",
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, repo.Create(ctx, r))
	assert.NotZero(t, r.ID)

	got, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "signal lab", got.Purpose)
	assert.Equal(t, "bring probes", got.RequesterNotes)
	assert.Equal(t, domain.ReservationPending, got.Status)
	assert.Nil(t, got.ActualEndTime)

	_, err = repo.GetByID(ctx, 12345)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReservationRepository_FindActiveByDevice(t *testing.T) {
	repo := NewReservationRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Now().Add(time.Hour).Truncate(time.Second)

	later := seedReservation(t, repo, 10, domain.ReservationApproved, base.Add(4*time.Hour), base.Add(6*time.Hour))
	earlier := seedReservation(t, repo, 10, domain.ReservationPending, base, base.Add(2*time.Hour))
	seedReservation(t, repo, 10, domain.ReservationCancelled, base, base.Add(2*time.Hour))
	seedReservation(t, repo, 10, domain.ReservationExpired, base, base.Add(2*time.Hour))
	seedReservation(t, repo, 11, domain.ReservationApproved, base, base.Add(2*time.Hour))

	rows, err := repo.FindActiveByDevice(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, earlier.ID, rows[0].ID, "ordered by start time")
	assert.Equal(t, later.ID, rows[1].ID)
}

func TestReservationRepository_UpdateIf(t *testing.T) {
	repo := NewReservationRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Now().Add(time.Hour).Truncate(time.Second)

	r := seedReservation(t, repo, 10, domain.ReservationPending, base, base.Add(2*time.Hour))

	r.Status = domain.ReservationApproved
	r.ApproverNotes = "ok"
	rows, err := repo.UpdateIf(ctx, r, domain.ReservationPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := repo.GetByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationApproved, got.Status)
	assert.Equal(t, "ok", got.ApproverNotes)

	// the stored status is no longer pending, so the same write misses
	rows, err = repo.UpdateIf(ctx, r, domain.ReservationPending)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestReservationRepository_ExpireIf(t *testing.T) {
	repo := NewReservationRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	past := seedReservation(t, repo, 10, domain.ReservationApproved, now.Add(-3*time.Hour), now.Add(-time.Hour))
	future := seedReservation(t, repo, 10, domain.ReservationApproved, now.Add(time.Hour), now.Add(2*time.Hour))

	rows, err := repo.ExpireIf(ctx, past.ID, domain.ReservationApproved, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	got, err := repo.GetByID(ctx, past.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationExpired, got.Status)

	// a window that has not ended is never expired
	rows, err = repo.ExpireIf(ctx, future.ID, domain.ReservationApproved, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	// expiring twice is a no-op
	rows, err = repo.ExpireIf(ctx, past.ID, domain.ReservationApproved, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
}

func TestReservationRepository_FindExpiredCandidates(t *testing.T) {
	repo := NewReservationRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	a := seedReservation(t, repo, 10, domain.ReservationPending, now.Add(-4*time.Hour), now.Add(-3*time.Hour))
	b := seedReservation(t, repo, 10, domain.ReservationApproved, now.Add(-2*time.Hour), now.Add(-time.Hour))
	seedReservation(t, repo, 10, domain.ReservationApproved, now.Add(time.Hour), now.Add(2*time.Hour))
	seedReservation(t, repo, 10, domain.ReservationCompleted, now.Add(-2*time.Hour), now.Add(-time.Hour))

	rows, err := repo.FindExpiredCandidates(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// expired rows leave the predicate, so the next page is the rest
	_, err = repo.ExpireIf(ctx, a.ID, a.Status, now)
	require.NoError(t, err)

	rows, err = repo.FindExpiredCandidates(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, b.ID, rows[0].ID)
}

func TestReservationRepository_BatchReview_AllOrNothing(t *testing.T) {
	repo := NewReservationRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Now().Add(time.Hour).Truncate(time.Second)

	p1 := seedReservation(t, repo, 10, domain.ReservationPending, base, base.Add(time.Hour))
	p2 := seedReservation(t, repo, 11, domain.ReservationPending, base, base.Add(time.Hour))
	done := seedReservation(t, repo, 12, domain.ReservationApproved, base, base.Add(time.Hour))

	// one non-pending id poisons the whole batch
	err := repo.BatchReview(ctx, []int64{p1.ID, done.ID}, domain.ReservationApproved, "bulk", time.Now())
	assert.ErrorIs(t, err, apperr.ErrState)

	got, err := repo.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationPending, got.Status, "nothing was applied")

	// a missing id does too
	err = repo.BatchReview(ctx, []int64{p1.ID, 99999}, domain.ReservationApproved, "bulk", time.Now())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	// a clean batch lands atomically
	err = repo.BatchReview(ctx, []int64{p1.ID, p2.ID}, domain.ReservationRejected, "term is over", time.Now())
	require.NoError(t, err)

	for _, id := range []int64{p1.ID, p2.ID} {
		got, err := repo.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.ReservationRejected, got.Status)
		assert.Equal(t, "term is over", got.ApproverNotes)
	}
}

func TestReservationRepository_OccupancyQueries(t *testing.T) {
	repo := NewReservationRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	seedReservation(t, repo, 10, domain.ReservationApproved, now.Add(-time.Hour), now.Add(time.Hour))
	seedReservation(t, repo, 11, domain.ReservationApproved, now.Add(2*time.Hour), now.Add(3*time.Hour))
	seedReservation(t, repo, 12, domain.ReservationPending, now.Add(-time.Hour), now.Add(time.Hour))

	covered, err := repo.HasApprovedCovering(ctx, 10, now)
	require.NoError(t, err)
	assert.True(t, covered)

	covered, err = repo.HasApprovedCovering(ctx, 11, now)
	require.NoError(t, err)
	assert.False(t, covered, "future window does not cover now")

	// pending never counts as occupancy
	covered, err = repo.HasApprovedCovering(ctx, 12, now)
	require.NoError(t, err)
	assert.False(t, covered)

	upcoming, err := repo.HasApprovedUpcoming(ctx, 11, now)
	require.NoError(t, err)
	assert.True(t, upcoming)

	upcoming, err = repo.HasApprovedUpcoming(ctx, 10, now)
	require.NoError(t, err)
	assert.False(t, upcoming, "already started window is not upcoming")
}
