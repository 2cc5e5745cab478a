package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
	"devicelab/internal/session"
)

// Service orchestrates the reservation lifecycle: creation, review,
// cancellation, completion, extension and batch review.
type Service struct {
	reservations ReservationRepository
	devices      DeviceRepository

	// devLocks serializes check-then-insert per device so two concurrent
	// creates cannot both pass the availability check. The PostgreSQL
	// exclusion constraint backs this up across processes.
	devLocks sync.Map // int64 -> *sync.Mutex
}

func NewService(reservations ReservationRepository, devices DeviceRepository) *Service {
	return &Service{
		reservations: reservations,
		devices:      devices,
	}
}

func (s *Service) lockDevice(deviceID int64) func() {
	v, _ := s.devLocks.LoadOrStore(deviceID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *Service) Create(ctx context.Context, actor session.Session, req CreateRequest) (*domain.Reservation, error) {
	if req.DeviceID <= 0 {
		return nil, apperr.Validationf("device id is required")
	}
	if err := ValidateWindow(time.Now(), req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	dev, err := s.devices.GetByID(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if !dev.Operational() {
		return nil, &apperr.StateError{
			Entity:   fmt.Sprintf("device %s", dev.Code),
			Current:  string(dev.Status),
			Required: "an operational status",
		}
	}

	unlock := s.lockDevice(req.DeviceID)
	defer unlock()

	existing, err := s.reservations.FindActiveByDevice(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}
	if !SlotFree(existing, req.StartTime, req.EndTime, 0) {
		return nil, apperr.Conflictf("device %s is already reserved between %s and %s",
			dev.Code, req.StartTime.Format(time.RFC3339), req.EndTime.Format(time.RFC3339))
	}

	now := time.Now()
	r := &domain.Reservation{
		DeviceID:       req.DeviceID,
		RequesterID:    actor.UserID,
		Purpose:        req.Purpose,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         domain.ReservationPending,
		RequesterNotes: req.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.reservations.Create(ctx, r); err != nil {
		return nil, asConflict(err)
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, actor session.Session, id int64) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleApprover && actor.UserID != r.RequesterID {
		return nil, apperr.Permissionf("reservation %d belongs to another user", id)
	}
	return r, nil
}

func (s *Service) ListMine(ctx context.Context, actor session.Session) ([]domain.Reservation, error) {
	return s.reservations.FindByUser(ctx, actor.UserID)
}

func (s *Service) ListByDevice(ctx context.Context, deviceID int64) ([]domain.Reservation, error) {
	if deviceID <= 0 {
		return nil, apperr.Validationf("device id is required")
	}
	return s.reservations.FindByDevice(ctx, deviceID)
}

func (s *Service) ListAll(ctx context.Context, page, pageSize int) ([]domain.Reservation, error) {
	if page < 1 || pageSize < 1 || pageSize > 200 {
		return nil, apperr.Validationf("invalid page or page size")
	}
	return s.reservations.FindPage(ctx, (page-1)*pageSize, pageSize)
}

// Review moves a pending reservation to approved or rejected.
func (s *Service) Review(ctx context.Context, actor session.Session, id int64, approve bool, note string) (*domain.Reservation, error) {
	if actor.Role != domain.RoleApprover {
		return nil, apperr.Permissionf("only an approver can review reservations")
	}

	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	event := domain.ReservationReject
	if approve {
		event = domain.ReservationApprove
	}
	next, ok := r.Status.Apply(event)
	if !ok {
		return nil, stateErr(id, r.Status, event)
	}

	prev := r.Status
	r.Status = next
	r.ApproverNotes = note
	r.UpdatedAt = time.Now()
	return s.commit(ctx, r, prev)
}

// BatchReview applies one decision with a shared note to every id, or to
// none of them. Validation and mutation run inside one transaction.
func (s *Service) BatchReview(ctx context.Context, actor session.Session, ids []int64, approve bool, note string) error {
	if actor.Role != domain.RoleApprover {
		return apperr.Permissionf("only an approver can review reservations")
	}
	if len(ids) == 0 {
		return apperr.Validationf("no reservation ids given")
	}
	if note == "" {
		return apperr.Validationf("a shared note is required for batch review")
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return apperr.Validationf("invalid reservation id %d", id)
		}
		if _, dup := seen[id]; dup {
			return apperr.Validationf("duplicate reservation id %d", id)
		}
		seen[id] = struct{}{}
	}

	decision := domain.ReservationRejected
	if approve {
		decision = domain.ReservationApproved
	}
	return s.reservations.BatchReview(ctx, ids, decision, note, time.Now())
}

// Cancel is open to the requester and to approvers, from pending or
// approved.
func (s *Service) Cancel(ctx context.Context, actor session.Session, id int64, note string) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleApprover && actor.UserID != r.RequesterID {
		return nil, apperr.Permissionf("reservation %d belongs to another user", id)
	}

	next, ok := r.Status.Apply(domain.ReservationCancel)
	if !ok {
		return nil, stateErr(id, r.Status, domain.ReservationCancel)
	}

	prev := r.Status
	r.Status = next
	if note != "" {
		r.RequesterNotes = appendNote(r.RequesterNotes, "cancelled: "+note)
	}
	r.UpdatedAt = time.Now()
	return s.commit(ctx, r, prev)
}

// Complete closes out an approved reservation once its window has begun
// and records the actual usage on the device.
func (s *Service) Complete(ctx context.Context, actor session.Session, id int64) (*domain.Reservation, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.UserID != r.RequesterID {
		return nil, apperr.Permissionf("reservation %d belongs to another user", id)
	}

	next, ok := r.Status.Apply(domain.ReservationComplete)
	if !ok {
		return nil, stateErr(id, r.Status, domain.ReservationComplete)
	}
	now := time.Now()
	if now.Before(r.StartTime) {
		return nil, apperr.Validationf("reservation %d has not started yet", id)
	}

	prev := r.Status
	r.Status = next
	r.ActualEndTime = &now
	r.UpdatedAt = now
	out, err := s.commit(ctx, r, prev)
	if err != nil {
		return nil, err
	}

	// Usage counters are advisory; a failed increment must not undo the
	// completion.
	hours := now.Sub(r.StartTime).Hours()
	if err := s.devices.RecordUsage(ctx, r.DeviceID, hours); err != nil {
		log.Printf("record usage for device %d failed: %v", r.DeviceID, err)
	}
	return out, nil
}

// Extend moves the end of an approved reservation forward after
// re-validating the whole new window against the duration cap and every
// other active reservation on the device.
func (s *Service) Extend(ctx context.Context, actor session.Session, id int64, newEnd time.Time, reason string) (*domain.Reservation, error) {
	if newEnd.IsZero() {
		return nil, apperr.Validationf("new end time is required")
	}
	if reason == "" {
		return nil, apperr.Validationf("an extension reason is required")
	}

	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.UserID != r.RequesterID {
		return nil, apperr.Permissionf("reservation %d belongs to another user", id)
	}
	if _, ok := r.Status.Apply(domain.ReservationExtend); !ok {
		return nil, stateErr(id, r.Status, domain.ReservationExtend)
	}

	if !newEnd.After(r.EndTime) {
		return nil, apperr.Validationf("new end time must be after the current end time")
	}
	if newEnd.Sub(r.StartTime) > MaxDuration {
		return nil, apperr.Validationf("extended reservation may not exceed %s in total", MaxDuration)
	}

	unlock := s.lockDevice(r.DeviceID)
	defer unlock()

	existing, err := s.reservations.FindActiveByDevice(ctx, r.DeviceID)
	if err != nil {
		return nil, err
	}
	if !SlotFree(existing, r.StartTime, newEnd, r.ID) {
		return nil, apperr.Conflictf("extension collides with another reservation on device %d", r.DeviceID)
	}

	r.EndTime = newEnd
	r.RequesterNotes = appendNote(r.RequesterNotes, "extended: "+reason)
	r.UpdatedAt = time.Now()
	out, err := s.commit(ctx, r, domain.ReservationApproved)
	if err != nil {
		return nil, asConflict(err)
	}
	return out, nil
}

// Window is an occupied interval on a device's calendar.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// UpcomingForDevice lists the active reservation windows starting within
// the next `days` days, soonest first.
func (s *Service) UpcomingForDevice(ctx context.Context, deviceID int64, days int) ([]Window, error) {
	if deviceID <= 0 {
		return nil, apperr.Validationf("device id is required")
	}
	if days < 1 || days > 30 {
		return nil, apperr.Validationf("days must be between 1 and 30")
	}

	existing, err := s.reservations.FindActiveByDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	horizon := now.AddDate(0, 0, days)
	out := make([]Window, 0, len(existing))
	for i := range existing {
		r := &existing[i]
		if r.StartTime.After(now) && r.StartTime.Before(horizon) {
			out = append(out, Window{Start: r.StartTime, End: r.EndTime})
		}
	}
	return out, nil
}

// commit writes r conditionally on its previous status. A lost race is
// reported as a state error naming what the row has become.
func (s *Service) commit(ctx context.Context, r *domain.Reservation, prev domain.ReservationStatus) (*domain.Reservation, error) {
	rows, err := s.reservations.UpdateIf(ctx, r, prev)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		current, rerr := s.reservations.GetByID(ctx, r.ID)
		if rerr != nil {
			return nil, rerr
		}
		return nil, &apperr.StateError{
			Entity:   fmt.Sprintf("reservation %d", r.ID),
			Current:  string(current.Status),
			Required: string(prev),
		}
	}
	return r, nil
}

func stateErr(id int64, current domain.ReservationStatus, event domain.ReservationEvent) error {
	return &apperr.StateError{
		Entity:   fmt.Sprintf("reservation %d", id),
		Current:  string(current),
		Required: domain.ReservationStatusesAllowing(event),
	}
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + " | " + note
}

// asConflict converts a storage-level exclusion or uniqueness violation
// into the conflict error the caller expects. 23P01 is raised by the
// reservations_no_overlap constraint, 23505 by plain unique indexes.
func asConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23P01" || pgErr.Code == "23505") {
		return apperr.Conflictf("time slot was taken by a concurrent reservation")
	}
	return err
}
