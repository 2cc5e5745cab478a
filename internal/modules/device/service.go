package device

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
	"devicelab/internal/session"
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{1,31}$`)

// Service is the device registry: catalog maintenance plus the operator
// state machine (repair, scrap, restore).
type Service struct {
	devices  DeviceRepository
	calendar ReservationCalendar
}

func NewService(devices DeviceRepository, calendar ReservationCalendar) *Service {
	return &Service{devices: devices, calendar: calendar}
}

func (s *Service) Add(ctx context.Context, req AddRequest) (*domain.Device, error) {
	if !codePattern.MatchString(req.Code) {
		return nil, apperr.Validationf("device code %q is malformed", req.Code)
	}
	if req.Name == "" {
		return nil, apperr.Validationf("device name is required")
	}
	if req.Location == "" {
		return nil, apperr.Validationf("device location is required")
	}

	if _, err := s.devices.GetByCode(ctx, req.Code); err == nil {
		return nil, apperr.Validationf("device code %q already exists", req.Code)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	now := time.Now()
	d := &domain.Device{
		Code:        req.Code,
		Name:        req.Name,
		Model:       req.Model,
		Brand:       req.Brand,
		Location:    req.Location,
		Status:      domain.DeviceAvailable,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.devices.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, id int64, req UpdateRequest) (*domain.Device, error) {
	d, err := s.operational(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		d.Name = req.Name
	}
	if req.Model != "" {
		d.Model = req.Model
	}
	if req.Brand != "" {
		d.Brand = req.Brand
	}
	if req.Location != "" {
		d.Location = req.Location
	}
	if req.Description != "" {
		d.Description = req.Description
	}
	d.UpdatedAt = time.Now()

	if err := s.devices.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*View, error) {
	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, d)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*View, error) {
	d, err := s.devices.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, d)
}

func (s *Service) Search(ctx context.Context, keyword string) ([]domain.Device, error) {
	if keyword == "" {
		return nil, apperr.Validationf("search keyword is required")
	}
	return s.devices.Search(ctx, keyword)
}

func (s *Service) ListByStatus(ctx context.Context, status domain.DeviceStatus) ([]domain.Device, error) {
	switch status {
	case domain.DeviceAvailable, domain.DeviceInUse, domain.DeviceMaintenance,
		domain.DeviceReserved, domain.DeviceScrapped:
	default:
		return nil, apperr.Validationf("unknown device status %q", status)
	}
	return s.devices.ListByStatus(ctx, status)
}

func (s *Service) ListPaged(ctx context.Context, page, pageSize int) ([]domain.Device, error) {
	if page < 1 || pageSize < 1 || pageSize > 200 {
		return nil, apperr.Validationf("invalid page or page size")
	}
	return s.devices.ListPaged(ctx, (page-1)*pageSize, pageSize)
}

// SendForRepair moves an available device into maintenance. Open to
// teachers and admins.
func (s *Service) SendForRepair(ctx context.Context, actor session.Session, id int64) (*domain.Device, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleTeacher {
		return nil, apperr.Permissionf("only teachers and admins can send devices for repair")
	}
	return s.transition(ctx, id, domain.DeviceSendForRepair, false)
}

// ReturnFromRepair moves a device from maintenance back to available.
func (s *Service) ReturnFromRepair(ctx context.Context, actor session.Session, id int64) (*domain.Device, error) {
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleTeacher {
		return nil, apperr.Permissionf("only teachers and admins can finish a repair")
	}
	return s.transition(ctx, id, domain.DeviceReturnFromRepair, false)
}

// Scrap soft-deletes a device. A device that is effectively in use — an
// approved reservation covers this moment — cannot be scrapped.
func (s *Service) Scrap(ctx context.Context, actor session.Session, id int64) (*domain.Device, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperr.Permissionf("only admins can scrap devices")
	}

	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	eff, err := s.EffectiveStatus(ctx, d, time.Now())
	if err != nil {
		return nil, err
	}
	if eff == domain.DeviceInUse {
		return nil, &apperr.StateError{
			Entity:   deviceEntity(d),
			Current:  string(domain.DeviceInUse),
			Required: domain.StatusesAllowing(domain.DeviceScrap),
		}
	}

	// A merely reserved device may still be scrapped; reserved is never
	// stored, so the transition runs from the stored status.
	return s.transitionFrom(ctx, d, d.Status, domain.DeviceScrap, true)
}

// Restore brings a scrapped device back to available.
func (s *Service) Restore(ctx context.Context, actor session.Session, id int64) (*domain.Device, error) {
	if actor.Role != domain.RoleAdmin {
		return nil, apperr.Permissionf("only admins can restore devices")
	}
	return s.transition(ctx, id, domain.DeviceRestore, false)
}

// RecordUsage is the explicit usage-counter entry point; reservation
// completion also funnels through the same repository call.
func (s *Service) RecordUsage(ctx context.Context, id int64, hours float64) error {
	if hours < 0 {
		return apperr.Validationf("usage hours must not be negative")
	}
	if _, err := s.devices.GetByID(ctx, id); err != nil {
		return err
	}
	return s.devices.RecordUsage(ctx, id, hours)
}

// View pairs the stored device with its computed status.
type View struct {
	domain.Device
	EffectiveStatus domain.DeviceStatus `json:"effective_status"`
}

func (s *Service) view(ctx context.Context, d *domain.Device) (*View, error) {
	eff, err := s.EffectiveStatus(ctx, d, time.Now())
	if err != nil {
		return nil, err
	}
	return &View{Device: *d, EffectiveStatus: eff}, nil
}

// EffectiveStatus overlays the stored operator status with the
// reservation calendar: a device is in_use while an approved reservation
// covers now, and reserved while one is still ahead. Maintenance and
// scrapped always win.
func (s *Service) EffectiveStatus(ctx context.Context, d *domain.Device, now time.Time) (domain.DeviceStatus, error) {
	if d.Status != domain.DeviceAvailable {
		return d.Status, nil
	}

	covered, err := s.calendar.HasApprovedCovering(ctx, d.ID, now)
	if err != nil {
		return "", err
	}
	if covered {
		return domain.DeviceInUse, nil
	}

	upcoming, err := s.calendar.HasApprovedUpcoming(ctx, d.ID, now)
	if err != nil {
		return "", err
	}
	if upcoming {
		return domain.DeviceReserved, nil
	}
	return domain.DeviceAvailable, nil
}

func (s *Service) transition(ctx context.Context, id int64, event domain.DeviceEvent, setDeleted bool) (*domain.Device, error) {
	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.transitionFrom(ctx, d, d.Status, event, setDeleted)
}

func (s *Service) transitionFrom(ctx context.Context, d *domain.Device, from domain.DeviceStatus, event domain.DeviceEvent, setDeleted bool) (*domain.Device, error) {
	to, ok := from.Apply(event)
	if !ok {
		return nil, &apperr.StateError{
			Entity:   deviceEntity(d),
			Current:  string(from),
			Required: domain.StatusesAllowing(event),
		}
	}

	rows, err := s.devices.UpdateStatusIf(ctx, d.ID, from, to, setDeleted)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		current, rerr := s.devices.GetByID(ctx, d.ID)
		if rerr != nil {
			return nil, rerr
		}
		return nil, &apperr.StateError{
			Entity:   deviceEntity(d),
			Current:  string(current.Status),
			Required: string(from),
		}
	}

	d.Status = to
	d.IsDeleted = setDeleted
	d.UpdatedAt = time.Now()
	return d, nil
}

func (s *Service) operational(ctx context.Context, id int64) (*domain.Device, error) {
	d, err := s.devices.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !d.Operational() {
		return nil, &apperr.StateError{
			Entity:   deviceEntity(d),
			Current:  string(d.Status),
			Required: "an operational status",
		}
	}
	return d, nil
}

func deviceEntity(d *domain.Device) string {
	return fmt.Sprintf("device %s", d.Code)
}
