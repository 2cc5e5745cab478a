package device

import (
	"context"
	"time"

	"devicelab/internal/domain"
)

type DeviceRepository interface {
	Create(ctx context.Context, d *domain.Device) error
	GetByID(ctx context.Context, id int64) (*domain.Device, error)
	GetByCode(ctx context.Context, code string) (*domain.Device, error)
	Update(ctx context.Context, d *domain.Device) error
	UpdateStatusIf(ctx context.Context, id int64, from, to domain.DeviceStatus, isDeleted bool) (int64, error)
	RecordUsage(ctx context.Context, id int64, hours float64) error
	Search(ctx context.Context, keyword string) ([]domain.Device, error)
	ListByStatus(ctx context.Context, status domain.DeviceStatus) ([]domain.Device, error)
	ListPaged(ctx context.Context, offset, limit int) ([]domain.Device, error)
}

// ReservationCalendar answers occupancy questions for the computed
// in_use / reserved statuses.
type ReservationCalendar interface {
	HasApprovedCovering(ctx context.Context, deviceID int64, at time.Time) (bool, error)
	HasApprovedUpcoming(ctx context.Context, deviceID int64, after time.Time) (bool, error)
}
