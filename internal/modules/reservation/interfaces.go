package reservation

import (
	"context"
	"time"

	"devicelab/internal/domain"
)

// ReservationRepository is the slice of storage the lifecycle needs.
type ReservationRepository interface {
	Create(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	FindActiveByDevice(ctx context.Context, deviceID int64) ([]domain.Reservation, error)
	FindByDevice(ctx context.Context, deviceID int64) ([]domain.Reservation, error)
	FindByUser(ctx context.Context, userID int64) ([]domain.Reservation, error)
	FindPage(ctx context.Context, offset, limit int) ([]domain.Reservation, error)
	UpdateIf(ctx context.Context, r *domain.Reservation, expect domain.ReservationStatus) (int64, error)
	BatchReview(ctx context.Context, ids []int64, decision domain.ReservationStatus, note string, now time.Time) error
}

// DeviceRepository is the device-side slice used by the lifecycle.
type DeviceRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Device, error)
	RecordUsage(ctx context.Context, id int64, hours float64) error
}
