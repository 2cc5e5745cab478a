package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
)

type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

type deviceModel struct {
	ID          int64     `gorm:"column:id;primaryKey"`
	Code        string    `gorm:"column:code;uniqueIndex;size:32"`
	Name        string    `gorm:"column:name"`
	Model       *string   `gorm:"column:model"`
	Brand       *string   `gorm:"column:brand"`
	Location    string    `gorm:"column:location"`
	Status      string    `gorm:"column:status;size:16;index"`
	Description *string   `gorm:"column:description"`
	UsageCount  int       `gorm:"column:usage_count"`
	UsageHours  float64   `gorm:"column:usage_hours"`
	IsDeleted   bool      `gorm:"column:is_deleted"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (deviceModel) TableName() string { return "devices" }

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toDomainDevice(m deviceModel) *domain.Device {
	return &domain.Device{
		ID:          m.ID,
		Code:        m.Code,
		Name:        m.Name,
		Model:       strOrEmpty(m.Model),
		Brand:       strOrEmpty(m.Brand),
		Location:    m.Location,
		Status:      domain.DeviceStatus(m.Status),
		Description: strOrEmpty(m.Description),
		UsageCount:  m.UsageCount,
		UsageHours:  m.UsageHours,
		IsDeleted:   m.IsDeleted,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func toDeviceModel(d *domain.Device) deviceModel {
	return deviceModel{
		ID:          d.ID,
		Code:        d.Code,
		Name:        d.Name,
		Model:       strOrNil(d.Model),
		Brand:       strOrNil(d.Brand),
		Location:    d.Location,
		Status:      string(d.Status),
		Description: strOrNil(d.Description),
		UsageCount:  d.UsageCount,
		UsageHours:  d.UsageHours,
		IsDeleted:   d.IsDeleted,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func (r *DeviceRepository) Create(ctx context.Context, d *domain.Device) error {
	m := toDeviceModel(d)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return apperr.Persistencef(tx.Error, "insert device %q", d.Code)
	}
	*d = *toDomainDevice(m)
	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, id int64) (*domain.Device, error) {
	var m deviceModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("device %d not found", id)
	}
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "load device %d", id)
	}
	return toDomainDevice(m), nil
}

func (r *DeviceRepository) GetByCode(ctx context.Context, code string) (*domain.Device, error) {
	var m deviceModel
	tx := r.db.WithContext(ctx).Where("code = ?", code).First(&m)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("device %q not found", code)
	}
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "load device %q", code)
	}
	return toDomainDevice(m), nil
}

func (r *DeviceRepository) Update(ctx context.Context, d *domain.Device) error {
	m := toDeviceModel(d)
	tx := r.db.WithContext(ctx).Save(&m)
	if tx.Error != nil {
		return apperr.Persistencef(tx.Error, "update device %d", d.ID)
	}
	return nil
}

// UpdateStatusIf flips the status only when the stored row still has the
// expected one, so concurrent operator actions cannot clobber each other.
// Returns the number of rows changed (0 or 1).
func (r *DeviceRepository) UpdateStatusIf(ctx context.Context, id int64, from, to domain.DeviceStatus, isDeleted bool) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&deviceModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]any{
			"status":     string(to),
			"is_deleted": isDeleted,
			"updated_at": time.Now(),
		})
	if tx.Error != nil {
		return 0, apperr.Persistencef(tx.Error, "update status of device %d", id)
	}
	return tx.RowsAffected, nil
}

// RecordUsage bumps the usage counters in a single statement so parallel
// completions do not lose increments.
func (r *DeviceRepository) RecordUsage(ctx context.Context, id int64, hours float64) error {
	tx := r.db.WithContext(ctx).Model(&deviceModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"usage_count": gorm.Expr("usage_count + 1"),
			"usage_hours": gorm.Expr("usage_hours + ?", hours),
			"updated_at":  time.Now(),
		})
	if tx.Error != nil {
		return apperr.Persistencef(tx.Error, "record usage of device %d", id)
	}
	return nil
}

func (r *DeviceRepository) Search(ctx context.Context, keyword string) ([]domain.Device, error) {
	var rows []deviceModel
	pattern := "%" + keyword + "%"
	tx := r.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Where("code LIKE ? OR name LIKE ? OR location LIKE ?", pattern, pattern, pattern).
		Order("code").
		Find(&rows)
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "search devices")
	}
	return toDomainDevices(rows), nil
}

func (r *DeviceRepository) ListByStatus(ctx context.Context, status domain.DeviceStatus) ([]domain.Device, error) {
	var rows []deviceModel
	tx := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("code").Find(&rows)
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "list devices by status")
	}
	return toDomainDevices(rows), nil
}

func (r *DeviceRepository) ListPaged(ctx context.Context, offset, limit int) ([]domain.Device, error) {
	var rows []deviceModel
	tx := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&rows)
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "list devices")
	}
	return toDomainDevices(rows), nil
}

func toDomainDevices(rows []deviceModel) []domain.Device {
	out := make([]domain.Device, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainDevice(m))
	}
	return out
}
