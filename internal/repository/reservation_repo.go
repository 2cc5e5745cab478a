package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
)

type ReservationRepository struct {
	db *gorm.DB
}

func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

type reservationModel struct {
	ID             int64      `gorm:"column:id;primaryKey"`
	DeviceID       int64      `gorm:"column:device_id;index"`
	RequesterID    int64      `gorm:"column:requester_id;index"`
	Purpose        *string    `gorm:"column:purpose"`
	StartTime      time.Time  `gorm:"column:start_time"`
	EndTime        time.Time  `gorm:"column:end_time"`
	Status         string     `gorm:"column:status;size:16;index"`
	ApproverNotes  *string    `gorm:"column:approver_notes"`
	RequesterNotes *string    `gorm:"column:requester_notes"`
	ActualEndTime  *time.Time `gorm:"column:actual_end_time"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (reservationModel) TableName() string { return "reservations" }

func toDomainReservation(m reservationModel) *domain.Reservation {
	return &domain.Reservation{
		ID:             m.ID,
		DeviceID:       m.DeviceID,
		RequesterID:    m.RequesterID,
		Purpose:        strOrEmpty(m.Purpose),
		StartTime:      m.StartTime,
		EndTime:        m.EndTime,
		Status:         domain.ReservationStatus(m.Status),
		ApproverNotes:  strOrEmpty(m.ApproverNotes),
		RequesterNotes: strOrEmpty(m.RequesterNotes),
		ActualEndTime:  m.ActualEndTime,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toReservationModel(r *domain.Reservation) reservationModel {
	return reservationModel{
		ID:             r.ID,
		DeviceID:       r.DeviceID,
		RequesterID:    r.RequesterID,
		Purpose:        strOrNil(r.Purpose),
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		Status:         string(r.Status),
		ApproverNotes:  strOrNil(r.ApproverNotes),
		RequesterNotes: strOrNil(r.RequesterNotes),
		ActualEndTime:  r.ActualEndTime,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

var activeStatuses = []string{
	string(domain.ReservationPending),
	string(domain.ReservationApproved),
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	m := toReservationModel(res)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return apperr.Persistencef(tx.Error, "insert reservation for device %d", res.DeviceID)
	}
	*res = *toDomainReservation(m)
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	var m reservationModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFoundf("reservation %d not found", id)
	}
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "load reservation %d", id)
	}
	return toDomainReservation(m), nil
}

// FindActiveByDevice returns the reservations that currently occupy time
// on the device, ordered by start. Terminal statuses never block a slot.
func (r *ReservationRepository) FindActiveByDevice(ctx context.Context, deviceID int64) ([]domain.Reservation, error) {
	var rows []reservationModel
	tx := r.db.WithContext(ctx).
		Where("device_id = ? AND status IN ?", deviceID, activeStatuses).
		Order("start_time").
		Find(&rows)
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "load active reservations for device %d", deviceID)
	}
	return toDomainReservations(rows), nil
}

func (r *ReservationRepository) FindByDevice(ctx context.Context, deviceID int64) ([]domain.Reservation, error) {
	var rows []reservationModel
	tx := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("start_time").
		Find(&rows)
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "load reservations for device %d", deviceID)
	}
	return toDomainReservations(rows), nil
}

func (r *ReservationRepository) FindByUser(ctx context.Context, userID int64) ([]domain.Reservation, error) {
	var rows []reservationModel
	tx := r.db.WithContext(ctx).
		Where("requester_id = ?", userID).
		Order("start_time DESC").
		Find(&rows)
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "load reservations for user %d", userID)
	}
	return toDomainReservations(rows), nil
}

func (r *ReservationRepository) FindPage(ctx context.Context, offset, limit int) ([]domain.Reservation, error) {
	var rows []reservationModel
	tx := r.db.WithContext(ctx).Order("id").Offset(offset).Limit(limit).Find(&rows)
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "list reservations")
	}
	return toDomainReservations(rows), nil
}

// UpdateIf writes the full row only when the stored status still equals
// expect. A zero row count means a concurrent writer got there first;
// callers re-read and report the real state.
func (r *ReservationRepository) UpdateIf(ctx context.Context, res *domain.Reservation, expect domain.ReservationStatus) (int64, error) {
	m := toReservationModel(res)
	tx := r.db.WithContext(ctx).Model(&reservationModel{}).
		Where("id = ? AND status = ?", res.ID, string(expect)).
		Updates(map[string]any{
			"status":          m.Status,
			"start_time":      m.StartTime,
			"end_time":        m.EndTime,
			"approver_notes":  m.ApproverNotes,
			"requester_notes": m.RequesterNotes,
			"actual_end_time": m.ActualEndTime,
			"updated_at":      m.UpdatedAt,
		})
	if tx.Error != nil {
		return 0, apperr.Persistencef(tx.Error, "update reservation %d", res.ID)
	}
	return tx.RowsAffected, nil
}

// ExpireIf is the sweeper's optimistic write: the row is expired only if
// it still holds the status the sweeper saw and its window is over.
func (r *ReservationRepository) ExpireIf(ctx context.Context, id int64, expect domain.ReservationStatus, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Model(&reservationModel{}).
		Where("id = ? AND status = ? AND end_time < ?", id, string(expect), now).
		Updates(map[string]any{
			"status":     string(domain.ReservationExpired),
			"updated_at": now,
		})
	if tx.Error != nil {
		return 0, apperr.Persistencef(tx.Error, "expire reservation %d", id)
	}
	return tx.RowsAffected, nil
}

// FindExpiredCandidates pages through active reservations whose window
// has already ended. Expired rows drop out of the predicate, so repeated
// calls walk the remaining backlog without an offset.
func (r *ReservationRepository) FindExpiredCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	var rows []reservationModel
	tx := r.db.WithContext(ctx).
		Where("status IN ? AND end_time < ?", activeStatuses, now).
		Order("id").
		Limit(limit).
		Find(&rows)
	if tx.Error != nil {
		return nil, apperr.Persistencef(tx.Error, "load expired candidates")
	}
	return toDomainReservations(rows), nil
}

// BatchReview applies one decision to all ids or to none. Every id is
// validated inside the transaction before any row is touched, and the
// conditional UPDATE re-checks the pending status so a concurrent writer
// rolls the whole batch back.
func (r *ReservationRepository) BatchReview(ctx context.Context, ids []int64, decision domain.ReservationStatus, note string, now time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []reservationModel
		if err := tx.Where("id IN ?", ids).Find(&rows).Error; err != nil {
			return apperr.Persistencef(err, "load reservations for batch review")
		}

		byID := make(map[int64]reservationModel, len(rows))
		for _, m := range rows {
			byID[m.ID] = m
		}
		for _, id := range ids {
			m, ok := byID[id]
			if !ok {
				return apperr.NotFoundf("reservation %d not found", id)
			}
			if m.Status != string(domain.ReservationPending) {
				return &apperr.StateError{
					Entity:   reservationEntity(id),
					Current:  m.Status,
					Required: string(domain.ReservationPending),
				}
			}
		}

		res := tx.Model(&reservationModel{}).
			Where("id IN ? AND status = ?", ids, string(domain.ReservationPending)).
			Updates(map[string]any{
				"status":         string(decision),
				"approver_notes": note,
				"updated_at":     now,
			})
		if res.Error != nil {
			return apperr.Persistencef(res.Error, "batch review")
		}
		if res.RowsAffected != int64(len(ids)) {
			return apperr.Conflictf("batch review raced with a concurrent update, no changes applied")
		}
		return nil
	})
	return err
}

// HasApprovedCovering reports whether an approved reservation's interval
// contains the given instant. Drives the computed in_use status.
func (r *ReservationRepository) HasApprovedCovering(ctx context.Context, deviceID int64, at time.Time) (bool, error) {
	var cnt int64
	tx := r.db.WithContext(ctx).Model(&reservationModel{}).
		Where("device_id = ? AND status = ? AND start_time <= ? AND end_time > ?",
			deviceID, string(domain.ReservationApproved), at, at).
		Count(&cnt)
	if tx.Error != nil {
		return false, apperr.Persistencef(tx.Error, "check occupancy of device %d", deviceID)
	}
	return cnt > 0, nil
}

// HasApprovedUpcoming reports whether an approved reservation starts
// after the given instant. Drives the computed reserved status.
func (r *ReservationRepository) HasApprovedUpcoming(ctx context.Context, deviceID int64, after time.Time) (bool, error) {
	var cnt int64
	tx := r.db.WithContext(ctx).Model(&reservationModel{}).
		Where("device_id = ? AND status = ? AND start_time > ?",
			deviceID, string(domain.ReservationApproved), after).
		Count(&cnt)
	if tx.Error != nil {
		return false, apperr.Persistencef(tx.Error, "check upcoming reservations of device %d", deviceID)
	}
	return cnt > 0, nil
}

func reservationEntity(id int64) string {
	return "reservation " + strconv.FormatInt(id, 10)
}

func toDomainReservations(rows []reservationModel) []domain.Reservation {
	out := make([]domain.Reservation, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainReservation(m))
	}
	return out
}
