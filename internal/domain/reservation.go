package domain

import (
	"strings"
	"time"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationApproved  ReservationStatus = "approved"
	ReservationRejected  ReservationStatus = "rejected"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

type ReservationEvent string

const (
	ReservationApprove  ReservationEvent = "approve"
	ReservationReject   ReservationEvent = "reject"
	ReservationCancel   ReservationEvent = "cancel"
	ReservationComplete ReservationEvent = "complete"
	ReservationExtend   ReservationEvent = "extend"
	ReservationSweep    ReservationEvent = "sweep"
)

// reservationTransitions encodes the lifecycle. Terminal statuses have no
// outgoing edges; extend stays in approved and only moves the end time.
var reservationTransitions = map[ReservationStatus]map[ReservationEvent]ReservationStatus{
	ReservationPending: {
		ReservationApprove: ReservationApproved,
		ReservationReject:  ReservationRejected,
		ReservationCancel:  ReservationCancelled,
		ReservationSweep:   ReservationExpired,
	},
	ReservationApproved: {
		ReservationCancel:   ReservationCancelled,
		ReservationComplete: ReservationCompleted,
		ReservationExtend:   ReservationApproved,
		ReservationSweep:    ReservationExpired,
	},
}

func (s ReservationStatus) Apply(e ReservationEvent) (ReservationStatus, bool) {
	to, ok := reservationTransitions[s][e]
	return to, ok
}

// ReservationStatusesAllowing lists the source statuses from which e is
// legal, for state-error messages.
func ReservationStatusesAllowing(e ReservationEvent) string {
	order := []ReservationStatus{
		ReservationPending, ReservationApproved, ReservationRejected,
		ReservationCompleted, ReservationCancelled, ReservationExpired,
	}
	var from []string
	for _, s := range order {
		if _, ok := reservationTransitions[s][e]; ok {
			from = append(from, string(s))
		}
	}
	return strings.Join(from, " or ")
}

type Reservation struct {
	ID             int64             `json:"id"`
	DeviceID       int64             `json:"device_id"`
	RequesterID    int64             `json:"requester_id"`
	Purpose        string            `json:"purpose,omitempty"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
	Status         ReservationStatus `json:"status"`
	ApproverNotes  string            `json:"approver_notes,omitempty"`
	RequesterNotes string            `json:"requester_notes,omitempty"`
	ActualEndTime  *time.Time        `json:"actual_end_time,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// Active reservations are the ones that occupy their time slot for
// conflict detection.
func (r *Reservation) Active() bool {
	return r.Status == ReservationPending || r.Status == ReservationApproved
}

// Covers reports whether t falls inside the reserved half-open interval.
func (r *Reservation) Covers(t time.Time) bool {
	return !t.Before(r.StartTime) && t.Before(r.EndTime)
}
