package reservation

import (
	"time"

	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
)

const (
	// MaxDuration caps a single reservation window.
	MaxDuration = 8 * time.Hour
	// MinLeadTime is how far in advance a reservation must start.
	MinLeadTime = time.Hour
)

// Overlaps tests two half-open intervals [aStart, aEnd) and
// [bStart, bEnd). Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// SlotFree reports whether [start, end) collides with none of the given
// reservations. Terminal reservations are skipped, as is the reservation
// with excludeID (non-zero when re-checking an extension of itself).
func SlotFree(existing []domain.Reservation, start, end time.Time, excludeID int64) bool {
	for i := range existing {
		r := &existing[i]
		if excludeID != 0 && r.ID == excludeID {
			continue
		}
		if !r.Active() {
			continue
		}
		if Overlaps(r.StartTime, r.EndTime, start, end) {
			return false
		}
	}
	return true
}

// ValidateWindow enforces the interval rules for a new reservation:
// start strictly before end, duration within MaxDuration, and start at
// least MinLeadTime after now.
func ValidateWindow(now, start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperr.Validationf("start and end time are required")
	}
	if !start.Before(end) {
		return apperr.Validationf("start time must be before end time")
	}
	if end.Sub(start) > MaxDuration {
		return apperr.Validationf("a reservation may not exceed %s", MaxDuration)
	}
	if start.Before(now.Add(MinLeadTime)) {
		return apperr.Validationf("reservations must start at least %s from now", MinLeadTime)
	}
	return nil
}
