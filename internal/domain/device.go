package domain

import (
	"strings"
	"time"
)

type DeviceStatus string

const (
	DeviceAvailable   DeviceStatus = "available"
	DeviceInUse       DeviceStatus = "in_use"
	DeviceMaintenance DeviceStatus = "maintenance"
	DeviceReserved    DeviceStatus = "reserved"
	DeviceScrapped    DeviceStatus = "scrapped"
)

type DeviceEvent string

const (
	DeviceSendForRepair    DeviceEvent = "send_for_repair"
	DeviceReturnFromRepair DeviceEvent = "return_from_repair"
	DeviceScrap            DeviceEvent = "scrap"
	DeviceRestore          DeviceEvent = "restore"
)

// deviceTransitions is the closed set of legal operator-driven edges.
// in_use and reserved are never stored; they are computed on read from
// the reservation calendar (see device.Service.EffectiveStatus).
var deviceTransitions = map[DeviceStatus]map[DeviceEvent]DeviceStatus{
	DeviceAvailable: {
		DeviceSendForRepair: DeviceMaintenance,
		DeviceScrap:         DeviceScrapped,
	},
	DeviceReserved: {
		DeviceScrap: DeviceScrapped,
	},
	DeviceMaintenance: {
		DeviceReturnFromRepair: DeviceAvailable,
	},
	DeviceScrapped: {
		DeviceRestore: DeviceAvailable,
	},
}

// Apply returns the target status for the given event, or false when the
// event is not legal from s.
func (s DeviceStatus) Apply(e DeviceEvent) (DeviceStatus, bool) {
	to, ok := deviceTransitions[s][e]
	return to, ok
}

// StatusesAllowing lists the source statuses from which e is legal,
// in a stable order. Used to build state-error messages.
func StatusesAllowing(e DeviceEvent) string {
	order := []DeviceStatus{DeviceAvailable, DeviceInUse, DeviceMaintenance, DeviceReserved, DeviceScrapped}
	var from []string
	for _, s := range order {
		if _, ok := deviceTransitions[s][e]; ok {
			from = append(from, string(s))
		}
	}
	return strings.Join(from, " or ")
}

type Device struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Model       string       `json:"model,omitempty"`
	Brand       string       `json:"brand,omitempty"`
	Location    string       `json:"location"`
	Status      DeviceStatus `json:"status"`
	Description string       `json:"description,omitempty"`
	UsageCount  int          `json:"usage_count"`
	UsageHours  float64      `json:"usage_hours"`
	IsDeleted   bool         `json:"is_deleted"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// Operational reports whether the device can still take part in the
// reservation workflow. Scrapped devices only accept restore.
func (d *Device) Operational() bool {
	return !d.IsDeleted && d.Status != DeviceScrapped
}
