package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceStatus_Apply(t *testing.T) {
	tests := []struct {
		from  DeviceStatus
		event DeviceEvent
		to    DeviceStatus
		ok    bool
	}{
		{DeviceAvailable, DeviceSendForRepair, DeviceMaintenance, true},
		{DeviceAvailable, DeviceScrap, DeviceScrapped, true},
		{DeviceAvailable, DeviceReturnFromRepair, "", false},
		{DeviceAvailable, DeviceRestore, "", false},

		{DeviceReserved, DeviceScrap, DeviceScrapped, true},
		{DeviceReserved, DeviceSendForRepair, "", false},

		{DeviceMaintenance, DeviceReturnFromRepair, DeviceAvailable, true},
		{DeviceMaintenance, DeviceScrap, "", false},

		{DeviceScrapped, DeviceRestore, DeviceAvailable, true},
		{DeviceScrapped, DeviceScrap, "", false},

		{DeviceInUse, DeviceScrap, "", false},
		{DeviceInUse, DeviceSendForRepair, "", false},
	}
	for _, tt := range tests {
		to, ok := tt.from.Apply(tt.event)
		assert.Equal(t, tt.ok, ok, "%s + %s", tt.from, tt.event)
		if tt.ok {
			assert.Equal(t, tt.to, to, "%s + %s", tt.from, tt.event)
		}
	}
}

func TestStatusesAllowing(t *testing.T) {
	assert.Equal(t, "available or reserved", StatusesAllowing(DeviceScrap))
	assert.Equal(t, "maintenance", StatusesAllowing(DeviceReturnFromRepair))
	assert.Equal(t, "scrapped", StatusesAllowing(DeviceRestore))
}

func TestDevice_Operational(t *testing.T) {
	assert.True(t, (&Device{Status: DeviceAvailable}).Operational())
	assert.True(t, (&Device{Status: DeviceMaintenance}).Operational())
	assert.False(t, (&Device{Status: DeviceScrapped}).Operational())
	assert.False(t, (&Device{Status: DeviceAvailable, IsDeleted: true}).Operational())
}
