package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"devicelab/internal/domain"
	"devicelab/internal/pkg/apperr"
	"devicelab/internal/session"
)

type MockDeviceRepository struct {
	mock.Mock
}

func (m *MockDeviceRepository) Create(ctx context.Context, d *domain.Device) error {
	args := m.Called(ctx, d)
	if d != nil {
		d.ID = 999 // simulate DB insert
	}
	return args.Error(0)
}

func (m *MockDeviceRepository) GetByID(ctx context.Context, id int64) (*domain.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Device), args.Error(1)
}

func (m *MockDeviceRepository) GetByCode(ctx context.Context, code string) (*domain.Device, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Device), args.Error(1)
}

func (m *MockDeviceRepository) Update(ctx context.Context, d *domain.Device) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDeviceRepository) UpdateStatusIf(ctx context.Context, id int64, from, to domain.DeviceStatus, isDeleted bool) (int64, error) {
	args := m.Called(ctx, id, from, to, isDeleted)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDeviceRepository) RecordUsage(ctx context.Context, id int64, hours float64) error {
	args := m.Called(ctx, id, hours)
	return args.Error(0)
}

func (m *MockDeviceRepository) Search(ctx context.Context, keyword string) ([]domain.Device, error) {
	args := m.Called(ctx, keyword)
	return args.Get(0).([]domain.Device), args.Error(1)
}

func (m *MockDeviceRepository) ListByStatus(ctx context.Context, status domain.DeviceStatus) ([]domain.Device, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.Device), args.Error(1)
}

func (m *MockDeviceRepository) ListPaged(ctx context.Context, offset, limit int) ([]domain.Device, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.Device), args.Error(1)
}

type MockReservationCalendar struct {
	mock.Mock
}

func (m *MockReservationCalendar) HasApprovedCovering(ctx context.Context, deviceID int64, at time.Time) (bool, error) {
	args := m.Called(ctx, deviceID, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockReservationCalendar) HasApprovedUpcoming(ctx context.Context, deviceID int64, after time.Time) (bool, error) {
	args := m.Called(ctx, deviceID, after)
	return args.Bool(0), args.Error(1)
}

func admin() session.Session {
	return session.Session{UserID: 1, Username: "admin", Role: domain.RoleAdmin}
}

func teacherUser() session.Session {
	return session.Session{UserID: 2, Username: "teacher", Role: domain.RoleTeacher}
}

func studentUser() session.Session {
	return session.Session{UserID: 3, Username: "student", Role: domain.RoleStudent}
}

func TestService_Add_Success(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockCalendar := new(MockReservationCalendar)

	mockDevices.On("GetByCode", mock.Anything, "OSC-001").Return(nil, apperr.NotFoundf("device OSC-001 not found"))
	mockDevices.On("Create", mock.Anything, mock.Anything).Return(nil)

	service := NewService(mockDevices, mockCalendar)

	d, err := service.Add(context.Background(), AddRequest{
		Code: "OSC-001", Name: "Oscilloscope", Location: "Lab A",
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.DeviceAvailable, d.Status)
	assert.Equal(t, int64(999), d.ID)
}

func TestService_Add_Validation(t *testing.T) {
	service := NewService(new(MockDeviceRepository), new(MockReservationCalendar))
	ctx := context.Background()

	_, err := service.Add(ctx, AddRequest{Code: "!", Name: "n", Location: "l"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = service.Add(ctx, AddRequest{Code: "OSC-001", Location: "l"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = service.Add(ctx, AddRequest{Code: "OSC-001", Name: "n"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestService_Add_DuplicateCode(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockDevices.On("GetByCode", mock.Anything, "OSC-001").Return(&domain.Device{ID: 1, Code: "OSC-001"}, nil)

	service := NewService(mockDevices, new(MockReservationCalendar))

	_, err := service.Add(context.Background(), AddRequest{Code: "OSC-001", Name: "n", Location: "l"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	mockDevices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_SendForRepair_Roles(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{
		ID: 10, Code: "OSC-001", Status: domain.DeviceAvailable,
	}, nil)
	mockDevices.On("UpdateStatusIf", mock.Anything, int64(10), domain.DeviceAvailable, domain.DeviceMaintenance, false).Return(int64(1), nil)

	service := NewService(mockDevices, new(MockReservationCalendar))
	ctx := context.Background()

	_, err := service.SendForRepair(ctx, studentUser(), 10)
	assert.ErrorIs(t, err, apperr.ErrPermission)

	d, err := service.SendForRepair(ctx, teacherUser(), 10)
	assert.NoError(t, err)
	assert.Equal(t, domain.DeviceMaintenance, d.Status)
}

func TestService_ReturnFromRepair(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{
		ID: 10, Code: "OSC-001", Status: domain.DeviceMaintenance,
	}, nil)
	mockDevices.On("UpdateStatusIf", mock.Anything, int64(10), domain.DeviceMaintenance, domain.DeviceAvailable, false).Return(int64(1), nil)

	service := NewService(mockDevices, new(MockReservationCalendar))

	d, err := service.ReturnFromRepair(context.Background(), admin(), 10)
	assert.NoError(t, err)
	assert.Equal(t, domain.DeviceAvailable, d.Status)
}

func TestService_Scrap_InUseRejected(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockCalendar := new(MockReservationCalendar)

	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{
		ID: 10, Code: "OSC-001", Status: domain.DeviceAvailable,
	}, nil)
	// an approved reservation covers now, so the device is effectively in use
	mockCalendar.On("HasApprovedCovering", mock.Anything, int64(10), mock.Anything).Return(true, nil)

	service := NewService(mockDevices, mockCalendar)

	_, err := service.Scrap(context.Background(), admin(), 10)
	assert.ErrorIs(t, err, apperr.ErrState)
	mockDevices.AssertNotCalled(t, "UpdateStatusIf", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Scrap_ReservedAllowed(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockCalendar := new(MockReservationCalendar)

	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{
		ID: 10, Code: "OSC-001", Status: domain.DeviceAvailable,
	}, nil)
	mockCalendar.On("HasApprovedCovering", mock.Anything, int64(10), mock.Anything).Return(false, nil)
	mockCalendar.On("HasApprovedUpcoming", mock.Anything, int64(10), mock.Anything).Return(true, nil)
	mockDevices.On("UpdateStatusIf", mock.Anything, int64(10), domain.DeviceAvailable, domain.DeviceScrapped, true).Return(int64(1), nil)

	service := NewService(mockDevices, mockCalendar)

	d, err := service.Scrap(context.Background(), admin(), 10)
	assert.NoError(t, err)
	assert.Equal(t, domain.DeviceScrapped, d.Status)
	assert.True(t, d.IsDeleted)
}

func TestService_Scrap_AdminOnly(t *testing.T) {
	service := NewService(new(MockDeviceRepository), new(MockReservationCalendar))

	_, err := service.Scrap(context.Background(), teacherUser(), 10)
	assert.ErrorIs(t, err, apperr.ErrPermission)
}

func TestService_Restore(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{
		ID: 10, Code: "OSC-001", Status: domain.DeviceScrapped, IsDeleted: true,
	}, nil)
	mockDevices.On("UpdateStatusIf", mock.Anything, int64(10), domain.DeviceScrapped, domain.DeviceAvailable, false).Return(int64(1), nil)

	service := NewService(mockDevices, new(MockReservationCalendar))

	d, err := service.Restore(context.Background(), admin(), 10)
	assert.NoError(t, err)
	assert.Equal(t, domain.DeviceAvailable, d.Status)
	assert.False(t, d.IsDeleted)
}

func TestService_Transition_IllegalEdge(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{
		ID: 10, Code: "OSC-001", Status: domain.DeviceMaintenance,
	}, nil)

	service := NewService(mockDevices, new(MockReservationCalendar))

	// maintenance does not allow scrap
	_, err := service.Scrap(context.Background(), admin(), 10)
	assert.ErrorIs(t, err, apperr.ErrState)
}

func TestService_Transition_LostRace(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{
		ID: 10, Code: "OSC-001", Status: domain.DeviceAvailable,
	}, nil).Once()
	mockDevices.On("UpdateStatusIf", mock.Anything, int64(10), domain.DeviceAvailable, domain.DeviceMaintenance, false).Return(int64(0), nil)
	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{
		ID: 10, Code: "OSC-001", Status: domain.DeviceScrapped,
	}, nil).Once()

	service := NewService(mockDevices, new(MockReservationCalendar))

	_, err := service.SendForRepair(context.Background(), admin(), 10)
	assert.ErrorIs(t, err, apperr.ErrState)
}

func TestService_EffectiveStatus(t *testing.T) {
	mockCalendar := new(MockReservationCalendar)
	service := NewService(new(MockDeviceRepository), mockCalendar)
	ctx := context.Background()
	now := time.Now()

	// stored non-available status always wins
	eff, err := service.EffectiveStatus(ctx, &domain.Device{ID: 10, Status: domain.DeviceMaintenance}, now)
	assert.NoError(t, err)
	assert.Equal(t, domain.DeviceMaintenance, eff)

	mockCalendar.On("HasApprovedCovering", mock.Anything, int64(11), now).Return(true, nil)
	eff, err = service.EffectiveStatus(ctx, &domain.Device{ID: 11, Status: domain.DeviceAvailable}, now)
	assert.NoError(t, err)
	assert.Equal(t, domain.DeviceInUse, eff)

	mockCalendar.On("HasApprovedCovering", mock.Anything, int64(12), now).Return(false, nil)
	mockCalendar.On("HasApprovedUpcoming", mock.Anything, int64(12), now).Return(true, nil)
	eff, err = service.EffectiveStatus(ctx, &domain.Device{ID: 12, Status: domain.DeviceAvailable}, now)
	assert.NoError(t, err)
	assert.Equal(t, domain.DeviceReserved, eff)

	mockCalendar.On("HasApprovedCovering", mock.Anything, int64(13), now).Return(false, nil)
	mockCalendar.On("HasApprovedUpcoming", mock.Anything, int64(13), now).Return(false, nil)
	eff, err = service.EffectiveStatus(ctx, &domain.Device{ID: 13, Status: domain.DeviceAvailable}, now)
	assert.NoError(t, err)
	assert.Equal(t, domain.DeviceAvailable, eff)
}

func TestService_Update_ScrappedRejected(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{
		ID: 10, Code: "OSC-001", Status: domain.DeviceScrapped, IsDeleted: true,
	}, nil)

	service := NewService(mockDevices, new(MockReservationCalendar))

	_, err := service.Update(context.Background(), 10, UpdateRequest{Name: "new name"})
	assert.ErrorIs(t, err, apperr.ErrState)
}

func TestService_RecordUsage_Validation(t *testing.T) {
	mockDevices := new(MockDeviceRepository)
	service := NewService(mockDevices, new(MockReservationCalendar))

	err := service.RecordUsage(context.Background(), 10, -1)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	mockDevices.On("GetByID", mock.Anything, int64(10)).Return(&domain.Device{ID: 10}, nil)
	mockDevices.On("RecordUsage", mock.Anything, int64(10), 2.5).Return(nil)
	assert.NoError(t, service.RecordUsage(context.Background(), 10, 2.5))
}
