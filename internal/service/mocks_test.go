package service

import (
	"context"
	"time"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockWindowStore struct {
	mock.Mock
}

func (m *mockWindowStore) ListWindows(ctx context.Context, doctorID string, dayOfWeek string) ([]model.AvailabilityWindow, error) {
	args := m.Called(ctx, doctorID, dayOfWeek)
	windows, _ := args.Get(0).([]model.AvailabilityWindow)
	return windows, args.Error(1)
}

type mockAppointmentStore struct {
	mock.Mock
}

func (m *mockAppointmentStore) ListForDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]model.Appointment, error) {
	args := m.Called(ctx, doctorID, from, to)
	apts, _ := args.Get(0).([]model.Appointment)
	return apts, args.Error(1)
}

type mockAppointmentRepository struct {
	mock.Mock
}

func (m *mockAppointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	args := m.Called(ctx, apt)
	return args.Error(0)
}

func (m *mockAppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *mockAppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockAppointmentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (bool, error) {
	args := m.Called(ctx, id, status)
	return args.Bool(0), args.Error(1)
}

func (m *mockAppointmentRepository) List(ctx context.Context, filter repository.AppointmentFilter) ([]model.Appointment, error) {
	args := m.Called(ctx, filter)
	apts, _ := args.Get(0).([]model.Appointment)
	return apts, args.Error(1)
}

type mockDoctorRepository struct {
	mock.Mock
}

func (m *mockDoctorRepository) GetByID(ctx context.Context, id string) (*model.Doctor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Doctor), args.Error(1)
}

func (m *mockDoctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	args := m.Called(ctx)
	doctors, _ := args.Get(0).([]*model.Doctor)
	return doctors, args.Error(1)
}

type mockSlotCache struct {
	mock.Mock
}

func (m *mockSlotCache) Get(ctx context.Context, doctorID string, day time.Time) ([]time.Time, bool, error) {
	args := m.Called(ctx, doctorID, day)
	slots, _ := args.Get(0).([]time.Time)
	return slots, args.Bool(1), args.Error(2)
}

func (m *mockSlotCache) Set(ctx context.Context, doctorID string, day time.Time, slots []time.Time) error {
	args := m.Called(ctx, doctorID, day, slots)
	return args.Error(0)
}

func (m *mockSlotCache) InvalidateDay(ctx context.Context, doctorID string, day time.Time) error {
	args := m.Called(ctx, doctorID, day)
	return args.Error(0)
}

func (m *mockSlotCache) InvalidateDoctor(ctx context.Context, doctorID string) error {
	args := m.Called(ctx, doctorID)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) AppointmentBooked(ctx context.Context, doctor *model.Doctor, apt *model.Appointment) error {
	args := m.Called(ctx, doctor, apt)
	return args.Error(0)
}

func (m *mockNotifier) AppointmentStatusChanged(ctx context.Context, doctor *model.Doctor, apt *model.Appointment) error {
	args := m.Called(ctx, doctor, apt)
	return args.Error(0)
}

type mockAvailabilityRepository struct {
	mock.Mock
}

func (m *mockAvailabilityRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]model.AvailabilityWindow, error) {
	args := m.Called(ctx, doctorID)
	windows, _ := args.Get(0).([]model.AvailabilityWindow)
	return windows, args.Error(1)
}

func (m *mockAvailabilityRepository) ReplaceDay(ctx context.Context, doctorID uuid.UUID, day model.Weekday, windows []model.AvailabilityWindow) ([]model.AvailabilityWindow, error) {
	args := m.Called(ctx, doctorID, day, windows)
	saved, _ := args.Get(0).([]model.AvailabilityWindow)
	return saved, args.Error(1)
}

func (m *mockAvailabilityRepository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *mockAvailabilityRepository) ListDoctorIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}
