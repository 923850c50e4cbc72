package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository"
	"github.com/carelink/patient-portal/internal/slots"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const doctorID = "0b6f6a8e-4d1c-4a43-9d3c-5d1f0f1f6a01"

var (
	// понедельник
	now     = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	tuesday = time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	doctor  = &model.Doctor{ID: doctorID, FullName: "Dr. House"}
	sameDay = mock.MatchedBy(func(t time.Time) bool { return t.Equal(tuesday) })
	anyTime = mock.AnythingOfType("time.Time")
	anyCtx  = mock.Anything
)

type bookingFixture struct {
	windows      *mockWindowStore
	store        *mockAppointmentStore
	appointments *mockAppointmentRepository
	doctors      *mockDoctorRepository
	cache        *mockSlotCache
	notifier     *mockNotifier
	service      *BookingService
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		windows:      new(mockWindowStore),
		store:        new(mockAppointmentStore),
		appointments: new(mockAppointmentRepository),
		doctors:      new(mockDoctorRepository),
		cache:        new(mockSlotCache),
		notifier:     new(mockNotifier),
	}
	engine := slots.NewEngine(f.windows, f.store, zap.NewNop(),
		slots.WithClock(slots.FixedClock(now)),
		slots.WithLocation(time.UTC))
	f.service = NewBookingService(engine, f.appointments, f.doctors, f.cache, f.notifier, zap.NewNop())
	return f
}

func (f *bookingFixture) assertExpectations(t *testing.T) {
	f.windows.AssertExpectations(t)
	f.store.AssertExpectations(t)
	f.appointments.AssertExpectations(t)
	f.doctors.AssertExpectations(t)
	f.cache.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func tuesdayWindow() []model.AvailabilityWindow {
	return []model.AvailabilityWindow{{DoctorID: doctorID, DayOfWeek: model.Tuesday, StartTime: "09:00", EndTime: "11:00"}}
}

func TestBookingService_GetAvailableSlots(t *testing.T) {
	ctx := context.Background()

	t.Run("cache hit skips engine", func(t *testing.T) {
		f := newBookingFixture()
		cached := []time.Time{tuesday.Add(9 * time.Hour), tuesday.Add(10 * time.Hour)}
		f.cache.On("Get", anyCtx, doctorID, sameDay).Return(cached, true, nil)

		result := f.service.GetAvailableSlots(ctx, doctorID, tuesday.Add(15*time.Hour))

		assert.Equal(t, cached, result.Slots)
		assert.False(t, result.Degraded)
		f.windows.AssertNotCalled(t, "ListWindows", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("cached list for today drops past slots", func(t *testing.T) {
		f := newBookingFixture()
		today := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
		cached := []time.Time{today.Add(7*time.Hour + 30*time.Minute), today.Add(8 * time.Hour), today.Add(9 * time.Hour)}
		f.cache.On("Get", anyCtx, doctorID, anyTime).Return(cached, true, nil)

		result := f.service.GetAvailableSlots(ctx, doctorID, today)

		assert.Equal(t, []time.Time{today.Add(9 * time.Hour)}, result.Slots)
	})

	t.Run("miss computes and stores", func(t *testing.T) {
		f := newBookingFixture()
		f.cache.On("Get", anyCtx, doctorID, sameDay).Return(nil, false, nil)
		f.windows.On("ListWindows", anyCtx, doctorID, "tuesday").Return(tuesdayWindow(), nil)
		f.store.On("ListForDoctor", anyCtx, doctorID, anyTime, anyTime).Return([]model.Appointment{
			{DoctorID: doctorID, ScheduledAt: tuesday.Add(9*time.Hour + 40*time.Minute), Status: model.AppointmentStatusConfirmed},
		}, nil)

		expected := []time.Time{tuesday.Add(9 * time.Hour), tuesday.Add(10 * time.Hour), tuesday.Add(10*time.Hour + 30*time.Minute)}
		f.cache.On("Set", anyCtx, doctorID, sameDay, expected).Return(nil)

		result := f.service.GetAvailableSlots(ctx, doctorID, tuesday)

		assert.Equal(t, expected, result.Slots)
		f.assertExpectations(t)
	})

	t.Run("degraded result is not cached", func(t *testing.T) {
		f := newBookingFixture()
		f.cache.On("Get", anyCtx, doctorID, sameDay).Return(nil, false, errors.New("redis down"))
		f.windows.On("ListWindows", anyCtx, doctorID, "tuesday").Return(tuesdayWindow(), nil)
		f.store.On("ListForDoctor", anyCtx, doctorID, anyTime, anyTime).Return(nil, errors.New("db down"))

		result := f.service.GetAvailableSlots(ctx, doctorID, tuesday)

		assert.True(t, result.Degraded)
		assert.Len(t, result.Slots, 4)
		f.cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing input", func(t *testing.T) {
		f := newBookingFixture()

		assert.True(t, f.service.GetAvailableSlots(ctx, "", tuesday).Empty())
		assert.True(t, f.service.GetAvailableSlots(ctx, doctorID, time.Time{}).Empty())
		f.cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBookingService_BookAppointment(t *testing.T) {
	ctx := context.Background()

	t.Run("books free online slot", func(t *testing.T) {
		f := newBookingFixture()
		at := tuesday.Add(10 * time.Hour)

		f.doctors.On("GetByID", anyCtx, doctorID).Return(doctor, nil)
		f.windows.On("ListWindows", anyCtx, doctorID, "tuesday").Return(tuesdayWindow(), nil)
		f.store.On("ListForDoctor", anyCtx, doctorID, anyTime, anyTime).Return(nil, nil)
		f.appointments.On("Create", anyCtx, mock.MatchedBy(func(apt *model.Appointment) bool {
			return apt.PatientID == "tg:42" &&
				apt.DoctorID == doctorID &&
				apt.ScheduledAt.Equal(at) &&
				apt.Status == model.AppointmentStatusPending &&
				apt.PaymentStatus == model.PaymentStatusUnpaid
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*model.Appointment).ID = uuid.New()
		}).Return(nil)
		f.cache.On("InvalidateDay", anyCtx, doctorID, sameDay).Return(nil)
		f.notifier.On("AppointmentBooked", anyCtx, doctor, mock.Anything).Return(errors.New("chat blocked"))

		apt, err := f.service.BookAppointment(ctx, BookingRequest{
			PatientID:   "tg:42",
			DoctorID:    doctorID,
			Type:        model.AppointmentTypeOnline,
			ScheduledAt: at.Add(25 * time.Second),
		})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, apt.ID)
		assert.True(t, apt.ScheduledAt.Equal(at))
		f.assertExpectations(t)
	})

	t.Run("taken slot is rejected before insert", func(t *testing.T) {
		f := newBookingFixture()
		at := tuesday.Add(10 * time.Hour)

		f.doctors.On("GetByID", anyCtx, doctorID).Return(doctor, nil)
		f.windows.On("ListWindows", anyCtx, doctorID, "tuesday").Return(tuesdayWindow(), nil)
		f.store.On("ListForDoctor", anyCtx, doctorID, anyTime, anyTime).Return([]model.Appointment{
			{DoctorID: doctorID, ScheduledAt: at, Status: model.AppointmentStatusPending},
		}, nil)

		_, err := f.service.BookAppointment(ctx, BookingRequest{
			PatientID: "tg:42", DoctorID: doctorID, Type: model.AppointmentTypeOnline, ScheduledAt: at,
		})

		assert.ErrorIs(t, err, ErrSlotUnavailable)
		f.appointments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("off-grid time is rejected", func(t *testing.T) {
		f := newBookingFixture()
		f.doctors.On("GetByID", anyCtx, doctorID).Return(doctor, nil)
		f.windows.On("ListWindows", anyCtx, doctorID, "tuesday").Return(tuesdayWindow(), nil)
		f.store.On("ListForDoctor", anyCtx, doctorID, anyTime, anyTime).Return(nil, nil)

		_, err := f.service.BookAppointment(ctx, BookingRequest{
			PatientID: "tg:42", DoctorID: doctorID, Type: model.AppointmentTypeOnline,
			ScheduledAt: tuesday.Add(10*time.Hour + 15*time.Minute),
		})

		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("concurrent insert maps to unavailable", func(t *testing.T) {
		f := newBookingFixture()
		f.doctors.On("GetByID", anyCtx, doctorID).Return(doctor, nil)
		f.windows.On("ListWindows", anyCtx, doctorID, "tuesday").Return(tuesdayWindow(), nil)
		f.store.On("ListForDoctor", anyCtx, doctorID, anyTime, anyTime).Return(nil, nil)
		f.appointments.On("Create", anyCtx, mock.Anything).Return(repository.ErrSlotTaken)

		_, err := f.service.BookAppointment(ctx, BookingRequest{
			PatientID: "tg:42", DoctorID: doctorID, Type: model.AppointmentTypeOnline,
			ScheduledAt: tuesday.Add(9 * time.Hour),
		})

		assert.ErrorIs(t, err, ErrSlotUnavailable)
		f.notifier.AssertNotCalled(t, "AppointmentBooked", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("hospital visit without time gets now", func(t *testing.T) {
		f := newBookingFixture()
		f.appointments.On("Create", anyCtx, mock.MatchedBy(func(apt *model.Appointment) bool {
			return apt.ScheduledAt.Equal(now) && apt.DoctorID == "" && apt.Clinic == "City clinic"
		})).Return(nil)

		apt, err := f.service.BookAppointment(ctx, BookingRequest{
			PatientID: "tg:42", Type: model.AppointmentTypeHospital, Clinic: "City clinic",
		})

		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusPending, apt.Status)
		f.windows.AssertNotCalled(t, "ListWindows", mock.Anything, mock.Anything, mock.Anything)
		f.cache.AssertNotCalled(t, "InvalidateDay", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("unknown doctor", func(t *testing.T) {
		f := newBookingFixture()
		f.doctors.On("GetByID", anyCtx, doctorID).Return(nil, nil)

		_, err := f.service.BookAppointment(ctx, BookingRequest{
			PatientID: "tg:42", DoctorID: doctorID, Type: model.AppointmentTypeOnline, ScheduledAt: tuesday,
		})

		assert.ErrorIs(t, err, ErrNotFound)
	})

	invalid := []struct {
		name string
		req  BookingRequest
	}{
		{"no patient", BookingRequest{DoctorID: doctorID, Type: model.AppointmentTypeOnline}},
		{"unknown type", BookingRequest{PatientID: "tg:42", Type: "video"}},
		{"home without location", BookingRequest{PatientID: "tg:42", Type: model.AppointmentTypeHome}},
		{"online without doctor", BookingRequest{PatientID: "tg:42", Type: model.AppointmentTypeOnline, ScheduledAt: tuesday}},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture()

			_, err := f.service.BookAppointment(ctx, tc.req)

			assert.ErrorIs(t, err, ErrInvalidInput)
			f.appointments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}

	t.Run("online without time", func(t *testing.T) {
		f := newBookingFixture()
		f.doctors.On("GetByID", anyCtx, doctorID).Return(doctor, nil)

		_, err := f.service.BookAppointment(ctx, BookingRequest{
			PatientID: "tg:42", DoctorID: doctorID, Type: model.AppointmentTypeOnline,
		})

		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func bookedAppointment(status model.AppointmentStatus) *model.Appointment {
	return &model.Appointment{
		ID:            uuid.New(),
		PatientID:     "tg:42",
		DoctorID:      doctorID,
		Type:          model.AppointmentTypeOnline,
		ScheduledAt:   tuesday.Add(10 * time.Hour),
		Status:        status,
		PaymentStatus: model.PaymentStatusUnpaid,
	}
}

func TestBookingService_CancelAppointment(t *testing.T) {
	ctx := context.Background()

	t.Run("owner cancels", func(t *testing.T) {
		f := newBookingFixture()
		apt := bookedAppointment(model.AppointmentStatusConfirmed)

		f.appointments.On("GetByID", anyCtx, apt.ID).Return(apt, nil)
		f.appointments.On("UpdateStatus", anyCtx, apt.ID, model.AppointmentStatusCancelled).Return(true, nil)
		f.cache.On("InvalidateDay", anyCtx, doctorID, sameDay).Return(nil)
		f.doctors.On("GetByID", anyCtx, doctorID).Return(doctor, nil)
		f.notifier.On("AppointmentStatusChanged", anyCtx, doctor, apt).Return(nil)

		got, err := f.service.CancelAppointment(ctx, apt.ID, "tg:42")

		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
		f.assertExpectations(t)
	})

	t.Run("other patient is forbidden", func(t *testing.T) {
		f := newBookingFixture()
		apt := bookedAppointment(model.AppointmentStatusPending)
		f.appointments.On("GetByID", anyCtx, apt.ID).Return(apt, nil)

		_, err := f.service.CancelAppointment(ctx, apt.ID, "tg:7")

		assert.ErrorIs(t, err, ErrForbidden)
		f.appointments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("completed cannot be cancelled", func(t *testing.T) {
		f := newBookingFixture()
		apt := bookedAppointment(model.AppointmentStatusCompleted)
		f.appointments.On("GetByID", anyCtx, apt.ID).Return(apt, nil)

		_, err := f.service.CancelAppointment(ctx, apt.ID, "tg:42")

		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("missing appointment", func(t *testing.T) {
		f := newBookingFixture()
		id := uuid.New()
		f.appointments.On("GetByID", anyCtx, id).Return(nil, nil)

		_, err := f.service.CancelAppointment(ctx, id, "tg:42")

		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBookingService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown status", func(t *testing.T) {
		f := newBookingFixture()
		_, err := f.service.UpdateStatus(ctx, uuid.New(), "archived")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		f := newBookingFixture()
		apt := bookedAppointment(model.AppointmentStatusConfirmed)
		f.appointments.On("GetByID", anyCtx, apt.ID).Return(apt, nil)

		got, err := f.service.UpdateStatus(ctx, apt.ID, model.AppointmentStatusConfirmed)

		require.NoError(t, err)
		assert.Same(t, apt, got)
		f.appointments.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("reviving into a taken slot", func(t *testing.T) {
		f := newBookingFixture()
		apt := bookedAppointment(model.AppointmentStatusCancelled)
		f.appointments.On("GetByID", anyCtx, apt.ID).Return(apt, nil)
		f.appointments.On("UpdateStatus", anyCtx, apt.ID, model.AppointmentStatusConfirmed).Return(false, repository.ErrSlotTaken)

		_, err := f.service.UpdateStatus(ctx, apt.ID, model.AppointmentStatusConfirmed)

		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("confirms and notifies", func(t *testing.T) {
		f := newBookingFixture()
		apt := bookedAppointment(model.AppointmentStatusPending)
		f.appointments.On("GetByID", anyCtx, apt.ID).Return(apt, nil)
		f.appointments.On("UpdateStatus", anyCtx, apt.ID, model.AppointmentStatusConfirmed).Return(true, nil)
		f.cache.On("InvalidateDay", anyCtx, doctorID, sameDay).Return(errors.New("redis down"))
		f.doctors.On("GetByID", anyCtx, doctorID).Return(doctor, nil)
		f.notifier.On("AppointmentStatusChanged", anyCtx, doctor, apt).Return(nil)

		got, err := f.service.UpdateStatus(ctx, apt.ID, model.AppointmentStatusConfirmed)

		require.NoError(t, err)
		assert.Equal(t, model.AppointmentStatusConfirmed, got.Status)
		f.assertExpectations(t)
	})
}

func TestBookingService_MarkPaid(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture()
	apt := bookedAppointment(model.AppointmentStatusConfirmed)

	f.appointments.On("GetByID", anyCtx, apt.ID).Return(apt, nil)
	f.appointments.On("UpdatePaymentStatus", anyCtx, apt.ID, model.PaymentStatusPaid).Return(true, nil).Once()

	got, err := f.service.MarkPaid(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, got.PaymentStatus)

	// повторная оплата ничего не пишет
	_, err = f.service.MarkPaid(ctx, apt.ID)
	require.NoError(t, err)
	f.assertExpectations(t)
}

func TestBookingService_ListAppointments(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture()

	_, err := f.service.ListAppointments(ctx, repository.AppointmentFilter{Status: "lost"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	filter := repository.AppointmentFilter{PatientID: "tg:42"}
	f.appointments.On("List", anyCtx, filter).Return([]model.Appointment{*bookedAppointment(model.AppointmentStatusPending)}, nil)

	apts, err := f.service.ListAppointments(ctx, filter)
	require.NoError(t, err)
	assert.Len(t, apts, 1)
}
