package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carelink/patient-portal/internal/controller/state"
	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository"
	"github.com/carelink/patient-portal/internal/service"
	"github.com/carelink/patient-portal/internal/slots"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBooking вызывает onSlots посреди вычисления, чтобы смоделировать
// повторный выбор пользователя
type fakeBooking struct {
	result  slots.Result
	onSlots func()
}

func (f *fakeBooking) GetAvailableSlots(_ context.Context, doctorID string, date time.Time) slots.Result {
	if f.onSlots != nil {
		f.onSlots()
	}
	r := f.result
	r.DoctorID = doctorID
	r.Date = date
	return r
}

func (f *fakeBooking) BookAppointment(context.Context, service.BookingRequest) (*model.Appointment, error) {
	return nil, errors.New("not used")
}

func (f *fakeBooking) CancelAppointment(context.Context, uuid.UUID, string) (*model.Appointment, error) {
	return nil, errors.New("not used")
}

func (f *fakeBooking) ListAppointments(context.Context, repository.AppointmentFilter) ([]model.Appointment, error) {
	return nil, nil
}

func (f *fakeBooking) ListDoctors(context.Context) ([]*model.Doctor, error) {
	return nil, nil
}

func newTestHandlers(booking BookingService, sm *state.Manager) *Handlers {
	h := NewHandlers(booking, sm, time.UTC, zap.NewNop())
	h.now = func() time.Time { return time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC) }
	return h
}

func TestComputeSlots(t *testing.T) {
	const chatID = int64(77)
	date := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC)
	free := []time.Time{date.Add(9 * time.Hour)}

	t.Run("current selection is rendered", func(t *testing.T) {
		sm := state.NewManager()
		h := newTestHandlers(&fakeBooking{result: slots.Result{Slots: free}}, sm)

		text, markup, ok := h.computeSlots(context.Background(), chatID, testDoctorID, date)

		require.True(t, ok)
		assert.Contains(t, text, "20.10.2026")
		require.NotNil(t, markup)
		assert.Equal(t, "09:00", markup.InlineKeyboard[0][0].Text)

		sel, found := sm.Current(chatID)
		require.True(t, found)
		assert.Equal(t, testDoctorID, sel.DoctorID)
		assert.True(t, date.Equal(sel.Date))
	})

	t.Run("result superseded by newer selection is dropped", func(t *testing.T) {
		sm := state.NewManager()
		booking := &fakeBooking{result: slots.Result{Slots: free}}
		booking.onSlots = func() {
			sm.Select(chatID, testDoctorID, date.AddDate(0, 0, 1))
		}
		h := newTestHandlers(booking, sm)

		text, markup, ok := h.computeSlots(context.Background(), chatID, testDoctorID, date)

		assert.False(t, ok)
		assert.Empty(t, text)
		assert.Nil(t, markup)
	})

	t.Run("selection in another chat does not interfere", func(t *testing.T) {
		sm := state.NewManager()
		booking := &fakeBooking{result: slots.Result{Slots: free}}
		booking.onSlots = func() {
			sm.Select(chatID+1, testDoctorID, date)
		}
		h := newTestHandlers(booking, sm)

		_, _, ok := h.computeSlots(context.Background(), chatID, testDoctorID, date)
		assert.True(t, ok)
	})
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	h := NewHandlers(&fakeBooking{}, state.NewManager(), loc, zap.NewNop())
	// 22:30 UTC это уже следующий день по местному времени
	h.now = func() time.Time { return time.Date(2026, 10, 19, 22, 30, 0, 0, time.UTC) }

	assert.True(t, time.Date(2026, 10, 20, 0, 0, 0, 0, loc).Equal(h.today()))
}

func TestBookingErrorText(t *testing.T) {
	assert.Contains(t, bookingErrorText(service.ErrSlotUnavailable), "занято")
	assert.Contains(t, bookingErrorText(errors.Join(service.ErrNotFound, errors.New("x"))), "Врач")
	assert.Contains(t, bookingErrorText(errors.New("db down")), "Попробуйте позже")
}
