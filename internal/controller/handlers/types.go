package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/carelink/patient-portal/internal/controller/state"
	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository"
	"github.com/carelink/patient-portal/internal/service"
	"github.com/carelink/patient-portal/internal/slots"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	GetAvailableSlots(ctx context.Context, doctorID string, date time.Time) slots.Result
	BookAppointment(ctx context.Context, req service.BookingRequest) (*model.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, patientID string) (*model.Appointment, error)
	ListAppointments(ctx context.Context, filter repository.AppointmentFilter) ([]model.Appointment, error)
	ListDoctors(ctx context.Context) ([]*model.Doctor, error)
}

// Handlers содержит все зависимости для обработки команд и callback'ов
type Handlers struct {
	booking      BookingService
	stateManager *state.Manager
	loc          *time.Location
	now          func() time.Time
	logger       *zap.Logger
}

func NewHandlers(booking BookingService, stateManager *state.Manager, loc *time.Location, logger *zap.Logger) *Handlers {
	if loc == nil {
		loc = time.Local
	}
	return &Handlers{
		booking:      booking,
		stateManager: stateManager,
		loc:          loc,
		now:          time.Now,
		logger:       logger,
	}
}

// PatientID идентификатор пациента, записавшегося через бота
func PatientID(telegramID int64) string {
	return fmt.Sprintf("tg:%d", telegramID)
}

func (h *Handlers) today() time.Time {
	return slots.StartOfDay(h.now().In(h.loc), h.loc)
}
