package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository"
	"github.com/carelink/patient-portal/internal/slots"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AppointmentRepository interface {
	Create(ctx context.Context, apt *model.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (bool, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (bool, error)
	List(ctx context.Context, filter repository.AppointmentFilter) ([]model.Appointment, error)
}

type DoctorRepository interface {
	GetByID(ctx context.Context, id string) (*model.Doctor, error)
	List(ctx context.Context) ([]*model.Doctor, error)
}

type SlotCache interface {
	Get(ctx context.Context, doctorID string, day time.Time) ([]time.Time, bool, error)
	Set(ctx context.Context, doctorID string, day time.Time, slots []time.Time) error
	InvalidateDay(ctx context.Context, doctorID string, day time.Time) error
	InvalidateDoctor(ctx context.Context, doctorID string) error
}

// BookingRequest данные новой записи на приём
type BookingRequest struct {
	PatientID   string
	DoctorID    string
	Type        model.AppointmentType
	ScheduledAt time.Time // для hospital/home может быть пустым
	Clinic      string
	Symptoms    string
	Location    string
}

type BookingService struct {
	engine       *slots.Engine
	appointments AppointmentRepository
	doctors      DoctorRepository
	cache        SlotCache
	notifier     Notifier
	logger       *zap.Logger
}

func NewBookingService(
	engine *slots.Engine,
	appointments AppointmentRepository,
	doctors DoctorRepository,
	cache SlotCache,
	notifier Notifier,
	logger *zap.Logger,
) *BookingService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &BookingService{
		engine:       engine,
		appointments: appointments,
		doctors:      doctors,
		cache:        cache,
		notifier:     notifier,
		logger:       logger,
	}
}

// GetAvailableSlots свободные слоты врача на дату. Сначала кэш, при промахе - движок.
// Деградированные результаты не кэшируются
func (s *BookingService) GetAvailableSlots(ctx context.Context, doctorID string, date time.Time) slots.Result {
	if doctorID == "" || date.IsZero() {
		return slots.Result{DoctorID: doctorID}
	}

	loc := s.engine.Location()
	day := slots.StartOfDay(date, loc)

	cached, ok, err := s.cache.Get(ctx, doctorID, day)
	if err != nil {
		s.logger.Warn("Slot cache read failed",
			zap.String("doctor_id", doctorID),
			zap.Error(err))
	}
	if ok {
		for i := range cached {
			cached[i] = cached[i].In(loc)
		}
		return slots.Result{
			DoctorID: doctorID,
			Date:     day,
			Slots:    s.engine.DropPast(day, cached),
		}
	}

	result := s.engine.GetAvailableSlots(ctx, doctorID, day)
	if !result.Degraded {
		if err := s.cache.Set(ctx, doctorID, day, result.Slots); err != nil {
			s.logger.Warn("Slot cache write failed",
				zap.String("doctor_id", doctorID),
				zap.Error(err))
		}
	}

	return result
}

// BookAppointment создаёт запись. Онлайн-приём допускается только на свободный слот
func (s *BookingService) BookAppointment(ctx context.Context, req BookingRequest) (*model.Appointment, error) {
	if strings.TrimSpace(req.PatientID) == "" {
		return nil, fmt.Errorf("%w: patient is required", ErrInvalidInput)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown appointment type %q", ErrInvalidInput, req.Type)
	}
	if req.Type == model.AppointmentTypeHome && strings.TrimSpace(req.Location) == "" {
		return nil, fmt.Errorf("%w: location is required for home visits", ErrInvalidInput)
	}

	var doctor *model.Doctor
	if req.DoctorID != "" {
		d, err := s.doctors.GetByID(ctx, req.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("get doctor: %w", err)
		}
		if d == nil {
			return nil, fmt.Errorf("%w: doctor %s", ErrNotFound, req.DoctorID)
		}
		doctor = d
	}

	scheduledAt := req.ScheduledAt
	if req.Type.RequiresSlot() {
		if doctor == nil {
			return nil, fmt.Errorf("%w: doctor is required for %s appointments", ErrInvalidInput, req.Type)
		}
		if scheduledAt.IsZero() {
			return nil, fmt.Errorf("%w: time is required for %s appointments", ErrInvalidInput, req.Type)
		}

		available, result := s.engine.IsAvailable(ctx, doctor.ID, scheduledAt)
		if !available {
			s.logger.Info("Requested slot is not available",
				zap.String("doctor_id", doctor.ID),
				zap.Time("scheduled_at", scheduledAt),
				zap.Bool("degraded", result.Degraded))
			return nil, ErrSlotUnavailable
		}
		scheduledAt = scheduledAt.Truncate(time.Minute)
	} else if scheduledAt.IsZero() {
		// Время визита согласует администратор
		scheduledAt = s.engine.Now()
	}

	apt := &model.Appointment{
		PatientID:     req.PatientID,
		Type:          req.Type,
		ScheduledAt:   scheduledAt.In(s.engine.Location()),
		Status:        model.AppointmentStatusPending,
		PaymentStatus: model.PaymentStatusUnpaid,
		Clinic:        req.Clinic,
		Symptoms:      req.Symptoms,
		Location:      req.Location,
	}
	if doctor != nil {
		apt.DoctorID = doctor.ID
	}

	if err := s.appointments.Create(ctx, apt); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("Appointment booked",
		zap.String("appointment_id", apt.ID.String()),
		zap.String("patient_id", apt.PatientID),
		zap.String("doctor_id", apt.DoctorID),
		zap.String("type", string(apt.Type)),
		zap.Time("scheduled_at", apt.ScheduledAt))

	if doctor != nil {
		s.invalidate(ctx, apt)
		if err := s.notifier.AppointmentBooked(ctx, doctor, apt); err != nil {
			s.logger.Warn("Failed to notify doctor about booking",
				zap.String("appointment_id", apt.ID.String()),
				zap.Error(err))
		}
	}

	return apt, nil
}

// UpdateStatus меняет статус записи (действие администратора)
func (s *BookingService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.Status == status {
		return apt, nil
	}

	return s.setStatus(ctx, apt, status)
}

// CancelAppointment отмена записи пациентом
func (s *BookingService) CancelAppointment(ctx context.Context, id uuid.UUID, patientID string) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	if apt.PatientID != patientID {
		return nil, fmt.Errorf("%w: appointment belongs to another patient", ErrForbidden)
	}

	if apt.Status == model.AppointmentStatusCancelled || apt.Status == model.AppointmentStatusCompleted {
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidInput, apt.Status)
	}

	return s.setStatus(ctx, apt, model.AppointmentStatusCancelled)
}

// MarkPaid отмечает запись оплаченной
func (s *BookingService) MarkPaid(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.PaymentStatus == model.PaymentStatusPaid {
		return apt, nil
	}

	found, err := s.appointments.UpdatePaymentStatus(ctx, id, model.PaymentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("update payment status: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
	}
	apt.PaymentStatus = model.PaymentStatusPaid

	s.logger.Info("Appointment paid", zap.String("appointment_id", id.String()))
	return apt, nil
}

// ListAppointments записи по фильтру
func (s *BookingService) ListAppointments(ctx context.Context, filter repository.AppointmentFilter) ([]model.Appointment, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.appointments.List(ctx, filter)
}

// ListDoctors все врачи
func (s *BookingService) ListDoctors(ctx context.Context) ([]*model.Doctor, error) {
	return s.doctors.List(ctx)
}

// GetDoctor врач по ID
func (s *BookingService) GetDoctor(ctx context.Context, id string) (*model.Doctor, error) {
	doctor, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	if doctor == nil {
		return nil, fmt.Errorf("%w: doctor %s", ErrNotFound, id)
	}
	return doctor, nil
}

func (s *BookingService) getAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if apt == nil {
		return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, id)
	}
	return apt, nil
}

func (s *BookingService) setStatus(ctx context.Context, apt *model.Appointment, status model.AppointmentStatus) (*model.Appointment, error) {
	found, err := s.appointments.UpdateStatus(ctx, apt.ID, status)
	if err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, ErrSlotUnavailable
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: appointment %s", ErrNotFound, apt.ID)
	}

	previous := apt.Status
	apt.Status = status

	s.logger.Info("Appointment status changed",
		zap.String("appointment_id", apt.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(status)))

	if apt.DoctorID == "" {
		return apt, nil
	}

	s.invalidate(ctx, apt)

	doctor, err := s.doctors.GetByID(ctx, apt.DoctorID)
	if err != nil || doctor == nil {
		s.logger.Warn("Doctor not loaded for status notification",
			zap.String("doctor_id", apt.DoctorID),
			zap.Error(err))
		return apt, nil
	}
	if err := s.notifier.AppointmentStatusChanged(ctx, doctor, apt); err != nil {
		s.logger.Warn("Failed to notify doctor about status change",
			zap.String("appointment_id", apt.ID.String()),
			zap.Error(err))
	}

	return apt, nil
}

func (s *BookingService) invalidate(ctx context.Context, apt *model.Appointment) {
	day := slots.StartOfDay(apt.ScheduledAt.In(s.engine.Location()), s.engine.Location())
	if err := s.cache.InvalidateDay(ctx, apt.DoctorID, day); err != nil {
		s.logger.Warn("Slot cache invalidation failed",
			zap.String("doctor_id", apt.DoctorID),
			zap.Error(err))
	}
}
