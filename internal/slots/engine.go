package slots

import (
	"context"
	"time"

	"github.com/carelink/patient-portal/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AvailabilityStore окна приёма врача на день недели.
// dayOfWeek передаётся в формате хранилища: "sunday".."saturday"
type AvailabilityStore interface {
	ListWindows(ctx context.Context, doctorID string, dayOfWeek string) ([]model.AvailabilityWindow, error)
}

// AppointmentStore записи врача с scheduled_at в диапазоне [from, to]
type AppointmentStore interface {
	ListForDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]model.Appointment, error)
}

// Engine вычисляет свободные слоты врача на дату.
// Состояния между вызовами не хранит
type Engine struct {
	windows      AvailabilityStore
	appointments AppointmentStore
	clock        Clock
	loc          *time.Location
	logger       *zap.Logger
}

type Option func(*Engine)

// WithClock подменяет источник текущего времени
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLocation задаёт часовой пояс, в котором интерпретируются окна приёма
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func NewEngine(windows AvailabilityStore, appointments AppointmentStore, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		windows:      windows,
		appointments: appointments,
		clock:        SystemClock,
		loc:          time.Local,
		logger:       logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	return e
}

// Location часовой пояс движка
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Now текущее время по часам движка
func (e *Engine) Now() time.Time {
	return e.clock.Now()
}

// GetAvailableSlots возвращает свободные 30-минутные слоты врача на дату targetDate.
// Ошибок не возвращает: упавшее чтение заменяется пустыми данными и
// отражается в Result.Failures
func (e *Engine) GetAvailableSlots(ctx context.Context, doctorID string, targetDate time.Time) Result {
	result := Result{DoctorID: doctorID}
	if doctorID == "" || targetDate.IsZero() {
		return result
	}

	day := StartOfDay(targetDate, e.loc)
	result.Date = day
	weekday := model.WeekdayOf(day)

	// Чтения независимы, выполняем параллельно и ждём оба
	var (
		windows         []model.AvailabilityWindow
		appointments    []model.Appointment
		windowsErr      error
		appointmentsErr error
		g               errgroup.Group
	)
	g.Go(func() error {
		windows, windowsErr = e.windows.ListWindows(ctx, doctorID, weekday.String())
		return nil
	})
	g.Go(func() error {
		appointments, appointmentsErr = e.appointments.ListForDoctor(ctx, doctorID, day, EndOfDay(day))
		return nil
	})
	_ = g.Wait()

	if windowsErr != nil {
		e.logger.Warn("Failed to fetch doctor availability, using empty windows",
			zap.String("doctor_id", doctorID),
			zap.String("day_of_week", weekday.String()),
			zap.Error(windowsErr))
		result.fail(SourceAvailability, windowsErr)
		windows = nil
	}
	if appointmentsErr != nil {
		e.logger.Warn("Failed to fetch existing appointments, using empty list",
			zap.String("doctor_id", doctorID),
			zap.Time("date", day),
			zap.Error(appointmentsErr))
		result.fail(SourceAppointments, appointmentsErr)
		appointments = nil
	}

	// Нет окон - врач в этот день не работает
	if len(windows) == 0 {
		e.logger.Debug("No availability for day",
			zap.String("doctor_id", doctorID),
			zap.String("day_of_week", weekday.String()))
		return result
	}

	var candidates []time.Time
	for _, w := range windows {
		ws, ok := WindowSlots(day, w)
		if !ok {
			result.SkippedWindows++
			e.logger.Warn("Skipping malformed availability window",
				zap.String("doctor_id", doctorID),
				zap.String("start_time", w.StartTime),
				zap.String("end_time", w.EndTime))
			continue
		}
		candidates = append(candidates, ws...)
	}

	occupied := Occupied(appointments, e.loc)
	now := e.clock.Now()
	today := SameDate(day, now, e.loc)

	free := make([]time.Time, 0, len(candidates))
	for _, slot := range candidates {
		if today && !slot.After(now) {
			continue
		}
		if _, taken := occupied[slot.UnixNano()]; taken {
			continue
		}
		free = append(free, slot)
	}
	result.Slots = sortUnique(free)

	e.logger.Debug("Computed available slots",
		zap.String("doctor_id", doctorID),
		zap.Time("date", day),
		zap.Int("windows", len(windows)),
		zap.Int("generated", len(candidates)),
		zap.Int("available", len(result.Slots)),
		zap.Bool("degraded", result.Degraded))

	return result
}

// IsAvailable проверяет что at является свободным слотом врача
func (e *Engine) IsAvailable(ctx context.Context, doctorID string, at time.Time) (bool, Result) {
	result := e.GetAvailableSlots(ctx, doctorID, at.In(e.loc))
	return result.Contains(at), result
}

// DropPast убирает прошедшие слоты, если day - сегодня.
// Нужен для списков, взятых из кэша
func (e *Engine) DropPast(day time.Time, slots []time.Time) []time.Time {
	now := e.clock.Now()
	if !SameDate(day, now, e.loc) {
		return slots
	}
	out := make([]time.Time, 0, len(slots))
	for _, s := range slots {
		if s.After(now) {
			out = append(out, s)
		}
	}
	return out
}
