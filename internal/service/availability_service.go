package service

import (
	"context"
	"fmt"
	"slices"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AvailabilityRepository interface {
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]model.AvailabilityWindow, error)
	ReplaceDay(ctx context.Context, doctorID uuid.UUID, day model.Weekday, windows []model.AvailabilityWindow) ([]model.AvailabilityWindow, error)
	Delete(ctx context.Context, id uuid.UUID) (string, error)
	ListDoctorIDs(ctx context.Context) ([]string, error)
}

// TimeRange окно приёма в виде "HH:MM"-"HH:MM"
type TimeRange struct {
	Start string `json:"start_time"`
	End   string `json:"end_time"`
}

type AvailabilityService struct {
	windows AvailabilityRepository
	doctors DoctorRepository
	cache   SlotCache
	logger  *zap.Logger
}

func NewAvailabilityService(windows AvailabilityRepository, doctors DoctorRepository, cache SlotCache, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		windows: windows,
		doctors: doctors,
		cache:   cache,
		logger:  logger,
	}
}

// ListWindows недельное расписание врача
func (s *AvailabilityService) ListWindows(ctx context.Context, doctorID string) ([]model.AvailabilityWindow, error) {
	id, err := uuid.Parse(doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed doctor id", ErrInvalidInput)
	}
	return s.windows.ListByDoctor(ctx, id)
}

// ListDoctorIDs врачи, у которых есть хотя бы одно окно
func (s *AvailabilityService) ListDoctorIDs(ctx context.Context) ([]string, error) {
	return s.windows.ListDoctorIDs(ctx)
}

// SetDay заменяет все окна врача в указанный день недели. Пустой список очищает день
func (s *AvailabilityService) SetDay(ctx context.Context, doctorID string, day model.Weekday, ranges []TimeRange) ([]model.AvailabilityWindow, error) {
	id, err := uuid.Parse(doctorID)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed doctor id", ErrInvalidInput)
	}
	if !day.Valid() {
		return nil, fmt.Errorf("%w: unknown day of week", ErrInvalidInput)
	}

	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}
	if doctor == nil {
		return nil, fmt.Errorf("%w: doctor %s", ErrNotFound, doctorID)
	}

	windows, err := buildWindows(doctor.ID, day, ranges)
	if err != nil {
		return nil, err
	}

	saved, err := s.windows.ReplaceDay(ctx, id, day, windows)
	if err != nil {
		return nil, fmt.Errorf("replace availability: %w", err)
	}

	s.logger.Info("Availability updated",
		zap.String("doctor_id", doctor.ID),
		zap.String("day", day.String()),
		zap.Int("windows", len(saved)))

	s.invalidate(ctx, doctor.ID)
	return saved, nil
}

// DeleteWindow удаляет одно окно
func (s *AvailabilityService) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	doctorID, err := s.windows.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete availability window: %w", err)
	}
	if doctorID == "" {
		return fmt.Errorf("%w: availability window %s", ErrNotFound, id)
	}

	s.logger.Info("Availability window deleted",
		zap.String("window_id", id.String()),
		zap.String("doctor_id", doctorID))

	s.invalidate(ctx, doctorID)
	return nil
}

func (s *AvailabilityService) invalidate(ctx context.Context, doctorID string) {
	if err := s.cache.InvalidateDoctor(ctx, doctorID); err != nil {
		s.logger.Warn("Slot cache invalidation failed",
			zap.String("doctor_id", doctorID),
			zap.Error(err))
	}
}

// buildWindows проверяет окна и что они не пересекаются
func buildWindows(doctorID string, day model.Weekday, ranges []TimeRange) ([]model.AvailabilityWindow, error) {
	type bounds struct {
		start, end model.TimeOfDay
	}

	windows := make([]model.AvailabilityWindow, 0, len(ranges))
	parsed := make([]bounds, 0, len(ranges))

	for _, r := range ranges {
		w := model.AvailabilityWindow{
			DoctorID:  doctorID,
			DayOfWeek: day,
			StartTime: r.Start,
			EndTime:   r.End,
		}
		start, end, err := w.Bounds()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if !start.Before(end) {
			return nil, fmt.Errorf("%w: window %s-%s ends before it starts", ErrInvalidInput, r.Start, r.End)
		}

		w.StartTime = start.String()
		w.EndTime = end.String()
		windows = append(windows, w)
		parsed = append(parsed, bounds{start: start, end: end})
	}

	order := make([]int, len(parsed))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		return parsed[a].start.Minutes() - parsed[b].start.Minutes()
	})
	for i := 1; i < len(order); i++ {
		prev, cur := parsed[order[i-1]], parsed[order[i]]
		if cur.start.Before(prev.end) {
			return nil, fmt.Errorf("%w: windows %s-%s and %s-%s overlap", ErrInvalidInput,
				prev.start, prev.end, cur.start, cur.end)
		}
	}

	return windows, nil
}
