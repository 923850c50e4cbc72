package app

import (
	"context"
	"sync"
	"time"

	"github.com/carelink/patient-portal/internal/slots"
	"go.uber.org/zap"
)

type DoctorLister interface {
	ListDoctorIDs(ctx context.Context) ([]string, error)
}

type SlotWarmer interface {
	GetAvailableSlots(ctx context.Context, doctorID string, date time.Time) slots.Result
}

// Scheduler периодически прогревает кэш слотов на ближайшие дни
type Scheduler struct {
	doctors  DoctorLister
	warmer   SlotWarmer
	loc      *time.Location
	interval time.Duration
	days     int
	now      func() time.Time
	logger   *zap.Logger

	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewScheduler loc задаёт часовой пояс клиники, в котором считается "сегодня"
func NewScheduler(doctors DoctorLister, warmer SlotWarmer, loc *time.Location, interval time.Duration, days int, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		doctors:  doctors,
		warmer:   warmer,
		loc:      loc,
		interval: interval,
		days:     days,
		now:      time.Now,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start запускает фоновый прогрев. При interval <= 0 ничего не делает
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("Slot cache warming disabled")
		close(s.done)
		return
	}

	s.logger.Info("Starting background scheduler",
		zap.Duration("interval", s.interval),
		zap.Int("days", s.days))

	go s.runWarmTask(ctx)
}

// Stop останавливает задачу и ждёт её завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	<-s.done
}

func (s *Scheduler) runWarmTask(ctx context.Context) {
	defer close(s.done)

	// Первый запуск сразу при старте
	s.warm(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.warm(ctx)
		case <-s.stopChan:
			s.logger.Info("Slot warming task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Slot warming task cancelled")
			return
		}
	}
}

// warm считает слоты каждого врача с расписанием на сегодня и следующие days дней
func (s *Scheduler) warm(ctx context.Context) {
	started := time.Now()

	ids, err := s.doctors.ListDoctorIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list doctors for cache warming", zap.Error(err))
		return
	}

	today := slots.StartOfDay(s.now().In(s.loc), s.loc)
	var computed, degraded int
	for _, id := range ids {
		for d := 0; d <= s.days; d++ {
			if ctx.Err() != nil {
				return
			}
			result := s.warmer.GetAvailableSlots(ctx, id, today.AddDate(0, 0, d))
			computed++
			if result.Degraded {
				degraded++
			}
		}
	}

	s.logger.Info("Slot cache warmed",
		zap.Int("doctors", len(ids)),
		zap.Int("days", computed),
		zap.Int("degraded", degraded),
		zap.Duration("took", time.Since(started)))
}
