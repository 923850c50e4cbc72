package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidTimeOfDay = errors.New("invalid time of day")

// TimeOfDay время суток без даты и часового пояса
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay разбирает "HH:MM" или "HH:MM:SS" (24 часа).
// "24:00" допускается и означает конец суток
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	values := make([]int, 3)
	for i, p := range parts {
		if len(p) == 0 || len(p) > 2 {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
		}
		values[i] = v
	}

	t := TimeOfDay{Hour: values[0], Minute: values[1], Second: values[2]}
	if t.Minute > 59 || t.Second > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	if t.Hour > 24 || (t.Hour == 24 && (t.Minute != 0 || t.Second != 0)) {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}

	return t, nil
}

// On возвращает момент на указанную дату в локации даты.
// Секунды не учитываются: сетка слотов строится с точностью до минуты
func (t TimeOfDay) On(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour, t.Minute, 0, 0, date.Location())
}

// Minutes количество минут от начала суток
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Before сравнивает с точностью до минуты
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.Minutes() < other.Minutes()
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// AvailabilityWindow регулярное окно приёма врача в конкретный день недели
type AvailabilityWindow struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  string    `json:"doctor_id"`
	DayOfWeek Weekday   `json:"day_of_week"`
	StartTime string    `json:"start_time"` // HH:MM или HH:MM:SS
	EndTime   string    `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bounds разбирает начало и конец окна
func (w AvailabilityWindow) Bounds() (TimeOfDay, TimeOfDay, error) {
	start, err := ParseTimeOfDay(w.StartTime)
	if err != nil {
		return TimeOfDay{}, TimeOfDay{}, fmt.Errorf("start_time: %w", err)
	}
	end, err := ParseTimeOfDay(w.EndTime)
	if err != nil {
		return TimeOfDay{}, TimeOfDay{}, fmt.Errorf("end_time: %w", err)
	}
	return start, end, nil
}

// Validate проверяет что окно разбирается и start < end (окна через полночь не поддерживаются)
func (w AvailabilityWindow) Validate() error {
	start, end, err := w.Bounds()
	if err != nil {
		return err
	}
	if !start.Before(end) {
		return fmt.Errorf("start_time %s must be before end_time %s", w.StartTime, w.EndTime)
	}
	return nil
}
