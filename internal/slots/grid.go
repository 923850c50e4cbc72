package slots

import (
	"slices"
	"time"

	"github.com/carelink/patient-portal/internal/model"
)

// Step шаг сетки слотов и длительность одного слота
const Step = 30 * time.Minute

// StartOfDay возвращает полночь календарной даты t в локации loc.
// Время суток t игнорируется, берётся только его дата
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay последний момент суток (23:59:59.999), включительно
func EndOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Millisecond)
}

// SameDate совпадают ли календарные даты a и b в локации loc
func SameDate(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// WindowSlots строит сетку начал слотов окна на дату day.
// Слот допускается если его начало строго раньше конца окна; помещается ли
// весь слот в окно не проверяется. ok=false если окно некорректно
func WindowSlots(day time.Time, w model.AvailabilityWindow) (slots []time.Time, ok bool) {
	start, end, err := w.Bounds()
	if err != nil || !start.Before(end) {
		return nil, false
	}

	last := end.On(day)
	for slot := start.On(day); slot.Before(last); slot = slot.Add(Step) {
		slots = append(slots, slot)
	}
	return slots, true
}

// Bucket приводит время записи к границе слота: минуты < 30 -> :00, >= 30 -> :30,
// секунды и наносекунды обнуляются
func Bucket(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	minute := 0
	if t.Minute() >= 30 {
		minute = 30
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), minute, 0, 0, loc)
}

// Occupied строит множество занятых слотов по записям, отменённые пропускаются
func Occupied(appointments []model.Appointment, loc *time.Location) map[int64]struct{} {
	occupied := make(map[int64]struct{}, len(appointments))
	for _, apt := range appointments {
		if !apt.Status.Occupies() {
			continue
		}
		occupied[Bucket(apt.ScheduledAt, loc).UnixNano()] = struct{}{}
	}
	return occupied
}

// sortUnique сортирует по возрастанию и схлопывает дубли от пересекающихся окон
func sortUnique(slots []time.Time) []time.Time {
	slices.SortFunc(slots, func(a, b time.Time) int { return a.Compare(b) })
	return slices.CompactFunc(slots, func(a, b time.Time) bool { return a.Equal(b) })
}
