package slots

import (
	"time"
)

// Source хранилище, из которого не удалось получить данные
type Source string

const (
	SourceAvailability Source = "availability"
	SourceAppointments Source = "appointments"
)

// FetchFailure ошибка одного из чтений, которая была заменена пустыми данными
type FetchFailure struct {
	Source Source
	Err    error
}

// Result свободные слоты на дату и диагностика вычисления.
// Degraded=true означает что хотя бы одно хранилище не ответило и
// вместо его данных использован пустой список
type Result struct {
	DoctorID       string
	Date           time.Time
	Slots          []time.Time
	Degraded       bool
	Failures       []FetchFailure
	SkippedWindows int
}

func (r *Result) fail(source Source, err error) {
	r.Degraded = true
	r.Failures = append(r.Failures, FetchFailure{Source: source, Err: err})
}

// Empty нет ни одного свободного слота
func (r Result) Empty() bool {
	return len(r.Slots) == 0
}

// Contains входит ли момент t (с точностью до минуты) в список свободных слотов
func (r Result) Contains(t time.Time) bool {
	t = t.Truncate(time.Minute)
	for _, s := range r.Slots {
		if s.Equal(t) {
			return true
		}
	}
	return false
}

// ISO слоты в RFC 3339
func (r Result) ISO() []string {
	out := make([]string, 0, len(r.Slots))
	for _, s := range r.Slots {
		out = append(out, s.Format(time.RFC3339))
	}
	return out
}
