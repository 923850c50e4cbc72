package slots

import "time"

// Clock источник текущего времени для фильтрации прошедших слотов
type Clock interface {
	Now() time.Time
}

// ClockFunc позволяет использовать функцию как Clock
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock возвращает настенное время процесса
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock всегда возвращает t
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
