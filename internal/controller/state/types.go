package state

import "time"

// Selection врач и дата, которые пользователь сейчас просматривает
type Selection struct {
	DoctorID string
	Date     time.Time
	Ticket   uint64
}
