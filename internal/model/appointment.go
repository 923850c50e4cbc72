package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // Ожидает подтверждения
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // Подтверждено
	AppointmentStatusCompleted AppointmentStatus = "completed" // Приём состоялся
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменено
)

// Valid проверяет что статус известен
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Occupies занимает ли запись со статусом слот врача
func (s AppointmentStatus) Occupies() bool {
	return s != AppointmentStatusCancelled
}

type AppointmentType string

const (
	AppointmentTypeOnline   AppointmentType = "online"   // Онлайн-консультация
	AppointmentTypeHospital AppointmentType = "hospital" // Визит в больницу
	AppointmentTypeHome     AppointmentType = "home"     // Визит на дом
)

func (t AppointmentType) Valid() bool {
	switch t {
	case AppointmentTypeOnline, AppointmentTypeHospital, AppointmentTypeHome:
		return true
	}
	return false
}

// RequiresSlot онлайн-приём бронируется только на свободный слот,
// остальные типы время согласует администратор
func (t AppointmentType) RequiresSlot() bool {
	return t == AppointmentTypeOnline
}

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

type Appointment struct {
	ID            uuid.UUID         `json:"id"`
	PatientID     string            `json:"patient_id"`
	DoctorID      string            `json:"doctor_id"`
	Type          AppointmentType   `json:"type"`
	ScheduledAt   time.Time         `json:"scheduled_at"`
	Status        AppointmentStatus `json:"status"`
	PaymentStatus PaymentStatus     `json:"payment_status"`
	Clinic        string            `json:"clinic,omitempty"`
	Symptoms      string            `json:"symptoms,omitempty"`
	Location      string            `json:"location,omitempty"` // адрес для визита на дом
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Doctor минимальный профиль врача, нужный сервису записи
type Doctor struct {
	ID             string `json:"id"`
	FullName       string `json:"full_name"`
	Specialty      string `json:"specialty,omitempty"`
	TelegramChatID *int64 `json:"telegram_chat_id,omitempty"` // nil - уведомления не отправляются
}
