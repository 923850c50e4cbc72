package service

import (
	"context"

	"github.com/carelink/patient-portal/internal/model"
)

// Notifier уведомляет врача о событиях по его записям
type Notifier interface {
	AppointmentBooked(ctx context.Context, doctor *model.Doctor, apt *model.Appointment) error
	AppointmentStatusChanged(ctx context.Context, doctor *model.Doctor, apt *model.Appointment) error
}

// NopNotifier используется когда бот не настроен
type NopNotifier struct{}

func (NopNotifier) AppointmentBooked(context.Context, *model.Doctor, *model.Appointment) error {
	return nil
}

func (NopNotifier) AppointmentStatusChanged(context.Context, *model.Doctor, *model.Appointment) error {
	return nil
}
