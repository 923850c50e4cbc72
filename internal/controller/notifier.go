package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carelink/patient-portal/internal/controller/handlers"
	"github.com/carelink/patient-portal/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramNotifier пишет врачу в Telegram о новых записях и смене статуса.
// Врачи без telegram_chat_id пропускаются
type TelegramNotifier struct {
	sender MessageSender
	loc    *time.Location
	logger *zap.Logger
}

func NewTelegramNotifier(sender MessageSender, loc *time.Location, logger *zap.Logger) *TelegramNotifier {
	return &TelegramNotifier{sender: sender, loc: loc, logger: logger}
}

func (n *TelegramNotifier) AppointmentBooked(ctx context.Context, doctor *model.Doctor, apt *model.Appointment) error {
	return n.notify(ctx, doctor, "🆕 Новая запись", apt)
}

func (n *TelegramNotifier) AppointmentStatusChanged(ctx context.Context, doctor *model.Doctor, apt *model.Appointment) error {
	return n.notify(ctx, doctor, "🔔 Статус записи изменён", apt)
}

func (n *TelegramNotifier) notify(ctx context.Context, doctor *model.Doctor, title string, apt *model.Appointment) error {
	if doctor == nil || doctor.TelegramChatID == nil {
		return nil
	}

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *doctor.TelegramChatID,
		Text:   doctorMessage(title, apt, n.loc),
	})
	if err != nil {
		return fmt.Errorf("send doctor notification: %w", err)
	}

	n.logger.Debug("Doctor notified",
		zap.String("doctor_id", doctor.ID),
		zap.String("appointment_id", apt.ID.String()))
	return nil
}

func doctorMessage(title string, apt *model.Appointment, loc *time.Location) string {
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	sb.WriteString(handlers.FormatAppointment(*apt, loc))
	fmt.Fprintf(&sb, "\n👤 Пациент: %s", apt.PatientID)
	if apt.Symptoms != "" {
		fmt.Fprintf(&sb, "\n🩺 Симптомы: %s", apt.Symptoms)
	}
	return sb.String()
}
