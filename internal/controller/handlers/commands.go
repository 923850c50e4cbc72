package handlers

import (
	"context"
	"fmt"
	"slices"

	"github.com/carelink/patient-portal/internal/controller/keyboard"
	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

const myBookingsLimit = 20

// HandleStart обрабатывает команду /start
func (h *Handlers) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Здравствуйте, %s!\n\n"+
			"Здесь можно записаться на онлайн-консультацию к врачу.\n\n"+
			"Доступные команды:\n"+
			"/doctors - Список врачей\n"+
			"/slots <id врача> [ГГГГ-ММ-ДД] - Свободное время\n"+
			"/mybookings - Мои записи\n"+
			"/help - Справка",
		update.Message.From.FirstName,
	)

	h.sendMessage(ctx, b, update.Message.Chat.ID, welcomeText, nil)
}

// HandleHelp обрабатывает команду /help
func (h *Handlers) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	helpText := "📚 Справка по командам:\n\n" +
		"/doctors - Список врачей\n" +
		"/slots <id врача> [ГГГГ-ММ-ДД] - Свободное время врача на дату (по умолчанию сегодня)\n" +
		"/mybookings - Мои записи и их отмена\n" +
		"/cancel - Сбросить выбранного врача и дату\n\n" +
		"Нажмите на время в списке слотов, чтобы записаться."

	h.sendMessage(ctx, b, update.Message.Chat.ID, helpText, nil)
}

// HandleDoctors обрабатывает команду /doctors
func (h *Handlers) HandleDoctors(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	doctors, err := h.booking.ListDoctors(ctx)
	if err != nil {
		h.logger.Error("Failed to list doctors", zap.Error(err))
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Не удалось загрузить список врачей. Попробуйте позже.", nil)
		return
	}

	text, markup := DoctorsView(doctors, h.today())
	h.sendMessage(ctx, b, update.Message.Chat.ID, text, markup)
}

// HandleSlots обрабатывает команду /slots <doctor_id> [YYYY-MM-DD]
func (h *Handlers) HandleSlots(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID

	doctorID, date, err := parseSlotsCommand(update.Message.Text, h.today())
	if err != nil {
		h.sendMessage(ctx, b, chatID, "❌ "+err.Error(), nil)
		return
	}

	text, markup, ok := h.computeSlots(ctx, chatID, doctorID, date)
	if !ok {
		return
	}
	h.sendMessage(ctx, b, chatID, text, markup)
}

// HandleMyBookings обрабатывает команду /mybookings
func (h *Handlers) HandleMyBookings(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	patientID := PatientID(update.Message.From.ID)

	apts, err := h.booking.ListAppointments(ctx, repository.AppointmentFilter{
		PatientID: patientID,
		From:      h.today(),
		Limit:     myBookingsLimit,
	})
	if err != nil {
		h.logger.Error("Failed to list patient appointments",
			zap.String("patient_id", patientID),
			zap.Error(err))
		h.sendMessage(ctx, b, chatID, "❌ Не удалось загрузить ваши записи.", nil)
		return
	}

	apts = slices.DeleteFunc(apts, func(a model.Appointment) bool {
		return a.Status == model.AppointmentStatusCancelled
	})
	if len(apts) == 0 {
		h.sendMessage(ctx, b, chatID, "📭 У вас нет предстоящих записей.\n\nНайти врача: /doctors", nil)
		return
	}

	// Каждая запись отдельным сообщением с кнопкой отмены
	for _, apt := range apts {
		var markup *models.InlineKeyboardMarkup
		if apt.Status != model.AppointmentStatusCompleted {
			markup = keyboard.NewBuilder().
				Row(keyboard.Button("❌ Отменить запись", cancelCallback(apt.ID))).
				Build()
		}
		h.sendMessage(ctx, b, chatID, FormatAppointment(apt, h.loc), markup)
	}
}

// HandleCancel обрабатывает команду /cancel - сброс текущего выбора
func (h *Handlers) HandleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	if !h.stateManager.Clear(update.Message.Chat.ID) {
		h.sendMessage(ctx, b, update.Message.Chat.ID, "❌ Нет активного выбора для отмены.", nil)
		return
	}

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"✅ Выбор сброшен.\n\nИспользуйте /help для просмотра доступных команд.", nil)
}

// HandleDefault отвечает на сообщения, которые не распознаны как команды
func (h *Handlers) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	h.sendMessage(ctx, b, update.Message.Chat.ID, "🤔 Не понимаю. Список команд: /help", nil)
}

// sendMessage отправляет сообщение и логирует если не удалось
func (h *Handlers) sendMessage(ctx context.Context, b *bot.Bot, chatID int64, text string, markup *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		h.logger.Error("Failed to send message",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
