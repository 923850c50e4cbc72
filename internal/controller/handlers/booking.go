package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleCallbackQuery распределяет нажатия inline кнопок
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	h.logger.Debug("Routing callback",
		zap.String("data", callback.Data),
		zap.Int64("user_id", callback.From.ID))

	switch data := callback.Data; {
	case data == CallbackNoop:
		h.answer(ctx, b, callback.ID, "", false)
	case strings.HasPrefix(data, CallbackSlots):
		h.handleSlotsCallback(ctx, b, callback)
	case strings.HasPrefix(data, CallbackBook):
		h.handleBookCallback(ctx, b, callback)
	case strings.HasPrefix(data, CallbackCancelAppointment):
		h.handleCancelCallback(ctx, b, callback)
	default:
		h.logger.Warn("Unknown callback", zap.String("data", data))
		h.answer(ctx, b, callback.ID, "Неизвестная команда", false)
	}
}

// computeSlots вычисляет слоты и отбрасывает результат, если пока шло
// вычисление пользователь успел выбрать другого врача или дату
func (h *Handlers) computeSlots(ctx context.Context, chatID int64, doctorID string, date time.Time) (string, *models.InlineKeyboardMarkup, bool) {
	ticket := h.stateManager.Select(chatID, doctorID, date)

	result := h.booking.GetAvailableSlots(ctx, doctorID, date)

	if !h.stateManager.IsCurrent(chatID, ticket) {
		h.logger.Debug("Dropping stale slots result",
			zap.Int64("chat_id", chatID),
			zap.String("doctor_id", doctorID),
			zap.Time("date", date))
		return "", nil, false
	}

	text, markup := SlotsView(result, date, h.today())
	return text, markup, true
}

func (h *Handlers) handleSlotsCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	doctorID, date, err := parseSlotsCallback(callback.Data, h.loc)
	if err != nil {
		h.logger.Warn("Bad slots callback", zap.String("data", callback.Data), zap.Error(err))
		h.answer(ctx, b, callback.ID, "❌ Некорректные данные", true)
		return
	}
	if date.Before(h.today()) {
		h.answer(ctx, b, callback.ID, "Эта дата уже прошла", false)
		return
	}

	h.answer(ctx, b, callback.ID, "", false)

	chatID := callbackChatID(callback)
	text, markup, ok := h.computeSlots(ctx, chatID, doctorID, date)
	if !ok {
		return
	}
	h.editOrSend(ctx, b, callback, text, markup)
}

func (h *Handlers) handleBookCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	doctorID, at, err := parseBookCallback(callback.Data, h.loc)
	if err != nil {
		h.logger.Warn("Bad book callback", zap.String("data", callback.Data), zap.Error(err))
		h.answer(ctx, b, callback.ID, "❌ Некорректные данные", true)
		return
	}

	apt, err := h.booking.BookAppointment(ctx, service.BookingRequest{
		PatientID:   PatientID(callback.From.ID),
		DoctorID:    doctorID,
		Type:        model.AppointmentTypeOnline,
		ScheduledAt: at,
	})
	if err != nil {
		h.answer(ctx, b, callback.ID, bookingErrorText(err), true)
		switch {
		case errors.Is(err, service.ErrSlotUnavailable):
			// Слот заняли: показываем актуальный список
			date := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, h.loc)
			if text, markup, ok := h.computeSlots(ctx, callbackChatID(callback), doctorID, date); ok {
				h.editOrSend(ctx, b, callback, text, markup)
			}
		case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrInvalidInput):
		default:
			h.logger.Error("Failed to book appointment",
				zap.String("doctor_id", doctorID),
				zap.Time("scheduled_at", at),
				zap.Error(err))
		}
		return
	}

	h.answer(ctx, b, callback.ID, "✅ Вы записаны", false)
	h.stateManager.Clear(callbackChatID(callback))

	text := fmt.Sprintf("✅ Запись создана!\n\n%s\n\nВрач подтвердит запись. Ваши записи: /mybookings",
		FormatAppointment(*apt, h.loc))
	h.editOrSend(ctx, b, callback, text, nil)
}

func (h *Handlers) handleCancelCallback(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	id, err := parseCancelCallback(callback.Data)
	if err != nil {
		h.answer(ctx, b, callback.ID, "❌ Некорректные данные", true)
		return
	}

	apt, err := h.booking.CancelAppointment(ctx, id, PatientID(callback.From.ID))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrNotFound):
		h.answer(ctx, b, callback.ID, "❌ Запись не найдена", true)
		return
	case errors.Is(err, service.ErrInvalidInput):
		h.answer(ctx, b, callback.ID, "Эту запись уже нельзя отменить", true)
		return
	default:
		h.logger.Error("Failed to cancel appointment",
			zap.String("appointment_id", id.String()),
			zap.Error(err))
		h.answer(ctx, b, callback.ID, "❌ Не удалось отменить запись. Попробуйте позже.", true)
		return
	}

	h.answer(ctx, b, callback.ID, "Запись отменена", false)
	h.editOrSend(ctx, b, callback, FormatAppointment(*apt, h.loc), nil)
}

func bookingErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrSlotUnavailable):
		return "😔 Это время уже занято. Выберите другое."
	case errors.Is(err, service.ErrNotFound):
		return "❌ Врач не найден"
	case errors.Is(err, service.ErrInvalidInput):
		return "❌ Некорректный запрос"
	default:
		return "❌ Не удалось записаться. Попробуйте позже."
	}
}

func callbackChatID(callback *models.CallbackQuery) int64 {
	if callback.Message.Message != nil {
		return callback.Message.Message.Chat.ID
	}
	return callback.From.ID
}

// editOrSend заменяет сообщение с кнопками, если оно доступно, иначе шлёт новое
func (h *Handlers) editOrSend(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, text string, markup *models.InlineKeyboardMarkup) {
	msg := callback.Message.Message
	if msg == nil {
		h.sendMessage(ctx, b, callback.From.ID, text, markup)
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Chat.ID,
		MessageID: msg.ID,
		Text:      text,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	if _, err := b.EditMessageText(ctx, params); err != nil {
		h.logger.Warn("Failed to edit message, sending new one",
			zap.Int64("chat_id", msg.Chat.ID),
			zap.Error(err))
		h.sendMessage(ctx, b, msg.Chat.ID, text, markup)
	}
}

func (h *Handlers) answer(ctx context.Context, b *bot.Bot, callbackID, text string, alert bool) {
	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
		ShowAlert:       alert,
	})
	if err != nil {
		h.logger.Warn("Failed to answer callback", zap.Error(err))
	}
}
