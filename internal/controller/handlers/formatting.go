package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/carelink/patient-portal/internal/controller/keyboard"
	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/slots"
	"github.com/go-telegram/bot/models"
)

const slotsPerRow = 4

var weekdayNames = map[model.Weekday]string{
	model.Sunday:    "воскресенье",
	model.Monday:    "понедельник",
	model.Tuesday:   "вторник",
	model.Wednesday: "среда",
	model.Thursday:  "четверг",
	model.Friday:    "пятница",
	model.Saturday:  "суббота",
}

// StatusDisplay emoji и текст статуса записи
type StatusDisplay struct {
	Emoji string
	Text  string
}

func GetStatusDisplay(status model.AppointmentStatus) StatusDisplay {
	displays := map[model.AppointmentStatus]StatusDisplay{
		model.AppointmentStatusPending:   {"⏳", "Ожидает подтверждения"},
		model.AppointmentStatusConfirmed: {"✅", "Подтверждена"},
		model.AppointmentStatusCompleted: {"✔️", "Завершена"},
		model.AppointmentStatusCancelled: {"❌", "Отменена"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return StatusDisplay{"❓", "Неизвестно"}
}

var typeNames = map[model.AppointmentType]string{
	model.AppointmentTypeOnline:   "Онлайн-консультация",
	model.AppointmentTypeHospital: "Приём в клинике",
	model.AppointmentTypeHome:     "Визит на дом",
}

func formatDate(date time.Time) string {
	return fmt.Sprintf("%s (%s)", date.Format("02.01.2006"), weekdayNames[model.WeekdayOf(date)])
}

// FormatAppointment текст записи для пациента
func FormatAppointment(apt model.Appointment, loc *time.Location) string {
	display := GetStatusDisplay(apt.Status)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n\n", display.Emoji, typeNames[apt.Type])
	at := apt.ScheduledAt.In(loc)
	fmt.Fprintf(&sb, "📅 %s, %s\n", formatDate(at), at.Format("15:04"))
	fmt.Fprintf(&sb, "📊 Статус: %s\n", display.Text)
	if apt.PaymentStatus == model.PaymentStatusPaid {
		sb.WriteString("💳 Оплачено\n")
	} else {
		sb.WriteString("💳 Не оплачено\n")
	}
	if apt.Clinic != "" {
		fmt.Fprintf(&sb, "🏥 %s\n", apt.Clinic)
	}
	if apt.Location != "" {
		fmt.Fprintf(&sb, "📍 %s\n", apt.Location)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// SlotsView текст и клавиатура со свободными слотами врача на дату.
// Кнопка "назад" появляется только для дат после today
func SlotsView(result slots.Result, date, today time.Time) (string, *models.InlineKeyboardMarkup) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 Свободное время на %s\n", formatDate(date))

	if result.Degraded {
		sb.WriteString("\n⚠️ Часть данных временно недоступна, список может быть неполным.\n")
	}

	kb := keyboard.NewBuilder()
	if result.Empty() {
		sb.WriteString("\nСвободных слотов нет. Попробуйте другой день.")
	} else {
		sb.WriteString("\nВыберите время для онлайн-консультации:")
		buttons := make([]models.InlineKeyboardButton, 0, len(result.Slots))
		for _, s := range result.Slots {
			buttons = append(buttons, keyboard.Button(s.Format("15:04"), bookCallback(result.DoctorID, s)))
		}
		kb.Grid(buttons, slotsPerRow)
	}

	var nav []models.InlineKeyboardButton
	if date.After(today) {
		nav = append(nav, keyboard.Button("◀️ "+date.AddDate(0, 0, -1).Format("02.01"), slotsCallback(result.DoctorID, date.AddDate(0, 0, -1))))
	}
	nav = append(nav, keyboard.Button(date.AddDate(0, 0, 1).Format("02.01")+" ▶️", slotsCallback(result.DoctorID, date.AddDate(0, 0, 1))))
	kb.Row(nav...)

	return sb.String(), kb.Build()
}

// DoctorsView список врачей с кнопками перехода к слотам на сегодня
func DoctorsView(doctors []*model.Doctor, today time.Time) (string, *models.InlineKeyboardMarkup) {
	if len(doctors) == 0 {
		return "👨‍⚕️ Пока нет врачей, доступных для записи.", nil
	}

	var sb strings.Builder
	sb.WriteString("👨‍⚕️ Врачи:\n")
	kb := keyboard.NewBuilder()
	for _, d := range doctors {
		title := d.FullName
		if d.Specialty != "" {
			title += ", " + d.Specialty
		}
		fmt.Fprintf(&sb, "\n• %s\n  /slots %s", title, d.ID)
		kb.Row(keyboard.Button(title, slotsCallback(d.ID, today)))
	}
	return sb.String(), kb.Build()
}
