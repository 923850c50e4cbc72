package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Форматы callback data
const (
	CallbackSlots             = "slots:"      // slots:<doctor_id>:<YYYY-MM-DD>
	CallbackBook              = "book:"       // book:<doctor_id>:<unix>
	CallbackCancelAppointment = "cancel_apt:" // cancel_apt:<appointment_id>
	CallbackNoop              = "noop"
)

var errBadCallback = errors.New("invalid callback data format")

func slotsCallback(doctorID string, date time.Time) string {
	return CallbackSlots + doctorID + ":" + date.Format(time.DateOnly)
}

func bookCallback(doctorID string, at time.Time) string {
	return fmt.Sprintf("%s%s:%d", CallbackBook, doctorID, at.Unix())
}

func cancelCallback(id uuid.UUID) string {
	return CallbackCancelAppointment + id.String()
}

// splitPair разбирает "<prefix><a>:<b>"
func splitPair(data, prefix string) (string, string, error) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return "", "", errBadCallback
	}
	a, b, ok := strings.Cut(rest, ":")
	if !ok || a == "" || b == "" {
		return "", "", errBadCallback
	}
	return a, b, nil
}

func parseSlotsCallback(data string, loc *time.Location) (string, time.Time, error) {
	doctorID, raw, err := splitPair(data, CallbackSlots)
	if err != nil {
		return "", time.Time{}, err
	}
	date, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse date: %w", err)
	}
	return doctorID, date, nil
}

func parseBookCallback(data string, loc *time.Location) (string, time.Time, error) {
	doctorID, raw, err := splitPair(data, CallbackBook)
	if err != nil {
		return "", time.Time{}, err
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("parse slot time: %w", err)
	}
	return doctorID, time.Unix(unix, 0).In(loc), nil
}

func parseCancelCallback(data string) (uuid.UUID, error) {
	raw, ok := strings.CutPrefix(data, CallbackCancelAppointment)
	if !ok {
		return uuid.Nil, errBadCallback
	}
	return uuid.Parse(raw)
}

// parseSlotsCommand разбирает "/slots <doctor_id> [YYYY-MM-DD]". Без даты - сегодня
func parseSlotsCommand(text string, today time.Time) (string, time.Time, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 || len(fields) > 3 {
		return "", time.Time{}, errors.New("формат команды: /slots <id врача> [ГГГГ-ММ-ДД]")
	}

	doctorID := fields[1]
	if _, err := uuid.Parse(doctorID); err != nil {
		return "", time.Time{}, fmt.Errorf("некорректный id врача %q", doctorID)
	}

	if len(fields) == 2 {
		return doctorID, today, nil
	}
	date, err := time.ParseInLocation(time.DateOnly, fields[2], today.Location())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("дата должна быть в формате ГГГГ-ММ-ДД, получено %q", fields[2])
	}
	return doctorID, date, nil
}
