package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository"
	"github.com/carelink/patient-portal/internal/service"
	"github.com/carelink/patient-portal/internal/slots"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type slotsResponse struct {
	DoctorID string   `json:"doctor_id"`
	Date     string   `json:"date"`
	Slots    []string `json:"slots"`
	Degraded bool     `json:"degraded"`
	Failures []string `json:"failures,omitempty"`
}

type bookRequest struct {
	DoctorID    string     `json:"doctor_id" binding:"omitempty,uuid"`
	Type        string     `json:"type" binding:"required,oneof=online hospital home"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Clinic      string     `json:"clinic" binding:"max=200"`
	Symptoms    string     `json:"symptoms" binding:"max=2000"`
	Location    string     `json:"location" binding:"max=500"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending confirmed completed cancelled"`
}

type setDayRequest struct {
	Windows []service.TimeRange `json:"windows"`
}

// GetSlots GET /api/doctors/:id/slots?date=YYYY-MM-DD
func (h *Handler) GetSlots(c *gin.Context) {
	doctorID := c.Param("id")

	raw := c.Query("date")
	if raw == "" {
		badRequest(c, "date is required")
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, raw, h.loc)
	if err != nil {
		badRequest(c, "date must be YYYY-MM-DD")
		return
	}

	result := h.booking.GetAvailableSlots(c.Request.Context(), doctorID, date)
	c.JSON(http.StatusOK, toSlotsResponse(result, date))
}

func toSlotsResponse(result slots.Result, date time.Time) slotsResponse {
	resp := slotsResponse{
		DoctorID: result.DoctorID,
		Date:     date.Format(time.DateOnly),
		Slots:    result.ISO(),
		Degraded: result.Degraded,
	}
	for _, f := range result.Failures {
		resp.Failures = append(resp.Failures, string(f.Source))
	}
	return resp
}

// ListDoctors GET /api/doctors
func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.booking.ListDoctors(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if doctors == nil {
		doctors = []*model.Doctor{}
	}
	c.JSON(http.StatusOK, gin.H{"doctors": doctors})
}

// ListAvailability GET /api/doctors/:id/availability
func (h *Handler) ListAvailability(c *gin.Context) {
	windows, err := h.availability.ListWindows(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if windows == nil {
		windows = []model.AvailabilityWindow{}
	}
	c.JSON(http.StatusOK, gin.H{"windows": windows})
}

// SetAvailabilityDay PUT /api/doctors/:id/availability/:day
func (h *Handler) SetAvailabilityDay(c *gin.Context) {
	day, err := model.ParseWeekday(c.Param("day"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	var req setDayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	windows, err := h.availability.SetDay(c.Request.Context(), c.Param("id"), day, req.Windows)
	if err != nil {
		h.fail(c, err)
		return
	}
	if windows == nil {
		windows = []model.AvailabilityWindow{}
	}
	c.JSON(http.StatusOK, gin.H{"windows": windows})
}

// DeleteAvailabilityWindow DELETE /api/availability/:id
func (h *Handler) DeleteAvailabilityWindow(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	if err := h.availability.DeleteWindow(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// BookAppointment POST /api/appointments
func (h *Handler) BookAppointment(c *gin.Context) {
	var req bookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	booking := service.BookingRequest{
		PatientID: c.GetHeader(userHeader),
		DoctorID:  req.DoctorID,
		Type:      model.AppointmentType(req.Type),
		Clinic:    req.Clinic,
		Symptoms:  req.Symptoms,
		Location:  req.Location,
	}
	if req.ScheduledAt != nil {
		booking.ScheduledAt = *req.ScheduledAt
	}

	apt, err := h.booking.BookAppointment(c.Request.Context(), booking)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, apt)
}

// ListAppointments GET /api/appointments?doctor_id&patient_id&status&from&to&limit
func (h *Handler) ListAppointments(c *gin.Context) {
	filter := repository.AppointmentFilter{
		DoctorID:  c.Query("doctor_id"),
		PatientID: c.Query("patient_id"),
		Status:    model.AppointmentStatus(c.Query("status")),
	}

	var err error
	if filter.From, err = parseBound(c.Query("from"), h.loc, false); err != nil {
		badRequest(c, "from: "+err.Error())
		return
	}
	if filter.To, err = parseBound(c.Query("to"), h.loc, true); err != nil {
		badRequest(c, "to: "+err.Error())
		return
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			badRequest(c, "limit must be a positive number")
			return
		}
		filter.Limit = uint(limit)
	}

	apts, err := h.booking.ListAppointments(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}
	if apts == nil {
		apts = []model.Appointment{}
	}
	c.JSON(http.StatusOK, gin.H{"appointments": apts})
}

// UpdateStatus PATCH /api/appointments/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	apt, err := h.booking.UpdateStatus(c.Request.Context(), id, model.AppointmentStatus(req.Status))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

// CancelAppointment POST /api/appointments/:id/cancel
func (h *Handler) CancelAppointment(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	apt, err := h.booking.CancelAppointment(c.Request.Context(), id, c.GetHeader(userHeader))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

// MarkPaid POST /api/appointments/:id/paid
func (h *Handler) MarkPaid(c *gin.Context) {
	id, ok := pathUUID(c)
	if !ok {
		return
	}

	apt, err := h.booking.MarkPaid(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, apt)
}

// fail переводит ошибку сервиса в HTTP-статус
func (h *Handler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrSlotUnavailable):
		status = http.StatusConflict
	}

	_ = c.Error(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func pathUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseBound разбирает границу диапазона: RFC 3339 или YYYY-MM-DD.
// Для верхней границы дата означает конец дня
func parseBound(raw string, loc *time.Location, upper bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD, got %q", raw)
	}
	if upper {
		return slots.EndOfDay(day), nil
	}
	return day, nil
}
