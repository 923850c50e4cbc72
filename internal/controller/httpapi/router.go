package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository"
	"github.com/carelink/patient-portal/internal/service"
	"github.com/carelink/patient-portal/internal/slots"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	GetAvailableSlots(ctx context.Context, doctorID string, date time.Time) slots.Result
	BookAppointment(ctx context.Context, req service.BookingRequest) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error)
	CancelAppointment(ctx context.Context, id uuid.UUID, patientID string) (*model.Appointment, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListAppointments(ctx context.Context, filter repository.AppointmentFilter) ([]model.Appointment, error)
	ListDoctors(ctx context.Context) ([]*model.Doctor, error)
}

type AvailabilityService interface {
	ListWindows(ctx context.Context, doctorID string) ([]model.AvailabilityWindow, error)
	SetDay(ctx context.Context, doctorID string, day model.Weekday, ranges []service.TimeRange) ([]model.AvailabilityWindow, error)
	DeleteWindow(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	booking      BookingService
	availability AvailabilityService
	loc          *time.Location
	logger       *zap.Logger
}

func NewHandler(booking BookingService, availability AvailabilityService, loc *time.Location, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{
		booking:      booking,
		availability: availability,
		loc:          loc,
		logger:       logger,
	}
}

// NewRouter собирает gin-движок со всеми маршрутами
func NewRouter(h *Handler, logger *zap.Logger, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(Recovery(logger), RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	doctors := api.Group("/doctors")
	{
		doctors.GET("", h.ListDoctors)
		doctors.GET("/:id/slots", h.GetSlots)
		doctors.GET("/:id/availability", h.ListAvailability)
		doctors.PUT("/:id/availability/:day", h.SetAvailabilityDay)
	}

	api.DELETE("/availability/:id", h.DeleteAvailabilityWindow)

	appointments := api.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.POST("", RequireUser(), h.BookAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.POST("/:id/cancel", RequireUser(), h.CancelAppointment)
		appointments.POST("/:id/paid", h.MarkPaid)
	}

	return r
}
