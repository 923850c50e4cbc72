package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository/base"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const appointmentsTable = "appointments"

// ErrSlotTaken онлайн-слот врача уже занят другой активной записью
var ErrSlotTaken = errors.New("slot already taken")

var appointmentColumns = []interface{}{
	"id",
	"patient_id",
	goqu.L("COALESCE(doctor_id::text, '')"),
	"type",
	"scheduled_at",
	"status",
	"payment_status",
	goqu.L("COALESCE(clinic, '')"),
	goqu.L("COALESCE(symptoms, '')"),
	goqu.L("COALESCE(location, '')"),
	"created_at",
	"updated_at",
}

// AppointmentFilter фильтр списка записей, пустые поля не применяются
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	Status    model.AppointmentStatus
	From      time.Time
	To        time.Time
	Limit     uint
}

type AppointmentRepository struct {
	db *base.Repository
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{db: base.NewRepository(pool)}
}

// ListForDoctor активные (не отменённые) записи врача с scheduled_at в [from, to]
func (r *AppointmentRepository) ListForDoctor(ctx context.Context, doctorID string, from, to time.Time) ([]model.Appointment, error) {
	id, err := uuid.Parse(doctorID)
	if err != nil {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, doctorRangeQuery(id, from, to))
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// Create создаёт запись. Занятый онлайн-слот возвращает ErrSlotTaken
func (r *AppointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	now := time.Now()
	apt.CreatedAt = now
	apt.UpdatedAt = now

	_, err := r.db.ExecAffected(ctx, insertAppointmentQuery(apt))
	if err != nil {
		if base.IsUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID, nil если не найдена
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := base.Dialect().
		From(appointmentsTable).
		Select(appointmentColumns...).
		Where(goqu.Ex{"id": id.String()}).
		Prepared(true)

	apt, err := scanAppointment(r.db.QueryRow(ctx, query))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return apt, nil
}

// UpdateStatus меняет статус записи. false - записи нет
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) (bool, error) {
	affected, err := r.db.ExecAffected(ctx, updateAppointmentQuery(id, goqu.Record{"status": string(status)}))
	if err != nil {
		if base.IsUniqueViolation(err) {
			return false, ErrSlotTaken
		}
		return false, fmt.Errorf("update appointment status: %w", err)
	}
	return affected > 0, nil
}

// UpdatePaymentStatus меняет статус оплаты. false - записи нет
func (r *AppointmentRepository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, status model.PaymentStatus) (bool, error) {
	affected, err := r.db.ExecAffected(ctx, updateAppointmentQuery(id, goqu.Record{"payment_status": string(status)}))
	if err != nil {
		return false, fmt.Errorf("update appointment payment status: %w", err)
	}
	return affected > 0, nil
}

// List записи по фильтру, отсортированные по времени приёма
func (r *AppointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]model.Appointment, error) {
	query, ok := listAppointmentsQuery(filter)
	if !ok {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

func doctorRangeQuery(doctorID uuid.UUID, from, to time.Time) *goqu.SelectDataset {
	return base.Dialect().
		From(appointmentsTable).
		Select(appointmentColumns...).
		Where(
			goqu.C("doctor_id").Eq(doctorID.String()),
			goqu.C("scheduled_at").Gte(from),
			goqu.C("scheduled_at").Lte(to),
			goqu.C("status").Neq(string(model.AppointmentStatusCancelled)),
		).
		Order(goqu.C("scheduled_at").Asc()).
		Prepared(true)
}

func insertAppointmentQuery(apt *model.Appointment) *goqu.InsertDataset {
	var doctorID interface{}
	if apt.DoctorID != "" {
		doctorID = apt.DoctorID
	}

	return base.Dialect().
		Insert(appointmentsTable).
		Rows(goqu.Record{
			"id":             apt.ID.String(),
			"patient_id":     apt.PatientID,
			"doctor_id":      doctorID,
			"type":           string(apt.Type),
			"scheduled_at":   apt.ScheduledAt,
			"status":         string(apt.Status),
			"payment_status": string(apt.PaymentStatus),
			"clinic":         nullIfEmpty(apt.Clinic),
			"symptoms":       nullIfEmpty(apt.Symptoms),
			"location":       nullIfEmpty(apt.Location),
			"created_at":     apt.CreatedAt,
			"updated_at":     apt.UpdatedAt,
		}).
		Prepared(true)
}

func updateAppointmentQuery(id uuid.UUID, set goqu.Record) *goqu.UpdateDataset {
	set["updated_at"] = time.Now()
	return base.Dialect().
		Update(appointmentsTable).
		Set(set).
		Where(goqu.Ex{"id": id.String()}).
		Prepared(true)
}

// listAppointmentsQuery ok=false если фильтр заведомо ничего не найдёт
func listAppointmentsQuery(filter AppointmentFilter) (*goqu.SelectDataset, bool) {
	query := base.Dialect().
		From(appointmentsTable).
		Select(appointmentColumns...).
		Order(goqu.C("scheduled_at").Asc()).
		Prepared(true)

	if filter.DoctorID != "" {
		id, err := uuid.Parse(filter.DoctorID)
		if err != nil {
			return nil, false
		}
		query = query.Where(goqu.C("doctor_id").Eq(id.String()))
	}
	if filter.PatientID != "" {
		query = query.Where(goqu.C("patient_id").Eq(filter.PatientID))
	}
	if filter.Status != "" {
		query = query.Where(goqu.C("status").Eq(string(filter.Status)))
	}
	if !filter.From.IsZero() {
		query = query.Where(goqu.C("scheduled_at").Gte(filter.From))
	}
	if !filter.To.IsZero() {
		query = query.Where(goqu.C("scheduled_at").Lte(filter.To))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	return query, true
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var apt model.Appointment
	err := row.Scan(
		&apt.ID,
		&apt.PatientID,
		&apt.DoctorID,
		&apt.Type,
		&apt.ScheduledAt,
		&apt.Status,
		&apt.PaymentStatus,
		&apt.Clinic,
		&apt.Symptoms,
		&apt.Location,
		&apt.CreatedAt,
		&apt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &apt, nil
}

func scanAppointments(rows pgx.Rows) ([]model.Appointment, error) {
	var appointments []model.Appointment
	for rows.Next() {
		apt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, *apt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appointments, nil
}
