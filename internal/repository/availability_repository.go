package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository/base"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const availabilityTable = "doctor_availability"

var availabilityColumns = []interface{}{
	"id",
	goqu.L("doctor_id::text"),
	"day_of_week",
	goqu.L("start_time::text"),
	goqu.L("end_time::text"),
	"created_at",
	"updated_at",
}

type AvailabilityRepository struct {
	db *base.Repository
}

func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{db: base.NewRepository(pool)}
}

// ListWindows окна приёма врача на день недели ("monday" и т.д.).
// Для id, который не является UUID, врача быть не может - возвращаем пустой список
func (r *AvailabilityRepository) ListWindows(ctx context.Context, doctorID string, dayOfWeek string) ([]model.AvailabilityWindow, error) {
	id, err := uuid.Parse(doctorID)
	if err != nil {
		return nil, nil
	}

	rows, err := r.db.Query(ctx, windowsByDayQuery(id, dayOfWeek))
	if err != nil {
		return nil, fmt.Errorf("list availability windows: %w", err)
	}
	defer rows.Close()

	return scanWindows(rows)
}

// ListByDoctor все окна врача, отсортированные по дню недели и времени начала
func (r *AvailabilityRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]model.AvailabilityWindow, error) {
	rows, err := r.db.Query(ctx, windowsByDoctorQuery(doctorID))
	if err != nil {
		return nil, fmt.Errorf("list doctor availability: %w", err)
	}
	defer rows.Close()

	windows, err := scanWindows(rows)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(windows, func(i, j int) bool {
		if windows[i].DayOfWeek != windows[j].DayOfWeek {
			return windows[i].DayOfWeek < windows[j].DayOfWeek
		}
		return windows[i].StartTime < windows[j].StartTime
	})
	return windows, nil
}

// ReplaceDay заменяет все окна врача на день недели в одной транзакции
func (r *AvailabilityRepository) ReplaceDay(ctx context.Context, doctorID uuid.UUID, day model.Weekday, windows []model.AvailabilityWindow) ([]model.AvailabilityWindow, error) {
	now := time.Now()
	created := make([]model.AvailabilityWindow, 0, len(windows))
	for _, w := range windows {
		created = append(created, model.AvailabilityWindow{
			ID:        uuid.New(),
			DoctorID:  doctorID.String(),
			DayOfWeek: day,
			StartTime: w.StartTime,
			EndTime:   w.EndTime,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := base.ExecTx(ctx, tx, deleteDayQuery(doctorID, day)); err != nil {
			return fmt.Errorf("delete day windows: %w", err)
		}
		if len(created) == 0 {
			return nil
		}
		if _, err := base.ExecTx(ctx, tx, insertWindowsQuery(created)); err != nil {
			return fmt.Errorf("insert day windows: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replace availability day: %w", err)
	}

	return created, nil
}

// Delete удаляет окно и возвращает id врача, которому оно принадлежало.
// Пустая строка - окна не было
func (r *AvailabilityRepository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	var doctorID string
	err := r.db.QueryRow(ctx, deleteWindowQuery(id)).Scan(&doctorID)
	if err != nil {
		if base.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("delete availability window: %w", err)
	}
	return doctorID, nil
}

// ListDoctorIDs врачи, у которых задано хотя бы одно окно приёма
func (r *AvailabilityRepository) ListDoctorIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, doctorIDsQuery())
	if err != nil {
		return nil, fmt.Errorf("list doctors with availability: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan doctor id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doctor ids: %w", err)
	}
	return ids, nil
}

func windowsByDayQuery(doctorID uuid.UUID, dayOfWeek string) *goqu.SelectDataset {
	return base.Dialect().
		From(availabilityTable).
		Select(availabilityColumns...).
		Where(goqu.Ex{
			"doctor_id":   doctorID.String(),
			"day_of_week": dayOfWeek,
		}).
		Order(goqu.C("start_time").Asc()).
		Prepared(true)
}

func windowsByDoctorQuery(doctorID uuid.UUID) *goqu.SelectDataset {
	return base.Dialect().
		From(availabilityTable).
		Select(availabilityColumns...).
		Where(goqu.Ex{"doctor_id": doctorID.String()}).
		Prepared(true)
}

func deleteDayQuery(doctorID uuid.UUID, day model.Weekday) *goqu.DeleteDataset {
	return base.Dialect().
		Delete(availabilityTable).
		Where(goqu.Ex{
			"doctor_id":   doctorID.String(),
			"day_of_week": day.String(),
		}).
		Prepared(true)
}

func insertWindowsQuery(windows []model.AvailabilityWindow) *goqu.InsertDataset {
	rows := make([]interface{}, 0, len(windows))
	for _, w := range windows {
		rows = append(rows, goqu.Record{
			"id":          w.ID.String(),
			"doctor_id":   w.DoctorID,
			"day_of_week": w.DayOfWeek.String(),
			"start_time":  goqu.L("CAST(? AS TIME)", w.StartTime),
			"end_time":    goqu.L("CAST(? AS TIME)", w.EndTime),
			"created_at":  w.CreatedAt,
			"updated_at":  w.UpdatedAt,
		})
	}
	return base.Dialect().
		Insert(availabilityTable).
		Rows(rows...).
		Prepared(true)
}

func deleteWindowQuery(id uuid.UUID) *goqu.DeleteDataset {
	return base.Dialect().
		Delete(availabilityTable).
		Where(goqu.Ex{"id": id.String()}).
		Returning(goqu.L("doctor_id::text")).
		Prepared(true)
}

func doctorIDsQuery() *goqu.SelectDataset {
	return base.Dialect().
		From(availabilityTable).
		Select(goqu.L("doctor_id::text")).
		Distinct().
		Prepared(true)
}

func scanWindows(rows pgx.Rows) ([]model.AvailabilityWindow, error) {
	var windows []model.AvailabilityWindow
	for rows.Next() {
		var (
			w   model.AvailabilityWindow
			day string
		)
		err := rows.Scan(
			&w.ID,
			&w.DoctorID,
			&day,
			&w.StartTime,
			&w.EndTime,
			&w.CreatedAt,
			&w.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		w.DayOfWeek, err = model.ParseWeekday(day)
		if err != nil {
			return nil, fmt.Errorf("scan availability window: %w", err)
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availability windows: %w", err)
	}
	return windows, nil
}
