package repository

import (
	"context"
	"fmt"

	"github.com/carelink/patient-portal/internal/model"
	"github.com/carelink/patient-portal/internal/repository/base"
	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var doctorColumns = []interface{}{
	goqu.L("id::text"),
	"full_name",
	goqu.L("COALESCE(specialty, '')"),
	"telegram_chat_id",
}

type DoctorRepository struct {
	db *base.Repository
}

func NewDoctorRepository(pool *pgxpool.Pool) *DoctorRepository {
	return &DoctorRepository{db: base.NewRepository(pool)}
}

// GetByID получает врача по ID, nil если не найден
func (r *DoctorRepository) GetByID(ctx context.Context, id string) (*model.Doctor, error) {
	doctorID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	query := base.Dialect().
		From("doctors").
		Select(doctorColumns...).
		Where(goqu.Ex{"id": doctorID.String()}).
		Prepared(true)

	doctor, err := scanDoctor(r.db.QueryRow(ctx, query))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get doctor by id: %w", err)
	}

	return doctor, nil
}

// List все врачи по алфавиту
func (r *DoctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	query := base.Dialect().
		From("doctors").
		Select(doctorColumns...).
		Order(goqu.C("full_name").Asc()).
		Prepared(true)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var doctors []*model.Doctor
	for rows.Next() {
		doctor, err := scanDoctor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan doctor: %w", err)
		}
		doctors = append(doctors, doctor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate doctors: %w", err)
	}

	return doctors, nil
}

func scanDoctor(row pgx.Row) (*model.Doctor, error) {
	var d model.Doctor
	if err := row.Scan(&d.ID, &d.FullName, &d.Specialty, &d.TelegramChatID); err != nil {
		return nil, err
	}
	return &d, nil
}
