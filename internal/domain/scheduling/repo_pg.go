package scheduling

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medirespond/medirespond/internal/platform/db"
	"github.com/medirespond/medirespond/pkg/apperr"
	"github.com/medirespond/medirespond/pkg/pagination"
)

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const appointmentCols = `a.id, a.user_id, a.emergency_call_id, a.doctor_id, to_char(a.date, 'YYYY-MM-DD'),
	a.time, a.facility, a.department, a.reason, a.status,
	COALESCE(d.name, ''), COALESCE(p.name, ''), a.created_at, a.updated_at`

const appointmentFrom = ` FROM appointments a
	LEFT JOIN users d ON d.id = a.doctor_id
	LEFT JOIN users p ON p.id = a.user_id`

func (r *appointmentRepoPG) scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.EmergencyCallID, &a.DoctorID, &a.Date,
		&a.Time, &a.Facility, &a.Department, &a.Reason, &a.Status,
		&a.DoctorName, &a.PatientName, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("appointment not found")
	}
	if err != nil {
		return nil, apperr.Persistence("scan appointment", err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, user_id, emergency_call_id, doctor_id, date, time,
			facility, department, reason, status)
		VALUES ($1,$2,$3,$4,$5::date,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		a.ID, a.UserID, a.EmergencyCallID, a.DoctorID, a.Date, a.Time,
		a.Facility, a.Department, a.Reason, a.Status).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return apperr.Persistence("insert appointment", err)
	}
	return nil
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return r.scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+appointmentCols+appointmentFrom+` WHERE a.id = $1`, id))
}

func (r *appointmentRepoPG) list(ctx context.Context, where string, arg uuid.UUID, page pagination.Params) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+appointmentCols+appointmentFrom+
		` WHERE `+where+` = $1 ORDER BY a.date ASC, a.time ASC `+page.SQL(), arg)
	if err != nil {
		return nil, apperr.Persistence("list appointments", err)
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := r.scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list appointments", err)
	}
	return items, nil
}

func (r *appointmentRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]*Appointment, error) {
	return r.list(ctx, "a.user_id", userID, page)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, page pagination.Params) ([]*Appointment, error) {
	return r.list(ctx, "a.doctor_id", doctorID, page)
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, apperr.Persistence("update appointment status", err)
	}
	return tag.RowsAffected() == 1, nil
}
