package emergency

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

type callRepoPG struct{ pool *pgxpool.Pool }

func NewCallRepoPG(pool *pgxpool.Pool) CallRepository { return &callRepoPG{pool: pool} }

func (r *callRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const callCols = `id, patient_id, description, vitals, severity, COALESCE(medical_report_summary, ''),
	triage_priority, COALESCE(ai_response, ''), source, is_assigned, assigned_doctor,
	created_at, updated_at`

func (r *callRepoPG) scanCall(row pgx.Row) (*Call, error) {
	var c Call
	err := row.Scan(&c.ID, &c.PatientID, &c.Description, &c.Vitals, &c.Severity, &c.MedicalReportSummary,
		&c.TriagePriority, &c.AIResponse, &c.Source, &c.IsAssigned, &c.AssignedDoctor,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("emergency call not found")
	}
	if err != nil {
		return nil, apperr.Persistence("scan emergency call", err)
	}
	return &c, nil
}

func (r *callRepoPG) Create(ctx context.Context, c *Call) error {
	c.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO emergency_calls (id, patient_id, description, vitals, severity,
			medical_report_summary, triage_priority, ai_response, source)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`,
		c.ID, c.PatientID, c.Description, c.Vitals, c.Severity,
		c.MedicalReportSummary, c.TriagePriority, c.AIResponse, c.Source).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return apperr.Persistence("insert emergency call", err)
	}
	return nil
}

func (r *callRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Call, error) {
	return r.scanCall(r.conn(ctx).QueryRow(ctx, `SELECT `+callCols+` FROM emergency_calls WHERE id = $1`, id))
}

func (r *callRepoPG) List(ctx context.Context, page pagination.Params) ([]*Call, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+callCols+` FROM emergency_calls ORDER BY created_at DESC, id `+page.SQL())
	if err != nil {
		return nil, apperr.Persistence("list emergency calls", err)
	}
	defer rows.Close()
	items := []*Call{}
	for rows.Next() {
		c, err := r.scanCall(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list emergency calls", err)
	}
	return items, nil
}

func (r *callRepoPG) MarkAssigned(ctx context.Context, id, doctorID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE emergency_calls SET is_assigned = TRUE, assigned_doctor = $2, updated_at = NOW()
		WHERE id = $1 AND is_assigned = FALSE`, id, doctorID)
	if err != nil {
		return false, apperr.Persistence("mark emergency call assigned", err)
	}
	return tag.RowsAffected() == 1, nil
}
