package reports

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

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository {
	return &reportRepoPG{pool: pool}
}

func (r *reportRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const reportCols = `id, user_id, patient_name, report_type, file_name, content_type, size,
	storage_key, has_summary, COALESCE(summary, ''), created_at, updated_at`

func (r *reportRepoPG) scanReport(row pgx.Row) (*Report, error) {
	var rp Report
	err := row.Scan(&rp.ID, &rp.UserID, &rp.PatientName, &rp.ReportType, &rp.FileName,
		&rp.ContentType, &rp.Size, &rp.StorageKey, &rp.HasSummary, &rp.Summary,
		&rp.CreatedAt, &rp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("report not found")
	}
	if err != nil {
		return nil, apperr.Persistence("scan report", err)
	}
	return &rp, nil
}

func (r *reportRepoPG) Create(ctx context.Context, rp *Report) error {
	if rp.ID == uuid.Nil {
		rp.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO reports (id, user_id, patient_name, report_type, file_name, content_type,
			size, storage_key)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at, updated_at`,
		rp.ID, rp.UserID, rp.PatientName, rp.ReportType, rp.FileName, rp.ContentType,
		rp.Size, rp.StorageKey).Scan(&rp.CreatedAt, &rp.UpdatedAt)
	if err != nil {
		return apperr.Persistence("insert report", err)
	}
	return nil
}

func (r *reportRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	return r.scanReport(r.conn(ctx).QueryRow(ctx, `SELECT `+reportCols+` FROM reports WHERE id = $1`, id))
}

func (r *reportRepoPG) query(ctx context.Context, sql string, args ...interface{}) ([]*Report, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Persistence("list reports", err)
	}
	defer rows.Close()
	items := []*Report{}
	for rows.Next() {
		rp, err := r.scanReport(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, rp)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list reports", err)
	}
	return items, nil
}

func (r *reportRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, page pagination.Params) ([]*Report, error) {
	return r.query(ctx, `SELECT `+reportCols+` FROM reports WHERE user_id = $1
		ORDER BY created_at DESC, id `+page.SQL(), userID)
}

func (r *reportRepoPG) ListAll(ctx context.Context, page pagination.Params) ([]*Report, error) {
	return r.query(ctx, `SELECT `+reportCols+` FROM reports ORDER BY created_at DESC, id `+page.SQL())
}

func (r *reportRepoPG) SetSummary(ctx context.Context, id uuid.UUID, summary string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE reports SET summary = $2, has_summary = TRUE, updated_at = NOW()
		WHERE id = $1`, id, summary)
	if err != nil {
		return apperr.Persistence("store report summary", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("report not found")
	}
	return nil
}

func (r *reportRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return apperr.Persistence("delete report", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("report not found")
	}
	return nil
}
