package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medirespond/medirespond/internal/platform/db"
	"github.com/medirespond/medirespond/pkg/apperr"
)

const uniqueViolation = "23505"

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const userCols = `id, name, email, password_hash, COALESCE(phone, ''), COALESCE(address, ''),
	COALESCE(pincode, ''), location, COALESCE(age, 0), COALESCE(gender, ''),
	chronic_conditions, allergies, current_medications, COALESCE(blood_type, ''),
	emergency_contacts, role, COALESCE(department, ''), created_at, updated_at`

func (r *userRepoPG) scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Address,
		&u.Pincode, &u.Location, &u.Age, &u.Gender,
		&u.ChronicConditions, &u.Allergies, &u.CurrentMedications, &u.BloodType,
		&u.EmergencyContacts, &u.Role, &u.Department, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Persistence("scan user", err)
	}
	return &u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	u.normalize()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, phone, address, pincode, location,
			age, gender, chronic_conditions, allergies, current_medications, blood_type,
			emergency_contacts, role, department)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash, nullable(u.Phone), nullable(u.Address), nullable(u.Pincode), u.Location,
		u.Age, nullable(u.Gender), u.ChronicConditions, u.Allergies, u.CurrentMedications, nullable(u.BloodType),
		u.EmergencyContacts, u.Role, nullable(u.Department)).Scan(&u.CreatedAt, &u.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Validation("user already exists")
	}
	if err != nil {
		return apperr.Persistence("insert user", err)
	}
	return nil
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, NormalizeEmail(email)))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	u.normalize()
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE users SET name=$2, phone=$3, address=$4, pincode=$5, location=$6, age=$7,
			gender=$8, chronic_conditions=$9, allergies=$10, current_medications=$11,
			blood_type=$12, emergency_contacts=$13, department=$14, updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		u.ID, u.Name, nullable(u.Phone), nullable(u.Address), nullable(u.Pincode), u.Location, u.Age,
		nullable(u.Gender), u.ChronicConditions, u.Allergies, u.CurrentMedications,
		nullable(u.BloodType), u.EmergencyContacts, nullable(u.Department)).Scan(&u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.NotFound("user not found")
	}
	if err != nil {
		return apperr.Persistence("update user", err)
	}
	return nil
}

func (r *userRepoPG) ListByRole(ctx context.Context, role string) ([]*User, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+userCols+` FROM users WHERE role = $1 ORDER BY name ASC`, role)
	if err != nil {
		return nil, apperr.Persistence("list users", err)
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Persistence("list users", err)
	}
	return items, nil
}
