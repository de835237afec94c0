package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careconnect/careconnect/internal/platform/db"
	"github.com/careconnect/careconnect/internal/platform/errs"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== User Repository ===========

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository { return &userRepoPG{pool: pool} }

func (r *userRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const userCols = `id, first_name, last_name, email, password, contact_phone,
	address, role, image_url, is_verified, verification_code, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.ContactPhone, &u.Address, &u.Role, &u.ImageURL, &u.IsVerified,
		&u.VerificationCode, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO users (id, first_name, last_name, email, password, contact_phone,
			address, role, image_url, is_verified, verification_code)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.ContactPhone,
		u.Address, u.Role, u.ImageURL, u.IsVerified, u.VerificationCode)
	return errs.FromPG(err)
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.conn(ctx).QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE lower(email) = lower($1)`, email))
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE users SET first_name=$2, last_name=$3, contact_phone=$4, address=$5,
			role=$6, image_url=$7, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.ContactPhone, u.Address, u.Role, u.ImageURL)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *userRepoPG) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, errs.FromPG(err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+userCols+` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, errs.FromPG(err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, errs.FromPG(rows.Err())
}

func (r *userRepoPG) SetVerified(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE users SET is_verified = TRUE, verification_code = NULL, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// =========== Doctor Repository ===========

type doctorRepoPG struct{ pool *pgxpool.Pool }

func NewDoctorRepoPG(pool *pgxpool.Pool) DoctorRepository { return &doctorRepoPG{pool: pool} }

func (r *doctorRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *doctorRepoPG) Upsert(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctors (user_id, specialization, available_days, rating, experience, patients)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id) DO UPDATE SET
			specialization = EXCLUDED.specialization,
			available_days = EXCLUDED.available_days,
			rating = COALESCE(EXCLUDED.rating, doctors.rating),
			experience = COALESCE(EXCLUDED.experience, doctors.experience),
			patients = COALESCE(EXCLUDED.patients, doctors.patients),
			updated_at = NOW()`,
		d.UserID, d.Specialization, d.AvailableDays, d.Rating, d.Experience, d.Patients)
	return errs.FromPG(err)
}

func (r *doctorRepoPG) Get(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT user_id, specialization, available_days, rating, experience, patients, created_at, updated_at
		FROM doctors WHERE user_id = $1`, userID).
		Scan(&d.UserID, &d.Specialization, &d.AvailableDays, &d.Rating, &d.Experience,
			&d.Patients, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return &d, nil
}

func (r *doctorRepoPG) Delete(ctx context.Context, userID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctors WHERE user_id = $1`, userID)
	return errs.FromPG(err)
}

const profileCols = `d.user_id, u.first_name, u.last_name, u.email, u.contact_phone,
	u.image_url, d.specialization, d.available_days, d.rating, d.experience, d.patients`

func scanProfile(row pgx.Row) (*DoctorProfile, error) {
	var p DoctorProfile
	err := row.Scan(&p.UserID, &p.FirstName, &p.LastName, &p.Email, &p.ContactPhone,
		&p.ImageURL, &p.Specialization, &p.AvailableDays, &p.Rating, &p.Experience, &p.Patients)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return &p, nil
}

func (r *doctorRepoPG) listProfiles(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*DoctorProfile, int, error) {
	countQuery := `SELECT COUNT(*) FROM doctors d JOIN users u ON u.id = d.user_id ` + where
	var total int
	if err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errs.FromPG(err)
	}

	query := `SELECT ` + profileCols + ` FROM doctors d JOIN users u ON u.id = d.user_id ` + where +
		` ORDER BY u.last_name, u.first_name LIMIT ` + placeholder(len(args)+1) + ` OFFSET ` + placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errs.FromPG(err)
	}
	defer rows.Close()

	var profiles []*DoctorProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, p)
	}
	return profiles, total, errs.FromPG(rows.Err())
}

func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (r *doctorRepoPG) ListProfiles(ctx context.Context, limit, offset int) ([]*DoctorProfile, int, error) {
	return r.listProfiles(ctx, "", nil, limit, offset)
}

func (r *doctorRepoPG) ListProfilesBySpecialization(ctx context.Context, specialization string, limit, offset int) ([]*DoctorProfile, int, error) {
	return r.listProfiles(ctx, `WHERE lower(d.specialization) = lower($1)`, []interface{}{specialization}, limit, offset)
}

func (r *doctorRepoPG) GetProfile(ctx context.Context, userID uuid.UUID) (*DoctorProfile, error) {
	return scanProfile(r.conn(ctx).QueryRow(ctx, `
		SELECT `+profileCols+` FROM doctors d JOIN users u ON u.id = d.user_id
		WHERE d.user_id = $1`, userID))
}

func (r *doctorRepoPG) AvailableDays(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var days []string
	err := r.conn(ctx).QueryRow(ctx, `SELECT available_days FROM doctors WHERE user_id = $1`, userID).Scan(&days)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return days, nil
}
