package complaint

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const complaintCols = `id, user_id, related_appointment_id, subject, description,
	complaint_status, created_at, updated_at`

func scanComplaint(row pgx.Row) (*Complaint, error) {
	var c Complaint
	err := row.Scan(&c.ID, &c.UserID, &c.RelatedAppointmentID, &c.Subject,
		&c.Description, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return &c, nil
}

func (r *repoPG) Create(ctx context.Context, c *Complaint) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO complaints (id, user_id, related_appointment_id, subject, description, complaint_status)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.ID, c.UserID, c.RelatedAppointmentID, c.Subject, c.Description, c.Status)
	return errs.FromPG(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Complaint, error) {
	return scanComplaint(r.conn(ctx).QueryRow(ctx,
		`SELECT `+complaintCols+` FROM complaints WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, c *Complaint) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE complaints SET subject = $2, description = $3, updated_at = now()
		WHERE id = $1`,
		c.ID, c.Subject, c.Description)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE complaints SET complaint_status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM complaints WHERE id = $1`, id)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Complaint, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM complaints`+where, args...).Scan(&total); err != nil {
		return nil, 0, errs.FromPG(err)
	}

	pageQ := fmt.Sprintf(`SELECT %s FROM complaints%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		complaintCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, pageQ, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errs.FromPG(err)
	}
	defer rows.Close()

	var result []*Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, c)
	}
	return result, total, rows.Err()
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Complaint, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *repoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Complaint, int, error) {
	return r.list(ctx, ` WHERE user_id = $1`, []interface{}{userID}, limit, offset)
}

func (r *repoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Complaint, int, error) {
	return r.list(ctx, ` WHERE complaint_status = $1`, []interface{}{status}, limit, offset)
}

func (r *repoPG) AppointmentExists(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, appointmentID).Scan(&exists)
	if err != nil {
		return false, errs.FromPG(err)
	}
	return exists, nil
}
