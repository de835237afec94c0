package billing

import (
	"context"
	"time"

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

const paymentCols = `id, appointment_id, amount::text, payment_status,
	transaction_id, payment_method, payment_date, created_at, updated_at`

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.AppointmentID, &p.Amount, &p.Status, &p.TransactionID,
		&p.PaymentMethod, &p.PaymentDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return &p, nil
}

func (r *repoPG) InsertIfAbsent(ctx context.Context, p *Payment) (bool, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	tag, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO payments (id, appointment_id, amount, payment_status,
			transaction_id, payment_method, payment_date)
		VALUES ($1,$2,$3::numeric,$4,$5,$6,$7)
		ON CONFLICT (transaction_id) WHERE transaction_id IS NOT NULL DO NOTHING`,
		p.ID, p.AppointmentID, p.Amount, p.Status, p.TransactionID,
		p.PaymentMethod, p.PaymentDate)
	if err != nil {
		return false, errs.FromPG(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE id = $1`, id))
}

func (r *repoPG) GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	return scanPayment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE transaction_id = $1`, transactionID))
}

func (r *repoPG) UpdateResult(ctx context.Context, id uuid.UUID, status string, transactionID *string, paidAt *time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE payments
		SET payment_status = $2,
			transaction_id = COALESCE($3, transaction_id),
			payment_date = COALESCE($4, payment_date),
			updated_at = now()
		WHERE id = $1`,
		id, status, transactionID, paidAt)
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
		UPDATE payments SET payment_status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Payment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payments`).Scan(&total); err != nil {
		return nil, 0, errs.FromPG(err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+paymentCols+` FROM payments ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, errs.FromPG(err)
	}
	defer rows.Close()

	var result []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (r *repoPG) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*Payment, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE appointment_id = $1 ORDER BY created_at DESC`,
		appointmentID)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	defer rows.Close()

	var result []*Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *repoPG) AppointmentInfo(ctx context.Context, appointmentID uuid.UUID) (*AppointmentInfo, error) {
	var info AppointmentInfo
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT user_id, total_amount::text, appointment_status
		FROM appointments WHERE id = $1`, appointmentID).
		Scan(&info.OwnerID, &info.Total, &info.Status)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return &info, nil
}
