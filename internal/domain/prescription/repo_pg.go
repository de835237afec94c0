package prescription

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careconnect/careconnect/internal/platform/db"
	"github.com/careconnect/careconnect/internal/platform/errs"
	"github.com/careconnect/careconnect/internal/platform/money"
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

const prescriptionCols = `id, appointment_id, doctor_id, patient_id, notes,
	amount::text, created_at, updated_at`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.AppointmentID, &p.DoctorID, &p.PatientID, &p.Notes,
		&p.Amount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Prescription) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO prescriptions (id, appointment_id, doctor_id, patient_id, notes, amount)
		VALUES ($1,$2,$3,$4,$5,$6::numeric)`,
		p.ID, p.AppointmentID, p.DoctorID, p.PatientID, p.Notes, p.Amount)
	return errs.FromPG(err)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return scanPrescription(r.conn(ctx).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescriptions WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, p *Prescription) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE prescriptions SET notes = $2, amount = $3::numeric, updated_at = now()
		WHERE id = $1`,
		p.ID, p.Notes, p.Amount)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM prescriptions WHERE id = $1`, id)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *repoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM prescriptions`+where, args...).Scan(&total); err != nil {
		return nil, 0, errs.FromPG(err)
	}

	pageQ := fmt.Sprintf(`SELECT %s FROM prescriptions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		prescriptionCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, pageQ, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errs.FromPG(err)
	}
	defer rows.Close()

	var result []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, p)
	}
	return result, total, rows.Err()
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, ` WHERE patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *repoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return r.list(ctx, ` WHERE doctor_id = $1`, []interface{}{doctorID}, limit, offset)
}

func (r *repoPG) AppointmentMeta(ctx context.Context, appointmentID uuid.UUID) (*AppointmentMeta, error) {
	var meta AppointmentMeta
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT user_id, doctor_id FROM appointments WHERE id = $1`, appointmentID).
		Scan(&meta.PatientID, &meta.DoctorID)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return &meta, nil
}

func (r *repoPG) AdjustAppointmentTotal(ctx context.Context, appointmentID uuid.UUID, delta money.Amount) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET total_amount = total_amount + $2::numeric, updated_at = now()
		WHERE id = $1`,
		appointmentID, delta)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
