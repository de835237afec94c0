package scheduling

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

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const appointmentCols = `id, user_id, doctor_id, appointment_date::text,
	time_slot::text, total_amount::text, appointment_status, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.UserID, &a.DoctorID, &a.AppointmentDate, &a.TimeSlot,
		&a.TotalAmount, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointments (id, user_id, doctor_id, appointment_date, time_slot,
			total_amount, appointment_status)
		VALUES ($1,$2,$3,$4::date,$5::time,$6::numeric,$7)`,
		a.ID, a.UserID, a.DoctorID, a.AppointmentDate, a.TimeSlot, a.TotalAmount, a.Status)
	return errs.FromPG(err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+appointmentCols+` FROM appointments WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments
		SET doctor_id = $2, appointment_date = $3::date, time_slot = $4::time,
			total_amount = $5::numeric, appointment_status = $6, updated_at = now()
		WHERE id = $1`,
		a.ID, a.DoctorID, a.AppointmentDate, a.TimeSlot, a.TotalAmount, a.Status)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET appointment_status = $2, updated_at = now() WHERE id = $1`,
		id, status)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) list(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Appointment, int, error) {
	var total int
	countQ := `SELECT COUNT(*) FROM appointments` + where
	if err := r.conn(ctx).QueryRow(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, errs.FromPG(err)
	}

	pageQ := fmt.Sprintf(`SELECT %s FROM appointments%s ORDER BY appointment_date, time_slot LIMIT $%d OFFSET $%d`,
		appointmentCols, where, len(args)+1, len(args)+2)
	rows, err := r.conn(ctx).Query(ctx, pageQ, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errs.FromPG(err)
	}
	defer rows.Close()

	var result []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, a)
	}
	return result, total, rows.Err()
}

func (r *appointmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *appointmentRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, ` WHERE user_id = $1`, []interface{}{userID}, limit, offset)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, ` WHERE doctor_id = $1`, []interface{}{doctorID}, limit, offset)
}

func (r *appointmentRepoPG) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, ` WHERE appointment_status = $1`, []interface{}{status}, limit, offset)
}

func (r *appointmentRepoPG) ListDetailed(ctx context.Context, limit, offset int) ([]*AppointmentDetail, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&total); err != nil {
		return nil, 0, errs.FromPG(err)
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT a.id, a.user_id, a.doctor_id, a.appointment_date::text, a.time_slot::text,
			a.total_amount::text, a.appointment_status, a.created_at, a.updated_at,
			p.first_name, p.last_name, p.email,
			du.first_name, du.last_name, d.specialization
		FROM appointments a
		JOIN users p ON p.id = a.user_id
		JOIN doctors d ON d.user_id = a.doctor_id
		JOIN users du ON du.id = d.user_id
		ORDER BY a.appointment_date, a.time_slot
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, errs.FromPG(err)
	}
	defer rows.Close()

	var result []*AppointmentDetail
	for rows.Next() {
		var d AppointmentDetail
		err := rows.Scan(&d.ID, &d.UserID, &d.DoctorID, &d.AppointmentDate, &d.TimeSlot,
			&d.TotalAmount, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&d.PatientFirstName, &d.PatientLastName, &d.PatientEmail,
			&d.DoctorFirstName, &d.DoctorLastName, &d.Specialization)
		if err != nil {
			return nil, 0, errs.FromPG(err)
		}
		result = append(result, &d)
	}
	return result, total, rows.Err()
}

func (r *appointmentRepoPG) SlotTaken(ctx context.Context, doctorID uuid.UUID, date, slot string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1 AND appointment_date = $2::date AND time_slot = $3::time
				AND appointment_status <> 'Cancelled' AND id <> $4
		)`, doctorID, date, slot, exclude).Scan(&taken)
	if err != nil {
		return false, errs.FromPG(err)
	}
	return taken, nil
}
