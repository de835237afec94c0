package catalog

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
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository { return &pgRepository{pool: pool} }

func (r *pgRepository) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const serviceCols = `id, title, description, features, created_at, updated_at`

func scanService(row pgx.Row) (*CareService, error) {
	var s CareService
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Features, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	if s.Features == nil {
		s.Features = []string{}
	}
	return &s, nil
}

func (r *pgRepository) Create(ctx context.Context, s *CareService) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO services (id, title, description, features)
		VALUES ($1, $2, $3, $4)`,
		s.ID, s.Title, s.Description, s.Features)
	return errs.FromPG(err)
}

func (r *pgRepository) GetByID(ctx context.Context, id uuid.UUID) (*CareService, error) {
	row := r.conn(ctx).QueryRow(ctx,
		`SELECT `+serviceCols+` FROM services WHERE id = $1`, id)
	return scanService(row)
}

func (r *pgRepository) Update(ctx context.Context, s *CareService) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE services
		SET title = $2, description = $3, features = $4, updated_at = now()
		WHERE id = $1`,
		s.ID, s.Title, s.Description, s.Features)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *pgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return errs.FromPG(err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func (r *pgRepository) List(ctx context.Context, limit, offset int) ([]*CareService, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT count(*) FROM services`).Scan(&total)
	if err != nil {
		return nil, 0, errs.FromPG(err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+serviceCols+` FROM services ORDER BY title LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, errs.FromPG(err)
	}
	defer rows.Close()

	services, err := collectServices(rows)
	if err != nil {
		return nil, 0, err
	}
	return services, total, nil
}

func collectServices(rows pgx.Rows) ([]*CareService, error) {
	services := []*CareService{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	return services, errs.FromPG(rows.Err())
}

func (r *pgRepository) ReplaceDoctorServices(ctx context.Context, doctorUserID uuid.UUID, serviceIDs []uuid.UUID) error {
	q := r.conn(ctx)
	if _, err := q.Exec(ctx,
		`DELETE FROM doctor_services WHERE doctor_id = $1`, doctorUserID); err != nil {
		return errs.FromPG(err)
	}
	for i, sid := range serviceIDs {
		_, err := q.Exec(ctx, `
			INSERT INTO doctor_services (doctor_id, service_id, position)
			VALUES ($1, $2, $3)`,
			doctorUserID, sid, i)
		if err != nil {
			return fmt.Errorf("assign service %s: %w", sid, errs.FromPG(err))
		}
	}
	return nil
}

func (r *pgRepository) ListByDoctor(ctx context.Context, doctorUserID uuid.UUID) ([]*CareService, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT s.id, s.title, s.description, s.features, s.created_at, s.updated_at
		FROM services s
		JOIN doctor_services ds ON ds.service_id = s.id
		WHERE ds.doctor_id = $1
		ORDER BY ds.position`, doctorUserID)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	defer rows.Close()
	return collectServices(rows)
}

func (r *pgRepository) ListDoctorIDsByService(ctx context.Context, serviceID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT doctor_id FROM doctor_services WHERE service_id = $1 ORDER BY doctor_id`,
		serviceID)
	if err != nil {
		return nil, errs.FromPG(err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, errs.FromPG(err)
		}
		ids = append(ids, id)
	}
	return ids, errs.FromPG(rows.Err())
}

func (r *pgRepository) DoctorExists(ctx context.Context, doctorUserID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM doctors WHERE user_id = $1)`, doctorUserID).Scan(&exists)
	return exists, errs.FromPG(err)
}
