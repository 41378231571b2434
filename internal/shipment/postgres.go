package shipment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

const selectShipment = `SELECT id, user_id, tracking_code, carrier, easypost_shipment_id, status,
	from_name, from_street1, from_street2, from_city, from_state, from_zip, from_country, from_phone, from_email,
	to_name, to_street1, to_street2, to_city, to_state, to_zip, to_country, to_phone, to_email,
	weight, length, width, height,
	label_url, tracking_url, postage_label_url, rate_amount,
	created_at, updated_at, deleted_at
FROM shipments`

const newestFirst = ` ORDER BY created_at DESC, id DESC`

type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID int64, page, perPage int) (Page, error) {
	page, perPage = normalizePage(page, perPage)

	var total int64
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM shipments WHERE user_id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&total)
	if err != nil {
		return Page{}, fmt.Errorf("count shipments: %w", err)
	}

	items, err := s.list(ctx,
		selectShipment+` WHERE user_id = $1 AND deleted_at IS NULL`+newestFirst+` LIMIT $2 OFFSET $3`,
		userID, perPage, (page-1)*perPage,
	)
	if err != nil {
		return Page{}, err
	}

	return Page{Items: items, Total: int(total), Page: page, PerPage: perPage}, nil
}

func (s *PostgresStore) ListAllByUser(ctx context.Context, userID int64) ([]Shipment, error) {
	return s.list(ctx, selectShipment+` WHERE user_id = $1 AND deleted_at IS NULL`+newestFirst, userID)
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (Shipment, error) {
	return s.one(ctx, selectShipment+` WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (s *PostgresStore) FindByIDWithDeleted(ctx context.Context, id int64) (Shipment, error) {
	return s.one(ctx, selectShipment+` WHERE id = $1`, id)
}

func (s *PostgresStore) FindByUserAndID(ctx context.Context, userID, id int64) (Shipment, error) {
	return s.one(ctx, selectShipment+` WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID)
}

func (s *PostgresStore) Create(ctx context.Context, sh Shipment) (Shipment, error) {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO shipments (
			user_id, tracking_code, carrier, easypost_shipment_id, status,
			from_name, from_street1, from_street2, from_city, from_state, from_zip, from_country, from_phone, from_email,
			to_name, to_street1, to_street2, to_city, to_state, to_zip, to_country, to_phone, to_email,
			weight, length, width, height,
			label_url, tracking_url, postage_label_url, rate_amount
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23,
			$24, $25, $26, $27,
			$28, $29, $30, $31
		)
		RETURNING id, created_at, updated_at`,
		sh.UserID, sh.TrackingCode, sh.Carrier, sh.ExternalID, string(sh.Status),
		sh.From.Name, sh.From.Street1, sh.From.Street2, sh.From.City, sh.From.State, sh.From.Zip, sh.From.Country, sh.From.Phone, sh.From.Email,
		sh.To.Name, sh.To.Street1, sh.To.Street2, sh.To.City, sh.To.State, sh.To.Zip, sh.To.Country, sh.To.Phone, sh.To.Email,
		sh.Parcel.Weight, sh.Parcel.Length, sh.Parcel.Width, sh.Parcel.Height,
		sh.LabelURL, sh.TrackingURL, sh.PostageLabelURL, sh.RateAmount,
	).Scan(&sh.ID, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return Shipment{}, fmt.Errorf("insert shipment: %w", err)
	}
	return sh, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, c Changes) (bool, error) {
	if c.empty() {
		_, err := s.FindByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return err == nil, err
	}

	var status *string
	if c.Status != nil {
		v := string(*c.Status)
		status = &v
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE shipments
		SET status = COALESCE($2, status),
			tracking_url = COALESCE($3, tracking_url),
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		id, status, c.TrackingURL,
	)
	if err != nil {
		return false, fmt.Errorf("update shipment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE shipments
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("soft delete shipment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ListByUserAndStatus(ctx context.Context, userID int64, status Status) ([]Shipment, error) {
	return s.list(ctx,
		selectShipment+` WHERE user_id = $1 AND status = $2 AND deleted_at IS NULL`+newestFirst,
		userID, string(status),
	)
}

func (s *PostgresStore) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]Shipment, error) {
	if limit < 1 {
		limit = 10
	}
	return s.list(ctx,
		selectShipment+` WHERE user_id = $1 AND deleted_at IS NULL`+newestFirst+` LIMIT $2`,
		userID, limit,
	)
}

func (s *PostgresStore) one(ctx context.Context, sql string, args ...any) (Shipment, error) {
	sh, err := scanShipment(s.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Shipment{}, ErrNotFound
		}
		return Shipment{}, fmt.Errorf("select shipment: %w", err)
	}
	return sh, nil
}

func (s *PostgresStore) list(ctx context.Context, sql string, args ...any) ([]Shipment, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select shipments: %w", err)
	}
	defer rows.Close()

	out := make([]Shipment, 0)
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shipment: %w", err)
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func scanShipment(row pgx.Row) (Shipment, error) {
	var (
		sh     Shipment
		status string
	)
	err := row.Scan(
		&sh.ID, &sh.UserID, &sh.TrackingCode, &sh.Carrier, &sh.ExternalID, &status,
		&sh.From.Name, &sh.From.Street1, &sh.From.Street2, &sh.From.City, &sh.From.State, &sh.From.Zip, &sh.From.Country, &sh.From.Phone, &sh.From.Email,
		&sh.To.Name, &sh.To.Street1, &sh.To.Street2, &sh.To.City, &sh.To.State, &sh.To.Zip, &sh.To.Country, &sh.To.Phone, &sh.To.Email,
		&sh.Parcel.Weight, &sh.Parcel.Length, &sh.Parcel.Width, &sh.Parcel.Height,
		&sh.LabelURL, &sh.TrackingURL, &sh.PostageLabelURL, &sh.RateAmount,
		&sh.CreatedAt, &sh.UpdatedAt, &sh.DeletedAt,
	)
	if err != nil {
		return Shipment{}, err
	}
	sh.Status = Status(status)
	return sh, nil
}
