package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wifinder/wifinder/internal/domain"
)

// PointsRepository provides persistence helpers for Wi-Fi points.
type PointsRepository struct {
	pool *pgxpool.Pool
}

// querier is satisfied by both the pool and a transaction so the SQL helpers
// can run inside or outside an explicit transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const pointColumns = `
    id,
    latitude,
    longitude,
    address,
    ratings,
    avg_rating,
    created_at,
    updated_at
`

// PointListFilters narrows List to a map viewport and/or a minimum average.
type PointListFilters struct {
	BoundingBox *BoundingBox
	MinRating   *float64
}

// BoundingBox is a lon/lat rectangle, south-west corner first.
type BoundingBox struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

// SavePointParams carries an ingested point. Rows are only ever created by
// out-of-band ingestion; the serving path reads and rates them.
type SavePointParams struct {
	Latitude  float64
	Longitude float64
	Address   *string
}

// List returns the points matching the filters. Ordering is store-defined
// and callers must not rely on it.
func (r *PointsRepository) List(ctx context.Context, filters PointListFilters) ([]domain.WifiPoint, error) {
	where := make([]string, 0)
	args := make([]interface{}, 0)
	arg := func(value interface{}) string {
		args = append(args, value)
		return fmt.Sprintf("$%d", len(args))
	}

	if bb := filters.BoundingBox; bb != nil {
		where = append(where, fmt.Sprintf("latitude BETWEEN %s AND %s", arg(bb.MinLat), arg(bb.MaxLat)))
		where = append(where, fmt.Sprintf("longitude BETWEEN %s AND %s", arg(bb.MinLon), arg(bb.MaxLon)))
	}
	if filters.MinRating != nil {
		where = append(where, fmt.Sprintf("avg_rating >= %s", arg(*filters.MinRating)))
	}

	query := "SELECT " + pointColumns + " FROM wifi_points"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]domain.WifiPoint, 0)
	for rows.Next() {
		point, err := scanPoint(rows)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return points, nil
}

// Get fetches a single point by id.
func (r *PointsRepository) Get(ctx context.Context, id int64) (domain.WifiPoint, error) {
	query := "SELECT " + pointColumns + " FROM wifi_points WHERE id = $1"
	point, err := scanPoint(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.WifiPoint{}, ErrNotFound
		}
		return domain.WifiPoint{}, err
	}
	return point, nil
}

// Ratings returns the stored rating history for a point, empty when the
// point has never been rated.
func (r *PointsRepository) Ratings(ctx context.Context, id int64) ([]int, error) {
	return fetchRatings(ctx, r.pool, id, false)
}

// UpdateRatings replaces the rating list and the cached average in a single
// statement.
func (r *PointsRepository) UpdateRatings(ctx context.Context, id int64, ratings []int, average float64) error {
	return storeRatings(ctx, r.pool, id, ratings, average)
}

// AppendRating adds value to the point's history inside a transaction that
// holds the row lock, so concurrent submissions for the same point cannot
// drop each other's writes.
func (r *PointsRepository) AppendRating(ctx context.Context, id int64, value int) (domain.RatingSummary, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.RatingSummary{}, fmt.Errorf("begin append rating: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := fetchRatings(ctx, tx, id, true)
	if err != nil {
		return domain.RatingSummary{}, err
	}

	updated, average := domain.AddRating(existing, value)
	if err := storeRatings(ctx, tx, id, updated, average); err != nil {
		return domain.RatingSummary{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.RatingSummary{}, fmt.Errorf("commit append rating: %w", err)
	}
	return domain.RatingSummary{Ratings: updated, Average: average}, nil
}

// SavePoint upserts an ingested point keyed on its coordinates and reports
// whether a new row was created. Ratings are never touched here, so
// re-importing a dataset cannot erase submission history.
func (r *PointsRepository) SavePoint(ctx context.Context, params SavePointParams) (domain.WifiPoint, bool, error) {
	query := `
        INSERT INTO wifi_points (latitude, longitude, address)
        VALUES ($1,$2,$3)
        ON CONFLICT (latitude, longitude)
        DO UPDATE SET address = COALESCE(EXCLUDED.address, wifi_points.address),
                      updated_at = now()
        RETURNING ` + pointColumns + `, (xmax = 0) AS inserted
    `

	var (
		point    domain.WifiPoint
		inserted bool
	)
	err := r.pool.QueryRow(ctx, query, params.Latitude, params.Longitude, params.Address).Scan(
		&point.ID,
		&point.Latitude,
		&point.Longitude,
		&point.Address,
		&point.Ratings,
		&point.AverageRating,
		&point.CreatedAt,
		&point.UpdatedAt,
		&inserted,
	)
	if err != nil {
		return domain.WifiPoint{}, false, err
	}
	if point.Ratings == nil {
		point.Ratings = []int{}
	}
	return point, inserted, nil
}

func fetchRatings(ctx context.Context, q querier, id int64, forUpdate bool) ([]int, error) {
	query := "SELECT ratings FROM wifi_points WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var ratings []int
	if err := q.QueryRow(ctx, query, id).Scan(&ratings); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if ratings == nil {
		ratings = []int{}
	}
	return ratings, nil
}

func storeRatings(ctx context.Context, q querier, id int64, ratings []int, average float64) error {
	tag, err := q.Exec(ctx,
		"UPDATE wifi_points SET ratings = $2, avg_rating = $3, updated_at = now() WHERE id = $1",
		id, ratings, average)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPoint(row pgx.Row) (domain.WifiPoint, error) {
	var point domain.WifiPoint
	err := row.Scan(
		&point.ID,
		&point.Latitude,
		&point.Longitude,
		&point.Address,
		&point.Ratings,
		&point.AverageRating,
		&point.CreatedAt,
		&point.UpdatedAt,
	)
	if err != nil {
		return domain.WifiPoint{}, err
	}
	if point.Ratings == nil {
		point.Ratings = []int{}
	}
	return point, nil
}
