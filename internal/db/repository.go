package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/mauv0809/etf-flows/internal/models"
)

// Repository handles database operations for ETF flows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const flowColumns = `etf, key, day, close_of_business, flows, total::text, rank, raw, created_at, updated_at`

// UpsertFlow inserts or updates one day in a single statement and reports
// whether the row was created.
func (r *Repository) UpsertFlow(ctx context.Context, flow models.StoredFlow) (bool, error) {
	flows, err := json.Marshal(flow.Flows)
	if err != nil {
		return false, fmt.Errorf("encoding flows: %w", err)
	}

	var created bool
	err = r.pool.QueryRow(ctx, `
		INSERT INTO etf_flows (
			etf, key, day, close_of_business,
			flows, total, rank, raw, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5::jsonb, $6::numeric, $7, $8::jsonb, NOW()
		)
		ON CONFLICT (etf, key) DO UPDATE SET
			day = EXCLUDED.day,
			close_of_business = EXCLUDED.close_of_business,
			flows = EXCLUDED.flows,
			total = EXCLUDED.total,
			rank = EXCLUDED.rank,
			raw = EXCLUDED.raw,
			updated_at = NOW()
		RETURNING (xmax = 0)
	`,
		flow.ETF, flow.Key, flow.Day, flow.CloseOfBusiness,
		string(flows), flow.Total.String(), flow.Rank, nullableJSON(flow.Raw),
	).Scan(&created)
	if err != nil {
		return false, fmt.Errorf("upserting flow %s/%s: %w", flow.ETF, flow.Key, err)
	}

	return created, nil
}

// FindFlow returns the stored day for key or ErrNotFound.
func (r *Repository) FindFlow(ctx context.Context, etf, key string) (models.StoredFlow, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+flowColumns+` FROM etf_flows WHERE etf = $1 AND key = $2`, etf, key)
	flow, err := scanFlow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.StoredFlow{}, ErrNotFound
	}
	return flow, err
}

// ListFlows returns every stored day of etf ordered by close of business.
func (r *Repository) ListFlows(ctx context.Context, etf string) ([]models.StoredFlow, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+flowColumns+` FROM etf_flows WHERE etf = $1 ORDER BY close_of_business ASC`, etf)
	if err != nil {
		return nil, fmt.Errorf("querying flows: %w", err)
	}
	defer rows.Close()

	var out []models.StoredFlow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, flow)
	}

	return out, rows.Err()
}

func scanFlow(row pgx.Row) (models.StoredFlow, error) {
	var (
		f     models.StoredFlow
		flows []byte
		total string
		raw   []byte
	)
	if err := row.Scan(&f.ETF, &f.Key, &f.Day, &f.CloseOfBusiness, &flows, &total, &f.Rank, &raw, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return f, err
	}

	d, err := decimal.NewFromString(total)
	if err != nil {
		return f, fmt.Errorf("parsing total %q: %w", total, err)
	}
	f.Total = d

	if err := json.Unmarshal(flows, &f.Flows); err != nil {
		return f, fmt.Errorf("decoding flows of %s: %w", f.Key, err)
	}
	if len(raw) > 0 {
		f.Raw = raw
	}
	return f, nil
}

// nullableJSON converts an empty raw message to NULL.
func nullableJSON(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
