package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier runs a query and returns its rows as column -> value maps.
type Querier interface {
	QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error)
}

// PoolQuerier runs queries on a pgx pool.
type PoolQuerier struct {
	Pool *pgxpool.Pool
}

func (q PoolQuerier) QueryRows(ctx context.Context, sql string, args ...any) ([]map[string]any, error) {
	rows, err := q.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToMap)
}
