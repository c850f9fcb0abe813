package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// InsertOrderIfAbsent persists the order if its SourceID is not yet
// known. The existing row is left untouched on conflict.
func (s *SQLiteStore) InsertOrderIfAbsent(ctx context.Context, order *RunOrder) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("database not opened")
	}

	if order.ID == "" {
		order.ID = generateID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO run_orders
		     (id, source_id, source, algorithm_name, algorithm_repository,
		      algorithm_version, dataset, local_path, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_id) DO NOTHING`,
		order.ID, order.SourceID, order.Source,
		order.Algorithm.Name, order.Algorithm.Repository, order.Algorithm.Version,
		order.Dataset, order.LocalPath, order.Status, order.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert run order: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return n > 0, nil
}

// GetOrder retrieves an order by id. Returns nil if not found.
func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*RunOrder, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	order, err := scanOrder(s.db.QueryRowContext(ctx,
		`SELECT id, source_id, source, algorithm_name, algorithm_repository,
		        algorithm_version, dataset, local_path, status, created_at
		 FROM run_orders WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run order: %w", err)
	}
	return order, nil
}

// ListOrders returns all run orders, newest first.
func (s *SQLiteStore) ListOrders(ctx context.Context) ([]*RunOrder, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_id, source, algorithm_name, algorithm_repository,
		        algorithm_version, dataset, local_path, status, created_at
		 FROM run_orders ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list run orders: %w", err)
	}
	defer rows.Close()

	var orders []*RunOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run order: %w", err)
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

// scannable abstracts *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (*RunOrder, error) {
	order := &RunOrder{}
	err := row.Scan(
		&order.ID, &order.SourceID, &order.Source,
		&order.Algorithm.Name, &order.Algorithm.Repository, &order.Algorithm.Version,
		&order.Dataset, &order.LocalPath, &order.Status, &order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return order, nil
}
