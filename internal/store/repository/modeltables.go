package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/fortuna/apollo/internal/pbp"
	"github.com/fortuna/apollo/internal/store"
)

// ModelTableRepository holds the latest EP and WP training tables
type ModelTableRepository struct {
	db *store.Database
}

// NewModelTableRepository creates a new model table repository
func NewModelTableRepository(db *store.Database) *ModelTableRepository {
	return &ModelTableRepository{db: db}
}

// ReplaceEP swaps the stored EP table for rows
func (r *ModelTableRepository) ReplaceEP(ctx context.Context, rows []pbp.EPRow) error {
	return r.replace(ctx, "ep_model_rows", []string{"game_id", "play_id", "label", "total_w_scaled", "record"}, len(rows),
		func(i int) ([]interface{}, error) {
			row := rows[i]
			record, err := json.Marshal(row)
			if err != nil {
				return nil, err
			}
			return []interface{}{row.GameID, row.PlayID, row.Label, row.TotalWScaled, string(record)}, nil
		})
}

// ReplaceWP swaps the stored WP table for rows
func (r *ModelTableRepository) ReplaceWP(ctx context.Context, rows []pbp.WPRow) error {
	return r.replace(ctx, "wp_model_rows", []string{"game_id", "play_id", "label", "winner", "record"}, len(rows),
		func(i int) ([]interface{}, error) {
			row := rows[i]
			record, err := json.Marshal(row)
			if err != nil {
				return nil, err
			}
			return []interface{}{row.GameID, row.PlayID, row.Label, row.Winner, string(record)}, nil
		})
}

func (r *ModelTableRepository) replace(ctx context.Context, table string, columns []string, n int, values func(i int) ([]interface{}, error)) error {
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `TRUNCATE `+pq.QuoteIdentifier(table)); err != nil {
		return fmt.Errorf("truncating %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, columns...))
	if err != nil {
		return fmt.Errorf("preparing copy into %s: %w", table, err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		args, err := values(i)
		if err != nil {
			return fmt.Errorf("encoding %s row %d: %w", table, i, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("copying %s row %d: %w", table, i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		return fmt.Errorf("flushing copy into %s: %w", table, err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("closing copy into %s: %w", table, err)
	}

	return tx.Commit()
}

// ListEP pages through the stored EP table
func (r *ModelTableRepository) ListEP(ctx context.Context, limit, offset int) ([]pbp.EPRow, error) {
	rows, err := r.page(ctx, "ep_model_rows", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pbp.EPRow
	err = decodeRecords(rows, func(record []byte) error {
		var row pbp.EPRow
		if err := json.Unmarshal(record, &row); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

// ListWP pages through the stored WP table
func (r *ModelTableRepository) ListWP(ctx context.Context, limit, offset int) ([]pbp.WPRow, error) {
	rows, err := r.page(ctx, "wp_model_rows", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pbp.WPRow
	err = decodeRecords(rows, func(record []byte) error {
		var row pbp.WPRow
		if err := json.Unmarshal(record, &row); err != nil {
			return err
		}
		out = append(out, row)
		return nil
	})
	return out, err
}

func (r *ModelTableRepository) page(ctx context.Context, table string, limit, offset int) (*sql.Rows, error) {
	query := `SELECT record FROM ` + pq.QuoteIdentifier(table) + ` ORDER BY game_id, play_id LIMIT $1 OFFSET $2`
	rows, err := r.db.DB().QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	return rows, nil
}

func decodeRecords(rows *sql.Rows, decode func(record []byte) error) error {
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return fmt.Errorf("scanning record: %w", err)
		}
		if err := decode(record); err != nil {
			return fmt.Errorf("decoding record: %w", err)
		}
	}
	return rows.Err()
}
