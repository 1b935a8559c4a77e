package catalog

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second

	pgUndefinedTable = "42P01"
)

const catalogSchema = `
	CREATE TABLE IF NOT EXISTS catalog_products (
		id  BIGINT PRIMARY KEY,
		doc JSONB  NOT NULL
	)
`

// PostgresStore keeps one row per product: the id column plus the rest of
// the record as JSONB. Ids only grow, so id order is insertion order.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the products table when it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, catalogSchema)
		return err
	})
	if err != nil {
		return &StoreError{Op: OpWrite, Err: fmt.Errorf("ensure schema: %w", err)}
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.PingContext(ctx)
	})
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]Product, error) {
	out := make([]Product, 0, 16)

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		query := `SELECT id, doc FROM catalog_products ORDER BY id ASC`
		args := []any{}
		if limit > 0 {
			query += ` LIMIT $1`
			args = append(args, limit)
		}

		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, readErr(err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		row := s.db.QueryRowContext(ctx, `SELECT id, doc FROM catalog_products WHERE id = $1`, id)
		var err error
		p, err = scanProduct(row)
		return err
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, readErr(err)
	}
	return p, true, nil
}

func (s *PostgresStore) Add(ctx context.Context, in Product) (Product, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}

	var p Product
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		// Serialises concurrent adds so max(id)+1 stays unique.
		if _, err := tx.ExecContext(ctx, `LOCK TABLE catalog_products IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return err
		}

		var id int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) + 1 FROM catalog_products`).Scan(&id); err != nil {
			return err
		}

		p = newRecord(in, id)
		doc, err := encodeDoc(p)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO catalog_products (id, doc) VALUES ($1, $2)`, id, doc)
		return err
	})
	if err != nil {
		return nil, writeErr(err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, id int64, patch Product) (Product, error) {
	var merged Product
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT id, doc FROM catalog_products WHERE id = $1 FOR UPDATE`, id)
		old, err := scanProduct(row)
		if err != nil {
			return err
		}
		if err := ValidatePatch(patch); err != nil {
			return err
		}

		merged = merge(old, patch)
		doc, err := encodeDoc(merged)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE catalog_products SET doc = $2 WHERE id = $1`, id, doc)
		return err
	})
	var ve *ValidationError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, notFound(id)
	case errors.As(err, &ve):
		return nil, ve
	case err != nil:
		return nil, writeErr(err)
	}
	return merged, nil
}

func (s *PostgresStore) Remove(ctx context.Context, id int64) error {
	var affected int64
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM catalog_products WHERE id = $1`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return writeErr(err)
	}
	if affected == 0 {
		return notFound(id)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM catalog_products`)
		return err
	})
	if err != nil {
		return writeErr(err)
	}
	return nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		id  int64
		raw []byte
	)
	if err := row.Scan(&id, &raw); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	p := Product{}
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("decode product %d: %w", id, err)
	}
	p[FieldID] = id
	return p, nil
}

// encodeDoc drops the id, which lives in its own column.
func encodeDoc(p Product) (string, error) {
	doc := make(Product, len(p))
	for k, v := range p {
		if k != FieldID {
			doc[k] = v
		}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func readErr(err error) error {
	return &StoreError{Op: OpRead, Err: explainPgErr(err)}
}

func writeErr(err error) error {
	return &StoreError{Op: OpWrite, Err: explainPgErr(err)}
}

func explainPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("catalog_products table missing (run EnsureSchema): %w", err)
	}
	return err
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
