package tracking

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"

	"EnrollmentHealth/internal/ports"
)

// PostgresStore keeps reminder tracking in a two-column table for
// deployments where several hosts share one store. Save replaces the whole
// table inside a transaction, matching the full-store-replace contract of
// the file store.
type PostgresStore struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.TrackingStore = (*PostgresStore)(nil)

// NewPostgresStore wires a sql.DB implementation.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// OpenPostgresStore opens a connection from a DSN and pings it.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open tracking database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping tracking database: %w", err)
	}
	return NewPostgresStore(db), nil
}

// Load reads all tracked timestamps.
func (s *PostgresStore) Load(ctx context.Context) (map[string]string, error) {
	query, args, err := s.builder.
		Select("record_id", "last_notified").
		From("reminder_tracking").
		ToSql()
	if err != nil {
		return map[string]string{}, fmt.Errorf("build select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return map[string]string{}, fmt.Errorf("query tracking: %w", err)
	}

	tracking := map[string]string{}
	for rows.Next() {
		var id, ts string
		if err := rows.Scan(&id, &ts); err != nil {
			_ = rows.Close()
			return map[string]string{}, fmt.Errorf("scan tracking row: %w", err)
		}
		tracking[id] = ts
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return map[string]string{}, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return map[string]string{}, fmt.Errorf("close rows: %w", closeErr)
	}

	return tracking, nil
}

// Save replaces the table contents with the given map in one transaction.
func (s *PostgresStore) Save(ctx context.Context, tracking map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tracking tx: %w", err)
	}

	delQuery, delArgs, err := s.builder.Delete("reminder_tracking").ToSql()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := tx.ExecContext(ctx, delQuery, delArgs...); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear tracking: %w", err)
	}

	if len(tracking) > 0 {
		insert := s.builder.Insert("reminder_tracking").Columns("record_id", "last_notified")
		for id, ts := range tracking {
			insert = insert.Values(id, ts)
		}
		insQuery, insArgs, err := insert.ToSql()
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, insQuery, insArgs...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert tracking: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tracking tx: %w", err)
	}

	return nil
}
