package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// SQLStore keeps one offset per job key in the import_checkpoints table.
type SQLStore struct {
	db     *sql.DB
	jobKey string
}

func NewSQLStore(db *sql.DB, jobKey string) *SQLStore {
	return &SQLStore{db: db, jobKey: jobKey}
}

// OpenSQL opens a database/sql handle through the pgx driver.
func OpenSQL(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	return db, nil
}

func (s *SQLStore) Load(ctx context.Context) (int64, bool, error) {
	var offset int64
	err := s.db.QueryRowContext(ctx,
		`SELECT row_offset FROM import_checkpoints WHERE job_key = $1`, s.jobKey,
	).Scan(&offset)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load checkpoint %q: %w", s.jobKey, err)
	}
	return offset, true, nil
}

func (s *SQLStore) Save(ctx context.Context, offset int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO import_checkpoints (job_key, row_offset, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (job_key) DO UPDATE SET row_offset = EXCLUDED.row_offset, updated_at = EXCLUDED.updated_at`,
		s.jobKey, offset,
	)
	if err != nil {
		return fmt.Errorf("save checkpoint %q: %w", s.jobKey, err)
	}
	return nil
}

func (s *SQLStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM import_checkpoints WHERE job_key = $1`, s.jobKey); err != nil {
		return fmt.Errorf("clear checkpoint %q: %w", s.jobKey, err)
	}
	return nil
}
