package checkpoint

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"catalog-importer/internal/config"
)

// JobKey names the checkpoint of file: the configured key, else the file's
// base name without extension.
func JobKey(cfg config.CheckpointConfig, file string) string {
	if cfg.JobKey != "" {
		return cfg.JobKey
	}
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Open returns the store cfg selects for file. db is only used by the sql
// backend.
func Open(cfg config.CheckpointConfig, db *sql.DB, file string) (Store, error) {
	key := JobKey(cfg, file)
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(filepath.Join(cfg.Path, key+".offset")), nil
	case "sql":
		if db == nil {
			return nil, errors.New("sql checkpoint backend needs a database")
		}
		return NewSQLStore(db, key), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}
