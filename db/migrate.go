package db

import (
	"context"
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/activecm/genhash/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// bootstrapVersion creates schema_migrations and so cannot be looked up in it.
const bootstrapVersion = "000"

// migration is one embedded schema step, e.g. 001_create_safelists.sql.
type migration struct {
	version string
	file    string
}

// Migrate brings the snapshot schema up to date. Each pending migration runs
// in its own transaction together with its schema_migrations row. A nil
// logger runs silently.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	ctx := context.Background()
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	pending, err := listMigrations()
	if err != nil {
		return err
	}

	var applied []string
	for _, m := range pending {
		done, err := isApplied(ctx, db, m)
		if err != nil {
			return err
		}
		if done {
			logger.Debugw("Snapshot schema step already applied", "migration", m.file)
			continue
		}

		logger.Infow("Applying snapshot schema step", "migration", m.file, "version", m.version)
		if err := apply(ctx, db, m); err != nil {
			return err
		}
		applied = append(applied, m.version)
	}

	if len(applied) > 0 {
		logger.Infow("Snapshot schema migrated",
			"applied", applied,
			"schema_version", pending[len(pending)-1].version)
	} else {
		logger.Debugw("Snapshot schema up to date", "migrations", len(pending))
	}
	return nil
}

func listMigrations() ([]migration, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}

	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, _, _ := strings.Cut(entry.Name(), "_")
		out = append(out, migration{version: version, file: entry.Name()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].file < out[j].file })
	return out, nil
}

// isApplied reports whether m is recorded. Before the bootstrap step runs
// there is no table to look in, which only the bootstrap step may see.
func isApplied(ctx context.Context, db *sql.DB, m migration) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", m.version).Scan(&exists)
	if err == nil {
		return exists, nil
	}
	if m.version != bootstrapVersion {
		return false, errors.Wrapf(err, "schema_migrations missing before %s", m.file)
	}
	return false, nil
}

func apply(ctx context.Context, db *sql.DB, m migration) error {
	body, err := migrations.ReadFile(path.Join(migrationsDir, m.file))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.file)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", m.file)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return errors.Wrapf(err, "execute %s", m.file)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return errors.Wrapf(err, "record %s", m.file)
	}
	return errors.Wrapf(tx.Commit(), "commit %s", m.file)
}
