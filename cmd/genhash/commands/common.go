package commands

import (
	"database/sql"
	"os"

	"github.com/spf13/cobra"

	"github.com/activecm/genhash/am"
	"github.com/activecm/genhash/db"
	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/internal/fileio"
	"github.com/activecm/genhash/logger"
	"github.com/activecm/genhash/safelist"
)

// stdio names stdin or stdout in place of a file path.
const stdio = "-"

// loadConfig loads and validates the configuration.
func loadConfig() (*am.Config, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// readList reads a safelist from path, or from stdin for "-".
func readList(cmd *cobra.Command, path string) ([]safelist.Entry, error) {
	if path == stdio {
		entries, err := safelist.Decode(cmd.InOrStdin(), safelist.FormatJSON)
		return entries, errors.Wrap(err, "read stdin")
	}
	return safelist.LoadFile(path)
}

type writeMode int

const (
	// replace the destination atomically
	writeAtomic writeMode = iota
	// fail if the destination exists
	writeExclusive
)

// writeList writes entries to path, or to stdout for "-". The format follows
// the file extension.
func writeList(cmd *cobra.Command, path string, entries []safelist.Entry, mode writeMode) error {
	if path == stdio {
		return safelist.Encode(cmd.OutOrStdout(), entries, safelist.FormatJSON)
	}

	data, err := safelist.Marshal(entries, safelist.FormatFor(path))
	if err != nil {
		return err
	}

	switch mode {
	case writeExclusive:
		err = fileio.WriteExclusive(path, data, am.DefaultFilePermissions)
	default:
		err = fileio.WriteAtomic(path, data, am.DefaultFilePermissions)
	}
	if errors.Is(err, errors.ErrOutputExists) {
		return errors.WithHintf(err, "remove %s or choose another output path", path)
	}
	return err
}

// removeIfExists deletes path, ignoring a missing file.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove %s", path)
	}
	return nil
}

// openDatabase opens and migrates the snapshot database. An empty path uses
// the configured one.
func openDatabase(path string) (*sql.DB, error) {
	if path == "" {
		p, err := am.GetDatabasePath()
		if err != nil {
			return nil, errors.Wrap(err, "failed to get database path")
		}
		path = p
	}

	database, err := db.OpenWithMigrations(path, logger.ComponentLogger("db"))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}
	return database, nil
}
