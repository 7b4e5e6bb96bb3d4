package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/logger"
	"github.com/activecm/genhash/store"
)

// DbCmd manages safelist snapshots in the database
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage stored safelist snapshots",
	Long: `Manage named safelist snapshots kept in the SQLite database.

A snapshot pins a reference list so later runs can verify against it with
'genhash verify --reference-db <name>'.

Examples:
  genhash db import pinned reference.json   # store or replace a snapshot
  genhash db export pinned copy.json        # write a snapshot back out
  genhash db ls                             # list snapshots
  genhash db rm pinned                      # delete a snapshot`,
}

var dbImportCmd = &cobra.Command{
	Use:   "import <name> <file>",
	Short: "Store a safelist file as a named snapshot",
	Args:  cobra.ExactArgs(2),
	RunE:  runDbImport,
}

var dbExportCmd = &cobra.Command{
	Use:   "export <name> <file>",
	Short: "Write a snapshot to a new file",
	Args:  cobra.ExactArgs(2),
	RunE:  runDbExport,
}

var dbListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List snapshots",
	Args:    cobra.NoArgs,
	RunE:    runDbList,
}

var dbRemoveCmd = &cobra.Command{
	Use:     "rm <name>",
	Aliases: []string{"delete"},
	Short:   "Delete a snapshot",
	Args:    cobra.ExactArgs(1),
	RunE:    runDbRemove,
}

var dbPathFlag string

func init() {
	DbCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path (default from database.path)")

	DbCmd.AddCommand(dbImportCmd)
	DbCmd.AddCommand(dbExportCmd)
	DbCmd.AddCommand(dbListCmd)
	DbCmd.AddCommand(dbRemoveCmd)
}

func openStore() (*store.Store, func(), error) {
	database, err := openDatabase(dbPathFlag)
	if err != nil {
		return nil, nil, err
	}
	return store.New(database, logger.ComponentLogger("store")), func() { database.Close() }, nil
}

func runDbImport(cmd *cobra.Command, args []string) error {
	name, file := args[0], args[1]

	entries, err := readList(cmd, file)
	if err != nil {
		return err
	}

	s, closeDB, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := s.Save(cmd.Context(), name, entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored %d entries as snapshot %q\n", len(entries), name)
	return nil
}

func runDbExport(cmd *cobra.Command, args []string) error {
	name, file := args[0], args[1]

	s, closeDB, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	entries, err := s.Load(cmd.Context(), name)
	if err != nil {
		if errors.IsNotFoundError(err) {
			return errors.WithHint(err, "run 'genhash db ls' to list snapshots")
		}
		return err
	}
	return writeList(cmd, file, entries, writeExclusive)
}

func runDbList(cmd *cobra.Command, args []string) error {
	s, closeDB, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	snapshots, err := s.List(cmd.Context())
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots")
		return nil
	}

	data := [][]string{{"Name", "Entries", "Created"}}
	for _, snap := range snapshots {
		data = append(data, []string{
			snap.Name,
			strconv.Itoa(snap.EntryCount),
			snap.CreatedAt.Local().Format(time.DateTime),
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render snapshot list")
	}
	fmt.Fprintln(cmd.OutOrStdout(), table)
	return nil
}

func runDbRemove(cmd *cobra.Command, args []string) error {
	s, closeDB, err := openStore()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := s.Delete(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted snapshot %q\n", args[0])
	return nil
}
