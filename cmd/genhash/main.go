package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/activecm/genhash/am"
	"github.com/activecm/genhash/cmd/genhash/commands"
	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/logger"
)

var rootCmd = &cobra.Command{
	Use:   "genhash",
	Short: "genhash - safelist hash generation, verification and sync",
	Long: `genhash - safelist hash generation, verification and sync.

genhash computes the hash_key of every entry of a safelist, checks a
generated list against a reference, and keeps safelists in step across
hosts.

Available commands:
  generate - Compute hash_key for every entry of a safelist
  unhash   - Remove hash_key from every entry of a safelist
  verify   - Verify a safelist against a reference
  sync     - Synchronize safelists between hosts
  db       - Manage stored safelist snapshots
  am       - Manage genhash configuration ("I am")

Examples:
  genhash unhash reference.json unhashed.json
  genhash generate unhashed.json generated.json
  genhash verify reference.json generated.json
  genhash sync --once --dry-run`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLog, _ := cmd.Flags().GetBool("log-json")
		if !cmd.Flags().Changed("log-json") {
			jsonLog = am.GetBool("log.json")
		}
		if err := logger.Initialize(jsonLog, verbosity); err != nil {
			return errors.Wrap(err, "failed to initialize logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON (default from log.json)")

	rootCmd.AddCommand(commands.GenerateCmd)
	rootCmd.AddCommand(commands.UnhashCmd)
	rootCmd.AddCommand(commands.VerifyCmd)
	rootCmd.AddCommand(commands.SyncCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		logger.Cleanup()
		os.Exit(1)
	}
}
