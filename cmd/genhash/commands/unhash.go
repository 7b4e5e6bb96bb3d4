package commands

import (
	"github.com/spf13/cobra"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/logger"
	"github.com/activecm/genhash/safelist"
)

// UnhashCmd strips hash keys from a reference safelist
var UnhashCmd = &cobra.Command{
	Use:   "unhash <reference> <output>",
	Short: "Remove hash_key from every entry of a safelist",
	Long: `Remove hash_key from every entry of a reference safelist, leaving every
other field as it was.

The output must not exist; --replace removes it first. Use - for stdin or
stdout.

Examples:
  genhash unhash reference.json unhashed.json
  genhash unhash --replace reference.json unhashed.json`,
	Args: cobra.ExactArgs(2),
	RunE: runUnhash,
}

var unhashReplace bool

func init() {
	UnhashCmd.Flags().BoolVar(&unhashReplace, "replace", false, "Remove an existing output file first")
}

func runUnhash(cmd *cobra.Command, args []string) error {
	reference, output := args[0], args[1]

	entries, err := readList(cmd, reference)
	if err != nil {
		return err
	}

	if unhashReplace && output != stdio {
		if err := removeIfExists(output); err != nil {
			return err
		}
	}

	unhashed := safelist.Unhash(entries)
	if err := writeList(cmd, output, unhashed, writeExclusive); err != nil {
		if errors.Is(err, errors.ErrOutputExists) {
			return errors.WithHint(err, "pass --replace to overwrite it")
		}
		return err
	}

	logger.Infow("Removed hash keys",
		logger.FieldFile, reference,
		logger.FieldOutput, output,
		logger.FieldCount, len(unhashed))
	return nil
}
