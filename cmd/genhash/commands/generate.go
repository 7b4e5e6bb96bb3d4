package commands

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/genhash"
	"github.com/activecm/genhash/logger"
)

// GenerateCmd computes hash keys for a safelist
var GenerateCmd = &cobra.Command{
	Use:   "generate <input> [output]",
	Short: "Compute hash_key for every entry of a safelist",
	Long: `Compute hash_key for every entry of an unhashed safelist.

The output defaults to <input-stem>-hashed.json next to the input. Use - for
stdin or stdout. The output is replaced atomically: a failed run leaves any
previous file untouched.

Entries that already carry a hash_key keep it unless --rehash is given.

Examples:
  genhash generate unhashed.json                  # writes unhashed-hashed.json
  genhash generate unhashed.json out.yaml         # YAML output
  genhash generate --algorithm xxh64 list.json -  # print to stdout`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runGenerate,
}

var (
	generateAlgorithm string
	generateRehash    bool
)

func init() {
	GenerateCmd.Flags().StringVar(&generateAlgorithm, "algorithm", "", "Hash algorithm (default from genhash.algorithm)")
	GenerateCmd.Flags().BoolVar(&generateRehash, "rehash", false, "Recompute entries that already carry a hash_key")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	input := args[0]
	output := defaultGenerateOutput(input)
	if len(args) == 2 {
		output = args[1]
	}

	algorithm := cfg.Genhash.Algorithm
	if generateAlgorithm != "" {
		algorithm = generateAlgorithm
	}
	hash, err := genhash.Lookup(algorithm)
	if err != nil {
		return err
	}

	entries, err := readList(cmd, input)
	if err != nil {
		return err
	}

	gen := genhash.NewGenerator(hash, logger.ComponentLogger("genhash"))
	gen.DefaultSchemaVersion = cfg.Genhash.DefaultSchemaVersion
	gen.Rehash = cfg.Genhash.Rehash || generateRehash

	hashed, err := gen.Generate(entries)
	if err != nil {
		return errors.Wrapf(err, "generate %s", input)
	}

	if err := writeList(cmd, output, hashed, writeAtomic); err != nil {
		return err
	}

	logger.Infow("Generated hash keys",
		logger.FieldFile, input,
		logger.FieldOutput, output,
		logger.FieldAlgorithm, algorithm,
		logger.FieldCount, len(hashed),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return nil
}

// defaultGenerateOutput names the output for input: stdout for stdin,
// otherwise <stem>-hashed.json beside the input.
func defaultGenerateOutput(input string) string {
	if input == stdio {
		return stdio
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + "-hashed.json"
}
