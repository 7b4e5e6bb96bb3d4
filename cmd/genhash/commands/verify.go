package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/activecm/genhash/am"
	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/internal/watch"
	"github.com/activecm/genhash/logger"
	"github.com/activecm/genhash/safelist"
	"github.com/activecm/genhash/store"
	"github.com/activecm/genhash/verify"
)

// VerifyCmd checks a candidate safelist against a reference
var VerifyCmd = &cobra.Command{
	Use:   "verify <reference> <candidate>",
	Short: "Verify a safelist against a reference",
	Long: `Verify that a candidate safelist matches a reference.

By default the candidate must have the same length as the reference, hold
exactly one entry for every (type, name) of the reference, and carry the same
hash_key for each. With --unhashed the candidate must instead carry no
hash_key at all.

Every failure is reported; the command exits non-zero if there is any.

Examples:
  genhash verify reference.json generated.json
  genhash verify --unhashed reference.json unhashed.json
  genhash verify --reference-db pinned generated.json
  genhash verify --watch reference.json generated.json`,
	Args: func(cmd *cobra.Command, args []string) error {
		if verifyReferenceDB != "" {
			return cobra.ExactArgs(1)(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runVerify,
}

var (
	verifyUnhashed    bool
	verifyPolicy      string
	verifyWatch       bool
	verifyReferenceDB string
)

func init() {
	VerifyCmd.Flags().BoolVar(&verifyUnhashed, "unhashed", false, "Require the candidate to carry no hash_key")
	VerifyCmd.Flags().StringVar(&verifyPolicy, "policy", "", "Match policy: unique or first (default from verify.policy)")
	VerifyCmd.Flags().BoolVar(&verifyWatch, "watch", false, "Re-run whenever the candidate changes")
	VerifyCmd.Flags().StringVar(&verifyReferenceDB, "reference-db", "", "Read the reference from the named database snapshot")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	policyName := cfg.Verify.Policy
	if verifyPolicy != "" {
		policyName = verifyPolicy
	}
	policy, err := verify.ParsePolicy(policyName)
	if err != nil {
		return err
	}

	reference, err := loadReference(cmd, cfg, args)
	if err != nil {
		return err
	}
	candidate := args[len(args)-1]

	v := verify.New(policy, logger.ComponentLogger("verify"))
	check := func() error {
		entries, err := readList(cmd, candidate)
		if err != nil {
			return err
		}

		var report verify.Report
		if verifyUnhashed {
			report = v.Unhashed(reference, entries)
		} else {
			report = v.All(reference, entries)
		}
		if err := renderReport(cmd.OutOrStdout(), report, len(reference), len(entries)); err != nil {
			return err
		}
		return report.Err()
	}

	if !verifyWatch {
		return check()
	}
	if candidate == stdio {
		return errors.NewInvalidRequestError("--watch needs a candidate file, not stdin")
	}
	return watchVerify(cmd.Context(), cfg, candidate, check)
}

func loadReference(cmd *cobra.Command, cfg *am.Config, args []string) ([]safelist.Entry, error) {
	if verifyReferenceDB == "" {
		return readList(cmd, args[0])
	}

	database, err := openDatabase(cfg.GetDatabasePath())
	if err != nil {
		return nil, err
	}
	defer database.Close()

	entries, err := store.New(database, logger.ComponentLogger("store")).Load(cmd.Context(), verifyReferenceDB)
	if errors.IsNotFoundError(err) {
		return nil, errors.WithHint(err, "run 'genhash db ls' to list snapshots")
	}
	return entries, err
}

// watchVerify runs check now and after every change to candidate until
// interrupted. Failed checks are printed, not fatal.
func watchVerify(ctx context.Context, cfg *am.Config, candidate string, check func() error) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.ComponentLogger("watch")
	if err := check(); err != nil {
		log.Warnw("Verification failed", logger.FieldError, err)
	}

	w, err := watch.New([]string{candidate}, cfg.Verify.WatchDebounce(), check, log)
	if err != nil {
		return err
	}
	w.Start()
	defer w.Stop()

	pterm.Info.Printfln("Watching %s (Ctrl+C to stop)", candidate)
	<-ctx.Done()
	return nil
}

func renderReport(w io.Writer, report verify.Report, refLen, candLen int) error {
	if report.OK() {
		fmt.Fprint(w, pterm.Success.Sprintfln("%s check passed: %d reference entries, %d candidate entries",
			checksLabel(report), refLen, candLen))
		return nil
	}

	table, err := pterm.DefaultTable.
		WithHasHeader().
		WithData(append([][]string{verify.Header}, report.Rows()...)).
		Srender()
	if err != nil {
		return errors.Wrap(err, "render report")
	}
	fmt.Fprintln(w, table)
	fmt.Fprint(w, pterm.Error.Sprintfln("%s check failed: %d failures (%d reference entries, %d candidate entries)",
		checksLabel(report), len(report.Failures), refLen, candLen))
	return nil
}

func checksLabel(r verify.Report) string {
	return strings.Join(r.Checks, "+")
}
