package commands

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/activecm/genhash/am"
	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/internal/httpclient"
	"github.com/activecm/genhash/logger"
	safelistsync "github.com/activecm/genhash/sync"
)

// SyncCmd keeps the safelists of several hosts in step
var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize safelists between hosts",
	Long: `Synchronize safelists between AC-Hunter hosts.

Each pass downloads the safelist of every host, merges the source hosts'
entries into one list, and sends every host the entries it lacks.
Recipients receive entries but never contribute any. With --filter only
entries whose comment contains the given text take part.

Passes repeat every sync.wait_seconds until interrupted; --once runs a
single pass.

Hosts are host[:port] names. They are read from sync.sources and
sync.recipients and may be given on the command line instead.

Examples:
  genhash sync --source hunter1 --source hunter2 --recipient hunter3
  genhash sync --once --dry-run -v
  genhash sync --filter "sync:"`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var (
	syncSources    []string
	syncRecipients []string
	syncFilter     string
	syncDryRun     bool
	syncOnce       bool
	syncWait       int
	syncCacheDir   string
)

func init() {
	f := SyncCmd.Flags()
	f.StringSliceVarP(&syncSources, "source", "s", nil, "Host whose safelist is shared (repeatable)")
	f.StringSliceVarP(&syncRecipients, "recipient", "r", nil, "Host that only receives entries (repeatable)")
	f.StringVarP(&syncFilter, "filter", "f", "", "Only sync entries whose comment contains this text")
	f.BoolVarP(&syncDryRun, "dry-run", "n", false, "Show what would be sent without sending it")
	f.BoolVar(&syncOnce, "once", false, "Run a single pass and exit")
	f.IntVarP(&syncWait, "wait", "w", 0, "Seconds between passes (default from sync.wait_seconds)")
	f.StringVar(&syncCacheDir, "cache-dir", "", "Directory for cached host lists (default from sync.cache_dir)")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sc := cfg.Sync
	flags := cmd.Flags()
	if flags.Changed("source") {
		sc.Sources = syncSources
	}
	if flags.Changed("recipient") {
		sc.Recipients = syncRecipients
	}
	if flags.Changed("filter") {
		sc.Filter = syncFilter
	}
	if flags.Changed("dry-run") {
		sc.DryRun = syncDryRun
	}
	if flags.Changed("wait") {
		sc.WaitSeconds = syncWait
	}
	if flags.Changed("cache-dir") {
		sc.CacheDir = syncCacheDir
	}
	if err := sc.ValidateSync(); err != nil {
		return errors.WithHint(err, "set sync.sources and sync.recipients, or pass --source and --recipient")
	}

	syncer := newSyncer(sc)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if sc.DryRun {
		fmt.Fprint(out, pterm.Warning.Sprintln("Dry run: no entries will be sent"))
	}

	if syncOnce {
		summary, err := syncer.Pass(ctx)
		if err != nil {
			return err
		}
		if err := renderSummary(out, summary); err != nil {
			return err
		}
		if failed := summary.Failed(); len(failed) > 0 {
			return errors.Newf("%d of %d hosts failed", len(failed), len(summary.Hosts))
		}
		return nil
	}

	return syncer.Run(ctx, sc.Wait(), func(summary safelistsync.Summary) {
		if err := renderSummary(out, summary); err != nil {
			logger.Warnw("Cannot render sync summary", logger.FieldError, err)
		}
	})
}

func newSyncer(sc am.SyncConfig) *safelistsync.Syncer {
	client := httpclient.New(httpclient.Options{
		Timeout:        sc.Timeout(),
		BlockPrivateIP: !sc.AllowPrivateHosts,
	})
	return &safelistsync.Syncer{
		Client:            client,
		Sources:           sc.Sources,
		Recipients:        sc.Recipients,
		Filter:            sc.Filter,
		DryRun:            sc.DryRun,
		CacheDir:          sc.CacheDir,
		RequestsPerSecond: sc.RequestsPerSecond,
		Concurrency:       sc.Concurrency,
		Logger:            logger.ComponentLogger("sync"),
	}
}

func renderSummary(w io.Writer, summary safelistsync.Summary) error {
	data := [][]string{{"Host", "Role", "Fetched", "Matching", "Additions", "Status"}}
	for _, h := range summary.Hosts {
		status := "up to date"
		switch {
		case h.Err != nil:
			status = "failed: " + h.Err.Error()
		case h.Pushed:
			status = "updated"
		case h.Additions > 0:
			status = "pending (dry run)"
		}
		data = append(data, []string{
			h.Host,
			h.Role,
			strconv.Itoa(h.Fetched),
			strconv.Itoa(h.Matching),
			strconv.Itoa(h.Additions),
			status,
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render sync summary")
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "Master list: %d entries\n", summary.Master)
	return nil
}
