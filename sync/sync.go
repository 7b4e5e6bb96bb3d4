// Package sync keeps the safelists of several hunter hosts in step.
//
// Each pass downloads every host's safelist, merges the source hosts' lists
// into one de-duplicated master list, and sends every host the master
// entries it lacks. Recipients receive entries but do not contribute any.
// Entries are compared whole, so an entry edited on one host is a new entry
// to the others.
package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	stdsync "sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/internal/fileio"
	"github.com/activecm/genhash/logger"
	"github.com/activecm/genhash/safelist"
)

// Host API paths.
const (
	ExportPath = "/api/v0/empire/whitelist/export"
	ImportPath = "/api/v0/empire/whitelist/import"
)

// Doer sends HTTP requests. *httpclient.SaferClient and *http.Client satisfy it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Syncer runs sync passes over a fixed set of hosts. Hosts are host:port
// strings reached over plain HTTP unless Scheme says otherwise.
type Syncer struct {
	Client     Doer
	Sources    []string
	Recipients []string

	// Filter restricts syncing to entries whose comment contains it, ignoring
	// case. Empty syncs every entry.
	Filter string

	// DryRun computes additions without sending them.
	DryRun bool

	// CacheDir receives a copy of each host's raw list. Empty disables caching.
	CacheDir string

	// RequestsPerSecond limits requests to each host. 0 means unlimited.
	RequestsPerSecond float64

	// Concurrency bounds parallel host requests. Values below 1 mean 1.
	Concurrency int

	Scheme string
	Logger *zap.SugaredLogger

	limitersMu stdsync.Mutex
	limiters   map[string]*rate.Limiter
}

// HostResult reports one host's part in a pass.
type HostResult struct {
	Host      string
	Role      string // "source" or "recipient"
	Fetched   int    // entries downloaded
	Matching  int    // entries left after the comment filter
	Additions int    // master entries the host lacked
	Pushed    bool
	Err       error
}

// Summary reports a whole pass.
type Summary struct {
	Master int // entries in the merged master list
	Hosts  []HostResult
}

// Failed returns the hosts that could not be fetched or updated.
func (s Summary) Failed() []HostResult {
	var out []HostResult
	for _, h := range s.Hosts {
		if h.Err != nil {
			out = append(out, h)
		}
	}
	return out
}

// Validate checks the host lists: at least one source and at least two hosts
// overall.
func (s *Syncer) Validate() error {
	if len(s.Sources) == 0 {
		return errors.NewInvalidRequestError("no sources specified")
	}
	if hosts, _ := s.hosts(); len(hosts) < 2 {
		return errors.NewInvalidRequestError("not enough systems to sync: need at least 2 hosts")
	}
	if s.Client == nil {
		return errors.NewInvalidRequestError("no HTTP client configured")
	}
	return nil
}

type hostList struct {
	host string
	role string
	raw  []safelist.Entry
	list []safelist.Entry
	err  error
}

// Pass runs one sync pass. Per-host failures are logged and reported in the
// summary; the returned error is non-nil only for an invalid configuration
// or a cancelled context.
func (s *Syncer) Pass(ctx context.Context) (Summary, error) {
	if err := s.Validate(); err != nil {
		return Summary{}, err
	}
	log := s.log()
	start := time.Now()

	hosts, both := s.hosts()
	for _, h := range both {
		log.Warnw("Host is both source and recipient, treating it as a source", logger.FieldHost, h)
	}
	lists := make([]hostList, len(hosts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i, h := range hosts {
		g.Go(func() error {
			raw, err := s.Fetch(gctx, h.host)
			lists[i] = hostList{host: h.host, role: h.role, raw: raw, err: err}
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return Summary{}, errors.Wrap(err, "sync pass cancelled")
	}

	var merged []safelist.Entry
	for i := range lists {
		l := &lists[i]
		if l.err == nil && len(l.raw) == 0 {
			// An empty export usually means the export failed; never treat
			// it as a host that needs everything.
			l.err = errors.Newf("%s returned an empty safelist", l.host)
		}
		if l.err != nil {
			log.Warnw("Skipping host", logger.FieldHost, l.host, logger.FieldError, l.err)
			continue
		}
		l.list = safelist.FilterByComment(l.raw, s.Filter)
		if s.Filter != "" {
			log.Debugw("Filtered safelist",
				logger.FieldHost, l.host,
				logger.FieldCount, len(l.list),
				logger.FieldTotalCount, len(l.raw))
		}
		if l.role == roleSource {
			merged = append(merged, l.list...)
		}
	}

	master, err := safelist.Dedupe(merged)
	if err != nil {
		return Summary{}, errors.Wrap(err, "merge source safelists")
	}

	summary := Summary{Master: len(master), Hosts: make([]HostResult, len(lists))}

	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())
	for i := range lists {
		l := lists[i]
		res := &summary.Hosts[i]
		*res = HostResult{Host: l.host, Role: l.role, Fetched: len(l.raw), Matching: len(l.list), Err: l.err}
		if l.err != nil {
			continue
		}

		additions, err := safelist.Missing(master, l.list)
		if err != nil {
			res.Err = errors.Wrapf(err, "diff %s", l.host)
			continue
		}
		res.Additions = len(additions)
		if len(additions) == 0 {
			log.Debugw("No changes needed", logger.FieldHost, l.host)
			continue
		}
		if s.DryRun {
			log.Infow("Changes not sent (dry run)", logger.FieldHost, l.host, logger.FieldCount, len(additions))
			continue
		}

		g.Go(func() error {
			if err := s.Push(gctx, l.host, additions); err != nil {
				res.Err = err
				log.Warnw("Push failed", logger.FieldHost, l.host, logger.FieldError, err)
				return nil
			}
			res.Pushed = true
			return nil
		})
	}
	g.Wait()

	for _, l := range lists {
		if l.err == nil {
			s.cache(l.host, l.raw)
		}
	}

	log.Infow("Sync pass complete",
		"master", summary.Master,
		"hosts", len(hosts),
		"failed", len(summary.Failed()),
		logger.FieldDurationMS, time.Since(start).Milliseconds())

	if err := ctx.Err(); err != nil {
		return summary, errors.Wrap(err, "sync pass cancelled")
	}
	return summary, nil
}

// Run repeats Pass every wait until ctx is cancelled. onPass, if not nil,
// receives each summary.
func (s *Syncer) Run(ctx context.Context, wait time.Duration, onPass func(Summary)) error {
	if err := s.Validate(); err != nil {
		return err
	}

	for {
		summary, err := s.Pass(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return err
		}
		if onPass != nil {
			onPass(summary)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log().Infow("Sync stopped")
			return nil
		case <-timer.C:
		}
	}
}

// Fetch downloads a host's safelist.
func (s *Syncer) Fetch(ctx context.Context, host string) ([]safelist.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url(host, ExportPath), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", host)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.do(ctx, host, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(host, resp)
	}

	entries, err := safelist.Decode(resp.Body, safelist.FormatJSON)
	if err != nil {
		return nil, errors.Wrapf(err, "decode safelist from %s", host)
	}

	s.log().Debugw("Fetched safelist", logger.FieldHost, host, logger.FieldCount, len(entries))
	return entries, nil
}

// Push sends entries to a host's import endpoint.
func (s *Syncer) Push(ctx context.Context, host string, entries []safelist.Entry) error {
	body, err := safelist.Marshal(entries, safelist.FormatJSON)
	if err != nil {
		return errors.Wrap(err, "encode additions")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url(host, ImportPath), bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "build request for %s", host)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.do(ctx, host, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return statusError(host, resp)
	}
	io.Copy(io.Discard, resp.Body)

	s.log().Infow("Pushed safelist entries", logger.FieldHost, host, logger.FieldCount, len(entries))
	return nil
}

func (s *Syncer) do(ctx context.Context, host string, req *http.Request) (*http.Response, error) {
	if err := s.limiter(host).Wait(ctx); err != nil {
		return nil, errors.Wrapf(err, "rate limit %s", host)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL)
	}
	return resp, nil
}

func statusError(host string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := errors.Newf("%s: unexpected status %d", host, resp.StatusCode)
	if len(bytes.TrimSpace(snippet)) > 0 {
		err = errors.WithDetail(err, string(snippet))
	}
	return err
}

func (s *Syncer) cache(host string, raw []safelist.Entry) {
	if s.CacheDir == "" || len(raw) == 0 {
		return
	}
	log := s.log()

	if err := os.MkdirAll(s.CacheDir, 0750); err != nil {
		log.Warnw("Cannot create cache directory", logger.FieldPath, s.CacheDir, logger.FieldError, err)
		return
	}
	data, err := safelist.Marshal(raw, safelist.FormatJSON)
	if err != nil {
		log.Warnw("Cannot encode cache", logger.FieldHost, host, logger.FieldError, err)
		return
	}
	path := CachePath(s.CacheDir, host)
	if err := fileio.WriteAtomic(path, data, 0640); err != nil {
		log.Warnw("Cannot write cache", logger.FieldPath, path, logger.FieldError, err)
		return
	}
	log.Debugw("Cached safelist", logger.FieldHost, host, logger.FieldPath, path)
}

// CachePath returns the file holding the cached list of host.
func CachePath(dir, host string) string {
	return filepath.Join(dir, host+".whitelist.json")
}

func (s *Syncer) url(host, path string) string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, path)
}

func (s *Syncer) limiter(host string) *rate.Limiter {
	s.limitersMu.Lock()
	defer s.limitersMu.Unlock()

	if s.limiters == nil {
		s.limiters = make(map[string]*rate.Limiter)
	}
	lim, ok := s.limiters[host]
	if !ok {
		limit := rate.Inf
		if s.RequestsPerSecond > 0 {
			limit = rate.Limit(s.RequestsPerSecond)
		}
		lim = rate.NewLimiter(limit, 1)
		s.limiters[host] = lim
	}
	return lim
}

func (s *Syncer) concurrency() int {
	if s.Concurrency < 1 {
		return 1
	}
	return s.Concurrency
}

func (s *Syncer) log() *zap.SugaredLogger {
	if s.Logger == nil {
		return zap.NewNop().Sugar()
	}
	return s.Logger
}

const (
	roleSource    = "source"
	roleRecipient = "recipient"
)

type hostRole struct {
	host string
	role string
}

// hosts lists sources then recipients, each once. A host named as both is
// a source; those hosts are also returned in both.
func (s *Syncer) hosts() (out []hostRole, both []string) {
	seen := make(map[string]bool)
	for _, h := range s.Sources {
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, hostRole{h, roleSource})
	}
	for _, h := range s.Recipients {
		if h == "" {
			continue
		}
		if seen[h] {
			both = append(both, h)
			continue
		}
		seen[h] = true
		out = append(out, hostRole{h, roleRecipient})
	}
	return out, both
}
