package am

import (
	"strings"

	"github.com/activecm/genhash/errors"
)

var knownAlgorithms = []string{"fnv64a", "xxh64"}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if !contains(knownAlgorithms, c.Genhash.Algorithm) {
		return errors.WithHintf(
			errors.Newf("genhash.algorithm must be one of %v, got %q", knownAlgorithms, c.Genhash.Algorithm),
			"fnv64a reproduces reference safelist hashes",
		)
	}

	// 0 = leave schema_version alone, negative = invalid
	if c.Genhash.DefaultSchemaVersion < 0 {
		return errors.Newf("genhash.default_schema_version must be >= 0, got %d", c.Genhash.DefaultSchemaVersion)
	}

	switch strings.ToLower(c.Verify.Policy) {
	case "unique", "first":
	default:
		return errors.Newf("verify.policy must be \"unique\" or \"first\", got %q", c.Verify.Policy)
	}
	if c.Verify.WatchDebounceMS < 0 {
		return errors.Newf("verify.watch_debounce_ms must be >= 0, got %d", c.Verify.WatchDebounceMS)
	}

	return c.Sync.validateLimits()
}

func (s SyncConfig) validateLimits() error {
	if s.WaitSeconds < 0 {
		return errors.Newf("sync.wait_seconds must be >= 0, got %d", s.WaitSeconds)
	}
	if s.TimeoutSeconds <= 0 {
		return errors.Newf("sync.timeout_seconds must be > 0, got %d", s.TimeoutSeconds)
	}
	// 0 = unlimited
	if s.RequestsPerSecond < 0 {
		return errors.Newf("sync.requests_per_second must be >= 0, got %g", s.RequestsPerSecond)
	}
	if s.Concurrency < 1 {
		return errors.Newf("sync.concurrency must be >= 1, got %d", s.Concurrency)
	}
	return nil
}

// ValidateSync checks the settings a sync run needs beyond Validate:
// at least one source, and at least two hosts in total.
func (s SyncConfig) ValidateSync() error {
	if err := s.validateLimits(); err != nil {
		return err
	}
	if len(s.Sources) == 0 {
		return errors.WithHint(
			errors.New("sync.sources is empty"),
			"list at least one host whose safelist should be shared",
		)
	}
	if len(s.Sources)+len(s.Recipients) < 2 {
		return errors.Newf("sync needs at least two hosts, got %d", len(s.Sources)+len(s.Recipients))
	}
	for _, h := range append(append([]string{}, s.Sources...), s.Recipients...) {
		if strings.TrimSpace(h) == "" {
			return errors.New("sync hosts must not be empty")
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
