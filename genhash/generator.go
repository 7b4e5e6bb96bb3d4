package genhash

import (
	"go.uber.org/zap"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/logger"
	"github.com/activecm/genhash/safelist"
)

// DefaultSchemaVersion is assigned to entries written without one.
const DefaultSchemaVersion = 5

// Generator maps unhashed entries to hashed ones. It holds configuration
// only; every call to Generate is independent.
type Generator struct {
	hash   HashFunc
	logger *zap.SugaredLogger

	// DefaultSchemaVersion replaces a zero schema_version on entries that get
	// hashed. 0 leaves it alone.
	DefaultSchemaVersion int

	// Rehash recomputes entries that already carry a non-zero hash_key
	// instead of keeping the stored value.
	Rehash bool
}

// NewGenerator creates a generator using hash. A nil logger disables logging.
func NewGenerator(hash HashFunc, log *zap.SugaredLogger) *Generator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Generator{
		hash:                 hash,
		logger:               log,
		DefaultSchemaVersion: DefaultSchemaVersion,
	}
}

// Generate returns a new list holding every entry with hash_key populated.
// The first entry that cannot be hashed aborts the run; no partial list is
// returned.
func (g *Generator) Generate(entries []safelist.Entry) ([]safelist.Entry, error) {
	out := make([]safelist.Entry, len(entries))
	var generated, kept int

	for i, e := range entries {
		if e.Type == "" || e.Name == "" {
			return nil, errors.WithDetailf(
				errors.NewMalformedEntryError("entry %d: type and name are required", i),
				"type=%q name=%q", e.Type, e.Name,
			)
		}

		c := e.Clone()

		// Stored keys pass through untouched
		if c.HasHash() && !g.Rehash {
			kept++
			out[i] = c
			continue
		}

		if c.SchemaVersion == 0 && g.DefaultSchemaVersion > 0 {
			g.logger.Warnw("Schema version missing, using default",
				append(logger.EntryFields(i, c.Type, c.Name), "schema_version", g.DefaultSchemaVersion)...)
			c.SchemaVersion = g.DefaultSchemaVersion
		}

		key, err := g.hash(c)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d", i)
		}
		c.HashKey = &key
		out[i] = c
		generated++

		g.logger.Debugw("Hashed entry",
			append(logger.EntryFields(i, c.Type, c.Name), logger.FieldHashKey, key.String())...)
	}

	g.logger.Infow("Generated hash keys",
		logger.FieldCount, generated,
		"kept", kept,
		logger.FieldTotalCount, len(entries))

	return out, nil
}
