package safelist

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/activecm/genhash/errors"
)

// Format is the textual encoding of a safelist file.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the format from a file extension; anything that is not
// .yaml or .yml is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode reads a whole safelist. A JSON null decodes to an empty list.
func Decode(r io.Reader, format Format) ([]Entry, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read safelist")
	}
	return Unmarshal(data, format)
}

// Unmarshal parses a safelist document.
func Unmarshal(data []byte, format Format) ([]Entry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.Wrap(errors.ErrMalformedList, "empty document")
	}

	if format == FormatYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, errors.Wrap(errors.ErrMalformedList, err.Error())
		}
		data = converted
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(errors.ErrMalformedList, err.Error())
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// Marshal encodes a safelist. JSON output is compact, matching the exporter.
func Marshal(entries []Entry, format Format) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, errors.Wrap(err, "marshal safelist")
	}
	if format == FormatJSON {
		return data, nil
	}
	return jsonToYAML(data)
}

// Encode writes a safelist to w.
func Encode(w io.Writer, entries []Entry, format Format) error {
	data, err := Marshal(entries, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return errors.Wrap(err, "write safelist")
}

// LoadFile reads a safelist file, choosing the format from its extension.
func LoadFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	entries, err := Decode(f, FormatFor(path))
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return entries, nil
}

// yamlToJSON re-encodes a YAML document as JSON so both formats share one
// decoding path, including Entry.Extra handling.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// jsonToYAML goes through a yaml.Node so scalars keep their exact text: a
// 64-bit hash must not come back as a float.
func jsonToYAML(data []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, errors.Wrap(err, "convert safelist to yaml")
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

// blockStyle drops the flow style JSON input carries on mappings and
// sequences, and the quotes on strings that read back unchanged without them.
func blockStyle(n *yaml.Node) {
	switch n.Kind {
	case yaml.MappingNode, yaml.SequenceNode:
		n.Style = 0
	case yaml.ScalarNode:
		if n.Tag == "!!str" && n.Style == yaml.DoubleQuotedStyle && plainSafe(n.Value) {
			n.Style = 0
		}
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func plainSafe(v string) bool {
	if v == "" || strings.ContainsAny(v, "\n\t") {
		return false
	}
	var out interface{}
	if err := yaml.Unmarshal([]byte(v), &out); err != nil {
		return false
	}
	s, ok := out.(string)
	return ok && s == v
}
