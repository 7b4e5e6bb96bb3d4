package am

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/activecm/genhash/errors"
	"github.com/activecm/genhash/internal/fileio"
)

// SetUserValue stores key = value in ~/.genhash/am.toml, keeping rotated
// backups of the previous file. The value is parsed to the type of the key's
// default; lists are comma separated.
func SetUserValue(key, value string) error {
	path := UserConfigPath()
	if path == "" {
		return errors.New("could not determine home directory")
	}
	return SetValue(path, key, value)
}

// SetValue stores key = value in the TOML file at path.
func SetValue(path, key, value string) error {
	defaults := newDefaultsViper()
	if !defaults.IsSet(key) {
		return errors.WithHint(
			errors.NewInvalidRequestError("unknown config key %q", key),
			"run 'genhash am show' to list keys",
		)
	}

	typed, err := parseValue(defaults.Get(key), value)
	if err != nil {
		return errors.Wrapf(err, "invalid value for %s", key)
	}

	config, err := loadOrInitialize(path)
	if err != nil {
		return err
	}

	parts := strings.Split(key, ".")
	section := config
	for _, p := range parts[:len(parts)-1] {
		next, ok := section[p].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			section[p] = next
		}
		section = next
	}
	section[parts[len(parts)-1]] = typed

	return save(config, path)
}

func loadOrInitialize(path string) (map[string]interface{}, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create config directory")
	}

	config := make(map[string]interface{})
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		return config, nil
	case err != nil:
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", path)
	}
	return config, nil
}

func save(config map[string]interface{}, path string) error {
	if err := fileio.Backup(path); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := fileio.WriteAtomic(path, data, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	return nil
}

func parseValue(like interface{}, value string) (interface{}, error) {
	switch like.(type) {
	case bool:
		return strconv.ParseBool(value)
	case int:
		return strconv.ParseInt(value, 10, 64)
	case float64:
		return strconv.ParseFloat(value, 64)
	case []string:
		items := []string{}
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}
