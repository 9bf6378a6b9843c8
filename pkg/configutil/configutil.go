package configutil

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// localName turns config.json5 into config.local.json5.
func localName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + ".local" + ext
}

// decodeFile unmarshals the json5 file at `path` into `out`, found is false
// when the file does not exist or is empty.
func decodeFile(path string, out any) (found bool, err error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig reads the json5 file `name` and merges `<name>.local.<ext>` over
// it when present. It returns os.ErrNotExist only when neither file exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found, err := decodeFile(name, &out)
	if err != nil {
		return out, err
	}

	local := localName(name)
	var override T
	foundLocal, err := decodeFile(local, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", local, err)
		}
		slog.Debug("merged local config overrides", "local", local)
	}

	if !found && !foundLocal {
		return out, os.ErrNotExist
	}
	return out, nil
}

// ReadRecursively looks for the relative config `name` in `start` and each of
// its parents, returning the first one found along with its path.
func ReadRecursively[T any](start, name string) (T, string, error) {
	var out T
	dir, err := filepath.Abs(start)
	if err != nil {
		return out, "", err
	}

	for {
		path := filepath.Join(dir, name)
		config, err := ReadConfig[T](path)
		if err == nil {
			return config, path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return out, "", err
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return out, "", os.ErrNotExist
		}
		dir = parent
	}
}
