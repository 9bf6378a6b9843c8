package devenv

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"vtop-timetable/pkg/configutil"
)

const (
	moduleName  = "vtop-timetable"
	statePrefix = "<dev_state>"
)

var moduleLine = regexp.MustCompile(`(?m)^module\s+(\S+)\s*$`)

func isWorkspaceRoot(dir string) bool {
	mod, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return false
	}
	match := moduleLine.FindSubmatch(mod)
	return len(match) == 2 && string(match[1]) == moduleName
}

func findWorkspaceRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for !isWorkspaceRoot(dir) {
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s go.mod above %s: %w", moduleName, start, os.ErrNotExist)
		}
		dir = parent
	}
	return dir, nil
}

// GetWorkspaceRoot is the directory holding this module's go.mod, searched
// for from the working directory upwards.
func GetWorkspaceRoot() (string, error) {
	return findWorkspaceRoot(".")
}

func stateDir() (string, error) {
	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "dev", ".state"), nil
}

func GetStateFilePath(name string) (string, error) {
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// GetStateConfig reads a json5 config (and its .local override) out of dev/.state.
func GetStateConfig[T any](name string) (T, error) {
	path, err := GetStateFilePath(name)
	if err != nil {
		var out T
		return out, err
	}
	return configutil.ReadConfig[T](path)
}

// ResolvePath expands a leading <dev_state> into dev/.state, creating the
// directory. Any other path is returned as is.
func ResolvePath(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, statePrefix)
	if !ok {
		return path, nil
	}
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	err = os.MkdirAll(dir, 0777)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, rest), nil
}
