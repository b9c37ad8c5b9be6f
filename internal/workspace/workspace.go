// Package workspace manages the per-address artifact written during a run.
package workspace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for addresses that cannot be used as a file stem
var ErrInvalidName = errors.New("invalid file name")

// Workspace is a working directory holding one {address}.json file per contract
type Workspace struct {
	dir string
}

// New returns a workspace rooted at dir. Nothing is created until Ensure.
func New(dir string) *Workspace {
	return &Workspace{dir: dir}
}

// Dir returns the workspace root
func (w *Workspace) Dir() string {
	return w.dir
}

// Ensure creates the working directory and its parents. An existing
// directory is not an error.
func (w *Workspace) Ensure() error {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating working directory: %w", err)
	}
	return nil
}

// Path returns the artifact path for an address
func (w *Workspace) Path(address string) (string, error) {
	if address == "" || address == "." || address == ".." || strings.ContainsAny(address, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, address)
	}
	return filepath.Join(w.dir, address+".json"), nil
}

// WriteMetadata writes the raw lookup result pretty-printed with two-space
// indentation, replacing any previous file for the address.
func (w *Workspace) WriteMetadata(address string, raw json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "", fmt.Errorf("formatting lookup result: %w", err)
	}
	return w.write(address, buf.Bytes())
}

// WriteSource overwrites the address file with the normalized source text
func (w *Workspace) WriteSource(address, source string) (string, error) {
	return w.write(address, []byte(source))
}

func (w *Workspace) write(address string, data []byte) (string, error) {
	path, err := w.Path(address)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
