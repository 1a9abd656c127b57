package fs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sokinpui/xtf/model"
)

// ApplyError reports a filesystem mutation that could not be completed.
type ApplyError struct {
	Path string // resolved absolute target
	Op   model.Operation
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("%s %s: %v", strings.ToLower(string(e.Op)), e.Path, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// Resolve returns the absolute target path for a document path: absolute
// paths are used verbatim, relative paths are joined under root.
func Resolve(path, root string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

// Apply performs the filesystem mutation a change requests against root. The
// resolved absolute path is returned on failure too, so callers can still
// report where the operation targeted.
func Apply(change model.FileChange, root string) (string, error) {
	target := Resolve(change.Path, root)

	switch change.Operation {
	case model.OpCreate, model.OpUpdate:
		if err := writeFile(target, []byte(change.Code)); err != nil {
			return target, &ApplyError{Path: target, Op: change.Operation, Err: err}
		}
	case model.OpDelete:
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return target, &ApplyError{Path: target, Op: change.Operation, Err: err}
		}
	default:
		return target, &ApplyError{Path: target, Op: change.Operation, Err: errors.New("unsupported operation")}
	}
	return target, nil
}

// writeFile replaces target's content in full, creating missing parent
// directories. The content goes to a temporary file in the same directory
// first and is renamed into place, so a failed write never leaves a
// truncated target behind.
func writeFile(target string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

// GetFileSHA256 returns the hex SHA-256 of a file's content.
func GetFileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
