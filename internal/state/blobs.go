package state

import (
	"bytes"
	"compress/zlib"
	"io"
	"os"
	"path/filepath"
)

const blobsDir = "blobs"

// writeBlob stores content under its hash, zlib-compressed. Blobs are
// content-addressed, so rewriting an existing one is harmless.
func (m *Manager) writeBlob(hash string, content []byte) error {
	dir := filepath.Join(m.StateDir, blobsDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(content); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, hash), b.Bytes(), 0644)
}

// readBlob returns the content stored under hash. The empty hash reads as
// empty content.
func (m *Manager) readBlob(hash string) ([]byte, error) {
	if hash == "" {
		return []byte{}, nil
	}

	data, err := os.ReadFile(filepath.Join(m.StateDir, blobsDir, hash))
	if err != nil {
		return nil, err
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}
