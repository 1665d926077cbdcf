// Package blob stores downloaded project archives on local disk.
package blob

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Object describes a stored blob.
type Object struct {
	Key    string `json:"key"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Store keeps blobs under slash-separated keys.
type Store interface {
	Put(key string, r io.Reader) (Object, error)
	Open(key string) (io.ReadCloser, error)
	Delete(key string) error
	// Path is the local file for key.
	Path(key string) (string, error)
}

// Local is a Store rooted at a directory.
type Local struct {
	Root string
}

var _ Store = (*Local)(nil)

// Put writes r under key. An empty key gets a generated one under the
// current year/month. The file appears atomically.
func (s *Local) Put(key string, r io.Reader) (Object, error) {
	if key == "" {
		now := time.Now().UTC()
		key = fmt.Sprintf("%04d/%02d/%s", now.Year(), int(now.Month()), randomHex(16))
	}
	full, err := s.Path(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Object{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return Object{}, err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		return Object{}, err
	}
	return Object{Key: key, Size: n, SHA256: hex.EncodeToString(h.Sum(nil))}, nil
}

func (s *Local) Open(key string) (io.ReadCloser, error) {
	full, err := s.Path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (s *Local) Delete(key string) error {
	full, err := s.Path(key)
	if err != nil {
		return err
	}
	return os.Remove(full)
}

// Path resolves key inside Root. Keys that would escape Root are rejected.
func (s *Local) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("blob key %q is outside the store", key)
	}
	return filepath.Join(s.Root, clean), nil
}

// randomHex returns 2*n hex characters.
func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
