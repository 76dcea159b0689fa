// Package parser reads match, pairwise, player and ranking tables from CSV
// files and negotiates their schema before anything reaches the feature
// engine.
package parser

import (
	"compress/bzip2"
	"compress/gzip"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// readCloser pairs a (possibly decompressing) reader with the closers that
// release it and the file underneath.
type readCloser struct {
	io.Reader
	closers []func() error
}

func (r *readCloser) Close() error {
	var first error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open opens path for reading, decompressing .gz, .bz2 and .zst files.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	rc := &readCloser{Reader: f, closers: []func() error{f.Close}}

	switch {
	case strings.HasSuffix(path, ".bz2"):
		rc.Reader = bzip2.NewReader(f)
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("zstd: %w", err)
		}
		rc.Reader = dec
		rc.closers = append(rc.closers, func() error { dec.Close(); return nil })
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("gzip: %w", err)
		}
		rc.Reader = gz
		rc.closers = append(rc.closers, gz.Close)
	}
	return rc, nil
}

// HashFile returns the hex SHA-256 of the file's raw bytes, used as an
// idempotency key for imports.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
