// Package artifact persists the digest JSON that links the fetch pipeline to
// the delivery pipeline. A successful Write is the signal that gates the
// seen-ledger commit.
package artifact

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
	"github.com/realikechukwu/cardiology-feed/internal/ports"
)

// Store reads and writes the digest artifact at a fixed path.
type Store struct {
	path string
}

var _ ports.ArtifactStore = (*Store)(nil)

// NewStore points the store at the artifact path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Write replaces the artifact atomically: temp file in the same directory,
// then rename, so a crash mid-write cannot leave a half-written digest for
// the delivery pipeline to read.
func (s *Store) Write(_ context.Context, payload domain.DigestPayload) error {
	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal digest: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace artifact: %w", err)
	}
	return nil
}

// Read loads the artifact. A missing artifact is an error: the delivery
// pipeline has nothing to work from without a prior fetch.
func (s *Store) Read(_ context.Context) (domain.DigestPayload, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return domain.DigestPayload{}, fmt.Errorf("read artifact %s: %w", s.path, err)
	}
	var payload domain.DigestPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.DigestPayload{}, fmt.Errorf("parse artifact %s: %w", s.path, err)
	}
	return payload, nil
}
