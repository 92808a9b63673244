// Package ledger persists the set of identifiers a pipeline concern has
// already processed. One ledger file per concern (seen vs. sent); each is
// loaded once per run, grown in memory, and saved once after the side effect
// it gates has succeeded.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Ledger is an in-memory snapshot of one concern's identifier set.
type Ledger struct {
	name string
	ids  map[string]struct{}
}

// New returns an empty ledger whose on-disk JSON key is name
// (e.g. "sent_pmids").
func New(name string) *Ledger {
	return &Ledger{name: name, ids: map[string]struct{}{}}
}

// Load reads a ledger file. A missing or unparsable file yields an empty
// ledger, never an error: dedupe fails open, because a lost ledger must not
// silently block all future delivery. Corruption is logged as a warning.
func Load(path, name string, logger *slog.Logger) *Ledger {
	l := New(name)

	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			warn(logger, "ledger unreadable, starting empty", "path", path, "error", err)
		}
		return l
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		warn(logger, "ledger corrupt, starting empty", "path", path, "error", err)
		return l
	}

	var ids []string
	if err := json.Unmarshal(payload[name], &ids); err != nil {
		warn(logger, "ledger has unexpected shape, starting empty", "path", path, "key", name, "error", err)
		return l
	}

	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		l.ids[id] = struct{}{}
	}
	return l
}

// Contains reports set membership.
func (l *Ledger) Contains(id string) bool {
	_, ok := l.ids[strings.TrimSpace(id)]
	return ok
}

// AddAll unions identifiers into the ledger and returns how many were new.
// Blank identifiers are never added; they cannot be re-identified later.
func (l *Ledger) AddAll(ids []string) int {
	var added int
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := l.ids[id]; ok {
			continue
		}
		l.ids[id] = struct{}{}
		added++
	}
	return added
}

// Len reports the number of identifiers held.
func (l *Ledger) Len() int {
	return len(l.ids)
}

// IDs returns the identifiers in sorted order.
func (l *Ledger) IDs() []string {
	out := make([]string, 0, len(l.ids))
	for id := range l.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Save writes the full ledger with a fresh timestamp. The write goes to a
// temp file in the same directory and is renamed over the target, so a crash
// mid-write leaves the previous valid content intact.
func (l *Ledger) Save(path string) error {
	payload := map[string]any{
		"updated_at": time.Now().UTC().Format(time.RFC3339),
		l.name:       l.IDs(),
	}

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

func warn(logger *slog.Logger, msg string, args ...any) {
	if logger != nil {
		logger.Warn(msg, args...)
	}
}
