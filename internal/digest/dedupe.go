package digest

import (
	"strings"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
)

// Membership is the read side of a ledger: set membership over identifiers.
type Membership interface {
	Contains(id string) bool
}

// Dedupe filters a bucket against a ledger snapshot, keeping input order.
// Records without a usable PMID are always kept: they cannot be re-identified
// across runs, and silently dropping them would lose data. The stage never
// mutates the ledger; growth is the orchestrator's job, after the downstream
// side effect has succeeded.
func Dedupe(bucket []domain.Article, seen Membership) (kept []domain.Article, removed int) {
	if seen == nil {
		return bucket, 0
	}
	kept = make([]domain.Article, 0, len(bucket))
	for _, a := range bucket {
		id := strings.TrimSpace(a.PMID)
		if id != "" && seen.Contains(id) {
			removed++
			continue
		}
		kept = append(kept, a)
	}
	return kept, removed
}
