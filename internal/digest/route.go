// Package digest holds the pure pipeline stages that turn classified
// articles into a deliverable digest: routing into disjoint buckets,
// dedupe against a ledger snapshot, and bounded selection for summarisation.
// Every stage takes and returns values; only the orchestrator touches state.
package digest

import "github.com/realikechukwu/cardiology-feed/internal/domain"

// Buckets groups one run's articles by routing outcome. The three buckets
// are disjoint and together cover every input record.
type Buckets struct {
	Digest      []domain.Article
	NeedsReview []domain.Article
	Excluded    []domain.Article
}

// Route distributes classified articles into buckets, preserving input order
// within each bucket. Records without abstracts have nothing to summarise or
// list, so unless includeLowQuality is set they are discarded rather than
// surfaced half-empty.
func Route(articles []domain.Article, includeLowQuality bool) Buckets {
	var b Buckets
	for _, a := range articles {
		switch a.Category {
		case domain.CategoryExcluded:
			b.Excluded = append(b.Excluded, a)
		case domain.CategoryPriority, domain.CategoryStandard:
			b.Digest = append(b.Digest, a)
		case domain.CategoryPriorityNoAbstract, domain.CategoryLowPriority:
			if includeLowQuality {
				b.NeedsReview = append(b.NeedsReview, a)
			} else {
				b.Excluded = append(b.Excluded, a)
			}
		default:
			b.Excluded = append(b.Excluded, a)
		}
	}
	return b
}

// Stats counts routing outcomes for reporting and the artifact payload.
func Stats(b Buckets) domain.CategoryStats {
	stats := domain.CategoryStats{
		NeedsReview: len(b.NeedsReview),
		Excluded:    len(b.Excluded),
	}
	for _, a := range b.Digest {
		if a.Category == domain.CategoryPriority {
			stats.Priority++
		} else {
			stats.Standard++
		}
	}
	return stats
}
