package digest

import (
	"github.com/realikechukwu/cardiology-feed/internal/classify"
	"github.com/realikechukwu/cardiology-feed/internal/domain"
)

// Select partitions a bucket into a bounded summarisation subset and the
// headline remainder. The ranking is a fixed concatenation, no numeric score:
//
//  1. priority studies (RCTs, meta-analyses, systematic reviews, cohorts),
//  2. other priority-category articles,
//  3. standard articles,
//
// each partition preserving its input order. Only records whose abstract
// reaches minAbstractLen are eligible for summarisation; everything else in
// the full ordering, short abstracts included, falls through to remainder.
func Select(bucket []domain.Article, maxEnrich, minAbstractLen int) (enrich, remainder []domain.Article) {
	ordered := rank(bucket)

	if maxEnrich < 0 {
		maxEnrich = 0
	}

	// Chosen records are tracked by slot identity, not PMID: identifier-based
	// membership would merge all empty-PMID records into one.
	chosen := make(map[*domain.Article]struct{}, maxEnrich)
	enrich = make([]domain.Article, 0, maxEnrich)
	for _, a := range ordered {
		if len(enrich) == maxEnrich {
			break
		}
		if len(a.Abstract) < minAbstractLen {
			continue
		}
		chosen[a] = struct{}{}
		enrich = append(enrich, *a)
	}

	remainder = make([]domain.Article, 0, len(ordered)-len(enrich))
	for _, a := range ordered {
		if _, ok := chosen[a]; ok {
			continue
		}
		remainder = append(remainder, *a)
	}
	return enrich, remainder
}

// rank produces the full selection ordering as pointers into a copy of the
// bucket, so identity survives the partition shuffle.
func rank(bucket []domain.Article) []*domain.Article {
	items := make([]domain.Article, len(bucket))
	copy(items, bucket)

	var priorityStudies, otherPriority, standard, rest []*domain.Article
	for i := range items {
		a := &items[i]
		switch {
		case classify.IsPriorityStudy(*a):
			priorityStudies = append(priorityStudies, a)
		case a.Category == domain.CategoryPriority:
			otherPriority = append(otherPriority, a)
		case a.Category == domain.CategoryStandard:
			standard = append(standard, a)
		default:
			rest = append(rest, a)
		}
	}

	ordered := make([]*domain.Article, 0, len(items))
	ordered = append(ordered, priorityStudies...)
	ordered = append(ordered, otherPriority...)
	ordered = append(ordered, standard...)
	ordered = append(ordered, rest...)
	return ordered
}

// CountRCTs reports how many articles in the bucket are randomised
// controlled trials, for the digest header.
func CountRCTs(bucket []domain.Article) int {
	var n int
	for _, a := range bucket {
		if classify.IsRCT(a) {
			n++
		}
	}
	return n
}
