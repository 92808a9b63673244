// Package classify assigns digest categories to articles based on their
// PubMed publication types and abstract availability. Classification is a
// pure function of those two inputs; it never looks at run history.
package classify

import (
	"strings"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
)

// priorityPubTypes marks substantive original research and reviews.
var priorityPubTypes = map[string]struct{}{
	"clinical trial":              {},
	"randomized controlled trial": {},
	"multicenter study":           {},
	"meta-analysis":               {},
	"systematic review":           {},
	"observational study":         {},
	"comparative study":           {},
	"review":                      {},
}

// excludePubTypes marks non-substantive content that never enters the digest,
// even when the same record also carries a priority type (a "Comment" on a
// trial keeps both tags, and the exclude intent dominates).
var excludePubTypes = map[string]struct{}{
	"editorial":                 {},
	"comment":                   {},
	"letter":                    {},
	"news":                      {},
	"published erratum":         {},
	"retraction of publication": {},
	"retracted publication":     {},
}

// Classify maps a record's publication types and abstract availability to a
// category. Total: every input yields exactly one category. The rules apply
// in fixed order because a publication-type set can match more than one.
func Classify(pubTypes []string, hasAbstract bool) domain.Category {
	var hasPriority bool
	for _, pt := range pubTypes {
		normalized := normalizeType(pt)
		if _, ok := excludePubTypes[normalized]; ok {
			return domain.CategoryExcluded
		}
		if _, ok := priorityPubTypes[normalized]; ok {
			hasPriority = true
		}
	}

	if hasPriority {
		if hasAbstract {
			return domain.CategoryPriority
		}
		return domain.CategoryPriorityNoAbstract
	}

	if hasAbstract {
		return domain.CategoryStandard
	}
	return domain.CategoryLowPriority
}

// Article classifies a full record.
func Article(a domain.Article) domain.Category {
	return Classify(a.PubTypes, a.HasAbstract())
}

func normalizeType(pt string) string {
	return strings.ToLower(strings.TrimSpace(pt))
}
