package classify

import (
	"strings"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
)

// priorityStudyTypes is the structured-tag path of the priority-study
// detector. Broader than the RCT set: meta-analyses, systematic reviews and
// large cohorts rank alongside trials for featuring.
var priorityStudyTypes = map[string]struct{}{
	"randomized controlled trial": {},
	"randomised controlled trial": {},
	"clinical trial":              {},
	"meta-analysis":               {},
	"systematic review":           {},
	"multicenter study":           {},
	"observational study":         {},
	"cohort study":                {},
}

// priorityStudyPhrases is the text fallback used when PubMed tags are absent
// or incomplete. Matched against lowercased title+abstract.
var priorityStudyPhrases = []string{
	"randomized", "randomised", "meta-analysis", "meta analysis",
	"systematic review", "cohort study", "multicenter", "multicentre",
	"registry", "nationwide", "population-based",
}

var rctTypes = map[string]struct{}{
	"randomized controlled trial": {},
	"randomised controlled trial": {},
}

var rctPhrases = []string{
	"randomized controlled", "randomised controlled",
	"randomly assigned", "random assignment",
}

// IsPriorityStudy reports whether the article is a high-priority study type:
// RCT, meta-analysis, systematic review, or large cohort. Tags are checked
// first; the phrase fallback covers records whose tagging lags publication.
func IsPriorityStudy(a domain.Article) bool {
	if matchesTypes(a.PubTypes, priorityStudyTypes) {
		return true
	}
	return matchesPhrases(a, priorityStudyPhrases)
}

// IsRCT reports whether the article is specifically a randomised controlled
// trial. Narrower than IsPriorityStudy; drives the RCT badge and counts.
func IsRCT(a domain.Article) bool {
	if matchesTypes(a.PubTypes, rctTypes) {
		return true
	}
	return matchesPhrases(a, rctPhrases)
}

func matchesTypes(pubTypes []string, set map[string]struct{}) bool {
	for _, pt := range pubTypes {
		if _, ok := set[normalizeType(pt)]; ok {
			return true
		}
	}
	return false
}

func matchesPhrases(a domain.Article, phrases []string) bool {
	text := strings.ToLower(a.Title + " " + a.Abstract)
	for _, phrase := range phrases {
		if strings.Contains(text, phrase) {
			return true
		}
	}
	return false
}
