package domain

import (
	"strings"
	"time"
)

// Article is a single literature record fetched from PubMed.
type Article struct {
	PMID     string   `json:"pmid"`
	DOI      string   `json:"doi"`
	Title    string   `json:"title"`
	Journal  string   `json:"journal"`
	PubDate  PubDate  `json:"pub_date"`
	Abstract string   `json:"abstract"`
	PubTypes []string `json:"publication_types"`
	Category Category `json:"category"`
	Authors  []string `json:"authors"`
	URL      string   `json:"url"`
}

// HasAbstract reports whether the record carries usable abstract text.
func (a Article) HasAbstract() bool {
	return strings.TrimSpace(a.Abstract) != ""
}

// Merge folds a duplicate observation of the same PMID into the receiver.
// Scalar fields keep the first non-empty value; publication types are
// unioned preserving first-seen order. Merging is idempotent, so a merged
// record classifies the same no matter how often its duplicates arrive.
func (a Article) Merge(other Article) Article {
	if a.DOI == "" {
		a.DOI = other.DOI
	}
	if a.Title == "" {
		a.Title = other.Title
	}
	if a.Journal == "" {
		a.Journal = other.Journal
	}
	if a.PubDate.IsZero() {
		a.PubDate = other.PubDate
	}
	if a.Abstract == "" {
		a.Abstract = other.Abstract
	}
	if a.URL == "" {
		a.URL = other.URL
	}
	a.PubTypes = unionStrings(a.PubTypes, other.PubTypes)
	if len(a.Authors) == 0 {
		a.Authors = other.Authors
	}
	return a
}

func unionStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range base {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	for _, s := range extra {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Category is the fixed classification taxonomy. It is assigned exactly once
// per record, at the PubMed boundary, and never changes afterwards.
type Category string

const (
	CategoryPriority           Category = "priority"
	CategoryPriorityNoAbstract Category = "priority_no_abstract"
	CategoryStandard           Category = "standard"
	CategoryLowPriority        Category = "low_priority"
	CategoryExcluded           Category = "excluded"
)

// Summary is the structured editorial note produced per featured article.
type Summary struct {
	StudyType string `json:"study_type"`
	Finding   string `json:"finding"`
	SoWhat    string `json:"so_what"`
}

// FeaturedArticle pairs a selected article with its generated summary.
type FeaturedArticle struct {
	Article Article
	Summary Summary
}

// CategoryStats counts routing outcomes for one run.
type CategoryStats struct {
	Priority    int `json:"priority"`
	Standard    int `json:"standard"`
	NeedsReview int `json:"needs_review"`
	Excluded    int `json:"excluded"`
}

// DigestPayload is the artifact written by the fetch pipeline and read back
// by the delivery pipeline.
type DigestPayload struct {
	GeneratedAt  time.Time     `json:"generated_at"`
	Days         int           `json:"days"`
	Journals     []string      `json:"journals"`
	TotalFetched int           `json:"total_fetched"`
	DigestCount  int           `json:"digest_count"`
	Statistics   CategoryStats `json:"statistics"`
	Articles     []Article     `json:"articles"`
	Excluded     []Article     `json:"excluded_articles"`
}

// Disposition records where a record finally landed in one run.
type Disposition string

const (
	DispositionSurfaced       Disposition = "surfaced"
	DispositionFeatured       Disposition = "featured"
	DispositionListed         Disposition = "listed"
	DispositionDedupedSeen    Disposition = "deduped_seen"
	DispositionDedupedSent    Disposition = "deduped_sent"
	DispositionExcludedPolicy Disposition = "excluded_policy"
	DispositionNeedsReview    Disposition = "needs_review"
	DispositionSummaryFailed  Disposition = "summary_failed"
)

// RecordDisposition is one row of the per-run audit trail.
type RecordDisposition struct {
	PMID        string
	Title       string
	Category    Category
	Disposition Disposition
}

// Email is a rendered digest message ready for delivery.
type Email struct {
	Subject  string
	TextBody string
	HTMLBody string
}
