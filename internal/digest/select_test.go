package digest

import (
	"strings"
	"testing"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
)

func longAbstract() string {
	return strings.Repeat("Outcome data for the intervention arm. ", 8)
}

func TestSelectOrdering(t *testing.T) {
	t.Parallel()

	bucket := []domain.Article{
		{PMID: "std", Category: domain.CategoryStandard, Abstract: longAbstract()},
		{PMID: "prio", Category: domain.CategoryPriority, Abstract: longAbstract()},
		{PMID: "rct", Category: domain.CategoryPriority, Abstract: longAbstract(),
			PubTypes: []string{"Randomized Controlled Trial"}},
	}

	enrich, remainder := Select(bucket, 10, 200)
	if len(enrich) != 3 || len(remainder) != 0 {
		t.Fatalf("enrich=%d remainder=%d, want 3/0", len(enrich), len(remainder))
	}
	want := []string{"rct", "prio", "std"}
	for i, a := range enrich {
		if a.PMID != want[i] {
			t.Fatalf("enrich[%d] = %s, want %s", i, a.PMID, want[i])
		}
	}
}

func TestSelectBounded(t *testing.T) {
	t.Parallel()

	var bucket []domain.Article
	for i := 0; i < 25; i++ {
		bucket = append(bucket, domain.Article{
			PMID:     strings.Repeat("9", i+1),
			Category: domain.CategoryPriority,
			Abstract: longAbstract(),
		})
	}

	enrich, remainder := Select(bucket, 10, 200)
	if len(enrich) != 10 {
		t.Fatalf("enrich = %d, want 10", len(enrich))
	}
	if len(enrich)+len(remainder) != len(bucket) {
		t.Fatalf("selection lost records: %d + %d != %d", len(enrich), len(remainder), len(bucket))
	}
}

func TestSelectShortAbstractsFallThrough(t *testing.T) {
	t.Parallel()

	short := "Brief structured summary under the minimum length."
	bucket := []domain.Article{
		{PMID: "r1", Category: domain.CategoryPriority, Abstract: short,
			PubTypes: []string{"Randomized Controlled Trial"}},
		{PMID: "r2", Category: domain.CategoryPriority, Abstract: short,
			PubTypes: []string{"Randomized Controlled Trial"}},
		{PMID: "s1", Category: domain.CategoryStandard, Abstract: short},
	}

	enrich, remainder := Select(bucket, 1, 200)
	if len(enrich) != 0 {
		t.Fatalf("no abstract reaches the minimum, enrich = %d", len(enrich))
	}
	if len(remainder) != 3 {
		t.Fatalf("remainder = %d, want 3", len(remainder))
	}
	if remainder[0].PMID != "r1" || remainder[1].PMID != "r2" {
		t.Fatalf("priority studies must lead the remainder: %s, %s",
			remainder[0].PMID, remainder[1].PMID)
	}
}

func TestSelectEmptyPMIDIdentity(t *testing.T) {
	t.Parallel()

	bucket := []domain.Article{
		{PMID: "", Title: "first untitled", Category: domain.CategoryStandard, Abstract: longAbstract()},
		{PMID: "", Title: "second untitled", Category: domain.CategoryStandard, Abstract: longAbstract()},
	}

	enrich, remainder := Select(bucket, 1, 200)
	if len(enrich) != 1 || len(remainder) != 1 {
		t.Fatalf("enrich=%d remainder=%d, want 1/1", len(enrich), len(remainder))
	}
	if enrich[0].Title == remainder[0].Title {
		t.Fatalf("empty-PMID records collapsed: both %q", enrich[0].Title)
	}
}

func TestSelectNegativeMax(t *testing.T) {
	t.Parallel()

	bucket := []domain.Article{{PMID: "1", Category: domain.CategoryStandard, Abstract: longAbstract()}}
	enrich, remainder := Select(bucket, -3, 200)
	if len(enrich) != 0 || len(remainder) != 1 {
		t.Fatalf("enrich=%d remainder=%d, want 0/1", len(enrich), len(remainder))
	}
}

func TestCountRCTs(t *testing.T) {
	t.Parallel()

	bucket := []domain.Article{
		{PMID: "1", PubTypes: []string{"Randomized Controlled Trial"}},
		{PMID: "2", Title: "A randomized controlled trial of early ablation"},
		{PMID: "3", PubTypes: []string{"Editorial"}},
	}
	if n := CountRCTs(bucket); n != 2 {
		t.Fatalf("CountRCTs = %d, want 2", n)
	}
}
