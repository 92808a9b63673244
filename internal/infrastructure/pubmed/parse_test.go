package pubmed

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
)

const fullArticleXML = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID>12345678</PMID>
      <Article>
        <Journal>
          <Title>Circulation</Title>
          <JournalIssue>
            <PubDate><Year>2026</Year><Month>Feb</Month></PubDate>
          </JournalIssue>
        </Journal>
        <ArticleTitle>Effect of <i>SGLT2</i> inhibition on HFpEF outcomes</ArticleTitle>
        <Abstract>
          <AbstractText Label="BACKGROUND">Heart failure burden is rising.</AbstractText>
          <AbstractText Label="RESULTS">The primary endpoint fell by 20% (HR 0.80).</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Nguyen</LastName><ForeName>Thanh</ForeName></Author>
          <Author><LastName>Okafor</LastName><ForeName>Ada</ForeName></Author>
          <Author><LastName>Silva</LastName><ForeName>Marco</ForeName></Author>
          <Author><LastName>Fourth</LastName><ForeName>Author</ForeName></Author>
        </AuthorList>
        <PublicationTypeList>
          <PublicationType>Journal Article</PublicationType>
          <PublicationType>Randomized Controlled Trial</PublicationType>
        </PublicationTypeList>
        <ArticleDate DateType="Electronic">
          <Year>2026</Year><Month>01</Month><Day>15</Day>
        </ArticleDate>
      </Article>
      <MedlineJournalInfo><MedlineTA>Circulation</MedlineTA></MedlineJournalInfo>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">12345678</ArticleId>
        <ArticleId IdType="doi">10.1161/CIRC.2026.012345</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

func decodeSet(t *testing.T, raw string) articleSet {
	t.Helper()
	var set articleSet
	if err := xml.Unmarshal([]byte(raw), &set); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return set
}

func TestToDomainFullRecord(t *testing.T) {
	t.Parallel()

	set := decodeSet(t, fullArticleXML)
	if len(set.Articles) != 1 {
		t.Fatalf("articles = %d, want 1", len(set.Articles))
	}
	a := set.Articles[0].toDomain()

	if a.PMID != "12345678" {
		t.Fatalf("pmid = %q", a.PMID)
	}
	if a.Title != "Effect of SGLT2 inhibition on HFpEF outcomes" {
		t.Fatalf("inline markup not flattened: %q", a.Title)
	}
	if a.Journal != "Circulation" {
		t.Fatalf("journal = %q", a.Journal)
	}
	if a.DOI != "10.1161/CIRC.2026.012345" {
		t.Fatalf("doi = %q", a.DOI)
	}
	if a.URL != "https://pubmed.ncbi.nlm.nih.gov/12345678/" {
		t.Fatalf("url = %q", a.URL)
	}
	if got := a.PubDate.String(); got != "2026-01-15" {
		t.Fatalf("electronic date should win: %q", got)
	}
	if len(a.PubTypes) != 2 || a.PubTypes[1] != "Randomized Controlled Trial" {
		t.Fatalf("pub types = %v", a.PubTypes)
	}

	wantAbstract := "BACKGROUND: Heart failure burden is rising.\nRESULTS: The primary endpoint fell by 20% (HR 0.80)."
	if a.Abstract != wantAbstract {
		t.Fatalf("abstract = %q", a.Abstract)
	}

	wantAuthors := []string{"Nguyen T", "Okafor A", "Silva M"}
	if len(a.Authors) != 3 {
		t.Fatalf("authors = %v, want 3", a.Authors)
	}
	for i, author := range a.Authors {
		if author != wantAuthors[i] {
			t.Fatalf("authors = %v, want %v", a.Authors, wantAuthors)
		}
	}
}

func TestParsePubDateFallbackChain(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   articleXML
		want string
	}{
		{
			name: "electronic date",
			in: articleXML{
				ArticleDate: articleDateXML{Year: "2026", Month: "03", Day: "02"},
				JournalDate: pubDateXML{Year: "2025", Month: "Dec"},
			},
			want: "2026-03-02",
		},
		{
			name: "journal full date with month name",
			in: articleXML{
				JournalDate: pubDateXML{Year: "2026", Month: "Feb", Day: "10"},
			},
			want: "2026-02-10",
		},
		{
			name: "journal year and month",
			in: articleXML{
				JournalDate: pubDateXML{Year: "2026", Month: "Jan"},
			},
			want: "2026-01",
		},
		{
			name: "unknown month renders zero",
			in: articleXML{
				JournalDate: pubDateXML{Year: "2026", Month: "Winter"},
			},
			want: "2026-00",
		},
		{
			name: "year only",
			in: articleXML{
				JournalDate: pubDateXML{Year: "2025"},
			},
			want: "2025",
		},
		{
			name: "medline date text",
			in: articleXML{
				JournalDate: pubDateXML{MedlineDate: "2025 Nov-Dec"},
			},
			want: "2025 Nov-Dec",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := parsePubDate(tc.in).String(); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestJoinAbstractUnlabeled(t *testing.T) {
	t.Parallel()

	got := joinAbstract([]abstractText{
		{Text: "Plain abstract body."},
		{Label: "", Text: ""},
	})
	if got != "Plain abstract body." {
		t.Fatalf("abstract = %q", got)
	}
}

func TestMergeByPMID(t *testing.T) {
	t.Parallel()

	in := []domain.Article{
		{PMID: "1", Title: "Primary record", PubTypes: []string{"Journal Article"}},
		{PMID: "2", Title: "Other"},
		{PMID: "1", Abstract: "filled in later", PubTypes: []string{"Randomized Controlled Trial"}},
		{PMID: "", Title: "no id A"},
		{PMID: "", Title: "no id B"},
	}

	out := mergeByPMID(in)
	if len(out) != 4 {
		t.Fatalf("merged = %d records, want 4", len(out))
	}
	if out[0].PMID != "1" || out[0].Abstract != "filled in later" {
		t.Fatalf("merge did not union fields: %+v", out[0])
	}
	if len(out[0].PubTypes) != 2 {
		t.Fatalf("merge did not union pub types: %v", out[0].PubTypes)
	}
	if out[2].Title != "no id A" || out[3].Title != "no id B" {
		t.Fatal("records without PMIDs must never merge")
	}
}

func TestJournalQuery(t *testing.T) {
	t.Parallel()

	got := journalQuery([]string{"Circulation", "Eur Heart J"})
	want := `("Circulation"[jour] OR "Eur Heart J"[jour])`
	if got != want {
		t.Fatalf("query = %s, want %s", got, want)
	}
}

func TestMonthNumber(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":        "",
		"2":       "2",
		"11":      "11",
		"Jan":     "1",
		"January": "1",
		"Dec":     "12",
		"Winter":  "0",
	}
	for in, want := range cases {
		if got := monthNumber(in); got != want {
			t.Fatalf("monthNumber(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFlatTextKeepsNestedText(t *testing.T) {
	t.Parallel()

	var v struct {
		Title flatText `xml:"ArticleTitle"`
	}
	raw := `<x><ArticleTitle>Effects of beta<sub>1</sub>-blockade <i>in vivo</i></ArticleTitle></x>`
	if err := xml.Unmarshal([]byte(raw), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := string(v.Title); !strings.Contains(got, "beta1-blockade") || !strings.Contains(got, "in vivo") {
		t.Fatalf("flattened title = %q", got)
	}
}
