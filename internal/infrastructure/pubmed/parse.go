package pubmed

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
)

// flatText collects all character data under an element, dropping inline
// markup. PubMed titles and abstracts routinely carry <i>, <sup> and similar
// tags whose text must survive.
type flatText string

func (t *flatText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(v)
		}
	}
	*t = flatText(strings.TrimSpace(sb.String()))
	return nil
}

type articleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID      string     `xml:"MedlineCitation>PMID"`
	Article   articleXML `xml:"MedlineCitation>Article"`
	MedlineTA string     `xml:"MedlineCitation>MedlineJournalInfo>MedlineTA"`
	IDs       []articleID `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type articleXML struct {
	Title        flatText       `xml:"ArticleTitle"`
	JournalTitle flatText       `xml:"Journal>Title"`
	JournalDate  pubDateXML     `xml:"Journal>JournalIssue>PubDate"`
	ArticleDate  articleDateXML `xml:"ArticleDate"`
	Abstract     []abstractText `xml:"Abstract>AbstractText"`
	PubTypes     []string       `xml:"PublicationTypeList>PublicationType"`
	Authors      []authorXML    `xml:"AuthorList>Author"`
}

type articleDateXML struct {
	Year  string `xml:"Year"`
	Month string `xml:"Month"`
	Day   string `xml:"Day"`
}

type pubDateXML struct {
	Year        string `xml:"Year"`
	Month       string `xml:"Month"`
	Day         string `xml:"Day"`
	MedlineDate string `xml:"MedlineDate"`
}

type authorXML struct {
	LastName string `xml:"LastName"`
	ForeName string `xml:"ForeName"`
}

type articleID struct {
	Type  string `xml:"IdType,attr"`
	Value string `xml:",chardata"`
}

// abstractText keeps the section label alongside the flattened body so
// structured abstracts render as "LABEL: text" lines.
type abstractText struct {
	Label string
	Text  string
}

func (a *abstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var label, nlmCategory string
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "Label":
			label = attr.Value
		case "NlmCategory":
			nlmCategory = attr.Value
		}
	}
	if label == "" {
		label = nlmCategory
	}

	var body flatText
	if err := body.UnmarshalXML(d, start); err != nil {
		return err
	}
	a.Label = label
	a.Text = string(body)
	return nil
}

func (p pubmedArticle) toDomain() domain.Article {
	pmid := strings.TrimSpace(p.PMID)

	journal := string(p.Article.JournalTitle)
	if journal == "" {
		journal = strings.TrimSpace(p.MedlineTA)
	}

	var doi string
	for _, id := range p.IDs {
		if id.Type == "doi" && strings.TrimSpace(id.Value) != "" {
			doi = strings.TrimSpace(id.Value)
			break
		}
	}

	var articleURL string
	if pmid != "" {
		articleURL = fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid)
	}

	pubTypes := make([]string, 0, len(p.Article.PubTypes))
	for _, pt := range p.Article.PubTypes {
		if pt = strings.TrimSpace(pt); pt != "" {
			pubTypes = append(pubTypes, pt)
		}
	}

	return domain.Article{
		PMID:     pmid,
		DOI:      doi,
		Title:    string(p.Article.Title),
		Journal:  journal,
		PubDate:  parsePubDate(p.Article),
		Abstract: joinAbstract(p.Article.Abstract),
		PubTypes: pubTypes,
		Authors:  displayAuthors(p.Article.Authors),
		URL:      articleURL,
	}
}

// parsePubDate walks the fallback chain: electronic ArticleDate with full
// precision, then the journal-issue date at whatever granularity it has,
// then the legacy MedlineDate text.
func parsePubDate(a articleXML) domain.PubDate {
	if y, m, d, ok := fullDate(a.ArticleDate.Year, a.ArticleDate.Month, a.ArticleDate.Day); ok {
		return domain.NewFullDate(y, m, d)
	}

	jd := a.JournalDate
	if y, m, d, ok := fullDate(jd.Year, monthNumber(jd.Month), jd.Day); ok {
		return domain.NewFullDate(y, m, d)
	}
	if jd.Year != "" && jd.Month != "" {
		if y, err := strconv.Atoi(strings.TrimSpace(jd.Year)); err == nil {
			return domain.NewYearMonthDate(y, atoiOrZero(monthNumber(jd.Month)))
		}
	}
	if jd.Year != "" {
		if y, err := strconv.Atoi(strings.TrimSpace(jd.Year)); err == nil {
			return domain.NewYearDate(y)
		}
	}
	return domain.NewUnstructuredDate(jd.MedlineDate)
}

func fullDate(year, month, day string) (y, m, d int, ok bool) {
	year, month, day = strings.TrimSpace(year), strings.TrimSpace(month), strings.TrimSpace(day)
	if year == "" || month == "" || day == "" {
		return 0, 0, 0, false
	}
	var err error
	if y, err = strconv.Atoi(year); err != nil {
		return 0, 0, 0, false
	}
	if m, err = strconv.Atoi(month); err != nil {
		return 0, 0, 0, false
	}
	if d, err = strconv.Atoi(day); err != nil {
		return 0, 0, 0, false
	}
	return y, m, d, true
}

var monthNames = map[string]string{
	"Jan": "1", "Feb": "2", "Mar": "3", "Apr": "4", "May": "5", "Jun": "6",
	"Jul": "7", "Aug": "8", "Sep": "9", "Oct": "10", "Nov": "11", "Dec": "12",
}

// monthNumber maps PubMed month values (numeric or English abbreviations) to
// a numeric string; unknown names map to "0", which renders as the
// documented "00" fallback rather than failing the record.
func monthNumber(m string) string {
	m = strings.TrimSpace(m)
	if m == "" {
		return ""
	}
	if _, err := strconv.Atoi(m); err == nil {
		return m
	}
	if len(m) >= 3 {
		if n, ok := monthNames[m[:3]]; ok {
			return n
		}
	}
	return "0"
}

func atoiOrZero(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

func joinAbstract(sections []abstractText) string {
	var chunks []string
	for _, s := range sections {
		if s.Text == "" {
			continue
		}
		if s.Label != "" {
			chunks = append(chunks, s.Label+": "+s.Text)
		} else {
			chunks = append(chunks, s.Text)
		}
	}
	return strings.TrimSpace(strings.Join(chunks, "\n"))
}

// displayAuthors renders up to three "Last F" display names.
func displayAuthors(authors []authorXML) []string {
	var out []string
	for _, a := range authors {
		if len(out) == 3 {
			break
		}
		last := strings.TrimSpace(a.LastName)
		first := strings.TrimSpace(a.ForeName)
		switch {
		case last != "" && first != "":
			out = append(out, last+" "+string([]rune(first)[0]))
		case last != "":
			out = append(out, last)
		}
	}
	return out
}
