// Package render turns a selection result into the digest email: hero cards
// for summarised articles, a headline list for the remainder. html/template
// does the escaping.
package render

import (
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/realikechukwu/cardiology-feed/internal/classify"
	"github.com/realikechukwu/cardiology-feed/internal/domain"
)

const textAlternative = "Your email client does not support HTML."

// Subject derives the digest subject line, unless an override is given.
func Subject(generatedAt time.Time, override string) string {
	if override != "" {
		return override
	}
	return "Cardiology Weekly — " + generatedAt.Format("Jan 2, 2006")
}

// BuildEmail renders the full digest message.
func BuildEmail(subject string, generatedAt time.Time, featured []domain.FeaturedArticle, headlines []domain.Article, totalArticles, rctCount int) (domain.Email, error) {
	data := emailData{
		Subject:       subject,
		HumanDate:     generatedAt.Format("January 2, 2006"),
		TotalArticles: totalArticles,
		FeaturedCount: len(featured),
		RCTNote:       rctNote(rctCount),
	}
	for _, f := range featured {
		data.Cards = append(data.Cards, cardData{
			articleData: newArticleData(f.Article),
			StudyType:   stripControlChars(NormalizeStudyType(f.Summary.StudyType)),
			Finding:     stripControlChars(f.Summary.Finding),
			SoWhat:      stripControlChars(f.Summary.SoWhat),
		})
	}
	for _, a := range headlines {
		data.Headlines = append(data.Headlines, newArticleData(a))
	}

	var sb strings.Builder
	if err := emailTmpl.Execute(&sb, data); err != nil {
		return domain.Email{}, fmt.Errorf("render email: %w", err)
	}

	return domain.Email{
		Subject:  subject,
		TextBody: textAlternative,
		HTMLBody: sb.String(),
	}, nil
}

type emailData struct {
	Subject       string
	HumanDate     string
	TotalArticles int
	FeaturedCount int
	RCTNote       string
	Cards         []cardData
	Headlines     []articleData
}

type articleData struct {
	Title    string
	URL      string
	MetaLine string
	RCT      bool
}

type cardData struct {
	articleData
	StudyType string
	Finding   string
	SoWhat    string
}

func newArticleData(a domain.Article) articleData {
	meta := make([]string, 0, 3)
	for _, part := range []string{a.Journal, a.PubDate.String(), strings.Join(a.Authors, ", ")} {
		if part != "" {
			meta = append(meta, part)
		}
	}
	return articleData{
		Title:    stripControlChars(a.Title),
		URL:      a.URL,
		MetaLine: strings.Join(meta, " · "),
		RCT:      classify.IsRCT(a),
	}
}

func rctNote(n int) string {
	if n == 0 {
		return ""
	}
	if n == 1 {
		return " · 1 RCT"
	}
	return fmt.Sprintf(" · %d RCTs", n)
}

var controlExpr = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)

func stripControlChars(s string) string {
	return controlExpr.ReplaceAllString(s, "")
}

// NormalizeStudyType lowers the model's study-type label to sentence case
// while keeping the RCT acronyms uppercase.
func NormalizeStudyType(studyType string) string {
	if studyType == "" {
		return studyType
	}
	acronyms := map[string]string{"rct": "RCT", "rcts": "RCTs"}
	words := strings.Fields(strings.ToLower(studyType))
	for i, word := range words {
		if up, ok := acronyms[word]; ok {
			words[i] = up
			continue
		}
		if i == 0 {
			words[i] = strings.ToUpper(word[:1]) + word[1:]
		}
	}
	return strings.Join(words, " ")
}

var emailTmpl = template.Must(template.New("email").Parse(`<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0"/>
    <title>{{.Subject}}</title>
  </head>
  <body style="margin:0; padding:0; background:#f5f5f5; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;">
    <div style="max-width:680px; margin:0 auto; padding:24px 16px;">

      <div id="digest-header" style="background:#ffffff; border:1px solid #e0e0e0; border-radius:8px; padding:24px; margin-bottom:20px;">
        <div style="font-size:24px; font-weight:700; margin-bottom:6px; color:#1a1a1a;">
          Weekly Cardiology Digest
        </div>
        <div style="color:#666; font-size:13px;">
          {{.HumanDate}} · {{.TotalArticles}} articles · {{.FeaturedCount}} featured{{.RCTNote}}
        </div>
      </div>

      <div id="featured" style="margin-bottom:20px;">
        <div style="font-size:18px; font-weight:600; margin-bottom:12px; color:#1a1a1a; padding-left:2px;">
          Featured Studies
        </div>
{{if .Cards}}{{range .Cards}}        <div class="hero-card" style="border:1px solid #e0e0e0; border-radius:8px; padding:24px; margin:16px 0; background:#ffffff;">
          <div class="card-title" style="font-size:17px; font-weight:600; line-height:1.4; margin-bottom:6px;">
            <a href="{{.URL}}" style="color:#1a1a1a; text-decoration:none;">{{.Title}}</a>{{if .RCT}}<span class="rct-badge" style="display:inline-block; padding:3px 10px; background:#e8f5e9; color:#2e7d32; font-size:10px; font-weight:600; border-radius:4px; margin-left:10px; vertical-align:middle;">RCT</span>{{end}}
          </div>
          <div class="card-meta" style="font-size:12px; color:#888; margin-bottom:20px;">
            {{.MetaLine}}
          </div>
          <div style="margin-bottom:16px;">
            <div style="font-size:11px; color:#888; font-weight:600; text-transform:uppercase; letter-spacing:0.5px; margin-bottom:5px;">Study Type</div>
            <div class="card-study-type" style="font-size:14px; line-height:1.5; color:#333;">{{.StudyType}}</div>
          </div>
          <div style="margin-bottom:16px;">
            <div style="font-size:11px; color:#888; font-weight:600; text-transform:uppercase; letter-spacing:0.5px; margin-bottom:5px;">Finding</div>
            <div class="card-finding" style="font-size:14px; line-height:1.5; color:#333;">{{.Finding}}</div>
          </div>
          <div style="background:#f9f9f9; padding:14px; border-radius:6px; border-left:3px solid #666;">
            <div style="font-size:11px; color:#888; font-weight:600; text-transform:uppercase; letter-spacing:0.5px; margin-bottom:5px;">So What?</div>
            <div class="card-so-what" style="font-size:14px; line-height:1.5; color:#1a1a1a; font-weight:500;">{{.SoWhat}}</div>
          </div>
        </div>
{{end}}{{else}}        <div class="no-featured" style="color:#888; font-size:14px; padding:16px; background:#fff; border:1px solid #e0e0e0; border-radius:8px;">No featured studies this week.</div>
{{end}}      </div>

      <div id="headlines" style="background:#ffffff; border:1px solid #e0e0e0; border-radius:8px; padding:20px; margin-bottom:20px;">
        <div style="font-size:16px; font-weight:600; margin-bottom:12px; color:#1a1a1a;">
          Other Papers
        </div>
{{if .Headlines}}        <ul style="list-style:none; padding:0; margin:0;">
{{range .Headlines}}          <li class="headline" style="margin:10px 0; padding:10px 0; border-bottom:1px solid #f0f0f0; line-height:1.5;">
            <a href="{{.URL}}" style="color:#2c2c2c; text-decoration:none; font-size:14px;">{{.Title}}</a>{{if .RCT}}<span class="rct-badge" style="display:inline-block; padding:2px 6px; background:#e8f5e9; color:#2e7d32; font-size:9px; font-weight:600; border-radius:3px; margin-left:6px;">RCT</span>{{end}}
            <div class="headline-meta" style="color:#888; font-size:12px; margin-top:4px;">{{.MetaLine}}</div>
          </li>
{{end}}        </ul>
{{else}}        <div class="no-headlines" style="color:#888; font-size:14px; padding:8px 0;">No additional headlines this week.</div>
{{end}}      </div>

      <div style="color:#999; font-size:11px; line-height:1.5; text-align:center; padding:16px;">
        Summaries automatically generated from abstracts. Refer to original publications for full details.
      </div>
    </div>
  </body>
</html>
`))
