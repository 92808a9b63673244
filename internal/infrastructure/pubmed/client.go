// Package pubmed implements the ArticleSource port against the NCBI
// E-utilities API: esearch for PMIDs in a date window, efetch for detail XML.
package pubmed

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/realikechukwu/cardiology-feed/internal/classify"
	"github.com/realikechukwu/cardiology-feed/internal/config"
	"github.com/realikechukwu/cardiology-feed/internal/domain"
	"github.com/realikechukwu/cardiology-feed/internal/ports"
)

const (
	defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/"
	toolName       = "cardiology-research-digest"

	efetchBatchSize = 100
	// NCBI allows 3 req/s without an API key; pause between efetch batches.
	batchPause = 340 * time.Millisecond
)

// Client fetches and parses cardiology articles from PubMed.
type Client struct {
	baseURL  string
	email    string
	apiKey   string
	journals []string
	client   *http.Client
	logger   *slog.Logger

	batchSize int
	pause     time.Duration
}

var _ ports.ArticleSource = (*Client)(nil)

// NewClient builds a client from configuration; httpClient defaults to a
// 30s-timeout client when nil.
func NewClient(cfg config.PubMedConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	return &Client{
		baseURL:   base,
		email:     cfg.Email,
		apiKey:    cfg.APIKey,
		journals:  cfg.Journals,
		client:    httpClient,
		logger:    logger,
		batchSize: efetchBatchSize,
		pause:     batchPause,
	}
}

// Search returns classified articles published in the trailing window of the
// given number of days, newest first as PubMed orders them. An empty result
// is not an error; a transport failure is, and aborts the run.
func (c *Client) Search(ctx context.Context, days, maxResults int) ([]domain.Article, error) {
	if c.email == "" {
		return nil, fmt.Errorf("pubmed: contact email is required (set NCBI_EMAIL)")
	}
	if len(c.journals) == 0 {
		return nil, fmt.Errorf("pubmed: no journals configured")
	}

	pmids, total, err := c.esearch(ctx, days, maxResults)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}
	c.debug("esearch done", "pmids", len(pmids), "total_available", total)
	if len(pmids) == 0 {
		return nil, nil
	}

	articles, err := c.efetch(ctx, pmids)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	merged := mergeByPMID(articles)
	for i := range merged {
		merged[i].Category = classify.Article(merged[i])
	}
	c.debug("fetch done", "fetched", len(articles), "after_merge", len(merged))
	return merged, nil
}

type esearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   int      `xml:"Count"`
	IDs     []string `xml:"IdList>Id"`
}

func (c *Client) esearch(ctx context.Context, days, maxResults int) ([]string, int, error) {
	now := time.Now().UTC()
	end := now.Format("2006-01-02")
	start := now.AddDate(0, 0, -days).Format("2006-01-02")

	term := fmt.Sprintf(`%s AND ("%s"[dp] : "%s"[dp])`, journalQuery(c.journals), start, end)

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmode", "xml")
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("sort", "pub+date")
	c.identify(params)

	var result esearchResult
	if err := c.get(ctx, "esearch.fcgi", params, &result); err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(result.IDs))
	for _, id := range result.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, result.Count, nil
}

func (c *Client) efetch(ctx context.Context, pmids []string) ([]domain.Article, error) {
	var out []domain.Article
	for start := 0; start < len(pmids); start += c.batchSize {
		endIdx := start + c.batchSize
		if endIdx > len(pmids) {
			endIdx = len(pmids)
		}
		batch := pmids[start:endIdx]

		params := url.Values{}
		params.Set("db", "pubmed")
		params.Set("id", strings.Join(batch, ","))
		params.Set("retmode", "xml")
		c.identify(params)

		var set articleSet
		if err := c.get(ctx, "efetch.fcgi", params, &set); err != nil {
			return nil, fmt.Errorf("batch at %d: %w", start, err)
		}
		for _, raw := range set.Articles {
			out = append(out, raw.toDomain())
		}

		if endIdx < len(pmids) {
			select {
			case <-time.After(c.pause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	return out, nil
}

func (c *Client) identify(params url.Values) {
	params.Set("tool", toolName)
	params.Set("email", c.email)
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, v any) error {
	reqURL := strings.TrimSuffix(c.baseURL, "/") + "/" + endpoint + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", toolName+"/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %s: %s", endpoint, resp.Status, strings.TrimSpace(string(payload)))
	}

	if err := xml.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// journalQuery renders the OR-joined journal filter, e.g.
// ("Circulation"[jour] OR "Heart"[jour]).
func journalQuery(journals []string) string {
	parts := make([]string, 0, len(journals))
	for _, j := range journals {
		parts = append(parts, fmt.Sprintf(`"%s"[jour]`, j))
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// mergeByPMID unions duplicate observations of the same PMID within one
// fetch, keeping first-seen order. Records without a PMID are never merged.
func mergeByPMID(articles []domain.Article) []domain.Article {
	out := make([]domain.Article, 0, len(articles))
	index := make(map[string]int, len(articles))
	for _, a := range articles {
		id := strings.TrimSpace(a.PMID)
		if id == "" {
			out = append(out, a)
			continue
		}
		if i, ok := index[id]; ok {
			out[i] = out[i].Merge(a)
			continue
		}
		index[id] = len(out)
		out = append(out, a)
	}
	return out
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
