package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/realikechukwu/cardiology-feed/internal/digest"
	"github.com/realikechukwu/cardiology-feed/internal/domain"
	"github.com/realikechukwu/cardiology-feed/internal/ledger"
	"github.com/realikechukwu/cardiology-feed/internal/ports"
	"github.com/realikechukwu/cardiology-feed/internal/render"
)

// Ledger JSON keys, one per dedupe concern.
const (
	seenLedgerKey = "seen_pmids"
	sentLedgerKey = "sent_pmids"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source       ports.ArticleSource
	Summarizer   ports.Summarizer
	Mailer       ports.Mailer
	Artifacts    ports.ArtifactStore
	Dispositions ports.DispositionStore
	Logger       *slog.Logger
}

// Pipeline orchestrates the two digest workflows. Fetch dedupes against the
// seen ledger and commits it after the artifact write succeeds; Deliver
// dedupes against the sent ledger and commits it after the email send
// succeeds. Ledger growth always follows the side effect it gates.
type Pipeline struct {
	source       ports.ArticleSource
	summarizer   ports.Summarizer
	mailer       ports.Mailer
	artifacts    ports.ArtifactStore
	dispositions ports.DispositionStore
	logger       *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:       deps.Source,
		summarizer:   deps.Summarizer,
		mailer:       deps.Mailer,
		artifacts:    deps.Artifacts,
		dispositions: deps.Dispositions,
		logger:       deps.Logger,
	}
}

// FetchOptions parameterizes one fetch run.
type FetchOptions struct {
	Days              int
	MaxResults        int
	Journals          []string
	IncludeLowQuality bool
	DisableDedupe     bool
	TestMode          bool
	SeenStatePath     string
}

// FetchResult reports one fetch run's accounting.
type FetchResult struct {
	Fetched     int
	DigestCount int
	RemovedSeen int
	Stats       domain.CategoryStats
}

// Fetch pulls the window from PubMed, routes and dedupes it, writes the
// digest artifact, and only then advances the seen ledger. A run that
// fetches nothing succeeds without touching the artifact or any state.
func (p *Pipeline) Fetch(ctx context.Context, opts FetchOptions) (FetchResult, error) {
	if p.source == nil {
		return FetchResult{}, fmt.Errorf("article source is not configured")
	}
	if p.artifacts == nil {
		return FetchResult{}, fmt.Errorf("artifact store is not configured")
	}

	articles, err := p.source.Search(ctx, opts.Days, opts.MaxResults)
	if err != nil {
		return FetchResult{}, fmt.Errorf("search: %w", err)
	}
	if len(articles) == 0 {
		p.info("no articles in window, nothing to do", "days", opts.Days)
		return FetchResult{}, nil
	}

	buckets := digest.Route(articles, opts.IncludeLowQuality)
	stats := digest.Stats(buckets)
	p.info("article classification",
		"priority", stats.Priority,
		"standard", stats.Standard,
		"needs_review", stats.NeedsReview,
		"excluded", stats.Excluded)

	var seen *ledger.Ledger
	var membership digest.Membership
	if !opts.TestMode && !opts.DisableDedupe {
		seen = ledger.Load(opts.SeenStatePath, seenLedgerKey, p.logger)
		membership = seen
	}

	kept, removed := digest.Dedupe(buckets.Digest, membership)
	if removed > 0 {
		p.info("dropped previously surfaced articles", "removed", removed)
	}

	// Dispositions reflect the pre-commit ledger state; collected now,
	// recorded only after the run's side effect has succeeded.
	dispositions := fetchDispositions(buckets, membership)

	payload := domain.DigestPayload{
		GeneratedAt:  time.Now().UTC(),
		Days:         opts.Days,
		Journals:     opts.Journals,
		TotalFetched: len(articles),
		DigestCount:  len(kept),
		Statistics:   stats,
		Articles:     kept,
	}
	if opts.IncludeLowQuality {
		payload.Excluded = buckets.Excluded
	}

	if err := p.artifacts.Write(ctx, payload); err != nil {
		return FetchResult{}, fmt.Errorf("write artifact: %w", err)
	}

	if seen != nil {
		added := seen.AddAll(pmids(kept))
		if err := seen.Save(opts.SeenStatePath); err != nil {
			return FetchResult{}, fmt.Errorf("save seen ledger: %w", err)
		}
		p.debug("seen ledger committed", "added", added, "total", seen.Len())
	}

	p.recordRun(ctx, "fetch", dispositions)

	return FetchResult{
		Fetched:     len(articles),
		DigestCount: len(kept),
		RemovedSeen: removed,
		Stats:       stats,
	}, nil
}

// DeliverOptions parameterizes one delivery run.
type DeliverOptions struct {
	SentStatePath    string
	MaxSummaries     int
	MinAbstractChars int
	Subject          string
	DryRun           bool
	PreviewPath      string
	TestMode         bool
	// RequeueFailed re-adds summary-failed articles to the headline list
	// (and thereby ledgers them once sent). Off by default: a failed record
	// stays out of the email and remains eligible on the next run.
	RequeueFailed bool
}

// DeliverResult reports one delivery run's accounting.
type DeliverResult struct {
	Total         int
	Featured      int
	Headlines     int
	RemovedSent   int
	SummaryFailed int
	Skipped       bool
}

// Deliver reads the digest artifact, dedupes against the sent ledger,
// selects and summarises the featured subset, renders and sends the email,
// and only then advances the sent ledger. Per-article summary failures are
// logged and skipped; the failed article is not ledgered and will be
// reconsidered next run.
func (p *Pipeline) Deliver(ctx context.Context, opts DeliverOptions) (DeliverResult, error) {
	if p.artifacts == nil {
		return DeliverResult{}, fmt.Errorf("artifact store is not configured")
	}

	payload, err := p.artifacts.Read(ctx)
	if err != nil {
		return DeliverResult{}, fmt.Errorf("load digest: %w", err)
	}
	if len(payload.Articles) == 0 {
		p.info("digest artifact is empty, nothing to deliver")
		return DeliverResult{Skipped: true}, nil
	}

	var sent *ledger.Ledger
	var membership digest.Membership
	if !opts.TestMode {
		sent = ledger.Load(opts.SentStatePath, sentLedgerKey, p.logger)
		membership = sent
	}

	unsent, removed := digest.Dedupe(payload.Articles, membership)
	if len(unsent) == 0 {
		p.info("all digest articles already sent, nothing to deliver", "removed", removed)
		return DeliverResult{Skipped: true, RemovedSent: removed}, nil
	}

	rctCount := digest.CountRCTs(unsent)
	toSum, headlines := digest.Select(unsent, opts.MaxSummaries, opts.MinAbstractChars)

	if len(toSum) > 0 && p.summarizer == nil {
		return DeliverResult{}, fmt.Errorf("summarizer is not configured")
	}

	var featured []domain.FeaturedArticle
	var failed []domain.Article
	for _, a := range toSum {
		summary, sErr := p.summarizer.Summarize(ctx, a)
		if sErr != nil {
			p.warn("summary failed, skipping article", "pmid", a.PMID, "error", sErr)
			failed = append(failed, a)
			continue
		}
		featured = append(featured, domain.FeaturedArticle{Article: a, Summary: summary})
	}

	if opts.RequeueFailed && len(failed) > 0 {
		headlines = append(append([]domain.Article{}, failed...), headlines...)
	}

	if len(featured) == 0 && len(headlines) == 0 {
		p.info("no summaries and no headlines, skipping email")
		return DeliverResult{Skipped: true, SummaryFailed: len(failed)}, nil
	}

	subject := render.Subject(payload.GeneratedAt, opts.Subject)
	email, err := render.BuildEmail(subject, payload.GeneratedAt, featured, headlines, len(unsent), rctCount)
	if err != nil {
		return DeliverResult{}, err
	}

	result := DeliverResult{
		Total:         len(unsent),
		Featured:      len(featured),
		Headlines:     len(headlines),
		RemovedSent:   removed,
		SummaryFailed: len(failed),
	}

	if opts.DryRun {
		if err := writePreview(opts.PreviewPath, email.HTMLBody); err != nil {
			return DeliverResult{}, err
		}
		p.info("dry run: wrote email preview", "path", opts.PreviewPath)
		return result, nil
	}

	if p.mailer == nil {
		return DeliverResult{}, fmt.Errorf("mailer is not configured")
	}

	dispositions := deliverDispositions(payload.Articles, membership, featured, headlines, failed, opts.RequeueFailed)

	if err := p.mailer.Send(ctx, email); err != nil {
		return DeliverResult{}, fmt.Errorf("send digest: %w", err)
	}

	if sent != nil {
		commit := commitIDs(unsent, failed, opts.RequeueFailed)
		added := sent.AddAll(commit)
		if err := sent.Save(opts.SentStatePath); err != nil {
			return DeliverResult{}, fmt.Errorf("save sent ledger: %w", err)
		}
		p.info("digest sent", "articles", len(unsent), "featured", len(featured), "ledgered", added)
	} else {
		p.info("digest sent, state untouched (test mode)", "articles", len(unsent))
	}

	p.recordRun(ctx, "deliver", dispositions)

	return result, nil
}

// Run executes fetch then deliver as one end-to-end pass, failing fast when
// the fetch step fails.
func (p *Pipeline) Run(ctx context.Context, fetchOpts FetchOptions, deliverOpts DeliverOptions) error {
	if _, err := p.Fetch(ctx, fetchOpts); err != nil {
		return fmt.Errorf("fetch step: %w", err)
	}
	if _, err := p.Deliver(ctx, deliverOpts); err != nil {
		return fmt.Errorf("deliver step: %w", err)
	}
	return nil
}

// commitIDs selects the identifiers the sent ledger may grow by: everything
// in the email. Summary-failed articles are excluded unless they were
// requeued into the headline list, so they stay eligible until summarised.
func commitIDs(unsent, failed []domain.Article, requeued bool) []string {
	failedSet := map[string]struct{}{}
	if !requeued {
		for _, a := range failed {
			if id := strings.TrimSpace(a.PMID); id != "" {
				failedSet[id] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(unsent))
	for _, a := range unsent {
		id := strings.TrimSpace(a.PMID)
		if id == "" {
			continue
		}
		if _, ok := failedSet[id]; ok {
			continue
		}
		out = append(out, id)
	}
	return out
}

func fetchDispositions(b digest.Buckets, seen digest.Membership) []domain.RecordDisposition {
	var out []domain.RecordDisposition
	for _, a := range b.Digest {
		disp := domain.DispositionSurfaced
		if seen != nil && strings.TrimSpace(a.PMID) != "" && seen.Contains(a.PMID) {
			disp = domain.DispositionDedupedSeen
		}
		out = append(out, disposition(a, disp))
	}
	for _, a := range b.NeedsReview {
		out = append(out, disposition(a, domain.DispositionNeedsReview))
	}
	for _, a := range b.Excluded {
		out = append(out, disposition(a, domain.DispositionExcludedPolicy))
	}
	return out
}

func deliverDispositions(all []domain.Article, sent digest.Membership, featured []domain.FeaturedArticle, headlines, failed []domain.Article, requeued bool) []domain.RecordDisposition {
	var out []domain.RecordDisposition
	for _, a := range all {
		if sent != nil && strings.TrimSpace(a.PMID) != "" && sent.Contains(a.PMID) {
			out = append(out, disposition(a, domain.DispositionDedupedSent))
		}
	}
	for _, f := range featured {
		out = append(out, disposition(f.Article, domain.DispositionFeatured))
	}
	failedKeys := map[string]struct{}{}
	for _, a := range failed {
		out = append(out, disposition(a, domain.DispositionSummaryFailed))
		failedKeys[dispositionKey(a)] = struct{}{}
	}
	for _, a := range headlines {
		if requeued {
			if _, ok := failedKeys[dispositionKey(a)]; ok {
				continue
			}
		}
		out = append(out, disposition(a, domain.DispositionListed))
	}
	return out
}

func disposition(a domain.Article, d domain.Disposition) domain.RecordDisposition {
	return domain.RecordDisposition{
		PMID:        a.PMID,
		Title:       a.Title,
		Category:    a.Category,
		Disposition: d,
	}
}

func dispositionKey(a domain.Article) string {
	if id := strings.TrimSpace(a.PMID); id != "" {
		return id
	}
	return a.Title
}

// recordRun pushes the audit trail; losing it is logged, never fatal.
func (p *Pipeline) recordRun(ctx context.Context, pipeline string, dispositions []domain.RecordDisposition) {
	if p.dispositions == nil || len(dispositions) == 0 {
		return
	}
	runID := uuid.NewString()
	if err := p.dispositions.RecordRun(ctx, runID, pipeline, dispositions); err != nil {
		p.warn("disposition audit write failed", "run_id", runID, "pipeline", pipeline, "error", err)
		return
	}
	p.debug("dispositions recorded", "run_id", runID, "pipeline", pipeline, "count", len(dispositions))
}

func writePreview(path, html string) error {
	if path == "" {
		return fmt.Errorf("preview path is not configured")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create preview dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return fmt.Errorf("write preview: %w", err)
	}
	return nil
}

func pmids(articles []domain.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.PMID)
	}
	return out
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
