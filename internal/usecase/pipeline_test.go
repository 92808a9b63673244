package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
	"github.com/realikechukwu/cardiology-feed/internal/ledger"
)

type fakeSource struct {
	articles []domain.Article
	err      error
}

func (f *fakeSource) Search(ctx context.Context, days, maxResults int) ([]domain.Article, error) {
	return f.articles, f.err
}

type fakeArtifacts struct {
	stored   domain.DigestPayload
	readErr  error
	writeErr error
	written  int
}

func (f *fakeArtifacts) Write(ctx context.Context, payload domain.DigestPayload) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.stored = payload
	f.written++
	return nil
}

func (f *fakeArtifacts) Read(ctx context.Context) (domain.DigestPayload, error) {
	if f.readErr != nil {
		return domain.DigestPayload{}, f.readErr
	}
	return f.stored, nil
}

type fakeSummarizer struct {
	fail  map[string]bool
	calls int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, a domain.Article) (domain.Summary, error) {
	f.calls++
	if f.fail[a.PMID] {
		return domain.Summary{}, errors.New("model unavailable")
	}
	return domain.Summary{
		StudyType: "cohort study",
		Finding:   "finding for " + a.PMID,
		SoWhat:    "so what for " + a.PMID,
	}, nil
}

type fakeMailer struct {
	sent []domain.Email
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, email domain.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

type recordedRun struct {
	pipeline     string
	dispositions []domain.RecordDisposition
}

type fakeDispositions struct {
	runs []recordedRun
	err  error
}

func (f *fakeDispositions) RecordRun(ctx context.Context, runID, pipeline string, dispositions []domain.RecordDisposition) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, recordedRun{pipeline: pipeline, dispositions: dispositions})
	return nil
}

func abstractOfLen(n int) string {
	return strings.Repeat("a", n)
}

func classifiedArticle(pmid string, category domain.Category) domain.Article {
	return domain.Article{
		PMID:     pmid,
		Title:    "Article " + pmid,
		Journal:  "Circulation",
		Category: category,
		Abstract: abstractOfLen(250),
		URL:      fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid),
	}
}

func seedLedger(t *testing.T, path, key string, ids []string) {
	t.Helper()
	l := ledger.New(key)
	l.AddAll(ids)
	if err := l.Save(path); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return raw
}

func TestFetchWritesArtifactThenCommitsSeenLedger(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "seen_pmids.json")
	artifacts := &fakeArtifacts{}
	p := NewPipeline(PipelineDeps{
		Source: &fakeSource{articles: []domain.Article{
			classifiedArticle("111", domain.CategoryPriority),
			classifiedArticle("222", domain.CategoryStandard),
			classifiedArticle("333", domain.CategoryExcluded),
		}},
		Artifacts: artifacts,
	})

	res, err := p.Fetch(context.Background(), FetchOptions{Days: 7, SeenStatePath: statePath})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Fetched != 3 || res.DigestCount != 2 || res.RemovedSeen != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if artifacts.written != 1 || len(artifacts.stored.Articles) != 2 {
		t.Fatalf("artifact not written as expected: %+v", artifacts.stored)
	}

	seen := ledger.Load(statePath, "seen_pmids", nil)
	if !seen.Contains("111") || !seen.Contains("222") || seen.Contains("333") {
		t.Fatalf("seen ledger wrong: %v", seen.IDs())
	}
}

func TestFetchDedupesAgainstSeenLedger(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "seen_pmids.json")
	seedLedger(t, statePath, "seen_pmids", []string{"111"})

	artifacts := &fakeArtifacts{}
	p := NewPipeline(PipelineDeps{
		Source: &fakeSource{articles: []domain.Article{
			classifiedArticle("111", domain.CategoryPriority),
			classifiedArticle("222", domain.CategoryPriority),
		}},
		Artifacts: artifacts,
	})

	res, err := p.Fetch(context.Background(), FetchOptions{Days: 7, SeenStatePath: statePath})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.RemovedSeen != 1 || res.DigestCount != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(artifacts.stored.Articles) != 1 || artifacts.stored.Articles[0].PMID != "222" {
		t.Fatalf("artifact should hold only 222: %+v", artifacts.stored.Articles)
	}

	seen := ledger.Load(statePath, "seen_pmids", nil)
	if seen.Len() != 2 {
		t.Fatalf("ledger should grow to 2 ids, got %v", seen.IDs())
	}
}

func TestFetchFailedArtifactWriteLeavesLedgerUntouched(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "seen_pmids.json")
	seedLedger(t, statePath, "seen_pmids", []string{"111"})
	before := readFile(t, statePath)

	p := NewPipeline(PipelineDeps{
		Source:    &fakeSource{articles: []domain.Article{classifiedArticle("222", domain.CategoryPriority)}},
		Artifacts: &fakeArtifacts{writeErr: errors.New("disk full")},
	})

	if _, err := p.Fetch(context.Background(), FetchOptions{Days: 7, SeenStatePath: statePath}); err == nil {
		t.Fatal("expected fetch to fail")
	}

	after := readFile(t, statePath)
	if string(before) != string(after) {
		t.Fatal("seen ledger changed despite failed artifact write")
	}
}

func TestFetchEmptyWindowIsNoOp(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "seen_pmids.json")
	artifacts := &fakeArtifacts{}
	p := NewPipeline(PipelineDeps{
		Source:    &fakeSource{},
		Artifacts: artifacts,
	})

	res, err := p.Fetch(context.Background(), FetchOptions{Days: 7, SeenStatePath: statePath})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if res.Fetched != 0 || artifacts.written != 0 {
		t.Fatalf("empty window must not write: %+v, writes=%d", res, artifacts.written)
	}
	if _, err := os.Stat(statePath); !os.IsNotExist(err) {
		t.Fatal("empty window must not create the seen ledger")
	}
}

func TestFetchTestModeSkipsLedger(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "seen_pmids.json")
	p := NewPipeline(PipelineDeps{
		Source:    &fakeSource{articles: []domain.Article{classifiedArticle("111", domain.CategoryPriority)}},
		Artifacts: &fakeArtifacts{},
	})

	if _, err := p.Fetch(context.Background(), FetchOptions{Days: 7, TestMode: true, SeenStatePath: statePath}); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := os.Stat(statePath); !os.IsNotExist(err) {
		t.Fatal("test mode must not create the seen ledger")
	}
}

func deliverFixture(pmids ...string) *fakeArtifacts {
	payload := domain.DigestPayload{GeneratedAt: time.Date(2026, time.March, 6, 8, 0, 0, 0, time.UTC)}
	for _, pmid := range pmids {
		payload.Articles = append(payload.Articles, classifiedArticle(pmid, domain.CategoryPriority))
	}
	return &fakeArtifacts{stored: payload}
}

func TestDeliverSendsThenCommitsSentLedger(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "sent_pmids.json")
	mailer := &fakeMailer{}
	audit := &fakeDispositions{}
	p := NewPipeline(PipelineDeps{
		Artifacts:    deliverFixture("111", "222", "333"),
		Summarizer:   &fakeSummarizer{},
		Mailer:       mailer,
		Dispositions: audit,
	})

	res, err := p.Deliver(context.Background(), DeliverOptions{
		SentStatePath:    statePath,
		MaxSummaries:     2,
		MinAbstractChars: 200,
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if res.Featured != 2 || res.Headlines != 1 || res.Skipped {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(mailer.sent))
	}
	if !strings.Contains(mailer.sent[0].Subject, "Cardiology Weekly") {
		t.Fatalf("subject = %q", mailer.sent[0].Subject)
	}

	sent := ledger.Load(statePath, "sent_pmids", nil)
	for _, id := range []string{"111", "222", "333"} {
		if !sent.Contains(id) {
			t.Fatalf("sent ledger missing %s: %v", id, sent.IDs())
		}
	}

	if len(audit.runs) != 1 || audit.runs[0].pipeline != "deliver" {
		t.Fatalf("audit runs = %+v", audit.runs)
	}
}

func TestDeliverFailedSendLeavesLedgerUntouched(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "sent_pmids.json")
	seedLedger(t, statePath, "sent_pmids", []string{"999"})
	before := readFile(t, statePath)

	p := NewPipeline(PipelineDeps{
		Artifacts:  deliverFixture("111"),
		Summarizer: &fakeSummarizer{},
		Mailer:     &fakeMailer{err: errors.New("smtp refused")},
	})

	if _, err := p.Deliver(context.Background(), DeliverOptions{
		SentStatePath:    statePath,
		MaxSummaries:     1,
		MinAbstractChars: 200,
	}); err == nil {
		t.Fatal("expected deliver to fail")
	}

	after := readFile(t, statePath)
	if string(before) != string(after) {
		t.Fatal("sent ledger changed despite failed send")
	}
}

func TestDeliverSummaryFailureIsNotLedgered(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "sent_pmids.json")
	p := NewPipeline(PipelineDeps{
		Artifacts:  deliverFixture("111", "222"),
		Summarizer: &fakeSummarizer{fail: map[string]bool{"111": true}},
		Mailer:     &fakeMailer{},
	})

	res, err := p.Deliver(context.Background(), DeliverOptions{
		SentStatePath:    statePath,
		MaxSummaries:     5,
		MinAbstractChars: 200,
	})
	if err != nil {
		t.Fatalf("per-article summary failure must not abort the run: %v", err)
	}
	if res.Featured != 1 || res.SummaryFailed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	sent := ledger.Load(statePath, "sent_pmids", nil)
	if sent.Contains("111") {
		t.Fatal("summary-failed article must stay eligible for the next run")
	}
	if !sent.Contains("222") {
		t.Fatalf("delivered article missing from sent ledger: %v", sent.IDs())
	}
}

func TestDeliverRequeueFailedListsAndLedgers(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "sent_pmids.json")
	mailer := &fakeMailer{}
	p := NewPipeline(PipelineDeps{
		Artifacts:  deliverFixture("111", "222"),
		Summarizer: &fakeSummarizer{fail: map[string]bool{"111": true}},
		Mailer:     mailer,
	})

	res, err := p.Deliver(context.Background(), DeliverOptions{
		SentStatePath:    statePath,
		MaxSummaries:     5,
		MinAbstractChars: 200,
		RequeueFailed:    true,
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if res.Headlines != 1 || res.Featured != 1 {
		t.Fatalf("requeued article should appear as a headline: %+v", res)
	}
	if !strings.Contains(mailer.sent[0].HTMLBody, "Article 111") {
		t.Fatal("requeued article missing from email body")
	}

	sent := ledger.Load(statePath, "sent_pmids", nil)
	if !sent.Contains("111") {
		t.Fatal("requeued article was listed in the email, it must be ledgered")
	}
}

func TestDeliverDryRunWritesPreviewOnly(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	statePath := filepath.Join(dir, "sent_pmids.json")
	previewPath := filepath.Join(dir, "preview.html")
	mailer := &fakeMailer{}
	p := NewPipeline(PipelineDeps{
		Artifacts:  deliverFixture("111"),
		Summarizer: &fakeSummarizer{},
		Mailer:     mailer,
	})

	if _, err := p.Deliver(context.Background(), DeliverOptions{
		SentStatePath:    statePath,
		MaxSummaries:     1,
		MinAbstractChars: 200,
		DryRun:           true,
		PreviewPath:      previewPath,
	}); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if len(mailer.sent) != 0 {
		t.Fatal("dry run must not send")
	}
	preview := readFile(t, previewPath)
	if !strings.Contains(string(preview), "Article 111") {
		t.Fatal("preview missing article content")
	}
	if _, err := os.Stat(statePath); !os.IsNotExist(err) {
		t.Fatal("dry run must not create the sent ledger")
	}
}

func TestDeliverAllAlreadySentSkips(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "sent_pmids.json")
	seedLedger(t, statePath, "sent_pmids", []string{"111", "222"})
	before := readFile(t, statePath)

	mailer := &fakeMailer{}
	p := NewPipeline(PipelineDeps{
		Artifacts:  deliverFixture("111", "222"),
		Summarizer: &fakeSummarizer{},
		Mailer:     mailer,
	})

	res, err := p.Deliver(context.Background(), DeliverOptions{
		SentStatePath:    statePath,
		MaxSummaries:     5,
		MinAbstractChars: 200,
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !res.Skipped || res.RemovedSent != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("nothing unsent, no email expected")
	}
	if string(before) != string(readFile(t, statePath)) {
		t.Fatal("skip run must not rewrite the ledger")
	}
}

func TestDeliverTestModeSendsWithoutLedger(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "sent_pmids.json")
	mailer := &fakeMailer{}
	p := NewPipeline(PipelineDeps{
		Artifacts:  deliverFixture("111"),
		Summarizer: &fakeSummarizer{},
		Mailer:     mailer,
	})

	if _, err := p.Deliver(context.Background(), DeliverOptions{
		SentStatePath:    statePath,
		MaxSummaries:     1,
		MinAbstractChars: 200,
		TestMode:         true,
	}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatal("test mode should still send")
	}
	if _, err := os.Stat(statePath); !os.IsNotExist(err) {
		t.Fatal("test mode must not create the sent ledger")
	}
}

func TestDeliverEmptyArtifactSkips(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		Artifacts: &fakeArtifacts{},
	})

	res, err := p.Deliver(context.Background(), DeliverOptions{MaxSummaries: 5, MinAbstractChars: 200})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if !res.Skipped {
		t.Fatalf("empty artifact should skip: %+v", res)
	}
}

func TestRunStopsAfterFetchFailure(t *testing.T) {
	t.Parallel()

	p := NewPipeline(PipelineDeps{
		Source:    &fakeSource{err: errors.New("pubmed down")},
		Artifacts: &fakeArtifacts{},
	})

	err := p.Run(context.Background(), FetchOptions{Days: 7}, DeliverOptions{})
	if err == nil || !strings.Contains(err.Error(), "fetch step") {
		t.Fatalf("expected fetch-step error, got %v", err)
	}
}

func TestFetchAuditFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "seen_pmids.json")
	p := NewPipeline(PipelineDeps{
		Source:       &fakeSource{articles: []domain.Article{classifiedArticle("111", domain.CategoryPriority)}},
		Artifacts:    &fakeArtifacts{},
		Dispositions: &fakeDispositions{err: errors.New("db down")},
	})

	if _, err := p.Fetch(context.Background(), FetchOptions{Days: 7, SeenStatePath: statePath}); err != nil {
		t.Fatalf("audit failure must not fail the run: %v", err)
	}
}
