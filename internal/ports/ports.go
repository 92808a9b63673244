package ports

import (
	"context"

	"github.com/realikechukwu/cardiology-feed/internal/domain"
)

// ArticleSource pulls fresh records from the upstream literature search.
type ArticleSource interface {
	Search(ctx context.Context, days, maxResults int) ([]domain.Article, error)
}

// Summarizer produces the structured editorial note for one article.
// Calls fail independently per article; a failure never aborts the run.
type Summarizer interface {
	Summarize(ctx context.Context, article domain.Article) (domain.Summary, error)
}

// Mailer delivers the rendered digest. A nil error means the message was
// accepted for at least one recipient, which is the signal the sent-ledger
// commit gates on.
type Mailer interface {
	Send(ctx context.Context, msg domain.Email) error
}

// ArtifactStore reads and writes the digest artifact that links the fetch
// pipeline to the delivery pipeline. Write success gates the seen-ledger
// commit.
type ArtifactStore interface {
	Write(ctx context.Context, payload domain.DigestPayload) error
	Read(ctx context.Context) (domain.DigestPayload, error)
}

// DispositionStore records every record's final disposition per run, for
// audit. Implementations tolerate being absent; losing the audit trail never
// fails a run.
type DispositionStore interface {
	RecordRun(ctx context.Context, runID, pipeline string, dispositions []domain.RecordDisposition) error
}

// Scheduler controls when recurring runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func()) error
	Stop(ctx context.Context) error
}
