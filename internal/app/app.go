package app

import (
	"database/sql"
	"log/slog"

	"github.com/realikechukwu/cardiology-feed/internal/config"
	"github.com/realikechukwu/cardiology-feed/internal/infrastructure/artifact"
	"github.com/realikechukwu/cardiology-feed/internal/infrastructure/openai"
	"github.com/realikechukwu/cardiology-feed/internal/infrastructure/pubmed"
	smtpmail "github.com/realikechukwu/cardiology-feed/internal/infrastructure/smtp"
	"github.com/realikechukwu/cardiology-feed/internal/infrastructure/storage"
	"github.com/realikechukwu/cardiology-feed/internal/logging"
	"github.com/realikechukwu/cardiology-feed/internal/ports"
	"github.com/realikechukwu/cardiology-feed/internal/usecase"
)

// Application wires configs to the pipeline and its driven adapters.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	db       *sql.DB
}

// New builds a runnable application instance. Collaborators whose
// configuration is absent are left nil; the pipeline reports them as
// missing only when a run actually needs them.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	source := pubmed.NewClient(cfg.PubMed, nil, baseLogger.With("component", "pubmed"))

	var summarizer ports.Summarizer
	if cfg.OpenAI.APIKey != "" {
		summarizer = openai.NewSummarizer(cfg.OpenAI)
	}

	var mailer ports.Mailer
	if cfg.Email.Username != "" && cfg.Email.Password != "" {
		mailer = smtpmail.NewMailer(cfg.Email)
	}

	var dispositions ports.DispositionStore
	var db *sql.DB
	if cfg.Database.DSN != "" {
		conn, err := storage.Open(cfg.Database.DSN)
		if err != nil {
			baseLogger.Warn("disposition database unavailable, audit disabled", "error", err)
		} else {
			db = conn
			dispositions = storage.NewPostgresRepository(db)
		}
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:       source,
		Summarizer:   summarizer,
		Mailer:       mailer,
		Artifacts:    artifact.NewStore(cfg.Paths.Artifact),
		Dispositions: dispositions,
		Logger:       baseLogger.With("component", "pipeline"),
	})

	return &Application{cfg: cfg, logger: baseLogger, pipeline: pipeline, db: db}
}

// Pipeline exposes the orchestrator for the CLI commands.
func (a *Application) Pipeline() *usecase.Pipeline {
	return a.pipeline
}

// FetchOptions derives fetch options from configuration.
func (a *Application) FetchOptions() usecase.FetchOptions {
	return usecase.FetchOptions{
		Days:              a.cfg.Digest.Days,
		MaxResults:        a.cfg.Digest.MaxResults,
		Journals:          a.cfg.PubMed.Journals,
		IncludeLowQuality: a.cfg.Digest.IncludeLowQuality,
		SeenStatePath:     a.cfg.Paths.SeenState,
	}
}

// DeliverOptions derives delivery options from configuration.
func (a *Application) DeliverOptions() usecase.DeliverOptions {
	return usecase.DeliverOptions{
		SentStatePath:    a.cfg.Paths.SentState,
		MaxSummaries:     a.cfg.Digest.MaxSummaries,
		MinAbstractChars: a.cfg.Digest.MinAbstractChars,
		PreviewPath:      a.cfg.Paths.Preview,
	}
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}
