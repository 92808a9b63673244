package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "CARDIOLOGY_FEED_CONFIG"
	ncbiEmailEnv    = "NCBI_EMAIL"
	ncbiAPIKeyEnv   = "NCBI_API_KEY"
	openAIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	smtpUserEnv     = "GMAIL_SMTP_USER"
	smtpPasswordEnv = "GMAIL_SMTP_APP_PASSWORD"
	emailToEnv      = "EMAIL_TO"
	emailFromEnv    = "EMAIL_FROM"
	databaseDSNEnv  = "DATABASE_DSN"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	PubMed    PubMedConfig    `yaml:"pubmed"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Email     EmailConfig     `yaml:"email"`
	Database  DatabaseConfig  `yaml:"database"`
	Digest    DigestConfig    `yaml:"digest"`
	Paths     PathsConfig     `yaml:"paths"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// LoggingConfig controls console log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// PubMedConfig describes the E-utilities integration.
type PubMedConfig struct {
	BaseURL  string   `yaml:"baseUrl"`
	Email    string   `yaml:"email"`
	APIKey   string   `yaml:"apiKey"`
	Journals []string `yaml:"journals"`
}

// OpenAIConfig defines how to contact the summarisation API.
type OpenAIConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// EmailConfig wires all data required to send the digest.
type EmailConfig struct {
	SMTPHost string   `yaml:"smtpHost"`
	SMTPPort int      `yaml:"smtpPort"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// DatabaseConfig describes the optional disposition audit database.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// DigestConfig carries the selection and filtering knobs.
type DigestConfig struct {
	Days              int  `yaml:"days"`
	MaxResults        int  `yaml:"maxResults"`
	MaxSummaries      int  `yaml:"maxSummaries"`
	MinAbstractChars  int  `yaml:"minAbstractChars"`
	IncludeLowQuality bool `yaml:"includeLowQuality"`
}

// PathsConfig locates the artifact, state, and preview files.
type PathsConfig struct {
	Artifact  string `yaml:"artifact"`
	SeenState string `yaml:"seenState"`
	SentState string `yaml:"sentState"`
	Preview   string `yaml:"preview"`
}

// SchedulerConfig defines the recurring-run cadence.
type SchedulerConfig struct {
	Interval string `yaml:"interval"`
}

// IntervalDuration resolves the configured interval, defaulting to weekly.
func (s SchedulerConfig) IntervalDuration() time.Duration {
	if s.Interval == "" {
		return 7 * 24 * time.Hour
	}
	d, err := time.ParseDuration(s.Interval)
	if err != nil || d <= 0 {
		log.Printf("config: invalid scheduler interval %q, reverting to weekly", s.Interval)
		return 7 * 24 * time.Hour
	}
	return d
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(ncbiEmailEnv); v != "" {
		c.PubMed.Email = v
	}
	if v := os.Getenv(ncbiAPIKeyEnv); v != "" {
		c.PubMed.APIKey = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}
	if v := os.Getenv(smtpUserEnv); v != "" {
		c.Email.Username = v
	}
	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv(emailFromEnv); v != "" {
		c.Email.From = v
	}
	if v := os.Getenv(emailToEnv); v != "" {
		c.Email.To = splitAddresses(v)
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}
}

func splitAddresses(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.PubMed.BaseURL != "" {
		base.PubMed.BaseURL = override.PubMed.BaseURL
	}
	if override.PubMed.Email != "" {
		base.PubMed.Email = override.PubMed.Email
	}
	if override.PubMed.APIKey != "" {
		base.PubMed.APIKey = override.PubMed.APIKey
	}
	if len(override.PubMed.Journals) > 0 {
		base.PubMed.Journals = override.PubMed.Journals
	}

	if override.OpenAI.Endpoint != "" {
		base.OpenAI.Endpoint = override.OpenAI.Endpoint
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}

	if override.Email.SMTPHost != "" {
		base.Email.SMTPHost = override.Email.SMTPHost
	}
	if override.Email.SMTPPort != 0 {
		base.Email.SMTPPort = override.Email.SMTPPort
	}
	if override.Email.Username != "" {
		base.Email.Username = override.Email.Username
	}
	if override.Email.Password != "" {
		base.Email.Password = override.Email.Password
	}
	if override.Email.From != "" {
		base.Email.From = override.Email.From
	}
	if len(override.Email.To) > 0 {
		base.Email.To = override.Email.To
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Digest.Days != 0 {
		base.Digest.Days = override.Digest.Days
	}
	if override.Digest.MaxResults != 0 {
		base.Digest.MaxResults = override.Digest.MaxResults
	}
	if override.Digest.MaxSummaries != 0 {
		base.Digest.MaxSummaries = override.Digest.MaxSummaries
	}
	if override.Digest.MinAbstractChars != 0 {
		base.Digest.MinAbstractChars = override.Digest.MinAbstractChars
	}
	if override.Digest.IncludeLowQuality {
		base.Digest.IncludeLowQuality = true
	}

	if override.Paths.Artifact != "" {
		base.Paths.Artifact = override.Paths.Artifact
	}
	if override.Paths.SeenState != "" {
		base.Paths.SeenState = override.Paths.SeenState
	}
	if override.Paths.SentState != "" {
		base.Paths.SentState = override.Paths.SentState
	}
	if override.Paths.Preview != "" {
		base.Paths.Preview = override.Paths.Preview
	}

	if override.Scheduler.Interval != "" {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	return base
}

// topJournals is the fixed journal filter the weekly digest covers.
var topJournals = []string{
	"Circulation",
	"Journal of the American College of Cardiology",
	"European Heart Journal",
	"JAMA Cardiology",
	"Circulation: Heart Failure",
	"Circulation: Arrhythmia and Electrophysiology",
	"Heart",
	"American Heart Journal",
	"JACC: Heart Failure",
	"JACC: Cardiovascular Imaging",
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		PubMed: PubMedConfig{
			BaseURL:  "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/",
			Journals: append([]string(nil), topJournals...),
		},
		OpenAI: OpenAIConfig{
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Model:    "gpt-4o-mini",
		},
		Email: EmailConfig{
			SMTPHost: "smtp.gmail.com",
			SMTPPort: 587,
		},
		Digest: DigestConfig{
			Days:             7,
			MaxResults:       300,
			MaxSummaries:     10,
			MinAbstractChars: 200,
		},
		Paths: PathsConfig{
			Artifact:  "output/cardiology_recent.json",
			SeenState: "state/seen_pmids.json",
			SentState: "state/sent_pmids.json",
			Preview:   "output/email_preview.html",
		},
		Scheduler: SchedulerConfig{Interval: "168h"},
	}
}
