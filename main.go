package main

import (
	"context"
	"database/sql"
	"flag"
	"strings"

	_ "github.com/lib/pq"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/config"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/drive"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/export"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/extract"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/gmail"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/notify"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/repository"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/repository/memory"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/repository/postgres"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/rules"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/server"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/service"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	agentEmail := flag.String("agent", "", "Filter by agent email")
	after := flag.String("after", "", "Filter by date (YYYY/MM/DD)")
	before := flag.String("before", "", "Filter before date (YYYY/MM/DD)")
	maxResults := flag.Int("max", 100, "Max results")
	autoSave := flag.Bool("auto-save", false, "Auto-save high confidence leads")
	noCSV := flag.Bool("no-csv", false, "Skip CSV export")
	reportOnly := flag.Bool("report-only", false, "Only show counts without extracting or saving")
	labels := flag.String("labels", "", "Comma-separated Gmail labels to include (overrides defaults)")
	skipMultiMessage := flag.Bool("skip-multi-message-threads", false, "Skip threads with more than one message")
	allowDrive := flag.Bool("allow-drive", false, "Include has:drive in addition to has:attachment")
	ignoreDefaultExcludes := flag.Bool("ignore-default-excludes", false, "Do not add default excluded labels")
	exportAllLeads := flag.Bool("export-all-leads", false, "Export stored leads to a CSV and exit")
	exportPath := flag.String("export-path", "exports/leads_rows.csv", "Destination CSV path for -export-all-leads")
	serve := flag.Bool("serve", false, "Serve the review dashboard API instead of processing a batch")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Repositories: postgres when a DATABASE_URL is configured, otherwise
	// in-memory (useful for tests and dry runs).
	var leadRepo repository.LeadRepository
	var attachmentRepo repository.AttachmentRepository
	if cfg.Database.URL != "" && !cfg.Database.UseInMemory {
		db, err := sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := postgres.InitializeDatabase(db); err != nil {
			logger.Fatal("failed to initialize database", zap.Error(err))
		}
		leadRepo = postgres.NewPostgresLeadRepository(db)
		attachmentRepo = postgres.NewPostgresAttachmentRepository(db)
		logger.Info("using PostgreSQL repositories")
	} else {
		leadRepo = memory.NewInMemoryLeadRepository()
		attachmentRepo = memory.NewInMemoryAttachmentRepository()
		logger.Info("using in-memory repositories")
	}

	if *serve {
		srv := server.New(leadRepo, attachmentRepo, logger)
		logger.Info("serving review API", zap.String("port", cfg.Server.Port))
		if err := srv.Start(cfg.Server.Port); err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
		return
	}

	ctx := context.Background()

	if *exportAllLeads {
		exportStoredLeads(ctx, leadRepo, cfg, *agentEmail, *exportPath, logger)
		return
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal("config validation failed", zap.Error(err))
	}

	// Message source: live Gmail when a token is available, otherwise the
	// null source so dry runs work end to end.
	var gmailClient service.GmailClient
	if cfg.Gmail.AccessToken != "" {
		gmailClient, err = gmail.NewClient(ctx, cfg.Gmail.AccessToken, logger)
		if err != nil {
			logger.Fatal("failed to create Gmail client", zap.Error(err))
		}
	} else {
		logger.Warn("no Gmail access token configured, using null source")
		gmailClient = gmail.NewMockClient()
	}

	agents := cfg.AgentDirectory()

	extractor := extract.NewExtractor(
		openai.NewClient(cfg.OpenAI.APIKey),
		agents,
		extract.Options{
			Model:              cfg.OpenAI.Model,
			MaxTokens:          cfg.OpenAI.MaxTokens,
			MinCallInterval:    cfg.Extractor.MinCallInterval,
			MaxRetries:         cfg.Extractor.MaxRetries,
			BackoffBase:        cfg.Extractor.BackoffBase,
			SummaryByteCeiling: cfg.Extractor.SummaryByteCeiling,
		},
		logger,
	)

	normalizer := rules.NewNormalizer(agents, cfg.BlockLists())
	resolver := service.NewDuplicateResolver(leadRepo, logger)
	notifier := notify.NewSlackNotifier(cfg.Slack.WebhookURL, logger)

	uploader, err := drive.NewUploader(ctx, cfg.Gmail.AccessToken, cfg.Drive.FolderID, logger)
	if err != nil {
		logger.Fatal("failed to create Drive uploader", zap.Error(err))
	}

	pipeline := service.NewPipeline(
		gmailClient,
		extractor,
		normalizer,
		resolver,
		leadRepo,
		attachmentRepo,
		notifier,
		uploader,
		cfg.Extractor.AttachmentsDir,
		cfg.Slack.HighValueThreshold,
		logger,
	)

	includedLabels := cfg.Gmail.IncludedLabels
	if *labels != "" {
		includedLabels = nil
		for _, label := range strings.Split(*labels, ",") {
			if trimmed := strings.TrimSpace(label); trimmed != "" {
				includedLabels = append(includedLabels, trimmed)
			}
		}
	}

	query := gmail.BuildQuery(gmail.SearchOptions{
		AgentEmail:            *agentEmail,
		After:                 *after,
		Before:                *before,
		IncludedLabels:        includedLabels,
		ExcludedLabels:        cfg.Gmail.ExcludedLabels,
		AllowDrive:            *allowDrive,
		IgnoreDefaultExcludes: *ignoreDefaultExcludes,
	}, agents)
	logger.Info("gmail query", zap.String("query", query))

	mode := service.ModeManual
	if *autoSave {
		mode = service.ModeAuto
	}
	if *reportOnly {
		mode = service.ModeReportOnly
	}

	results, stats, err := pipeline.ProcessBatch(ctx, service.BatchOptions{
		Query:            query,
		AgentEmail:       *agentEmail,
		MaxResults:       *maxResults,
		Mode:             mode,
		SkipMultiMessage: *skipMultiMessage,
	})
	if err != nil {
		logger.Fatal("batch processing failed", zap.Error(err))
	}

	if !*noCSV && len(results) > 0 {
		path, err := export.WriteLeads(results, cfg.Export.Dir, "")
		if err != nil {
			logger.Error("failed to export CSV", zap.Error(err))
		} else {
			logger.Info("exported leads to CSV",
				zap.Int("count", len(results)),
				zap.String("path", path))
		}
	}

	logger.Info("done",
		zap.Int("found", stats.Found),
		zap.Int("persisted", stats.Persisted),
		zap.Int("queued", stats.Queued),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
}

// exportStoredLeads dumps the store to one CSV, optionally filtered by the
// referring agent mapped from the given email.
func exportStoredLeads(ctx context.Context, leadRepo repository.LeadRepository, cfg *config.Config, agentEmail, path string, logger *zap.Logger) {
	var leads []*model.Lead
	var err error
	if agentEmail != "" {
		agentName := cfg.AgentDirectory().DisplayName(agentEmail)
		leads, err = leadRepo.FindByAgent(ctx, agentName)
	} else {
		leads, err = leadRepo.FindAll(ctx)
	}
	if err != nil {
		logger.Fatal("failed to fetch leads", zap.Error(err))
	}
	if len(leads) == 0 {
		logger.Info("no leads found, nothing to export")
		return
	}

	dir, file := splitPath(path)
	out, err := export.WriteLeads(leads, dir, file)
	if err != nil {
		logger.Fatal("failed to export leads", zap.Error(err))
	}
	logger.Info("exported leads",
		zap.Int("count", len(leads)),
		zap.String("path", out))
}

func splitPath(path string) (dir, file string) {
	idx := strings.LastIndexByte(path, '/')
	if idx < 0 {
		return ".", path
	}
	return path[:idx], path[idx+1:]
}
