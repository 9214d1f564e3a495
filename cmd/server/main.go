package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wurksy/wurksy/internal/admin"
	"github.com/wurksy/wurksy/internal/ai"
	"github.com/wurksy/wurksy/internal/aiindex"
	"github.com/wurksy/wurksy/internal/artifact"
	"github.com/wurksy/wurksy/internal/auth"
	"github.com/wurksy/wurksy/internal/config"
	"github.com/wurksy/wurksy/internal/db"
	"github.com/wurksy/wurksy/internal/httpapi"
	"github.com/wurksy/wurksy/internal/httpapi/handlers"
	"github.com/wurksy/wurksy/internal/logging"
	"github.com/wurksy/wurksy/internal/policy"
	"github.com/wurksy/wurksy/internal/research"
	"github.com/wurksy/wurksy/internal/session"
	"github.com/wurksy/wurksy/internal/store/rabbitmq"
	"github.com/wurksy/wurksy/internal/store/redisstore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.IsProduction())
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	rules := policy.Default()
	if cfg.RulesPath != "" {
		loaded, err := policy.LoadFile(cfg.RulesPath)
		if err != nil {
			return fmt.Errorf("load rules from %s: %w", cfg.RulesPath, err)
		}
		rules = loaded
		logger.Info("loaded external rule table", zap.String("path", cfg.RulesPath))
	}

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	repo := session.NewRepo(gdb)
	ledger := session.NewLedger(repo, cfg.PromptCap)
	guard := policy.NewGuard(rules)
	scorer := policy.NewScorer(rules)

	registry := ai.NewRegistry()
	registry.Register("openai", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	})
	registry.Register("azure", func(ctx context.Context) (ai.Provider, error) {
		return ai.NewAzureProvider(cfg.AzureOpenAIEndpoint, cfg.AzureOpenAIAPIKey,
			cfg.AzureOpenAIDeployment, cfg.AzureOpenAIAPIVersion), nil
	})

	providerName := "openai"
	if cfg.AzureOpenAIEndpoint != "" {
		providerName = "azure"
	}
	provider, err := registry.Get(context.Background(), providerName)
	if err != nil {
		return err
	}
	logger.Info("model provider selected", zap.String("provider", providerName))

	svc := session.NewService(repo, ledger, guard, provider)
	scanner := admin.NewScanner(repo, scorer)
	assignments := admin.NewAssignments(repo)
	indexBuilder := aiindex.NewBuilder(repo, ledger, scorer)

	researchSvc := research.NewService(logger,
		research.NewCrossrefClient(),
		research.NewOpenAlexClient(),
	)

	var uploader artifact.Uploader
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		uploader = artifact.NewStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.ArtifactBucket)
	} else {
		logger.Warn("artifact storage not configured; ai-index pdfs stream inline")
	}

	var queue *rabbitmq.Queue
	if q, err := rabbitmq.Dial(cfg.RabbitURL, cfg.RabbitQueue); err != nil {
		logger.Warn("export queue unavailable", zap.Error(err))
	} else {
		queue = q
		defer queue.Close()
	}

	var limiter *redisstore.Limiter
	if cfg.RedisAddr != "" {
		limiter = redisstore.NewLimiter(redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
	}

	var authManager *auth.Manager
	if cfg.DemoPass != "" {
		authManager, err = auth.NewManager(cfg.SessionSecret, cfg.DemoPass)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no access password configured; login wall disabled")
	}

	h := &handlers.Handlers{
		Logger:      logger,
		Sessions:    svc,
		Repo:        repo,
		Scanner:     scanner,
		Assignments: assignments,
		Research:    researchSvc,
		Index:       indexBuilder,
		Uploader:    uploader,
		Queue:       queue,
		Auth:        authManager,
		PromptCap:   cfg.PromptCap,
	}

	router := httpapi.New(httpapi.Options{
		Logger:     logger,
		Handlers:   h,
		Auth:       authManager,
		AdminKey:   cfg.AdminKey,
		Limiter:    limiter,
		Production: cfg.IsProduction(),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	return router.Run(addr)
}
