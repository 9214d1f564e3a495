package main

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/wurksy/wurksy/internal/admin"
	"github.com/wurksy/wurksy/internal/aiindex"
	"github.com/wurksy/wurksy/internal/artifact"
	"github.com/wurksy/wurksy/internal/config"
	"github.com/wurksy/wurksy/internal/db"
	"github.com/wurksy/wurksy/internal/logging"
	"github.com/wurksy/wurksy/internal/policy"
	"github.com/wurksy/wurksy/internal/session"
	"github.com/wurksy/wurksy/internal/store/rabbitmq"
)

// jobTimeout bounds one export build; a wedged upstream must not hold the
// consumer forever.
const jobTimeout = 10 * time.Minute

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
		logger.Fatal("worker exited", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	repo := session.NewRepo(gdb)
	ledger := session.NewLedger(repo, cfg.PromptCap)
	scorer := policy.NewScorer(policy.Default())
	export := admin.NewExport(repo, aiindex.NewBuilder(repo, ledger, scorer))

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return fmt.Errorf("worker requires artifact storage configuration")
	}
	uploader := artifact.NewStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.ArtifactBucket)

	queue, err := rabbitmq.Dial(cfg.RabbitURL, cfg.RabbitQueue)
	if err != nil {
		return err
	}
	defer queue.Close()

	deliveries, err := queue.Consume()
	if err != nil {
		return err
	}

	logger.Info("export worker ready", zap.String("queue", cfg.RabbitQueue))
	for d := range deliveries {
		handle(logger, repo, export, uploader, d)
	}
	return fmt.Errorf("delivery channel closed")
}

func handle(logger *zap.Logger, repo *session.Repo, export *admin.Export, uploader artifact.Uploader, d amqp.Delivery) {
	msg, err := rabbitmq.DecodeExport(d.Body)
	if err != nil {
		logger.Error("bad export message", zap.Error(err))
		// malformed payloads are never retryable
		_ = d.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	log := logger.With(zap.String("job_id", msg.JobID))
	if err := process(ctx, repo, export, uploader, msg.JobID); err != nil {
		log.Error("export failed", zap.Error(err))
		if mErr := repo.MarkExportFailed(ctx, msg.JobID, err.Error()); mErr != nil {
			log.Error("mark failed", zap.Error(mErr))
		}
		_ = d.Nack(false, false)
		return
	}
	log.Info("export complete")
	_ = d.Ack(false)
}

func process(ctx context.Context, repo *session.Repo, export *admin.Export, uploader artifact.Uploader, jobID string) error {
	job, err := repo.GetExportJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.Status != session.JobQueued {
		// duplicate delivery of an already handled job
		return nil
	}
	if err := repo.MarkExportRunning(ctx, jobID); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}

	from, err := parseJobDate(job.FromDate, false)
	if err != nil {
		return err
	}
	to, err := parseJobDate(job.ToDate, true)
	if err != nil {
		return err
	}

	bundle, err := export.Build(ctx, from, to)
	if err != nil {
		return fmt.Errorf("build bundle: %w", err)
	}

	url, err := uploader.UploadAndSign(ctx, "exports/"+jobID, "zip", "application/zip", bundle)
	if err != nil {
		return fmt.Errorf("upload bundle: %w", err)
	}

	if err := repo.MarkExportSucceeded(ctx, jobID, url); err != nil {
		return fmt.Errorf("mark succeeded: %w", err)
	}
	return nil
}

func parseJobDate(raw *string, endOfDay bool) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", *raw)
	if err != nil {
		return nil, fmt.Errorf("bad date %q: %w", *raw, err)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
