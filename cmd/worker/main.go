package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/mailcheck/internal/config"
	"github.com/ignite/mailcheck/internal/repository/postgres"
	"github.com/ignite/mailcheck/internal/service/usage"
	"github.com/ignite/mailcheck/internal/service/webhook"
	"github.com/ignite/mailcheck/internal/service/workspacecfg"
	"github.com/ignite/mailcheck/internal/verify"
	"github.com/ignite/mailcheck/internal/worker"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.Println("Starting Mailcheck job worker...")

	cfg, err := config.LoadFromEnv("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("Database URL is required (set database.url in config.yaml or the DATABASE_URL env var)")
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())
	db.SetConnMaxIdleTime(1 * time.Minute)

	// Verify connection
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Connected to database")

	// Redis is optional. With it the executor shares one SMTP block
	// sentinel across all workers and the reaper uses a Redis lock;
	// without it SMTP blocks are not tracked and the reaper locks
	// through Postgres advisory locks.
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis ping failed (%v); continuing without it", err)
			redisClient = nil
		} else {
			log.Printf("Redis connected at %s", cfg.Redis.Addr)
		}
	}

	// Webhook dispatcher delivers verification.completed and
	// export.completed events as jobs finish.
	dispatcher := webhook.NewDispatcher(postgres.NewWebhookRepo(db), cfg.Webhooks.Timeout())
	log.Println("Webhook dispatcher initialized")

	deps := worker.Deps{
		Jobs:          postgres.NewJobRepo(db),
		Leads:         postgres.NewLeadRepo(db),
		Verifications: postgres.NewVerificationLogRepo(db),
		Config: workspacecfg.NewService(postgres.NewWorkspaceConfigRepo(db), workspacecfg.Defaults{
			SMTPTimeoutSeconds: cfg.Verification.SMTPTimeoutSeconds,
			DNSTimeoutSeconds:  cfg.Verification.DNSTimeoutSeconds,
			MailFrom:           cfg.Verification.MailFrom,
		}),
		Usage: usage.NewService(postgres.NewUsageRepo(db)),
		Hooks: dispatcher,
	}
	if redisClient != nil {
		deps.Sentinel = verify.NewSentinel(redisClient)
	}

	executor := worker.NewExecutor(db, deps)
	executor.SetNumWorkers(cfg.Worker.NumWorkers)
	executor.SetPollInterval(cfg.Worker.PollInterval())
	if err := executor.Start(); err != nil {
		log.Fatalf("Failed to start executor: %v", err)
	}
	log.Printf("Job executor started (%d workers, poll every %s)", cfg.Worker.NumWorkers, cfg.Worker.PollInterval())

	// The reaper fails over jobs abandoned by crashed workers.
	reaper := worker.NewReaper(db, postgres.NewJobRepo(db), redisClient)
	if err := reaper.Start(); err != nil {
		log.Fatalf("Failed to start reaper: %v", err)
	}
	log.Println("Stale job reaper started")

	log.Println("Worker running...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")

	reaper.Stop()
	executor.Stop()
	dispatcher.Stop()
	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Worker stopped")
}
