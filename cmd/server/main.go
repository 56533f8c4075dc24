package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/mailcheck/internal/api"
	"github.com/ignite/mailcheck/internal/config"
	"github.com/ignite/mailcheck/internal/repository/postgres"
	"github.com/ignite/mailcheck/internal/service/jobs"
	"github.com/ignite/mailcheck/internal/service/leads"
	"github.com/ignite/mailcheck/internal/service/usage"
	"github.com/ignite/mailcheck/internal/service/webhook"
	"github.com/ignite/mailcheck/internal/service/workspacecfg"
	"github.com/ignite/mailcheck/internal/verify"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Mailcheck API Server                                      ║")
	log.Println("║  Email discovery and verification over HTTP                ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	// Load configuration
	cfg, err := config.LoadFromEnv("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}
	if cfg.Database.URL == "" {
		log.Fatal("Database URL is required (set database.url in config.yaml or the DATABASE_URL env var)")
	}

	// Pre-flight check: verify the target port is available
	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", cfg.Server.Port)

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL at ...@%s/...", extractHost(cfg.Database.URL))
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime())

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		log.Fatalf("Failed to ping database: %v", err)
	}
	pingCancel()
	log.Println("PostgreSQL connection established")

	// Connect to Redis if configured. Without it the SMTP block
	// sentinel and its admin endpoints are disabled; everything else
	// works the same.
	var redisClient *redis.Client
	var sentinel *verify.Sentinel
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("Warning: Redis ping failed (%v); continuing without SMTP sentinel", err)
			redisClient = nil
		} else {
			sentinel = verify.NewSentinel(redisClient)
			log.Printf("Redis connected at %s, SMTP sentinel enabled", cfg.Redis.Addr)
		}
	} else {
		log.Println("Redis not configured, SMTP sentinel disabled")
	}

	// Wire up services
	configDefaults := workspacecfg.Defaults{
		SMTPTimeoutSeconds: cfg.Verification.SMTPTimeoutSeconds,
		DNSTimeoutSeconds:  cfg.Verification.DNSTimeoutSeconds,
		MailFrom:           cfg.Verification.MailFrom,
	}
	handlers := api.NewHandlers(api.Deps{
		Workspaces: postgres.NewWorkspaceRepo(db),
		Leads:      leads.NewService(postgres.NewLeadRepo(db)),
		Jobs:       jobs.NewService(postgres.NewJobRepo(db)),
		Config:     workspacecfg.NewService(postgres.NewWorkspaceConfigRepo(db), configDefaults),
		Usage:      usage.NewService(postgres.NewUsageRepo(db)),
		Webhooks:   webhook.NewService(postgres.NewWebhookRepo(db)),
		Sentinel:   sentinel,
		AdminKey:   cfg.Server.AdminKey,
	})
	if cfg.Server.AdminKey == "" {
		log.Println("Warning: no admin key configured, privileged endpoints are disabled")
	}

	health := api.NewHealthChecker(db, redisClient)
	server := api.NewServer(handlers, health, cfg.Server.AllowedOrigins)
	log.Println("API routes registered: /health, /health/live, /api/v1/*")

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := cfg.Server.Addr()
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		redisClient.Close()
	}
	db.Close()

	log.Println("Server stopped")
}
