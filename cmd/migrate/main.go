package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ignite/mailcheck/internal/domain"
	"github.com/ignite/mailcheck/internal/repository/postgres"

	_ "github.com/lib/pq"
)

func main() {
	var (
		schemaPath = flag.String("schema", "scripts/schema.sql", "path to the schema file")
		listOnly   = flag.Bool("list", false, "list public tables instead of migrating")
		seed       = flag.Bool("seed", false, "create a workspace and print its API key")
		seedName   = flag.String("workspace-name", "Demo Workspace", "name for the seeded workspace")
		seedSlug   = flag.String("workspace-slug", "demo", "slug for the seeded workspace")
		seedPlan   = flag.String("plan", "free", "plan for the seeded workspace (free, pro, team)")
	)
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if *listOnly {
		rows, err := db.Query("SELECT tablename FROM pg_tables WHERE schemaname='public' ORDER BY tablename")
		if err != nil {
			log.Fatal(err)
		}
		defer rows.Close()
		n := 0
		for rows.Next() {
			var t string
			rows.Scan(&t)
			fmt.Println(" ", t)
			n++
		}
		fmt.Printf("Total: %d tables\n", n)
		return
	}

	if *seed {
		if err := seedWorkspace(db, *seedName, *seedSlug, *seedPlan); err != nil {
			log.Fatalf("seed: %v", err)
		}
		return
	}

	data, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("read %s: %v", *schemaPath, err)
	}
	fmt.Printf("  %s ... ", *schemaPath)

	tx, err := db.Begin()
	if err != nil {
		log.Fatalf("BEGIN: %v", err)
	}
	if _, err := tx.Exec(string(data)); err != nil {
		tx.Rollback()
		log.Fatalf("apply schema: %v", err)
	}
	if err := tx.Commit(); err != nil {
		log.Fatalf("commit: %v", err)
	}
	fmt.Println("OK")
	log.Println("Migrations complete")
}

// seedWorkspace creates a workspace and prints the generated API key once.
// The key is stored in plain form; there is no way to recover it later
// other than reading the row.
func seedWorkspace(db *sql.DB, name, slug, plan string) error {
	switch plan {
	case "free", "pro", "team":
	default:
		return fmt.Errorf("unknown plan %q", plan)
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Errorf("generate api key: %w", err)
	}
	key := "mc_" + hex.EncodeToString(buf)

	ws := &domain.Workspace{Name: name, Slug: slug, Plan: plan, APIKey: key}
	repo := postgres.NewWorkspaceRepo(db)
	if err := repo.Create(context.Background(), ws); err != nil {
		return err
	}

	fmt.Printf("Created workspace %q (id=%d, slug=%s, plan=%s)\n", ws.Name, ws.ID, ws.Slug, ws.Plan)
	fmt.Printf("X-API-Key: %s\n", key)
	return nil
}
