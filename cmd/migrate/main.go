package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/config"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/repository"
	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/database"
)

const usage = `
Pumpkin Chat - Database CLI Tool

Usage:
  migrate [flags] [command]

Commands:
  up          Apply all pending migrations
  status      Show connection status, applied migrations and table sizes
  gc-tokens   Delete expired pairing tokens

Flags:
  -migrations string   Path to migrations directory (default "migrations")

Examples:
  go run ./cmd/migrate up
  go run ./cmd/migrate -migrations ./migrations status
  go run ./cmd/migrate gc-tokens
`

func main() {
	migrationsDir := flag.String("migrations", "migrations", "Path to migrations directory")

	flag.Usage = func() {
		fmt.Print(usage)
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	command := flag.Arg(0)

	cfg := config.LoadConfig()
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer database.Close()

	switch command {
	case "up":
		runMigrationsUp(*migrationsDir)
	case "status":
		showStatus()
	case "gc-tokens":
		runTokenGC(repository.NewPairingRepository(db))
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func runMigrationsUp(migrationsDir string) {
	log.Println("Running migrations UP...")

	if err := database.ApplyMigrations(migrationsDir); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("Migrations completed successfully")
}

func showStatus() {
	log.Println("Checking database status...")

	if err := database.Ping(); err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Database connection: OK")

	applied, err := database.AppliedMigrations()
	if err != nil {
		log.Printf("Could not read schema_migrations: %v", err)
	}
	for _, name := range applied {
		log.Printf("Applied migration %s", name)
	}

	for _, table := range database.CoreTables {
		exists, err := database.TableExists(table)
		if err != nil {
			log.Printf("Error checking table %s: %v", table, err)
			continue
		}
		if exists {
			count, _ := database.GetTableCount(table)
			log.Printf("Table %-20s exists (%d rows)", table, count)
		} else {
			log.Printf("Table %-20s does not exist", table)
		}
	}

	if err := database.HealthCheck(); err != nil {
		log.Printf("Health check warning: %v", err)
	} else {
		log.Println("Health check: PASSED")
	}
}

func runTokenGC(repo repository.PairingRepository) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := repo.PurgeExpired(ctx, uuid.Nil, time.Now().UTC())
	if err != nil {
		log.Fatalf("Token GC failed: %v", err)
	}
	log.Printf("Deleted %d expired pairing tokens", n)
}
