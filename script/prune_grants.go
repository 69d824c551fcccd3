package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/yi-nology/survey_vault/biz/dal/db"
	"github.com/yi-nology/survey_vault/pkg/config"
	"github.com/yi-nology/survey_vault/pkg/database"
)

// Removes token grant ledger rows that expired long ago.
// Usage: go run script/prune_grants.go -older-than=720h

var (
	configPath = flag.String("config", "config.yaml", "path to config.yaml")
	olderThan  = flag.Duration("older-than", 30*24*time.Hour, "delete grants that expired before now minus this duration")
	dryRun     = flag.Bool("dry-run", false, "only report how many rows would be deleted")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	conn, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close(conn)

	cutoff := time.Now().Add(-*olderThan)
	ctx := context.Background()
	log.Printf("pruning grants that expired before %s", cutoff.Format(time.RFC3339))

	if *dryRun {
		var count int64
		if err := conn.WithContext(ctx).Table("token_grant").Where("expires_on < ?", cutoff).Count(&count).Error; err != nil {
			log.Fatalf("count grants: %v", err)
		}
		log.Printf("%d grants would be deleted", count)
		return
	}

	removed, err := db.NewGrantDAO().DeleteExpiredBefore(ctx, conn, cutoff)
	if err != nil {
		log.Fatalf("prune grants: %v", err)
	}
	log.Printf("deleted %d grants", removed)
}
