// Command migrate manages the Warbler schema outside of server start-up.
//
//	migrate up            apply pending SQL migrations (postgres)
//	migrate auto          run GORM AutoMigrate for users, messages, follows, likes
//	migrate status        print the schema policy and every migration's state
//	migrate down VERSION  roll back one migration (refused in production without -force)
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"

	"warbler/internal/config"
	"warbler/internal/database"

	"gorm.io/gorm"
)

type command func(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error

var commands = map[string]command{
	"up":     migrateUp,
	"auto":   migrateAuto,
	"status": migrateStatus,
	"down":   migrateDown,
}

var force = flag.Bool("force", false, "Allow rollbacks against a production database")

func main() {
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: migrate [-force] <up|auto|status|down VERSION>")
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd, ok := commands[strings.ToLower(flag.Arg(0))]
	if !ok {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Connect without the start-up schema step; that is what this tool drives.
	dialector, err := database.Dialector(cfg)
	if err != nil {
		log.Fatal(err)
	}
	db, err := database.ConnectWithDialector(dialector, cfg)
	if err != nil {
		log.Fatalf("connect database: %v", err)
	}

	if err := cmd(context.Background(), db, cfg, flag.Args()[1:]); err != nil {
		log.Fatal(err)
	}
}

func migrateUp(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	if cfg.DBDriver != "" && cfg.DBDriver != "postgres" {
		return fmt.Errorf("SQL migrations target postgres; use \"migrate auto\" for %s", cfg.DBDriver)
	}
	if err := database.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("sql migrations failed: %w", err)
	}
	log.Println("sql migrations applied")
	return nil
}

func migrateAuto(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	cfg.DBSchemaMode = database.SchemaModeAuto
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return fmt.Errorf("auto schema apply failed: %w", err)
	}
	log.Println("users, messages, follows and likes tables are up to date")
	return nil
}

func migrateStatus(ctx context.Context, db *gorm.DB, cfg *config.Config, _ []string) error {
	status, err := database.GetSchemaStatus(ctx, db, cfg)
	if err != nil {
		return fmt.Errorf("schema status failed: %w", err)
	}
	log.Printf("driver=%s mode=%s env=%s run_sql=%t run_auto=%t",
		cfg.DBDriver, status.Mode, status.Environment, status.WillRunSQL, status.WillRunAutoMigrate)
	if !status.WillRunSQL {
		return nil
	}
	for _, m := range database.GetMigrations() {
		state := "pending"
		if slices.Contains(status.AppliedVersions, m.Version) {
			state = "applied"
		}
		log.Printf("%-8s %s", state, m.String())
	}
	return nil
}

func migrateDown(ctx context.Context, db *gorm.DB, cfg *config.Config, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: migrate down VERSION")
	}
	version, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	if cfg.IsProduction() && !*force {
		return fmt.Errorf("refusing to roll back %06d in production without -force", version)
	}
	if err := database.RollbackMigration(ctx, db, version); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	log.Printf("rolled back migration %06d", version)
	return nil
}
