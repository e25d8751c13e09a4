package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/banshee-data/plate.report/internal/alpr/storage"
)

func printMigrateHelp() {
	fmt.Fprint(os.Stderr, `Usage: plate migrate [-db path] <action>

Actions:
  up              apply all pending migrations
  down            roll back the most recent migration
  status          print the current schema version
  force <version> set the version without running migrations (dirty recovery)
  help            show this help
`)
}

func migrateCommand(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", "plates.db", "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return runMigrate(fs.Args(), *dbPath)
}

func runMigrate(args []string, dbPath string) error {
	if len(args) < 1 || args[0] == "help" {
		printMigrateHelp()
		if len(args) < 1 {
			return fmt.Errorf("missing migrate action")
		}
		return nil
	}

	db, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action := args[0]; action {
	case "up":
		log.Printf("Running migrations...")
		if err := db.MigrateUp(); err != nil {
			return err
		}
	case "down":
		log.Printf("Rolling back one migration...")
		if err := db.MigrateDown(); err != nil {
			return err
		}
	case "status":
	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: plate migrate force <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", args[1], err)
		}
		if err := db.MigrateForce(v); err != nil {
			return err
		}
	default:
		printMigrateHelp()
		return fmt.Errorf("unknown migrate action %q", action)
	}

	version, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	log.Printf("Current version: %d (dirty: %v)", version, dirty)
	return nil
}
