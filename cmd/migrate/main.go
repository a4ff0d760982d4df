package main

import (
	"flag"
	"fmt"
	"os"

	"ecommerce-api/internal/config"
	"ecommerce-api/internal/database"
	"ecommerce-api/internal/logger"

	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: migrate [-dir migrations] up|down|status\n")
	flag.PrintDefaults()
}

func main() {
	dir := flag.String("dir", "migrations", "directory holding goose migration files")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log, err := logger.New(cfg.Server.Env, cfg.Server.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbService.Close()

	db := dbService.DB()
	switch command := flag.Arg(0); command {
	case "up":
		err = database.RunMigrations(db, *dir, log)
	case "down":
		err = database.RollbackMigration(db, *dir, log)
	case "status":
		err = database.GetMigrationStatus(db, *dir)
	default:
		log.Error("Unknown command", zap.String("command", command))
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal("Migration command failed", zap.Error(err))
	}
}
