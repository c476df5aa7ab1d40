package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hugh/adopt-a-pet/internal/database"
	"github.com/hugh/adopt-a-pet/pkg/config"
	"github.com/hugh/adopt-a-pet/pkg/util"
	"github.com/joho/godotenv"
)

const usage = "usage: migrate [up|down|version]"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := util.NewLogger(cfg.Server.Env)

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	if err := run(cmd, cfg, logger); err != nil {
		logger.Error("migration failed", "command", cmd, "error", err)
		os.Exit(1)
	}
}

func run(cmd string, cfg *config.Config, logger *slog.Logger) error {
	mg, err := database.NewMigrator(cfg.Database.MigrationURL(), logger)
	if err != nil {
		return err
	}
	defer mg.Close()

	switch cmd {
	case "up":
		return mg.Up()
	case "down":
		return mg.Down()
	case "version":
		version, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		fmt.Printf("version %d (dirty: %t)\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown command %q; %s", cmd, usage)
	}
}
