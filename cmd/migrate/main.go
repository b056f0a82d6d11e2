package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/jpcontreras/vendia-backend/pkg/config"
	"github.com/jpcontreras/vendia-backend/pkg/db"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
	"github.com/jpcontreras/vendia-backend/pkg/migrate"
)

type cliFlags struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	_ = godotenv.Load()

	flags := parseFlags()

	cfg, err := config.Load()
	if err != nil {
		fail("load config", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": flags.cmd,
		"dir": flags.dir,
	})

	if err := dispatch(ctx, cfg, logg, flags); err != nil {
		fail(flags.cmd, err)
	}
}

func parseFlags() cliFlags {
	var flags cliFlags
	flag.StringVar(&flags.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&flags.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&flags.name, "name", "", "migration name (for create)")
	flag.StringVar(&flags.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()
	return flags
}

func dispatch(ctx context.Context, cfg *config.Config, logg *logger.Logger, flags cliFlags) error {
	// create and validate work on files alone, no connection needed
	switch flags.cmd {
	case "create":
		if flags.name == "" {
			return fmt.Errorf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(flags.dir, flags.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil

	case "validate":
		if err := migrate.ValidateDir(flags.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("extract sql.DB: %w", err)
	}

	logg.Info(ctx, "migrate ready")

	switch flags.cmd {
	case "up", "down", "status":
		return migrate.Run(ctx, sqlDB, flags.dir, flags.cmd)
	case "version":
		if flags.version == "" {
			return fmt.Errorf("missing -version for version command")
		}
		return migrate.MigrateToVersion(ctx, sqlDB, flags.dir, flags.version)
	default:
		return fmt.Errorf("unknown -cmd value: %s", flags.cmd)
	}
}

func fail(stage string, err error) {
	fmt.Fprintf(os.Stderr, "migrate %s: %v\n", stage, err)
	os.Exit(1)
}
