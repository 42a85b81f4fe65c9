package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-festbuzz/internal/config"
	"ms-festbuzz/internal/database/migrations"
	"ms-festbuzz/internal/logger"
)

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up | down | to | version")
	target := flag.Uint("version", migrations.SchemaVersion, "target version for -cmd=to")
	seed := flag.Bool("seed", false, "apply demo data migrations with -cmd=up")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[Config] %v", err)
	}
	if cfg.Database.DSN == "" {
		log.Fatal("[Database] POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("[Database] Failed to open Postgres: %v", err)
	}
	if err := sqldb.Ping(); err != nil {
		log.Fatalf("[Database] Failed to connect to Postgres: %v", err)
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
		MigrationsDir: cfg.Migrations.Dir,
		SeedData:      *seed || cfg.Migrations.Seed,
	}, logger.NewWriterLogger(os.Stdout))
	defer runner.Close()

	switch *cmd {
	case "up":
		err = runner.RunMigrations()
	case "down":
		err = runner.MigrateDown()
	case "to":
		err = runner.MigrateTo(*target)
	case "version":
		var (
			v     uint
			dirty bool
		)
		v, dirty, err = runner.Version()
		if err == nil {
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
		}
	default:
		err = fmt.Errorf("unknown command %q", *cmd)
	}
	if err != nil {
		log.Fatalf("[Migrate] %v", err)
	}
	log.Println("✅ Done.")
}
