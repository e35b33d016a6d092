// Command migrate applies the embedded schema migrations. The connection
// comes from -dsn, then MISSIVE_DB_DSN, then the [database] section of
// config.toml with its MISSIVE_DB_* overrides.
package main

import (
	"embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/JaimeStill/missive/internal/config"
)

//go:embed migrations/*.sql
var migrations embed.FS

const envDSN = "MISSIVE_DB_DSN"

func main() {
	var (
		dsn     = flag.String("dsn", "", "Database URL (postgres://...)")
		up      = flag.Bool("up", false, "Run all up migrations")
		down    = flag.Bool("down", false, "Run all down migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version (use with caution)")
	)
	flag.Parse()

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	url, err := resolveURL(*dsn)
	if err != nil {
		log.Fatalf("resolve database: %v", err)
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		log.Fatalf("failed to create migration source: %v", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, url)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("version: none")
			return
		}
		if err != nil {
			log.Fatalf("failed to get version: %v", err)
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			log.Fatalf("failed to force version: %v", err)
		}
		fmt.Printf("forced to version %d\n", *force)
	case *up:
		check(m.Up(), "run up migrations")
		fmt.Println("migrations applied")
	case *down:
		check(m.Down(), "run down migrations")
		fmt.Println("migrations reverted")
	case *steps != 0:
		check(m.Steps(*steps), "step migrations")
		fmt.Printf("applied %d migration steps\n", *steps)
	default:
		fmt.Println("usage: migrate [-dsn <url>] -up | -down | -steps N | -version | -force N")
		flag.PrintDefaults()
	}
}

func resolveURL(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if v := os.Getenv(envDSN); v != "" {
		return v, nil
	}

	db, err := config.LoadDatabase()
	if err != nil {
		return "", err
	}
	return db.URL(), nil
}

func check(err error, action string) {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("failed to %s: %v", action, err)
	}
}
