package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fantasy-draft/internal/app"
	"github.com/riskibarqy/fantasy-draft/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fantasy-draft/internal/platform/logging"
)

var errUsage = errors.New("usage")

// target is what a command runs against. The migrator is opened for every
// command; the pool only for seed.
type target struct {
	migrator *migrate.Migrate
	dbURL    string
	logger   *logging.Logger
}

type command struct {
	args string
	run  func(t target, args []string) error
}

var commands = map[string]command{
	"up": {run: func(t target, _ []string) error {
		if err := ignoreNoChange(t, t.migrator.Up()); err != nil {
			return err
		}
		t.logger.Info("migrations applied")
		return nil
	}},
	"down": {args: "[steps]", run: func(t target, args []string) error {
		steps := 1
		if len(args) > 0 {
			n, err := positiveInt(args[0])
			if err != nil {
				return fmt.Errorf("down steps: %w", err)
			}
			steps = n
		}
		if err := ignoreNoChange(t, t.migrator.Steps(-steps)); err != nil {
			return err
		}
		t.logger.Info("migrations rolled back", "steps", steps)
		return nil
	}},
	"goto": {args: "<version>", run: func(t target, args []string) error {
		version, err := versionArg(args)
		if err != nil {
			return err
		}
		if err := ignoreNoChange(t, t.migrator.Migrate(version)); err != nil {
			return err
		}
		t.logger.Info("migrated to version", "version", version)
		return nil
	}},
	"force": {args: "<version>", run: func(t target, args []string) error {
		version, err := versionArg(args)
		if err != nil {
			return err
		}
		if err := t.migrator.Force(int(version)); err != nil {
			return fmt.Errorf("force version %d: %w", version, err)
		}
		t.logger.Info("forced migration version", "version", version)
		return nil
	}},
	"version": {run: func(t target, _ []string) error {
		version, dirty, err := t.migrator.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			fmt.Println("version: none")
			fmt.Println("dirty: false")
			return nil
		case err != nil:
			return fmt.Errorf("read version: %w", err)
		}
		fmt.Printf("version: %d\n", version)
		fmt.Printf("dirty: %t\n", dirty)
		return nil
	}},
	// seed loads the demo draft league into an empty schema.
	"seed": {run: func(t target, _ []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		db, err := sqlx.ConnectContext(ctx, "postgres", t.dbURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer func() {
			_ = db.Close()
		}()
		if err := postgres.BootstrapSeed(ctx, db); err != nil {
			return err
		}
		t.logger.Info("demo draft seeded")
		return nil
	}},
}

func main() {
	logger := logging.NewJSON(logging.LevelInfo).With("service", "fantasy-draft-migration")
	err := run(os.Args[1:], logger)
	_ = logger.Sync()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		printUsage(os.Stderr, filepath.Base(os.Args[0]))
		os.Exit(2)
	default:
		logger.Error("migration command failed", "error", err)
		os.Exit(1)
	}
}

func run(args []string, logger *logging.Logger) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, ok := commands[strings.ToLower(strings.TrimSpace(args[0]))]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}

	dbURL := strings.TrimSpace(os.Getenv("DB_URL"))
	if dbURL == "" {
		return errors.New("DB_URL is required")
	}
	disableBinary := true
	if raw := strings.TrimSpace(os.Getenv("DB_DISABLE_PREPARED_BINARY_RESULT")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY_RESULT: %w", err)
		}
		disableBinary = v
	}
	dbURL = app.NormalizeDBURL(dbURL, disableBinary)

	dir, err := migrationsDir(os.Getenv)
	if err != nil {
		return err
	}
	source := "file://" + filepath.ToSlash(dir)
	m, err := migrate.New(source, dbURL)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if err := errors.Join(srcErr, dbErr); err != nil {
			logger.Warn("close migrator", "error", err)
		}
	}()

	logger = logger.With("source", source)
	return cmd.run(target{migrator: m, dbURL: dbURL, logger: logger}, args[1:])
}

func ignoreNoChange(t target, err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		t.logger.Info("no migration changes")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func positiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", raw, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%d must be > 0", n)
	}
	return n, nil
}

// versionArg reads a migration version; versions are unix timestamps.
func versionArg(args []string) (uint, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: version argument is required", errUsage)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(args[0]), 10, strconv.IntSize-1)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", args[0], err)
	}
	return uint(v), nil
}

// migrationsDir returns the first existing candidate directory.
func migrationsDir(getenv func(string) string) (string, error) {
	candidates := []string{
		getenv("MIGRATIONS_DIR"),
		getenv("MIGRATIONS_PATH"),
		"./db/migrations",
		"/app/db/migrations",
	}
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			return abs, nil
		}
	}
	return "", errors.New("migration directory not found (checked MIGRATIONS_DIR, MIGRATIONS_PATH, ./db/migrations, /app/db/migrations)")
}

func printUsage(w io.Writer, bin string) {
	fmt.Fprintf(w, "usage: %s <command> [args]\n\ncommands:\n", bin)
	for _, name := range []string{"up", "down", "goto", "force", "version", "seed"} {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].args)
	}
	fmt.Fprintf(w, "\nexample: %s goto 1791000000\n", bin)
}
