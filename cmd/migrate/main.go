// Command migrate manages the accounting schema: open documents, tenant
// settings and the webhook inbox.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/contabilidad/backend/internal/infrastructure/config"
	"github.com/contabilidad/backend/internal/infrastructure/logger"
	"github.com/contabilidad/backend/internal/infrastructure/migration"
	"github.com/contabilidad/backend/migrations"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const defaultMigrationsDir = "migrations"

// cli is the parsed invocation
type cli struct {
	dir         string // empty means the embedded migrations
	databaseURL string
	args        []string
	log         *zap.Logger
}

// command is one subcommand; database commands get an open Migrator
type command struct {
	usage   string
	minArgs int
	offline func(c *cli) error
	online  func(c *cli, m *migration.Migrator) error
}

var commands = map[string]command{
	"up": {usage: "up", online: func(_ *cli, m *migration.Migrator) error { return m.Up() }},
	"down": {usage: "down", online: func(_ *cli, m *migration.Migrator) error { return m.Down() }},
	"step": {usage: "step <n>", minArgs: 1, online: func(c *cli, m *migration.Migrator) error {
		n, err := strconv.Atoi(c.args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", c.args[0])
		}
		return m.Steps(n)
	}},
	"force": {usage: "force <version>", minArgs: 1, online: func(c *cli, m *migration.Migrator) error {
		v, err := strconv.Atoi(c.args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", c.args[0])
		}
		c.log.Warn("Forcing schema version; the dirty flag is cleared without running SQL", zap.Int("version", v))
		return m.Force(v)
	}},
	"version": {usage: "version", online: runVersion},
	"create":  {usage: "create <name> [description]", minArgs: 1, offline: runCreate},
	"list":    {usage: "list", offline: runList},
}

func main() {
	var c cli
	logLevel := flag.String("log-level", "info", "debug, info, warn or error")
	flag.StringVar(&c.dir, "path", "", "migrations directory (default: migrations embedded in the binary)")
	flag.StringVar(&c.databaseURL, "database-url", "", "postgres:// URL; overrides CONTABILIDAD_DATABASE_* (embedded migrations only)")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}
	name := flag.Arg(0)
	c.args = flag.Args()[1:]

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
		printUsage()
		os.Exit(2)
	}
	if len(c.args) < cmd.minArgs {
		fmt.Fprintf(os.Stderr, "usage: migrate %s\n", cmd.usage)
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{
		Level:      *logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	c.log = log

	if c.dir != "" {
		if c.dir, err = filepath.Abs(c.dir); err != nil {
			log.Fatal("Failed to resolve migrations path", zap.Error(err))
		}
	}
	log.Info("Migration CLI started", zap.String("command", name), zap.String("source", c.source()))

	if cmd.offline != nil {
		err = cmd.offline(&c)
	} else {
		err = c.withMigrator(cmd.online)
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", name), zap.Error(err))
	}
}

func (c *cli) source() string {
	if c.dir == "" {
		return "embedded"
	}
	return c.dir
}

func (c *cli) fs() fs.FS {
	if c.dir == "" {
		return migrations.FS
	}
	return os.DirFS(c.dir)
}

// withMigrator opens the database from -database-url or the service config
func (c *cli) withMigrator(run func(*cli, *migration.Migrator) error) error {
	var (
		m   *migration.Migrator
		err error
	)
	if c.databaseURL != "" {
		if c.dir != "" {
			return errors.New("-database-url only runs the embedded migrations")
		}
		m, err = migration.NewFromURL(c.databaseURL, c.log)
	} else {
		m, err = c.migratorFromConfig()
	}
	if err != nil {
		return err
	}
	defer m.Close()
	return run(c, m)
}

func (c *cli) migratorFromConfig() (*migration.Migrator, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	// the Migrator closes db from here on
	m, err := migration.New(db, c.dir, c.log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return m, nil
}

func runVersion(c *cli, m *migration.Migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		c.log.Info("No migrations applied")
		return nil
	}
	c.log.Info("Current schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func runCreate(c *cli) error {
	dir := c.dir
	if dir == "" {
		dir = defaultMigrationsDir
	}
	description := ""
	if len(c.args) > 1 {
		description = c.args[1]
	}

	mf, err := migration.CreateMigration(dir, c.args[0], description)
	if err != nil {
		return err
	}
	c.log.Info("Migration created",
		zap.Uint("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func runList(c *cli) error {
	infos, err := migration.ListMigrations(c.fs())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		c.log.Info("No migrations found")
		return nil
	}
	for _, m := range infos {
		down := ""
		if !m.HasDown {
			down = " (no down)"
		}
		fmt.Printf("  %06d %s%s\n", m.Version, m.Name, down)
	}
	return nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Contabilidad schema migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    apply every pending migration
  down                  roll every migration back
  step <n>              apply n migrations, negative n rolls back
  version               show the applied version and dirty flag
  force <version>       set the version without running SQL
  create <name> [desc]  write a new up/down pair into -path
  list                  list the available migrations

Flags:
  -path string          migrations directory (default: embedded)
  -database-url string  postgres:// URL instead of CONTABILIDAD_DATABASE_*
  -log-level string     debug, info, warn or error (default: info)

Examples:
  migrate up
  migrate step -1
  migrate create add_payment_terms "Add payment terms to open documents"
`)
}
