// Command migrate applies the SQL files under db/migrations to DATABASE_URL.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/PortNumber53/brandhub/internal/config"
	"github.com/PortNumber53/brandhub/internal/logging"
)

const defaultMigrationsPath = "db/migrations"

func main() {
	log := logging.NewLogger(os.Getenv("LOG_LEVEL"))
	msg, err := run(os.Args[1:], defaultDeps())
	if err != nil {
		log.WithError(err).Fatal("migrate failed")
	}
	log.Info(msg)
}

type deps struct {
	loadEnv  func()
	getenv   func(string) string
	openDB   func(driverName, dataSourceName string) (*sql.DB, error)
	migrateF func(db *sql.DB, o options) error
}

func defaultDeps() deps {
	return deps{
		loadEnv:  func() { config.LoadEnv(nil) },
		getenv:   os.Getenv,
		openDB:   sql.Open,
		migrateF: performMigrations,
	}
}

type options struct {
	direction  string
	steps      int
	force      int
	forceDirty bool
	status     bool
	path       string
}

type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Force(version int) error
	Version() (version uint, dirty bool, err error)
}

// Factories are swapped in tests so no Postgres is needed.
var withPostgresInstance = func(db *sql.DB) (migratedb.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{})
}

var newMigrateWithDB = func(sourceURL string, databaseName string, driver migratedb.Driver) (migrator, error) {
	return migrate.NewWithDatabaseInstance(sourceURL, databaseName, driver)
}

var newMigrator = func(db *sql.DB, path string) (migrator, error) {
	driver, err := withPostgresInstance(db)
	if err != nil {
		return nil, fmt.Errorf("create migration driver: %w", err)
	}
	m, err := newMigrateWithDB("file://"+path, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}

func parseArgs(args []string, getenv func(string) string) (options, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	var o options
	defPath := defaultMigrationsPath
	if getenv != nil {
		if p := strings.TrimSpace(getenv("MIGRATIONS_PATH")); p != "" {
			defPath = p
		}
	}
	fs.StringVar(&o.direction, "direction", "up", "migration direction: up or down")
	fs.IntVar(&o.steps, "steps", 0, "number of migration steps (0 = all)")
	fs.IntVar(&o.force, "force", -1, "force set migration version (clears dirty state), e.g. -force=1")
	fs.BoolVar(&o.forceDirty, "force-dirty", false, "if the database is dirty, force it to the current version and exit")
	fs.BoolVar(&o.status, "status", false, "print the current schema version and exit")
	fs.StringVar(&o.path, "path", defPath, "directory holding the migration files")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if o.steps < 0 {
		return options{}, fmt.Errorf("invalid steps %d (must be >= 0)", o.steps)
	}
	switch o.direction {
	case "up", "down":
		return o, nil
	default:
		return options{}, fmt.Errorf("invalid direction %q (must be up or down)", o.direction)
	}
}

func run(args []string, d deps) (string, error) {
	if d.loadEnv != nil {
		d.loadEnv()
	}
	o, err := parseArgs(args, d.getenv)
	if err != nil {
		return "", err
	}

	databaseURL := ""
	if d.getenv != nil {
		databaseURL = strings.TrimSpace(d.getenv("DATABASE_URL"))
	}
	if databaseURL == "" {
		return "", errors.New("DATABASE_URL environment variable is required")
	}
	if d.openDB == nil {
		return "", errors.New("openDB dependency is required")
	}
	db, err := d.openDB("postgres", databaseURL)
	if err != nil {
		return "", fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if o.status || o.force >= 0 || o.forceDirty {
		m, err := newMigrator(db, o.path)
		if err != nil {
			return "", err
		}
		return inspectOrForce(m, o)
	}

	if d.migrateF == nil {
		return "", errors.New("migrateF dependency is required")
	}
	err = d.migrateF(db, o)
	if errors.Is(err, migrate.ErrNoChange) {
		return "no migrations to apply", nil
	}
	if err != nil {
		return "", fmt.Errorf("migration failed: %w", err)
	}
	return fmt.Sprintf("migration %s completed", o.direction), nil
}

// inspectOrForce handles the flags that read or overwrite the version table without migrating.
func inspectOrForce(m migrator, o options) (string, error) {
	v, dirty, verr := m.Version()
	switch {
	case o.status:
		if errors.Is(verr, migrate.ErrNilVersion) {
			return "no migrations applied", nil
		}
		if verr != nil {
			return "", fmt.Errorf("read migration version: %w", verr)
		}
		return fmt.Sprintf("version=%d dirty=%t", v, dirty), nil
	case o.forceDirty:
		if verr != nil {
			return "", fmt.Errorf("read migration version: %w", verr)
		}
		if !dirty {
			return "database is not dirty (no force needed)", nil
		}
		if err := m.Force(int(v)); err != nil {
			return "", fmt.Errorf("force dirty version %d: %w", v, err)
		}
		return fmt.Sprintf("forced dirty database to version %d", v), nil
	}
	if err := m.Force(o.force); err != nil {
		return "", fmt.Errorf("force version %d: %w", o.force, err)
	}
	return fmt.Sprintf("forced database to version %d", o.force), nil
}

func performMigrations(db *sql.DB, o options) error {
	m, err := newMigrator(db, o.path)
	if err != nil {
		return err
	}
	return applyDirection(m, o.direction, o.steps)
}

func applyDirection(m migrator, direction string, steps int) error {
	switch direction {
	case "up":
		if steps > 0 {
			return m.Steps(steps)
		}
		return m.Up()
	case "down":
		if steps > 0 {
			return m.Steps(-steps)
		}
		return m.Down()
	default:
		return fmt.Errorf("invalid direction %q (must be up or down)", direction)
	}
}
