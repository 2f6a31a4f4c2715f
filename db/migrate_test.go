package main

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
)

func envWithDB(extra map[string]string) func(string) string {
	return func(k string) string {
		if k == "DATABASE_URL" {
			return "postgres://example"
		}
		return extra[k]
	}
}

type fakeMigrator struct {
	upCalls    int
	downCalls  int
	stepsCalls []int
	forceCalls []int
	version    uint
	dirty      bool
	versionErr error
}

func (f *fakeMigrator) Up() error                    { f.upCalls++; return nil }
func (f *fakeMigrator) Down() error                  { f.downCalls++; return nil }
func (f *fakeMigrator) Steps(n int) error            { f.stepsCalls = append(f.stepsCalls, n); return nil }
func (f *fakeMigrator) Force(v int) error            { f.forceCalls = append(f.forceCalls, v); return nil }
func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, f.dirty, f.versionErr }

// useFakeMigrator routes newMigrator to fm for the duration of the test and records the path used.
func useFakeMigrator(t *testing.T, fm *fakeMigrator) *string {
	t.Helper()
	prevWith, prevNew := withPostgresInstance, newMigrateWithDB
	t.Cleanup(func() { withPostgresInstance, newMigrateWithDB = prevWith, prevNew })

	var source string
	withPostgresInstance = func(*sql.DB) (migratedb.Driver, error) { return nil, nil }
	newMigrateWithDB = func(url, _ string, _ migratedb.Driver) (migrator, error) {
		source = url
		return fm, nil
	}
	return &source
}

func mockDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestParseArgs(t *testing.T) {
	o, err := parseArgs(nil, nil)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if o.direction != "up" || o.steps != 0 || o.force != -1 || o.forceDirty || o.status || o.path != "db/migrations" {
		t.Fatalf("unexpected defaults %+v", o)
	}

	o, err = parseArgs([]string{"-force", "1", "-status"}, envWithDB(map[string]string{"MIGRATIONS_PATH": "/srv/migrations"}))
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	if o.force != 1 || !o.status || o.path != "/srv/migrations" {
		t.Fatalf("unexpected options %+v", o)
	}

	for _, bad := range [][]string{{"-direction", "sideways"}, {"-steps", "-2"}, {"-nope"}} {
		if _, err := parseArgs(bad, nil); err == nil {
			t.Fatalf("%v: expected error", bad)
		}
	}
}

func TestRun_Migrate(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		result  error
		wantMsg string
		wantErr bool
	}{
		{name: "no change", args: []string{"-direction", "up"}, result: migrate.ErrNoChange, wantMsg: "no migrations to apply"},
		{name: "steps down", args: []string{"-direction", "down", "-steps", "2"}, wantMsg: "migration down completed"},
		{name: "failure", args: nil, result: sql.ErrTxDone, wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var got options
			loaded := false
			msg, err := run(c.args, deps{
				loadEnv: func() { loaded = true },
				getenv:  envWithDB(nil),
				openDB:  func(string, string) (*sql.DB, error) { return mockDB(t), nil },
				migrateF: func(_ *sql.DB, o options) error {
					got = o
					return c.result
				},
			})
			if !loaded {
				t.Fatalf("expected env to be loaded")
			}
			if c.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			if msg != c.wantMsg {
				t.Fatalf("expected %q got %q", c.wantMsg, msg)
			}
			if c.name == "steps down" && (got.direction != "down" || got.steps != 2) {
				t.Fatalf("unexpected options passed to migrateF: %+v", got)
			}
		})
	}
}

func TestRun_Preconditions(t *testing.T) {
	if _, err := run(nil, deps{getenv: func(string) string { return "" }}); err == nil {
		t.Fatalf("expected missing DATABASE_URL error")
	}
	if _, err := run(nil, deps{getenv: envWithDB(nil)}); err == nil {
		t.Fatalf("expected missing openDB error")
	}
	_, err := run(nil, deps{
		getenv: envWithDB(nil),
		openDB: func(string, string) (*sql.DB, error) { return nil, sql.ErrConnDone },
	})
	if !errors.Is(err, sql.ErrConnDone) {
		t.Fatalf("expected wrapped open error, got %v", err)
	}
	_, err = run(nil, deps{
		getenv: envWithDB(nil),
		openDB: func(string, string) (*sql.DB, error) { return mockDB(t), nil },
	})
	if err == nil {
		t.Fatalf("expected missing migrateF error")
	}
}

func TestRun_ForceVersion(t *testing.T) {
	fm := &fakeMigrator{}
	source := useFakeMigrator(t, fm)

	msg, err := run([]string{"-force", "1", "-path", "/tmp/m"}, deps{
		getenv: envWithDB(nil),
		openDB: func(string, string) (*sql.DB, error) { return mockDB(t), nil },
		migrateF: func(*sql.DB, options) error {
			t.Fatalf("migrateF should not be called when forcing")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if msg != "forced database to version 1" || len(fm.forceCalls) != 1 || fm.forceCalls[0] != 1 {
		t.Fatalf("unexpected result %q %#v", msg, fm.forceCalls)
	}
	if *source != "file:///tmp/m" {
		t.Fatalf("expected custom path, got %q", *source)
	}
}

func TestInspectOrForce(t *testing.T) {
	if msg, _ := inspectOrForce(&fakeMigrator{versionErr: migrate.ErrNilVersion}, options{status: true}); msg != "no migrations applied" {
		t.Fatalf("unexpected status msg %q", msg)
	}
	if msg, _ := inspectOrForce(&fakeMigrator{version: 1, dirty: true}, options{status: true}); msg != "version=1 dirty=true" {
		t.Fatalf("unexpected status msg %q", msg)
	}
	if msg, _ := inspectOrForce(&fakeMigrator{version: 1}, options{forceDirty: true}); msg != "database is not dirty (no force needed)" {
		t.Fatalf("unexpected msg %q", msg)
	}

	fm := &fakeMigrator{version: 3, dirty: true}
	msg, err := inspectOrForce(fm, options{forceDirty: true})
	if err != nil || msg != "forced dirty database to version 3" || len(fm.forceCalls) != 1 {
		t.Fatalf("unexpected force-dirty %q %v %#v", msg, err, fm.forceCalls)
	}
	if _, err := inspectOrForce(&fakeMigrator{versionErr: sql.ErrConnDone}, options{forceDirty: true}); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestApplyDirection(t *testing.T) {
	fm := &fakeMigrator{}
	if err := applyDirection(fm, "sideways", 0); err == nil {
		t.Fatalf("expected error")
	}
	_ = applyDirection(fm, "up", 0)
	_ = applyDirection(fm, "down", 0)
	_ = applyDirection(fm, "up", 2)
	_ = applyDirection(fm, "down", 3)
	if fm.upCalls != 1 || fm.downCalls != 1 || len(fm.stepsCalls) != 2 || fm.stepsCalls[0] != 2 || fm.stepsCalls[1] != -3 {
		t.Fatalf("unexpected calls %+v", fm)
	}
}

func TestPerformMigrations(t *testing.T) {
	fm := &fakeMigrator{}
	useFakeMigrator(t, fm)
	if err := performMigrations(nil, options{direction: "up", path: defaultMigrationsPath}); err != nil {
		t.Fatalf("performMigrations: %v", err)
	}
	if fm.upCalls != 1 {
		t.Fatalf("expected Up called once, got %d", fm.upCalls)
	}

	withPostgresInstance = func(*sql.DB) (migratedb.Driver, error) { return nil, sql.ErrConnDone }
	if err := performMigrations(nil, options{direction: "up"}); err == nil {
		t.Fatalf("expected driver error")
	}
}

func TestDefaultDeps_NonNil(t *testing.T) {
	d := defaultDeps()
	if d.loadEnv == nil || d.getenv == nil || d.openDB == nil || d.migrateF == nil {
		t.Fatalf("expected default deps to be populated: %#v", d)
	}
}
