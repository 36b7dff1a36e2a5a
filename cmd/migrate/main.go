package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/angelmondragon/tradeflow-backend/internal/bootstrap"
	"github.com/angelmondragon/tradeflow-backend/pkg/db"
	"github.com/angelmondragon/tradeflow-backend/pkg/migrate"
)

const usage = "migration command: up|down|status|version|create|validate"

func main() {
	cmd := flag.String("cmd", "up", usage)
	dir := flag.String("dir", migrate.SourceDir, "source directory for create and validate")
	name := flag.String("name", "", "migration name (create)")
	version := flag.String("version", "", "target version YYYYMMDDHHMMSS (version)")
	flag.Parse()

	// create and validate work on the checkout and need no config
	switch *cmd {
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migrations valid")
		return
	}

	proc, err := bootstrap.Start("migrate")
	if err != nil {
		bootstrap.Exit("migrate", err)
	}
	ctx := proc.Logger.WithFields(context.Background(), map[string]any{"env": proc.Config.App.Env, "cmd": *cmd})

	// dev auto-migration is skipped here; this binary is the explicit path
	dbClient, err := db.New(ctx, proc.Config.DB, proc.Logger)
	if err != nil {
		proc.Fail(ctx, "database unavailable", err)
	}
	defer dbClient.Close()

	runner, err := newRunner(dbClient)
	if err != nil {
		proc.Fail(ctx, "goose provider", err)
	}
	if err := run(ctx, runner, *cmd, *version); err != nil {
		proc.Fail(ctx, "migration failed", err)
	}
	proc.Logger.Info(ctx, "migration finished")
}

func newRunner(client *db.Client) (*migrate.Runner, error) {
	sqlDB, err := client.DB().DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	return migrate.NewRunner(sqlDB, migrate.Migrations())
}

func run(ctx context.Context, runner *migrate.Runner, cmd, version string) error {
	switch cmd {
	case "up":
		applied, err := runner.Up(ctx)
		fmt.Printf("applied %d migration(s)\n", applied)
		return err
	case "down":
		return runner.Down(ctx)
	case "version":
		target, err := migrate.ParseVersion(version)
		if err != nil {
			return err
		}
		return runner.To(ctx, target)
	case "status":
		lines, err := runner.Status(ctx)
		if err != nil {
			return err
		}
		return printStatus(os.Stdout, lines)
	default:
		return fmt.Errorf("unknown -cmd %q (%s)", cmd, usage)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printStatus(out io.Writer, lines []migrate.StatusLine) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATE\tFILE")
	for _, l := range lines {
		state := map[bool]string{true: "applied", false: "pending"}[l.Applied]
		fmt.Fprintf(w, "%d\t%s\t%s\n", l.Version, state, l.Path)
	}
	return w.Flush()
}
