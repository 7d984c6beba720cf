package db

import (
	"fmt"
	"io"
	"strconv"
)

// RunMigrateCommand handles the 'migrate' subcommand: up, down, status or
// force <version>.
func RunMigrateCommand(out io.Writer, args []string, dbPath string) error {
	if len(args) < 1 {
		PrintMigrateHelp(out)
		return fmt.Errorf("missing migrate action")
	}

	// Open without migrating; the action decides what happens to the schema.
	database, err := OpenDB(dbPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	switch action := args[0]; action {
	case "up":
		if err := database.MigrateUp(); err != nil {
			return err
		}
		fmt.Fprintln(out, "All migrations applied")

	case "down":
		if err := database.MigrateDown(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Rolled back one migration")

	case "status":
		// version is printed below

	case "force":
		if len(args) < 2 {
			return fmt.Errorf("usage: taxiin migrate force <version>")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version number %q: %w", args[1], err)
		}
		if err := database.MigrateForce(v); err != nil {
			return err
		}
		fmt.Fprintf(out, "Migration version forced to %d\n", v)

	case "help":
		PrintMigrateHelp(out)
		return nil

	default:
		PrintMigrateHelp(out)
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", version, dirty)
	if dirty {
		fmt.Fprintln(out, "A migration failed mid-execution; inspect the database, then run: taxiin migrate force <version>")
	}
	return nil
}

// PrintMigrateHelp writes usage for the migrate subcommand.
func PrintMigrateHelp(out io.Writer) {
	fmt.Fprintln(out, "Usage: taxiin -db <path> migrate <action>")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Actions:")
	fmt.Fprintln(out, "  up              Apply all pending migrations")
	fmt.Fprintln(out, "  down            Roll back the most recent migration")
	fmt.Fprintln(out, "  status          Show the current migration version")
	fmt.Fprintln(out, "  force <N>       Set the version to N without running migrations (recovery only)")
}
