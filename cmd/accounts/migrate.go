// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/accounts/internal/config"
	"github.com/holomush/accounts/internal/store"
)

// migrator is the subset of *store.Migrator the migrate commands use.
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// newMigrator is replaced in tests.
var newMigrator = func(databaseURL string) (migrator, error) {
	return store.NewMigrator(databaseURL)
}

// NewMigrateCmd creates the migrate subcommand and its children.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long:  `Apply, roll back or inspect the embedded PostgreSQL migrations.`,
	}
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Up(); err != nil {
				return err
			}
			return printStatus(cmd, m)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration (drops all accounts)",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			if err := m.Down(); err != nil {
				return err
			}
			cmd.Println("All migrations rolled back")
			return nil
		}),
	})
	cmd.AddCommand(newMigrateStepsCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show applied, pending and latest migration versions",
		Args:  cobra.NoArgs,
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, _ []string) error {
			return printStatus(cmd, m)
		}),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied without running it, clearing a dirty state",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			if err := m.Force(version); err != nil {
				return err
			}
			cmd.Printf("Forced version %d\n", version)
			return nil
		}),
	})

	return cmd
}

func newMigrateStepsCmd() *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "steps N",
		Short: "Apply the next N migrations, or roll back the last N with --down",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(cmd *cobra.Command, m migrator, args []string) error {
			n, err := parseSteps(args[0])
			if err != nil {
				return err
			}
			if down {
				n = -n
			}
			if err := m.Steps(n); err != nil {
				return err
			}
			return printStatus(cmd, m)
		}),
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back instead of applying")
	return cmd
}

// withMigrator loads the database settings, opens a migrator for run and closes it after.
func withMigrator(run func(cmd *cobra.Command, m migrator, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := config.LoadDatabase(cmd.Flags())
		if err != nil {
			return err
		}
		m, err := newMigrator(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := m.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
		return run(cmd, m, args)
	}
}

func printStatus(cmd *cobra.Command, m migrator) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	applied, err := m.AppliedMigrations()
	if err != nil {
		return err
	}
	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	latest, err := store.LatestVersion()
	if err != nil {
		return err
	}

	current, err := describeVersion(version)
	if err != nil {
		return err
	}
	target, err := describeVersion(latest)
	if err != nil {
		return err
	}
	cmd.Printf("Current version: %s\n", current)
	cmd.Printf("Latest version: %s\n", target)
	cmd.Printf("Dirty: %t\n", dirty)
	cmd.Printf("Applied: %s\n", joinVersions(applied))
	cmd.Printf("Pending: %s\n", joinVersions(pending))
	return nil
}

// describeVersion renders version with its migration name, or "none" for 0.
func describeVersion(version uint) (string, error) {
	if version == 0 {
		return "none", nil
	}
	name, err := store.MigrationName(version)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d (%s)", version, name), nil
}

func joinVersions(versions []uint) string {
	if len(versions) == 0 {
		return "none"
	}
	names := make([]string, 0, len(versions))
	for _, v := range versions {
		names = append(names, strconv.FormatUint(uint64(v), 10))
	}
	return strings.Join(names, ", ")
}

// parseForceVersion parses the VERSION argument of migrate force.
func parseForceVersion(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, oops.Code("INVALID_VERSION").Errorf("version is required")
	}
	version, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Wrap(err)
	}
	return version, nil
}

// parseSteps parses the N argument of migrate steps. N must be positive.
func parseSteps(s string) (int, error) {
	trimmed := strings.TrimSpace(s)
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, oops.Code("INVALID_STEPS").With("input", s).Wrap(err)
	}
	if n <= 0 {
		return 0, oops.Code("INVALID_STEPS").With("input", s).Errorf("steps must be positive, got %d", n)
	}
	return n, nil
}
