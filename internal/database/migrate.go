package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"openlet/internal/logger"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed migrations/*.up.sql
var migrationFiles embed.FS

// oraNameAlreadyUsed is raised when CREATE TABLE/INDEX targets an existing object.
const oraNameAlreadyUsed = "ORA-00955"

// RunMigrations executes every embedded *.up.sql file in name order. Files may
// hold several statements separated by a line containing only "/". Statements
// creating objects that already exist are skipped, so the run is repeatable.
func RunMigrations(ctx context.Context, db *sqlx.DB) error {
	return runMigrations(ctx, migrationFiles, func(ctx context.Context, stmt string) error {
		_, err := db.ExecContext(ctx, stmt)
		return err
	})
}

func runMigrations(ctx context.Context, files fs.FS, exec func(ctx context.Context, stmt string) error) error {
	l := logger.Get()

	names, err := fs.Glob(files, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("could not list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(files, name)
		if err != nil {
			return fmt.Errorf("could not read migration file %s: %w", name, err)
		}

		for _, stmt := range splitStatements(string(content)) {
			if err := exec(ctx, stmt); err != nil {
				if strings.Contains(err.Error(), oraNameAlreadyUsed) {
					l.Debug("Migration object already exists", zap.String("file", name))
					continue
				}
				return fmt.Errorf("could not execute migration %s: %w", name, err)
			}
		}
		l.Info("Executed migration", zap.String("file", name))
	}

	l.Info("Migrations completed successfully", zap.Int("files", len(names)))
	return nil
}

// splitStatements splits on "/" lines and drops comment-only chunks. Oracle
// rejects a trailing ";" on plain DDL sent through the driver, so it is trimmed.
func splitStatements(content string) []string {
	var stmts []string
	var current []string
	flush := func() {
		stmt := strings.TrimSpace(strings.Join(current, "\n"))
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
		current = current[:0]
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}

	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "/":
			flush()
		case strings.HasPrefix(trimmed, "--"):
		default:
			current = append(current, line)
		}
	}
	flush()
	return stmts
}
