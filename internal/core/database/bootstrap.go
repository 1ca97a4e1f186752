package db

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/jackc/pgx/v5"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

// schemaVersion is recorded in vectordb_meta once initdb.sql has run for a table.
const schemaVersion = 1

type schemaParams struct {
	Table            string
	TableLiteral     string
	UniqueConstraint string
	DocumentIndex    string
	Dim              int
	Version          int
}

func renderBootstrap(table string, dim int) (string, error) {
	raw, err := bootstrapFS.ReadFile("scripts/initdb.sql")
	if err != nil {
		return "", fmt.Errorf("read initdb.sql: %w", err)
	}
	tmpl, err := template.New("initdb").Parse(string(raw))
	if err != nil {
		return "", fmt.Errorf("parse initdb.sql: %w", err)
	}

	base := strings.ReplaceAll(table, ".", "_")
	var buf bytes.Buffer
	err = tmpl.Execute(&buf, schemaParams{
		Table:            quoteIdent(table),
		TableLiteral:     "'" + strings.ReplaceAll(table, "'", "''") + "'",
		UniqueConstraint: pgx.Identifier{base + "_hash_chunk_key"}.Sanitize(),
		DocumentIndex:    pgx.Identifier{base + "_document_id_idx"}.Sanitize(),
		Dim:              dim,
		Version:          schemaVersion,
	})
	if err != nil {
		return "", fmt.Errorf("render initdb.sql: %w", err)
	}
	return buf.String(), nil
}

// quoteIdent quotes a possibly schema-qualified table name.
func quoteIdent(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

// EnsureBootstrapped creates the chunk table and its extensions unless the
// meta table already records the current schema version for table.
func EnsureBootstrapped(ctx context.Context, db *sql.DB, table string, dim int) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	var exists bool
	err := db.QueryRowContext(ctxBoot, `
		SELECT EXISTS (
		  SELECT 1 FROM information_schema.tables
		  WHERE table_name = 'vectordb_meta'
		)`).
		Scan(&exists)
	if err != nil {
		return fmt.Errorf("meta table check failed: %w", err)
	}
	if !exists {
		return runBootstrap(ctxBoot, db, table, dim)
	}

	var hasVersion bool
	if err := db.QueryRowContext(ctxBoot,
		`SELECT EXISTS (SELECT 1 FROM vectordb_meta WHERE table_name = $1 AND version = $2)`,
		table, schemaVersion).Scan(&hasVersion); err != nil {
		return fmt.Errorf("meta version check failed: %w", err)
	}
	if !hasVersion {
		return runBootstrap(ctxBoot, db, table, dim)
	}
	return nil
}

func runBootstrap(ctx context.Context, db *sql.DB, table string, dim int) error {
	script, err := renderBootstrap(table, dim)
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("exec bootstrap: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bootstrap: %w", err)
	}
	return nil
}
