// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/tomtom215/archivus/internal/logging"
)

// pgDumpProcedure produces a logical PostgreSQL dump by running pg_dump
// with the target's connection string. A pgx preflight verifies the
// database is reachable first, so an unreachable server fails with a
// clear error instead of a pg_dump exit status.
type pgDumpProcedure struct{}

func (p *pgDumpProcedure) extension() string { return ".sql" }

func (p *pgDumpProcedure) run(ctx context.Context, target TargetDescriptor, w io.Writer) error {
	dsn := os.Getenv(target.DSNEnv)
	if dsn == "" {
		return fmt.Errorf("%s is not set", target.DSNEnv)
	}

	if err := p.preflight(ctx, target, dsn); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "pg_dump", "--no-password", "--format=plain", "--dbname", dsn)
	cmd.Stdout = w
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("pg_dump failed: %s: %w", msg, err)
		}
		return fmt.Errorf("pg_dump failed: %w", err)
	}
	return nil
}

// preflight connects once to verify reachability and log the server
// version. The connection never carries dump data.
func (p *pgDumpProcedure) preflight(ctx context.Context, target TargetDescriptor, dsn string) error {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return fmt.Errorf("database for target %q is unreachable: %w", target.Name, err)
	}
	defer conn.Close(ctx) //nolint:errcheck // Best effort cleanup

	var version string
	if err := conn.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("database preflight for target %q failed: %w", target.Name, err)
	}

	logging.Debug().
		Str("target", target.Name).
		Str("server", version).
		Msg("Database preflight succeeded")
	return nil
}
