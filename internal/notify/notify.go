// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package notify delivers cycle reports to operators over SMTP.
//
// The scheduler invokes the Mailer after any cycle that produced at
// least one failed snapshot. The report is a plain-text message with
// one line per target. Delivery errors are returned to the caller and
// logged there; they never affect cycle outcomes or health.
//
// The SMTP password is read from the environment variable named by
// NotifyConfig.PasswordEnv at send time, so rotated credentials take
// effect without a restart.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/coordinator"
)

// defaultTimeout bounds the SMTP connection attempt.
const defaultTimeout = 30 * time.Second

// Mailer sends cycle reports via SMTP. It implements the scheduler's
// Notifier interface.
type Mailer struct {
	cfg     config.NotifyConfig
	timeout time.Duration
}

// NewMailer creates a Mailer from the notification settings.
func NewMailer(cfg config.NotifyConfig) *Mailer {
	return &Mailer{
		cfg:     cfg,
		timeout: defaultTimeout,
	}
}

// NotifyCycle renders the cycle as a plain-text report and delivers it
// to every configured recipient in a single message.
func (m *Mailer) NotifyCycle(ctx context.Context, summary coordinator.CycleSummary) error {
	msg := m.buildMessage(summary)

	if err := m.sendSMTP(ctx, msg); err != nil {
		return fmt.Errorf("failed to deliver cycle report: %w", err)
	}

	log.Debug().
		Str("cycle_id", summary.ID).
		Int("recipients", len(m.cfg.To)).
		Msg("Cycle report delivered")
	return nil
}

// buildSubject summarizes the cycle outcome in one line.
func (m *Mailer) buildSubject(summary coordinator.CycleSummary) string {
	failed := 0
	for _, rec := range summary.Records {
		if !rec.Succeeded() {
			failed++
		}
	}

	if failed == 0 {
		return fmt.Sprintf("[archivus] backup cycle succeeded: %d snapshots", len(summary.Records))
	}
	return fmt.Sprintf("[archivus] backup cycle failed: %d of %d snapshots", failed, len(summary.Records))
}

// buildMessage constructs the report with headers.
func (m *Mailer) buildMessage(summary coordinator.CycleSummary) string {
	var msg strings.Builder

	// Headers
	msg.WriteString(fmt.Sprintf("From: Archivus <%s>\r\n", m.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(m.cfg.To, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", m.buildSubject(summary)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	msg.WriteString("\r\n")

	// Body
	msg.WriteString(fmt.Sprintf("Backup cycle %s (trigger: %s) finished at %s after %s.\r\n",
		summary.ID, summary.Trigger,
		summary.FinishedAt.Format(time.RFC3339),
		summary.Duration.Round(time.Second)))
	msg.WriteString("\r\n")

	width := 0
	for _, rec := range summary.Records {
		if len(rec.Target) > width {
			width = len(rec.Target)
		}
	}

	for _, rec := range summary.Records {
		msg.WriteString(fmt.Sprintf("  %-7s  %-*s  %s\r\n",
			rec.Status, width, rec.Target, recordDetail(rec)))
	}

	return msg.String()
}

// recordDetail renders the per-target trailer: the stored artifact for
// successes, the failure classification and message otherwise.
func recordDetail(rec coordinator.SnapshotRecord) string {
	if rec.Succeeded() {
		return fmt.Sprintf("%s (%s)", rec.ArtifactName, formatSize(rec.ArtifactSize))
	}
	return fmt.Sprintf("%s: %s", rec.ErrorKind, rec.Error)
}

// formatSize renders a byte count for human readers.
func formatSize(n int64) string {
	const mib = 1 << 20
	if n < mib {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.1f MiB", float64(n)/float64(mib))
}

// sendSMTP delivers the message via SMTP.
func (m *Mailer) sendSMTP(ctx context.Context, msg string) error {
	addr := fmt.Sprintf("%s:%d", m.cfg.SMTPHost, m.cfg.SMTPPort)

	// Create connection with timeout
	dialer := &net.Dialer{Timeout: m.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // Best effort cleanup

	// Create SMTP client
	client, err := smtp.NewClient(conn, m.cfg.SMTPHost)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() { _ = client.Close() }() //nolint:errcheck // Best effort cleanup

	// Start TLS if configured
	if m.cfg.StartTLS {
		tlsConfig := &tls.Config{
			ServerName: m.cfg.SMTPHost,
			MinVersion: tls.VersionTLS12,
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	// Authenticate if credentials provided
	password := os.Getenv(m.cfg.PasswordEnv)
	if m.cfg.Username != "" && password != "" {
		auth := smtp.PlainAuth("", m.cfg.Username, password, m.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}

	// Set sender
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}

	// Set recipients
	for _, to := range m.cfg.To {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", to, err)
		}
	}

	// Send message body
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to start message: %w", err)
	}

	if _, err := writer.Write([]byte(msg)); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close message: %w", err)
	}

	// Quit gracefully
	if err := client.Quit(); err != nil {
		// Log but don't fail - message was sent
		return nil
	}

	return nil
}

// Compile-time interface assertion
var _ coordinator.Notifier = (*Mailer)(nil)
