// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package notify

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/archivus/internal/config"
	"github.com/tomtom215/archivus/internal/coordinator"
)

func testNotifyConfig(host string, port int) config.NotifyConfig {
	return config.NotifyConfig{
		Enabled:     true,
		SMTPHost:    host,
		SMTPPort:    port,
		StartTLS:    false,
		From:        "backup@example.com",
		To:          []string{"ops@example.com"},
		PasswordEnv: "ARCHIVUS_SMTP_PASSWORD",
	}
}

func mixedSummary() coordinator.CycleSummary {
	started := time.Date(2026, 8, 25, 3, 0, 0, 0, time.UTC)
	return coordinator.CycleSummary{
		ID:         "c3f1a6d2",
		Trigger:    coordinator.TriggerScheduled,
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Duration:   42 * time.Second,
		Records: []coordinator.SnapshotRecord{
			{
				Target:       "main-db",
				Status:       coordinator.StatusSuccess,
				ArtifactName: "main-db-20260825-030000.sql.gz",
				ArtifactSize: 2621440,
			},
			{
				Target:    "media",
				Status:    coordinator.StatusFailure,
				ErrorKind: coordinator.ErrorKindTimeout,
				Error:     "context deadline exceeded",
			},
		},
		AllSucceeded: false,
	}
}

func successSummary() coordinator.CycleSummary {
	summary := mixedSummary()
	summary.Records = summary.Records[:1]
	summary.AllSucceeded = true
	return summary
}

func TestMailerBuildMessage(t *testing.T) {
	tests := []struct {
		name           string
		cfg            config.NotifyConfig
		summary        coordinator.CycleSummary
		wantContains   []string
		wantNotContain []string
	}{
		{
			name:    "mixed outcome cycle",
			cfg:     testNotifyConfig("smtp.example.com", 587),
			summary: mixedSummary(),
			wantContains: []string{
				"From: Archivus <backup@example.com>",
				"To: ops@example.com",
				"Subject: [archivus] backup cycle failed: 1 of 2 snapshots",
				"Content-Type: text/plain",
				"Backup cycle c3f1a6d2 (trigger: scheduled)",
				"finished at 2026-08-25T03:00:42Z after 42s",
				"SUCCESS",
				"main-db-20260825-030000.sql.gz (2.5 MiB)",
				"FAILURE",
				"timeout: context deadline exceeded",
			},
		},
		{
			name:    "all succeeded cycle",
			cfg:     testNotifyConfig("smtp.example.com", 587),
			summary: successSummary(),
			wantContains: []string{
				"Subject: [archivus] backup cycle succeeded: 1 snapshots",
				"SUCCESS",
			},
			wantNotContain: []string{"FAILURE"},
		},
		{
			name: "multiple recipients",
			cfg: func() config.NotifyConfig {
				cfg := testNotifyConfig("smtp.example.com", 587)
				cfg.To = []string{"ops@example.com", "oncall@example.com"}
				return cfg
			}(),
			summary:      mixedSummary(),
			wantContains: []string{"To: ops@example.com, oncall@example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewMailer(tt.cfg).buildMessage(tt.summary)
			for _, want := range tt.wantContains {
				if !strings.Contains(msg, want) {
					t.Errorf("message should contain %q, got:\n%s", want, msg)
				}
			}
			for _, notWant := range tt.wantNotContain {
				if strings.Contains(msg, notWant) {
					t.Errorf("message should not contain %q, got:\n%s", notWant, msg)
				}
			}
		})
	}
}

func TestMailerMessageUsesCRLF(t *testing.T) {
	msg := NewMailer(testNotifyConfig("smtp.example.com", 587)).buildMessage(mixedSummary())

	if !strings.HasPrefix(msg, "From: ") {
		t.Errorf("message should start with From header, got %q", msg[:min(40, len(msg))])
	}
	if strings.Contains(strings.ReplaceAll(msg, "\r\n", ""), "\n") {
		t.Error("message should terminate every line with CRLF")
	}
	if !strings.Contains(msg, "\r\n\r\n") {
		t.Error("message should separate headers from body with a blank line")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1048575, "1048575 B"},
		{1048576, "1.0 MiB"},
		{2621440, "2.5 MiB"},
		{1073741824, "1024.0 MiB"},
	}

	for _, tt := range tests {
		if got := formatSize(tt.bytes); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.bytes, got, tt.want)
		}
	}
}

// fakeSMTPServer speaks just enough of the protocol to accept one
// message over a plaintext connection.
type fakeSMTPServer struct {
	ln   net.Listener
	done chan struct{}

	mu    sync.Mutex
	from  string
	rcpts []string
	data  []string
}

func startFakeSMTP(t *testing.T) *fakeSMTPServer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	srv := &fakeSMTPServer{ln: ln, done: make(chan struct{})}
	t.Cleanup(func() {
		_ = ln.Close() //nolint:errcheck // Best effort cleanup
		<-srv.done
	})
	go srv.serve()
	return srv
}

func (s *fakeSMTPServer) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTPServer) serve() {
	defer close(s.done)

	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }() //nolint:errcheck // Best effort cleanup

	text := textproto.NewConn(conn)
	_ = text.PrintfLine("220 fake.local ESMTP")

	for {
		line, err := text.ReadLine()
		if err != nil {
			return
		}
		verb := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(verb, "EHLO"), strings.HasPrefix(verb, "HELO"):
			_ = text.PrintfLine("250 fake.local")
		case strings.HasPrefix(verb, "MAIL FROM:"):
			s.mu.Lock()
			s.from = line[len("MAIL FROM:"):]
			s.mu.Unlock()
			_ = text.PrintfLine("250 OK")
		case strings.HasPrefix(verb, "RCPT TO:"):
			s.mu.Lock()
			s.rcpts = append(s.rcpts, line[len("RCPT TO:"):])
			s.mu.Unlock()
			_ = text.PrintfLine("250 OK")
		case verb == "DATA":
			_ = text.PrintfLine("354 End data with <CR><LF>.<CR><LF>")
			lines, err := text.ReadDotLines()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = lines
			s.mu.Unlock()
			_ = text.PrintfLine("250 OK")
		case verb == "QUIT":
			_ = text.PrintfLine("221 Bye")
			return
		default:
			_ = text.PrintfLine("250 OK")
		}
	}
}

func (s *fakeSMTPServer) received() (from string, rcpts []string, data []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.from, append([]string(nil), s.rcpts...), append([]string(nil), s.data...)
}

func TestMailerDeliversReport(t *testing.T) {
	srv := startFakeSMTP(t)

	cfg := testNotifyConfig("127.0.0.1", srv.port())
	cfg.To = []string{"ops@example.com", "oncall@example.com"}
	mailer := NewMailer(cfg)
	mailer.timeout = 5 * time.Second

	if err := mailer.NotifyCycle(context.Background(), mixedSummary()); err != nil {
		t.Fatalf("NotifyCycle failed: %v", err)
	}

	from, rcpts, data := srv.received()
	if from != "<backup@example.com>" {
		t.Errorf("sender = %q, want %q", from, "<backup@example.com>")
	}
	if len(rcpts) != 2 {
		t.Fatalf("got %d recipients, want 2: %v", len(rcpts), rcpts)
	}
	if rcpts[0] != "<ops@example.com>" || rcpts[1] != "<oncall@example.com>" {
		t.Errorf("unexpected recipients: %v", rcpts)
	}

	body := strings.Join(data, "\n")
	for _, want := range []string{
		"Subject: [archivus] backup cycle failed: 1 of 2 snapshots",
		"main-db-20260825-030000.sql.gz",
		"timeout: context deadline exceeded",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("delivered message should contain %q, got:\n%s", want, body)
		}
	}
}

func TestMailerConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close() //nolint:errcheck // Freeing the port is the point

	mailer := NewMailer(testNotifyConfig("127.0.0.1", port))
	mailer.timeout = 2 * time.Second

	err = mailer.NotifyCycle(context.Background(), mixedSummary())
	if err == nil {
		t.Fatal("NotifyCycle should fail when no server is listening")
	}
	if !strings.Contains(err.Error(), "failed to connect") {
		t.Errorf("error should describe the connection failure, got %v", err)
	}
}

func TestMailerContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mailer := NewMailer(testNotifyConfig("127.0.0.1", 2525))
	mailer.timeout = 2 * time.Second

	err := mailer.NotifyCycle(ctx, mixedSummary())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("NotifyCycle error = %v, want context.Canceled", err)
	}
}
