// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package main implements the exit-code health probe for Archivus.
//
// It issues GET /healthz against the local daemon and exits 0 when the
// coordinator reports healthy, 1 otherwise. Containers wire it as:
//
//	HEALTHCHECK --interval=60s --timeout=10s CMD ["/healthcheck"]
//
// The probe address derives from the same ARCHIVUS_PORT the daemon
// reads; ARCHIVUS_HEALTHCHECK_URL overrides the full URL for setups
// where the daemon binds a non-local address.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const probeTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	url := probeURL()

	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck: invalid probe URL %q: %v\n", url, err)
		return 1
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }() //nolint:errcheck // Best effort cleanup

	if resp.StatusCode != http.StatusOK {
		// The body carries the unhealth reason; surface it for
		// docker inspect and kubelet event logs.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		fmt.Fprintf(os.Stderr, "healthcheck: status %d: %s", resp.StatusCode, body)
		return 1
	}

	return 0
}

// probeURL resolves the /healthz address from the environment.
func probeURL() string {
	if url := os.Getenv("ARCHIVUS_HEALTHCHECK_URL"); url != "" {
		return url
	}

	port := os.Getenv("ARCHIVUS_PORT")
	if port == "" {
		port = "8080"
	}
	return "http://127.0.0.1:" + port + "/healthz"
}
