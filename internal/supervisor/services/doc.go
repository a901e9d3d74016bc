// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package services contains suture.Service adapters for components that
// do not speak the supervisor lifecycle natively. The coordinator
// scheduler implements suture.Service itself; the HTTP server does not,
// so HTTPServerService translates its blocking ListenAndServe into a
// context-aware Serve with graceful shutdown.
package services
