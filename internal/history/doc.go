// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

/*
Package history persists snapshot records and cycle summaries in BadgerDB.

The scheduler appends one record per snapshot attempt and one summary per
completed cycle. The admin API reads them back for /api/v1/records and
/api/v1/cycles. History writes are best effort from the scheduler's point
of view: a failed append is logged and counted, never allowed to fail a
backup cycle.

# Key Layout

Keys embed a zero-padded UnixNano timestamp so Badger's lexical ordering
is chronological:

	rec:<20-digit unixnano>:<target>   one snapshot attempt
	cyc:<20-digit unixnano>            one cycle summary

Queries iterate in reverse to return newest entries first.

# Retention

Entries are written with Badger's native TTL taken from
history.retention, so old history ages out without a compaction job. A
background value-log GC pass reclaims disk space hourly.
*/
package history
