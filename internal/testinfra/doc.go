// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

// Package testinfra provides container-backed infrastructure for
// integration tests, built on testcontainers-go.
//
// Two containers cover the coordinator's external surfaces: a
// PostgreSQL instance for exercising the relational_db snapshot
// procedure against a real pg_dump, and a MinIO instance for
// exercising the object sink against a real S3 API.
//
//	func TestObjectSinkRoundTrip(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//
//	    ctx := context.Background()
//	    minio, err := testinfra.NewMinioContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, minio.Container)
//
//	    // minio.Endpoint, minio.AccessKey, minio.SecretKey
//	}
//
// Everything here carries the integration build tag; unit test runs
// never touch Docker.
package testinfra
