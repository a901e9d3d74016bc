// Archivus - Scheduled Backup Coordinator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/archivus

package coordinator

import (
	"context"
	"fmt"
	"io"
)

// snapshotProcedure produces the raw snapshot stream for one target kind.
// The executor compresses, encrypts, and stages whatever run writes.
type snapshotProcedure interface {
	// extension is the artifact suffix before compression and encryption
	// suffixes are appended.
	extension() string

	// run writes the raw snapshot to w. It must respect ctx cancellation;
	// the executor enforces the snapshot timeout through it.
	run(ctx context.Context, target TargetDescriptor, w io.Writer) error
}

// procedureFor selects the snapshot procedure for a target.
func procedureFor(target TargetDescriptor) (snapshotProcedure, error) {
	switch target.Kind {
	case KindRelationalDB:
		return &pgDumpProcedure{}, nil
	case KindFileTree:
		return &tarTreeProcedure{}, nil
	default:
		return nil, fmt.Errorf("target %q has unknown kind %q", target.Name, target.Kind)
	}
}
