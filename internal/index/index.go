package index

import (
	"github.com/evmaki/pothos/internal/frame"
	"github.com/evmaki/pothos/internal/models"
)

// PreparedIndex records which raw frames already have a prepared copy.
// Consumers should depend on this interface rather than the concrete *DB
// type so the directory-scan implementation can stand in.
type PreparedIndex interface {
	IsPrepared(id frame.ID) (bool, error)
	MarkPrepared(id frame.ID) error
}

// UploadLedger records which files have been delivered to the archive.
type UploadLedger interface {
	Sent(name string, category models.Category, checksum string) (bool, error)
	MarkSent(name string, category models.Category, checksum string) error
}

// Verify *DB satisfies both interfaces at compile time.
var (
	_ PreparedIndex = (*DB)(nil)
	_ UploadLedger  = (*DB)(nil)
)
