package domain

import (
	"errors"
	"time"
)

// ErrFilestoreNotFound reports that no filestore candidate passed the
// existence and non-emptiness checks.
var ErrFilestoreNotFound = errors.New("filestore not found")

// Request carries the fully resolved inputs for one backup run. An empty
// FilestorePath means the run produces a database-only archive.
type Request struct {
	Database      string
	FilestorePath string
	OutputPath    string
}

// Artifact describes the archive a completed run left on disk.
type Artifact struct {
	Database  string
	Path      string
	Size      int64
	CreatedAt time.Time
}
