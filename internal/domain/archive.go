package domain

import "context"

// ArchiveEntry names one file to place inside an archive.
type ArchiveEntry struct {
	Name string
	Path string
}

type Archiver interface {
	// ArchiveDirectory packs every regular file under sourceDir into a new
	// archive at destPath, keeping entry names relative to sourceDir's
	// parent. It returns the number of files written.
	ArchiveDirectory(ctx context.Context, sourceDir, destPath string) (int, error)

	// ArchiveFiles packs the given files into a new archive at destPath.
	ArchiveFiles(ctx context.Context, destPath string, entries []ArchiveEntry) error
}
