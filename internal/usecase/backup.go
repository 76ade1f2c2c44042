package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/semmidev/obx/internal/domain"
)

type Backup struct {
	db            domain.Database
	archiver      domain.Archiver
	localStorage  LocalStorage
	uploadTargets []UploadTarget
	logger        Logger
}

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

type LocalStorage interface {
	domain.Storage
	GetPath(filename string) string
}

type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

func NewBackup(
	db domain.Database,
	archiver domain.Archiver,
	localStorage LocalStorage,
	uploadTargets []UploadTarget,
	logger Logger,
) *Backup {
	return &Backup{
		db:            db,
		archiver:      archiver,
		localStorage:  localStorage,
		uploadTargets: uploadTargets,
		logger:        logger,
	}
}

// Execute runs one full backup: dump the database, archive the filestore
// when one is available, bundle both into a timestamped zip and place it in
// the output directory. Intermediate files live in a scoped temp directory
// that is removed on every exit path.
func (uc *Backup) Execute(ctx context.Context, req domain.Request) (*domain.Artifact, error) {
	start := time.Now()
	uc.logger.Infof("[%s] Starting backup...", req.Database)

	workDir, err := os.MkdirTemp("", "obx-")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	dumpPath := filepath.Join(workDir, req.Database+".sql")
	uc.logger.Infof("[%s] Dumping database...", req.Database)
	if err := uc.db.Dump(ctx, req.Database, dumpPath); err != nil {
		return nil, fmt.Errorf("database dump: %w", err)
	}

	dumpInfo, err := os.Stat(dumpPath)
	if err != nil {
		return nil, fmt.Errorf("stat dump file: %w", err)
	}
	uc.logger.Infof("[%s] Database dump created, size: %s",
		req.Database, humanize.Bytes(uint64(dumpInfo.Size())))

	entries := []domain.ArchiveEntry{{Name: req.Database + ".sql", Path: dumpPath}}

	filestoreZip, err := uc.archiveFilestore(ctx, req, workDir)
	if err != nil {
		return nil, err
	}
	if filestoreZip != "" {
		entries = append(entries, domain.ArchiveEntry{Name: "filestore.zip", Path: filestoreZip})
	}

	createdAt := time.Now()
	filename := artifactFilename(req.Database, createdAt)
	bundlePath := filepath.Join(workDir, filename)

	uc.logger.Infof("[%s] Assembling %s...", req.Database, filename)
	if err := uc.archiver.ArchiveFiles(ctx, bundlePath, entries); err != nil {
		return nil, fmt.Errorf("assemble archive: %w", err)
	}

	if err := uc.localStorage.Upload(ctx, bundlePath, filename); err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}

	finalPath := uc.localStorage.GetPath(filename)
	info, err := os.Stat(finalPath)
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}

	uc.logger.Infof("[%s] Backup completed in %s: %s (%s)",
		req.Database, time.Since(start).Round(time.Second), finalPath, humanize.Bytes(uint64(info.Size())))

	if len(uc.uploadTargets) > 0 {
		uc.uploadToTargets(ctx, finalPath, filename)
	}

	return &domain.Artifact{
		Database:  req.Database,
		Path:      finalPath,
		Size:      info.Size(),
		CreatedAt: createdAt,
	}, nil
}

// archiveFilestore zips the filestore into the work directory. A missing or
// non directory path only degrades the run to a database-only backup.
func (uc *Backup) archiveFilestore(ctx context.Context, req domain.Request, workDir string) (string, error) {
	if req.FilestorePath == "" {
		uc.logger.Warnf("[%s] No filestore path, backing up database only", req.Database)
		return "", nil
	}

	info, err := os.Stat(req.FilestorePath)
	if err != nil || !info.IsDir() {
		uc.logger.Warnf("[%s] Filestore path not found, backing up database only: %s",
			req.Database, req.FilestorePath)
		return "", nil
	}

	uc.logger.Infof("[%s] Archiving filestore: %s", req.Database, req.FilestorePath)
	archivePath := filepath.Join(workDir, "filestore.zip")
	count, err := uc.archiver.ArchiveDirectory(ctx, req.FilestorePath, archivePath)
	if err != nil {
		return "", fmt.Errorf("filestore archive: %w", err)
	}

	uc.logger.Infof("[%s] Filestore archived, %d file(s)", req.Database, count)
	return archivePath, nil
}

func artifactFilename(database string, t time.Time) string {
	return fmt.Sprintf("%s_%s.zip", database, t.Format("20060102_150405"))
}

func (uc *Backup) uploadToTargets(ctx context.Context, filePath, filename string) {
	var wg sync.WaitGroup

	for _, target := range uc.uploadTargets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			uc.logger.Infof("Uploading to %s...", t.Name)
			if err := t.Storage.Upload(ctx, filePath, filename); err != nil {
				uc.logger.Errorf("Failed to upload to %s: %v", t.Name, err)
			} else {
				uc.logger.Infof("Successfully uploaded to %s", t.Name)
			}
		}(target)
	}

	wg.Wait()
}
