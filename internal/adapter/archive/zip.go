package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/semmidev/obx/internal/domain"
)

type ZipArchiver struct{}

func NewZip() *ZipArchiver {
	return &ZipArchiver{}
}

// ArchiveDirectory packs every regular file under sourceDir into a zip at
// destPath. Entry names are kept relative to sourceDir's parent, so a
// filestore directory unpacks as <database>/<subdirs>/<files>.
func (z *ZipArchiver) ArchiveDirectory(ctx context.Context, sourceDir, destPath string) (int, error) {
	root := filepath.Clean(sourceDir)
	parent := filepath.Dir(root)

	destFile, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	defer destFile.Close()

	zipWriter := zip.NewWriter(destFile)

	count := 0
	err = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}

		name, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}
		if err := z.addFile(zipWriter, filepath.ToSlash(name), path); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		zipWriter.Close()
		return 0, fmt.Errorf("failed to archive %s: %w", sourceDir, err)
	}

	if err := zipWriter.Close(); err != nil {
		return 0, fmt.Errorf("failed to finalize archive: %w", err)
	}
	return count, nil
}

// ArchiveFiles packs the given files into a zip at destPath under their
// given entry names.
func (z *ZipArchiver) ArchiveFiles(ctx context.Context, destPath string, entries []domain.ArchiveEntry) error {
	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer destFile.Close()

	zipWriter := zip.NewWriter(destFile)

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			zipWriter.Close()
			return err
		}
		if err := z.addFile(zipWriter, entry.Name, entry.Path); err != nil {
			zipWriter.Close()
			return err
		}
	}

	if err := zipWriter.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func (z *ZipArchiver) addFile(zipWriter *zip.Writer, name, path string) error {
	entryWriter, err := zipWriter.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}

	sourceFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer sourceFile.Close()

	if _, err := io.Copy(entryWriter, sourceFile); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
