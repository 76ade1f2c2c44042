package usecase

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/semmidev/obx/internal/domain"
)

// Locator finds a database's filestore on the local filesystem. Strategies
// run in priority order: Odoo's own configuration table, attachment
// references probed against conventional roots, odoo.conf files, and
// finally a sweep of conventional locations. A candidate counts only when
// it is a directory holding at least one entry, so a stale empty directory
// never shadows the real filestore.
type Locator struct {
	db     domain.Database
	logger Logger

	bases       []string
	configFiles []string
}

func NewLocator(db domain.Database, logger Logger) *Locator {
	return &Locator{
		db:          db,
		logger:      logger,
		bases:       conventionalBases(),
		configFiles: conventionalConfigFiles(),
	}
}

// Locate returns the first accepted candidate, or ErrFilestoreNotFound when
// every strategy comes up empty. Lookup failures inside a strategy only
// disqualify that strategy's candidates.
func (l *Locator) Locate(ctx context.Context, database string) (string, error) {
	strategies := []struct {
		name       string
		candidates func(ctx context.Context, database string) []string
	}{
		{"configuration table", l.configTableCandidates},
		{"attachment references", l.attachmentCandidates},
		{"odoo configuration file", l.configFileCandidates},
		{"conventional locations", l.sweepCandidates},
	}

	for _, strategy := range strategies {
		for _, candidate := range strategy.candidates(ctx, database) {
			if !hasEntries(candidate) {
				l.logger.Debugf("[%s] Rejected %s candidate: %s", database, strategy.name, candidate)
				continue
			}
			l.logger.Infof("[%s] Found filestore via %s: %s", database, strategy.name, candidate)
			return candidate, nil
		}
	}

	return "", domain.ErrFilestoreNotFound
}

// configTableCandidates asks the database itself where its filestore is. A
// direct filestore path beats a data directory root. The attachment
// location parameter only tells us the storage mode, so it never yields a
// candidate on its own.
func (l *Locator) configTableCandidates(ctx context.Context, database string) []string {
	var candidates []string

	if value, err := l.db.ConfigParam(ctx, database, "database.filestore_path"); err != nil {
		l.logger.Debugf("[%s] filestore_path lookup failed: %v", database, err)
	} else if value != "" {
		candidates = append(candidates, value)
	}

	if value, err := l.db.ConfigParam(ctx, database, "database.data_dir"); err != nil {
		l.logger.Debugf("[%s] data_dir lookup failed: %v", database, err)
	} else if value != "" {
		candidates = append(candidates, filepath.Join(value, "filestore", database))
	}

	if value, err := l.db.ConfigParam(ctx, database, "ir_attachment.location"); err == nil && value != "" && value != "file" {
		l.logger.Debugf("[%s] attachments stored in %q, disk filestore unlikely", database, value)
	}

	return candidates
}

// attachmentCandidates takes one stored attachment reference and probes
// conventional roots for the file it should resolve to. Odoo fans files out
// into subdirectories named by the reference's first two characters.
func (l *Locator) attachmentCandidates(ctx context.Context, database string) []string {
	reference, err := l.db.AttachmentReference(ctx, database)
	if err != nil {
		l.logger.Debugf("[%s] attachment reference lookup failed: %v", database, err)
		return nil
	}
	if len(reference) < 2 {
		return nil
	}

	for _, base := range l.bases {
		dir := filepath.Join(base, "filestore", database)
		marker := filepath.Join(dir, reference[:2], reference)
		if _, err := os.Stat(marker); err == nil {
			return []string{dir}
		}
	}
	return nil
}

// configFileCandidates scans odoo.conf files for a data_dir entry. The
// first file that exists and names an existing directory wins.
func (l *Locator) configFileCandidates(ctx context.Context, database string) []string {
	for _, configFile := range l.configFiles {
		dataDir, err := scanDataDir(configFile)
		if err != nil || dataDir == "" {
			continue
		}
		info, err := os.Stat(dataDir)
		if err != nil || !info.IsDir() {
			continue
		}
		return []string{filepath.Join(dataDir, "filestore", database)}
	}
	return nil
}

func (l *Locator) sweepCandidates(ctx context.Context, database string) []string {
	candidates := make([]string, 0, len(l.bases))
	for _, base := range l.bases {
		candidates = append(candidates, filepath.Join(base, "filestore", database))
	}
	return candidates
}

// scanDataDir pulls the data_dir value out of an odoo.conf style file.
func scanDataDir(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		if strings.TrimSpace(key) == "data_dir" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", scanner.Err()
}

// hasEntries accepts a path only when it is a directory containing at least
// one entry at any depth. Probe errors reject the candidate.
func hasEntries(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}

	found := false
	filepath.WalkDir(path, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == path {
			return nil
		}
		found = true
		return fs.SkipAll
	})
	return found
}

func conventionalBases() []string {
	if runtime.GOOS == "windows" {
		var bases []string
		if appData := os.Getenv("APPDATA"); appData != "" {
			bases = append(bases, filepath.Join(appData, "Odoo"))
		}
		if programFiles := os.Getenv("ProgramFiles"); programFiles != "" {
			bases = append(bases, filepath.Join(programFiles, "Odoo", "data"))
		}
		bases = append(bases,
			`C:\Program Files\Odoo\data`,
			`C:\Odoo\data`,
			`C:\odoo`,
		)
		return append(bases, relativeBases()...)
	}

	bases := []string{
		"/opt/odoo/data",
		"/var/lib/odoo",
		"/usr/local/var/odoo",
		"/home/odoo/data",
		"/opt/odoo",
	}
	if dataHome := xdgDataHome(); dataHome != "" {
		bases = append(bases, filepath.Join(dataHome, "Odoo"))
	}
	return append(bases, relativeBases()...)
}

// relativeBases cover development setups run from the project directory.
func relativeBases() []string {
	return []string{".", "..", "data", filepath.Join("..", "data")}
}

func xdgDataHome() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share")
}

func conventionalConfigFiles() []string {
	if runtime.GOOS == "windows" {
		var files []string
		if programFiles := os.Getenv("ProgramFiles"); programFiles != "" {
			files = append(files, filepath.Join(programFiles, "Odoo", "server", "odoo.conf"))
		}
		return append(files, `C:\Program Files\Odoo\server\odoo.conf`, "odoo.conf")
	}

	files := []string{
		"/etc/odoo/odoo.conf",
		"/etc/odoo.conf",
		"/etc/odoo-server.conf",
	}
	if home, err := os.UserHomeDir(); err == nil {
		files = append(files,
			filepath.Join(home, ".odoorc"),
			filepath.Join(home, ".config", "odoo", "odoo.conf"),
		)
	}
	return append(files, "odoo.conf")
}
