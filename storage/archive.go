package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"civic-vote/log"
	"civic-vote/models"
)

const (
	archivePattern   = "ledger_chain_*.json"
	archiveTimestamp = "20060102150405"

	DefaultArchiveKeep = 5
)

// ChainArchive writes timestamped audit exports of the vote ledger into a
// directory and keeps only the most recent ones.
type ChainArchive struct {
	dataDir string
	keep    int
	now     func() time.Time
	mutex   sync.Mutex
}

type chainFile struct {
	path      string
	timestamp int64
}

type chainFiles []chainFile

func (f chainFiles) Len() int           { return len(f) }
func (f chainFiles) Less(i, j int) bool { return f[i].timestamp < f[j].timestamp }
func (f chainFiles) Swap(i, j int)      { f[i], f[j] = f[j], f[i] }

func NewChainArchive(dataDir string, keep int) (*ChainArchive, error) {
	absPath, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	if keep < 1 {
		keep = DefaultArchiveKeep
	}

	return &ChainArchive{
		dataDir: absPath,
		keep:    keep,
		now:     time.Now,
	}, nil
}

func (a *ChainArchive) Dir() string {
	return a.dataDir
}

// listFiles returns the archive files oldest first. Files whose name carries
// no valid timestamp are skipped.
func (a *ChainArchive) listFiles() (chainFiles, error) {
	files, err := filepath.Glob(filepath.Join(a.dataDir, archivePattern))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var found chainFiles
	for _, file := range files {
		base := filepath.Base(file)
		parts := strings.Split(base, "_")
		if len(parts) < 3 {
			continue
		}
		timestamp, err := time.Parse(archiveTimestamp, strings.TrimSuffix(parts[2], ".json"))
		if err != nil {
			log.Warn("invalid timestamp in archive file name", zap.String("file", base), zap.Error(err))
			continue
		}
		found = append(found, chainFile{path: file, timestamp: timestamp.Unix()})
	}

	sort.Sort(found)
	return found, nil
}

// Save writes export to a new file and prunes older files beyond the limit.
// It returns the path written.
func (a *ChainArchive) Save(export models.ChainExport) (string, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if len(export.Blocks) == 0 {
		return "", fmt.Errorf("cannot archive an empty chain")
	}
	if export.ExportedAt.IsZero() {
		export.ExportedAt = a.now().UTC()
	}

	filename := filepath.Join(a.dataDir,
		fmt.Sprintf("ledger_chain_%s.json", export.ExportedAt.UTC().Format(archiveTimestamp)))

	data, err := json.MarshalIndent(export, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode chain: %w", err)
	}
	tempPath := filename + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	if err := os.Rename(tempPath, filename); err != nil {
		os.Remove(tempPath)
		return "", fmt.Errorf("failed to save archive: %w", err)
	}

	if err := a.cleanupOldFiles(); err != nil {
		log.Warn("failed to clean up old archives", zap.Error(err))
	}

	log.Info("chain archived", zap.String("file", filename), zap.Int("blocks", len(export.Blocks)))
	return filename, nil
}

// Latest returns the newest export, or ErrNotFound if there is none.
func (a *ChainArchive) Latest() (*models.ChainExport, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	files, err := a.listFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNotFound
	}
	return ReadChainExport(files[len(files)-1].path)
}

func ReadChainExport(path string) (*models.ChainExport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var export models.ChainExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("failed to decode chain from %s: %w", path, err)
	}
	return &export, nil
}

func (a *ChainArchive) cleanupOldFiles() error {
	files, err := a.listFiles()
	if err != nil {
		return err
	}
	if len(files) <= a.keep {
		return nil
	}

	for _, f := range files[:len(files)-a.keep] {
		if err := os.Remove(f.path); err != nil {
			log.Warn("failed to remove old archive", zap.String("file", f.path), zap.Error(err))
			continue
		}
		log.Debug("removed old archive", zap.String("file", f.path))
	}
	return nil
}
