// Package buffer provides a local file-based store for harvested snapshots.
// Each batch is written as a timestamped JSON file. Data persists across
// restarts and a size cap drops the oldest batches first.
package buffer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/harvester/internal/models"
)

const fileExt = ".json"

// Buffer stores batches of snapshots in a directory, one file per batch.
// File names sort chronologically.
type Buffer struct {
	dir      string
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time

	mu  sync.Mutex
	seq uint32
}

// New creates a buffer at dir, creating the directory if needed.
// maxSizeMB <= 0 disables the size cap.
func New(dir string, maxSizeMB int, logger *zap.Logger) (*Buffer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating buffer directory: %w", err)
	}
	return &Buffer{
		dir:      dir,
		maxBytes: int64(maxSizeMB) * 1024 * 1024,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Store writes a batch to a new file. When the buffer is over its cap the
// oldest batches are dropped until the new one fits.
func (b *Buffer) Store(batch []models.Snapshot) error {
	if len(batch) == 0 {
		return nil
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encoding batch: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxBytes > 0 {
		b.enforceCap(int64(len(data)))
	}

	name := fmt.Sprintf("%s-%04d%s", b.now().UTC().Format("20060102T150405.000"), b.seq%10000, fileExt)
	b.seq++
	path := filepath.Join(b.dir, name)
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("writing batch: %w", err)
	}

	b.logger.Debug("Stored batch",
		zap.String("file", name),
		zap.Int("snapshots", len(batch)),
		zap.String("size", humanize.Bytes(uint64(len(data)))))
	return nil
}

// RetrieveAll reads every stored batch in chronological order and removes
// the files. Corrupted files are logged and removed.
func (b *Buffer) RetrieveAll() ([][]models.Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	files, err := b.files()
	if err != nil {
		return nil, err
	}

	var batches [][]models.Snapshot
	for _, name := range files {
		path := filepath.Join(b.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("Failed to read buffer file",
				zap.String("file", path),
				zap.Error(err))
			continue
		}

		var batch []models.Snapshot
		if err := json.Unmarshal(data, &batch); err != nil {
			b.logger.Warn("Failed to parse buffer file, removing corrupted file",
				zap.String("file", path),
				zap.Error(err))
			b.remove(path)
			continue
		}

		batches = append(batches, batch)
		b.remove(path)
	}

	return batches, nil
}

// Count returns the number of stored batch files.
func (b *Buffer) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	files, err := b.files()
	if err != nil {
		return 0
	}
	return len(files)
}

// Size returns the total size of stored batch files in bytes.
func (b *Buffer) Size() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size()
}

// files lists batch file names, oldest first. Must be called with b.mu held.
func (b *Buffer) files() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), fileExt) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// size must be called with b.mu held.
func (b *Buffer) size() int64 {
	files, err := b.files()
	if err != nil {
		return 0
	}
	var total int64
	for _, name := range files {
		if info, err := os.Stat(filepath.Join(b.dir, name)); err == nil {
			total += info.Size()
		}
	}
	return total
}

// enforceCap drops the oldest files until incoming bytes fit under the
// cap or nothing is left. Must be called with b.mu held.
func (b *Buffer) enforceCap(incoming int64) {
	files, err := b.files()
	if err != nil {
		return
	}
	total := b.size()
	for _, name := range files {
		if total+incoming <= b.maxBytes {
			return
		}
		path := filepath.Join(b.dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		b.logger.Warn("Buffer full, dropping oldest batch",
			zap.String("file", name),
			zap.String("limit", humanize.Bytes(uint64(b.maxBytes))))
		if b.remove(path) {
			total -= info.Size()
		}
	}
}

func (b *Buffer) remove(path string) bool {
	if err := os.Remove(path); err != nil {
		b.logger.Warn("Failed to remove buffer file",
			zap.String("file", path),
			zap.Error(err))
		return false
	}
	return true
}
