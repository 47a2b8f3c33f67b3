package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RecordPruner deletes archived rows created before a cutoff
type RecordPruner interface {
	DeleteOlderThan(cutoff time.Time) (int64, error)
}

// Scheduler handles retention of archived transcripts
type Scheduler struct {
	outputDir string
	records   RecordPruner
	interval  time.Duration
	maxAge    time.Duration
	logger    *zap.SugaredLogger
	now       func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScheduler creates a new cleanup scheduler. An empty outputDir or a nil
// records skips that part of the sweep.
func NewScheduler(outputDir string, records RecordPruner, intervalMinutes, maxAgeHours int, logger *zap.SugaredLogger) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 60
	}
	return &Scheduler{
		outputDir: outputDir,
		records:   records,
		interval:  time.Duration(intervalMinutes) * time.Minute,
		maxAge:    time.Duration(maxAgeHours) * time.Hour,
		logger:    logger,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

// Start runs one sweep immediately and then one per interval
func (s *Scheduler) Start() {
	s.logger.Info("Running initial archive cleanup...")
	s.RunOnce()

	ticker := time.NewTicker(s.interval)

	go func() {
		for {
			select {
			case <-ticker.C:
				s.RunOnce()
			case <-s.stopChan:
				ticker.Stop()
				return
			}
		}
	}()

	s.logger.Infof("Cleanup scheduler started (interval: %s, max age: %s)", s.interval, s.maxAge)
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.logger.Info("Cleanup scheduler stopped")
	})
}

// RunOnce removes archive files and rows older than the max age
func (s *Scheduler) RunOnce() {
	cutoff := s.now().Add(-s.maxAge)

	if s.outputDir != "" {
		s.cleanOldFiles(cutoff)
	}

	if s.records != nil {
		deleted, err := s.records.DeleteOlderThan(cutoff)
		if err != nil {
			s.logger.Errorf("Failed to prune transcript records: %v", err)
		} else if deleted > 0 {
			s.logger.Infof("Pruned %d transcript records", deleted)
		}
	}
}

// cleanOldFiles removes files last modified before cutoff from the archive
func (s *Scheduler) cleanOldFiles(cutoff time.Time) {
	var deletedCount int
	var deletedSize int64

	err := filepath.Walk(s.outputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip what we can't access
		}

		if info.IsDir() {
			return nil
		}

		if info.ModTime().Before(cutoff) {
			size := info.Size()
			if err := os.Remove(path); err != nil {
				s.logger.Warnf("Failed to delete old file %s: %v", path, err)
			} else {
				deletedCount++
				deletedSize += size
				s.logger.Debugf("Deleted old archive file: %s (modified: %s, size: %dKB)",
					filepath.Base(path), info.ModTime().Format(time.RFC3339), size/1024)
			}
		}

		return nil
	})

	if err != nil {
		s.logger.Errorf("Error during cleanup: %v", err)
	}

	if deletedCount > 0 {
		s.logger.Infof("Cleanup complete: %d files deleted, %.2fMB freed",
			deletedCount, float64(deletedSize)/(1024*1024))
	}
}
