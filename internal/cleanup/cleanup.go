// Package cleanup provides background maintenance for the data directory.
package cleanup

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sableworks/codeagentd/internal/logger"
)

// Cleaner periodically prunes the data directory.
type Cleaner struct {
	dataDir      string
	interval     time.Duration
	logRetention time.Duration
	diskWarn     float64
	diskError    float64
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// Config holds cleanup configuration.
type Config struct {
	DataDir          string
	Interval         time.Duration // How often to run cleanup
	LogRetention     time.Duration // How long to keep daily log files
	DiskWarnPercent  float64       // Warn at this disk usage percentage
	DiskErrorPercent float64       // Error at this disk usage percentage
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(dataDir string) Config {
	return Config{
		DataDir:          dataDir,
		Interval:         1 * time.Hour,
		LogRetention:     14 * 24 * time.Hour,
		DiskWarnPercent:  80.0,
		DiskErrorPercent: 90.0,
	}
}

// New creates a new Cleaner with the given configuration.
func New(cfg Config) *Cleaner {
	return &Cleaner{
		dataDir:      cfg.DataDir,
		interval:     cfg.Interval,
		logRetention: cfg.LogRetention,
		diskWarn:     cfg.DiskWarnPercent,
		diskError:    cfg.DiskErrorPercent,
	}
}

// Start begins the periodic cleanup loop.
func (c *Cleaner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		// Run immediately on start
		c.runCleanup()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.runCleanup()
			}
		}
	}()

	logger.Printf("Cleanup started (interval=%v, log retention=%v)", c.interval, c.logRetention)
}

// Stop halts the cleanup loop.
func (c *Cleaner) Stop() {
	if c.cancel != nil {
		c.cancel()
		c.wg.Wait()
		logger.Println("Cleanup stopped")
	}
}

func (c *Cleaner) runCleanup() {
	c.cleanupTmpFiles()
	c.cleanupOldLogs()
	c.checkDiskUsage()
}

// cleanupTmpFiles removes orphaned .tmp files older than one hour anywhere
// under the data directory.
func (c *Cleaner) cleanupTmpFiles() {
	cutoff := time.Now().Add(-1 * time.Hour)
	var removed int

	err := filepath.Walk(c.dataDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".tmp") {
			if info.ModTime().Before(cutoff) {
				if err := os.Remove(path); err == nil {
					removed++
				}
			}
		}
		return nil
	})

	if err != nil {
		logger.Printf("Cleanup walk error: %v", err)
	}
	if removed > 0 {
		logger.Printf("Removed %d orphaned .tmp files", removed)
	}
}

// cleanupOldLogs removes daily log files past the retention window. The
// logger writes one codeagentd-YYYY-MM-DD.log file per day; the current
// day's file is never touched.
func (c *Cleaner) cleanupOldLogs() {
	logDir := filepath.Join(c.dataDir, "logs")
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoff := time.Now().Add(-c.logRetention)
	today := time.Now().Format("2006-01-02")
	var removed int

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "codeagentd-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		if strings.Contains(name, today) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(logDir, name)); err == nil {
				removed++
			}
		}
	}

	if removed > 0 {
		logger.Printf("Removed %d expired log files", removed)
	}
}

// checkDiskUsage monitors disk usage and logs warnings.
func (c *Cleaner) checkDiskUsage() {
	_, _, usedPercent, err := c.DiskUsage()
	if err != nil {
		return
	}

	if usedPercent >= c.diskError {
		logger.Printf("CRITICAL: Disk usage at %.1f%% (data dir)", usedPercent)
	} else if usedPercent >= c.diskWarn {
		logger.Printf("WARNING: Disk usage at %.1f%% (data dir)", usedPercent)
	}
}

// DiskUsage returns current disk usage stats for the data directory.
func (c *Cleaner) DiskUsage() (usedBytes, totalBytes uint64, usedPercent float64, err error) {
	var stat syscall.Statfs_t
	if err = syscall.Statfs(c.dataDir, &stat); err != nil {
		return
	}

	totalBytes = stat.Blocks * uint64(stat.Bsize)
	freeBytes := stat.Bfree * uint64(stat.Bsize)
	usedBytes = totalBytes - freeBytes
	usedPercent = float64(usedBytes) / float64(totalBytes) * 100
	return
}
