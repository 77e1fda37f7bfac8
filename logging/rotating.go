package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

const logFilePrefix = "validator-"

var numberedLogPattern = regexp.MustCompile(`^validator-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger is an io.Writer that starts a new file every ISO week and
// whenever the current file would grow past maxFileSize. Files older than the
// retention period are removed by a daily gocron job.
type RotatingLogger struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	file        *os.File
	week        string
	size        int64
	now         func() time.Time
	cleanupJobs *gocron.Scheduler
}

// NewRotatingLogger opens (or creates) the file for the current week
func NewRotatingLogger(logDir string, retentionWeeks int, maxFileSize int64) (*RotatingLogger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	rl := &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		now:         time.Now,
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if err := rl.rotate(weekKey(rl.now()), false); err != nil {
		return nil, err
	}

	return rl, nil
}

// StartCleanup schedules the retention sweep once a day. It runs once
// immediately as well.
func (rl *RotatingLogger) StartCleanup() error {
	s := gocron.NewScheduler(time.Local)
	if _, err := s.Every(1).Day().At("03:00").StartImmediately().Do(func() {
		if removed, err := rl.CleanupOldLogs(); err != nil {
			fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
		} else if removed > 0 {
			fmt.Fprintf(os.Stderr, "Cleaned up %d old log files\n", removed)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule log cleanup: %w", err)
	}

	s.StartAsync()

	rl.mu.Lock()
	rl.cleanupJobs = s
	rl.mu.Unlock()
	return nil
}

func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// rotate switches to the file for week. When full is set the current file
// cannot take the pending write and a new numbered file is opened.
// Caller holds mu.
func (rl *RotatingLogger) rotate(week string, full bool) error {
	if rl.file != nil {
		_ = rl.file.Close()
		rl.file = nil
	}

	name := rl.pickFile(week, full)
	path := filepath.Join(rl.logDir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	rl.file = f
	rl.week = week
	rl.size = size
	return nil
}

func (rl *RotatingLogger) pickFile(week string, full bool) string {
	base := fmt.Sprintf("%s%s.log", logFilePrefix, week)
	if !full {
		info, err := os.Stat(filepath.Join(rl.logDir, base))
		if err != nil || rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
			return base
		}
	}

	highest := 0
	var highestSize int64
	matches, _ := filepath.Glob(filepath.Join(rl.logDir, fmt.Sprintf("%s%s_??.log", logFilePrefix, week)))
	for _, m := range matches {
		sub := numberedLogPattern.FindStringSubmatch(filepath.Base(m))
		if len(sub) < 2 {
			continue
		}
		n, _ := strconv.Atoi(sub[1])
		if n > highest {
			highest = n
			highestSize = 0
			if info, err := os.Stat(m); err == nil {
				highestSize = info.Size()
			}
		}
	}

	if !full && highest > 0 && highestSize < rl.maxFileSize {
		return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, highest)
	}
	return fmt.Sprintf("%s%s_%02d.log", logFilePrefix, week, highest+1)
}

// Write implements io.Writer
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(rl.now())
	switch {
	case week != rl.week:
		if err := rl.rotate(week, false); err != nil {
			return 0, err
		}
	case rl.maxFileSize > 0 && rl.size+int64(len(p)) > rl.maxFileSize && rl.size > 0:
		if err := rl.rotate(week, true); err != nil {
			return 0, err
		}
	}

	if rl.file == nil {
		return 0, fmt.Errorf("no log file available")
	}

	n, err := rl.file.Write(p)
	rl.size += int64(n)
	return n, err
}

// CleanupOldLogs removes rotated files whose modification time is past the
// retention period and returns how many were deleted
func (rl *RotatingLogger) CleanupOldLogs() (int, error) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := rl.now().Add(-rl.retention)
	removed := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
			removed++
		}
	}

	return removed, nil
}

// Close stops the cleanup job and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.cleanupJobs != nil {
		rl.cleanupJobs.Stop()
		rl.cleanupJobs = nil
	}

	if rl.file == nil {
		return nil
	}
	err := rl.file.Close()
	rl.file = nil
	return err
}
