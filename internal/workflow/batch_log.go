package workflow

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"plaques2gallery/internal/config"
	"plaques2gallery/internal/logging"
)

// BatchLogger manages dedicated JSON log files for each batch.
type BatchLogger struct {
	baseDir  string
	level    string
	rotation logging.Rotation
}

// NewBatchLogger returns nil when no log directory is configured.
func NewBatchLogger(cfg *config.Config) *BatchLogger {
	if cfg == nil || strings.TrimSpace(cfg.Paths.LogDir) == "" {
		return nil
	}
	return &BatchLogger{
		baseDir: filepath.Join(cfg.Paths.LogDir, "batches"),
		// Batch files keep per-plaque detail regardless of the console level.
		level: "debug",
		rotation: logging.Rotation{
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.RetentionDays,
		},
	}
}

// Path returns the log file for batchID.
func (b *BatchLogger) Path(batchID int64) string {
	return filepath.Join(b.baseDir, fmt.Sprintf("batch-%04d.log", batchID))
}

// Open creates the handler for batchID. The caller closes the returned file.
func (b *BatchLogger) Open(batchID int64) (slog.Handler, io.Closer, error) {
	if b == nil {
		return nil, nil, fmt.Errorf("batch log directory not configured")
	}
	return logging.NewFileHandler(b.Path(batchID), b.level, b.rotation)
}

// openBatchLog tees the manager logger into the batch file. Failures degrade
// to the manager logger alone.
func (m *Manager) openBatchLog(batchID int64) (*slog.Logger, func()) {
	if m.batchLogs == nil {
		return m.logger, func() {}
	}
	handler, closer, err := m.batchLogs.Open(batchID)
	if err != nil {
		logging.WarnWithContext(m.logger, "batch log unavailable", "batch_log_failed",
			logging.Batch(batchID),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check log_dir permissions"),
			logging.String(logging.FieldImpact, "batch events are only written to the main log"),
		)
		return m.logger, func() {}
	}
	handler = handler.WithAttrs([]slog.Attr{logging.String(logging.FieldComponent, "workflow")})
	logger := slog.New(logging.TeeHandler(m.logger.Handler(), handler))
	return logger, func() {
		if err := closer.Close(); err != nil {
			m.logger.Debug("close batch log failed", logging.Error(err))
		}
	}
}
