package gorm

import (
	"fmt"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/processtracker/pkg/tracker/support/util/logger"
)

// NewGormLogger creates a gorm logger writing to the package logger.
// level is one of "silent", "error", "warn" or "info".
func NewGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch strings.ToLower(level) {
	case "error":
		gormLevel = gormlogger.Error
	case "warn":
		gormLevel = gormlogger.Warn
	case "info":
		gormLevel = gormlogger.Info
	default:
		gormLevel = gormlogger.Silent
	}

	return gormlogger.New(
		NewGormWriter(),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// gormLevelFor maps the package log level to a gorm log level name.
// SQL statements are only traced when the tracker runs at DEBUG.
func gormLevelFor(level logger.LogLevel) string {
	switch level {
	case logger.LevelDebug:
		return "info"
	case logger.LevelInfo, logger.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}

// GormWriter routes gorm output to the package logger.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gormlogger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isStatement(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Infof("[GORM] %s", msg)
}

func isStatement(msg string) bool {
	if !strings.Contains(msg, "[") || !strings.Contains(msg, "]") {
		return false
	}
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE", "SAVEPOINT"} {
		if strings.Contains(msg, verb) {
			return true
		}
	}
	return false
}
