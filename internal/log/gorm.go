package log

import (
	"time"

	"github.com/sirupsen/logrus"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GORMLogger routes gorm's query warnings through logrus so they honour the
// configured output. The player relies on this to keep SQL noise off the terminal.
func GORMLogger(logger *logrus.Logger) gormlogger.Interface {
	if logger == nil {
		return gormlogger.Discard
	}

	level := gormlogger.Warn
	switch {
	case logger.IsLevelEnabled(logrus.TraceLevel):
		level = gormlogger.Info
	case !logger.IsLevelEnabled(logrus.WarnLevel):
		level = gormlogger.Silent
	}

	return gormlogger.New(logger.WithField("component", "gorm"), gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
