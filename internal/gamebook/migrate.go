package gamebook

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the pages and links schema using Gorm's AutoMigrate and logs progress.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "gamebook.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying gamebook schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&PageRecord{}, &LinkRecord{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("gamebook schema migration failed")
		}
		return eris.Wrap(err, "auto migrating gamebook schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("gamebook schema migration complete")
	}

	return nil
}
