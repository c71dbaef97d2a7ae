package persistence

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/floworx/backend/internal/infrastructure/monitoring"
)

const queryStartKey = "floworx:query_started_at"

// RegisterQueryMonitor attaches GORM callbacks that feed per-operation
// latency and error rates into the query monitor. Operations are keyed
// as "<verb> <table>", e.g. "select users".
func RegisterQueryMonitor(db *gorm.DB, monitor *monitoring.QueryMonitor) error {
	before := func(tx *gorm.DB) {
		tx.Set(queryStartKey, time.Now())
	}
	after := func(verb string) func(tx *gorm.DB) {
		return func(tx *gorm.DB) {
			value, ok := tx.Get(queryStartKey)
			if !ok {
				return
			}
			started, ok := value.(time.Time)
			if !ok {
				return
			}

			// A missing row is an answer, not a failure
			queryErr := tx.Error
			if errors.Is(queryErr, gorm.ErrRecordNotFound) {
				queryErr = nil
			}

			table := tx.Statement.Table
			if table == "" {
				table = "unknown"
			}
			monitor.Record(verb+" "+table, time.Since(started), queryErr)
		}
	}

	if err := db.Callback().Create().Before("gorm:create").
		Register("floworx:monitor_before_create", before); err != nil {
		return err
	}
	if err := db.Callback().Create().After("gorm:create").
		Register("floworx:monitor_after_create", after("create")); err != nil {
		return err
	}
	if err := db.Callback().Query().Before("gorm:query").
		Register("floworx:monitor_before_query", before); err != nil {
		return err
	}
	if err := db.Callback().Query().After("gorm:query").
		Register("floworx:monitor_after_query", after("select")); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").
		Register("floworx:monitor_before_update", before); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").
		Register("floworx:monitor_after_update", after("update")); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").
		Register("floworx:monitor_before_delete", before); err != nil {
		return err
	}
	if err := db.Callback().Delete().After("gorm:delete").
		Register("floworx:monitor_after_delete", after("delete")); err != nil {
		return err
	}
	if err := db.Callback().Raw().Before("gorm:raw").
		Register("floworx:monitor_before_raw", before); err != nil {
		return err
	}
	if err := db.Callback().Raw().After("gorm:raw").
		Register("floworx:monitor_after_raw", after("raw")); err != nil {
		return err
	}
	return nil
}
