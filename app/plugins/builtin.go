package plugins

import (
	"github.com/kilianp07/fooddispatch/config"
	dispatchlog "github.com/kilianp07/fooddispatch/core/dispatch/logging"
)

func init() {
	RegisterLogStore("jsonl", func(lc config.LoggingConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NewJSONLStore(lc.Path)
	})
	RegisterLogStore("jsonl_rotating", func(lc config.LoggingConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NewRotatingJSONLStore(lc.Path, lc.MaxSizeMB, lc.MaxBackups, lc.MaxAgeDays)
	})
	RegisterLogStore("sqlite", func(lc config.LoggingConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NewSQLiteStore(lc.Path)
	})
}
