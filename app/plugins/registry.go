// Package plugins maps configured backend names to dispatch log stores.
package plugins

import (
	"fmt"

	"github.com/kilianp07/fooddispatch/config"
	dispatchlog "github.com/kilianp07/fooddispatch/core/dispatch/logging"
)

// LogStoreFactory builds a dispatch log store from the logging section.
type LogStoreFactory func(cfg config.LoggingConfig) (dispatchlog.LogStore, error)

// LogStores holds the registered log store backends.
var LogStores = map[string]LogStoreFactory{}

func RegisterLogStore(name string, f LogStoreFactory) { LogStores[name] = f }

// NewLogStore builds the backend named by cfg.Backend.
func NewLogStore(cfg config.LoggingConfig) (dispatchlog.LogStore, error) {
	f, ok := LogStores[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown log store backend %q", cfg.Backend)
	}
	return f(cfg)
}
