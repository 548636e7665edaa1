package dispatch

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/kilianp07/fooddispatch/core/dispatch/logging"
)

// NewLogHandler returns an HTTP handler exposing dispatch logs via GET /api/dispatch/logs.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
// Supported filters: start, end (RFC3339), order_id, driver_id, outcome.
func NewLogHandler(store logging.LogStore, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		params := r.URL.Query()
		q := logging.LogQuery{
			OrderID:  params.Get("order_id"),
			DriverID: params.Get("driver_id"),
			Outcome:  params.Get("outcome"),
		}
		for name, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
			s := params.Get(name)
			if s == "" {
				continue
			}
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				http.Error(w, "invalid "+name+": "+err.Error(), http.StatusBadRequest)
				return
			}
			*dst = t
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []logging.LogRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
