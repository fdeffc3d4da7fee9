package metrics

import (
	"encoding/json"
	"net/http"
)

// Handler serves the JSON aggregate. Mount it next to promhttp for a
// human-readable view of every peer's circuit.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
