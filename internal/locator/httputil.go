package locator

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type timing struct {
	name string
	dur  time.Duration
}

// addServerTiming appends one Server-Timing header entry per phase, e.g.
// "db;dur=12.3, total;dur=14.0".
func addServerTiming(w http.ResponseWriter, phases ...timing) {
	if len(phases) == 0 {
		return
	}
	parts := make([]string, 0, len(phases))
	for _, p := range phases {
		parts = append(parts, fmt.Sprintf("%s;dur=%.1f", p.name, float64(p.dur.Microseconds())/1000))
	}
	w.Header().Add("Server-Timing", strings.Join(parts, ", "))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeDetail reports a caller or lookup error as {"detail": msg}.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
