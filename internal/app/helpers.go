package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// writeJSON encodes v as the response body and logs encoding failures
func writeJSON(w http.ResponseWriter, log *zap.SugaredLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("Error encoding response: %v", err)
	}
}

// parseYearMonth reads the year and month query parameters. Year defaults
// to the year of now; month defaults to defaultMonth (0 means "none").
func parseYearMonth(r *http.Request, now time.Time, defaultMonth time.Month) (int, time.Month, error) {
	year := now.Year()
	if yearStr := r.URL.Query().Get("year"); yearStr != "" {
		y, err := strconv.Atoi(yearStr)
		if err != nil || y < 1 || y > 9999 {
			return 0, 0, fmt.Errorf("%s: %q", ErrInvalidYear, yearStr)
		}
		year = y
	}

	month := defaultMonth
	if monthStr := r.URL.Query().Get("month"); monthStr != "" {
		m, err := strconv.Atoi(monthStr)
		if err != nil || !ValidMonth(time.Month(m)) {
			return 0, 0, fmt.Errorf("%s: %q", ErrInvalidMonthParam, monthStr)
		}
		month = time.Month(m)
	}
	return year, month, nil
}

// statusRecorder captures the response code for request metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
