package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the store as a JSON API for an external UI
type Server struct {
	store    *Store
	auth     *Authenticator
	metrics  *Metrics
	log      *zap.SugaredLogger
	validate *validator.Validate
	now      func() time.Time
}

// NewServer wires the API handlers. auth and metrics may be nil.
func NewServer(store *Store, auth *Authenticator, metrics *Metrics, log *zap.SugaredLogger) *Server {
	if auth == nil {
		auth = &Authenticator{log: log}
	}
	return &Server{
		store:    store,
		auth:     auth,
		metrics:  metrics,
		log:      log,
		validate: validator.New(),
		now:      time.Now,
	}
}

// today returns the current calendar day of the server clock
func (s *Server) today() time.Time {
	now := s.now()
	return Date(now.Year(), now.Month(), now.Day())
}

type createCounterRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

type adjustRequest struct {
	Date  string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Delta int    `json:"delta" validate:"required"`
}

type countResponse struct {
	Counter string `json:"counter"`
	Date    string `json:"date"`
	Count   int    `json:"count"`
	Level   Level  `json:"level"`
}

// Routes returns the HTTP handler with all API routes
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET /api/counters", s.ListCounters)
	s.handle(mux, "POST /api/counters", s.auth.Require(s.CreateCounter))
	s.handle(mux, "DELETE /api/counters/{name}", s.auth.Require(s.DeleteCounter))
	s.handle(mux, "GET /api/counters/{name}/days/{date}", s.GetCount)
	s.handle(mux, "POST /api/counters/{name}/adjust", s.auth.Require(s.AdjustCount))
	s.handle(mux, "GET /api/counters/{name}/month", s.MonthProjection)
	s.handle(mux, "GET /api/export", s.HandleDownload)
	s.handle(mux, "GET /api/subscribe/{name}", s.HandleSubscribe)

	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	if s.metrics == nil {
		mux.HandleFunc(pattern, h)
		return
	}
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.Requests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
	})
}

// ListCounters returns counter names in creation order
func (s *Server) ListCounters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.log, http.StatusOK, map[string][]string{"counters": s.store.Counters()})
}

// CreateCounter adds a counter; existing names are accepted unchanged
func (s *Server) CreateCounter(w http.ResponseWriter, r *http.Request) {
	var req createCounterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status := "created"
	if s.store.Has(req.Name) {
		status = "exists"
	}

	if err := s.store.CreateCounter(req.Name); err != nil {
		s.writeStoreError(w, err, nil)
		return
	}
	writeJSON(w, s.log, http.StatusOK, map[string]string{"status": status, "name": req.Name})
}

// DeleteCounter removes a counter; unknown names are not an error
func (s *Server) DeleteCounter(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteCounter(r.PathValue("name")); err != nil {
		s.writeStoreError(w, err, nil)
		return
	}
	writeJSON(w, s.log, http.StatusOK, map[string]string{"status": "ok"})
}

// GetCount returns the count of one day
func (s *Server) GetCount(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	day, err := ParseDay(r.PathValue("date"))
	if err != nil {
		http.Error(w, ErrInvalidDateFormat, http.StatusBadRequest)
		return
	}

	count := s.store.Count(name, day)
	writeJSON(w, s.log, http.StatusOK, countResponse{
		Counter: name,
		Date:    DayKey(day),
		Count:   count,
		Level:   LevelFor(count),
	})
}

// AdjustCount adds delta to a day's count (today when no date is given)
func (s *Server) AdjustCount(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	var req adjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	day := s.today()
	if req.Date != "" {
		var err error
		if day, err = ParseDay(req.Date); err != nil {
			http.Error(w, ErrInvalidDateFormat, http.StatusBadRequest)
			return
		}
	}

	count, err := s.store.Adjust(name, day, req.Delta)
	resp := countResponse{Counter: name, Date: DayKey(day), Count: count, Level: LevelFor(count)}
	if err != nil {
		s.writeStoreError(w, err, resp)
		return
	}
	writeJSON(w, s.log, http.StatusOK, resp)
}

// MonthProjection returns every day of a month with its count.
// Query params: year, month (default: current month)
func (s *Server) MonthProjection(w http.ResponseWriter, r *http.Request) {
	today := s.today()
	year, month, err := parseYearMonth(r, today, today.Month())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	export, err := BuildExport(s.store, r.PathValue("name"), year, month)
	if err != nil {
		http.Error(w, ErrInvalidMonthParam, http.StatusBadRequest)
		return
	}
	writeJSON(w, s.log, http.StatusOK, export)
}

// HandleDownload exports one counter as csv, json or ics.
// Query params: counter, format, year, month (optional, whole year if absent)
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	counter := r.URL.Query().Get("counter")
	format := r.URL.Query().Get("format")
	if counter == "" {
		http.Error(w, ErrInvalidRequest, http.StatusBadRequest)
		return
	}
	if !ValidFormat(format) {
		http.Error(w, ErrInvalidFormat, http.StatusBadRequest)
		return
	}

	year, month, err := parseYearMonth(r, s.today(), 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	export, err := BuildExport(s.store, counter, year, month)
	if err != nil {
		http.Error(w, ErrInvalidMonthParam, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", ContentType(format))
	w.Header().Set("Content-Disposition", "attachment; filename=\""+export.Filename(format)+"\"")
	if err := WriteExport(w, format, export, s.now()); err != nil {
		s.log.Errorf("Error writing %s export: %v", format, err)
	}
}

// HandleSubscribe serves an ICS feed with every non-zero day of a counter
func (s *Server) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	record, ok := s.store.Record(name)
	if !ok {
		http.Error(w, "Counter not found", http.StatusNotFound)
		return
	}

	// No Content-Disposition: calendar apps need inline content for subscriptions
	w.Header().Set("Content-Type", ContentType(FormatICS))
	if err := GenerateSubscriptionICS(w, name, record, s.now()); err != nil {
		s.log.Errorf("Error writing subscription feed: %v", err)
	}
}

// writeStoreError maps store errors to responses. Persist failures keep the
// in-memory result, which is returned as "result" when given.
func (s *Server) writeStoreError(w http.ResponseWriter, err error, result any) {
	switch {
	case errors.Is(err, ErrInvalidCounterName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrPersistFailed):
		body := map[string]any{"status": "error", "error": ErrFailedToSave}
		if result != nil {
			body["result"] = result
		}
		writeJSON(w, s.log, http.StatusInternalServerError, body)
	default:
		s.log.Errorf("unexpected store error: %v", err)
		http.Error(w, ErrInternalServer, http.StatusInternalServerError)
	}
}
