package app

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store holds counter records in memory and writes the whole state through
// its Persister after every change.
//
// All methods are safe for concurrent use. Mutations and saves run under the
// write lock, so there is at most one writer at a time.
type Store struct {
	mu        sync.RWMutex
	order     []string
	records   map[string]Record
	persister Persister
	log       *zap.SugaredLogger
	metrics   *Metrics
}

// OpenStore loads the persisted state. A missing file yields an empty store.
// Corrupt state is replaced by an empty store that is written back at once;
// a failure to write it back is logged and surfaces again on the next save.
func OpenStore(p Persister, log *zap.SugaredLogger) (*Store, error) {
	s := &Store{
		order:     []string{},
		records:   make(map[string]Record),
		persister: p,
		log:       log,
	}

	snap, err := p.Load()
	switch {
	case err == nil:
		s.order = snap.Order
		s.records = snap.Records
	case errors.Is(err, ErrCorruptState):
		log.Warnf("⚠️  %v, starting with an empty store", err)
		if err := s.saveLocked(); err != nil {
			log.Errorf("failed to rewrite corrupt state: %v", err)
		}
	default:
		return nil, fmt.Errorf("failed to load counters: %w", err)
	}

	log.Infow("counters loaded", "file", p.Path(), "counters", len(s.order))
	return s, nil
}

// WithMetrics attaches metrics collectors to the store
func (s *Store) WithMetrics(m *Metrics) *Store {
	s.mu.Lock()
	s.metrics = m
	s.mu.Unlock()
	return s
}

// CreateCounter adds an empty counter. Creating an existing counter is a no-op.
func (s *Store) CreateCounter(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidCounterName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; ok {
		return nil
	}
	s.addLocked(name)
	s.observe("create")
	return s.saveLocked()
}

// DeleteCounter removes a counter and all of its days. Unknown names are ignored.
func (s *Store) DeleteCounter(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[name]; !ok {
		return nil
	}
	delete(s.records, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	s.observe("delete")
	return s.saveLocked()
}

// Count returns the count for day, or 0 when the day or counter is unknown
func (s *Store) Count(name string, day time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[name][DayKey(day)]
}

// Adjust adds delta to the count for day, clamping at zero, and returns the
// new count. Unknown counters are created first. On a save failure the new
// count is still returned along with the error.
func (s *Store) Adjust(name string, day time.Time, delta int) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, ErrInvalidCounterName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[name]
	if !ok {
		record = s.addLocked(name)
	}

	key := DayKey(day)
	count := addClamped(record[key], delta)
	record[key] = count
	s.observe("adjust")

	return count, s.saveLocked()
}

// Counters returns counter names in insertion order
func (s *Store) Counters() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Has reports whether a counter exists
func (s *Store) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[name]
	return ok
}

// Record returns a copy of a counter's days
func (s *Store) Record(name string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[name]
	if !ok {
		return nil, false
	}
	return maps.Clone(record), true
}

// Month yields one DayCell per day of the month. Counts are read when the
// sequence is iterated, so every iteration reflects the current state.
// An invalid month yields nothing.
func (s *Store) Month(name string, year int, month time.Month) iter.Seq[DayCell] {
	return func(yield func(DayCell) bool) {
		if !ValidMonth(month) {
			return
		}
		for d := 1; d <= DaysIn(year, month); d++ {
			day := Date(year, month, d)
			count := s.Count(name, day)
			cell := DayCell{
				Day:     d,
				Weekday: int(day.Weekday()),
				Date:    DayKey(day),
				Count:   count,
				Level:   LevelFor(count),
			}
			if !yield(cell) {
				return
			}
		}
	}
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Save writes the whole store through the persister
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// Path returns where the store is persisted
func (s *Store) Path() string {
	return s.persister.Path()
}

func (s *Store) addLocked(name string) Record {
	record := Record{}
	s.records[name] = record
	s.order = append(s.order, name)
	return record
}

func (s *Store) snapshotLocked() *Snapshot {
	snap := &Snapshot{
		Order:   slices.Clone(s.order),
		Records: make(map[string]Record, len(s.records)),
	}
	for name, record := range s.records {
		snap.Records[name] = maps.Clone(record)
	}
	return snap
}

// saveLocked persists the store (caller must hold the write lock)
func (s *Store) saveLocked() error {
	if err := s.persister.Save(s.snapshotLocked()); err != nil {
		if s.metrics != nil {
			s.metrics.PersistFailures.Inc()
		}
		s.log.Errorw("failed to save counters", "file", s.persister.Path(), "error", err)
		return fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}
	return nil
}

// addClamped adds delta to a non-negative count, saturating at MaxInt and
// clamping at zero
func addClamped(count, delta int) int {
	if delta > 0 && count > math.MaxInt-delta {
		return math.MaxInt
	}
	return max(0, count+delta)
}

func (s *Store) observe(op string) {
	if s.metrics != nil {
		s.metrics.Mutations.WithLabelValues(op).Inc()
	}
}
