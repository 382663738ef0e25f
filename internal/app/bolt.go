package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	bolt "go.etcd.io/bbolt"
	berrors "go.etcd.io/bbolt/errors"
	"go.uber.org/zap"
)

const (
	boltCountersBucket = "counters"
	boltMetaBucket     = "meta"
	boltOrderKey       = "order"
	boltOpenTimeout    = time.Second
)

// BoltFile persists the store in a bbolt database. Each counter is a nested
// bucket under "counters" holding day -> decimal count; the insertion order
// is kept as a JSON array under meta/order.
type BoltFile struct {
	path string
	log  *zap.SugaredLogger
}

// NewBoltFile returns a bbolt persister for path
func NewBoltFile(path string, log *zap.SugaredLogger) *BoltFile {
	return &BoltFile{path: path, log: log}
}

// Path returns the database file location
func (b *BoltFile) Path() string {
	return b.path
}

func (b *BoltFile) open() (*bolt.DB, error) {
	return bolt.Open(filepath.Clean(b.path), FilePermissions, &bolt.Options{Timeout: boltOpenTimeout})
}

// Load reads all counters from the database
func (b *BoltFile) Load() (*Snapshot, error) {
	if _, err := os.Stat(b.path); errors.Is(err, os.ErrNotExist) {
		return NewSnapshot(), nil
	}

	db, err := b.open()
	if err != nil {
		// Lock timeouts and permission problems are not corruption
		if errors.Is(err, berrors.ErrTimeout) || errors.Is(err, os.ErrPermission) {
			return nil, fmt.Errorf("failed to open %s: %w", b.path, err)
		}
		quarantine(b.path, b.log)
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			b.log.Warnf("Error closing database: %v", err)
		}
	}()

	snap := NewSnapshot()
	err = db.View(func(tx *bolt.Tx) error {
		if meta := tx.Bucket([]byte(boltMetaBucket)); meta != nil {
			if raw := meta.Get([]byte(boltOrderKey)); raw != nil {
				if err := json.Unmarshal(raw, &snap.Order); err != nil {
					b.log.Warnf("⚠️  Ignoring stored counter order: %v", err)
					snap.Order = []string{}
				}
			}
		}

		counters := tx.Bucket([]byte(boltCountersBucket))
		if counters == nil {
			snap.Order = snap.Order[:0]
			return nil
		}

		return counters.ForEachBucket(func(name []byte) error {
			record := Record{}
			err := counters.Bucket(name).ForEach(func(k, v []byte) error {
				day := string(k)
				if _, err := ParseDay(day); err != nil {
					b.log.Warnf("⚠️  Skipping counter %q day %q: %v", name, day, err)
					return nil
				}
				n, err := strconv.Atoi(string(v))
				if err != nil || n < 0 {
					b.log.Warnf("⚠️  Skipping counter %q day %s: bad count %q", name, day, v)
					return nil
				}
				record[day] = n
				return nil
			})
			if err != nil {
				return err
			}
			snap.Records[string(name)] = record
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b.path, err)
	}

	snap.Order = reconcileOrder(snap.Order, snap.Records)
	return snap, nil
}

// Save replaces the database content with snap in a single transaction
func (b *BoltFile) Save(snap *Snapshot) error {
	if dir := filepath.Dir(b.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	order, err := json.Marshal(snap.Order)
	if err != nil {
		return fmt.Errorf("failed to encode counter order: %w", err)
	}

	db, err := b.open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", b.path, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			b.log.Warnf("Error closing database: %v", err)
		}
	}()

	err = db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(boltCountersBucket)); err != nil && !errors.Is(err, berrors.ErrBucketNotFound) {
			return fmt.Errorf("failed to clear counters: %w", err)
		}
		counters, err := tx.CreateBucket([]byte(boltCountersBucket))
		if err != nil {
			return fmt.Errorf("failed to create counters bucket: %w", err)
		}

		for _, name := range snap.Order {
			bucket, err := counters.CreateBucket([]byte(name))
			if err != nil {
				return fmt.Errorf("failed to create bucket for %q: %w", name, err)
			}
			for day, count := range snap.Records[name] {
				if err := bucket.Put([]byte(day), []byte(strconv.Itoa(count))); err != nil {
					return fmt.Errorf("failed to write %q %s: %w", name, day, err)
				}
			}
		}

		meta, err := tx.CreateBucketIfNotExists([]byte(boltMetaBucket))
		if err != nil {
			return fmt.Errorf("failed to create meta bucket: %w", err)
		}
		return meta.Put([]byte(boltOrderKey), order)
	})
	if err != nil {
		return err
	}

	if info, err := os.Stat(b.path); err == nil {
		b.log.Debugw("counters saved", "file", b.path, "size", humanize.Bytes(uint64(info.Size())))
	}
	return nil
}

// reconcileOrder drops names without a bucket and appends buckets missing
// from the stored order (in key order).
func reconcileOrder(order []string, records map[string]Record) []string {
	seen := make(map[string]bool, len(order))
	result := make([]string, 0, len(records))
	for _, name := range order {
		if _, ok := records[name]; ok && !seen[name] {
			seen[name] = true
			result = append(result, name)
		}
	}
	var missing []string
	for name := range records {
		if !seen[name] {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	return append(result, missing...)
}
