package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

// Persister reads and writes the complete store state.
//
// Load returns an empty snapshot when nothing has been persisted yet and an
// error wrapping ErrCorruptState when the persisted state cannot be parsed.
// Save always rewrites the whole state.
type Persister interface {
	Load() (*Snapshot, error)
	Save(snap *Snapshot) error
	Path() string
}

// NewPersister returns the persister for the configured storage driver
func NewPersister(cfg *Config, log *zap.SugaredLogger) (Persister, error) {
	switch cfg.Storage {
	case "", StorageJSON:
		return NewJSONFile(cfg.DataFile, log), nil
	case StorageBolt:
		return NewBoltFile(cfg.DataFile, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, cfg.Storage)
	}
}

var prettyOptions = &pretty.Options{Width: 80, Indent: "    ", SortKeys: false}

// JSONFile persists the store as a single JSON object:
// counter name -> YYYY-MM-DD -> count.
type JSONFile struct {
	path string
	log  *zap.SugaredLogger
}

// NewJSONFile returns a JSON file persister for path
func NewJSONFile(path string, log *zap.SugaredLogger) *JSONFile {
	return &JSONFile{path: path, log: log}
}

// Path returns the data file location
func (f *JSONFile) Path() string {
	return f.path
}

// Load reads the data file. A corrupt file is moved aside before returning
// ErrCorruptState.
func (f *JSONFile) Load() (*Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewSnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	snap, err := DecodeSnapshot(data, f.log)
	if err != nil {
		quarantine(f.path, f.log)
		return nil, err
	}
	return snap, nil
}

// Save writes the snapshot to a temp file, keeps the previous file as a
// backup and renames the temp file into place.
func (f *JSONFile) Save(snap *Snapshot) error {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	tmpFile := f.path + TmpSuffix
	if err := os.WriteFile(tmpFile, data, FilePermissions); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpFile, err)
	}

	if _, err := os.Stat(f.path); err == nil {
		if err := os.Rename(f.path, f.path+BackupSuffix); err != nil {
			f.log.Warnf("failed to create backup: %v", err)
		}
	}

	if err := os.Rename(tmpFile, f.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}

	f.log.Debugw("counters saved", "file", f.path, "size", humanize.Bytes(uint64(len(data))))
	return nil
}

// DecodeSnapshot parses the persisted JSON format, keeping counter order as
// it appears in the document. Malformed JSON or a top level that is not an
// object is ErrCorruptState. Counters that are not objects and days with a
// bad date key or a count that is not a non-negative integer are skipped and
// logged.
func DecodeSnapshot(data []byte, log *zap.SugaredLogger) (*Snapshot, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: malformed JSON", ErrCorruptState)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level is not an object", ErrCorruptState)
	}

	snap := NewSnapshot()
	root.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if !value.IsObject() {
			log.Warnf("⚠️  Skipping counter %q: value is not an object", name)
			return true
		}

		record := Record{}
		value.ForEach(func(day, count gjson.Result) bool {
			n, err := decodeDay(day.String(), count)
			if err != nil {
				log.Warnf("⚠️  Skipping counter %q day %s: %v", name, day.String(), err)
				return true
			}
			record[day.String()] = n
			return true
		})

		if _, ok := snap.Records[name]; !ok {
			snap.Order = append(snap.Order, name)
		}
		snap.Records[name] = record
		return true
	})
	return snap, nil
}

// decodeDay validates one day entry of a counter record
func decodeDay(key string, count gjson.Result) (int, error) {
	if _, err := ParseDay(key); err != nil {
		return 0, err
	}
	n := count.Int()
	if count.Type != gjson.Number || n < 0 || float64(n) != count.Num {
		return 0, fmt.Errorf("bad count %s", count.Raw)
	}
	return int(n), nil
}

// EncodeSnapshot renders the snapshot with counters in insertion order and
// days sorted, indented by four spaces.
func EncodeSnapshot(snap *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range snap.Order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode counter name: %w", err)
		}
		record := snap.Records[name]
		if record == nil {
			record = Record{}
		}
		value, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("failed to encode counter %q: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return pretty.PrettyOptions(buf.Bytes(), prettyOptions), nil
}

// quarantine moves a corrupt data file aside so it is not lost when the
// empty state is written back.
func quarantine(path string, log *zap.SugaredLogger) {
	target := path + CorruptSuffix
	if err := os.Rename(path, target); err != nil {
		log.Warnf("failed to move corrupt file %s aside: %v", path, err)
		return
	}
	log.Warnf("corrupt data file moved to %s", target)
}
