package app

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errDiskFull = errors.New("no space left on device")

// failingPersister loads an empty state and fails every save when fail is set
type failingPersister struct {
	fail  bool
	saves int
}

func (p *failingPersister) Load() (*Snapshot, error) { return NewSnapshot(), nil }
func (p *failingPersister) Path() string             { return "memory" }
func (p *failingPersister) Save(*Snapshot) error {
	p.saves++
	if p.fail {
		return errDiskFull
	}
	return nil
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// setupJSONStore opens a store backed by a JSON file in a temp directory
func setupJSONStore(t *testing.T) (*Store, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.json")
	store, err := OpenStore(NewJSONFile(path, testLogger()), testLogger())
	require.NoError(t, err)
	return store, path
}
