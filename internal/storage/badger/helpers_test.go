package badger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/propstream/propstream/internal/common"
)

// newTestDB opens a throwaway badger store for one test.
func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	logger := arbor.NewLogger()
	db, err := NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close test db: %v", err)
		}
	})
	return db
}
