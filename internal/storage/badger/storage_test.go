package badger

import (
	"testing"

	"github.com/storymill/storymill/internal/common"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a throwaway store under the test's temp dir.
func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()

	db, err := NewBadgerDB(common.GetLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
