package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/invoice-aggregator/pkg/logger"
)

func TestStoreRoundTripAndPrefixDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "state.db")

	s, err := Open(path, logger.NewNop())
	require.NoError(t, err)

	_, ok, err := s.Get(ctx, "build/state.json")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "build/state.json", []byte(`{"cursor":1}`)))
	require.NoError(t, s.Put(ctx, "build/chunks/0.json", []byte(`{}`)))
	require.NoError(t, s.Put(ctx, "agg.json", []byte(`{}`)))
	require.NoError(t, s.DeleteByPrefix(ctx, "build/"))

	_, ok, err = s.Get(ctx, "build/chunks/0.json")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Close())

	reopened, err := Open(path, logger.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	data, ok, err := reopened.Get(ctx, "agg.json")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "{}", string(data))

	require.NoError(t, reopened.Delete(ctx, "agg.json"))
	require.NoError(t, reopened.Delete(ctx, "agg.json"))
}
