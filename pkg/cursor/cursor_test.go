package cursor

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hashicorp-forge/recipebox/internal/testutil"
)

func testStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, found, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Advance(ctx, "alice", 10))
	v, found, err := s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.EqualValues(t, 10, v)

	require.NoError(t, s.Advance(ctx, "alice", 10), "same value is allowed")
	require.NoError(t, s.Advance(ctx, "alice", 25))

	err = s.Advance(ctx, "alice", 3)
	assert.ErrorIs(t, err, ErrBackward)
	v, _, err = s.Load(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 25, v)

	assert.ErrorIs(t, s.Advance(ctx, "bob", -1), ErrBackward)

	require.NoError(t, s.Advance(ctx, "bob", 1))
	v, _, err = s.Load(ctx, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, v, "accounts are independent")
}

func TestDBStore(t *testing.T) {
	testStore(t, NewDBStore(testutil.NewDB(t)))
}

func TestPrefsStore(t *testing.T) {
	fs := afero.NewMemMapFs()
	testStore(t, NewPrefsStore(fs, "/var/lib/recipebox/prefs.json"))

	data, err := afero.ReadFile(fs, "/var/lib/recipebox/prefs.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"largest_change_id:alice": 25, "largest_change_id:bob": 1}`, string(data))

	exists, err := afero.Exists(fs, "/var/lib/recipebox/prefs.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPrefsStore_Corrupt(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/prefs.json", []byte("{not json"), 0o600))

	_, _, err := NewPrefsStore(fs, "/prefs.json").Load(context.Background(), "alice")
	assert.ErrorContains(t, err, "failed to parse preferences")
}
