package filestate

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetClear(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	s := New(fs, "/state/timer.json")

	_, ok, err := s.Get(ctx, "timer.running")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "timer.running", "true"))
	require.NoError(t, s.Put(ctx, "timer.end_time", "42"))

	// a second store over the same file sees the writes
	other := New(fs, "/state/timer.json")
	v, ok, err := other.Get(ctx, "timer.end_time")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", v)

	require.NoError(t, s.Clear(ctx, "timer.end_time"))
	_, ok, err = other.Get(ctx, "timer.end_time")
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := afero.Exists(fs, "/state/timer.json.tmp")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCorruptFileIsAnError(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/timer.json", []byte("{not json"), 0600))

	_, _, err := New(fs, "/timer.json").Get(context.Background(), "k")
	assert.Error(t, err)
}
