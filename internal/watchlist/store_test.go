package watchlist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/etfarb/internal/apperr"
)

func TestAddRejectsInvalidCode(t *testing.T) {
	s := New()
	_, err := s.Add(context.Background(), "abc123", "", "")
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
}

func TestAddThenDuplicateReturnsAlreadyExists(t *testing.T) {
	s := New()
	res, err := s.Add(context.Background(), "600519", "Moutai", "")
	require.NoError(t, err)
	assert.Equal(t, Added, res)

	res, err = s.Add(context.Background(), "600519", "Moutai Again", "")
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, res)

	entries := s.List(context.Background())
	require.Len(t, entries, 1)
	assert.Equal(t, "Moutai", entries[0].Name)
}

func TestMarketDerivedFromCodePrefix(t *testing.T) {
	s := New()
	_, _ = s.Add(context.Background(), "600519", "", "")
	_, _ = s.Add(context.Background(), "000001", "", "")
	_, _ = s.Add(context.Background(), "300750", "", "")
	_, _ = s.Add(context.Background(), "430047", "", "")

	byCode := make(map[string]Entry)
	for _, e := range s.List(context.Background()) {
		byCode[e.Code] = e
	}
	assert.Equal(t, "SH", byCode["600519"].Market)
	assert.Equal(t, "SZ", byCode["000001"].Market)
	assert.Equal(t, "SZ", byCode["300750"].Market)
	assert.Equal(t, "BJ", byCode["430047"].Market)
}

func TestRemoveUnknownReturnsNotFound(t *testing.T) {
	s := New()
	err := s.Remove(context.Background(), "999999")
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, ae.Kind)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New()
	_, _ = s.Add(context.Background(), "600519", "Moutai", "core holding")
	_, _ = s.Add(context.Background(), "000001", "PAB", "")

	dir := t.TempDir()
	path := filepath.Join(dir, "watchlist.json")
	require.NoError(t, s.Save(path))

	loaded := New()
	require.NoError(t, loaded.Load(path))

	assert.Equal(t, s.List(context.Background()), loaded.List(context.Background()))
	assert.Equal(t, 2, loaded.Count())
	assert.True(t, loaded.Has("600519"))
	assert.False(t, loaded.Has("999999"))
}

func TestCodesReturnsSortedSlice(t *testing.T) {
	s := New()
	_, _ = s.Add(context.Background(), "600519", "", "")
	_, _ = s.Add(context.Background(), "000001", "", "")
	assert.Equal(t, []string{"000001", "600519"}, s.Codes())
}
