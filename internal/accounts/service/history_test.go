package service

import (
	"testing"

	"github.com/perchsocial/perch/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := cryptox.HashPassword(password)
	require.NoError(t, err)
	return hash
}

func TestHistoryContains(t *testing.T) {
	t.Run("empty history never matches", func(t *testing.T) {
		found, err := historyContains("anything", nil)
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("finds a retired password", func(t *testing.T) {
		history := []string{
			mustHash(t, "first"),
			mustHash(t, "second"),
		}

		found, err := historyContains("second", history)
		require.NoError(t, err)
		require.True(t, found)

		found, err = historyContains("never-used", history)
		require.NoError(t, err)
		require.False(t, found)
	})

	t.Run("only the newest entries count", func(t *testing.T) {
		// Four entries, oldest first; the window covers the newest three so
		// "ancient" falls off.
		history := []string{
			mustHash(t, "ancient"),
			mustHash(t, "first"),
			mustHash(t, "second"),
			mustHash(t, "third"),
		}

		found, err := historyContains("ancient", history)
		require.NoError(t, err)
		require.False(t, found)

		found, err = historyContains("first", history)
		require.NoError(t, err)
		require.True(t, found)
	})

	t.Run("unparseable hash aborts the check", func(t *testing.T) {
		history := []string{"not-a-phc-hash"}

		_, err := historyContains("anything", history)
		require.ErrorIs(t, err, cryptox.ErrInvalidHashFormat)
	})
}

func TestRecordRetired(t *testing.T) {
	t.Run("appends to empty history", func(t *testing.T) {
		out := recordRetired(nil, "hash-1")
		require.Equal(t, []string{"hash-1"}, out)
	})

	t.Run("keeps oldest-first order", func(t *testing.T) {
		out := recordRetired([]string{"hash-1"}, "hash-2")
		out = recordRetired(out, "hash-3")
		require.Equal(t, []string{"hash-1", "hash-2", "hash-3"}, out)
	})

	t.Run("evicts the oldest past the limit", func(t *testing.T) {
		out := []string{"hash-1", "hash-2", "hash-3"}
		out = recordRetired(out, "hash-4")
		require.Equal(t, []string{"hash-2", "hash-3", "hash-4"}, out)
	})

	t.Run("does not mutate the input slice", func(t *testing.T) {
		in := []string{"hash-1", "hash-2"}
		_ = recordRetired(in, "hash-3")
		require.Equal(t, []string{"hash-1", "hash-2"}, in)
	})
}
