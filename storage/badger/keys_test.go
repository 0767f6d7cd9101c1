package badger

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/pulse/core"
)

func TestMakeFeedbackDateKey(t *testing.T) {
	ts := time.Date(2025, 2, 10, 12, 0, 0, 0, time.UTC)

	t.Run("fixed width regardless of id length", func(t *testing.T) {
		short := makeFeedbackDateKey(ts, "a")
		long := makeFeedbackDateKey(ts, "b7f9c2d4-1e55-4a0c-9d3c-8f21a6e0d934")
		assert.Len(t, short, len(feedbackDatePrefix)+1+16)
		assert.Len(t, long, len(short))
	})

	t.Run("suffix hashes the id string", func(t *testing.T) {
		id := "feedback-42"
		key := makeFeedbackDateKey(ts, id)
		suffix := binary.BigEndian.Uint64(key[len(key)-8:])
		assert.Equal(t, uint64(core.IDFromContent(id)), suffix)
	})

	t.Run("deterministic for same inputs", func(t *testing.T) {
		k1 := makeFeedbackDateKey(ts, "feedback-42")
		k2 := makeFeedbackDateKey(ts, "feedback-42")
		assert.Equal(t, k1, k2)

		other := makeFeedbackDateKey(ts, "feedback-43")
		assert.NotEqual(t, k1, other)
	})

	t.Run("lexicographic order follows timestamps", func(t *testing.T) {
		earlier := makeFeedbackDateKey(ts, "x")
		later := makeFeedbackDateKey(ts.Add(time.Second), "x")
		require.Negative(t, bytes.Compare(earlier, later))

		partial := makePartialFeedbackDateKey(ts)
		assert.True(t, bytes.HasPrefix(earlier, partial))
	})
}
