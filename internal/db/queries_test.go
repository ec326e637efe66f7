package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueries_HasReplied(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("unknown id", func(t *testing.T) {
		replied, err := store.HasReplied(ctx, "123")
		require.NoError(t, err)
		assert.False(t, replied)
	})

	t.Run("recorded id", func(t *testing.T) {
		err := store.MarkReplied(ctx, MarkRepliedParams{
			ContentID: "123",
			Author:    "alice",
			BodyText:  "some interesting post",
			ReplyText: "great point",
		})
		require.NoError(t, err)

		replied, err := store.HasReplied(ctx, "123")
		require.NoError(t, err)
		assert.True(t, replied)
	})
}

func TestQueries_MarkReplied(t *testing.T) {
	ctx := context.Background()

	t.Run("upsert is idempotent", func(t *testing.T) {
		store := newTestStore(t)

		err := store.MarkReplied(ctx, MarkRepliedParams{
			ContentID: "42",
			Author:    "bob",
			BodyText:  "original post text",
			ReplyText: "first reply",
		})
		require.NoError(t, err)

		err = store.MarkReplied(ctx, MarkRepliedParams{
			ContentID: "42",
			Author:    "bob",
			BodyText:  "original post text",
			ReplyText: "second reply",
		})
		require.NoError(t, err)

		count, err := store.CountReplies(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		recent, err := store.RecentReplies(ctx, 10)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "second reply", recent[0].ReplyText)
	})

	t.Run("empty author falls back to unknown", func(t *testing.T) {
		store := newTestStore(t)

		err := store.MarkReplied(ctx, MarkRepliedParams{
			ContentID: "7",
			BodyText:  "post without extractable author",
			ReplyText: "reply",
		})
		require.NoError(t, err)

		recent, err := store.RecentReplies(ctx, 1)
		require.NoError(t, err)
		require.Len(t, recent, 1)
		assert.Equal(t, "unknown", recent[0].Author)
	})
}

func TestQueries_RecentReplies(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.MarkReplied(ctx, MarkRepliedParams{
			ContentID: fmt.Sprintf("id-%d", i),
			Author:    "carol",
			BodyText:  "body text long enough",
			ReplyText: fmt.Sprintf("reply %d", i),
		})
		require.NoError(t, err)
	}

	t.Run("respects limit", func(t *testing.T) {
		recent, err := store.RecentReplies(ctx, 3)
		require.NoError(t, err)
		assert.Len(t, recent, 3)
	})

	t.Run("count matches", func(t *testing.T) {
		count, err := store.CountReplies(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})
}
