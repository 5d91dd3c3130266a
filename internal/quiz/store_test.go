package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour)

	_, err := store.Load(ctx, "1_synonyms")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session := NewSession(time.Now())
	session.WordAttempts["Abandon"] = 2
	require.NoError(t, store.Save(ctx, "1_synonyms", session))

	// stored copy is isolated from later mutation
	session.WordAttempts["Abandon"] = 3
	loaded, err := store.Load(ctx, "1_synonyms")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.WordAttempts["Abandon"])

	loaded.UsedQuestions["Abandon_2"] = true
	again, err := store.Load(ctx, "1_synonyms")
	require.NoError(t, err)
	assert.Empty(t, again.UsedQuestions)

	require.NoError(t, store.Delete(ctx, "1_synonyms"))
	_, err = store.Load(ctx, "1_synonyms")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemoryStoreCleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Hour)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "old", NewSession(now)))
	now = now.Add(50 * time.Minute)
	require.NoError(t, store.Save(ctx, "fresh", NewSession(now)))
	now = now.Add(20 * time.Minute)

	assert.Equal(t, 1, store.Cleanup())
	_, err := store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = store.Load(ctx, "fresh")
	assert.NoError(t, err)
	assert.Equal(t, 1, store.GetStats()["total_sessions"])
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, time.Hour)

	_, err := store.Load(ctx, "7_antonyms")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	session := NewSession(time.Now())
	session.WordAttempts["Ancient"] = 3
	session.UsedQuestions["Ancient_2"] = true
	require.NoError(t, store.Save(ctx, "7_antonyms", session))
	assert.True(t, mr.Exists("quiz_session:7_antonyms"))

	loaded, err := store.Load(ctx, "7_antonyms")
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.WordAttempts["Ancient"])
	assert.True(t, loaded.UsedQuestions["Ancient_2"])

	mr.FastForward(time.Hour + time.Second)
	_, err = store.Load(ctx, "7_antonyms")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, "7_antonyms", session))
	require.NoError(t, store.Delete(ctx, "7_antonyms"))
	assert.False(t, mr.Exists("quiz_session:7_antonyms"))
}
