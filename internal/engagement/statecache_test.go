package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chirp/internal/models"
)

func TestStateCacheGetSet(t *testing.T) {
	t.Parallel()

	cache := NewStateCache()

	_, ok := cache.Get("a", "p", models.RelationLike)
	assert.False(t, ok)

	cache.Set("a", "p", models.RelationLike, true)
	value, ok := cache.Get("a", "p", models.RelationLike)
	assert.True(t, ok)
	assert.True(t, value)

	// Relations are independent dimensions of the key.
	_, ok = cache.Get("a", "p", models.RelationRepost)
	assert.False(t, ok)

	cache.Set("a", "p", models.RelationLike, false)
	value, ok = cache.Get("a", "p", models.RelationLike)
	assert.True(t, ok)
	assert.False(t, value)
}

func TestStateCacheForget(t *testing.T) {
	t.Parallel()

	cache := NewStateCache()
	cache.Set("a", "p1", models.RelationLike, true)
	cache.Set("a", "p1", models.RelationRepost, true)
	cache.Set("a", "p2", models.RelationLike, true)

	cache.Forget("p1")

	_, ok := cache.Get("a", "p1", models.RelationLike)
	assert.False(t, ok)
	_, ok = cache.Get("a", "p1", models.RelationRepost)
	assert.False(t, ok)
	_, ok = cache.Get("a", "p2", models.RelationLike)
	assert.True(t, ok)
}
