package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp/internal/backendtest"
	"chirp/internal/cache"
	"chirp/internal/models"
	"chirp/internal/repository"
)

// withMiniredis points the package cache at an in-process Redis for the
// duration of the test. Tests using it share the global client and must not
// run in parallel.
func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.Client = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Client = nil })
	return mr
}

func TestTrendRepositoryTrendingUsesCache(t *testing.T) {
	mr := withMiniredis(t)

	srv := backendtest.NewServer()
	srv.SeedTrend("golang", 12)
	srv.SeedTrend("swift", 5)
	repo := repository.NewTrendRepository(srv.GatewayClient())
	ctx := context.Background()

	trends, err := repo.Trending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, trends, 2)
	assert.Equal(t, "#golang", *trends[0].Title)
	assert.True(t, mr.Exists("trends__top_10"))

	// A backend failure is invisible while the cache holds the entry.
	srv.FailNextWith(500, `{"message":"down"}`)
	trends, err = repo.Trending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, trends, 2)
}

func TestTrendRepositoryUpsertHashtagInvalidatesCache(t *testing.T) {
	mr := withMiniredis(t)

	srv := backendtest.NewServer()
	srv.SeedTrend("golang", 12)
	repo := repository.NewTrendRepository(srv.GatewayClient())
	ctx := context.Background()

	_, err := repo.Trending(ctx, 10)
	require.NoError(t, err)
	require.True(t, mr.Exists("trends__top_10"))

	require.NoError(t, repo.UpsertHashtag(ctx, "newtag"))
	assert.False(t, mr.Exists("trends__top_10"))

	trends, err := repo.Trending(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, trends, 2)
}

func TestTrendRepositoryFilters(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	srv.SeedTrend("golang", 9)
	srv.Store.Insert("trends", backendtest.Row{
		"title":      "Go 2 released",
		"hashtag":    nil,
		"category":   "technology",
		"source_url": "https://example.com/go2",
		"post_count": float64(50),
	}, false)
	repo := repository.NewTrendRepository(srv.GatewayClient())
	ctx := context.Background()

	hashtags, err := repo.Hashtags(ctx, 10)
	require.NoError(t, err)
	require.Len(t, hashtags, 1)
	assert.Equal(t, "golang", *hashtags[0].Hashtag)

	newsTrends, err := repo.NewsTrends(ctx, 10)
	require.NoError(t, err)
	require.Len(t, newsTrends, 1)
	assert.Equal(t, "Go 2 released", *newsTrends[0].Title)

	byCategory, err := repo.ByCategory(ctx, "technology", 10)
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	// Search spans hashtags and news titles.
	found, err := repo.Search(ctx, "go", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestTrendRepositoryIncrementCount(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	trend := srv.SeedTrend("golang", 3)
	repo := repository.NewTrendRepository(srv.GatewayClient())

	require.NoError(t, repo.IncrementCount(context.Background(), trend["id"].(string)))
	assert.Equal(t, float64(4), srv.Store.Get("trends", "id", trend["id"])["post_count"])
}

func TestTrendRepositoryDeleteExpired(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	srv.Store.Insert("trends", backendtest.Row{
		"hashtag":    "stale",
		"expires_at": time.Now().UTC().Add(-time.Hour).Format(time.RFC3339),
	}, false)
	srv.Store.Insert("trends", backendtest.Row{
		"hashtag":    "fresh",
		"expires_at": time.Now().UTC().Add(time.Hour).Format(time.RFC3339),
	}, false)
	repo := repository.NewTrendRepository(srv.GatewayClient())

	require.NoError(t, repo.DeleteExpired(context.Background()))
	assert.Equal(t, 1, srv.Store.Count("trends"))
	assert.NotNil(t, srv.Store.Get("trends", "hashtag", "fresh"))
}

func TestTrendRepositoryReplaceNewsArticles(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	srv.Store.Insert("news_articles", backendtest.Row{"title": "old article"}, false)
	repo := repository.NewTrendRepository(srv.GatewayClient())
	ctx := context.Background()

	published := time.Now().UTC().Add(-time.Hour)
	err := repo.ReplaceNewsArticles(ctx, []models.NewsArticleInsert{
		{Title: "fresh one", SourceName: "BBC News", SourceURL: "https://example.com/1", Category: "world", PublishedAt: &published},
		{Title: "fresh two", SourceName: "The Verge", SourceURL: "https://example.com/2", Category: "technology"},
	})
	require.NoError(t, err)

	articles, err := repo.AllNewsArticles(ctx)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	for _, a := range articles {
		assert.NotEqual(t, "old article", a.Title)
	}

	assert.True(t, models.IsValidation(repo.ReplaceNewsArticles(ctx, nil)))
}
