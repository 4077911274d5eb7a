package repository

import (
	"context"
	"fmt"
	"time"

	"chirp/internal/cache"
	"chirp/internal/gateway"
	"chirp/internal/models"
)

const trendsCacheTTL = 5 * time.Minute

// TrendRepository defines trend and news-article data operations.
type TrendRepository interface {
	Trending(ctx context.Context, limit int) ([]models.Trend, error)
	ByCategory(ctx context.Context, category string, limit int) ([]models.Trend, error)
	Hashtags(ctx context.Context, limit int) ([]models.Trend, error)
	NewsTrends(ctx context.Context, limit int) ([]models.Trend, error)
	Search(ctx context.Context, query string, limit int) ([]models.Trend, error)
	// UpsertHashtag bumps the trend row for a hashtag, creating it when new.
	UpsertHashtag(ctx context.Context, tag string) error
	IncrementCount(ctx context.Context, trendID string) error
	// DeleteExpired removes trends past their expiry timestamp.
	DeleteExpired(ctx context.Context) error

	NewsArticles(ctx context.Context, limit int) ([]models.NewsArticle, error)
	AllNewsArticles(ctx context.Context) ([]models.NewsArticle, error)
	// ReplaceNewsArticles swaps the stored article set for a fresh fetch.
	ReplaceNewsArticles(ctx context.Context, articles []models.NewsArticleInsert) error
}

type trendRepository struct {
	gw gateway.Gateway
}

// NewTrendRepository creates a new trend repository.
func NewTrendRepository(gw gateway.Gateway) TrendRepository {
	return &trendRepository{gw: gw}
}

func (r *trendRepository) Trending(ctx context.Context, limit int) ([]models.Trend, error) {
	var trends []models.Trend
	key := cache.TrendsKey(fmt.Sprintf("top_%d", limit))
	err := cache.CacheAside(ctx, key, &trends, trendsCacheTTL, func() error {
		fetched, err := r.fetchTrends(ctx, nil, limit)
		if err != nil {
			return err
		}
		trends = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trends, nil
}

func (r *trendRepository) ByCategory(ctx context.Context, category string, limit int) ([]models.Trend, error) {
	if category == "" {
		return nil, models.NewValidationError("category is required")
	}
	return r.fetchTrends(ctx, []gateway.Filter{gateway.Eq("category", category)}, limit)
}

func (r *trendRepository) Hashtags(ctx context.Context, limit int) ([]models.Trend, error) {
	return r.fetchTrends(ctx, []gateway.Filter{gateway.NotNull("hashtag")}, limit)
}

func (r *trendRepository) NewsTrends(ctx context.Context, limit int) ([]models.Trend, error) {
	return r.fetchTrends(ctx, []gateway.Filter{gateway.NotNull("source_url")}, limit)
}

func (r *trendRepository) Search(ctx context.Context, query string, limit int) ([]models.Trend, error) {
	if query == "" {
		return nil, models.NewValidationError("search query is required")
	}
	filters := []gateway.Filter{gateway.Or(
		fmt.Sprintf("hashtag.ilike.%%%s%%", query),
		fmt.Sprintf("title.ilike.%%%s%%", query),
	)}
	return r.fetchTrends(ctx, filters, limit)
}

func (r *trendRepository) fetchTrends(ctx context.Context, filters []gateway.Filter, limit int) ([]models.Trend, error) {
	var trends []models.Trend
	q := gateway.Query{
		Table:      "trends",
		Filters:    filters,
		OrderBy:    "post_count",
		Descending: true,
		Limit:      limit,
	}
	if err := r.gw.Select(ctx, q, &trends); err != nil {
		return nil, err
	}
	return trends, nil
}

func (r *trendRepository) UpsertHashtag(ctx context.Context, tag string) error {
	if tag == "" {
		return models.NewValidationError("hashtag is required")
	}
	title := "#" + tag
	category := "hashtag"
	insert := models.TrendInsert{
		Title:      &title,
		Hashtag:    &tag,
		Category:   &category,
		PostCount:  1,
		IsTrending: true,
	}
	if err := r.gw.Upsert(ctx, "trends", insert, "hashtag"); err != nil {
		return err
	}
	cache.InvalidatePrefix(ctx, cache.TrendsKeyPrefix)
	return nil
}

type incrementTrendParams struct {
	TrendID string `json:"trend_id"`
}

func (r *trendRepository) IncrementCount(ctx context.Context, trendID string) error {
	if trendID == "" {
		return models.NewValidationError("trend id is required")
	}
	if err := r.gw.Call(ctx, "increment_trend_count", incrementTrendParams{TrendID: trendID}, nil); err != nil {
		return err
	}
	cache.InvalidatePrefix(ctx, cache.TrendsKeyPrefix)
	return nil
}

func (r *trendRepository) DeleteExpired(ctx context.Context) error {
	cutoff := time.Now().UTC().Format(time.RFC3339)
	err := r.gw.Delete(ctx, "trends", []gateway.Filter{gateway.Lt("expires_at", cutoff)})
	if err != nil {
		return err
	}
	cache.InvalidatePrefix(ctx, cache.TrendsKeyPrefix)
	return nil
}

func (r *trendRepository) NewsArticles(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	var articles []models.NewsArticle
	key := cache.NewsArticlesKey(fmt.Sprintf("latest_%d", limit))
	err := cache.CacheAside(ctx, key, &articles, trendsCacheTTL, func() error {
		fetched, err := r.fetchNews(ctx, limit)
		if err != nil {
			return err
		}
		articles = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *trendRepository) AllNewsArticles(ctx context.Context) ([]models.NewsArticle, error) {
	return r.fetchNews(ctx, 0)
}

func (r *trendRepository) fetchNews(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	var articles []models.NewsArticle
	q := gateway.Query{
		Table:      "news_articles",
		OrderBy:    "published_at",
		Descending: true,
		Limit:      limit,
	}
	if err := r.gw.Select(ctx, q, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (r *trendRepository) ReplaceNewsArticles(ctx context.Context, articles []models.NewsArticleInsert) error {
	if len(articles) == 0 {
		return models.NewValidationError("no articles to store")
	}
	// Clear the previous fetch; article ids are not stable across feeds.
	if err := r.gw.Delete(ctx, "news_articles", []gateway.Filter{gateway.NotNull("id")}); err != nil {
		return err
	}
	if err := r.gw.Insert(ctx, "news_articles", articles, nil); err != nil {
		return err
	}
	cache.InvalidatePrefix(ctx, cache.NewsArticlesKeyPrefix)
	return nil
}
