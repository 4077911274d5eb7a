// Package news pulls articles from RSS sources and feeds them into the
// explore surface.
package news

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"chirp/internal/models"
	"chirp/internal/observability"
	"chirp/internal/repository"
)

// maxArticles caps how many articles one refresh keeps, newest first.
const maxArticles = 30

// Fetcher pulls articles from RSS sources concurrently and caches the
// merged result in memory between refreshes.
type Fetcher struct {
	sources []Source
	parser  *gofeed.Parser
	ttl     time.Duration
	log     *slog.Logger

	mu        sync.Mutex
	cached    []models.NewsArticleInsert
	fetchedAt time.Time
}

// NewFetcher creates a fetcher over the given sources. A zero ttl disables
// the in-memory cache.
func NewFetcher(sources []Source, ttl time.Duration) *Fetcher {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return &Fetcher{
		sources: sources,
		parser:  gofeed.NewParser(),
		ttl:     ttl,
		log:     observability.NewLogger("news"),
	}
}

// Fetch returns the current article set, refreshing from the sources when
// the cached copy has expired. A source that fails is skipped; the refresh
// only errors when every source fails.
func (f *Fetcher) Fetch(ctx context.Context) ([]models.NewsArticleInsert, error) {
	f.mu.Lock()
	if f.cached != nil && time.Since(f.fetchedAt) < f.ttl {
		cached := f.cached
		f.mu.Unlock()
		return cached, nil
	}
	f.mu.Unlock()

	articles := f.fetchAll(ctx)
	if len(articles) == 0 {
		return nil, &models.AppError{Code: models.CodeNetwork, Message: "all news sources failed"}
	}

	sort.Slice(articles, func(i, j int) bool {
		ti, tj := articles[i].PublishedAt, articles[j].PublishedAt
		if ti == nil || tj == nil {
			return tj == nil && ti != nil
		}
		return ti.After(*tj)
	})
	if len(articles) > maxArticles {
		articles = articles[:maxArticles]
	}

	f.mu.Lock()
	f.cached = articles
	f.fetchedAt = time.Now()
	f.mu.Unlock()
	return articles, nil
}

func (f *Fetcher) fetchAll(ctx context.Context) []models.NewsArticleInsert {
	var (
		mu       sync.Mutex
		articles []models.NewsArticleInsert
		wg       sync.WaitGroup
	)
	for _, src := range f.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			feed, err := f.parser.ParseURLWithContext(src.FeedURL, ctx)
			if err != nil {
				f.log.Warn("news source fetch failed", "source", src.Name, "error", err)
				observability.NewsFetchesTotal.WithLabelValues(src.Name, "error").Inc()
				return
			}
			observability.NewsFetchesTotal.WithLabelValues(src.Name, "ok").Inc()
			converted := convertItems(src, feed.Items)
			mu.Lock()
			articles = append(articles, converted...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()
	return articles
}

func convertItems(src Source, items []*gofeed.Item) []models.NewsArticleInsert {
	out := make([]models.NewsArticleInsert, 0, len(items))
	for _, item := range items {
		if item == nil || item.Title == "" || item.Link == "" {
			continue
		}
		article := models.NewsArticleInsert{
			Title:       item.Title,
			SourceName:  src.Name,
			SourceURL:   item.Link,
			Category:    src.Category,
			PublishedAt: item.PublishedParsed,
		}
		if item.Description != "" {
			desc := item.Description
			article.Description = &desc
		}
		if item.Image != nil && item.Image.URL != "" {
			img := item.Image.URL
			article.ImageURL = &img
		}
		out = append(out, article)
	}
	return out
}

// Sync refreshes the article set and replaces the stored copy so every
// client sees the same explore content.
func (f *Fetcher) Sync(ctx context.Context, trends repository.TrendRepository) error {
	articles, err := f.Fetch(ctx)
	if err != nil {
		return err
	}
	return trends.ReplaceNewsArticles(ctx, articles)
}
