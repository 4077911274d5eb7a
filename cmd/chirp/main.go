// Command chirp is a terminal client runner: it loads configuration, wires
// the gateway and feed stack against the configured backend, and prints the
// first curated feed page and current trends.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"chirp/internal/cache"
	"chirp/internal/config"
	"chirp/internal/feed"
	"chirp/internal/gateway"
	"chirp/internal/news"
	"chirp/internal/observability"
	"chirp/internal/repository"
)

func main() {
	userID := flag.String("user", "", "user id for the following feed")
	syncNews := flag.Bool("sync-news", false, "refresh news articles from RSS sources before printing")
	flag.Parse()

	cfg := config.LoadConfig()

	shutdown, err := observability.InitTracing(observability.TracingConfig{
		ServiceName: "chirp",
		Enabled:     cfg.TracingEnabled,
	})
	if err != nil {
		log.Fatalf("init tracing: %v", err)
	}
	defer shutdown(context.Background())

	cache.InitRedis(cfg.RedisURL)

	gw := gateway.NewClient(gateway.ClientConfig{
		BaseURL: cfg.SupabaseURL,
		AnonKey: cfg.SupabaseAnonKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	trends := repository.NewTrendRepository(gw)
	if *syncNews {
		fetcher := news.NewFetcher(nil, time.Duration(cfg.NewsCacheTTLMin)*time.Minute)
		if err := fetcher.Sync(ctx, trends); err != nil {
			log.Printf("news sync failed: %v", err)
		}
	}

	ranking := feed.NewRankingClient(gw)
	pager := feed.NewPager(ranking, cfg.PageSize, *userID)
	pager.Refresh(ctx, feed.VariantCurated)
	if err := pager.Err(feed.VariantCurated); err != nil {
		log.Fatalf("refresh curated feed: %v", err)
	}

	fmt.Println("== Curated feed ==")
	if pager.UsingFallback(feed.VariantCurated) {
		fmt.Println("(ranking unavailable, showing recent posts)")
	}
	for _, post := range pager.Posts(feed.VariantCurated) {
		fmt.Printf("@%s: %s  [♥ %d  ↻ %d]\n",
			post.AuthorUsername(), post.Content, post.LikeCount, post.RepostCount)
	}

	trending, err := trends.Trending(ctx, 10)
	if err != nil {
		log.Fatalf("fetch trends: %v", err)
	}
	fmt.Println("== Trending ==")
	for _, t := range trending {
		title := ""
		if t.Title != nil {
			title = *t.Title
		}
		fmt.Printf("%s (%d posts)\n", title, t.PostCount)
	}
}
