package news

// Source is one RSS feed the news fetcher pulls from.
type Source struct {
	Name     string
	FeedURL  string
	Category string
}

// DefaultSources are the feeds polled when no custom set is configured.
var DefaultSources = []Source{
	{Name: "BBC News", FeedURL: "https://feeds.bbci.co.uk/news/rss.xml", Category: "world"},
	{Name: "BBC Technology", FeedURL: "https://feeds.bbci.co.uk/news/technology/rss.xml", Category: "technology"},
	{Name: "NPR News", FeedURL: "https://feeds.npr.org/1001/rss.xml", Category: "world"},
	{Name: "The Verge", FeedURL: "https://www.theverge.com/rss/index.xml", Category: "technology"},
	{Name: "ESPN", FeedURL: "https://www.espn.com/espn/rss/news", Category: "sports"},
	{Name: "Variety", FeedURL: "https://variety.com/feed/", Category: "entertainment"},
}
