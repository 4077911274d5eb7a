package feed

import (
	"context"
	"log/slog"
	"sync"

	"chirp/internal/models"
	"chirp/internal/observability"
)

// Variant names an independently paginated feed.
type Variant string

const (
	VariantCurated   Variant = "curated"
	VariantFollowing Variant = "following"
)

// State is the lifecycle of one feed variant.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateExhausted
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateExhausted:
		return "exhausted"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Source produces feed slices. *RankingClient is the production
// implementation.
type Source interface {
	FetchCurated(ctx context.Context, limit, offset int) ([]models.Post, error)
	FetchFallback(ctx context.Context, limit, offset int) ([]models.Post, error)
	FetchFollowing(ctx context.Context, userID string, limit, offset int) ([]models.Post, error)
}

// feedState is the mutable pagination state of one variant.
type feedState struct {
	posts   []models.Post
	offset  int
	hasMore bool
	state   State
	err     error

	// fallback marks a curated scroll session that switched to the general
	// feed after an empty refresh. Ranked and chronological pages are never
	// mixed mid-scroll; the flag resets only on the next refresh.
	fallback bool
}

// Pager maintains per-variant cursors, issues refresh/load-more fetches,
// merges results and detects end of data. One fetch per variant is in
// flight at a time; overlapping calls are ignored. Fetch failures become a
// page-level error state and are never propagated to the caller.
type Pager struct {
	source   Source
	pageSize int
	userID   string

	mu    sync.Mutex
	feeds map[Variant]*feedState

	onChange func(Variant)
	log      *slog.Logger
}

// NewPager returns a Pager for the signed-in user. userID may be empty for
// an anonymous session; the following variant then reports an error state.
func NewPager(source Source, pageSize int, userID string) *Pager {
	return &Pager{
		source:   source,
		pageSize: pageSize,
		userID:   userID,
		feeds:    make(map[Variant]*feedState),
		log:      observability.NewLogger("feed.pager"),
	}
}

// SetOnChange installs the observer invoked after each state transition.
func (p *Pager) SetOnChange(fn func(Variant)) {
	p.onChange = fn
}

// feed returns the state record for v, creating it lazily. Callers hold p.mu.
func (p *Pager) feed(v Variant) *feedState {
	st, ok := p.feeds[v]
	if !ok {
		st = &feedState{state: StateIdle, hasMore: true}
		p.feeds[v] = st
	}
	return st
}

func (p *Pager) notify(v Variant) {
	if p.onChange != nil {
		p.onChange(v)
	}
}

// Refresh resets the variant's cursor and replaces the page list with the
// first slice. A refresh while a fetch is in flight is ignored.
func (p *Pager) Refresh(ctx context.Context, v Variant) {
	p.mu.Lock()
	st := p.feed(v)
	if st.state == StateLoading {
		p.mu.Unlock()
		return
	}
	st.state = StateLoading
	st.err = nil
	p.mu.Unlock()
	p.notify(v)

	posts, usedFallback, err := p.fetchFirst(ctx, v)

	p.mu.Lock()
	if err != nil {
		st.state = StateError
		st.err = err
		p.mu.Unlock()
		observability.FeedFetchesTotal.WithLabelValues(string(v), "error").Inc()
		p.log.WarnContext(ctx, "feed refresh failed", "variant", v, "err", err)
		p.notify(v)
		return
	}
	st.posts = posts
	st.offset = len(posts)
	st.hasMore = len(posts) == p.pageSize
	st.fallback = usedFallback
	if st.hasMore {
		st.state = StateLoaded
	} else {
		st.state = StateExhausted
	}
	p.mu.Unlock()

	result := "ok"
	if usedFallback {
		result = "fallback"
	}
	observability.FeedFetchesTotal.WithLabelValues(string(v), result).Inc()
	p.notify(v)
}

// LoadMore appends the next slice at the current cursor. It is a no-op while
// a fetch is in flight or after the feed is exhausted; after an error it may
// be called again to retry.
func (p *Pager) LoadMore(ctx context.Context, v Variant) {
	p.mu.Lock()
	st := p.feed(v)
	if st.state == StateLoading || st.state == StateExhausted || !st.hasMore {
		p.mu.Unlock()
		return
	}
	offset := st.offset
	fallback := st.fallback
	st.state = StateLoading
	st.err = nil
	p.mu.Unlock()
	p.notify(v)

	posts, err := p.fetchAt(ctx, v, offset, fallback)

	p.mu.Lock()
	if err != nil {
		st.state = StateError
		st.err = err
		p.mu.Unlock()
		observability.FeedFetchesTotal.WithLabelValues(string(v), "error").Inc()
		p.log.WarnContext(ctx, "feed load-more failed", "variant", v, "err", err)
		p.notify(v)
		return
	}
	st.posts = append(st.posts, posts...)
	st.offset += len(posts)
	st.hasMore = len(posts) == p.pageSize
	if st.hasMore {
		st.state = StateLoaded
	} else {
		st.state = StateExhausted
	}
	p.mu.Unlock()
	observability.FeedFetchesTotal.WithLabelValues(string(v), "ok").Inc()
	p.notify(v)
}

// fetchFirst loads page zero, applying the curated-to-general fallback when
// the ranked feed has nothing. The fallback decision is made only here: a
// short-but-non-empty ranked page never triggers it.
func (p *Pager) fetchFirst(ctx context.Context, v Variant) ([]models.Post, bool, error) {
	switch v {
	case VariantFollowing:
		posts, err := p.source.FetchFollowing(ctx, p.userID, p.pageSize, 0)
		return posts, false, err
	default:
		posts, err := p.source.FetchCurated(ctx, p.pageSize, 0)
		if err != nil {
			return nil, false, err
		}
		if len(posts) > 0 {
			return posts, false, nil
		}
		posts, err = p.source.FetchFallback(ctx, p.pageSize, 0)
		return posts, true, err
	}
}

func (p *Pager) fetchAt(ctx context.Context, v Variant, offset int, fallback bool) ([]models.Post, error) {
	switch {
	case v == VariantFollowing:
		return p.source.FetchFollowing(ctx, p.userID, p.pageSize, offset)
	case fallback:
		return p.source.FetchFallback(ctx, p.pageSize, offset)
	default:
		return p.source.FetchCurated(ctx, p.pageSize, offset)
	}
}

// Posts returns a copy of the variant's current page list.
func (p *Pager) Posts(v Variant) []models.Post {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.feed(v)
	out := make([]models.Post, len(st.posts))
	copy(out, st.posts)
	return out
}

// State returns the variant's current lifecycle state.
func (p *Pager) State(v Variant) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feed(v).state
}

// Err returns the variant's page-level error, nil outside StateError.
func (p *Pager) Err(v Variant) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feed(v).err
}

// HasMore reports whether another LoadMore can yield data.
func (p *Pager) HasMore(v Variant) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feed(v).hasMore
}

// UsingFallback reports whether the curated variant switched to the general
// feed on its last refresh.
func (p *Pager) UsingFallback(v Variant) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.feed(v).fallback
}

// Prepend inserts a freshly composed post at the top of every variant, the
// way the source feeds show the author's own new post immediately.
func (p *Pager) Prepend(post models.Post) {
	p.mu.Lock()
	for _, st := range p.feeds {
		st.posts = append([]models.Post{post}, st.posts...)
		st.offset++
	}
	p.mu.Unlock()
	p.notifyAll()
}

// Remove drops a deleted post from every variant.
func (p *Pager) Remove(postID string) {
	p.mu.Lock()
	for _, st := range p.feeds {
		kept := st.posts[:0]
		for _, post := range st.posts {
			if post.ID != postID {
				kept = append(kept, post)
			}
		}
		st.posts = kept
	}
	p.mu.Unlock()
	p.notifyAll()
}

// AdjustCounter applies an optimistic counter delta to the post everywhere
// it is currently displayed. Counts never go below zero. Follow deltas are
// ignored here: follower counts live on profiles, and the pager holds no
// profile rows to adjust.
func (p *Pager) AdjustCounter(targetID string, rel models.Relation, delta int) {
	p.mu.Lock()
	for _, st := range p.feeds {
		for i := range st.posts {
			if st.posts[i].ID != targetID {
				continue
			}
			switch rel {
			case models.RelationLike:
				st.posts[i].LikeCount = max(0, st.posts[i].LikeCount+delta)
			case models.RelationRepost:
				st.posts[i].RepostCount = max(0, st.posts[i].RepostCount+delta)
			}
		}
	}
	p.mu.Unlock()
	p.notifyAll()
}

func (p *Pager) notifyAll() {
	if p.onChange == nil {
		return
	}
	p.mu.Lock()
	variants := make([]Variant, 0, len(p.feeds))
	for v := range p.feeds {
		variants = append(variants, v)
	}
	p.mu.Unlock()
	for _, v := range variants {
		p.onChange(v)
	}
}
