package engagement

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"chirp/internal/models"
	"chirp/internal/observability"
)

// ErrToggleInFlight is returned when a toggle for the same (target, relation)
// has not yet resolved; the caller should ignore the tap.
var ErrToggleInFlight = errors.New("toggle already in flight")

// Edges is the persistence surface for interaction edges.
type Edges interface {
	Create(ctx context.Context, rel models.Relation, actorID, targetID string) error
	Remove(ctx context.Context, rel models.Relation, actorID, targetID string) error
	Exists(ctx context.Context, rel models.Relation, actorID, targetID string) (bool, error)
}

// ViewRecorder dispatches view-recording calls; the server deduplicates.
type ViewRecorder interface {
	RecordView(ctx context.Context, postID, userID string) error
}

// Notifier delivers the notification side effects of edge changes. Both
// calls are non-critical: the coordinator awaits them only to log failures
// and never reverts the primary action when they fail.
type Notifier interface {
	EdgeCreated(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error
	EdgeRemoved(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error
}

// CounterSink receives optimistic counter deltas for locally displayed
// posts. *feed.Pager implements it; a sink may drop deltas for relations
// it has no display surface for (the pager shows posts, so follow deltas
// fall through).
type CounterSink interface {
	AdjustCounter(targetID string, rel models.Relation, delta int)
}

// ToggleInput identifies one toggle.
type ToggleInput struct {
	Relation models.Relation
	ActorID  string
	// TargetID is the post for like/repost, the profile for follow.
	TargetID string
	// OwnerID is the notification recipient: the post's author for
	// like/repost, equal to TargetID for follow.
	OwnerID string
}

func (in ToggleInput) validate() error {
	if in.Relation.Table() == "" {
		return models.NewValidationError("unknown relation")
	}
	if in.ActorID == "" || in.TargetID == "" {
		return models.NewValidationError("actor and target are required")
	}
	return nil
}

// Coordinator owns optimistic engagement mutations. Local state is flipped
// before the backend write and restored exactly when the write fails, so the
// visible state never drifts from the server's last known-good state.
type Coordinator struct {
	edges    Edges
	views    ViewRecorder
	notifier Notifier
	cache    *StateCache
	counters CounterSink

	mu       sync.Mutex
	inflight map[string]bool
	viewed   map[string]bool

	log *slog.Logger
}

// NewCoordinator builds a Coordinator. notifier and counters may be nil.
func NewCoordinator(edges Edges, views ViewRecorder, notifier Notifier, cache *StateCache, counters CounterSink) *Coordinator {
	return &Coordinator{
		edges:    edges,
		views:    views,
		notifier: notifier,
		cache:    cache,
		counters: counters,
		inflight: make(map[string]bool),
		viewed:   make(map[string]bool),
		log:      observability.NewLogger("engagement"),
	}
}

// Cache exposes the interaction state cache.
func (co *Coordinator) Cache() *StateCache {
	return co.cache
}

// Toggle flips the edge for in and returns the resulting state. The flip and
// counter delta are applied before the backend call; a failed call restores
// both. A duplicate-insert conflict from a double-tap race is treated as
// already applied, not as a failure.
func (co *Coordinator) Toggle(ctx context.Context, in ToggleInput) (bool, error) {
	if err := in.validate(); err != nil {
		return false, err
	}

	key := string(in.Relation) + "|" + in.TargetID
	co.mu.Lock()
	if co.inflight[key] {
		co.mu.Unlock()
		current, _ := co.cache.Get(in.ActorID, in.TargetID, in.Relation)
		return current, ErrToggleInFlight
	}
	co.inflight[key] = true
	co.mu.Unlock()

	// The flag must clear on every path, including panics in the gateway.
	defer func() {
		co.mu.Lock()
		delete(co.inflight, key)
		co.mu.Unlock()
	}()

	prior, _ := co.cache.Get(in.ActorID, in.TargetID, in.Relation)
	next := !prior

	// Optimistic: flip state and counter before any network traffic.
	co.cache.Set(in.ActorID, in.TargetID, in.Relation, next)
	co.adjust(in, next)

	var err error
	if next {
		err = co.edges.Create(ctx, in.Relation, in.ActorID, in.TargetID)
		if models.IsConflict(err) {
			// Double-tap race: the edge already exists, which is the state
			// we were establishing.
			err = nil
		}
	} else {
		err = co.edges.Remove(ctx, in.Relation, in.ActorID, in.TargetID)
	}

	if err != nil {
		// Exact inverse of the optimistic step.
		co.cache.Set(in.ActorID, in.TargetID, in.Relation, prior)
		co.adjust(in, prior)
		observability.EngagementTogglesTotal.WithLabelValues(string(in.Relation), "reverted").Inc()
		return prior, err
	}

	co.notifyEdge(ctx, in, next)
	observability.EngagementTogglesTotal.WithLabelValues(string(in.Relation), "ok").Inc()
	return next, nil
}

// adjust applies the counter value implied by state: +1 entering it, -1
// leaving it. Calling it with the same input and both states is an exact
// round trip.
func (co *Coordinator) adjust(in ToggleInput, state bool) {
	if co.counters == nil {
		return
	}
	delta := -1
	if state {
		delta = 1
	}
	co.counters.AdjustCounter(in.TargetID, in.Relation, delta)
}

func (co *Coordinator) notifyEdge(ctx context.Context, in ToggleInput, created bool) {
	if co.notifier == nil || in.OwnerID == "" {
		return
	}
	var postID *string
	if in.Relation != models.RelationFollow {
		id := in.TargetID
		postID = &id
	}
	var err error
	if created {
		err = co.notifier.EdgeCreated(ctx, in.Relation, in.ActorID, in.OwnerID, postID)
	} else {
		err = co.notifier.EdgeRemoved(ctx, in.Relation, in.ActorID, in.OwnerID, postID)
	}
	if err != nil {
		// Notification delivery is non-critical and never rolls back the
		// primary action.
		co.log.WarnContext(ctx, "notification side effect failed",
			"relation", in.Relation, "target", in.TargetID, "err", err)
	}
}

// RecordView dispatches at most one view-recording call per (post, user) for
// the life of this coordinator. The guard is set before the call is issued,
// so a second trigger during a slow call cannot double-fire. No local
// counter is adjusted; the server is the deduplication authority and the
// outcome is unknown in advance.
func (co *Coordinator) RecordView(ctx context.Context, postID, userID string) {
	if postID == "" || userID == "" {
		return
	}
	key := postID + "|" + userID
	co.mu.Lock()
	if co.viewed[key] {
		co.mu.Unlock()
		return
	}
	co.viewed[key] = true
	co.mu.Unlock()

	if err := co.views.RecordView(ctx, postID, userID); err != nil {
		// Best-effort telemetry; the flag stays set so a flaky link cannot
		// double count within the session.
		co.log.WarnContext(ctx, "view recording failed", "post", postID, "err", err)
	}
}

// HasInteracted answers whether the edge exists, seeding the state cache on
// first render. Lookup failures read as false: display fails open, writes do
// not depend on this path.
func (co *Coordinator) HasInteracted(ctx context.Context, rel models.Relation, actorID, targetID string) bool {
	if cached, ok := co.cache.Get(actorID, targetID, rel); ok {
		return cached
	}
	exists, err := co.edges.Exists(ctx, rel, actorID, targetID)
	if err != nil {
		co.log.WarnContext(ctx, "interaction lookup failed",
			"relation", rel, "target", targetID, "err", err)
		return false
	}
	co.cache.Set(actorID, targetID, rel, exists)
	return exists
}
