package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp/internal/models"
)

type edgesStub struct {
	createFn func(ctx context.Context, rel models.Relation, actorID, targetID string) error
	removeFn func(ctx context.Context, rel models.Relation, actorID, targetID string) error
	existsFn func(ctx context.Context, rel models.Relation, actorID, targetID string) (bool, error)
}

func (s *edgesStub) Create(ctx context.Context, rel models.Relation, actorID, targetID string) error {
	return s.createFn(ctx, rel, actorID, targetID)
}
func (s *edgesStub) Remove(ctx context.Context, rel models.Relation, actorID, targetID string) error {
	return s.removeFn(ctx, rel, actorID, targetID)
}
func (s *edgesStub) Exists(ctx context.Context, rel models.Relation, actorID, targetID string) (bool, error) {
	return s.existsFn(ctx, rel, actorID, targetID)
}

func noopEdges() *edgesStub {
	return &edgesStub{
		createFn: func(context.Context, models.Relation, string, string) error { return nil },
		removeFn: func(context.Context, models.Relation, string, string) error { return nil },
		existsFn: func(context.Context, models.Relation, string, string) (bool, error) {
			return false, nil
		},
	}
}

type viewsStub struct {
	recordViewFn func(ctx context.Context, postID, userID string) error
}

func (s *viewsStub) RecordView(ctx context.Context, postID, userID string) error {
	return s.recordViewFn(ctx, postID, userID)
}

type notifierStub struct {
	createdFn func(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error
	removedFn func(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error
}

func (s *notifierStub) EdgeCreated(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error {
	return s.createdFn(ctx, rel, actorID, recipientID, postID)
}
func (s *notifierStub) EdgeRemoved(ctx context.Context, rel models.Relation, actorID, recipientID string, postID *string) error {
	return s.removedFn(ctx, rel, actorID, recipientID, postID)
}

// counterLog records deltas in order, protected for concurrent toggles.
type counterLog struct {
	mu     sync.Mutex
	deltas []int
}

func (c *counterLog) AdjustCounter(targetID string, rel models.Relation, delta int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deltas = append(c.deltas, delta)
}

func (c *counterLog) sum() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, d := range c.deltas {
		total += d
	}
	return total
}

func likeInput() ToggleInput {
	return ToggleInput{
		Relation: models.RelationLike,
		ActorID:  "actor-1",
		TargetID: "post-1",
		OwnerID:  "owner-1",
	}
}

func TestToggleCreatesThenRemoves(t *testing.T) {
	t.Parallel()

	var created, removed int
	edges := &edgesStub{
		createFn: func(_ context.Context, rel models.Relation, actorID, targetID string) error {
			created++
			assert.Equal(t, models.RelationLike, rel)
			assert.Equal(t, "actor-1", actorID)
			assert.Equal(t, "post-1", targetID)
			return nil
		},
		removeFn: func(context.Context, models.Relation, string, string) error {
			removed++
			return nil
		},
	}
	counters := &counterLog{}
	co := NewCoordinator(edges, nil, nil, NewStateCache(), counters)

	state, err := co.Toggle(context.Background(), likeInput())
	require.NoError(t, err)
	assert.True(t, state)

	state, err = co.Toggle(context.Background(), likeInput())
	require.NoError(t, err)
	assert.False(t, state)

	assert.Equal(t, 1, created)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []int{1, -1}, counters.deltas)
	assert.Equal(t, 0, counters.sum())
}

func TestToggleRevertsOnFailure(t *testing.T) {
	t.Parallel()

	edges := noopEdges()
	edges.createFn = func(context.Context, models.Relation, string, string) error {
		return models.NewNetworkError(errors.New("connection reset"))
	}
	counters := &counterLog{}
	cache := NewStateCache()
	co := NewCoordinator(edges, nil, nil, cache, counters)

	state, err := co.Toggle(context.Background(), likeInput())
	require.Error(t, err)
	assert.False(t, state)

	// The optimistic flip and counter bump are both undone exactly.
	cached, ok := cache.Get("actor-1", "post-1", models.RelationLike)
	assert.True(t, ok)
	assert.False(t, cached)
	assert.Equal(t, []int{1, -1}, counters.deltas)

	// The in-flight flag cleared: the retry goes through.
	edges.createFn = func(context.Context, models.Relation, string, string) error { return nil }
	state, err = co.Toggle(context.Background(), likeInput())
	require.NoError(t, err)
	assert.True(t, state)
}

func TestToggleConflictIsAlreadyApplied(t *testing.T) {
	t.Parallel()

	edges := noopEdges()
	edges.createFn = func(context.Context, models.Relation, string, string) error {
		return models.NewConflictError("row already exists")
	}
	counters := &counterLog{}
	cache := NewStateCache()
	co := NewCoordinator(edges, nil, nil, cache, counters)

	state, err := co.Toggle(context.Background(), likeInput())
	require.NoError(t, err)
	assert.True(t, state)

	cached, _ := cache.Get("actor-1", "post-1", models.RelationLike)
	assert.True(t, cached)
	// No revert: the single +1 stands.
	assert.Equal(t, []int{1}, counters.deltas)
}

func TestToggleRejectsWhileInFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	edges := noopEdges()
	edges.createFn = func(_ context.Context, _ models.Relation, _, targetID string) error {
		if targetID == "post-1" {
			close(started)
			<-release
		}
		return nil
	}
	co := NewCoordinator(edges, nil, nil, NewStateCache(), nil)

	done := make(chan struct{})
	go func() {
		_, err := co.Toggle(context.Background(), likeInput())
		assert.NoError(t, err)
		close(done)
	}()
	<-started

	_, err := co.Toggle(context.Background(), likeInput())
	assert.ErrorIs(t, err, ErrToggleInFlight)

	// A different target is not blocked.
	other := likeInput()
	other.TargetID = "post-2"
	_, err = co.Toggle(context.Background(), other)
	assert.NoError(t, err)

	close(release)
	<-done
}

func TestToggleNotifications(t *testing.T) {
	t.Parallel()

	t.Run("like notifies the post owner with the post id", func(t *testing.T) {
		t.Parallel()
		var gotPost *string
		var gotRecipient string
		notifier := &notifierStub{
			createdFn: func(_ context.Context, _ models.Relation, _, recipientID string, postID *string) error {
				gotRecipient = recipientID
				gotPost = postID
				return nil
			},
			removedFn: func(context.Context, models.Relation, string, string, *string) error {
				return nil
			},
		}
		co := NewCoordinator(noopEdges(), nil, notifier, NewStateCache(), nil)

		_, err := co.Toggle(context.Background(), likeInput())
		require.NoError(t, err)
		assert.Equal(t, "owner-1", gotRecipient)
		require.NotNil(t, gotPost)
		assert.Equal(t, "post-1", *gotPost)
	})

	t.Run("follow carries no post id", func(t *testing.T) {
		t.Parallel()
		var gotPost *string
		notifier := &notifierStub{
			createdFn: func(_ context.Context, _ models.Relation, _, _ string, postID *string) error {
				gotPost = postID
				return nil
			},
			removedFn: func(context.Context, models.Relation, string, string, *string) error {
				return nil
			},
		}
		co := NewCoordinator(noopEdges(), nil, notifier, NewStateCache(), nil)

		_, err := co.Toggle(context.Background(), ToggleInput{
			Relation: models.RelationFollow,
			ActorID:  "actor-1",
			TargetID: "profile-2",
			OwnerID:  "profile-2",
		})
		require.NoError(t, err)
		assert.Nil(t, gotPost)
	})

	t.Run("notification failure does not revert the toggle", func(t *testing.T) {
		t.Parallel()
		notifier := &notifierStub{
			createdFn: func(context.Context, models.Relation, string, string, *string) error {
				return errors.New("notification service down")
			},
			removedFn: func(context.Context, models.Relation, string, string, *string) error {
				return nil
			},
		}
		cache := NewStateCache()
		co := NewCoordinator(noopEdges(), nil, notifier, cache, nil)

		state, err := co.Toggle(context.Background(), likeInput())
		require.NoError(t, err)
		assert.True(t, state)
		cached, _ := cache.Get("actor-1", "post-1", models.RelationLike)
		assert.True(t, cached)
	})
}

func TestToggleValidation(t *testing.T) {
	t.Parallel()

	co := NewCoordinator(noopEdges(), nil, nil, NewStateCache(), nil)

	_, err := co.Toggle(context.Background(), ToggleInput{Relation: "bookmark", ActorID: "a", TargetID: "t"})
	assert.True(t, models.IsValidation(err))

	_, err = co.Toggle(context.Background(), ToggleInput{Relation: models.RelationLike})
	assert.True(t, models.IsValidation(err))
}

func TestRecordViewDispatchesOnce(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0
	views := &viewsStub{
		recordViewFn: func(_ context.Context, postID, userID string) error {
			mu.Lock()
			calls++
			mu.Unlock()
			return nil
		},
	}
	co := NewCoordinator(noopEdges(), views, nil, NewStateCache(), nil)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			co.RecordView(context.Background(), "post-1", "user-1")
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestRecordViewFailureKeepsGuard(t *testing.T) {
	t.Parallel()

	calls := 0
	views := &viewsStub{
		recordViewFn: func(context.Context, string, string) error {
			calls++
			return models.NewNetworkError(errors.New("timeout"))
		},
	}
	co := NewCoordinator(noopEdges(), views, nil, NewStateCache(), nil)

	co.RecordView(context.Background(), "post-1", "user-1")
	co.RecordView(context.Background(), "post-1", "user-1")

	// The failed call is not retried within the session.
	assert.Equal(t, 1, calls)

	// A different post or user dispatches independently.
	co.RecordView(context.Background(), "post-2", "user-1")
	co.RecordView(context.Background(), "post-1", "user-2")
	assert.Equal(t, 3, calls)
}

func TestHasInteracted(t *testing.T) {
	t.Parallel()

	t.Run("seeds the cache from the backend", func(t *testing.T) {
		t.Parallel()
		lookups := 0
		edges := noopEdges()
		edges.existsFn = func(context.Context, models.Relation, string, string) (bool, error) {
			lookups++
			return true, nil
		}
		co := NewCoordinator(edges, nil, nil, NewStateCache(), nil)

		assert.True(t, co.HasInteracted(context.Background(), models.RelationLike, "a", "p"))
		assert.True(t, co.HasInteracted(context.Background(), models.RelationLike, "a", "p"))
		assert.Equal(t, 1, lookups)
	})

	t.Run("lookup failure reads as false", func(t *testing.T) {
		t.Parallel()
		edges := noopEdges()
		edges.existsFn = func(context.Context, models.Relation, string, string) (bool, error) {
			return false, models.NewNetworkError(errors.New("down"))
		}
		co := NewCoordinator(edges, nil, nil, NewStateCache(), nil)

		assert.False(t, co.HasInteracted(context.Background(), models.RelationLike, "a", "p"))
	})
}
