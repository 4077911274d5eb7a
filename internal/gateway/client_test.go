package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chirp/internal/backendtest"
	"chirp/internal/gateway"
	"chirp/internal/models"
)

func TestSelectFiltersOrderAndPaging(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	author := srv.SeedProfile(nil)
	authorID := author["id"].(string)
	for i := 0; i < 5; i++ {
		srv.SeedPost(authorID, backendtest.Row{"like_count": float64(i)})
	}
	other := srv.SeedProfile(nil)
	srv.SeedPost(other["id"].(string), nil)

	gw := srv.GatewayClient()

	var posts []models.Post
	q := gateway.Query{
		Table:      "posts",
		Filters:    []gateway.Filter{gateway.Eq("author_id", authorID)},
		OrderBy:    "like_count",
		Descending: true,
		Offset:     1,
		Limit:      2,
	}
	require.NoError(t, gw.Select(context.Background(), q, &posts))
	require.Len(t, posts, 2)
	assert.Equal(t, 3, posts[0].LikeCount)
	assert.Equal(t, 2, posts[1].LikeCount)
	for _, p := range posts {
		assert.Equal(t, authorID, p.AuthorID)
	}
}

func TestSelectEmbedsAuthorProfile(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	author := srv.SeedProfile(backendtest.Row{"username": "casey"})
	srv.SeedPost(author["id"].(string), nil)

	var posts []models.Post
	q := gateway.Query{Table: "posts", Columns: "*, profiles(*)"}
	require.NoError(t, srv.GatewayClient().Select(context.Background(), q, &posts))
	require.Len(t, posts, 1)
	require.NotNil(t, posts[0].Author)
	assert.Equal(t, "casey", posts[0].Author.Username)
	assert.Equal(t, "casey", posts[0].AuthorUsername())
}

func TestSelectSingle(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	profile := srv.SeedProfile(backendtest.Row{"username": "riley"})
	gw := srv.GatewayClient()

	var got models.Profile
	q := gateway.Query{
		Table:   "profiles",
		Filters: []gateway.Filter{gateway.Eq("id", profile["id"])},
		Single:  true,
	}
	require.NoError(t, gw.Select(context.Background(), q, &got))
	assert.Equal(t, "riley", got.Username)

	// No match: the single-object request fails with a server error.
	q.Filters = []gateway.Filter{gateway.Eq("id", "missing")}
	err := gw.Select(context.Background(), q, &got)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeServer, appErr.Code)
}

func TestInsertReturnsRepresentation(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	gw := srv.GatewayClient()

	var inserted []models.Post
	payload := models.PostInsert{AuthorID: "author-1", Content: "hello", ModerationStatus: "approved"}
	require.NoError(t, gw.Insert(context.Background(), "posts", payload, &inserted))
	require.Len(t, inserted, 1)
	assert.NotEmpty(t, inserted[0].ID)
	assert.Equal(t, "hello", inserted[0].Content)
	assert.False(t, inserted[0].CreatedAt.IsZero())
}

func TestInsertDuplicateEdgeMapsToConflict(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	gw := srv.GatewayClient()

	edge := models.LikeInsert{UserID: "u1", PostID: "p1"}
	require.NoError(t, gw.Insert(context.Background(), "likes", edge, nil))

	err := gw.Insert(context.Background(), "likes", edge, nil)
	assert.True(t, models.IsConflict(err))
}

func TestUpsertMergesOnConflict(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	srv.SeedTrend("golang", 3)
	gw := srv.GatewayClient()

	tag := "golang"
	title := "#golang"
	require.NoError(t, gw.Upsert(context.Background(), "trends", models.TrendInsert{
		Hashtag:   &tag,
		Title:     &title,
		PostCount: 7,
	}, "hashtag"))

	assert.Equal(t, 1, srv.Store.Count("trends"))
	row := srv.Store.Get("trends", "hashtag", "golang")
	require.NotNil(t, row)
	assert.Equal(t, float64(7), row["post_count"])
}

func TestUpdateAndDelete(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	profile := srv.SeedProfile(nil)
	gw := srv.GatewayClient()

	bio := "updated bio"
	err := gw.Update(context.Background(), "profiles",
		models.ProfileUpdate{Bio: &bio},
		[]gateway.Filter{gateway.Eq("id", profile["id"])})
	require.NoError(t, err)
	assert.Equal(t, "updated bio", srv.Store.Get("profiles", "id", profile["id"])["bio"])

	err = gw.Delete(context.Background(), "profiles",
		[]gateway.Filter{gateway.Eq("id", profile["id"])})
	require.NoError(t, err)
	assert.Equal(t, 0, srv.Store.Count("profiles"))

	// Unfiltered mutations are rejected before dispatch.
	assert.True(t, models.IsValidation(gw.Delete(context.Background(), "profiles", nil)))
	assert.True(t, models.IsValidation(gw.Update(context.Background(), "profiles", models.ProfileUpdate{}, nil)))
}

func TestCallRPC(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	voice := srv.SeedCuratedVoice()
	srv.SeedPost(voice["id"].(string), backendtest.Row{"like_count": float64(10)})
	gw := srv.GatewayClient()

	var ranked []models.RankedPost
	params := map[string]any{"limit": 20, "offset": 0}
	require.NoError(t, gw.Call(context.Background(), "get_curated_feed", params, &ranked))
	require.Len(t, ranked, 1)
	assert.Equal(t, float64(30), ranked[0].Score)

	err := gw.Call(context.Background(), "no_such_proc", nil, nil)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeServer, appErr.Code)
}

func TestUploadAndPublicURL(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	gw := srv.GatewayClient()

	data := []byte("jpeg bytes")
	opts := gateway.UploadOptions{ContentType: "image/jpeg"}
	require.NoError(t, gw.Upload(context.Background(), "avatars", "u1/avatar.jpg", data, opts))
	assert.Equal(t, data, srv.Store.Object("avatars", "u1/avatar.jpg"))

	// Existing object without upsert is a conflict; with upsert it replaces.
	err := gw.Upload(context.Background(), "avatars", "u1/avatar.jpg", []byte("other"), opts)
	assert.True(t, models.IsConflict(err))

	opts.Upsert = true
	require.NoError(t, gw.Upload(context.Background(), "avatars", "u1/avatar.jpg", []byte("other"), opts))
	assert.Equal(t, []byte("other"), srv.Store.Object("avatars", "u1/avatar.jpg"))

	assert.Equal(t,
		"http://backend.test/storage/v1/object/public/avatars/u1/avatar.jpg",
		gw.PublicURL("avatars", "u1/avatar.jpg"))
}

func TestStatusErrorMapping(t *testing.T) {
	t.Parallel()

	srv := backendtest.NewServer()
	gw := srv.GatewayClient()

	t.Run("401 maps to auth expired", func(t *testing.T) {
		srv.FailNextWith(http.StatusUnauthorized, `{"message":"JWT expired"}`)
		var posts []models.Post
		err := gw.Select(context.Background(), gateway.Query{Table: "posts"}, &posts)
		assert.True(t, models.IsAuthExpired(err))
	})

	t.Run("500 maps to server error with status", func(t *testing.T) {
		srv.FailNextWith(http.StatusInternalServerError, `{"message":"boom"}`)
		var posts []models.Post
		err := gw.Select(context.Background(), gateway.Query{Table: "posts"}, &posts)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, models.CodeServer, appErr.Code)
		assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	})
}

type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}

func TestTransportFailureMapsToNetworkError(t *testing.T) {
	t.Parallel()

	gw := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    "http://backend.test",
		AnonKey:    "key",
		HTTPClient: &http.Client{Transport: failingTransport{}},
	})

	var posts []models.Post
	err := gw.Select(context.Background(), gateway.Query{Table: "posts"}, &posts)
	assert.True(t, models.IsTransient(err))
}

func TestExpiredSessionFailsBeforeDispatch(t *testing.T) {
	t.Parallel()

	gw := gateway.NewClient(gateway.ClientConfig{
		BaseURL:    "http://backend.test",
		AnonKey:    "key",
		HTTPClient: &http.Client{Transport: failingTransport{}},
	})
	gw.SetSession(&gateway.Session{
		AccessToken: "stale-token",
		UserID:      "user-1",
		ExpiresAt:   time.Now().Add(-time.Minute),
	})

	var posts []models.Post
	err := gw.Select(context.Background(), gateway.Query{Table: "posts"}, &posts)
	// AUTH_EXPIRED, not NETWORK_ERROR: the transport was never touched.
	assert.True(t, models.IsAuthExpired(err))
}
