package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryEncode(t *testing.T) {
	t.Parallel()

	q := Query{
		Table:   "posts",
		Columns: "*, profiles(*)",
		Filters: []Filter{
			Eq("moderation_status", "approved"),
			In("id", []string{"a", "b"}),
		},
		OrderBy:    "created_at",
		Descending: true,
		Offset:     20,
		Limit:      10,
	}

	v := q.encode()
	assert.Equal(t, "*, profiles(*)", v.Get("select"))
	assert.Equal(t, "eq.approved", v.Get("moderation_status"))
	assert.Equal(t, "in.(a,b)", v.Get("id"))
	assert.Equal(t, "created_at.desc", v.Get("order"))
	assert.Equal(t, "20", v.Get("offset"))
	assert.Equal(t, "10", v.Get("limit"))
}

func TestQueryEncodeDefaults(t *testing.T) {
	t.Parallel()

	v := Query{Table: "profiles"}.encode()
	assert.Equal(t, "*", v.Get("select"))
	assert.Empty(t, v.Get("order"))
	assert.Empty(t, v.Get("offset"))
	assert.Empty(t, v.Get("limit"))
}

func TestQueryEncodeOr(t *testing.T) {
	t.Parallel()

	q := Query{
		Table:   "trends",
		Filters: []Filter{Or("hashtag.ilike.%go%", "title.ilike.%go%")},
	}
	v := q.encode()
	assert.Equal(t, "(hashtag.ilike.%go%,title.ilike.%go%)", v.Get("or"))
}

func TestFilterConstructors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Filter{Column: "hashtag", Op: "is", Value: "null"}, IsNull("hashtag"))
	assert.Equal(t, Filter{Column: "hashtag", Op: "not.is", Value: "null"}, NotNull("hashtag"))
	assert.Equal(t, Filter{Column: "expires_at", Op: "lt", Value: "2026-01-01"}, Lt("expires_at", "2026-01-01"))
	assert.Equal(t, Filter{Column: "like_count", Op: "eq", Value: "3"}, Eq("like_count", 3))
}

func TestQueryValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, Query{Table: "posts"}.Validate())

	assert.Error(t, Query{}.Validate())
	assert.Error(t, Query{Table: "posts", Offset: -1}.Validate())
	assert.Error(t, Query{Table: "posts", Limit: -1}.Validate())
	assert.Error(t, Query{Table: "posts", Filters: []Filter{{Op: "eq"}}}.Validate())
	require.NoError(t, Query{Table: "posts", Filters: []Filter{Or("a.eq.b")}}.Validate())
}
