package backendtest

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
)

// Server is the fake backend. Zero value is not usable; call NewServer.
type Server struct {
	Store *Store
	app   *fiber.App

	mu         sync.Mutex
	failStatus int
	failBody   string
}

// NewServer builds the fake backend with empty tables.
func NewServer() *Server {
	s := &Server{
		Store: NewStore(),
		app:   fiber.New(fiber.Config{DisableStartupMessage: true}),
	}
	s.routes()
	return s
}

// FailNextWith makes the next request return the given status, simulating a
// backend outage or rejection.
func (s *Server) FailNextWith(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
	s.failBody = body
}

func (s *Server) takeFailure() (int, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, body := s.failStatus, s.failBody
	s.failStatus, s.failBody = 0, ""
	return status, body
}

func (s *Server) routes() {
	s.app.Use(func(c *fiber.Ctx) error {
		if status, body := s.takeFailure(); status != 0 {
			return c.Status(status).SendString(body)
		}
		if c.Get("apikey") == "" {
			return c.Status(fiber.StatusUnauthorized).SendString(`{"message":"No API key found"}`)
		}
		return c.Next()
	})

	s.app.Post("/rest/v1/rpc/:proc", s.handleRPC)
	s.app.Get("/rest/v1/:table", s.handleSelect)
	s.app.Post("/rest/v1/:table", s.handleInsert)
	s.app.Patch("/rest/v1/:table", s.handleUpdate)
	s.app.Delete("/rest/v1/:table", s.handleDelete)
	s.app.Post("/storage/v1/object/:bucket/*", s.handleUpload)
}

// App exposes the fiber app for in-process dispatch.
func (s *Server) App() *fiber.App { return s.app }

func parseQuery(c *fiber.Ctx) (filters []filter, order orderSpec, offset, limit int, selectList string) {
	selectList = "*"
	args := c.Request().URI().QueryArgs()
	args.VisitAll(func(key, value []byte) {
		k, v := string(key), string(value)
		switch k {
		case "select":
			selectList = v
		case "order":
			col, dir, found := strings.Cut(v, ".")
			order = orderSpec{column: col, descending: found && dir == "desc"}
		case "offset":
			offset, _ = strconv.Atoi(v)
		case "limit":
			limit, _ = strconv.Atoi(v)
		case "on_conflict", "apikey":
		case "or":
			filters = append(filters, filter{op: "or", value: v})
		default:
			op, val, found := strings.Cut(v, ".")
			if !found {
				return
			}
			if op == "not" {
				rest, restVal, _ := strings.Cut(val, ".")
				op, val = "not."+rest, restVal
			}
			filters = append(filters, filter{column: k, op: op, value: val})
		}
	})
	return filters, order, offset, limit, selectList
}

func (s *Server) handleSelect(c *fiber.Ctx) error {
	table := c.Params("table")
	filters, order, offset, limit, selectList := parseQuery(c)

	rows := s.Store.Select(table, filters, order, offset, limit)
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.expand(table, row, selectList))
	}

	if strings.Contains(c.Get("Accept"), "vnd.pgrst.object+json") {
		if len(out) != 1 {
			return c.Status(fiber.StatusNotAcceptable).SendString(`{"message":"JSON object requested, multiple (or no) rows returned"}`)
		}
		return c.JSON(out[0])
	}
	return c.JSON(out)
}

// expand attaches embedded resources named in the select list. Joins are
// resolved by foreign-key convention, matching the live schema.
func (s *Server) expand(table string, row Row, selectList string) Row {
	out := make(Row, len(row))
	for k, v := range row {
		out[k] = v
	}
	for _, entry := range splitTopLevel(selectList) {
		entry = strings.TrimSpace(entry)
		open := strings.IndexByte(entry, '(')
		if open < 0 {
			continue
		}
		name := entry[:open]
		alias := name
		if a, rest, found := strings.Cut(name, ":"); found {
			alias, name = a, rest
		}
		if bang := strings.IndexByte(name, '!'); bang >= 0 {
			name = name[:bang]
		}
		switch name {
		case "profiles":
			fk := "author_id"
			switch {
			case alias == "actor":
				fk = "actor_id"
			case table == "likes" || table == "reposts":
				fk = "user_id"
			}
			out[alias] = s.Store.Get("profiles", "id", row[fk])
		case "posts":
			out[alias] = s.Store.Get("posts", "id", row["post_id"])
		}
	}
	return out
}

func (s *Server) handleInsert(c *fiber.Ctx) error {
	table := c.Params("table")
	merge := strings.Contains(c.Get("Prefer"), "resolution=merge-duplicates")
	returning := strings.Contains(c.Get("Prefer"), "return=representation")

	var rows []Row
	body := c.Body()
	if len(body) > 0 && body[0] == '[' {
		if err := json.Unmarshal(body, &rows); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(`{"message":"invalid body"}`)
		}
	} else {
		var row Row
		if err := json.Unmarshal(body, &row); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(`{"message":"invalid body"}`)
		}
		rows = []Row{row}
	}

	inserted := make([]Row, 0, len(rows))
	for _, row := range rows {
		stored, err := s.Store.Insert(table, row, merge)
		if err != nil {
			return c.Status(fiber.StatusConflict).SendString(`{"message":"duplicate key value violates unique constraint"}`)
		}
		inserted = append(inserted, stored)
	}
	if returning {
		return c.Status(fiber.StatusCreated).JSON(inserted)
	}
	return c.SendStatus(fiber.StatusCreated)
}

func (s *Server) handleUpdate(c *fiber.Ctx) error {
	table := c.Params("table")
	filters, _, _, _, _ := parseQuery(c)
	var values Row
	if err := json.Unmarshal(c.Body(), &values); err != nil {
		return c.Status(fiber.StatusBadRequest).SendString(`{"message":"invalid body"}`)
	}
	s.Store.Update(table, values, filters)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDelete(c *fiber.Ctx) error {
	table := c.Params("table")
	filters, _, _, _, _ := parseQuery(c)
	s.Store.Delete(table, filters)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	path := c.Params("*")
	upsert := c.Get("x-upsert") == "true"
	data := make([]byte, len(c.Body()))
	copy(data, c.Body())
	if err := s.Store.PutObject(bucket, path, data, upsert); err != nil {
		return c.Status(fiber.StatusConflict).SendString(`{"message":"The resource already exists"}`)
	}
	return c.JSON(fiber.Map{"Key": bucket + "/" + path})
}

func (s *Server) handleRPC(c *fiber.Ctx) error {
	var params map[string]any
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &params); err != nil {
			return c.Status(fiber.StatusBadRequest).SendString(`{"message":"invalid body"}`)
		}
	}
	switch c.Params("proc") {
	case "get_curated_feed":
		return s.rpcCuratedFeed(c, params)
	case "record_post_view":
		return s.rpcRecordView(c, params)
	case "increment_trend_count":
		return s.rpcIncrementTrend(c, params)
	default:
		return c.Status(fiber.StatusNotFound).SendString(`{"message":"function not found"}`)
	}
}

type rankedRow struct {
	PostID string  `json:"post_id"`
	Score  float64 `json:"score"`
}

// rpcCuratedFeed scores approved posts by curated voices and returns the
// requested window in descending score order.
func (s *Server) rpcCuratedFeed(c *fiber.Ctx, params map[string]any) error {
	limit := intParam(params, "limit", 20)
	offset := intParam(params, "offset", 0)

	posts := s.Store.Select("posts", []filter{{column: "moderation_status", op: "eq", value: "approved"}}, orderSpec{}, 0, 0)
	var ranked []rankedRow
	for _, post := range posts {
		author := s.Store.Get("profiles", "id", post["author_id"])
		if author == nil || author["is_curated_voice"] != true {
			continue
		}
		score := floatField(post, "like_count")*3 +
			floatField(post, "repost_count")*5 +
			floatField(post, "comment_count")*2 +
			floatField(post, "view_count")*0.1
		ranked = append(ranked, rankedRow{PostID: post["id"].(string), Score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	if offset >= len(ranked) {
		return c.JSON([]rankedRow{})
	}
	ranked = ranked[offset:]
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return c.JSON(ranked)
}

// rpcRecordView registers one view per user per post. Repeat calls are
// accepted and change nothing.
func (s *Server) rpcRecordView(c *fiber.Ctx, params map[string]any) error {
	postID, _ := params["post_id"].(string)
	userID, _ := params["user_id"].(string)
	if postID == "" || userID == "" {
		return c.Status(fiber.StatusBadRequest).SendString(`{"message":"post and user are required"}`)
	}
	_, err := s.Store.Insert("post_views", Row{"post_id": postID, "user_id": userID}, false)
	if err == nil {
		s.bumpCounter("posts", postID, "view_count", 1)
	}
	return c.JSON(nil)
}

func (s *Server) rpcIncrementTrend(c *fiber.Ctx, params map[string]any) error {
	trendID, _ := params["trend_id"].(string)
	if trendID == "" {
		return c.Status(fiber.StatusBadRequest).SendString(`{"message":"trend_id is required"}`)
	}
	s.bumpCounter("trends", trendID, "post_count", 1)
	return c.JSON(nil)
}

func (s *Server) bumpCounter(table, id, column string, delta float64) {
	s.Store.mu.Lock()
	defer s.Store.mu.Unlock()
	row := s.Store.getLocked(table, "id", id)
	if row == nil {
		return
	}
	row[column] = floatField(row, column) + delta
}

func intParam(params map[string]any, key string, fallback int) int {
	if f, ok := params[key].(float64); ok {
		return int(f)
	}
	return fallback
}

func floatField(row Row, column string) float64 {
	f, _ := toFloat(row[column])
	return f
}
