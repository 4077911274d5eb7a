package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"chirp/internal/models"
	"chirp/internal/observability"
)

// acceptSingleObject asks the REST surface for a bare object instead of a
// one-element array.
const acceptSingleObject = "application/vnd.pgrst.object+json"

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	AnonKey    string
	HTTPClient *http.Client // optional; defaults to a client with a 30s timeout
	Logger     *slog.Logger // optional
}

// Client implements Gateway over the backend's HTTP surface.
type Client struct {
	base    string
	anonKey string
	http    *http.Client
	log     *slog.Logger

	session *Session
}

var _ Gateway = (*Client)(nil)

// NewClient builds a Client. The zero session means anonymous access.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NewLogger("gateway")
	}
	return &Client{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		anonKey: cfg.AnonKey,
		http:    httpClient,
		log:     logger,
	}
}

// SetSession installs the authenticated session; nil reverts to anonymous.
func (c *Client) SetSession(s *Session) {
	c.session = s
}

// Session returns the current session, nil when anonymous.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) Select(ctx context.Context, q Query, dest any) error {
	if err := q.Validate(); err != nil {
		return err
	}
	header := http.Header{}
	if q.Single {
		header.Set("Accept", acceptSingleObject)
	}
	return c.do(ctx, request{
		op:     "select",
		table:  q.Table,
		method: http.MethodGet,
		path:   "/rest/v1/" + q.Table,
		query:  q.encode(),
		header: header,
		dest:   dest,
	})
}

// Insert writes payload into table. dest, when non-nil, must be a pointer to
// a slice; the inserted rows are requested back and decoded into it.
func (c *Client) Insert(ctx context.Context, table string, payload any, dest any) error {
	if table == "" {
		return validationErr("insert table is required")
	}
	if payload == nil {
		return validationErr("insert payload is required")
	}
	header := http.Header{}
	if dest != nil {
		header.Set("Prefer", "return=representation")
	}
	return c.do(ctx, request{
		op:     "insert",
		table:  table,
		method: http.MethodPost,
		path:   "/rest/v1/" + table,
		header: header,
		body:   payload,
		dest:   dest,
	})
}

func (c *Client) Upsert(ctx context.Context, table string, payload any, onConflict string) error {
	if table == "" {
		return validationErr("upsert table is required")
	}
	if payload == nil {
		return validationErr("upsert payload is required")
	}
	query := url.Values{}
	if onConflict != "" {
		query.Set("on_conflict", onConflict)
	}
	header := http.Header{}
	header.Set("Prefer", "resolution=merge-duplicates")
	return c.do(ctx, request{
		op:     "upsert",
		table:  table,
		method: http.MethodPost,
		path:   "/rest/v1/" + table,
		query:  query,
		header: header,
		body:   payload,
	})
}

func (c *Client) Update(ctx context.Context, table string, values any, filters []Filter) error {
	if table == "" {
		return validationErr("update table is required")
	}
	if values == nil {
		return validationErr("update values are required")
	}
	if len(filters) == 0 {
		return validationErr("update requires at least one filter")
	}
	return c.do(ctx, request{
		op:     "update",
		table:  table,
		method: http.MethodPatch,
		path:   "/rest/v1/" + table,
		query:  encodeFilters(filters),
		body:   values,
	})
}

func (c *Client) Delete(ctx context.Context, table string, filters []Filter) error {
	if table == "" {
		return validationErr("delete table is required")
	}
	if len(filters) == 0 {
		return validationErr("delete requires at least one filter")
	}
	return c.do(ctx, request{
		op:     "delete",
		table:  table,
		method: http.MethodDelete,
		path:   "/rest/v1/" + table,
		query:  encodeFilters(filters),
	})
}

func (c *Client) Call(ctx context.Context, proc string, params any, dest any) error {
	if proc == "" {
		return validationErr("procedure name is required")
	}
	if params == nil {
		params = map[string]any{}
	}
	return c.do(ctx, request{
		op:     "rpc",
		table:  proc,
		method: http.MethodPost,
		path:   "/rest/v1/rpc/" + proc,
		body:   params,
		dest:   dest,
	})
}

func (c *Client) Upload(ctx context.Context, bucket, path string, data []byte, opts UploadOptions) error {
	if bucket == "" || path == "" {
		return validationErr("upload bucket and path are required")
	}
	if len(data) == 0 {
		return validationErr("upload data is empty")
	}
	header := http.Header{}
	if opts.ContentType != "" {
		header.Set("Content-Type", opts.ContentType)
	}
	if opts.Upsert {
		header.Set("x-upsert", "true")
	}
	return c.do(ctx, request{
		op:     "upload",
		table:  bucket,
		method: http.MethodPost,
		path:   "/storage/v1/object/" + bucket + "/" + path,
		header: header,
		raw:    data,
	})
}

func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.base, bucket, path)
}

// request is one outbound backend call.
type request struct {
	op     string
	table  string
	method string
	path   string
	query  url.Values
	header http.Header
	body   any    // JSON-encoded when non-nil
	raw    []byte // raw bytes; mutually exclusive with body
	dest   any
}

func (c *Client) do(ctx context.Context, r request) error {
	// An installed but expired session fails before dispatch: the call would
	// be rejected anyway and must not be retried with the same token.
	if c.session != nil && !c.session.Valid() {
		return models.NewAuthExpiredError()
	}

	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "gateway."+r.op)
	span.SetAttributes(
		attribute.String("backend.table", r.table),
		attribute.String("http.method", r.method),
	)
	defer span.End()

	err := c.roundTrip(ctx, r)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			outcome = appErr.Code
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.WarnContext(ctx, "backend call failed",
			"operation", r.op, "table", r.table, "err", err)
	}
	observability.ObserveGatewayRequest(r.op, r.table, outcome, start)
	return err
}

func (c *Client) roundTrip(ctx context.Context, r request) error {
	endpoint := c.base + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	var body io.Reader
	switch {
	case r.raw != nil:
		body = bytes.NewReader(r.raw)
	case r.body != nil:
		encoded, err := json.Marshal(r.body)
		if err != nil {
			return validationErr("request payload is not encodable")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return validationErr("malformed request")
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if r.body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearerToken())

	resp, err := c.http.Do(req)
	if err != nil {
		return models.NewNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return mapStatusError(resp)
	}

	if r.dest == nil {
		// Drain so the transport can reuse the connection.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(r.dest); err != nil {
		return models.NewServerError(resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) bearerToken() string {
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.anonKey
}

// mapStatusError translates an HTTP error status into the taxonomy.
func mapStatusError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return models.NewAuthExpiredError()
	case http.StatusConflict:
		return models.NewConflictError("row already exists")
	default:
		return models.NewServerError(resp.StatusCode, fmt.Errorf("%s", strings.TrimSpace(string(detail))))
	}
}
