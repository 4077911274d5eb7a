// Package backendtest runs an in-memory stand-in for the hosted backend:
// the REST table surface, the ranking and view RPCs, and object storage.
// Tests drive the real gateway against it over fiber's in-process transport.
package backendtest

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Row is one stored record. Values use JSON types: string, float64, bool, nil.
type Row = map[string]any

// columnDefaults lists per-table values applied when the insert omits them,
// the way the live schema's column defaults do.
var columnDefaults = map[string]Row{
	"notifications": {"is_read": false},
	"posts":         {"moderation_status": "approved"},
	"trends":        {"post_count": float64(0), "is_trending": false},
}

// uniqueKeys lists per-table column sets enforced as unique.
var uniqueKeys = map[string][]string{
	"likes":      {"user_id", "post_id"},
	"reposts":    {"user_id", "post_id"},
	"follows":    {"follower_id", "following_id"},
	"post_views": {"user_id", "post_id"},
	"trends":     {"hashtag"},
	"profiles":   {"id"},
}

type conflictError struct{ table string }

func (e conflictError) Error() string { return "duplicate row in " + e.table }

// Store holds the fake backend's tables and storage objects.
type Store struct {
	mu      sync.Mutex
	tables  map[string][]Row
	objects map[string][]byte
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		tables:  make(map[string][]Row),
		objects: make(map[string][]byte),
	}
}

// Insert adds a row, assigning id and timestamps when absent. merge makes a
// unique-key collision update the existing row instead of failing.
func (s *Store) Insert(table string, row Row, merge bool) (Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(table, row, merge)
}

func (s *Store) insertLocked(table string, row Row, merge bool) (Row, error) {
	stored := make(Row, len(row)+3)
	for k, v := range row {
		stored[k] = v
	}
	if _, ok := stored["id"]; !ok {
		stored["id"] = uuid.NewString()
	}
	for col, def := range columnDefaults[table] {
		if _, ok := stored[col]; !ok {
			stored[col] = def
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	if _, ok := stored["created_at"]; !ok {
		stored["created_at"] = now
	}
	if _, ok := stored["updated_at"]; !ok {
		stored["updated_at"] = now
	}

	if key := uniqueKeys[table]; key != nil {
		if existing := s.findByKeyLocked(table, key, stored); existing != nil {
			if !merge {
				return nil, conflictError{table: table}
			}
			for k, v := range row {
				existing[k] = v
			}
			existing["updated_at"] = now
			return existing, nil
		}
	}

	s.tables[table] = append(s.tables[table], stored)
	return stored, nil
}

func (s *Store) findByKeyLocked(table string, key []string, candidate Row) Row {
	for _, existing := range s.tables[table] {
		match := true
		for _, col := range key {
			cv, ok := candidate[col]
			if !ok || cv == nil || !valueEq(existing[col], cv) {
				match = false
				break
			}
		}
		if match {
			return existing
		}
	}
	return nil
}

// Select returns rows matching the filters, ordered and paged.
func (s *Store) Select(table string, filters []filter, order orderSpec, offset, limit int) []Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(table, filters, order, offset, limit)
}

func (s *Store) selectLocked(table string, filters []filter, order orderSpec, offset, limit int) []Row {
	var out []Row
	for _, row := range s.tables[table] {
		if matchAll(row, filters) {
			out = append(out, row)
		}
	}
	if order.column != "" {
		sort.SliceStable(out, func(i, j int) bool {
			less := valueLess(out[i][order.column], out[j][order.column])
			if order.descending {
				return valueLess(out[j][order.column], out[i][order.column])
			}
			return less
		})
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Update applies values to every row matching the filters.
func (s *Store) Update(table string, values Row, filters []filter) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, row := range s.tables[table] {
		if matchAll(row, filters) {
			for k, v := range values {
				row[k] = v
			}
			row["updated_at"] = time.Now().UTC().Format(time.RFC3339)
			count++
		}
	}
	return count
}

// Delete removes every row matching the filters.
func (s *Store) Delete(table string, filters []filter) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.tables[table][:0]
	deleted := 0
	for _, row := range s.tables[table] {
		if matchAll(row, filters) {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.tables[table] = kept
	return deleted
}

// Get returns the first row where column equals value, nil when absent.
func (s *Store) Get(table, column string, value any) Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(table, column, value)
}

func (s *Store) getLocked(table, column string, value any) Row {
	for _, row := range s.tables[table] {
		if valueEq(row[column], value) {
			return row
		}
	}
	return nil
}

// Count returns how many rows a table holds.
func (s *Store) Count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[table])
}

// PutObject stores a storage object; collisions without upsert fail.
func (s *Store) PutObject(bucket, path string, data []byte, upsert bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := bucket + "/" + path
	if _, exists := s.objects[key]; exists && !upsert {
		return conflictError{table: "storage"}
	}
	s.objects[key] = data
	return nil
}

// Object returns a stored object's bytes, nil when absent.
func (s *Store) Object(bucket, path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects[bucket+"/"+path]
}

// filter is one parsed row predicate.
type filter struct {
	column string
	op     string // eq, in, ilike, is, not.is, lt, gt, or
	value  string
}

type orderSpec struct {
	column     string
	descending bool
}

func matchAll(row Row, filters []filter) bool {
	for _, f := range filters {
		if !match(row, f) {
			return false
		}
	}
	return true
}

func match(row Row, f filter) bool {
	switch f.op {
	case "eq":
		return fmt.Sprint(row[f.column]) == f.value && row[f.column] != nil
	case "in":
		inner := strings.TrimSuffix(strings.TrimPrefix(f.value, "("), ")")
		if inner == "" {
			return false
		}
		for _, candidate := range strings.Split(inner, ",") {
			if fmt.Sprint(row[f.column]) == candidate {
				return true
			}
		}
		return false
	case "ilike":
		s, ok := row[f.column].(string)
		if !ok {
			return false
		}
		return ilikeMatch(s, f.value)
	case "is":
		return row[f.column] == nil
	case "not.is":
		return row[f.column] != nil
	case "lt":
		return valueLess(row[f.column], f.value)
	case "gt":
		return valueLess(f.value, row[f.column])
	case "or":
		inner := strings.TrimSuffix(strings.TrimPrefix(f.value, "("), ")")
		for _, cond := range splitTopLevel(inner) {
			parts := strings.SplitN(cond, ".", 3)
			if len(parts) != 3 {
				continue
			}
			if match(row, filter{column: parts[0], op: parts[1], value: parts[2]}) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func ilikeMatch(s, pattern string) bool {
	expr := "^(?i)" + strings.ReplaceAll(regexp.QuoteMeta(pattern), "%", ".*") + "$"
	re, err := regexp.Compile(expr)
	if err != nil {
		return false
	}
	return re.MatchString(s)
}

func valueEq(a, b any) bool {
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// valueLess orders numerically when both sides parse as numbers, otherwise
// lexically. RFC 3339 timestamps order correctly as strings.
func valueLess(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af < bf
	}
	return fmt.Sprint(a) < fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// splitTopLevel splits on commas outside parentheses.
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if start <= len(s) {
		out = append(out, s[start:])
	}
	return out
}
