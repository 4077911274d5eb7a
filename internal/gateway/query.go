package gateway

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Filter is one typed row filter. Filters are combined with AND; use Or for
// a disjunction.
type Filter struct {
	Column string
	Op     string // eq, in, ilike, is, not.is, lt, gt, or
	Value  string
}

// Eq matches rows where column equals value.
func Eq(column string, value any) Filter {
	return Filter{Column: column, Op: "eq", Value: fmt.Sprint(value)}
}

// In matches rows where column is one of values.
func In(column string, values []string) Filter {
	return Filter{Column: column, Op: "in", Value: "(" + strings.Join(values, ",") + ")"}
}

// Ilike matches rows where column matches pattern case-insensitively.
// Pattern uses SQL wildcards, e.g. "%term%".
func Ilike(column, pattern string) Filter {
	return Filter{Column: column, Op: "ilike", Value: pattern}
}

// IsNull matches rows where column is null.
func IsNull(column string) Filter {
	return Filter{Column: column, Op: "is", Value: "null"}
}

// NotNull matches rows where column is not null.
func NotNull(column string) Filter {
	return Filter{Column: column, Op: "not.is", Value: "null"}
}

// Lt matches rows where column is less than value.
func Lt(column string, value any) Filter {
	return Filter{Column: column, Op: "lt", Value: fmt.Sprint(value)}
}

// Or combines conditions disjunctively. Each condition is a raw
// "column.op.value" triple, e.g. "username.ilike.%term%".
func Or(conditions ...string) Filter {
	return Filter{Op: "or", Value: "(" + strings.Join(conditions, ",") + ")"}
}

// Query is a typed table read request. Offset/Limit translate to an
// inclusive row range [Offset, Offset+Limit-1] on the wire.
type Query struct {
	Table      string
	Columns    string // select list; defaults to "*"
	Filters    []Filter
	OrderBy    string
	Descending bool
	Offset     int
	Limit      int  // zero means no limit
	Single     bool // expect exactly one row; dest is a pointer to struct
}

// Validate rejects malformed queries before any network dispatch.
func (q Query) Validate() error {
	if q.Table == "" {
		return validationErr("query table is required")
	}
	if q.Offset < 0 {
		return validationErr("query offset must not be negative")
	}
	if q.Limit < 0 {
		return validationErr("query limit must not be negative")
	}
	for _, f := range q.Filters {
		if f.Op == "" {
			return validationErr("filter operator is required")
		}
		if f.Column == "" && f.Op != "or" {
			return validationErr("filter column is required")
		}
	}
	return nil
}

// encode renders the query string for the REST surface.
func (q Query) encode() url.Values {
	v := url.Values{}
	columns := q.Columns
	if columns == "" {
		columns = "*"
	}
	v.Set("select", columns)
	for _, f := range q.Filters {
		if f.Op == "or" {
			v.Add("or", f.Value)
			continue
		}
		v.Add(f.Column, f.Op+"."+f.Value)
	}
	if q.OrderBy != "" {
		direction := "asc"
		if q.Descending {
			direction = "desc"
		}
		v.Set("order", q.OrderBy+"."+direction)
	}
	if q.Offset > 0 {
		v.Set("offset", strconv.Itoa(q.Offset))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// encodeFilters renders mutation filters (update/delete) as a query string.
func encodeFilters(filters []Filter) url.Values {
	v := url.Values{}
	for _, f := range filters {
		if f.Op == "or" {
			v.Add("or", f.Value)
			continue
		}
		v.Add(f.Column, f.Op+"."+f.Value)
	}
	return v
}
