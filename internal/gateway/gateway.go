// Package gateway is the typed client for the hosted backend: table queries
// and mutations over its REST surface, remote procedure calls, and object
// storage uploads. It performs no retries; retry policy belongs to callers.
package gateway

import (
	"context"

	"chirp/internal/models"
)

// UploadOptions control an object-storage upload.
type UploadOptions struct {
	ContentType string
	Upsert      bool
}

// Gateway is the narrow interface components depend on, enabling test
// doubles. All methods may return a *models.AppError carrying one of the
// stable codes: NETWORK_ERROR, AUTH_EXPIRED, CONFLICT, VALIDATION_ERROR,
// SERVER_ERROR.
type Gateway interface {
	// Select runs a table query and decodes the result rows into dest,
	// which must be a pointer to a slice (or to a struct when q.Single).
	Select(ctx context.Context, q Query, dest any) error

	// Insert writes payload into table. When dest is non-nil the inserted
	// row(s) are requested back and decoded into it.
	Insert(ctx context.Context, table string, payload any, dest any) error

	// Upsert writes payload into table, merging on the given conflict column.
	Upsert(ctx context.Context, table string, payload any, onConflict string) error

	// Update applies values to every row matching filters.
	Update(ctx context.Context, table string, values any, filters []Filter) error

	// Delete removes every row matching filters.
	Delete(ctx context.Context, table string, filters []Filter) error

	// Call invokes a remote procedure with params, decoding the result into
	// dest when non-nil.
	Call(ctx context.Context, proc string, params any, dest any) error

	// Upload stores an object and returns nil on success; the object is then
	// reachable at PublicURL(bucket, path).
	Upload(ctx context.Context, bucket, path string, data []byte, opts UploadOptions) error

	// PublicURL returns the public URL for a stored object.
	PublicURL(bucket, path string) string
}

// validationErr is a shorthand for pre-dispatch rejection.
func validationErr(msg string) error {
	return models.NewValidationError(msg)
}
