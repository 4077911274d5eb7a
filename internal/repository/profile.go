package repository

import (
	"context"
	"fmt"

	"chirp/internal/gateway"
	"chirp/internal/images"
	"chirp/internal/models"
)

// AvatarBucket is the storage bucket for profile photos. Each user owns one
// object, overwritten on every update.
const AvatarBucket = "avatars"

// ProfileRepository defines profile data operations.
type ProfileRepository interface {
	GetByID(ctx context.Context, userID string) (*models.Profile, error)
	GetByUsername(ctx context.Context, username string) (*models.Profile, error)
	Search(ctx context.Context, query string, limit int) ([]models.Profile, error)
	// Ensure returns the profile for the identity, creating it lazily on
	// first sign-in when absent.
	Ensure(ctx context.Context, in models.ProfileInsert) (*models.Profile, error)
	Update(ctx context.Context, userID string, up models.ProfileUpdate) error
	// UploadAvatar normalizes and stores the profile photo, returning its
	// public URL.
	UploadAvatar(ctx context.Context, userID string, imageData []byte) (string, error)
}

type profileRepository struct {
	gw gateway.Gateway
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(gw gateway.Gateway) ProfileRepository {
	return &profileRepository{gw: gw}
}

func (r *profileRepository) GetByID(ctx context.Context, userID string) (*models.Profile, error) {
	if userID == "" {
		return nil, models.NewValidationError("user id is required")
	}
	var profile models.Profile
	q := gateway.Query{
		Table:   "profiles",
		Filters: []gateway.Filter{gateway.Eq("id", userID)},
		Single:  true,
	}
	if err := r.gw.Select(ctx, q, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetByUsername matches the username case-insensitively. A missing profile
// returns (nil, nil).
func (r *profileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	if username == "" {
		return nil, models.NewValidationError("username is required")
	}
	var profiles []models.Profile
	q := gateway.Query{
		Table:   "profiles",
		Filters: []gateway.Filter{gateway.Ilike("username", username)},
		Limit:   1,
	}
	if err := r.gw.Select(ctx, q, &profiles); err != nil {
		return nil, err
	}
	if len(profiles) == 0 {
		return nil, nil
	}
	return &profiles[0], nil
}

func (r *profileRepository) Search(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	if query == "" {
		return nil, models.NewValidationError("search query is required")
	}
	var profiles []models.Profile
	q := gateway.Query{
		Table: "profiles",
		Filters: []gateway.Filter{gateway.Or(
			fmt.Sprintf("username.ilike.%%%s%%", query),
			fmt.Sprintf("full_name.ilike.%%%s%%", query),
		)},
		Limit: limit,
	}
	if err := r.gw.Select(ctx, q, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *profileRepository) Ensure(ctx context.Context, in models.ProfileInsert) (*models.Profile, error) {
	if in.ID == "" || in.Username == "" {
		return nil, models.NewValidationError("id and username are required")
	}
	var existing []models.Profile
	q := gateway.Query{
		Table:   "profiles",
		Filters: []gateway.Filter{gateway.Eq("id", in.ID)},
		Limit:   1,
	}
	if err := r.gw.Select(ctx, q, &existing); err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	var inserted []models.Profile
	if err := r.gw.Insert(ctx, "profiles", in, &inserted); err != nil {
		// A concurrent first sign-in can win the race; read the winner.
		if models.IsConflict(err) {
			return r.GetByID(ctx, in.ID)
		}
		return nil, err
	}
	if len(inserted) == 0 {
		return nil, &models.AppError{Code: models.CodeServer, Message: "insert returned no rows"}
	}
	return &inserted[0], nil
}

func (r *profileRepository) Update(ctx context.Context, userID string, up models.ProfileUpdate) error {
	if userID == "" {
		return models.NewValidationError("user id is required")
	}
	if up == (models.ProfileUpdate{}) {
		return models.NewValidationError("no profile fields to update")
	}
	return r.gw.Update(ctx, "profiles", up, []gateway.Filter{gateway.Eq("id", userID)})
}

func (r *profileRepository) UploadAvatar(ctx context.Context, userID string, imageData []byte) (string, error) {
	if userID == "" {
		return "", models.NewValidationError("user id is required")
	}
	normalized, err := images.NormalizeAvatar(imageData)
	if err != nil {
		return "", models.NewValidationError("unsupported image data")
	}

	path := fmt.Sprintf("%s/avatar.jpg", userID)
	err = r.gw.Upload(ctx, AvatarBucket, path, normalized, gateway.UploadOptions{
		ContentType: "image/jpeg",
		Upsert:      true,
	})
	if err != nil {
		return "", err
	}
	return r.gw.PublicURL(AvatarBucket, path), nil
}
