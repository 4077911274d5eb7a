package models

import "time"

// Profile is a row from the profiles table. The ID equals the authenticating
// user's ID; one profile exists per identity, created lazily on first
// sign-in.
type Profile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	FullName       string    `json:"full_name"`
	Bio            *string   `json:"bio"`
	AvatarURL      *string   `json:"avatar_url"`
	BannerURL      *string   `json:"banner_url"`
	IsVerified     bool      `json:"is_verified"`
	IsCuratedVoice bool      `json:"is_curated_voice"`
	VoiceCategory  *string   `json:"voice_category"`
	FollowerCount  int       `json:"follower_count"`
	FollowingCount int       `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ProfileInsert is the payload for lazy profile creation.
type ProfileInsert struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

// ProfileUpdate carries the editable profile fields. Nil fields are left
// untouched by the backend.
type ProfileUpdate struct {
	FullName  *string `json:"full_name,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	BannerURL *string `json:"banner_url,omitempty"`
}
