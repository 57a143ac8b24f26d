package domain

import (
	"time"
)

// ContentID is the platform-internal identifier (cid) that addresses a
// specific video's stream manifest, distinct from the public bvid.
type ContentID string

// Quality codes used by the upstream playurl API.
const (
	Quality360p  = "16"
	Quality480p  = "32"
	Quality720p  = "64"
	Quality1080p = "125"
	Quality4K    = "266"
	QualityAuto  = "-1"
)

// DefaultQuality is substituted when a requested code is outside the
// accepted set.
const DefaultQuality = Quality720p

// AccessGrant is the per-request capability derived from an API key.
// Elevated grants attach the cached session credential to upstream calls.
type AccessGrant struct {
	Tier           string
	QualityCeiling string
	Elevated       bool
}

// Credential is the single process-wide upstream session credential.
// The blob is an opaque cookie string; expiry is absolute and checked
// lazily on read.
type Credential struct {
	Blob      string    `json:"blob"`
	ExpiresAt time.Time `json:"expires_at"`
	OwnerHint string    `json:"owner_hint,omitempty"`
}

func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(now)
}

// VideoMetadata holds descriptive fields only. It is advisory and never
// consulted for access decisions.
type VideoMetadata struct {
	Bvid        string `json:"bvid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Duration    int64  `json:"duration"`
	Author      string `json:"author"`
	Cover       string `json:"cover"`
	PubDate     int64  `json:"pubdate"`
}

// ResolvedMedia carries the upstream-signed stream URLs. They expire
// quickly and must be resolved fresh per request.
type ResolvedMedia struct {
	VideoURL string `json:"video_url"`
	AudioURL string `json:"audio_url"`
}

// ResolveResult is the outcome of a full resolution chain pass. Metadata
// may be nil when the best-effort fetch failed.
type ResolveResult struct {
	Bvid      string
	ContentID ContentID
	Media     *ResolvedMedia
	Metadata  *VideoMetadata
	Quality   string
	Tier      string
}
