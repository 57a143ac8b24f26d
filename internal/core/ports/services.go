package ports

import (
	"context"

	"biligate/internal/core/domain"
)

type AccessService interface {
	Classify(ctx context.Context, key string) (domain.AccessGrant, error)
}

type QualityService interface {
	Clamp(requested, ceiling string) string
}

type MediaService interface {
	Resolve(ctx context.Context, bvid, requestedQuality string, grant domain.AccessGrant) (*domain.ResolveResult, error)
	Metadata(ctx context.Context, bvid string, grant domain.AccessGrant) (*domain.VideoMetadata, error)
}

// MediaPlatform is the upstream media platform API. The cookies argument
// is the opaque session credential blob; empty means anonymous access.
type MediaPlatform interface {
	ResolveContentID(ctx context.Context, bvid, cookies string) (domain.ContentID, error)
	FetchMetadata(ctx context.Context, bvid, cookies string) (*domain.VideoMetadata, error)
	ResolveMedia(ctx context.Context, bvid string, cid domain.ContentID, quality, cookies string) (*domain.ResolvedMedia, error)
	VerifyCredential(ctx context.Context, cookies string) (string, error)
}
