package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"biligate/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap/zaptest"
)

type MockMediaPlatform struct {
	mock.Mock
}

func (m *MockMediaPlatform) ResolveContentID(ctx context.Context, bvid, cookies string) (domain.ContentID, error) {
	args := m.Called(ctx, bvid, cookies)
	return args.Get(0).(domain.ContentID), args.Error(1)
}

func (m *MockMediaPlatform) FetchMetadata(ctx context.Context, bvid, cookies string) (*domain.VideoMetadata, error) {
	args := m.Called(ctx, bvid, cookies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VideoMetadata), args.Error(1)
}

func (m *MockMediaPlatform) ResolveMedia(ctx context.Context, bvid string, cid domain.ContentID, quality, cookies string) (*domain.ResolvedMedia, error) {
	args := m.Called(ctx, bvid, cid, quality, cookies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ResolvedMedia), args.Error(1)
}

func (m *MockMediaPlatform) VerifyCredential(ctx context.Context, cookies string) (string, error) {
	args := m.Called(ctx, cookies)
	return args.String(0), args.Error(1)
}

func newTestMediaService(t *testing.T, platform *MockMediaPlatform, creds *MockCredentialRepository) *MediaService {
	return NewMediaService(platform, creds, NewQualityService(), nil, zaptest.NewLogger(t).Sugar())
}

func publicGrant() domain.AccessGrant {
	return domain.AccessGrant{Tier: "720p limit", QualityCeiling: domain.Quality720p}
}

func TestMediaService_Resolve_ClampsQuality(t *testing.T) {
	platform := new(MockMediaPlatform)
	creds := new(MockCredentialRepository)
	svc := newTestMediaService(t, platform, creds)

	platform.On("ResolveContentID", mock.Anything, "BV1HfK3zPEHE", "").Return(domain.ContentID("9001"), nil)
	platform.On("FetchMetadata", mock.Anything, "BV1HfK3zPEHE", "").Return(&domain.VideoMetadata{Title: "t"}, nil)
	// Requested 1080p against a 720p ceiling must reach upstream as 64.
	platform.On("ResolveMedia", mock.Anything, "BV1HfK3zPEHE", domain.ContentID("9001"), domain.Quality720p, "").
		Return(&domain.ResolvedMedia{VideoURL: "https://cdn/v", AudioURL: "https://cdn/a"}, nil)

	res, err := svc.Resolve(context.Background(), "BV1HfK3zPEHE", domain.Quality1080p, publicGrant())
	assert.NoError(t, err)
	assert.Equal(t, domain.Quality720p, res.Quality)
	assert.Equal(t, "https://cdn/v", res.Media.VideoURL)
	assert.NotNil(t, res.Metadata)
}

func TestMediaService_Resolve_MetadataFailureIsIsolated(t *testing.T) {
	platform := new(MockMediaPlatform)
	creds := new(MockCredentialRepository)
	svc := newTestMediaService(t, platform, creds)

	platform.On("ResolveContentID", mock.Anything, "BV1HfK3zPEHE", "").Return(domain.ContentID("9001"), nil)
	platform.On("FetchMetadata", mock.Anything, "BV1HfK3zPEHE", "").Return(nil, errors.New("view endpoint down"))
	platform.On("ResolveMedia", mock.Anything, "BV1HfK3zPEHE", domain.ContentID("9001"), domain.Quality720p, "").
		Return(&domain.ResolvedMedia{VideoURL: "https://cdn/v", AudioURL: "https://cdn/a"}, nil)

	res, err := svc.Resolve(context.Background(), "BV1HfK3zPEHE", "", publicGrant())
	assert.NoError(t, err)
	assert.Nil(t, res.Metadata)
	assert.Equal(t, "https://cdn/v", res.Media.VideoURL)
	assert.Equal(t, "https://cdn/a", res.Media.AudioURL)
}

func TestMediaService_Resolve_ContentIDFailureAborts(t *testing.T) {
	platform := new(MockMediaPlatform)
	creds := new(MockCredentialRepository)
	svc := newTestMediaService(t, platform, creds)

	platform.On("ResolveContentID", mock.Anything, "BV1HfK3zPEHE", "").
		Return(domain.ContentID(""), errors.New("pagelist unreachable"))

	_, err := svc.Resolve(context.Background(), "BV1HfK3zPEHE", "", publicGrant())
	assert.Error(t, err)
	platform.AssertNotCalled(t, "ResolveMedia", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMediaService_Resolve_ElevatedGrantAttachesCredential(t *testing.T) {
	platform := new(MockMediaPlatform)
	creds := new(MockCredentialRepository)
	svc := newTestMediaService(t, platform, creds)

	grant := domain.AccessGrant{Tier: "1080p limit", QualityCeiling: domain.Quality1080p, Elevated: true}
	creds.On("Get", mock.Anything).Return(&domain.Credential{
		Blob:      "SESSDATA=abc",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil)

	platform.On("ResolveContentID", mock.Anything, "BV1HfK3zPEHE", "SESSDATA=abc").Return(domain.ContentID("9001"), nil)
	platform.On("FetchMetadata", mock.Anything, "BV1HfK3zPEHE", "SESSDATA=abc").Return(&domain.VideoMetadata{}, nil)
	platform.On("ResolveMedia", mock.Anything, "BV1HfK3zPEHE", domain.ContentID("9001"), domain.Quality1080p, "SESSDATA=abc").
		Return(&domain.ResolvedMedia{VideoURL: "v", AudioURL: "a"}, nil)

	res, err := svc.Resolve(context.Background(), "BV1HfK3zPEHE", domain.Quality1080p, grant)
	assert.NoError(t, err)
	assert.Equal(t, domain.Quality1080p, res.Quality)
}

func TestMediaService_Resolve_CredentialRaceDegradesToAnonymous(t *testing.T) {
	platform := new(MockMediaPlatform)
	creds := new(MockCredentialRepository)
	svc := newTestMediaService(t, platform, creds)

	// The credential was deleted between classification and resolution.
	grant := domain.AccessGrant{Tier: "1080p limit", QualityCeiling: domain.Quality1080p, Elevated: true}
	creds.On("Get", mock.Anything).Return(nil, domain.ErrCredentialNotFound)

	platform.On("ResolveContentID", mock.Anything, "BV1HfK3zPEHE", "").Return(domain.ContentID("9001"), nil)
	platform.On("FetchMetadata", mock.Anything, "BV1HfK3zPEHE", "").Return(&domain.VideoMetadata{}, nil)
	platform.On("ResolveMedia", mock.Anything, "BV1HfK3zPEHE", domain.ContentID("9001"), domain.Quality1080p, "").
		Return(&domain.ResolvedMedia{VideoURL: "v", AudioURL: "a"}, nil)

	_, err := svc.Resolve(context.Background(), "BV1HfK3zPEHE", domain.Quality1080p, grant)
	assert.NoError(t, err)
}
