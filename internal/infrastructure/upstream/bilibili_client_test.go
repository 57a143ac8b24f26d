package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"biligate/internal/core/domain"
	"biligate/pkg/config"
	apperrors "biligate/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig()
	cfg.Upstream.PagelistURL = srv.URL + "/x/player/pagelist"
	cfg.Upstream.ViewURL = srv.URL + "/x/web-interface/view"
	cfg.Upstream.PlayURL = srv.URL + "/x/player/wbi/playurl"
	cfg.Upstream.UserInfoURL = srv.URL + "/x/space/myinfo"
	cfg.Upstream.Timeout = 2 * time.Second

	return NewClient(cfg, nil, zaptest.NewLogger(t).Sugar()), srv
}

func TestResolveContentID(t *testing.T) {
	var gotCookie string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/x/player/pagelist", r.URL.Path)
		assert.Equal(t, "BV1HfK3zPEHE", r.URL.Query().Get("bvid"))
		assert.NotEmpty(t, r.Header.Get("Referer"))
		gotCookie = r.Header.Get("Cookie")
		w.Write([]byte(`{"code":0,"data":[{"cid":123456789,"page":1}]}`))
	}))

	cid, err := client.ResolveContentID(context.Background(), "BV1HfK3zPEHE", "SESSDATA=abc")
	require.NoError(t, err)
	assert.Equal(t, domain.ContentID("123456789"), cid)
	assert.Equal(t, "SESSDATA=abc", gotCookie)
}

func TestResolveContentID_MissingCidIsNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":-404,"message":"啥都木有","data":null}`))
	}))

	_, err := client.ResolveContentID(context.Background(), "BV1HfK3zPEHE", "")
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
}

func TestResolveContentID_TransportErrorIsUpstreamUnavailable(t *testing.T) {
	client, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := client.ResolveContentID(context.Background(), "BV1HfK3zPEHE", "")
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeUpstreamUnavailable, appErr.Code)
	assert.Equal(t, http.StatusGatewayTimeout, appErr.HTTPStatus)
}

func TestFetchMetadata_DefensiveFieldFallbacks(t *testing.T) {
	// Owner block and pubdate are absent; the parse must not fail.
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/x/web-interface/view", r.URL.Path)
		w.Write([]byte(`{"code":0,"data":{"title":"some video","duration":120}}`))
	}))

	meta, err := client.FetchMetadata(context.Background(), "BV1HfK3zPEHE", "")
	require.NoError(t, err)
	assert.Equal(t, "some video", meta.Title)
	assert.Equal(t, int64(120), meta.Duration)
	assert.Equal(t, "", meta.Author)
	assert.Equal(t, "", meta.Cover)
	assert.Equal(t, int64(0), meta.PubDate)
}

func TestFetchMetadata_UpstreamCodeIsNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":62002,"message":"稿件不可见"}`))
	}))

	_, err := client.FetchMetadata(context.Background(), "BV1HfK3zPEHE", "")
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeNotFound, appErr.Code)
}

func TestResolveMedia(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/x/player/wbi/playurl", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "64", q.Get("qn"))
		assert.Equal(t, "BROWSER", q.Get("from_client"))
		assert.Equal(t, "4048", q.Get("fnval"))
		assert.Equal(t, "987", q.Get("cid"))
		w.Write([]byte(`{"code":0,"data":{"dash":{
			"video":[{"id":64,"baseUrl":"https://cdn.example/v.m4s"}],
			"audio":[{"id":30280,"baseUrl":"https://cdn.example/a.m4s"}]
		}}}`))
	}))

	media, err := client.ResolveMedia(context.Background(), "BV1HfK3zPEHE", "987", domain.Quality720p, "")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v.m4s", media.VideoURL)
	assert.Equal(t, "https://cdn.example/a.m4s", media.AudioURL)
}

func TestResolveMedia_UnknownQualitySubstitutesDefault(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, domain.DefaultQuality, r.URL.Query().Get("qn"))
		w.Write([]byte(`{"code":0,"data":{"dash":{
			"video":[{"baseUrl":"https://cdn.example/v.m4s"}],
			"audio":[{"baseUrl":"https://cdn.example/a.m4s"}]
		}}}`))
	}))

	_, err := client.ResolveMedia(context.Background(), "BV1HfK3zPEHE", "987", "9999", "")
	require.NoError(t, err)
}

func TestResolveMedia_EmptyManifestIsNoPlayableStream(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":0,"data":{"dash":{"video":[],"audio":[]}}}`))
	}))

	_, err := client.ResolveMedia(context.Background(), "BV1HfK3zPEHE", "987", domain.Quality720p, "")
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeNoPlayableStream, appErr.Code)
}

func TestResolveMedia_MissingDashIsNoPlayableStream(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":-10403,"message":"大会员专享限制"}`))
	}))

	_, err := client.ResolveMedia(context.Background(), "BV1HfK3zPEHE", "987", domain.Quality4K, "")
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeNoPlayableStream, appErr.Code)
}

func TestResolveMedia_NonSuccessStatusPropagated(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPreconditionFailed)
	}))

	_, err := client.ResolveMedia(context.Background(), "BV1HfK3zPEHE", "987", domain.Quality720p, "")
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeUpstreamError, appErr.Code)
	assert.Equal(t, 412, appErr.Context["upstream_status"])
}

func TestVerifyCredential(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/x/space/myinfo", r.URL.Path)
		if r.Header.Get("Cookie") == "SESSDATA=good" {
			w.Write([]byte(`{"code":0,"data":{"mid":424242,"name":"someone"}}`))
			return
		}
		w.Write([]byte(`{"code":-101,"message":"账号未登录"}`))
	}))

	owner, err := client.VerifyCredential(context.Background(), "SESSDATA=good")
	require.NoError(t, err)
	assert.Equal(t, "424242", owner)

	_, err = client.VerifyCredential(context.Background(), "SESSDATA=stale")
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusUnauthorized, appErr.HTTPStatus)
}
