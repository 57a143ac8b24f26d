package upstream

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"biligate/internal/core/domain"
	"biligate/internal/infrastructure/monitoring"
	"biligate/pkg/config"
	apperrors "biligate/pkg/errors"
	"biligate/pkg/tracing"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// API responses are small JSON documents; anything bigger is upstream
// misbehavior, not a payload we want in memory.
const maxResponseBytes = 4 << 20

// acceptedQualities is the set of qn codes the playurl endpoint accepts.
var acceptedQualities = map[string]bool{
	domain.Quality360p:  true,
	domain.Quality480p:  true,
	domain.Quality720p:  true,
	domain.Quality1080p: true,
	domain.Quality4K:    true,
	domain.QualityAuto:  true,
}

// Client talks to the Bilibili web API. Upstream payloads are treated as
// untrusted and versionable: fields are extracted individually with
// per-field fallbacks instead of strict struct decoding.
type Client struct {
	http    *http.Client
	cfg     *config.Config
	headers map[string]string
	metrics *monitoring.Collector
	logger  *zap.SugaredLogger
}

func NewClient(cfg *config.Config, metrics *monitoring.Collector, logger *zap.SugaredLogger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: cfg.Upstream.Timeout,
		},
		cfg:     cfg,
		headers: PlatformHeaders(cfg),
		metrics: metrics,
		logger:  logger,
	}
}

// PlatformHeaders is the fixed browser-like header set the platform
// expects; without Referer/Origin the CDN rejects requests with 403.
func PlatformHeaders(cfg *config.Config) map[string]string {
	return map[string]string{
		"User-Agent":      cfg.Upstream.UserAgent,
		"Referer":         cfg.Upstream.Referer,
		"Origin":          cfg.Upstream.Origin,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
		"Accept-Language": "zh-CN,zh;q=0.8,en-US;q=0.5,en;q=0.3",
	}
}

func (c *Client) get(ctx context.Context, endpoint, rawURL string, params url.Values, cookies string) ([]byte, int, error) {
	target := rawURL
	if len(params) > 0 {
		target = rawURL + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to build upstream request", http.StatusInternalServerError)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if cookies != "" {
		req.Header.Set("Cookie", cookies)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts and transport failures are indistinguishable to the
		// caller; both surface as UpstreamUnavailable.
		c.metrics.IncUpstreamError(endpoint)
		return nil, 0, apperrors.NewUpstreamUnavailableError(err).WithContext("endpoint", endpoint)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.metrics.IncUpstreamError(endpoint)
		return nil, 0, apperrors.NewUpstreamUnavailableError(err).WithContext("endpoint", endpoint)
	}
	return body, resp.StatusCode, nil
}

func (c *Client) ResolveContentID(ctx context.Context, bvid, cookies string) (domain.ContentID, error) {
	ctx, span := tracing.TraceUpstreamCall(ctx, "pagelist", bvid)
	defer span.End()

	params := url.Values{}
	params.Set("bvid", bvid)

	body, status, err := c.get(ctx, "pagelist", c.cfg.Upstream.PagelistURL, params, cookies)
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", err
	}
	if status != http.StatusOK {
		c.metrics.IncUpstreamError("pagelist")
		return "", apperrors.NewUpstreamStatusError(status)
	}

	cid := gjson.GetBytes(body, "data.0.cid")
	if !cid.Exists() || cid.Int() == 0 {
		c.logger.Debugw("pagelist payload lacks cid",
			"bvid", bvid,
			"upstream_code", gjson.GetBytes(body, "code").Int(),
		)
		return "", apperrors.NewNotFoundError("video").WithContext("bvid", bvid)
	}
	return domain.ContentID(cid.String()), nil
}

func (c *Client) FetchMetadata(ctx context.Context, bvid, cookies string) (*domain.VideoMetadata, error) {
	ctx, span := tracing.TraceUpstreamCall(ctx, "view", bvid)
	defer span.End()

	params := url.Values{}
	params.Set("bvid", bvid)

	body, status, err := c.get(ctx, "view", c.cfg.Upstream.ViewURL, params, cookies)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	if status != http.StatusOK {
		c.metrics.IncUpstreamError("view")
		return nil, apperrors.NewUpstreamStatusError(status)
	}
	if gjson.GetBytes(body, "code").Int() != 0 {
		return nil, apperrors.NewNotFoundError("video").WithContext("bvid", bvid)
	}

	data := gjson.GetBytes(body, "data")
	// Every field is optional upstream; absent strings become "" and
	// absent numbers become 0.
	return &domain.VideoMetadata{
		Bvid:        bvid,
		Title:       data.Get("title").String(),
		Description: data.Get("desc").String(),
		Duration:    data.Get("duration").Int(),
		Author:      data.Get("owner.name").String(),
		Cover:       data.Get("pic").String(),
		PubDate:     data.Get("pubdate").Int(),
	}, nil
}

func (c *Client) ResolveMedia(ctx context.Context, bvid string, cid domain.ContentID, quality, cookies string) (*domain.ResolvedMedia, error) {
	ctx, span := tracing.TraceUpstreamCall(ctx, "playurl", bvid)
	defer span.End()

	// Mirror the negotiator's degrade-not-fail policy: an unknown code
	// is replaced with the platform default instead of erroring.
	if !acceptedQualities[quality] {
		c.logger.Debugw("substituting default quality",
			"requested", quality,
			"default", domain.DefaultQuality,
		)
		quality = domain.DefaultQuality
	}

	params := url.Values{}
	params.Set("from_client", "BROWSER")
	params.Set("bvid", bvid)
	params.Set("cid", string(cid))
	params.Set("qn", quality)
	params.Set("fourk", "1")
	params.Set("fnver", "0")
	params.Set("fnval", "4048")

	body, status, err := c.get(ctx, "playurl", c.cfg.Upstream.PlayURL, params, cookies)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	if status != http.StatusOK {
		c.metrics.IncUpstreamError("playurl")
		return nil, apperrors.NewUpstreamStatusError(status)
	}

	dash := gjson.GetBytes(body, "data.dash")
	if !dash.Exists() {
		c.logger.Warnw("playurl payload lacks dash manifest",
			"bvid", bvid,
			"upstream_code", gjson.GetBytes(body, "code").Int(),
		)
		return nil, apperrors.NewNoPlayableStreamError().WithContext("bvid", bvid)
	}

	videoURL := dash.Get("video.0.baseUrl").String()
	audioURL := dash.Get("audio.0.baseUrl").String()
	if videoURL == "" && audioURL == "" {
		return nil, apperrors.NewNoPlayableStreamError().WithContext("bvid", bvid)
	}

	return &domain.ResolvedMedia{
		VideoURL: videoURL,
		AudioURL: audioURL,
	}, nil
}

// VerifyCredential checks a cookie blob against the platform's own-info
// endpoint and returns the account id as an owner hint.
func (c *Client) VerifyCredential(ctx context.Context, cookies string) (string, error) {
	ctx, span := tracing.TraceUpstreamCall(ctx, "myinfo", "")
	defer span.End()

	body, status, err := c.get(ctx, "myinfo", c.cfg.Upstream.UserInfoURL, nil, cookies)
	if err != nil {
		tracing.RecordError(ctx, err)
		return "", err
	}
	if status != http.StatusOK {
		c.metrics.IncUpstreamError("myinfo")
		return "", apperrors.NewUpstreamStatusError(status)
	}

	if gjson.GetBytes(body, "code").Int() != 0 {
		return "", apperrors.NewAppError(apperrors.ErrCodeInvalidKey, "credential rejected by media platform", http.StatusUnauthorized)
	}
	return gjson.GetBytes(body, "data.mid").String(), nil
}
