package proxy

import (
	"io"
	"net/http"
	"time"

	"biligate/internal/infrastructure/monitoring"
	"biligate/internal/infrastructure/upstream"
	"biligate/pkg/config"
	apperrors "biligate/pkg/errors"

	"go.uber.org/zap"
)

// passthroughHeaders are copied from the CDN response to the client
// verbatim so byte ranges and seeking keep working end to end.
var passthroughHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
}

// StreamProxy relays CDN media bodies to clients. The client has no
// overall timeout: a stream lives as long as the download does, bounded
// only by the response-header wait and the caller's context.
type StreamProxy struct {
	http    *http.Client
	headers map[string]string
	metrics *monitoring.Collector
	logger  *zap.SugaredLogger
}

func NewStreamProxy(cfg *config.Config, metrics *monitoring.Collector, logger *zap.SugaredLogger) *StreamProxy {
	return &StreamProxy{
		http: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: cfg.Upstream.Timeout,
				MaxIdleConnsPerHost:   16,
				IdleConnTimeout:       90 * time.Second,
			},
		},
		headers: upstream.PlatformHeaders(cfg),
		metrics: metrics,
		logger:  logger,
	}
}

// Stream fetches targetURL and copies its body to w. The inbound Range
// header is forwarded verbatim; 200 and 206 pass through with their
// content headers intact, any other CDN status aborts before a single
// response byte is written.
func (p *StreamProxy) Stream(w http.ResponseWriter, r *http.Request, targetURL string) error {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, targetURL, nil)
	if err != nil {
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "failed to build proxy request", http.StatusInternalServerError)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		p.metrics.IncUpstreamError("cdn")
		return apperrors.NewUpstreamUnavailableError(err).WithContext("endpoint", "cdn")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		p.metrics.IncUpstreamError("cdn")
		return apperrors.NewProxyUpstreamError(resp.StatusCode)
	}

	for _, h := range passthroughHeaders {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(resp.StatusCode)

	p.metrics.ProxyStreamStarted()
	defer p.metrics.ProxyStreamFinished()

	n, err := io.Copy(w, resp.Body)
	p.metrics.AddProxyBytes(n)
	if err != nil {
		// Headers are already out; a copy failure here is usually the
		// client seeking away or closing the player mid-stream.
		if r.Context().Err() != nil {
			p.logger.Debugw("client disconnected mid-stream",
				"bytes_relayed", n,
			)
			return nil
		}
		p.logger.Warnw("stream relay interrupted",
			"bytes_relayed", n,
			"error", err,
		)
	}
	return nil
}
