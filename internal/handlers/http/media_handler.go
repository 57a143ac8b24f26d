package http

import (
	"net/http"
	"strings"

	"biligate/internal/core/domain"
	"biligate/internal/core/ports"
	"biligate/internal/infrastructure/proxy"
	"biligate/pkg/errors"
	"biligate/pkg/validation"

	"github.com/gin-gonic/gin"
)

// MediaHandler serves the resolution and streaming endpoints. Every
// route re-classifies the API key; grants are never cached across
// requests.
type MediaHandler struct {
	access ports.AccessService
	media  ports.MediaService
	proxy  *proxy.StreamProxy
}

func NewMediaHandler(access ports.AccessService, media ports.MediaService, streamProxy *proxy.StreamProxy) *MediaHandler {
	return &MediaHandler{
		access: access,
		media:  media,
		proxy:  streamProxy,
	}
}

func (h *MediaHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/bili")
	{
		api.GET("/:bvid", h.Resolve)
		api.GET("/:bvid/info", h.Info)
		api.GET("/:bvid/streams", h.Streams)
		api.GET("/:bvid/proxy-video", h.ProxyVideo)
		api.GET("/:bvid/proxy-audio", h.ProxyAudio)
	}
}

// apiKey reads the key from the query string or the X-API-Key header.
func apiKey(c *gin.Context) string {
	if key := c.Query("key"); key != "" {
		return key
	}
	return c.GetHeader("X-API-Key")
}

// classify validates the bvid and resolves the caller's grant. On
// failure the error is already attached to the context.
func (h *MediaHandler) classify(c *gin.Context) (string, domain.AccessGrant, bool) {
	bvid := strings.TrimSpace(c.Param("bvid"))
	if err := validation.ValidateBvid(bvid); err != nil {
		c.Error(errors.NewInvalidParameterError(err.Error()))
		return "", domain.AccessGrant{}, false
	}

	grant, err := h.access.Classify(c.Request.Context(), apiKey(c))
	if err != nil {
		c.Error(err)
		return "", domain.AccessGrant{}, false
	}
	return bvid, grant, true
}

func (h *MediaHandler) Resolve(c *gin.Context) {
	bvid, grant, ok := h.classify(c)
	if !ok {
		return
	}

	streamType := c.DefaultQuery("type", "video")
	if err := validation.ValidateStreamType(streamType); err != nil {
		c.Error(errors.NewInvalidParameterError(err.Error()))
		return
	}

	res, err := h.media.Resolve(c.Request.Context(), bvid, c.Query("quality"), grant)
	if err != nil {
		c.Error(err)
		return
	}

	switch streamType {
	case "video":
		if res.Media.VideoURL == "" {
			c.Error(errors.NewNoPlayableStreamError().WithContext("bvid", bvid))
			return
		}
		c.Redirect(http.StatusFound, res.Media.VideoURL)
	case "audio":
		if res.Media.AudioURL == "" {
			c.Error(errors.NewNoPlayableStreamError().WithContext("bvid", bvid))
			return
		}
		c.Redirect(http.StatusFound, res.Media.AudioURL)
	case "raw":
		c.JSON(http.StatusOK, gin.H{
			"info":         res.Metadata,
			"video_url":    res.Media.VideoURL,
			"audio_url":    res.Media.AudioURL,
			"api_level":    res.Tier,
			"quality_used": res.Quality,
		})
	}
}

func (h *MediaHandler) Info(c *gin.Context) {
	bvid, grant, ok := h.classify(c)
	if !ok {
		return
	}

	meta, err := h.media.Metadata(c.Request.Context(), bvid, grant)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (h *MediaHandler) Streams(c *gin.Context) {
	bvid, grant, ok := h.classify(c)
	if !ok {
		return
	}

	res, err := h.media.Resolve(c.Request.Context(), bvid, c.Query("quality"), grant)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"info":         res.Metadata,
		"video_url":    res.Media.VideoURL,
		"audio_url":    res.Media.AudioURL,
		"api_level":    res.Tier,
		"quality_used": res.Quality,
	})
}

func (h *MediaHandler) ProxyVideo(c *gin.Context) {
	h.proxyStream(c, func(media *domain.ResolvedMedia) string {
		return media.VideoURL
	})
}

func (h *MediaHandler) ProxyAudio(c *gin.Context) {
	h.proxyStream(c, func(media *domain.ResolvedMedia) string {
		return media.AudioURL
	})
}

func (h *MediaHandler) proxyStream(c *gin.Context, pick func(*domain.ResolvedMedia) string) {
	bvid, grant, ok := h.classify(c)
	if !ok {
		return
	}

	res, err := h.media.Resolve(c.Request.Context(), bvid, c.Query("quality"), grant)
	if err != nil {
		c.Error(err)
		return
	}

	target := pick(res.Media)
	if target == "" {
		c.Error(errors.NewNoPlayableStreamError().WithContext("bvid", bvid))
		return
	}

	if err := h.proxy.Stream(c.Writer, c.Request, target); err != nil {
		c.Error(err)
	}
}
