package http

import (
	"net/http"
	"strings"
	"time"

	"biligate/internal/core/domain"
	"biligate/internal/core/ports"
	"biligate/internal/infrastructure/monitoring"
	"biligate/pkg/config"
	"biligate/pkg/errors"
	"biligate/pkg/utils"
	"biligate/pkg/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionHandler manages the single shared upstream session. Login
// verifies a cookie blob against the platform before caching it; the
// slot is last-writer-wins, so a new login displaces the previous one.
type SessionHandler struct {
	platform ports.MediaPlatform
	creds    ports.CredentialRepository
	cfg      *config.Config
	metrics  *monitoring.Collector
	logger   *zap.SugaredLogger
}

func NewSessionHandler(
	platform ports.MediaPlatform,
	creds ports.CredentialRepository,
	cfg *config.Config,
	metrics *monitoring.Collector,
	logger *zap.SugaredLogger,
) *SessionHandler {
	return &SessionHandler{
		platform: platform,
		creds:    creds,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
}

func (h *SessionHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		api.POST("/login", h.Login)
		api.POST("/logout", h.Logout)
		api.GET("/auth/status", h.Status)
	}
}

type LoginRequest struct {
	Cookies string `json:"cookies" binding:"required"`
}

func (h *SessionHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(errors.NewInvalidParameterError("invalid request format"))
		return
	}

	req.Cookies = strings.TrimSpace(req.Cookies)
	if err := validation.ValidateCredentialBlob(req.Cookies); err != nil {
		c.Error(errors.NewInvalidParameterError(err.Error()))
		return
	}

	// The blob is only cached once the platform confirms it belongs to
	// a live session.
	owner, err := h.platform.VerifyCredential(c.Request.Context(), req.Cookies)
	if err != nil {
		c.Error(err)
		return
	}

	ttl := h.cfg.Access.CredentialTTL
	cred := &domain.Credential{
		Blob:      req.Cookies,
		ExpiresAt: time.Now().Add(ttl),
		OwnerHint: owner,
	}
	if err := h.creds.Put(c.Request.Context(), cred, ttl); err != nil {
		c.Error(errors.NewStoreUnavailableError(err))
		return
	}

	h.metrics.SetCredentialValid(true)
	h.logger.Infow("session established",
		"owner", owner,
		"cookies", utils.MaskSensitive(req.Cookies, 8),
		"expires_at", cred.ExpiresAt,
	)

	c.JSON(http.StatusOK, gin.H{
		"api_key": h.cfg.Access.ProKey,
		"user_id": owner,
	})
}

func (h *SessionHandler) Logout(c *gin.Context) {
	if err := h.creds.Delete(c.Request.Context()); err != nil {
		c.Error(errors.NewStoreUnavailableError(err))
		return
	}

	h.metrics.SetCredentialValid(false)
	h.logger.Info("session cleared")

	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *SessionHandler) Status(c *gin.Context) {
	cred, err := h.creds.Get(c.Request.Context())
	if err != nil {
		h.metrics.SetCredentialValid(false)
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}

	h.metrics.SetCredentialValid(true)
	c.JSON(http.StatusOK, gin.H{
		"active":     true,
		"user_id":    cred.OwnerHint,
		"expires_at": cred.ExpiresAt,
	})
}
