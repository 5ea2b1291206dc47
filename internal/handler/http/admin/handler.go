package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"uploadtrack-backend/internal/domain"
	cleanupService "uploadtrack-backend/internal/service/cleanup"
	filesService "uploadtrack-backend/internal/service/files"
	"uploadtrack-backend/pkg/metrics"
	"uploadtrack-backend/pkg/response"
)

// Handler handles admin HTTP requests: configuration and cleanup
type Handler struct {
	filesService   *filesService.Service
	cleanupService *cleanupService.Service
	metrics        *metrics.Metrics
}

// NewHandler creates a new admin handler
func NewHandler(files *filesService.Service, cleanup *cleanupService.Service, m *metrics.Metrics) *Handler {
	return &Handler{
		filesService:   files,
		cleanupService: cleanup,
		metrics:        m,
	}
}

// GetConfig returns the stored tracker configuration, API key redacted
// GET /v1/admin/config
func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.filesService.GetConfig(c.Request.Context())
	if err != nil {
		response.InternalError(c, "Failed to get config")
		return
	}
	response.Success(c, http.StatusOK, cfg)
}

// SetConfigRequest carries a configuration write.
// Replace resets the singleton to exactly the supplied fields; otherwise
// supplied fields are merged over the stored ones
type SetConfigRequest struct {
	Config  domain.TrackerConfig `json:"config" binding:"required"`
	Replace bool                 `json:"replace"`
}

// SetConfig writes the tracker configuration
// PUT /v1/admin/config
func (h *Handler) SetConfig(c *gin.Context) {
	var req SetConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	created, err := h.filesService.SetConfig(c.Request.Context(), &req.Config, req.Replace)
	if err != nil {
		response.InternalError(c, "Failed to set config")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"created": created})
}

// RunCleanup executes one cleanup batch
// POST /v1/admin/cleanup
func (h *Handler) RunCleanup(c *gin.Context) {
	var opts cleanupService.Options
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			response.ValidationError(c, err.Error())
			return
		}
	}
	if opts.BatchSize != nil && *opts.BatchSize <= 0 {
		response.ValidationError(c, "batch_size must be positive")
		return
	}

	start := time.Now()
	report, err := h.cleanupService.Run(c.Request.Context(), opts)
	if err != nil {
		h.metrics.RecordCleanupRun("error", 0, 0, time.Since(start))
		response.InternalError(c, "Cleanup run failed")
		return
	}

	outcome := "ok"
	if report.RemoteDeleteFailed {
		outcome = "remote_delete_failed"
	}
	remoteDeleted := 0
	if report.RemoteDeletedCount != nil {
		remoteDeleted = *report.RemoteDeletedCount
	}
	h.metrics.RecordCleanupRun(outcome, report.DeletedCount, remoteDeleted, time.Since(start))

	response.Success(c, http.StatusOK, report)
}
