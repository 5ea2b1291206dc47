package webhook

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	webhookService "uploadtrack-backend/internal/service/webhook"
	"uploadtrack-backend/pkg/metrics"
	"uploadtrack-backend/pkg/response"
)

// Header names used by UploadThing callbacks
const (
	SignatureHeader = "x-uploadthing-signature"
	HookHeader      = "uploadthing-hook"
)

// Handler handles webhook HTTP requests
type Handler struct {
	webhookService *webhookService.Service
	metrics        *metrics.Metrics
}

// NewHandler creates a new webhook handler
func NewHandler(svc *webhookService.Service, m *metrics.Metrics) *Handler {
	return &Handler{
		webhookService: svc,
		metrics:        m,
	}
}

// HandleUploadThing ingests one signed callback.
// The body must be read raw: the signature covers the exact bytes sent,
// so any re-serialization before verification would break it
// POST /v1/webhooks/uploadthing
func (h *Handler) HandleUploadThing(c *gin.Context) {
	sig := c.GetHeader(SignatureHeader)
	hook := c.GetHeader(HookHeader)
	if sig == "" || hook == "" {
		response.ValidationError(c, "Missing signature or hook header")
		return
	}

	rawBody, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.ValidationError(c, "Failed to read request body")
		return
	}

	result, err := h.webhookService.HandleCallback(c.Request.Context(), rawBody, sig, hook, nil)
	if err != nil {
		h.metrics.RecordWebhookCallback(hook, "error")
		response.InternalError(c, "Failed to process callback")
		return
	}

	if !result.OK {
		h.metrics.RecordWebhookCallback(hook, result.Error)
		response.Error(c, http.StatusBadRequest, "CALLBACK_REJECTED", result.Error)
		return
	}

	h.metrics.RecordWebhookCallback(hook, "ok")
	response.Success(c, http.StatusOK, result)
}
