package files

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"uploadtrack-backend/internal/domain"
	"uploadtrack-backend/internal/middleware"
	filesService "uploadtrack-backend/internal/service/files"
	"uploadtrack-backend/pkg/metrics"
	"uploadtrack-backend/pkg/response"
)

// Handler handles file record HTTP requests
type Handler struct {
	filesService *filesService.Service
	metrics      *metrics.Metrics
}

// NewHandler creates a new files handler
func NewHandler(svc *filesService.Service, m *metrics.Metrics) *Handler {
	return &Handler{
		filesService: svc,
		metrics:      m,
	}
}

// UpsertRequest represents a direct upsert-by-key request
type UpsertRequest struct {
	File    domain.FileInfo      `json:"file" binding:"required"`
	UserID  string               `json:"user_id" binding:"required"`
	Options domain.UpsertOptions `json:"options"`
}

// Upsert creates or replaces a file record by key
// POST /v1/files
func (h *Handler) Upsert(c *gin.Context) {
	var req UpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	id, created, err := h.filesService.UpsertFile(c.Request.Context(), req.File, req.UserID, req.Options)
	if err != nil {
		response.InternalError(c, "Failed to upsert file record")
		return
	}

	kind := "replace"
	status := http.StatusOK
	if created {
		kind = "insert"
		status = http.StatusCreated
	}
	h.metrics.RecordFileUpsert(kind)

	response.Success(c, status, gin.H{
		"file_id": id,
		"created": created,
	})
}

// Get retrieves one record by key, enforcing access rules
// GET /v1/files/:key
func (h *Handler) Get(c *gin.Context) {
	key := c.Param("key")
	viewerID := middleware.ViewerID(c)

	record, err := h.filesService.GetFileByKey(c.Request.Context(), key, viewerID)
	if err != nil {
		response.InternalError(c, "Failed to get file record")
		return
	}
	if record == nil {
		// Denied and absent are indistinguishable on purpose
		response.NotFound(c, "File not found")
		return
	}

	response.Success(c, http.StatusOK, record)
}

// List returns an owner's records with optional filters
// GET /v1/files?owner=...&mime_type=...&tag=...&folder=...&include_expired=...&limit=...
func (h *Handler) List(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "" {
		response.ValidationError(c, "owner query parameter is required")
		return
	}

	q := domain.ListFilesQuery{
		OwnerUserID:    owner,
		ViewerUserID:   middleware.ViewerID(c),
		MimeType:       optionalQuery(c, "mime_type"),
		Tag:            optionalQuery(c, "tag"),
		Folder:         optionalQuery(c, "folder"),
		IncludeExpired: c.Query("include_expired") == "true",
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			response.ValidationError(c, "Invalid limit")
			return
		}
		q.Limit = limit
	}

	records, err := h.filesService.ListFiles(c.Request.Context(), q)
	if err != nil {
		response.InternalError(c, "Failed to list files")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"files": records,
		"count": len(records),
	})
}

// AccessRequest carries an access rule update; a null rule clears it
type AccessRequest struct {
	Access *domain.AccessRule `json:"access"`
}

// SetAccess updates the file-level access rule for a key
// PUT /v1/files/:key/access
func (h *Handler) SetAccess(c *gin.Context) {
	key := c.Param("key")

	var req AccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	if req.Access != nil && !req.Access.Visibility.Valid() {
		response.ValidationError(c, "Invalid visibility")
		return
	}

	found, err := h.filesService.SetFileAccess(c.Request.Context(), key, req.Access)
	if err != nil {
		response.InternalError(c, "Failed to set file access")
		return
	}
	if !found {
		response.NotFound(c, "File not found")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"key": key})
}

// SetFolderAccess creates, replaces, or clears the rule for a folder
// PUT /v1/folders/:folder/access
func (h *Handler) SetFolderAccess(c *gin.Context) {
	folder := c.Param("folder")

	var req AccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}
	if req.Access != nil && !req.Access.Visibility.Valid() {
		response.ValidationError(c, "Invalid visibility")
		return
	}

	ruleID, err := h.filesService.SetFolderAccess(c.Request.Context(), folder, req.Access)
	if err != nil {
		response.InternalError(c, "Failed to set folder access")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"folder":  folder,
		"rule_id": ruleID,
		"cleared": req.Access == nil,
	})
}

// DeleteRequest lists the keys to remove
type DeleteRequest struct {
	Keys []string `json:"keys" binding:"required,min=1"`
}

// Delete removes records by key
// DELETE /v1/files
func (h *Handler) Delete(c *gin.Context) {
	var req DeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err.Error())
		return
	}

	deleted, err := h.filesService.DeleteFiles(c.Request.Context(), req.Keys)
	if err != nil {
		response.InternalError(c, "Failed to delete files")
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted_count": deleted})
}

// UsageStats sums a user's tracked uploads
// GET /v1/users/:user_id/usage
func (h *Handler) UsageStats(c *gin.Context) {
	userID := c.Param("user_id")

	stats, err := h.filesService.GetUsageStats(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c, "Failed to get usage stats")
		return
	}

	response.Success(c, http.StatusOK, stats)
}

func optionalQuery(c *gin.Context, name string) *string {
	if value := c.Query(name); value != "" {
		return &value
	}
	return nil
}
