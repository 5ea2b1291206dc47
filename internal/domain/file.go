package domain

import (
	"github.com/google/uuid"
)

// FileRecord is metadata for one file uploaded through UploadThing
// Actual file content lives in the remote upload service; the record is
// keyed by the externally-assigned object key
// Maps to the files table
type FileRecord struct {
	ID         uuid.UUID              `json:"id" db:"id"`
	Key        string                 `json:"key" db:"key"`
	URL        string                 `json:"url" db:"url"`
	Name       string                 `json:"name" db:"name"`
	Size       int64                  `json:"size" db:"size"` // Bytes
	MimeType   string                 `json:"mime_type" db:"mime_type"`
	UploadedAt int64                  `json:"uploaded_at" db:"uploaded_at"` // Epoch ms, set at creation, never on replace
	UserID     string                 `json:"user_id" db:"user_id"`
	Tags       []string               `json:"tags,omitempty" db:"tags"`
	Folder     *string                `json:"folder,omitempty" db:"folder"`
	Access     *AccessRule            `json:"access,omitempty" db:"access"`
	Metadata   map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	ExpiresAt  *int64                 `json:"expires_at,omitempty" db:"expires_at"`   // Epoch ms
	ReplacedAt *int64                 `json:"replaced_at,omitempty" db:"replaced_at"` // Epoch ms, set on every overwrite of an existing key
	CustomID   *string                `json:"custom_id,omitempty" db:"custom_id"`
	FileType   *string                `json:"file_type,omitempty" db:"file_type"` // Logical tag, e.g. "avatar"
}

// Expired reports whether the record is expired at the given instant
func (f *FileRecord) Expired(nowMs int64) bool {
	return f.ExpiresAt != nil && *f.ExpiresAt <= nowMs
}

// HasTag reports whether the record carries the given tag
func (f *FileRecord) HasTag(tag string) bool {
	for _, t := range f.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FileInfo is the identity and content description of an incoming upload
type FileInfo struct {
	Key        string  `json:"key" binding:"required"`
	URL        string  `json:"url" binding:"required"`
	Name       string  `json:"name" binding:"required"`
	Size       int64   `json:"size" binding:"min=0"`
	MimeType   string  `json:"mime_type" binding:"required"`
	UploadedAt *int64  `json:"uploaded_at,omitempty"` // Epoch ms, defaults to write time
	FileType   *string `json:"file_type,omitempty"`
	CustomID   *string `json:"custom_id,omitempty"`
}

// UpsertOptions are the optional per-upsert fields
// A nil field is "not supplied" and leaves the stored value unchanged on replace
type UpsertOptions struct {
	Tags      []string               `json:"tags,omitempty"`
	Folder    *string                `json:"folder,omitempty"`
	Access    *AccessRule            `json:"access,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	ExpiresAt *int64                 `json:"expires_at,omitempty"` // Epoch ms, verbatim override
	TTLMs     *int64                 `json:"ttl_ms,omitempty"`
	FileType  *string                `json:"file_type,omitempty"`
}

// FileWrite carries the fields of one upsert-by-key.
// Optional fields left nil do not touch the stored value on replace
type FileWrite struct {
	File    FileInfo
	UserID  string
	Options UpsertOptions
	NowMs   int64 // Write time, becomes replaced_at on replace
}

// ListCursor marks the position after the last record of a listing page.
// Pages are ordered by (uploaded_at DESC, id DESC); carrying both keeps
// paging stable when records share an upload timestamp or rows shift
// between page reads
type ListCursor struct {
	UploadedAt int64
	ID         uuid.UUID
}

// ListFilesQuery filters a per-owner listing
type ListFilesQuery struct {
	OwnerUserID    string
	ViewerUserID   *string
	MimeType       *string
	Tag            *string
	Folder         *string
	IncludeExpired bool
	Limit          int
}

// UsageStats summarizes one user's tracked uploads
type UsageStats struct {
	TotalFiles int64 `json:"total_files"`
	TotalBytes int64 `json:"total_bytes"`
}
