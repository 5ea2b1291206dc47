package domain

// CleanupReport is the outcome of one cleanup invocation
// DeletedCount counts local deletions actually performed; it is zero for
// dry runs and for runs aborted by a remote-delete failure
type CleanupReport struct {
	DeletedCount int      `json:"deleted_count"`
	Keys         []string `json:"keys"`
	HasMore      bool     `json:"has_more"`

	// Remote deletion details, only populated when remote deletion was attempted
	RemoteDeletedCount *int   `json:"remote_deleted_count,omitempty"`
	RemoteDeleteFailed bool   `json:"remote_delete_failed,omitempty"`
	RemoteDeleteError  string `json:"remote_delete_error,omitempty"`
}

// CallbackResult is the boolean-ish outcome of one webhook callback,
// consumed by the HTTP layer to pick 200 vs 400
type CallbackResult struct {
	OK     bool   `json:"ok"`
	FileID string `json:"file_id,omitempty"`
	Hook   string `json:"hook,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Webhook failure tags, stable across senders
const (
	CallbackErrInvalidSignature  = "invalid_signature"
	CallbackErrInvalidJSON       = "invalid_json"
	CallbackErrMissingFileFields = "missing_file_fields"
	CallbackErrMissingUserID     = "missing_user_id"
)
