package domain

// TrackerConfig is the stored tracker configuration
// It is loaded from the store and passed explicitly into TTL and cleanup
// computations; there is no process-wide singleton
type TrackerConfig struct {
	UploadthingAPIKey    *string          `json:"uploadthing_api_key,omitempty"`
	DefaultTTLMs         *int64           `json:"default_ttl_ms,omitempty"`
	TTLByMimeType        map[string]int64 `json:"ttl_by_mime_type,omitempty"`
	TTLByFileType        map[string]int64 `json:"ttl_by_file_type,omitempty"`
	DeleteRemoteOnExpire *bool            `json:"delete_remote_on_expire,omitempty"`
	DeleteBatchSize      *int             `json:"delete_batch_size,omitempty"`
}

// RemoteDeleteEnabled reports whether expired files should also be removed
// from the upload service
func (c *TrackerConfig) RemoteDeleteEnabled() bool {
	return c.DeleteRemoteOnExpire != nil && *c.DeleteRemoteOnExpire
}

// Merge overlays the supplied fields of update onto c (shallow overwrite)
func (c *TrackerConfig) Merge(update *TrackerConfig) {
	if update.UploadthingAPIKey != nil {
		c.UploadthingAPIKey = update.UploadthingAPIKey
	}
	if update.DefaultTTLMs != nil {
		c.DefaultTTLMs = update.DefaultTTLMs
	}
	if update.TTLByMimeType != nil {
		c.TTLByMimeType = update.TTLByMimeType
	}
	if update.TTLByFileType != nil {
		c.TTLByFileType = update.TTLByFileType
	}
	if update.DeleteRemoteOnExpire != nil {
		c.DeleteRemoteOnExpire = update.DeleteRemoteOnExpire
	}
	if update.DeleteBatchSize != nil {
		c.DeleteBatchSize = update.DeleteBatchSize
	}
}

// RedactedConfig is TrackerConfig with the API key reduced to a presence flag,
// safe to return from read endpoints
type RedactedConfig struct {
	DefaultTTLMs         *int64           `json:"default_ttl_ms,omitempty"`
	TTLByMimeType        map[string]int64 `json:"ttl_by_mime_type,omitempty"`
	TTLByFileType        map[string]int64 `json:"ttl_by_file_type,omitempty"`
	DeleteRemoteOnExpire *bool            `json:"delete_remote_on_expire,omitempty"`
	DeleteBatchSize      *int             `json:"delete_batch_size,omitempty"`
	HasAPIKey            bool             `json:"has_api_key"`
}

// Redact strips the secret from a TrackerConfig
func (c *TrackerConfig) Redact() *RedactedConfig {
	return &RedactedConfig{
		DefaultTTLMs:         c.DefaultTTLMs,
		TTLByMimeType:        c.TTLByMimeType,
		TTLByFileType:        c.TTLByFileType,
		DeleteRemoteOnExpire: c.DeleteRemoteOnExpire,
		DeleteBatchSize:      c.DeleteBatchSize,
		HasAPIKey:            c.UploadthingAPIKey != nil && *c.UploadthingAPIKey != "",
	}
}
