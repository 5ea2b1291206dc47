// Package ttl computes absolute expiration timestamps for file records.
package ttl

import (
	"uploadtrack-backend/internal/domain"
)

// Params are the inputs to one expiration computation.
// NowMs must be the record's effective upload timestamp, not the wall clock
// of the call, so that replacing a record keeps its original TTL basis.
type Params struct {
	NowMs     int64
	MimeType  *string
	FileType  *string
	ExpiresAt *int64 // Explicit override, returned verbatim
	TTLMs     *int64
	Config    *domain.TrackerConfig
}

// ComputeExpiresAt resolves the expiration timestamp, first match wins:
// explicit expiresAt, then ttlMs, then the file-type table, then the
// mime-type table, then the default TTL. Nil means the record never expires.
func ComputeExpiresAt(p Params) *int64 {
	if p.ExpiresAt != nil {
		return p.ExpiresAt
	}
	if p.TTLMs != nil {
		at := p.NowMs + *p.TTLMs
		return &at
	}

	cfg := p.Config
	if cfg == nil {
		return nil
	}

	if p.FileType != nil {
		if ttl, ok := cfg.TTLByFileType[*p.FileType]; ok {
			at := p.NowMs + ttl
			return &at
		}
	}

	if p.MimeType != nil {
		if ttl, ok := cfg.TTLByMimeType[*p.MimeType]; ok {
			at := p.NowMs + ttl
			return &at
		}
	}

	if cfg.DefaultTTLMs != nil {
		at := p.NowMs + *cfg.DefaultTTLMs
		return &at
	}

	return nil
}
