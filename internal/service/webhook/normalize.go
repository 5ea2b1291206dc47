package webhook

import (
	"strconv"
	"strings"

	"uploadtrack-backend/internal/domain"
)

// Sender SDKs disagree on field names, so each logical field carries an
// explicit alias table, checked in order. First present alias wins.
var (
	keyAliases      = []string{"key", "fileKey", "id"}
	urlAliases      = []string{"url", "fileUrl"}
	nameAliases     = []string{"name", "filename", "fileName"}
	sizeAliases     = []string{"size", "fileSize"}
	mimeTypeAliases = []string{"type", "mimeType", "contentType"}
	customIDAliases = []string{"customId", "customID"}
	userIDAliases   = []string{"userId", "ownerId", "uploadedBy", "user"}
)

// normalized is a callback payload resolved to the strongly-typed upsert
// inputs
type normalized struct {
	File    domain.FileInfo
	UserID  string
	Options domain.UpsertOptions
}

// normalizeCallback resolves a decoded payload into upsert inputs.
// The file object may sit under a "file" key or at the top level; metadata
// comes from the payload, then the file object, then defaults to empty.
// Returns a failure tag (CallbackErrMissingFileFields or
// CallbackErrMissingUserID) when a required field survives no alias
func normalizeCallback(payload map[string]interface{}) (*normalized, string) {
	file := payload
	if nested, ok := payload["file"].(map[string]interface{}); ok {
		file = nested
	}

	metadata := map[string]interface{}{}
	if m, ok := payload["metadata"].(map[string]interface{}); ok {
		metadata = m
	} else if m, ok := file["metadata"].(map[string]interface{}); ok {
		metadata = m
	}

	key := firstString(file, keyAliases)
	url := firstString(file, urlAliases)
	name := firstString(file, nameAliases)
	size := firstNumber(file, sizeAliases)
	mimeType := firstString(file, mimeTypeAliases)

	if key == nil || url == nil || name == nil || size == nil || mimeType == nil {
		return nil, domain.CallbackErrMissingFileFields
	}

	userID := firstString(metadata, userIDAliases)
	if userID == nil {
		userID = firstString(payload, []string{"userId"})
	}
	if userID == nil {
		return nil, domain.CallbackErrMissingUserID
	}

	fileType := firstString(file, []string{"fileType"})
	if fileType == nil {
		fileType = firstString(metadata, []string{"fileType"})
	}

	return &normalized{
		File: domain.FileInfo{
			Key:      *key,
			URL:      *url,
			Name:     *name,
			Size:     *size,
			MimeType: *mimeType,
			CustomID: firstString(file, customIDAliases),
			FileType: fileType,
		},
		UserID: *userID,
		Options: domain.UpsertOptions{
			Tags:      extractTags(metadata["tags"]),
			Folder:    firstString(metadata, []string{"folder"}),
			Access:    extractAccess(metadata["access"]),
			Metadata:  metadata,
			ExpiresAt: firstNumber(metadata, []string{"expiresAt"}),
			TTLMs:     firstNumber(metadata, []string{"ttlMs"}),
			FileType:  fileType,
		},
	}, ""
}

// firstString returns the first alias bound to a non-empty string
func firstString(m map[string]interface{}, aliases []string) *string {
	for _, alias := range aliases {
		if s, ok := m[alias].(string); ok && s != "" {
			return &s
		}
	}
	return nil
}

// firstNumber returns the first alias bound to a number, coercing numeric
// strings. JSON numbers decode as float64; values are truncated to int64
func firstNumber(m map[string]interface{}, aliases []string) *int64 {
	for _, alias := range aliases {
		switch v := m[alias].(type) {
		case float64:
			n := int64(v)
			return &n
		case string:
			if parsed, err := strconv.ParseFloat(v, 64); err == nil {
				n := int64(parsed)
				return &n
			}
		}
	}
	return nil
}

// extractTags accepts an array of strings or a comma-separated string;
// anything else yields no tags
func extractTags(v interface{}) []string {
	switch tags := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(tags))
		for _, t := range tags {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, part := range strings.Split(tags, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return nil
}

// extractAccess decodes an embedded access rule; malformed rules are
// dropped rather than failing the whole callback. Id lists accept both
// camelCase and snake_case spellings
func extractAccess(v interface{}) *domain.AccessRule {
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil
	}
	visibility := firstString(obj, []string{"visibility"})
	if visibility == nil || !domain.Visibility(*visibility).Valid() {
		return nil
	}
	return &domain.AccessRule{
		Visibility:   domain.Visibility(*visibility),
		AllowUserIDs: firstStringList(obj, []string{"allowUserIds", "allow_user_ids"}),
		DenyUserIDs:  firstStringList(obj, []string{"denyUserIds", "deny_user_ids"}),
	}
}

func firstStringList(m map[string]interface{}, aliases []string) []string {
	for _, alias := range aliases {
		if list, ok := m[alias].([]interface{}); ok {
			out := make([]string, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}
