// Package access decides whether a viewer may see a file.
// The resolution is a pure function over the owner, the viewer and the
// effective rule; it performs no lookups and has no side effects.
package access

import (
	"strings"

	"uploadtrack-backend/internal/domain"
)

// CanAccess resolves visibility for one file.
// Order matters: owner short-circuit, file rule over folder rule, deny list
// before any visibility logic.
func CanAccess(ownerID string, viewerID *string, fileRule, folderRule *domain.AccessRule) bool {
	if viewerID != nil && *viewerID == ownerID {
		return true
	}

	rule := fileRule
	if rule == nil {
		rule = folderRule
	}
	if rule == nil {
		return false
	}

	if viewerID != nil && contains(rule.DenyUserIDs, *viewerID) {
		return false
	}

	if rule.Visibility == domain.VisibilityPublic {
		return true
	}

	if viewerID == nil {
		return false
	}

	switch rule.Visibility {
	case domain.VisibilityPrivate:
		return false
	case domain.VisibilityRestricted:
		return contains(rule.AllowUserIDs, *viewerID)
	}

	return false
}

// SanitizeRule de-duplicates both id lists, drops blank entries and
// normalizes empty lists to absent. A nil rule stays nil.
func SanitizeRule(rule *domain.AccessRule) *domain.AccessRule {
	if rule == nil {
		return nil
	}
	return &domain.AccessRule{
		Visibility:   rule.Visibility,
		AllowUserIDs: uniqueNonBlank(rule.AllowUserIDs),
		DenyUserIDs:  uniqueNonBlank(rule.DenyUserIDs),
	}
}

func uniqueNonBlank(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
