package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"uploadtrack-backend/internal/domain"
)

func strPtr(s string) *string { return &s }

func rule(v domain.Visibility, allow, deny []string) *domain.AccessRule {
	return &domain.AccessRule{Visibility: v, AllowUserIDs: allow, DenyUserIDs: deny}
}

func TestCanAccess_OwnerAlwaysAllowed(t *testing.T) {
	// Owner wins even against a rule that denies them outright
	denyOwner := rule(domain.VisibilityPrivate, nil, []string{"owner-1"})

	assert.True(t, CanAccess("owner-1", strPtr("owner-1"), denyOwner, nil))
	assert.True(t, CanAccess("owner-1", strPtr("owner-1"), nil, denyOwner))
	assert.True(t, CanAccess("owner-1", strPtr("owner-1"), nil, nil))
}

func TestCanAccess_NoRuleDenies(t *testing.T) {
	assert.False(t, CanAccess("owner-1", strPtr("viewer-1"), nil, nil))
	assert.False(t, CanAccess("owner-1", nil, nil, nil))
}

func TestCanAccess_DenyListOverridesAllowList(t *testing.T) {
	r := rule(domain.VisibilityRestricted, []string{"viewer-1"}, []string{"viewer-1"})
	assert.False(t, CanAccess("owner-1", strPtr("viewer-1"), r, nil))

	// Deny list also applies to public rules
	public := rule(domain.VisibilityPublic, nil, []string{"viewer-1"})
	assert.False(t, CanAccess("owner-1", strPtr("viewer-1"), public, nil))
	assert.True(t, CanAccess("owner-1", strPtr("viewer-2"), public, nil))
}

func TestCanAccess_PublicAllowsAnonymous(t *testing.T) {
	public := rule(domain.VisibilityPublic, nil, nil)
	assert.True(t, CanAccess("owner-1", nil, public, nil))
	assert.True(t, CanAccess("owner-1", strPtr("viewer-1"), public, nil))
}

func TestCanAccess_AnonymousDeniedWhenNotPublic(t *testing.T) {
	assert.False(t, CanAccess("owner-1", nil, rule(domain.VisibilityPrivate, nil, nil), nil))
	assert.False(t, CanAccess("owner-1", nil, rule(domain.VisibilityRestricted, []string{"viewer-1"}, nil), nil))
}

func TestCanAccess_PrivateDeniesNonOwners(t *testing.T) {
	private := rule(domain.VisibilityPrivate, []string{"viewer-1"}, nil)
	assert.False(t, CanAccess("owner-1", strPtr("viewer-1"), private, nil))
}

func TestCanAccess_RestrictedRequiresListing(t *testing.T) {
	restricted := rule(domain.VisibilityRestricted, []string{"viewer-1"}, nil)
	assert.True(t, CanAccess("owner-1", strPtr("viewer-1"), restricted, nil))
	assert.False(t, CanAccess("owner-1", strPtr("viewer-2"), restricted, nil))
}

func TestCanAccess_FileRuleTakesPrecedenceOverFolderRule(t *testing.T) {
	fileRule := rule(domain.VisibilityPrivate, nil, nil)
	folderRule := rule(domain.VisibilityPublic, nil, nil)

	// A more restrictive file rule still wins
	assert.False(t, CanAccess("owner-1", strPtr("viewer-1"), fileRule, folderRule))

	// Folder rule applies only when no file rule exists
	assert.True(t, CanAccess("owner-1", strPtr("viewer-1"), nil, folderRule))
}

func TestSanitizeRule(t *testing.T) {
	sanitized := SanitizeRule(&domain.AccessRule{
		Visibility:   domain.VisibilityRestricted,
		AllowUserIDs: []string{"a", "", "a", "b", "  "},
		DenyUserIDs:  []string{"", ""},
	})

	assert.Equal(t, domain.VisibilityRestricted, sanitized.Visibility)
	assert.Equal(t, []string{"a", "b"}, sanitized.AllowUserIDs)
	assert.Nil(t, sanitized.DenyUserIDs, "empty result set normalizes to absent")
}

func TestSanitizeRule_Nil(t *testing.T) {
	assert.Nil(t, SanitizeRule(nil))
}
