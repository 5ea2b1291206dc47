package domain

// Visibility is the access tier of a rule
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilityPrivate    Visibility = "private"
	VisibilityRestricted Visibility = "restricted"
)

// Valid reports whether v is one of the known visibility tiers
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityRestricted:
		return true
	}
	return false
}

// AccessRule controls who may see a file or a folder
// AllowUserIDs is only meaningful for restricted visibility,
// DenyUserIDs applies to every tier
type AccessRule struct {
	Visibility   Visibility `json:"visibility"`
	AllowUserIDs []string   `json:"allow_user_ids,omitempty"`
	DenyUserIDs  []string   `json:"deny_user_ids,omitempty"`
}

// FolderRule is the folder-level access rule, at most one per folder
type FolderRule struct {
	ID        string     `json:"id" db:"id"`
	Folder    string     `json:"folder" db:"folder"`
	Access    AccessRule `json:"access" db:"access"`
	UpdatedAt int64      `json:"updated_at" db:"updated_at"` // Epoch ms
}
