// Package perm computes the access level a user holds on a shared entity.
// Every permission decision in Wunjo goes through Resolve so the policy
// lives in exactly one place.
package perm

// Level is the derived permission of one user relative to one entity.
// Levels are ordered: a higher level implies every lower one.
type Level int

const (
	None Level = iota
	View
	Edit
	Owner
)

func (l Level) String() string {
	switch l {
	case View:
		return "view"
	case Edit:
		return "edit"
	case Owner:
		return "owner"
	default:
		return "none"
	}
}

// CanView reports whether the level allows reading the entity.
func (l Level) CanView() bool { return l >= View }

// CanEdit reports whether the level allows modifying the entity's fields.
func (l Level) CanEdit() bool { return l >= Edit }

// Grants accepted by the share operation. GrantEdit and GrantManage both
// place the grantee in the can_edit set; GrantManage is kept distinct for
// forward compatibility with per-folder administration.
const (
	GrantView   = "view"
	GrantEdit   = "edit"
	GrantManage = "manage"
)

// ValidGrant reports whether s names a known share grant.
func ValidGrant(s string) bool {
	return s == GrantView || s == GrantEdit || s == GrantManage
}

// GrantsEdit reports whether the grant places the grantee in can_edit.
func GrantsEdit(s string) bool {
	return s == GrantEdit || s == GrantManage
}

// Resolve computes the level of userID on an entity described by its owner
// and sharing sets. Membership in canEdit does not require membership in
// sharedWith; either set alone is enough to see the entity.
func Resolve(ownerID string, sharedWith, canEdit []string, userID string) Level {
	if userID == "" {
		return None
	}
	if userID == ownerID {
		return Owner
	}
	for _, id := range canEdit {
		if id == userID {
			return Edit
		}
	}
	for _, id := range sharedWith {
		if id == userID {
			return View
		}
	}
	return None
}
