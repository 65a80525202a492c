package enums

import "fmt"

// UserGroup maps to the user_group enum in Postgres.
type UserGroup string

const (
	UserGroupUser      UserGroup = "user"
	UserGroupModerator UserGroup = "moderator"
	UserGroupAdmin     UserGroup = "admin"
)

var validUserGroups = []UserGroup{
	UserGroupUser,
	UserGroupModerator,
	UserGroupAdmin,
}

// IsValid checks whether the given group matches the canonical enum.
func (g UserGroup) IsValid() bool {
	for _, candidate := range validUserGroups {
		if candidate == g {
			return true
		}
	}
	return false
}

// CanManageCatalog reports whether the group may mutate catalog entries.
func (g UserGroup) CanManageCatalog() bool {
	return g == UserGroupModerator || g == UserGroupAdmin
}

// ParseUserGroup converts raw strings into UserGroup.
func ParseUserGroup(value string) (UserGroup, error) {
	for _, candidate := range validUserGroups {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user group %q", value)
}
