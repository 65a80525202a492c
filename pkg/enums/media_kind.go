package enums

import "fmt"

// MediaKind distinguishes upload targets in object storage.
type MediaKind string

const (
	MediaKindAvatar MediaKind = "avatar"
	MediaKindPoster MediaKind = "poster"
)

var validMediaKinds = []MediaKind{
	MediaKindAvatar,
	MediaKindPoster,
}

// IsValid checks whether the given kind matches the canonical set.
func (m MediaKind) IsValid() bool {
	for _, candidate := range validMediaKinds {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMediaKind converts raw strings into MediaKind.
func ParseMediaKind(value string) (MediaKind, error) {
	for _, candidate := range validMediaKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid media kind %q", value)
}
