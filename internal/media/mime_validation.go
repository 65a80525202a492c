package media

import (
	"fmt"
	"mime"
	"strings"

	"github.com/moviegate/moviegate-backend/pkg/enums"
)

var mimeTypesByKind = map[enums.MediaKind][]string{
	enums.MediaKindAvatar: {"image/jpeg", "image/png", "image/webp"},
	enums.MediaKindPoster: {"image/jpeg", "image/png", "image/webp"},
}

func sniffMimeType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", fmt.Errorf("mime type required")
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	if mediaType == "" {
		return "", fmt.Errorf("mime type missing")
	}
	return strings.ToLower(mediaType), nil
}

func isAllowedMime(kind enums.MediaKind, mimeType string) bool {
	for _, candidate := range mimeTypesByKind[kind] {
		if candidate == mimeType {
			return true
		}
	}
	return false
}
