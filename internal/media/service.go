package media

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/moviegate/moviegate-backend/pkg/config"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	pkgerrors "github.com/moviegate/moviegate-backend/pkg/errors"
)

const uploadTTL = 15 * time.Minute

type signer interface {
	SignedURL(bucket, object, contentType string, expires time.Duration) (string, error)
}

// Service issues presigned upload URLs for avatar and poster objects. The
// resulting object key is attached to the owning profile or movie in a
// separate call once the upload completes.
type Service interface {
	PresignUpload(userID uuid.UUID, group enums.UserGroup, input PresignInput) (*PresignOutput, error)
}

type service struct {
	gcs    signer
	bucket string
	limits config.MediaConfig
}

// NewService constructs a media service backed by the provided GCS signer.
func NewService(gcsClient signer, bucket string, limits config.MediaConfig) (Service, error) {
	if gcsClient == nil {
		return nil, fmt.Errorf("gcs client required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	return &service{
		gcs:    gcsClient,
		bucket: bucket,
		limits: limits,
	}, nil
}

// PresignInput models the payload required to request an upload URL.
type PresignInput struct {
	Kind      enums.MediaKind
	MimeType  string
	FileName  string
	SizeBytes int64
}

// PresignOutput contains the signed PUT URL and the object key the client
// must reference when attaching the upload.
type PresignOutput struct {
	ObjectKey    string    `json:"object_key"`
	SignedPUTURL string    `json:"signed_put_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (s *service) PresignUpload(userID uuid.UUID, group enums.UserGroup, input PresignInput) (*PresignOutput, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user identity missing")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid media kind")
	}
	if input.Kind == enums.MediaKindPoster && group != enums.UserGroupModerator && group != enums.UserGroupAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "poster uploads require catalog privileges")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}

	maxBytes := s.maxUploadBytes(input.Kind)
	if input.SizeBytes <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "size_bytes must be positive")
	}
	if input.SizeBytes > maxBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("size_bytes exceeds the %d MB limit for %s uploads", maxBytes/(1024*1024), input.Kind))
	}

	mimeType, err := sniffMimeType(input.MimeType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "mime_type invalid")
	}
	if !isAllowedMime(input.Kind, mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type not allowed for media kind")
	}

	objectKey := buildObjectKey(input.Kind, userID, fileName)
	signedURL, err := s.gcs.SignedURL(s.bucket, objectKey, mimeType, uploadTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	return &PresignOutput{
		ObjectKey:    objectKey,
		SignedPUTURL: signedURL,
		ContentType:  mimeType,
		ExpiresAt:    time.Now().Add(uploadTTL),
	}, nil
}

func (s *service) maxUploadBytes(kind enums.MediaKind) int64 {
	mb := s.limits.AvatarMaxUploadMB
	if kind == enums.MediaKindPoster {
		mb = s.limits.PosterMaxUploadMB
	}
	if mb <= 0 {
		mb = 5
	}
	return int64(mb) * 1024 * 1024
}

func buildObjectKey(kind enums.MediaKind, userID uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	uploadID := uuid.New()
	if cleanName == "" {
		cleanName = uploadID.String()
	}
	if kind == enums.MediaKindPoster {
		return fmt.Sprintf("posters/%s/%s", uploadID, cleanName)
	}
	return fmt.Sprintf("avatars/%s/%s/%s", userID, uploadID, cleanName)
}

func sanitizeFileName(name string) string {
	if name == "" {
		return ""
	}
	clean := path.Base(strings.TrimSpace(name))
	if clean == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
