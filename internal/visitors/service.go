package visitors

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"

	"receptionist/internal/artifact"
	"receptionist/internal/schedule"
	"receptionist/pkg/logging"
)

// DefaultMaxImageBytes caps uploaded face images at 5MB.
const DefaultMaxImageBytes = 5 * 1024 * 1024

// Accepted image types by magic bytes.
var imageMagic = map[string][]byte{
	"image/jpeg": {0xff, 0xd8, 0xff},
	"image/png":  {0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'},
	"image/gif":  []byte("GIF89a"),
}

// RegisterRequest is a visitor check-in intent.
type RegisterRequest struct {
	Name    string
	Purpose string
	Company string
	Image   []byte
}

// Service validates and records visitor check-ins.
type Service struct {
	repo     Repository
	blobs    artifact.BlobStore
	maxBytes int64
	logger   *logging.Logger
	now      func() time.Time
}

// NewService builds the check-in service. blobs may be nil when image capture
// is disabled.
func NewService(repo Repository, blobs artifact.BlobStore, maxBytes int64, logger *logging.Logger) *Service {
	if repo == nil {
		panic("visitors: repository required")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, blobs: blobs, maxBytes: maxBytes, logger: logger, now: time.Now}
}

// Register checks in a visitor. Image validation happens before any write;
// storage faults map to OPERATION_FAILED.
func (s *Service) Register(ctx context.Context, req RegisterRequest) schedule.Result {
	name := sanitize(req.Name)
	purpose := sanitize(req.Purpose)
	company := sanitize(req.Company)
	if name == "" || purpose == "" {
		return schedule.Fail(schedule.KindOperationFailed, "Visitor name and purpose are required.")
	}

	visitor := Visitor{
		Name:        name,
		Purpose:     purpose,
		Company:     company,
		CheckInTime: s.now().UTC(),
	}

	if len(req.Image) > 0 {
		contentType, failure := validateImage(req.Image, s.maxBytes)
		if failure != nil {
			s.logger.Warn("invalid visitor image rejected", "visitor", name, "error", failure.Message)
			return *failure
		}
		if s.blobs != nil {
			key := fmt.Sprintf("visitor_%s%s", uuid.NewString(), extensionFor(contentType))
			ref, err := s.blobs.Put(ctx, key, contentType, req.Image)
			if err != nil {
				s.logger.Error("visitor image storage failed", "error", err, "visitor", name)
				return schedule.Fail(schedule.KindOperationFailed, fmt.Sprintf("Failed to save visitor image: %v", err))
			}
			visitor.ImageRef = ref
		}
	}

	if err := s.repo.Create(ctx, &visitor); err != nil {
		s.logger.Error("visitor registration failed", "error", err, "visitor", name)
		return schedule.Fail(schedule.KindOperationFailed, fmt.Sprintf("Failed to register visitor: %v", err))
	}

	s.logger.Info("visitor registered", "visitor", name, "company", company, "purpose", purpose)
	return schedule.Ok(fmt.Sprintf("Visitor %s registered successfully at %s.",
		name, visitor.CheckInTime.Format("2006-01-02 15:04")))
}

// List returns recent check-ins, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Visitor, error) {
	return s.repo.List(ctx, limit)
}

func validateImage(data []byte, maxBytes int64) (string, *schedule.Result) {
	if int64(len(data)) > maxBytes {
		failure := schedule.Fail(schedule.KindInvalidImage,
			fmt.Sprintf("Image too large. Maximum size is %dMB", maxBytes/(1024*1024)))
		return "", &failure
	}
	for contentType, magic := range imageMagic {
		if bytes.HasPrefix(data, magic) {
			return contentType, nil
		}
	}
	failure := schedule.Fail(schedule.KindInvalidImage, "Invalid image format. Only JPEG, PNG, and GIF are allowed")
	return "", &failure
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}

// sanitize HTML-escapes and trims user-entered text before it reaches
// storage or notifications.
func sanitize(text string) string {
	return html.EscapeString(strings.TrimSpace(text))
}
