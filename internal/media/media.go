// Package media validates user images and names the objects they are stored under.
package media

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/xkdemo/moments/pkg/config"
)

var (
	ErrEmpty           = errors.New("image is empty")
	ErrTooLarge        = errors.New("image exceeds maximum size")
	ErrUnsupportedType = errors.New("unsupported image type")
)

// Image is an image as received from the client. ContentType is what the client
// claimed; Validate replaces it with the detected type.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

type Policy struct {
	MaxSize      int64
	AllowedTypes []string
	MomentPrefix string
	AvatarPrefix string
	Clock        clockwork.Clock
}

func NewPolicy(cfg *config.Config, clock clockwork.Clock) *Policy {
	return &Policy{
		MaxSize:      cfg.Storage.MaxFileSize,
		AllowedTypes: cfg.Storage.AllowedTypes,
		MomentPrefix: cfg.Storage.MomentPrefix,
		AvatarPrefix: cfg.Storage.AvatarPrefix,
		Clock:        clock,
	}
}

// Validate sniffs the bytes and returns a copy of img carrying the detected
// content type and file extension.
func (p *Policy) Validate(img Image) (Image, error) {
	if len(img.Data) == 0 {
		return Image{}, ErrEmpty
	}
	if p.MaxSize > 0 && int64(len(img.Data)) > p.MaxSize {
		return Image{}, fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, len(img.Data), p.MaxSize)
	}

	mtype := mimetype.Detect(img.Data)
	allowed := false
	for _, t := range p.AllowedTypes {
		if mtype.Is(strings.TrimSpace(t)) {
			allowed = true
			break
		}
	}
	if !allowed {
		return Image{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	return Image{
		Data:        img.Data,
		ContentType: mtype.String(),
		Extension:   mtype.Extension(),
	}, nil
}

// MomentPath is <moments prefix>/<userID>/<unix>_<uuid><ext>.
func (p *Policy) MomentPath(userID string, img Image) string {
	return fmt.Sprintf("%s/%s/%d_%s%s", p.MomentPrefix, userID, p.Clock.Now().Unix(), uuid.NewString(), ext(img))
}

// AvatarPath is <avatars prefix>/<userID>_<unix><ext>.
func (p *Policy) AvatarPath(userID string, img Image) string {
	return fmt.Sprintf("%s/%s_%d%s", p.AvatarPrefix, userID, p.Clock.Now().Unix(), ext(img))
}

func ext(img Image) string {
	if img.Extension != "" {
		return img.Extension
	}
	return ".jpg"
}
