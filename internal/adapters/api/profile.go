package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/felixgeelhaar/lingoflow/internal/ports"
)

// ProfileService implements ports.ProfileService.
type ProfileService struct {
	c *Client
}

// NewProfileService wraps a client.
func NewProfileService(c *Client) *ProfileService {
	return &ProfileService{c: c}
}

// UpdateProfile sends the profile form as multipart data. Empty fields
// are omitted; the avatar is attached when present.
func (s *ProfileService) UpdateProfile(ctx context.Context, update ports.ProfileUpdate) (*ports.User, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"firstName", update.FirstName},
		{"lastName", update.LastName},
		{"selectedLanguage", update.Language},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("failed to encode profile: %w", err)
		}
	}
	if len(update.Avatar) > 0 {
		name := update.AvatarName
		if name == "" {
			name = "avatar"
		}
		part, err := w.CreateFormFile("avatar", name)
		if err != nil {
			return nil, fmt.Errorf("failed to encode avatar: %w", err)
		}
		if _, err := part.Write(update.Avatar); err != nil {
			return nil, fmt.Errorf("failed to encode avatar: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}

	var u ports.User
	err := s.c.call(ctx, http.MethodPut, "profile", &u, authenticated(), rawBody(w.FormDataContentType(), &buf))
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Ensure ProfileService implements ports.ProfileService.
var _ ports.ProfileService = (*ProfileService)(nil)
