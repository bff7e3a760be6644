package ports

import "context"

// ProfileUpdate is the form submitted from the profile page. Empty
// fields are left unchanged by the server.
type ProfileUpdate struct {
	FirstName  string
	LastName   string
	Language   string
	AvatarName string
	Avatar     []byte
}

// ProfileService updates the signed-in user's profile.
type ProfileService interface {
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*User, error)
}
