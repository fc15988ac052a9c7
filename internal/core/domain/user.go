package domain

import "github.com/google/uuid"

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleArtist Role = "artist"
)

type User struct {
	ID       uuid.UUID
	Username string
	Email    string
	IsArtist bool
}

// AuthenticatedUser is the identity the core receives from the identity provider.
type AuthenticatedUser struct {
	ID   uuid.UUID
	Role Role
}

func (u AuthenticatedUser) IsArtist() bool {
	return u.Role == RoleArtist
}

func RoleOf(isArtist bool) Role {
	if isArtist {
		return RoleArtist
	}
	return RoleBuyer
}
