package domain

import "github.com/google/uuid"

type Profile struct {
	ID        uuid.UUID
	Nickname  *string
	AvatarURL *string
	CreatedAt *string
	UpdatedAt *string
}
