package domain

import "github.com/google/uuid"

// Moment is a feed post as stored in the moments table
type Moment struct {
	ID              *uuid.UUID // Assigned by the gateway on insert
	AuthorName      string
	AuthorAvatarURL *string // Nil means default avatar
	PublishedAt     string  // ISO-8601 with fractional seconds
	BodyText        string
	ImageURL        *string
}

// HasID reports whether the moment has been persisted
func (m *Moment) HasID() bool {
	return m.ID != nil
}
