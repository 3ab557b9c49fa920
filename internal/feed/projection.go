package feed

import (
	"time"

	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/pkg/formatter"
)

// Item is the display form of a moment. Items are rebuilt on every load.
type Item struct {
	ID              string `json:"id"`
	AuthorName      string `json:"author_name"`
	AuthorAvatarURL string `json:"author_avatar_url"` // "" means default avatar
	DisplayTime     string `json:"display_time"`
	BodyText        string `json:"body_text"`
	ImageURL        string `json:"image_url,omitempty"`
}

// Project derives an Item from m. It never fails: an unparseable timestamp is shown as is.
func Project(m domain.Moment, loc *time.Location) Item {
	item := Item{
		AuthorName:  m.AuthorName,
		DisplayTime: formatter.FormatDisplayTime(m.PublishedAt, loc),
		BodyText:    m.BodyText,
	}
	if m.ID != nil {
		item.ID = m.ID.String()
	}
	if m.AuthorAvatarURL != nil {
		item.AuthorAvatarURL = *m.AuthorAvatarURL
	}
	if m.ImageURL != nil {
		item.ImageURL = *m.ImageURL
	}
	return item
}
