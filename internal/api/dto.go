package api

import (
	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/internal/feed"
	"github.com/xkdemo/moments/internal/session"
)

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type signUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Nickname string `json:"nickname" validate:"required,max=50"`
}

type updateProfileRequest struct {
	Nickname  *string `json:"nickname" validate:"omitempty,min=1,max=50"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

// momentForm is the multipart body of POST /moments; the image travels as a file part.
type momentForm struct {
	Text string `json:"text" validate:"required,max=2000"`
}

type sessionResponse struct {
	LoggedIn  bool   `json:"logged_in"`
	UserID    string `json:"user_id,omitempty"`
	Email     string `json:"email,omitempty"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func toSessionResponse(s session.State) sessionResponse {
	return sessionResponse{
		LoggedIn:  s.LoggedIn,
		UserID:    s.UserID,
		Email:     s.Email,
		Nickname:  s.Nickname,
		AvatarURL: s.AvatarURL,
	}
}

type feedResponse struct {
	Status     string      `json:"status"`
	Generation uint64      `json:"generation"`
	Items      []feed.Item `json:"items"`
}

type feedStateResponse struct {
	Loading    bool        `json:"loading"`
	Generation uint64      `json:"generation"`
	Items      []feed.Item `json:"items"`
	Error      string      `json:"error,omitempty"`
}

func toFeedStateResponse(s feed.State) feedStateResponse {
	resp := feedStateResponse{
		Loading:    s.Loading,
		Generation: s.Generation,
		Items:      s.Items,
	}
	if resp.Items == nil {
		resp.Items = []feed.Item{}
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	return resp
}

type momentResponse struct {
	ID              string  `json:"id"`
	AuthorName      string  `json:"author_name"`
	AuthorAvatarURL *string `json:"author_avatar_url,omitempty"`
	PublishedAt     string  `json:"published_at"`
	BodyText        string  `json:"body_text"`
	ImageURL        *string `json:"image_url,omitempty"`
}

func toMomentResponse(m domain.Moment) momentResponse {
	resp := momentResponse{
		AuthorName:      m.AuthorName,
		AuthorAvatarURL: m.AuthorAvatarURL,
		PublishedAt:     m.PublishedAt,
		BodyText:        m.BodyText,
		ImageURL:        m.ImageURL,
	}
	if m.ID != nil {
		resp.ID = m.ID.String()
	}
	return resp
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
