package mapper

import (
	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/internal/gateway"
)

// Column names of the profiles table
const (
	ColNickname  = "nickname"
	ColAvatarURL = "avatar_url"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

// DecodeProfile is stricter than DecodeMoment about the id: profiles are keyed by
// the auth user id, so a row without one is corrupt.
func DecodeProfile(rec gateway.Record) (domain.Profile, error) {
	var p domain.Profile

	id, err := decodeID(rec, ColID)
	if err != nil {
		return p, err
	}
	if id == nil {
		return p, &DecodeError{Kind: MissingRequiredField, Field: ColID}
	}
	p.ID = *id

	if p.Nickname, err = optionalString(rec, ColNickname); err != nil {
		return p, err
	}
	if p.AvatarURL, err = optionalString(rec, ColAvatarURL); err != nil {
		return p, err
	}
	if p.CreatedAt, err = decodeTimestamp(rec, ColCreatedAt); err != nil {
		return p, err
	}
	if p.UpdatedAt, err = decodeTimestamp(rec, ColUpdatedAt); err != nil {
		return p, err
	}
	return p, nil
}

// EncodeProfile omits server-managed timestamps.
func EncodeProfile(p domain.Profile) gateway.Record {
	rec := gateway.Record{ColID: p.ID.String()}
	if p.Nickname != nil {
		rec[ColNickname] = *p.Nickname
	}
	if p.AvatarURL != nil {
		rec[ColAvatarURL] = *p.AvatarURL
	}
	return rec
}
