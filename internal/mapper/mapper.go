// Package mapper converts gateway records to domain values and back. It owns the
// normalization of heterogeneous id and timestamp encodings.
package mapper

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/internal/gateway"
	"github.com/xkdemo/moments/pkg/formatter"
)

// Column names of the moments table
const (
	ColID            = "id"
	ColUserName      = "user_name"
	ColUserAvatarURL = "user_avatar_url"
	ColPublishTime   = "publish_time"
	ColContentText   = "content_text"
	ColContentImgURL = "content_img_url"
)

type DecodeErrorKind int

const (
	MalformedID DecodeErrorKind = iota + 1
	MalformedTimestamp
	MissingRequiredField
)

func (k DecodeErrorKind) String() string {
	switch k {
	case MalformedID:
		return "malformed id"
	case MalformedTimestamp:
		return "malformed timestamp"
	case MissingRequiredField:
		return "missing required field"
	}
	return "unknown decode error"
}

var (
	ErrMalformedID          = errors.New("malformed id")
	ErrMalformedTimestamp   = errors.New("malformed timestamp")
	ErrMissingRequiredField = errors.New("missing required field")
)

type DecodeError struct {
	Kind  DecodeErrorKind
	Field string
	Value any
}

func (e *DecodeError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("decode %s: %s (%T %v)", e.Field, e.Kind, e.Value, e.Value)
	}
	return fmt.Sprintf("decode %s: %s", e.Field, e.Kind)
}

func (e *DecodeError) Is(target error) bool {
	switch e.Kind {
	case MalformedID:
		return target == ErrMalformedID
	case MalformedTimestamp:
		return target == ErrMalformedTimestamp
	case MissingRequiredField:
		return target == ErrMissingRequiredField
	}
	return false
}

// IsDecodeError reports whether err came out of this package
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// DecodeMoment normalizes a moments row. A missing id is not an error: it models a
// record the gateway has not assigned an id to yet.
func DecodeMoment(rec gateway.Record) (domain.Moment, error) {
	var m domain.Moment

	id, err := decodeID(rec, ColID)
	if err != nil {
		return m, err
	}
	m.ID = id

	if m.AuthorName, err = requiredString(rec, ColUserName, false); err != nil {
		return m, err
	}
	if m.BodyText, err = requiredString(rec, ColContentText, true); err != nil {
		return m, err
	}
	if m.AuthorAvatarURL, err = optionalString(rec, ColUserAvatarURL); err != nil {
		return m, err
	}
	if m.ImageURL, err = optionalString(rec, ColContentImgURL); err != nil {
		return m, err
	}

	publishedAt, err := decodeTimestamp(rec, ColPublishTime)
	if err != nil {
		return m, err
	}
	if publishedAt == nil {
		return m, &DecodeError{Kind: MissingRequiredField, Field: ColPublishTime}
	}
	m.PublishedAt = *publishedAt

	return m, nil
}

// EncodeMoment is the inverse of DecodeMoment. Absent values are omitted, not nulled,
// so the gateway can assign the id.
func EncodeMoment(m domain.Moment) gateway.Record {
	rec := gateway.Record{
		ColUserName:    m.AuthorName,
		ColPublishTime: m.PublishedAt,
		ColContentText: m.BodyText,
	}
	if m.ID != nil {
		rec[ColID] = m.ID.String()
	}
	if m.AuthorAvatarURL != nil {
		rec[ColUserAvatarURL] = *m.AuthorAvatarURL
	}
	if m.ImageURL != nil {
		rec[ColContentImgURL] = *m.ImageURL
	}
	return rec
}

func decodeID(rec gateway.Record, field string) (*uuid.UUID, error) {
	raw, ok := rec[field]
	if !ok || raw == nil {
		return nil, nil
	}

	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, nil
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, &DecodeError{Kind: MalformedID, Field: field, Value: v}
		}
		return &id, nil
	case uuid.UUID:
		return &v, nil
	case *uuid.UUID:
		return v, nil
	case [16]byte:
		id := uuid.UUID(v)
		return &id, nil
	case pgtype.UUID:
		if !v.Valid {
			return nil, nil
		}
		id := uuid.UUID(v.Bytes)
		return &id, nil
	}
	return nil, &DecodeError{Kind: MalformedID, Field: field, Value: raw}
}

// decodeTimestamp returns nil when the field is absent or null.
func decodeTimestamp(rec gateway.Record, field string) (*string, error) {
	raw, ok := rec[field]
	if !ok || raw == nil {
		return nil, nil
	}

	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case time.Time:
		s = formatter.FormatTimestamp(v)
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		s = formatter.FormatTimestamp(*v)
	case pgtype.Timestamptz:
		if !v.Valid {
			return nil, nil
		}
		if v.InfinityModifier != pgtype.Finite {
			return nil, &DecodeError{Kind: MalformedTimestamp, Field: field, Value: raw}
		}
		s = formatter.FormatTimestamp(v.Time)
	default:
		return nil, &DecodeError{Kind: MalformedTimestamp, Field: field, Value: raw}
	}
	return &s, nil
}

func requiredString(rec gateway.Record, field string, allowEmpty bool) (string, error) {
	s, ok := rec[field].(string)
	if !ok || (!allowEmpty && s == "") {
		return "", &DecodeError{Kind: MissingRequiredField, Field: field}
	}
	return s, nil
}

func optionalString(rec gateway.Record, field string) (*string, error) {
	raw, ok := rec[field]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case string:
		return &v, nil
	case *string:
		return v, nil
	}
	return nil, &DecodeError{Kind: MissingRequiredField, Field: field, Value: raw}
}
