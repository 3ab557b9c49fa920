package feed

import (
	"errors"

	"github.com/xkdemo/moments/internal/mapper"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
)

type ErrorKind int

const (
	KindNetwork ErrorKind = iota + 1
	KindFormat
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindFormat:
		return "format"
	}
	return "unknown"
}

var (
	ErrNetwork = errors.New("feed: network unavailable")
	ErrFormat  = errors.New("feed: malformed data")
	ErrUnknown = errors.New("feed: load failed")
)

// Error is what a failed load publishes. Message carries the cause for KindUnknown.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNetwork:
		return "network connection failed, check your network settings"
	case KindFormat:
		return "data format error, check the moments table schema"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindNetwork:
		return target == ErrNetwork
	case KindFormat:
		return target == ErrFormat
	case KindUnknown:
		return target == ErrUnknown
	}
	return false
}

// classify maps a non-cancellation failure. Network is checked before format so a
// dropped connection mid-stream is never reported as bad data.
func classify(err error) *Error {
	switch {
	case pkgerrors.IsNetwork(err):
		return &Error{Kind: KindNetwork, Err: err}
	case mapper.IsDecodeError(err):
		return &Error{Kind: KindFormat, Err: err}
	}
	return &Error{Kind: KindUnknown, Message: err.Error(), Err: err}
}
