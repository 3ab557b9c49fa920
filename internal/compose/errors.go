package compose

import "errors"

type ErrorKind int

const (
	KindUploadFailed ErrorKind = iota + 1
	KindPersistFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindUploadFailed:
		return "upload_failed"
	case KindPersistFailed:
		return "persist_failed"
	}
	return "unknown"
}

var (
	ErrUploadFailed  = errors.New("image upload failed")
	ErrPersistFailed = errors.New("failed to save moment")
)

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	msg := ErrPersistFailed.Error()
	if e.Kind == KindUploadFailed {
		msg = ErrUploadFailed.Error()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindUploadFailed:
		return target == ErrUploadFailed
	case KindPersistFailed:
		return target == ErrPersistFailed
	}
	return false
}
