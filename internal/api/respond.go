package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xkdemo/moments/internal/compose"
	"github.com/xkdemo/moments/internal/feed"
	"github.com/xkdemo/moments/internal/media"
	"github.com/xkdemo/moments/internal/profile"
	"github.com/xkdemo/moments/internal/session"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorStatus maps an error to the HTTP status and the kind shown to the client.
func errorStatus(err error) (int, string) {
	var feedErr *feed.Error
	if errors.As(err, &feedErr) {
		switch feedErr.Kind {
		case feed.KindNetwork:
			return http.StatusServiceUnavailable, feedErr.Kind.String()
		case feed.KindFormat:
			return http.StatusBadGateway, feedErr.Kind.String()
		}
		return http.StatusInternalServerError, feedErr.Kind.String()
	}

	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, profile.ErrNothingToUpdate), errors.Is(err, media.ErrEmpty):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, media.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, media.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType, "unsupported_type"
	case errors.Is(err, session.ErrNotSignedIn), errors.Is(err, session.ErrInvalidUserID):
		return http.StatusUnauthorized, "unauthorized"
	}

	var composeErr *compose.Error
	if errors.As(err, &composeErr) {
		return http.StatusBadGateway, composeErr.Kind.String()
	}

	switch pkgerrors.GetCode(err) {
	case pkgerrors.CodeUnauthorized:
		return http.StatusUnauthorized, string(pkgerrors.CodeUnauthorized)
	case pkgerrors.CodeConflict:
		return http.StatusConflict, string(pkgerrors.CodeConflict)
	case pkgerrors.CodeInvalidInput:
		return http.StatusBadRequest, string(pkgerrors.CodeInvalidInput)
	case pkgerrors.CodeNotFound:
		return http.StatusNotFound, string(pkgerrors.CodeNotFound)
	case pkgerrors.CodeNetwork:
		return http.StatusServiceUnavailable, string(pkgerrors.CodeNetwork)
	}
	return http.StatusInternalServerError, string(pkgerrors.CodeUnknown)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("Request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: kind})
}
