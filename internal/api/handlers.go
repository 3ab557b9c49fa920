package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/xkdemo/moments/internal/compose"
	"github.com/xkdemo/moments/internal/feed"
	"github.com/xkdemo/moments/internal/media"
	"github.com/xkdemo/moments/internal/profile"
	"github.com/xkdemo/moments/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte("ok")); err != nil {
		s.logger.Error("Failed to write response", "error", err)
	}
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[signInRequest](r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(st))
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[signUpRequest](r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.sessions.SignUp(r.Context(), req.Email, req.Password, req.Nickname)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSessionResponse(st))
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSession re-checks the session when ?refresh=1 is given.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") != "" {
		if err := s.sessions.CheckSession(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s.sessions.State()))
}

func (s *Server) handleLoadFeed(w http.ResponseWriter, r *http.Request) {
	trigger := feed.TriggerRefresh
	switch t := feed.Trigger(r.URL.Query().Get("trigger")); t {
	case "":
	case feed.TriggerActivation, feed.TriggerRefresh:
		trigger = t
	default:
		s.writeError(w, r, fmt.Errorf("%w: unknown trigger %q", errBadRequest, t))
		return
	}

	res, err := s.feed.Load(r.Context(), trigger)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := res.Items
	if res.Status != feed.StatusLoaded {
		items = s.feed.State().Items
	}
	if items == nil {
		items = []feed.Item{}
	}
	writeJSON(w, http.StatusOK, feedResponse{
		Status:     res.Status.String(),
		Generation: res.Generation,
		Items:      items,
	})
}

func (s *Server) handleFeedState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toFeedStateResponse(s.feed.State()))
}

func (s *Server) handleCancelFeed(w http.ResponseWriter, r *http.Request) {
	s.feed.Cancel()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.State()
	if !st.LoggedIn {
		s.writeError(w, r, session.ErrNotSignedIn)
		return
	}
	if !s.limiter.Allow(st.UserID) {
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "posting too fast, try again later", Kind: "rate_limited"})
		return
	}

	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	form := momentForm{Text: r.FormValue("text")}
	if err := validateStruct(form); err != nil {
		s.writeError(w, r, err)
		return
	}
	img, err := imageFromForm(r, "image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		s.writeError(w, r, err)
		return
	}

	authorName := st.Nickname
	if authorName == "" {
		authorName = st.Email
	}
	draft := compose.Draft{
		AuthorID:   st.UserID,
		AuthorName: authorName,
		BodyText:   form.Text,
		Image:      img,
	}
	if st.AvatarURL != "" {
		avatar := st.AvatarURL
		draft.AuthorAvatarURL = &avatar
	}

	moment, err := s.composer.Submit(r.Context(), draft)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// The new moment shows up through a regular refresh so ordering stays the gateway's.
	s.goBackground(func(ctx context.Context) {
		_, _ = s.feed.Load(ctx, feed.TriggerRefresh)
	})

	writeJSON(w, http.StatusCreated, toMomentResponse(moment))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	st := s.sessions.State()
	if !st.LoggedIn {
		s.writeError(w, r, session.ErrNotSignedIn)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(st))
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[updateProfileRequest](r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	st, err := s.sessions.UpdateProfile(r.Context(), profile.Changes{
		Nickname:  req.Nickname,
		AvatarURL: req.AvatarURL,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(st))
}

func (s *Server) handleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	img, err := imageFromForm(r, "image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			err = fmt.Errorf("%w: image is required", errBadRequest)
		}
		s.writeError(w, r, err)
		return
	}

	st, err := s.sessions.UpdateAvatar(r.Context(), *img)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(st))
}

// parseMultipart caps the body a little above the image limit so the size check in
// media can report it.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	limit := s.maxUpload + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return media.ErrTooLarge
		}
		return fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err)
	}
	return nil
}

func imageFromForm(r *http.Request, field string) (*media.Image, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("%w: read image: %v", errBadRequest, err)
	}
	return &media.Image{Data: data, ContentType: header.Header.Get("Content-Type")}, nil
}
