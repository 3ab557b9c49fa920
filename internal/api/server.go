// Package api exposes the feed, posting and account flows over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xkdemo/moments/internal/compose"
	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/internal/feed"
	"github.com/xkdemo/moments/internal/media"
	"github.com/xkdemo/moments/internal/profile"
	"github.com/xkdemo/moments/internal/ratelimit"
	"github.com/xkdemo/moments/internal/session"
	"github.com/xkdemo/moments/pkg/config"
	"github.com/xkdemo/moments/pkg/logger"
	"go.uber.org/fx"
)

type FeedService interface {
	Load(ctx context.Context, trigger feed.Trigger) (feed.Result, error)
	State() feed.State
	Cancel()
}

type Composer interface {
	Submit(ctx context.Context, draft compose.Draft) (domain.Moment, error)
}

type Sessions interface {
	State() session.State
	CheckSession(ctx context.Context) error
	SignIn(ctx context.Context, email, password string) (session.State, error)
	SignUp(ctx context.Context, email, password, nickname string) (session.State, error)
	SignOut(ctx context.Context) error
	UpdateProfile(ctx context.Context, changes profile.Changes) (session.State, error)
	UpdateAvatar(ctx context.Context, img media.Image) (session.State, error)
}

type Opts struct {
	fx.In

	Feed     FeedService
	Composer Composer
	Sessions Sessions
	Limiter  ratelimit.Limiter
	Logger   logger.Logger
	Config   *config.Config
}

type Server struct {
	feed     FeedService
	composer Composer
	sessions Sessions
	limiter  ratelimit.Limiter
	logger   logger.Logger

	maxUpload int64
	router    *mux.Router

	// background work started by handlers lives until Close
	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

func New(opts Opts) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		ctx:       ctx,
		stop:      stop,
		feed:      opts.Feed,
		composer:  opts.Composer,
		sessions:  opts.Sessions,
		limiter:   opts.Limiter,
		logger:    opts.Logger.WithComponent("HTTP"),
		maxUpload: opts.Config.Storage.MaxFileSize,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Close cancels background work started by handlers and waits for it to return.
func (s *Server) Close() {
	s.stop()
	s.wg.Wait()
}

// goBackground runs fn with the server-lifetime context. Nothing starts after Close.
func (s *Server) goBackground(fn func(ctx context.Context)) {
	if s.ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/auth/signin", s.handleSignIn).Methods(http.MethodPost)
	r.HandleFunc("/auth/signup", s.handleSignUp).Methods(http.MethodPost)
	r.HandleFunc("/auth/signout", s.handleSignOut).Methods(http.MethodPost)
	r.HandleFunc("/session", s.handleSession).Methods(http.MethodGet)

	r.HandleFunc("/feed", s.handleLoadFeed).Methods(http.MethodGet)
	r.HandleFunc("/feed/state", s.handleFeedState).Methods(http.MethodGet)
	r.HandleFunc("/feed/inflight", s.handleCancelFeed).Methods(http.MethodDelete)

	r.HandleFunc("/moments", s.handleSubmit).Methods(http.MethodPost)

	r.HandleFunc("/profile", s.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/profile", s.handleUpdateProfile).Methods(http.MethodPatch)
	r.HandleFunc("/profile/avatar", s.handleUpdateAvatar).Methods(http.MethodPost)
	return r
}

// Module runs the HTTP server for the lifetime of the app.
var Module = fx.Module("api",
	fx.Provide(
		func(c *feed.Coordinator) FeedService { return c },
		func(c *compose.Coordinator) Composer { return c },
		func(m *session.Manager) Sessions { return m },
		New,
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Server, cfg *config.Config, log logger.Logger) {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.App.Port),
			Handler:           s.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				go func() {
					log.Info("Starting server", "addr", srv.Addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("Server failed", "error", err)
					}
				}()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				err := srv.Shutdown(ctx)
				s.Close()
				return err
			},
		})
	}),
)
