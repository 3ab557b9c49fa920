package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/internal/gateway"
	mock_gateway "github.com/xkdemo/moments/internal/gateway/mocks"
	"github.com/xkdemo/moments/internal/media"
	"github.com/xkdemo/moments/internal/prefs"
	"github.com/xkdemo/moments/internal/profile"
	mock_profile "github.com/xkdemo/moments/internal/profile/mocks"
	"github.com/xkdemo/moments/pkg/config"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
	"github.com/xkdemo/moments/pkg/logger"
	"go.uber.org/mock/gomock"
)

var (
	userID    = uuid.MustParse("5a0d4c2e-8f1b-4c3d-9e7f-112233445566")
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
)

func ptr(s string) *string { return &s }

type fixture struct {
	m        *Manager
	auth     *mock_gateway.MockAuth
	objects  *mock_gateway.MockObjectStore
	profiles *mock_profile.MockService
	prefs    *prefs.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := fixture{
		auth:     mock_gateway.NewMockAuth(ctrl),
		objects:  mock_gateway.NewMockObjectStore(ctrl),
		profiles: mock_profile.NewMockService(ctrl),
		prefs:    prefs.NewMemory(),
	}

	cfg := &config.Config{}
	cfg.Storage.Bucket = "image"

	f.m = New(Opts{
		Auth:     f.auth,
		Profiles: f.profiles,
		Prefs:    f.prefs,
		Objects:  f.objects,
		Media: &media.Policy{
			MaxSize:      1 << 20,
			AllowedTypes: []string{"image/png"},
			MomentPrefix: "moments",
			AvatarPrefix: "avatars",
			Clock:        clockwork.NewFakeClockAt(time.Unix(1762596000, 0)),
		},
		Logger: logger.Nop(),
		Config: cfg,
	})
	f.m.retry.InitialInterval = time.Millisecond
	f.m.retry.MaxInterval = 2 * time.Millisecond
	return f
}

func sessionFor(email string, meta map[string]string) domain.Session {
	return domain.Session{
		AccessToken: "token",
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        domain.User{ID: userID.String(), Email: email, Metadata: meta},
	}
}

func TestBootstrapUsesCacheThenSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.prefs.Save(ctx, prefs.Snapshot{LoggedIn: true, UserID: userID.String(), UserEmail: "old@example.com", UserNickname: "Old"})

	sess := sessionFor("bob@example.com", nil)
	f.auth.EXPECT().CurrentSession(gomock.Any()).
		DoAndReturn(func(ctx context.Context) (domain.Session, error) {
			if got := f.m.State(); got.Nickname != "Old" || !got.LoggedIn {
				t.Fatalf("cached state not shown before session check: %+v", got)
			}
			return sess, nil
		})
	f.auth.EXPECT().User(gomock.Any()).Return(sess.User, nil)
	f.profiles.EXPECT().Fetch(gomock.Any(), userID).
		Return(&domain.Profile{ID: userID, Nickname: ptr("Bob"), AvatarURL: ptr("https://x/a.png")}, nil)

	if err := f.m.Bootstrap(ctx); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	want := State{LoggedIn: true, UserID: userID.String(), Email: "bob@example.com", Nickname: "Bob", AvatarURL: "https://x/a.png"}
	if got := f.m.State(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if snap, _ := f.prefs.Load(ctx); snap.UserNickname != "Bob" {
		t.Fatalf("prefs not refreshed: %+v", snap)
	}
}

func TestCheckSessionFailureClearsCachedUser(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{name: "not authenticated", err: gateway.ErrNotAuthenticated},
		{name: "unauthorized", err: pkgerrors.WrapWithCode(errors.New("token revoked"), pkgerrors.CodeUnauthorized, "session"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			cached := prefs.Snapshot{LoggedIn: true, UserID: userID.String(), UserEmail: "bob@example.com", UserNickname: "Bob"}
			if err := f.prefs.Save(context.Background(), cached); err != nil {
				t.Fatalf("seed prefs: %v", err)
			}
			f.auth.EXPECT().CurrentSession(gomock.Any()).Return(domain.Session{}, tt.err).Times(1)

			err := f.m.Bootstrap(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error %v", err)
			}
			if got := f.m.State(); got != (State{}) {
				t.Fatalf("expected empty state, got %+v", got)
			}
			snap, err := f.prefs.Load(context.Background())
			if err != nil {
				t.Fatalf("load prefs: %v", err)
			}
			if snap != (prefs.Snapshot{}) {
				t.Fatalf("cached session survived a failed check: %+v", snap)
			}
		})
	}
}

func TestCheckSessionRetriesNetworkFailures(t *testing.T) {
	f := newFixture(t)
	netErr := pkgerrors.WrapWithCode(errors.New("connection refused"), pkgerrors.CodeNetwork, "session")

	sess := sessionFor("bob@example.com", map[string]string{"full_name": "Robert"})
	gomock.InOrder(
		f.auth.EXPECT().CurrentSession(gomock.Any()).Return(domain.Session{}, netErr),
		f.auth.EXPECT().CurrentSession(gomock.Any()).Return(sess, nil),
	)
	f.auth.EXPECT().User(gomock.Any()).Return(sess.User, nil)
	f.profiles.EXPECT().Fetch(gomock.Any(), userID).Return(nil, nil)
	f.profiles.EXPECT().GetOrCreate(gomock.Any(), userID, profile.Changes{Nickname: ptr("Robert")}).
		Return(domain.Profile{ID: userID, Nickname: ptr("Robert")}, nil)

	if err := f.m.CheckSession(context.Background()); err != nil {
		t.Fatalf("check session: %v", err)
	}
	if got := f.m.State(); !got.LoggedIn || got.Nickname != "Robert" {
		t.Fatalf("unexpected state %+v", got)
	}
}

func TestResolveNickname(t *testing.T) {
	tests := []struct {
		name    string
		profile *domain.Profile
		meta    map[string]string
		want    string
	}{
		{name: "profile wins", profile: &domain.Profile{Nickname: ptr("P")}, meta: map[string]string{"nickname": "N"}, want: "P"},
		{name: "empty profile nickname", profile: &domain.Profile{Nickname: ptr("")}, meta: map[string]string{"nickname": "N"}, want: "N"},
		{name: "metadata nickname", meta: map[string]string{"nickname": "N", "full_name": "F"}, want: "N"},
		{name: "full name", meta: map[string]string{"full_name": "F"}, want: "F"},
		{name: "nothing", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveNickname(tt.profile, tt.meta); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSignInFailureKeepsState(t *testing.T) {
	f := newFixture(t)
	f.auth.EXPECT().SignIn(gomock.Any(), "bob@example.com", "bad").
		Return(domain.Session{}, pkgerrors.WrapWithCode(errors.New("bad password"), pkgerrors.CodeUnauthorized, "sign in"))

	if _, err := f.m.SignIn(context.Background(), "bob@example.com", "bad"); !pkgerrors.IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if f.m.State().LoggedIn {
		t.Fatalf("must stay signed out")
	}
}

func TestSignUpToleratesProfileFailure(t *testing.T) {
	f := newFixture(t)
	f.auth.EXPECT().
		SignUp(gomock.Any(), "bob@example.com", "secret", gateway.Metadata{"nickname": "Bob", "full_name": "Bob"}).
		Return(domain.User{ID: userID.String(), Email: "bob@example.com"}, nil)
	f.profiles.EXPECT().Create(gomock.Any(), userID, profile.Changes{Nickname: ptr("Bob")}).
		Return(domain.Profile{}, errors.New("insert failed"))

	got, err := f.m.SignUp(context.Background(), "bob@example.com", "secret", "Bob")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	want := State{LoggedIn: true, UserID: userID.String(), Email: "bob@example.com", Nickname: "Bob"}
	if got != want || f.m.State() != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if snap, _ := f.prefs.Load(context.Background()); !snap.LoggedIn || snap.UserNickname != "Bob" {
		t.Fatalf("prefs not saved: %+v", snap)
	}
}

func TestSignOut(t *testing.T) {
	t.Run("clears state and prefs", func(t *testing.T) {
		f := newFixture(t)
		f.m.publish(func(State) State { return State{LoggedIn: true, UserID: userID.String(), Nickname: "Bob"} })
		f.auth.EXPECT().SignOut(gomock.Any()).Return(nil)

		if err := f.m.SignOut(context.Background()); err != nil {
			t.Fatalf("sign out: %v", err)
		}
		if f.m.State() != (State{}) {
			t.Fatalf("state not cleared: %+v", f.m.State())
		}
		if snap, _ := f.prefs.Load(context.Background()); snap != (prefs.Snapshot{}) {
			t.Fatalf("prefs not cleared: %+v", snap)
		}
	})

	t.Run("gateway failure keeps state", func(t *testing.T) {
		f := newFixture(t)
		f.m.publish(func(State) State { return State{LoggedIn: true, UserID: userID.String()} })
		f.auth.EXPECT().SignOut(gomock.Any()).Return(errors.New("offline"))

		if err := f.m.SignOut(context.Background()); err == nil {
			t.Fatalf("expected error")
		}
		if !f.m.State().LoggedIn {
			t.Fatalf("state must be kept")
		}
	})
}

func TestUpdateProfileRequiresSignIn(t *testing.T) {
	f := newFixture(t)
	if _, err := f.m.UpdateProfile(context.Background(), profile.Changes{Nickname: ptr("x")}); !errors.Is(err, ErrNotSignedIn) {
		t.Fatalf("expected ErrNotSignedIn, got %v", err)
	}

	f.m.publish(func(State) State { return State{LoggedIn: true, UserID: "not-a-uuid"} })
	if _, err := f.m.UpdateProfile(context.Background(), profile.Changes{Nickname: ptr("x")}); !errors.Is(err, ErrInvalidUserID) {
		t.Fatalf("expected ErrInvalidUserID, got %v", err)
	}
}

func TestUpdateAvatar(t *testing.T) {
	f := newFixture(t)
	f.m.publish(func(State) State { return State{LoggedIn: true, UserID: userID.String(), Nickname: "Bob"} })

	path := "avatars/" + userID.String() + "_1762596000.png"
	url := "https://cdn.example.com/image/" + path
	gomock.InOrder(
		f.objects.EXPECT().Upload(gomock.Any(), "image", path, pngHeader, "image/png").Return(nil),
		f.objects.EXPECT().PublicURL("image", path).Return(url),
		f.profiles.EXPECT().Update(gomock.Any(), userID, profile.Changes{AvatarURL: &url}).
			Return(domain.Profile{ID: userID, Nickname: ptr("Bob"), AvatarURL: &url}, nil),
	)

	got, err := f.m.UpdateAvatar(context.Background(), media.Image{Data: pngHeader})
	if err != nil {
		t.Fatalf("update avatar: %v", err)
	}
	if got.AvatarURL != url {
		t.Fatalf("expected avatar %q, got %q", url, got.AvatarURL)
	}
}
