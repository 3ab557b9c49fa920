package pgximpl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/xkdemo/moments/internal/domain"
	"github.com/xkdemo/moments/internal/gateway"
	"github.com/xkdemo/moments/pkg/config"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
	"github.com/xkdemo/moments/pkg/logger"
	"go.uber.org/fx"
	"golang.org/x/crypto/bcrypt"
)

const usersTable = "users"

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthOpts struct {
	fx.In

	Pool   *pgxpool.Pool
	Clock  clockwork.Clock
	Logger logger.Logger
	Config *config.Config
}

// Auth keeps accounts in the users table and holds the one session of this client.
// Access tokens are HS256 JWTs whose subject is the user id.
type Auth struct {
	pg     *pgxpool.Pool
	clock  clockwork.Clock
	logger logger.Logger
	secret []byte
	ttl    time.Duration
	cost   int

	mu    sync.RWMutex
	token string
}

func NewAuth(opts AuthOpts) *Auth {
	cost := opts.Config.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Auth{
		pg:     opts.Pool,
		clock:  opts.Clock,
		logger: opts.Logger.WithComponent("AuthGateway"),
		secret: []byte(opts.Config.Auth.JWTSecret),
		ttl:    opts.Config.Auth.TokenTTL,
		cost:   cost,
	}
}

var _ gateway.Auth = (*Auth)(nil)

type userRow struct {
	ID           uuid.UUID         `db:"id"`
	Email        string            `db:"email"`
	PasswordHash string            `db:"password_hash"`
	Metadata     map[string]string `db:"metadata"`
}

func (r userRow) user() domain.User {
	return domain.User{ID: r.ID.String(), Email: r.Email, Metadata: r.Metadata}
}

func (a *Auth) SignUp(ctx context.Context, email, password string, meta gateway.Metadata) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, pkgerrors.NewWithCode(pkgerrors.CodeInvalidInput, "email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return domain.User{}, pkgerrors.Wrap(err, "hash password")
	}
	if meta == nil {
		meta = gateway.Metadata{}
	}

	query, args, err := SqBuilder.
		Insert(usersTable).
		Columns("email", "password_hash", "metadata").
		Values(email, string(hash), map[string]string(meta)).
		Suffix("RETURNING id, email, password_hash, metadata").
		ToSql()
	if err != nil {
		return domain.User{}, classify(ErrBadQuery, "sign up")
	}

	row, err := a.queryUser(ctx, query, args)
	if err != nil {
		if pkgerrors.IsConflict(err) {
			a.logger.Warn("Email already registered", "email", email)
		}
		return domain.User{}, classify(err, "sign up")
	}

	a.logger.Info("User registered", "user_id", row.ID)
	return row.user(), nil
}

func (a *Auth) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	row, err := a.userBy(ctx, sq.Eq{"email": normalizeEmail(email)})
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return domain.Session{}, pkgerrors.WrapWithCode(ErrInvalidCredentials, pkgerrors.CodeUnauthorized, "sign in")
		}
		return domain.Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(row.PasswordHash), []byte(password)); err != nil {
		return domain.Session{}, pkgerrors.WrapWithCode(ErrInvalidCredentials, pkgerrors.CodeUnauthorized, "sign in")
	}

	expiresAt := a.clock.Now().Add(a.ttl)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   row.ID.String(),
		IssuedAt:  jwt.NewNumericDate(a.clock.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}).SignedString(a.secret)
	if err != nil {
		return domain.Session{}, pkgerrors.Wrap(err, "sign token")
	}

	a.mu.Lock()
	a.token = token
	a.mu.Unlock()

	return domain.Session{AccessToken: token, ExpiresAt: expiresAt, User: row.user()}, nil
}

func (a *Auth) SignOut(ctx context.Context) error {
	a.mu.Lock()
	a.token = ""
	a.mu.Unlock()
	return nil
}

func (a *Auth) CurrentSession(ctx context.Context) (domain.Session, error) {
	a.mu.RLock()
	token := a.token
	a.mu.RUnlock()
	if token == "" {
		return domain.Session{}, gateway.ErrNotAuthenticated
	}

	claims, err := a.parse(token)
	if err != nil {
		a.logger.Debug("Dropping invalid session token", "error", err)
		a.mu.Lock()
		if a.token == token {
			a.token = ""
		}
		a.mu.Unlock()
		return domain.Session{}, gateway.ErrNotAuthenticated
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return domain.Session{}, gateway.ErrNotAuthenticated
	}
	row, err := a.userBy(ctx, sq.Eq{"id": id})
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return domain.Session{}, gateway.ErrNotAuthenticated
		}
		return domain.Session{}, err
	}

	return domain.Session{AccessToken: token, ExpiresAt: claims.ExpiresAt.Time, User: row.user()}, nil
}

func (a *Auth) User(ctx context.Context) (domain.User, error) {
	sess, err := a.CurrentSession(ctx)
	if err != nil {
		return domain.User{}, err
	}
	return sess.User, nil
}

func (a *Auth) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

func (a *Auth) userBy(ctx context.Context, where sq.Eq) (userRow, error) {
	query, args, err := SqBuilder.
		Select("id", "email", "password_hash", "metadata").
		From(usersTable).
		Where(where).
		ToSql()
	if err != nil {
		return userRow{}, classify(ErrBadQuery, "select user")
	}
	row, err := a.queryUser(ctx, query, args)
	if err != nil {
		return userRow{}, classify(err, "select user")
	}
	return row, nil
}

func (a *Auth) queryUser(ctx context.Context, query string, args []any) (userRow, error) {
	rows, err := a.pg.Query(ctx, query, args...)
	if err != nil {
		return userRow{}, classify(err, "query user")
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[userRow])
	if err != nil {
		return userRow{}, classify(err, "query user")
	}
	return row, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
