// Package gateway defines the contract of the hosted backend: table storage, object
// storage and session auth. Adapters classify their failures with pkg/errors codes so
// callers never inspect driver messages.
package gateway

import (
	"context"
	"errors"

	"github.com/xkdemo/moments/internal/domain"
)

const (
	TableMoments  = "moments"
	TableProfiles = "profiles"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrUnknownTable     = errors.New("unknown table")
)

// Record is a row as it travels to and from the gateway, keyed by column name.
type Record map[string]any

// Query narrows and orders a Select.
type Query struct {
	Eq         map[string]any
	OrderBy    string
	Descending bool
	Limit      uint64
}

type Metadata map[string]string

//go:generate go run go.uber.org/mock/mockgen -source=gateway.go -destination=mocks/mock.go

type TableStore interface {
	// Select returns rows in the order requested
	Select(ctx context.Context, table string, q Query) ([]Record, error)

	// Insert stores rec and echoes the persisted row
	Insert(ctx context.Context, table string, rec Record) (Record, error)

	// Update sets fields on the row with the given id and echoes it
	Update(ctx context.Context, table string, id string, fields Record) (Record, error)
}

type ObjectStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	PublicURL(bucket, path string) string

	// Remove is not called by any flow yet; orphaned uploads are kept and logged.
	// It is here for an orphan-sweeping job.
	Remove(ctx context.Context, bucket, path string) error
}

type Auth interface {
	// CurrentSession returns ErrNotAuthenticated when no valid session is held
	CurrentSession(ctx context.Context) (domain.Session, error)
	SignIn(ctx context.Context, email, password string) (domain.Session, error)
	SignUp(ctx context.Context, email, password string, meta Metadata) (domain.User, error)
	SignOut(ctx context.Context) error
	User(ctx context.Context) (domain.User, error)
}
