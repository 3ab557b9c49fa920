package pgximpl

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code pkgerrors.Code
	}{
		{name: "cancelled", err: context.Canceled, code: pkgerrors.CodeCancelled},
		{name: "deadline", err: context.DeadlineExceeded, code: pkgerrors.CodeNetwork},
		{name: "dial", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, code: pkgerrors.CodeNetwork},
		{name: "no rows", err: pgx.ErrNoRows, code: pkgerrors.CodeNotFound},
		{name: "unique", err: &pgconn.PgError{Code: "23505"}, code: pkgerrors.CodeConflict},
		{name: "bad uuid", err: &pgconn.PgError{Code: "22P02"}, code: pkgerrors.CodeInvalidInput},
		{name: "privilege", err: &pgconn.PgError{Code: "42501"}, code: pkgerrors.CodeUnauthorized},
		{name: "connection exception", err: &pgconn.PgError{Code: "08006"}, code: pkgerrors.CodeNetwork},
		{name: "bad query", err: ErrBadQuery, code: pkgerrors.CodeInvalidInput},
		{name: "other", err: errors.New("boom"), code: pkgerrors.CodeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pkgerrors.GetCode(classify(tt.err, "op")); got != tt.code {
				t.Fatalf("expected %s, got %s", tt.code, got)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if classify(nil, "op") != nil {
		t.Fatalf("expected nil")
	}
}

func TestValidIdent(t *testing.T) {
	for _, ok := range []string{"id", "publish_time", "content_img_url"} {
		if !validIdent(ok) {
			t.Fatalf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"", "Publish", "id; drop table users", "1col", "a-b"} {
		if validIdent(bad) {
			t.Fatalf("%q should be rejected", bad)
		}
	}
}
