package pgximpl

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pkgerrors "github.com/xkdemo/moments/pkg/errors"
)

// classify tags a driver error with the code callers branch on.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled):
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeCancelled, op)
	case errors.Is(err, context.DeadlineExceeded), pgconn.Timeout(err):
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeNetwork, op)
	case errors.Is(err, pgx.ErrNoRows):
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeNotFound, op)
	case errors.Is(err, ErrBadQuery):
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeInvalidInput, op)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeNetwork, op)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return pkgerrors.WrapWithCode(err, pkgerrors.CodeNetwork, op)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return pkgerrors.WrapWithCode(err, pkgerrors.CodeConflict, op)
		case "22P02", "23502", "23503", "42703":
			return pkgerrors.WrapWithCode(err, pkgerrors.CodeInvalidInput, op)
		case "42501":
			return pkgerrors.WrapWithCode(err, pkgerrors.CodeUnauthorized, op)
		}
		if len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08" {
			return pkgerrors.WrapWithCode(err, pkgerrors.CodeNetwork, op)
		}
	}

	return pkgerrors.Wrap(err, op)
}
