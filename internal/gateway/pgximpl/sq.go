package pgximpl

import (
	"errors"
	"regexp"

	"github.com/Masterminds/squirrel"
)

var SqBuilder = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var ErrBadQuery = errors.New("bad query")

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// validIdent guards column names that end up in SQL text.
func validIdent(name string) bool {
	return identPattern.MatchString(name)
}
