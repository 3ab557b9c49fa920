package pgximpl

import (
	"context"
	"fmt"
	"sort"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/xkdemo/moments/internal/gateway"
	"github.com/xkdemo/moments/pkg/logger"
)

var knownTables = map[string]bool{
	gateway.TableMoments:  true,
	gateway.TableProfiles: true,
}

// Tables serves the table contract from Postgres. Rows come back as column maps
// holding pgx's native values, e.g. [16]byte for uuid and time.Time for timestamptz.
type Tables struct {
	pg     *pgxpool.Pool
	logger logger.Logger
}

func NewTables(pg *pgxpool.Pool, log logger.Logger) *Tables {
	return &Tables{
		pg:     pg,
		logger: log.WithComponent("TableGateway"),
	}
}

var _ gateway.TableStore = (*Tables)(nil)

func (t *Tables) Select(ctx context.Context, table string, q gateway.Query) ([]gateway.Record, error) {
	if !knownTables[table] {
		return nil, fmt.Errorf("%w: %s", gateway.ErrUnknownTable, table)
	}

	b := SqBuilder.Select("*").From(table)
	if len(q.Eq) > 0 {
		for col := range q.Eq {
			if !validIdent(col) {
				return nil, classify(fmt.Errorf("%w: column %q", ErrBadQuery, col), "select "+table)
			}
		}
		b = b.Where(sq.Eq(q.Eq))
	}
	if q.OrderBy != "" {
		if !validIdent(q.OrderBy) {
			return nil, classify(fmt.Errorf("%w: order by %q", ErrBadQuery, q.OrderBy), "select "+table)
		}
		dir := "ASC"
		if q.Descending {
			dir = "DESC"
		}
		b = b.OrderBy(q.OrderBy + " " + dir)
	}
	if q.Limit > 0 {
		b = b.Limit(q.Limit)
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, classify(fmt.Errorf("%w: %v", ErrBadQuery, err), "select "+table)
	}

	rows, err := t.pg.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "select "+table)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, classify(err, "select "+table)
	}

	records := make([]gateway.Record, len(maps))
	for i, m := range maps {
		records[i] = gateway.Record(m)
	}
	return records, nil
}

func (t *Tables) Insert(ctx context.Context, table string, rec gateway.Record) (gateway.Record, error) {
	if !knownTables[table] {
		return nil, fmt.Errorf("%w: %s", gateway.ErrUnknownTable, table)
	}

	cols := make([]string, 0, len(rec))
	for col := range rec {
		if !validIdent(col) {
			return nil, classify(fmt.Errorf("%w: column %q", ErrBadQuery, col), "insert "+table)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	vals := make([]any, len(cols))
	for i, col := range cols {
		vals[i] = rec[col]
	}

	query, args, err := SqBuilder.
		Insert(table).
		Columns(cols...).
		Values(vals...).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return nil, classify(fmt.Errorf("%w: %v", ErrBadQuery, err), "insert "+table)
	}

	return t.queryOne(ctx, query, args, "insert "+table)
}

func (t *Tables) Update(ctx context.Context, table string, id string, fields gateway.Record) (gateway.Record, error) {
	if !knownTables[table] {
		return nil, fmt.Errorf("%w: %s", gateway.ErrUnknownTable, table)
	}
	for col := range fields {
		if !validIdent(col) {
			return nil, classify(fmt.Errorf("%w: column %q", ErrBadQuery, col), "update "+table)
		}
	}

	b := SqBuilder.Update(table).SetMap(map[string]any(fields))
	if table == gateway.TableProfiles {
		b = b.Set("updated_at", sq.Expr("now()"))
	}
	query, args, err := b.
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return nil, classify(fmt.Errorf("%w: %v", ErrBadQuery, err), "update "+table)
	}

	return t.queryOne(ctx, query, args, "update "+table)
}

func (t *Tables) queryOne(ctx context.Context, query string, args []any, op string) (gateway.Record, error) {
	rows, err := t.pg.Query(ctx, query, args...)
	if err != nil {
		t.logger.Error("Query failed", "op", op, "error", err)
		return nil, classify(err, op)
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToMap)
	if err != nil {
		return nil, classify(err, op)
	}
	return gateway.Record(row), nil
}
