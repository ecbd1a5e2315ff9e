package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var dbTracer = otel.Tracer("trackify.db")

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps *sql.DB so every statement gets a client span.
type DB struct {
	*sql.DB
}

func New(connStr string, pool PoolConfig) (*DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

const maxStatementLen = 256

var (
	stringLiteral  = regexp.MustCompile(`'(?:[^']|'')*'`)
	numericLiteral = regexp.MustCompile(`(^|[^\w$])\d+(?:\.\d+)?`)
)

func (db *DB) span(ctx context.Context, op, query string, args int) (context.Context, trace.Span) {
	return dbTracer.Start(ctx, "postgres."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", sqlVerb(query)),
			attribute.String("db.statement", sanitizeQuery(query)),
			attribute.Int("db.args", args),
		),
	)
}

func finish(span trace.Span, err error) {
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	ctx, span := db.span(ctx, "query", query, len(args))
	rows, err := db.DB.QueryContext(ctx, query, args...)
	finish(span, err)
	return rows, err
}

// row defers ending its span to Scan, where sql.Row surfaces errors.
// A miss (sql.ErrNoRows) is not recorded as a failure.
type row struct {
	*sql.Row
	span trace.Span
}

func (r *row) Scan(dest ...any) error {
	err := r.Row.Scan(dest...)
	if r.span != nil {
		finish(r.span, err)
		r.span = nil
	}
	return err
}

func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *row {
	ctx, span := db.span(ctx, "query_row", query, len(args))
	return &row{Row: db.DB.QueryRowContext(ctx, query, args...), span: span}
}

func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, span := db.span(ctx, "exec", query, len(args))
	result, err := db.DB.ExecContext(ctx, query, args...)
	if err == nil {
		if n, rerr := result.RowsAffected(); rerr == nil {
			span.SetAttributes(attribute.Int64("db.rows_affected", n))
		}
	}
	finish(span, err)
	return result, err
}

// sanitizeQuery strips literal values so they never reach a trace. $N
// placeholders and digits inside identifiers are kept.
func sanitizeQuery(q string) string {
	q = stringLiteral.ReplaceAllString(q, "'?'")
	q = numericLiteral.ReplaceAllString(q, "${1}?")
	q = strings.Join(strings.Fields(q), " ")
	if len(q) > maxStatementLen {
		return q[:maxStatementLen] + "..."
	}
	return q
}

func sqlVerb(q string) string {
	if fields := strings.Fields(q); len(fields) > 0 {
		return strings.ToUpper(fields[0])
	}
	return ""
}
