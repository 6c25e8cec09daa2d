// Package dblog reports pgx queries as database.query and database.error
// events, and queries slower than a threshold as performance.slow.
package dblog

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JailtonJunior94/lexlog/pkg/events"
	"github.com/JailtonJunior94/lexlog/pkg/logging"
)

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// Tracer implements pgx.QueryTracer.
type Tracer struct {
	emitter       *events.Emitter
	slowThreshold time.Duration
	next          pgx.QueryTracer
	now           func() time.Time
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithSlowThreshold also emits performance.slow for queries taking longer
// than d. Zero disables it.
func WithSlowThreshold(d time.Duration) Option {
	return func(t *Tracer) {
		t.slowThreshold = d
	}
}

// WithNext chains another tracer, called after this one.
func WithNext(next pgx.QueryTracer) Option {
	return func(t *Tracer) {
		t.next = next
	}
}

func NewTracer(emitter *events.Emitter, opts ...Option) *Tracer {
	t := &Tracer{emitter: emitter, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx = context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: t.now()})

	if t.next != nil {
		return t.next.TraceQueryStart(ctx, conn, data)
	}
	return ctx
}

func (t *Tracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if ok {
		t.report(ctx, start, data.Err)
	}

	if t.next != nil {
		t.next.TraceQueryEnd(ctx, conn, data)
	}
}

func (t *Tracer) report(ctx context.Context, start queryStart, err error) {
	userID := logging.UserIDFromContext(ctx)

	if err != nil {
		t.emitter.DatabaseError(ctx, start.sql, err, userID)
		return
	}

	elapsed := t.now().Sub(start.at)
	t.emitter.DatabaseQuery(ctx, start.sql, elapsed, userID)

	if t.slowThreshold > 0 && elapsed > t.slowThreshold {
		t.emitter.SlowOperation(ctx, "db."+operation(start.sql), elapsed, t.slowThreshold)
	}
}

// operation returns the statement class of sql: SELECT, INSERT, UPDATE,
// DELETE, DDL, TRANSACTION or OTHER.
func operation(sql string) string {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return "UNKNOWN"
	}

	firstWord := strings.Fields(trimmed)[0]

	switch op := strings.ToUpper(firstWord); op {
	case "SELECT", "INSERT", "UPDATE", "DELETE":
		return op
	case "CREATE", "DROP", "ALTER", "TRUNCATE":
		return "DDL"
	case "BEGIN", "COMMIT", "ROLLBACK", "SAVEPOINT":
		return "TRANSACTION"
	case "WITH":
		return "SELECT"
	default:
		return "OTHER"
	}
}

var _ pgx.QueryTracer = (*Tracer)(nil)
