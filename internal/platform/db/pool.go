package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type PoolConfig struct {
	URL      string
	MaxConns int32
	MinConns int32
	// AppName is reported to the server as application_name.
	AppName string
	// SlowQuery logs statements at or above this duration at warn level;
	// everything else is logged at trace. Zero disables the tracer.
	SlowQuery time.Duration
	Logger    zerolog.Logger
}

// NewPool connects to PostgreSQL and pings before returning.
func NewPool(ctx context.Context, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(pc.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.HealthCheckPeriod = time.Minute
	if pc.AppName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = pc.AppName
	}
	if pc.SlowQuery > 0 {
		cfg.ConnConfig.Tracer = &queryTracer{logger: pc.Logger, slow: pc.SlowQuery}
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

type traceKey struct{}

type traceStart struct {
	sql string
	at  time.Time
}

// queryTracer times every statement.
type queryTracer struct {
	logger zerolog.Logger
	slow   time.Duration
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceKey{}, traceStart{sql: data.SQL, at: time.Now()})
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(traceKey{}).(traceStart)
	if !ok {
		return
	}
	elapsed := time.Since(start.at)
	evt := t.logger.Trace()
	switch {
	case data.Err != nil:
		evt = t.logger.Debug().Err(data.Err)
	case elapsed >= t.slow:
		evt = t.logger.Warn()
	}
	evt.Str("sql", start.sql).Dur("elapsed", elapsed).Str("tag", data.CommandTag.String()).Msg("query")
}
