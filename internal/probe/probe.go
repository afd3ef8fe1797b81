// Package probe verifies that freshly launched services actually accept
// authenticated connections with the credentials that were just rendered,
// rather than trusting container state alone.
package probe

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ls-github123/openai-chat-deploy/internal/config"
)

// Timeout for a single connection attempt; the overall deadline comes from
// the caller's context.
const attemptTimeout = 5 * time.Second

// Prober runs readiness probes against a stack's declared services.
type Prober struct {
	interval time.Duration
	log      zerolog.Logger
}

// New returns a Prober that retries each probe at the given interval until
// it succeeds or the context expires.
func New(interval time.Duration, log zerolog.Logger) *Prober {
	if interval <= 0 {
		interval = time.Second
	}
	return &Prober{interval: interval, log: log}
}

// Wait blocks until every probe has succeeded once, retrying failed probes
// until ctx expires. Credentials come from the rendered env values, keyed by
// each spec's PasswordKey.
func (p *Prober) Wait(ctx context.Context, specs []config.ProbeSpec, values map[string]string) error {
	for _, spec := range specs {
		password, ok := values[spec.PasswordKey]
		if !ok {
			return fmt.Errorf("probe %s: env key %s not rendered", spec.Engine, spec.PasswordKey)
		}
		if err := p.waitOne(ctx, spec, password); err != nil {
			return err
		}
	}
	return nil
}

func (p *Prober) waitOne(ctx context.Context, spec config.ProbeSpec, password string) error {
	addr := net.JoinHostPort(spec.Host, strconv.Itoa(spec.Port))
	p.log.Info().Str("engine", spec.Engine).Str("addr", addr).Msg("waiting for service")

	var lastErr error
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		lastErr = p.probe(attemptCtx, spec, password)
		cancel()

		if lastErr == nil {
			p.log.Info().Str("engine", spec.Engine).Str("addr", addr).Msg("service ready")
			return nil
		}

		p.log.Debug().Str("engine", spec.Engine).Err(lastErr).Msg("probe attempt failed")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s at %s never became ready: %w (last error: %v)",
				spec.Engine, addr, ctx.Err(), lastErr)
		case <-time.After(p.interval):
		}
	}
}

func (p *Prober) probe(ctx context.Context, spec config.ProbeSpec, password string) error {
	switch spec.Engine {
	case "mysql":
		return probeSQL(ctx, "mysql", mysqlDSN(spec, password))
	case "postgres":
		return probeSQL(ctx, "postgres", postgresDSN(spec, password))
	case "redis":
		return probeRedis(ctx, spec, password)
	case "mongo":
		return probeMongo(ctx, spec, password)
	default:
		return fmt.Errorf("unknown probe engine %q", spec.Engine)
	}
}

func probeSQL(ctx context.Context, driver, dsn string) error {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("%s ping failed: %w", driver, err)
	}
	return nil
}

func probeRedis(ctx context.Context, spec config.ProbeSpec, password string) error {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(spec.Host, strconv.Itoa(spec.Port)),
		Password: password,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func probeMongo(ctx context.Context, spec config.ProbeSpec, password string) error {
	uri := fmt.Sprintf("mongodb://%s:%s@%s/%s?authSource=admin&retryWrites=false",
		spec.User, password, net.JoinHostPort(spec.Host, strconv.Itoa(spec.Port)), spec.Database)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("failed to connect to mongo: %w", err)
	}
	defer func() {
		_ = client.Disconnect(context.WithoutCancel(ctx))
	}()

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	return nil
}

func mysqlDSN(spec config.ProbeSpec, password string) string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?timeout=%s",
		spec.User, password,
		net.JoinHostPort(spec.Host, strconv.Itoa(spec.Port)),
		spec.Database, attemptTimeout)
}

func postgresDSN(spec config.ProbeSpec, password string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable connect_timeout=%d",
		spec.Host, spec.Port, spec.User, password, spec.Database,
		int(attemptTimeout.Seconds()))
}
