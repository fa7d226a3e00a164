package repository

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Number prefixes.
const (
	TicketNumberPrefix = "TKT"
	RMANumberPrefix    = "RMA"
)

// NumberGenerator issues human-readable PREFIX-YYYYMMDD-XXXX identifiers.
type NumberGenerator interface {
	Next(ctx context.Context, prefix string, at time.Time) (string, error)
}

// RedisNumberGenerator counts per prefix and day with INCR. Without a client,
// or when Redis fails, it asks fallback, and without one it draws a random
// hex suffix.
type RedisNumberGenerator struct {
	client   *redis.Client
	fallback NumberGenerator
	logger   *zap.Logger
}

// NewRedisNumberGenerator builds a generator; client and fallback may be nil.
func NewRedisNumberGenerator(client *redis.Client, fallback NumberGenerator, logger *zap.Logger) *RedisNumberGenerator {
	return &RedisNumberGenerator{client: client, fallback: fallback, logger: logger}
}

func (g *RedisNumberGenerator) Next(ctx context.Context, prefix string, at time.Time) (string, error) {
	day := at.UTC().Format("20060102")
	if g.client != nil {
		key := "seq:" + strings.ToLower(prefix) + ":" + day
		n, err := g.client.Incr(ctx, key).Result()
		if err == nil {
			if n == 1 {
				g.client.Expire(ctx, key, 48*time.Hour)
			}
			return FormatNumber(prefix, day, n), nil
		}
		g.logger.Warn("redis sequence unavailable", zap.String("prefix", prefix), zap.Error(err))
	}
	if g.fallback != nil {
		return g.fallback.Next(ctx, prefix, at)
	}
	return RandomNumber(prefix, day)
}

// PostgresNumberGenerator counts per prefix and day in the number_sequences
// table, so numbering survives restarts and is shared across instances.
type PostgresNumberGenerator struct {
	pool *pgxpool.Pool
}

// NewPostgresNumberGenerator returns a generator backed by pool.
func NewPostgresNumberGenerator(pool *pgxpool.Pool) *PostgresNumberGenerator {
	return &PostgresNumberGenerator{pool: pool}
}

func (g *PostgresNumberGenerator) Next(ctx context.Context, prefix string, at time.Time) (string, error) {
	const query = `
        INSERT INTO number_sequences (prefix, day, value) VALUES ($1, $2, 1)
        ON CONFLICT (prefix, day) DO UPDATE SET value = number_sequences.value + 1
        RETURNING value`
	day := at.UTC().Format("20060102")
	var n int64
	if err := g.pool.QueryRow(ctx, query, prefix, day).Scan(&n); err != nil {
		return "", fmt.Errorf("next %s number: %w", prefix, err)
	}
	return FormatNumber(prefix, day, n), nil
}

// FormatNumber renders a sequence value.
func FormatNumber(prefix, day string, n int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day, n)
}

// RandomNumber renders a number with a random six-digit hex suffix.
func RandomNumber(prefix, day string) (string, error) {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%s", prefix, day, strings.ToUpper(hex.EncodeToString(b[:]))), nil
}
