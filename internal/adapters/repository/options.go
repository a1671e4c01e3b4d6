package repository

import "time"

// PoolConfig tunes the Postgres connection pool.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

func defaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

// Option applies a configuration option to the Postgres pool.
type Option func(*PoolConfig)

// WithMaxConns sets the maximum pool size.
func WithMaxConns(n int32) Option {
	return func(c *PoolConfig) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// WithMinConns sets the number of idle connections kept open.
func WithMinConns(n int32) Option {
	return func(c *PoolConfig) {
		if n > 0 {
			c.MinConns = n
		}
	}
}

// WithConnLifetime bounds how long a connection is reused and how long it may idle.
func WithConnLifetime(lifetime, idle time.Duration) Option {
	return func(c *PoolConfig) {
		if lifetime > 0 {
			c.MaxConnLifetime = lifetime
		}
		if idle > 0 {
			c.MaxConnIdleTime = idle
		}
	}
}
