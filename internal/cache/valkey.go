// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package cache connects to Valkey (Redis-compatible) and holds the
// approved-comment listing cache used by the public post page.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyOptions describes where the Valkey server lives.
type ValkeyOptions struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr is the host:port pair handed to the client.
func (o ValkeyOptions) Addr() string {
	return net.JoinHostPort(o.Host, o.Port)
}

// Connect builds a client for o and pings it. The client is closed again
// if the ping fails.
func Connect(ctx context.Context, o ValkeyOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         o.Addr(),
		Password:     o.Password,
		DB:           o.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("valkey ping %s: %w", o.Addr(), err)
	}

	slog.Info("valkey connected", "addr", o.Addr(), "db", o.DB)
	return client, nil
}
