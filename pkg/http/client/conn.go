package client

import (
	"errors"
	"net"
	"time"
)

// ErrConnExpired marks a connection past its max lifetime. The retry
// transport replaces such connections without burning a retry attempt.
var ErrConnExpired = errors.New("connection expired")

// timedConn enforces a max connection lifetime. Once expired it reports
// itself closed on the next read or write, so the transport dials a fresh
// connection and re-resolves DNS.
type timedConn struct {
	net.Conn
	createdAt   time.Time
	maxLifetime time.Duration
}

func (c *timedConn) expired() bool {
	return time.Since(c.createdAt) > c.maxLifetime
}

func (c *timedConn) Read(b []byte) (int, error) {
	if c.expired() {
		_ = c.Close()
		return 0, ErrConnExpired
	}
	return c.Conn.Read(b)
}

func (c *timedConn) Write(b []byte) (int, error) {
	if c.expired() {
		_ = c.Close()
		return 0, ErrConnExpired
	}
	return c.Conn.Write(b)
}
