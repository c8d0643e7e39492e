package client

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Defaults assume in-cluster peers behind a service: a generous idle pool,
// with MaxConnLifetime forcing periodic reconnects so new pods get traffic.
const (
	DefaultTimeout             = 10 * time.Second
	DefaultMaxIdleConnsPerHost = 100
	DefaultIdleConnTimeout     = 90 * time.Second
	DefaultMaxConnLifetime     = 60 * time.Second
	maxRetriesCap              = 5
)

// Config holds the settings of one named HTTP client, loaded from the
// clients.<name> config subtree:
//
//	clients:
//	  category-service:
//	    base-url: http://category-service:8080
//	    timeout: 10s
//
// Omitted timeout fields take the defaults above; explicit 0 disables.
type Config struct {
	BaseURL             string         `mapstructure:"base-url"`
	Timeout             *time.Duration `mapstructure:"timeout"`
	MaxIdleConnsPerHost *int           `mapstructure:"max-idle-conns-per-host"`
	IdleConnTimeout     *time.Duration `mapstructure:"idle-conn-timeout"`
	MaxConnLifetime     *time.Duration `mapstructure:"max-conn-lifetime"`
}

func (c *Config) applyDefaults() {
	if c.Timeout == nil {
		c.Timeout = lo.ToPtr(DefaultTimeout)
	}
	if c.MaxIdleConnsPerHost == nil {
		c.MaxIdleConnsPerHost = lo.ToPtr(DefaultMaxIdleConnsPerHost)
	}
	if c.IdleConnTimeout == nil {
		c.IdleConnTimeout = lo.ToPtr(DefaultIdleConnTimeout)
	}
	if c.MaxConnLifetime == nil {
		c.MaxConnLifetime = lo.ToPtr(DefaultMaxConnLifetime)
	}
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base-url is required")
	}
	return nil
}

func newHTTPClient(cfg Config) *http.Client {
	dialer := &net.Dialer{Timeout: 5 * time.Second}

	var dialContext func(ctx context.Context, network, addr string) (net.Conn, error)
	if lifetime := *cfg.MaxConnLifetime; lifetime > 0 {
		dialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &timedConn{Conn: conn, createdAt: time.Now(), maxLifetime: lifetime}, nil
		}
	}

	transport := &http.Transport{
		DialContext:         dialContext,
		MaxIdleConnsPerHost: *cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     *cfg.IdleConnTimeout,
	}

	return &http.Client{
		Timeout: *cfg.Timeout,
		Transport: &retryTransport{
			base:       transport,
			transport:  transport,
			maxRetries: min(*cfg.MaxIdleConnsPerHost, maxRetriesCap),
		},
	}
}

// Provide returns an fx-friendly constructor for a named HTTP client.
//
//	fx.Provide(fx.Private, client.Provide("category-service"))
func Provide(name string) func(*viper.Viper) (*http.Client, Config, error) {
	return func(v *viper.Viper) (*http.Client, Config, error) {
		var cfg Config
		if err := v.UnmarshalKey("clients."+name, &cfg); err != nil {
			return nil, Config{}, fmt.Errorf("failed to unmarshal client config %q: %w", name, err)
		}
		if err := cfg.validate(); err != nil {
			return nil, Config{}, fmt.Errorf("invalid client config %q: %w", name, err)
		}
		cfg.applyDefaults()
		return newHTTPClient(cfg), cfg, nil
	}
}
