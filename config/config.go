// Package config loads client settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"mini-wamp/loadbalance"
	"mini-wamp/registry"
)

type RegistryConfig struct {
	Endpoints   []string
	DialTimeout time.Duration
}

type AuthConfig struct {
	Method string
	AuthID string
	Ticket string
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// ClientConfig is everything needed to reach a router and join a realm.
// Exactly one of URL, Routers or Registry.Endpoints says where the router is.
type ClientConfig struct {
	Realm            string
	URL              string
	Routers          []registry.RouterInstance
	Balancer         string
	BalancerKey      string
	Registry         RegistryConfig
	Auth             AuthConfig
	RateLimit        RateLimitConfig
	Keepalive        time.Duration
	DialRetries      uint
	HandshakeTimeout time.Duration
	MaxLengthExp     byte
	LogLevel         string
}

func Default() ClientConfig {
	return ClientConfig{
		Realm:            "realm1",
		Balancer:         "round_robin",
		Registry:         RegistryConfig{DialTimeout: 5 * time.Second},
		Keepalive:        30 * time.Second,
		DialRetries:      3,
		HandshakeTimeout: 10 * time.Second,
		MaxLengthExp:     15,
		LogLevel:         "info",
	}
}

type fileConfig struct {
	Realm            string                    `toml:"realm"`
	URL              string                    `toml:"url"`
	Routers          []registry.RouterInstance `toml:"routers"`
	Balancer         string                    `toml:"balancer"`
	BalancerKey      string                    `toml:"balancer_key"`
	Keepalive        string                    `toml:"keepalive"`
	DialRetries      uint                      `toml:"dial_retries"`
	HandshakeTimeout string                    `toml:"handshake_timeout"`
	MaxLengthExp     uint8                     `toml:"max_length_exp"`
	LogLevel         string                    `toml:"log_level"`
	Registry         struct {
		Endpoints   []string `toml:"endpoints"`
		DialTimeout string   `toml:"dial_timeout"`
	} `toml:"registry"`
	Auth struct {
		Method string `toml:"method"`
		AuthID string `toml:"authid"`
		Ticket string `toml:"ticket"`
	} `toml:"auth"`
	RateLimit struct {
		PerSecond float64 `toml:"per_second"`
		Burst     int     `toml:"burst"`
	} `toml:"rate_limit"`
}

// Load reads path over the defaults and validates the result.
func Load(path string) (ClientConfig, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("load client config: %w", err)
	}
	return fromFile(raw, meta)
}

// Parse is Load for an in-memory document.
func Parse(doc string) (ClientConfig, error) {
	var raw fileConfig
	meta, err := toml.Decode(doc, &raw)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("parse client config: %w", err)
	}
	return fromFile(raw, meta)
}

func fromFile(raw fileConfig, meta toml.MetaData) (ClientConfig, error) {
	cfg := Default()

	if meta.IsDefined("realm") {
		cfg.Realm = strings.TrimSpace(raw.Realm)
	}
	if meta.IsDefined("url") {
		cfg.URL = strings.TrimSpace(raw.URL)
	}
	if meta.IsDefined("routers") {
		cfg.Routers = raw.Routers
	}
	if meta.IsDefined("balancer") {
		cfg.Balancer = strings.TrimSpace(raw.Balancer)
	}
	if meta.IsDefined("balancer_key") {
		cfg.BalancerKey = raw.BalancerKey
	}
	if meta.IsDefined("dial_retries") {
		cfg.DialRetries = raw.DialRetries
	}
	if meta.IsDefined("max_length_exp") {
		cfg.MaxLengthExp = raw.MaxLengthExp
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"keepalive", raw.Keepalive, &cfg.Keepalive},
		{"handshake_timeout", raw.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"registry.dial_timeout", raw.Registry.DialTimeout, &cfg.Registry.DialTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(strings.Split(d.key, ".")...) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return ClientConfig{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("registry", "endpoints") {
		cfg.Registry.Endpoints = normalize(raw.Registry.Endpoints)
	}
	if meta.IsDefined("auth") {
		cfg.Auth = AuthConfig{
			Method: strings.TrimSpace(raw.Auth.Method),
			AuthID: strings.TrimSpace(raw.Auth.AuthID),
			Ticket: raw.Auth.Ticket,
		}
	}
	if meta.IsDefined("rate_limit") {
		cfg.RateLimit = RateLimitConfig{PerSecond: raw.RateLimit.PerSecond, Burst: raw.RateLimit.Burst}
	}

	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func normalize(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Validate reports every problem at once.
func (c ClientConfig) Validate() error {
	var errs []error
	if c.Realm == "" || strings.ContainsAny(c.Realm, " \t#") {
		errs = append(errs, fmt.Errorf("realm %q is not a valid URI", c.Realm))
	}

	sources := 0
	if c.URL != "" {
		sources++
	}
	if len(c.Routers) > 0 {
		sources++
	}
	if len(c.Registry.Endpoints) > 0 {
		sources++
	}
	switch sources {
	case 0:
		errs = append(errs, errors.New("one of url, routers or registry.endpoints is required"))
	case 1:
	default:
		errs = append(errs, errors.New("url, routers and registry.endpoints are mutually exclusive"))
	}
	for i, r := range c.Routers {
		if r.URL == "" {
			errs = append(errs, fmt.Errorf("routers[%d]: url is required", i))
		}
	}

	if _, err := loadbalance.New(c.Balancer, c.BalancerKey); err != nil {
		errs = append(errs, err)
	}

	switch c.Auth.Method {
	case "":
	case "ticket":
		if c.Auth.Ticket == "" {
			errs = append(errs, errors.New("auth.ticket is required for ticket auth"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.method %q is not supported", c.Auth.Method))
	}

	if c.RateLimit.PerSecond < 0 {
		errs = append(errs, errors.New("rate_limit.per_second must not be negative"))
	}
	if c.RateLimit.PerSecond > 0 && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.burst must be at least 1"))
	}
	if c.Keepalive < 0 {
		errs = append(errs, errors.New("keepalive must not be negative"))
	}
	if c.MaxLengthExp > 15 {
		errs = append(errs, fmt.Errorf("max_length_exp %d exceeds 15", c.MaxLengthExp))
	}
	if c.DialRetries == 0 {
		errs = append(errs, errors.New("dial_retries must be at least 1"))
	}
	return errors.Join(errs...)
}
