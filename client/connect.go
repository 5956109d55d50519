package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"mini-wamp/config"
	"mini-wamp/loadbalance"
	"mini-wamp/message"
	"mini-wamp/registry"
	"mini-wamp/transport"
)

// Locator finds a router for a realm and dials it. Routers that fail to
// connect are skipped until every known router has been tried.
type Locator struct {
	Registry    registry.Registry
	Balancer    loadbalance.Balancer
	DialOptions []transport.DialOption
	Logger      zerolog.Logger

	mu     sync.Mutex
	routes map[string][]registry.RouterInstance
}

// Follow keeps the router list for realm current from the registry's Watch
// until ctx is done. While a non-empty list is cached DialRealm uses it
// instead of calling Discover.
func (l *Locator) Follow(ctx context.Context, realm string) {
	updates := l.Registry.Watch(ctx, realm)
	go func() {
		for list := range updates {
			l.mu.Lock()
			if l.routes == nil {
				l.routes = make(map[string][]registry.RouterInstance)
			}
			l.routes[realm] = list
			l.mu.Unlock()
			l.Logger.Debug().Str("realm", realm).Int("routers", len(list)).Msg("router list updated")
		}
		l.mu.Lock()
		delete(l.routes, realm)
		l.mu.Unlock()
	}()
}

// Routers returns the cached router list for realm, if Follow has one.
func (l *Locator) Routers(realm string) []registry.RouterInstance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]registry.RouterInstance(nil), l.routes[realm]...)
}

// DialRealm returns an open connection to one of realm's routers.
func (l *Locator) DialRealm(ctx context.Context, realm string) (transport.Conn, *registry.RouterInstance, error) {
	instances := l.Routers(realm)
	if len(instances) == 0 {
		var err error
		instances, err = l.Registry.Discover(ctx, realm)
		if err != nil {
			return nil, nil, fmt.Errorf("client: discover %s: %w", realm, err)
		}
	}

	var errs []error
	for len(instances) > 0 {
		inst, err := l.Balancer.Pick(instances)
		if err != nil {
			return nil, nil, err
		}
		picked := *inst
		conn, err := transport.Dial(ctx, picked.URL, l.DialOptions...)
		if err == nil {
			l.Logger.Info().Str("realm", realm).Str("url", picked.URL).Str("balancer", l.Balancer.Name()).Msg("router selected")
			return conn, &picked, nil
		}
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		l.Logger.Warn().Err(err).Str("url", picked.URL).Msg("router unreachable")
		errs = append(errs, err)
		instances = without(instances, picked.URL)
	}
	return nil, nil, fmt.Errorf("client: no router for %s reachable: %w", realm, errors.Join(errs...))
}

func without(instances []registry.RouterInstance, url string) []registry.RouterInstance {
	out := make([]registry.RouterInstance, 0, len(instances))
	for _, inst := range instances {
		if inst.URL != url {
			out = append(out, inst)
		}
	}
	return out
}

// NewLocator builds the registry and balancer cfg describes. A single URL
// becomes a one-entry static registry.
func NewLocator(cfg config.ClientConfig, logger zerolog.Logger) (*Locator, error) {
	var reg registry.Registry
	switch {
	case len(cfg.Registry.Endpoints) > 0:
		etcd, err := registry.NewEtcdRegistry(cfg.Registry.Endpoints, cfg.Registry.DialTimeout, logger)
		if err != nil {
			return nil, fmt.Errorf("client: registry: %w", err)
		}
		reg = etcd
	case len(cfg.Routers) > 0:
		reg = registry.NewStaticRegistry(map[string][]registry.RouterInstance{cfg.Realm: cfg.Routers})
	default:
		reg = registry.NewStaticRegistry(map[string][]registry.RouterInstance{
			cfg.Realm: {{URL: cfg.URL, Weight: 1}},
		})
	}

	key := cfg.BalancerKey
	if key == "" {
		key = cfg.Auth.AuthID
	}
	bal, err := loadbalance.New(cfg.Balancer, key)
	if err != nil {
		return nil, err
	}

	return &Locator{
		Registry: reg,
		Balancer: bal,
		DialOptions: []transport.DialOption{
			transport.WithRetries(cfg.DialRetries),
			transport.WithHandshakeTimeout(cfg.HandshakeTimeout),
			transport.WithMaxLengthExp(cfg.MaxLengthExp),
			transport.WithDialLogger(logger),
		},
		Logger: logger,
	}, nil
}

// Connect dials a router for cfg.Realm and sends Hello. The caller runs the
// returned session with Run and waits on Joined. Keepalive pings and the
// outbound rate limit stop when ctx is done.
func Connect(ctx context.Context, cfg config.ClientConfig, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := NewLocator(cfg, o.logger)
	if err != nil {
		return nil, err
	}
	conn, router, err := loc.DialRealm(ctx, cfg.Realm)
	if err != nil {
		return nil, err
	}
	if cfg.RateLimit.PerSecond > 0 {
		conn = transport.NewLimitedConn(ctx, conn, cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	}

	hello := message.NewHello(cfg.Realm)
	if cfg.Auth.Method == "ticket" {
		hello = TicketHello(hello, cfg.Auth.AuthID)
		opts = append(opts, OnChallenge(TicketAuth(cfg.Auth.Ticket)))
	}

	s := New(conn, opts...)
	s.logger = s.logger.With().Str("router", router.URL).Logger()
	if err := s.Join(cfg.Realm, hello); err != nil {
		conn.Close()
		return nil, err
	}

	kctx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		select {
		case <-s.Done():
		case <-kctx.Done():
		}
	}()
	go transport.Keepalive(kctx, conn, cfg.Keepalive, s.logger)
	return s, nil
}
