package test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mini-wamp/client"
	"mini-wamp/config"
	"mini-wamp/message"
	"mini-wamp/middleware"
	"mini-wamp/registry"
	"mini-wamp/routertest"
	"mini-wamp/service"
)

// ---- 测试用的服务 ----

type Args struct {
	A, B int
}

type Reply struct {
	Result int
}

type Arith struct{}

func (a *Arith) Add(args *Args, reply *Reply) error {
	reply.Result = args.A + args.B
	return nil
}

func (a *Arith) Multiply(args *Args, reply *Reply) error {
	reply.Result = args.A * args.B
	return nil
}

func startRouter(t testing.TB, opts ...routertest.Option) *routertest.Router {
	t.Helper()
	r, err := routertest.New(append([]routertest.Option{routertest.Auto()}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close(3 * time.Second) })
	return r
}

// join connects with cfg, runs the session and waits for Welcome.
func join(t testing.TB, cfg config.ClientConfig, opts ...client.Option) *client.Session {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	s, err := client.Connect(ctx, cfg, opts...)
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})

	select {
	case <-s.Joined():
	case err := <-errc:
		t.Fatalf("session ended before Welcome: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for Welcome")
	}
	return s
}

func urlConfig(url string) config.ClientConfig {
	cfg := config.Default()
	cfg.URL = url
	cfg.DialRetries = 1
	return cfg
}

func resultOf(t testing.TB, res *message.Result) int {
	t.Helper()
	require.Len(t, res.Args, 1)
	obj, ok := res.Args[0].(map[string]any)
	require.True(t, ok, "result is %T", res.Args[0])
	n, err := obj["Result"].(json.Number).Int64()
	require.NoError(t, err)
	return int(n)
}

// TestCallThroughRouter 完整端到端测试
// 链路: Client → WebSocket → Router → Callee session → reflect 调用 → Yield → Result
func TestCallThroughRouter(t *testing.T) {
	r := startRouter(t)
	ctx := context.Background()

	callee := join(t, urlConfig(r.WebSocketURL()))
	svc, err := service.NewService(&Arith{}, "com.arith")
	require.NoError(t, err)
	_, err = svc.Serve(ctx, callee)
	require.NoError(t, err)

	caller := join(t, urlConfig(r.RawSocketURL()))
	res, err := caller.Call(ctx, "com.arith.Add", nil, message.Dict{"A": 3, "B": 5})
	require.NoError(t, err)
	assert.Equal(t, 8, resultOf(t, res))

	res, err = caller.Call(ctx, "com.arith.Multiply", message.List{message.Dict{"A": 4, "B": 6}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 24, resultOf(t, res))

	_, err = caller.Call(ctx, "com.arith.Missing", nil, nil)
	var wampErr *message.Error
	require.ErrorAs(t, err, &wampErr)
	assert.Equal(t, string(message.ErrNoSuchProcedure), wampErr.URI)
}

func TestPubSubThroughRouter(t *testing.T) {
	r := startRouter(t)
	ctx := context.Background()

	sub := join(t, urlConfig(r.WebSocketURL()))
	events := make(chan *message.Event, 8)
	subscribed, err := sub.Subscribe(ctx, "com.news", nil, func(ev *message.Event) { events <- ev })
	require.NoError(t, err)

	pub := join(t, urlConfig(r.WebSocketURL()))
	published, err := pub.Publish(ctx, "com.news", message.List{"hello"}, nil, true)
	require.NoError(t, err)
	require.NotNil(t, published)

	select {
	case ev := <-events:
		assert.Equal(t, subscribed.Subscription, ev.Subscription)
		assert.Equal(t, published.Publication, ev.Publication)
		assert.Equal(t, message.List{"hello"}, ev.Args)
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered")
	}

	require.NoError(t, sub.Unsubscribe(ctx, subscribed.Subscription))
	_, err = pub.Publish(ctx, "com.news", message.List{"again"}, nil, true)
	require.NoError(t, err)
	select {
	case ev := <-events:
		t.Fatalf("event after unsubscribe: %v", ev.Args)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestProgressiveCallThroughRouter(t *testing.T) {
	r := startRouter(t)
	ctx := context.Background()

	callee := join(t, urlConfig(r.WebSocketURL()))
	_, err := callee.Register(ctx, "com.count", nil, func(_ context.Context, inv *message.Invocation) (message.List, message.Dict, error) {
		return message.List{"done"}, nil, nil
	})
	require.NoError(t, err)

	caller := join(t, urlConfig(r.WebSocketURL()))
	var progress int
	res, err := caller.CallProgress(ctx, "com.count", nil, nil, func(*message.Result) { progress++ })
	require.NoError(t, err)
	assert.Equal(t, message.List{"done"}, res.Args)
	assert.Equal(t, 0, progress)
}

func TestTicketAuthThroughRouter(t *testing.T) {
	r := startRouter(t, routertest.WithTicket("s3cret"))

	cfg := urlConfig(r.WebSocketURL())
	cfg.Auth = config.AuthConfig{Method: "ticket", AuthID: "joe", Ticket: "s3cret"}
	s := join(t, cfg)
	assert.NotZero(t, s.ID())

	cfg.Auth.Ticket = "wrong"
	bad, err := client.Connect(context.Background(), cfg)
	require.NoError(t, err)
	err = bad.Run(context.Background())
	var abort *client.AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, string(message.ErrAuthorizationFailed), abort.Abort.Reason)
}

func TestWrongRealmAborts(t *testing.T) {
	r := startRouter(t, routertest.WithRealm("com.example"))
	s, err := client.Connect(context.Background(), urlConfig(r.WebSocketURL()))
	require.NoError(t, err)
	err = s.Run(context.Background())
	var abort *client.AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, string(message.ErrNoSuchRealm), abort.Abort.Reason)
}

func TestLeaveThroughRouter(t *testing.T) {
	r := startRouter(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := client.Connect(ctx, urlConfig(r.WebSocketURL()))
	require.NoError(t, err)
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	<-s.Joined()

	require.NoError(t, s.Leave(message.CloseNormal))
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Leave did not complete")
	}
	assert.Equal(t, client.StateClosed, s.State())
}

// TestScriptedRouter drives the router side by hand.
func TestScriptedRouter(t *testing.T) {
	r, err := routertest.New()
	require.NoError(t, err)
	defer r.Close(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	s, err := client.Connect(ctx, urlConfig(r.WebSocketURL()))
	require.NoError(t, err)
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()

	peer, err := r.Accept(ctx)
	require.NoError(t, err)
	_, err = peer.Expect(message.TypeHello, time.Second)
	require.NoError(t, err)
	require.NoError(t, peer.Send(&message.Welcome{Session: 42, Details: message.Dict{}}))
	<-s.Joined()
	assert.Equal(t, uint64(42), s.ID())

	require.NoError(t, peer.SendRaw(`[48,1,{},"not.for.clients"]`))
	select {
	case err := <-errc:
		var invalid *client.InvalidFrameError
		assert.ErrorAs(t, err, &invalid)
	case <-time.After(2 * time.Second):
		t.Fatal("session survived an invalid frame")
	}
}

// TestMiddlewareThroughRouter mounts the logging and metrics middlewares on a
// live session.
func TestMiddlewareThroughRouter(t *testing.T) {
	r := startRouter(t)
	reg := prometheus.NewRegistry()
	s := join(t, urlConfig(r.WebSocketURL()),
		client.WithMiddleware(
			middleware.LoggingMiddleware(zerolog.Nop()),
			middleware.Prometheus(middleware.WithRegistry(reg)),
		))

	_, err := s.Publish(context.Background(), "t", nil, nil, true)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["wamp_client_messages_received_total"])
}

// TestDiscoveryPicksAnnouncedRouter 多实例 + 负载均衡 + 注册中心
func TestDiscoveryPicksAnnouncedRouter(t *testing.T) {
	r1 := startRouter(t)
	r2 := startRouter(t)
	ctx := context.Background()

	reg := registry.NewStaticRegistry(nil)
	require.NoError(t, r1.Announce(ctx, reg, "realm1", 10))
	require.NoError(t, r2.Announce(ctx, reg, "realm1", 10))
	instances, err := reg.Discover(ctx, "realm1")
	require.NoError(t, err)
	assert.Len(t, instances, 4)

	cfg := config.Default()
	cfg.Routers = instances
	cfg.DialRetries = 1
	for i := 0; i < 4; i++ {
		s := join(t, cfg)
		_, err := s.Publish(ctx, "t", nil, nil, true)
		require.NoError(t, err)
	}

	// A withdrawn router is no longer offered.
	require.NoError(t, r1.Close(time.Second))
	instances, err = reg.Discover(ctx, "realm1")
	require.NoError(t, err)
	assert.Len(t, instances, 2)
}

func TestDialSkipsDeadRouter(t *testing.T) {
	r := startRouter(t)
	cfg := config.Default()
	cfg.DialRetries = 1
	cfg.HandshakeTimeout = time.Second
	cfg.Routers = []registry.RouterInstance{
		{URL: "tcp://127.0.0.1:1", Weight: 1},
		{URL: r.WebSocketURL(), Weight: 1},
	}
	s := join(t, cfg)
	assert.NotZero(t, s.ID())
}

func TestFullIntegrationWithEtcd(t *testing.T) {
	reg, err := registry.NewEtcdRegistry([]string{"127.0.0.1:2379"}, time.Second, zerolog.Nop())
	if err != nil {
		t.Skipf("etcd unavailable: %v", err)
	}
	defer reg.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := reg.Ping(pingCtx); err != nil {
		t.Skipf("etcd unavailable: %v", err)
	}

	r := startRouter(t, routertest.WithRealm("com.integration"))
	ctx := context.Background()
	require.NoError(t, r.Announce(ctx, reg, "com.integration", 10))

	cfg := config.Default()
	cfg.Realm = "com.integration"
	cfg.Registry.Endpoints = []string{"127.0.0.1:2379"}
	cfg.DialRetries = 1
	s := join(t, cfg)
	_, err = s.Publish(ctx, "t", nil, nil, true)
	require.NoError(t, err)
}
