// Package registry provides the etcd-based implementation of the Registry interface.
//
// Routers announce themselves under a realm prefix so clients can find one
// without a hardcoded URL:
//
//	Key:   /mini-wamp/{Realm}/{URL}
//	Value: JSON-encoded RouterInstance
//
// Registration uses TTL-based leases: if the router dies, the lease expires
// and the entry is removed.
package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	clientv3 "go.etcd.io/etcd/client/v3"
)

const keyPrefix = "/mini-wamp/"

// EtcdRegistry implements the Registry interface using etcd v3.
type EtcdRegistry struct {
	client *clientv3.Client // etcd client connection (thread-safe, shared across goroutines)
	logger zerolog.Logger
}

// NewEtcdRegistry creates a new registry connected to the given etcd endpoints.
func NewEtcdRegistry(endpoints []string, dialTimeout time.Duration, logger zerolog.Logger) (*EtcdRegistry, error) {
	c, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: dialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &EtcdRegistry{client: c, logger: logger}, nil
}

func realmPrefix(realm string) string { return keyPrefix + realm + "/" }

// Register announces a router for realm with a TTL lease.
//
// Flow:
//  1. Create a lease with the given TTL (e.g., 10 seconds)
//  2. Put the key-value pair with the lease attached
//  3. Start KeepAlive to renew the lease until ctx is done
//
// Note: leaseID is a local variable, NOT stored on the struct, so one
// EtcdRegistry can announce several routers.
func (r *EtcdRegistry) Register(ctx context.Context, realm string, instance RouterInstance, ttl int64) error {
	lease, err := r.client.Grant(ctx, ttl)
	if err != nil {
		return err
	}

	val, err := json.Marshal(instance)
	if err != nil {
		return err
	}

	_, err = r.client.Put(ctx, realmPrefix(realm)+instance.URL, string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return err
	}

	ch, err := r.client.KeepAlive(ctx, lease.ID)
	if err != nil {
		return err
	}

	// Consume KeepAlive responses to prevent the channel from filling up
	go func() {
		for range ch {
		}
		r.logger.Debug().Str("realm", realm).Str("url", instance.URL).Msg("router lease keepalive stopped")
	}()
	return nil
}

// Deregister removes a router entry. Called during graceful shutdown.
func (r *EtcdRegistry) Deregister(ctx context.Context, realm string, url string) error {
	_, err := r.client.Delete(ctx, realmPrefix(realm)+url)
	return err
}

// Watch emits the full router list for realm whenever it changes, until ctx
// is done.
//
// Uses etcd's Watch API (server-push), which is more efficient than polling.
func (r *EtcdRegistry) Watch(ctx context.Context, realm string) <-chan []RouterInstance {
	ch := make(chan []RouterInstance, 1)

	go func() {
		defer close(ch)
		watchChan := r.client.Watch(ctx, realmPrefix(realm), clientv3.WithPrefix())
		for range watchChan {
			// On any change, re-fetch the full list
			// (simpler than parsing individual watch events)
			instances, err := r.Discover(ctx, realm)
			if err != nil && err != ErrNoRouters {
				r.logger.Warn().Err(err).Str("realm", realm).Msg("router discovery failed")
				continue
			}
			select {
			case ch <- instances:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}

// Discover returns all routers currently announced for realm.
func (r *EtcdRegistry) Discover(ctx context.Context, realm string) ([]RouterInstance, error) {
	resp, err := r.client.Get(ctx, realmPrefix(realm), clientv3.WithPrefix())
	if err != nil {
		return nil, err
	}

	instances := make([]RouterInstance, 0, len(resp.Kvs))
	for _, kv := range resp.Kvs {
		var instance RouterInstance
		if err := json.Unmarshal(kv.Value, &instance); err != nil {
			r.logger.Warn().Err(err).Bytes("key", kv.Key).Msg("skipping malformed router entry")
			continue
		}
		instances = append(instances, instance)
	}
	if len(instances) == 0 {
		return nil, ErrNoRouters
	}
	return instances, nil
}

// Ping checks that an endpoint answers.
func (r *EtcdRegistry) Ping(ctx context.Context) error {
	for _, ep := range r.client.Endpoints() {
		if _, err := r.client.Status(ctx, ep); err != nil {
			return err
		}
	}
	return nil
}

func (r *EtcdRegistry) Close() error {
	return r.client.Close()
}
