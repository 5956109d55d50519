// Package loadbalance picks which router a client dials when a realm is
// served by more than one.
//
// Three strategies are implemented:
//   - RoundRobin:      spread sessions evenly across equal routers
//   - WeightedRandom:  routers of different capacity
//   - ConsistentHash:  pin a client (by auth id or name) to one router
package loadbalance

import (
	"errors"
	"fmt"

	"mini-wamp/registry"
)

var ErrNoInstances = errors.New("loadbalance: no routers available")

// Balancer is the interface for load balancing strategies.
// The client calls Pick() before each connection attempt.
type Balancer interface {
	// Pick selects one router from the available list.
	// Must be goroutine-safe.
	Pick(instances []registry.RouterInstance) (*registry.RouterInstance, error)

	// Name returns the strategy name (for logging/debugging).
	Name() string
}

// New returns the strategy named in configuration. key only matters for
// consistent_hash.
func New(name, key string) (Balancer, error) {
	switch name {
	case "", "round_robin":
		return &RoundRobinBalancer{}, nil
	case "weighted_random":
		return &WeightedRandomBalancer{}, nil
	case "consistent_hash":
		return NewConsistentHashBalancer(key), nil
	}
	return nil, fmt.Errorf("loadbalance: unknown strategy %q", name)
}
