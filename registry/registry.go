// Package registry tells a client which routers serve a realm.
package registry

import (
	"context"
	"errors"
)

var ErrNoRouters = errors.New("registry: no routers for realm")

// RouterInstance is one router endpoint a client may dial.
type RouterInstance struct {
	URL     string `json:"url" toml:"url"`
	Weight  int    `json:"weight" toml:"weight"` // Weight for load balancing
	Version string `json:"version,omitempty" toml:"version"`
}

type Registry interface {
	Register(ctx context.Context, realm string, instance RouterInstance, ttl int64) error
	Deregister(ctx context.Context, realm string, url string) error
	Discover(ctx context.Context, realm string) ([]RouterInstance, error)
	Watch(ctx context.Context, realm string) <-chan []RouterInstance
}
