package registry

import (
	"context"
	"sync"
)

// StaticRegistry serves a fixed router list, usually loaded from config.
// Watch emits the current list whenever Register or Deregister changes it.
type StaticRegistry struct {
	mu       sync.Mutex
	realms   map[string][]RouterInstance
	watchers map[string][]chan []RouterInstance
}

func NewStaticRegistry(realms map[string][]RouterInstance) *StaticRegistry {
	r := &StaticRegistry{
		realms:   make(map[string][]RouterInstance),
		watchers: make(map[string][]chan []RouterInstance),
	}
	for realm, list := range realms {
		r.realms[realm] = append([]RouterInstance(nil), list...)
	}
	return r
}

// Register ignores ttl; static entries never expire.
func (r *StaticRegistry) Register(_ context.Context, realm string, instance RouterInstance, _ int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.realms[realm]
	for i := range list {
		if list[i].URL == instance.URL {
			list[i] = instance
			r.notify(realm)
			return nil
		}
	}
	r.realms[realm] = append(list, instance)
	r.notify(realm)
	return nil
}

func (r *StaticRegistry) Deregister(_ context.Context, realm string, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.realms[realm]
	for i := range list {
		if list[i].URL == url {
			r.realms[realm] = append(list[:i:i], list[i+1:]...)
			r.notify(realm)
			return nil
		}
	}
	return nil
}

func (r *StaticRegistry) Discover(_ context.Context, realm string) ([]RouterInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.realms[realm]
	if len(list) == 0 {
		return nil, ErrNoRouters
	}
	return append([]RouterInstance(nil), list...), nil
}

// Watch closes the returned channel when ctx is done.
func (r *StaticRegistry) Watch(ctx context.Context, realm string) <-chan []RouterInstance {
	ch := make(chan []RouterInstance, 1)
	r.mu.Lock()
	r.watchers[realm] = append(r.watchers[realm], ch)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		ws := r.watchers[realm]
		for i, w := range ws {
			if w == ch {
				r.watchers[realm] = append(ws[:i:i], ws[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

// notify must be called with mu held. Slow watchers only see the latest list.
func (r *StaticRegistry) notify(realm string) {
	snapshot := append([]RouterInstance(nil), r.realms[realm]...)
	for _, ch := range r.watchers[realm] {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}
