package loadbalance

import (
	"fmt"
	"hash/crc32"
	"sort"
	"strings"
	"sync"

	"mini-wamp/registry"
)

// ConsistentHashBalancer maps a key to a router using a hash ring, so the
// same client keeps landing on the same router while the router set is
// stable, and only a fraction of clients move when it changes.
//
// Each router gets N virtual nodes on the ring to even out the spread.
//
//	Hash Ring:
//	                  0
//	                ╱   ╲
//	              ╱       ╲
//	         B ●               ● A
//	           │    key ◆──►   │   (clockwise to nearest node → A)
//	         C ●               ● A' (virtual node of A)
//	              ╲       ╱
//	                ╲   ╱
type ConsistentHashBalancer struct {
	key      string
	replicas int // Virtual nodes per router

	mu      sync.Mutex
	members string                             // Fingerprint of the routers on the ring
	ring    []uint32                           // Sorted hash values on the ring
	nodes   map[uint32]registry.RouterInstance // Hash value → router
}

// NewConsistentHashBalancer hashes key onto a ring with 100 virtual nodes
// per router.
func NewConsistentHashBalancer(key string) *ConsistentHashBalancer {
	return &ConsistentHashBalancer{
		key:      key,
		replicas: 100,
		nodes:    make(map[uint32]registry.RouterInstance),
	}
}

// Add places a router onto the ring.
func (b *ConsistentHashBalancer) Add(instance registry.RouterInstance) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.add(instance)
	b.sortRing()
}

func (b *ConsistentHashBalancer) add(instance registry.RouterInstance) {
	for i := 0; i < b.replicas; i++ {
		hash := crc32.ChecksumIEEE([]byte(fmt.Sprintf("%s#%d", instance.URL, i)))
		b.ring = append(b.ring, hash)
		b.nodes[hash] = instance
	}
}

func (b *ConsistentHashBalancer) sortRing() {
	sort.Slice(b.ring, func(i, j int) bool { return b.ring[i] < b.ring[j] })
}

// Pick rebuilds the ring when the router set changed, then returns the
// router owning the balancer's key.
func (b *ConsistentHashBalancer) Pick(instances []registry.RouterInstance) (*registry.RouterInstance, error) {
	if len(instances) == 0 {
		return nil, ErrNoInstances
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	urls := make([]string, len(instances))
	for i, inst := range instances {
		urls[i] = inst.URL
	}
	sort.Strings(urls)
	if members := strings.Join(urls, "\n"); members != b.members {
		b.members = members
		b.ring = b.ring[:0]
		b.nodes = make(map[uint32]registry.RouterInstance, len(instances)*b.replicas)
		for _, inst := range instances {
			b.add(inst)
		}
		b.sortRing()
	}
	return b.lookup(b.key)
}

// PickKey returns the router owning key on the current ring.
func (b *ConsistentHashBalancer) PickKey(key string) (*registry.RouterInstance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lookup(key)
}

func (b *ConsistentHashBalancer) lookup(key string) (*registry.RouterInstance, error) {
	if len(b.ring) == 0 {
		return nil, ErrNoInstances
	}
	hash := crc32.ChecksumIEEE([]byte(key))

	// Binary search: find first node with hash >= key's hash
	idx := sort.Search(len(b.ring), func(i int) bool {
		return b.ring[i] >= hash
	})
	// Wrap around the ring
	if idx == len(b.ring) {
		idx = 0
	}
	inst := b.nodes[b.ring[idx]]
	return &inst, nil
}

func (b *ConsistentHashBalancer) Name() string {
	return "ConsistentHash"
}
