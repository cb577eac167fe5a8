package mocknode

import (
	"hash/fnv"
	"math/rand"
	"sync"
	"time"
)

type Mode int

const (
	Deterministic Mode = iota
	Real
)

// Stream names used by the node. Naming streams keeps deterministic
// runs reproducible even when call order between concerns changes.
const (
	StreamConfirmJitter = "confirm_jitter"
)

// RandFactory hands out named random streams. In Deterministic mode
// every stream derives from the base seed, so two nodes started with
// the same seed confirm in the same order with the same delays.
type RandFactory struct {
	baseSeed int64
	mode     Mode

	mu      sync.Mutex
	streams map[string]*rand.Rand
}

func NewRandFactory(mode Mode, seed int64) *RandFactory {
	if mode == Real {
		// Real mode: seed from time once at init, not per draw.
		seed = time.Now().UnixNano()
	}
	return &RandFactory{
		baseSeed: seed,
		mode:     mode,
		streams:  make(map[string]*rand.Rand),
	}
}

// R returns the named stream, initializing and caching it on first use.
func (f *RandFactory) R(name string) *rand.Rand {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r, ok := f.streams[name]; ok {
		return r
	}
	s := deriveSeed(f.baseSeed, name)
	r := rand.New(rand.NewSource(s))
	f.streams[name] = r
	return r
}

func deriveSeed(base int64, name string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return int64(h.Sum64()) ^ base
}
