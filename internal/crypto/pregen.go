package crypto

import (
	"context"
	"sync"
)

// Pregenerator keeps one key pair generated ahead of time so that pairing a
// new device does not wait on RSA key generation.
type Pregenerator struct {
	provider Provider

	mu      sync.Mutex
	ready   chan result
	started bool
}

type result struct {
	kp  KeyPair
	err error
}

func NewPregenerator(p Provider) *Pregenerator {
	return &Pregenerator{provider: p}
}

// Warm starts background generation if none is pending.
func (g *Pregenerator) Warm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.warmLocked()
}

func (g *Pregenerator) warmLocked() {
	if g.started {
		return
	}
	g.started = true
	ch := make(chan result, 1)
	g.ready = ch
	go func() {
		kp, err := g.provider.GenerateKeyPair()
		ch <- result{kp: kp, err: err}
	}()
}

// Take returns the pre-generated pair, waiting for it if generation is still
// running, and starts generating the next one.
func (g *Pregenerator) Take(ctx context.Context) (KeyPair, error) {
	g.mu.Lock()
	g.warmLocked()
	ch := g.ready
	g.started = false
	g.ready = nil
	g.mu.Unlock()

	select {
	case r := <-ch:
		g.Warm()
		return r.kp, r.err
	case <-ctx.Done():
		return KeyPair{}, ctx.Err()
	}
}
