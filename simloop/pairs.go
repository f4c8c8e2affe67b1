package simloop

import (
	"fmt"

	"github.com/pthm-cable/starfield/physics"
)

// Proxy is the visual stand-in for a physics body.
type Proxy interface {
	SetTransform(physics.Transform)
}

type pair struct {
	body  physics.BodyHandle
	proxy Proxy
}

// Pairs links bodies to their proxies, preserving insertion order.
type Pairs struct {
	list  []pair
	index map[physics.BodyHandle]int
}

// NewPairs creates an empty pairing table.
func NewPairs() *Pairs {
	return &Pairs{index: make(map[physics.BodyHandle]int)}
}

// Add links body to proxy, replacing any existing proxy for body.
func (p *Pairs) Add(body physics.BodyHandle, proxy Proxy) {
	if i, ok := p.index[body]; ok {
		p.list[i].proxy = proxy
		return
	}
	p.index[body] = len(p.list)
	p.list = append(p.list, pair{body: body, proxy: proxy})
}

// Remove unlinks body. It reports whether body was paired.
func (p *Pairs) Remove(body physics.BodyHandle) bool {
	i, ok := p.index[body]
	if !ok {
		return false
	}
	p.removeAt(i)
	return true
}

func (p *Pairs) removeAt(i int) {
	delete(p.index, p.list[i].body)
	copy(p.list[i:], p.list[i+1:])
	p.list[len(p.list)-1] = pair{}
	p.list = p.list[:len(p.list)-1]
	for j := i; j < len(p.list); j++ {
		p.index[p.list[j].body] = j
	}
}

// Proxy returns the proxy paired with body.
func (p *Pairs) Proxy(body physics.BodyHandle) (Proxy, bool) {
	i, ok := p.index[body]
	if !ok {
		return nil, false
	}
	return p.list[i].proxy, true
}

// Bodies returns paired bodies in insertion order.
func (p *Pairs) Bodies() []physics.BodyHandle {
	out := make([]physics.BodyHandle, len(p.list))
	for i, pr := range p.list {
		out[i] = pr.body
	}
	return out
}

// Len returns the number of pairs.
func (p *Pairs) Len() int { return len(p.list) }

// Clear removes every pair.
func (p *Pairs) Clear() {
	clear(p.index)
	clear(p.list)
	p.list = p.list[:0]
}

// mirror copies each body's transform onto its proxy. Pairs whose body has
// gone are dropped; one error per dropped pair is returned.
func (p *Pairs) mirror(w World) []error {
	var errs []error
	for i := 0; i < len(p.list); {
		pr := p.list[i]
		xf, ok := w.Transform(pr.body)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %v", ErrOrphanPair, pr.body))
			p.removeAt(i)
			continue
		}
		pr.proxy.SetTransform(xf)
		i++
	}
	return errs
}
