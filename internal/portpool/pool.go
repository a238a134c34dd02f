package portpool

import (
	"errors"
	"fmt"
)

const maxPort = 65535

var ErrInvalidRange = errors.New("portpool: invalid port range")

// Port is a media port number handed to a client. The value is its identity.
type Port int

type Pool struct {
	base int
	size int
	free map[Port]struct{}

	// OnChange is invoked after every successful Allocate or Release with the
	// current free/total counts.
	OnChange func(free, total int)
}

// New creates a pool holding every port in [base, base+size).
func New(base, size int) (*Pool, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be > 0 (got %d)", ErrInvalidRange, size)
	}
	if base < 1 {
		return nil, fmt.Errorf("%w: base must be >= 1 (got %d)", ErrInvalidRange, base)
	}
	if base+size-1 > maxPort {
		return nil, fmt.Errorf("%w: %d-%d exceeds %d", ErrInvalidRange, base, base+size-1, maxPort)
	}

	p := &Pool{
		base: base,
		size: size,
		free: make(map[Port]struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.free[Port(base+i)] = struct{}{}
	}
	return p, nil
}

// Allocate removes and returns an arbitrary free port. ok is false when the
// pool is exhausted.
func (p *Pool) Allocate() (port Port, ok bool) {
	for port = range p.free {
		delete(p.free, port)
		p.changed()
		return port, true
	}
	return 0, false
}

// Release returns port to the free set. Releasing a port that is already free
// or outside the range is a no-op and reports false.
func (p *Pool) Release(port Port) bool {
	if !p.Contains(port) {
		return false
	}
	if _, free := p.free[port]; free {
		return false
	}
	p.free[port] = struct{}{}
	p.changed()
	return true
}

func (p *Pool) changed() {
	if p.OnChange != nil {
		p.OnChange(len(p.free), p.size)
	}
}

// Contains reports whether port belongs to the configured range.
func (p *Pool) Contains(port Port) bool {
	return int(port) >= p.base && int(port) < p.base+p.size
}

func (p *Pool) IsFree(port Port) bool {
	_, ok := p.free[port]
	return ok
}

func (p *Pool) Free() int  { return len(p.free) }
func (p *Pool) Total() int { return p.size }
func (p *Pool) Base() int  { return p.base }

// Range returns the first and last port of the pool, inclusive.
func (p *Pool) Range() (first, last Port) {
	return Port(p.base), Port(p.base + p.size - 1)
}
