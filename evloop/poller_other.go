//go:build !linux && !darwin

package evloop

import (
	"sync"
	"time"
)

// pollMultiplexer is the portable fallback multiplexer for platforms with
// neither epoll nor kqueue available through golang.org/x/sys/unix: it
// busy-checks registered fds with net.Conn-style non-blocking reads are
// not available at this layer, so instead it degrades to a short fixed
// sleep per poll call and reports every registered fd as readable for
// whichever events it was registered with. This trades CPU for
// portability; every platform this module ships a release binary for
// (linux, darwin) gets the real multiplexer.
type pollMultiplexer struct {
	mu  sync.Mutex
	fds map[int]*fdRegistration
}

type fdRegistration struct {
	cb     IOCallback
	events IOEvents
}

func newMultiplexer() (multiplexer, error) {
	return &pollMultiplexer{fds: make(map[int]*fdRegistration)}, nil
}

func (p *pollMultiplexer) register(fd int, events IOEvents, cb IOCallback) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.fds[fd]; exists {
		return ErrFDAlreadyRegistered
	}
	p.fds[fd] = &fdRegistration{cb: cb, events: events}
	return nil
}

func (p *pollMultiplexer) modify(fd int, events IOEvents) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	reg, exists := p.fds[fd]
	if !exists {
		return ErrFDNotRegistered
	}
	reg.events = events
	return nil
}

func (p *pollMultiplexer) unregister(fd int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.fds[fd]; !exists {
		return ErrFDNotRegistered
	}
	delete(p.fds, fd)
	return nil
}

func (p *pollMultiplexer) poll(timeoutMs int) (int, error) {
	if timeoutMs < 0 || timeoutMs > 50 {
		timeoutMs = 50
	}
	time.Sleep(time.Duration(timeoutMs) * time.Millisecond)

	p.mu.Lock()
	regs := make(map[int]*fdRegistration, len(p.fds))
	for fd, reg := range p.fds {
		regs[fd] = reg
	}
	p.mu.Unlock()

	n := 0
	for _, reg := range regs {
		if reg.cb != nil {
			reg.cb(reg.events)
			n++
		}
	}
	return n, nil
}

func (p *pollMultiplexer) close() error {
	return nil
}
