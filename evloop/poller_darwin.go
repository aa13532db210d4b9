//go:build darwin

package evloop

import (
	"sync"

	"golang.org/x/sys/unix"
)

// kqueueMultiplexer implements multiplexer on Darwin/BSD using kqueue.
// kqueue reports read and write readiness as separate filters, so a
// single fd registered for both needs two kevents; modify re-registers
// whichever filters changed rather than tracking per-filter diffs, which
// keeps this in line with the source's one-Kevent_t-call-per-state-change
// style without its fixed fd-array.
type kqueueMultiplexer struct {
	kq int

	mu  sync.Mutex
	fds map[int]*fdRegistration

	eventBuf [256]unix.Kevent_t
}

type fdRegistration struct {
	cb     IOCallback
	events IOEvents
}

func newMultiplexer() (multiplexer, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	return &kqueueMultiplexer{
		kq:  kq,
		fds: make(map[int]*fdRegistration),
	}, nil
}

func (p *kqueueMultiplexer) register(fd int, events IOEvents, cb IOCallback) error {
	p.mu.Lock()
	if _, exists := p.fds[fd]; exists {
		p.mu.Unlock()
		return ErrFDAlreadyRegistered
	}
	p.fds[fd] = &fdRegistration{cb: cb, events: events}
	p.mu.Unlock()

	return p.applyFilters(fd, events, unix.EV_ADD|unix.EV_ENABLE)
}

func (p *kqueueMultiplexer) modify(fd int, events IOEvents) error {
	p.mu.Lock()
	reg, exists := p.fds[fd]
	if !exists {
		p.mu.Unlock()
		return ErrFDNotRegistered
	}
	prev := reg.events
	reg.events = events
	p.mu.Unlock()

	// Disable filters no longer wanted, enable/add filters newly wanted.
	if prev&EventRead != 0 && events&EventRead == 0 {
		_ = p.changeOne(fd, unix.EVFILT_READ, unix.EV_DELETE)
	}
	if prev&EventWrite != 0 && events&EventWrite == 0 {
		_ = p.changeOne(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	}
	return p.applyFilters(fd, events, unix.EV_ADD|unix.EV_ENABLE)
}

func (p *kqueueMultiplexer) unregister(fd int) error {
	p.mu.Lock()
	reg, exists := p.fds[fd]
	if !exists {
		p.mu.Unlock()
		return ErrFDNotRegistered
	}
	delete(p.fds, fd)
	p.mu.Unlock()

	if reg.events&EventRead != 0 {
		_ = p.changeOne(fd, unix.EVFILT_READ, unix.EV_DELETE)
	}
	if reg.events&EventWrite != 0 {
		_ = p.changeOne(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	}
	return nil
}

func (p *kqueueMultiplexer) applyFilters(fd int, events IOEvents, flags uint16) error {
	if events&EventRead != 0 {
		if err := p.changeOne(fd, unix.EVFILT_READ, flags); err != nil {
			return err
		}
	}
	if events&EventWrite != 0 {
		if err := p.changeOne(fd, unix.EVFILT_WRITE, flags); err != nil {
			return err
		}
	}
	return nil
}

func (p *kqueueMultiplexer) changeOne(fd int, filter int16, flags uint16) error {
	ev := unix.Kevent_t{Ident: uint64(fd), Filter: filter, Flags: flags}
	_, err := unix.Kevent(p.kq, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (p *kqueueMultiplexer) poll(timeoutMs int) (int, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		t := unix.NsecToTimespec(int64(timeoutMs) * int64(1e6))
		ts = &t
	}

	n, err := unix.Kevent(p.kq, nil, p.eventBuf[:], ts)
	if err != nil {
		if err == unix.EINTR {
			return 0, nil
		}
		return 0, err
	}

	for i := 0; i < n; i++ {
		ev := p.eventBuf[i]
		fd := int(ev.Ident)
		p.mu.Lock()
		reg := p.fds[fd]
		p.mu.Unlock()
		if reg == nil || reg.cb == nil {
			continue
		}
		var events IOEvents
		switch ev.Filter {
		case unix.EVFILT_READ:
			events |= EventRead
		case unix.EVFILT_WRITE:
			events |= EventWrite
		}
		if ev.Flags&unix.EV_EOF != 0 {
			events |= EventHangup
		}
		if ev.Flags&unix.EV_ERROR != 0 {
			events |= EventError
		}
		reg.cb(events)
	}
	return n, nil
}

func (p *kqueueMultiplexer) close() error {
	return unix.Close(p.kq)
}
