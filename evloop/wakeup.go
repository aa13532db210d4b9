package evloop

import (
	"os"
)

// selfPipe is a real os.Pipe registered with the multiplexer for read
// readiness, used to interrupt a blocked poll call when CallSoon,
// CallLater, CallAt, or Stop is invoked from a foreign goroutine. The
// source's eventloop package instead used a Linux-only eventfd; this
// spec is explicit that the wakeup mechanism is a self-pipe, so it is
// built directly on os.Pipe rather than a platform-specific primitive -
// portable across every multiplexer backend in this package, including
// poller_other.go's fallback.
type selfPipe struct {
	r *os.File
	w *os.File
}

func newSelfPipe() (*selfPipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	return &selfPipe{r: r, w: w}, nil
}

// fd is the read end, the one registered with the multiplexer.
func (p *selfPipe) fd() int {
	return int(p.r.Fd())
}

// wake writes a single byte, waking a blocked poll. Concurrent and
// repeated calls are safe and coalesce naturally: drain discards up to
// 64 pending bytes per poll.
func (p *selfPipe) wake() {
	var buf [1]byte
	_, _ = p.w.Write(buf[:])
}

// drain empties the pipe after poll reports it readable, so the next
// poll call blocks again instead of returning immediately. The read end
// is in blocking mode (calling Fd on an os.File switches it), so drain
// reads exactly once: poll has reported data, so that read returns at
// once, and any bytes beyond the buffer keep the fd readable for the
// next poll.
func (p *selfPipe) drain() {
	var buf [64]byte
	_, _ = p.r.Read(buf[:])
}

func (p *selfPipe) close() error {
	err1 := p.r.Close()
	err2 := p.w.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
