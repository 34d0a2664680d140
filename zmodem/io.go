package zmodem

import (
	"context"
	"io"
	"time"
)

// ReaderWithTimeout is a reader that supports read deadlines, the
// shape a serial port, pipe, or net.Conn implements natively.
type ReaderWithTimeout interface {
	io.Reader
	SetReadDeadline(time.Time) error
}

// Pump bridges a blocking, deadline-capable transport into a Session's
// push-style Feed/Tick API. It replaces the original buffered,
// timeout-aware byte reader (zreadline.c's READLINE_PF) with a loop
// that reads a chunk, feeds it to the session, and calls Tick whenever
// a read times out with nothing received — the same "no bytes within
// the timeout window" signal the original's timeout period measured.
type Pump struct {
	reader  ReaderWithTimeout
	session *Session
	timeout time.Duration
	buf     []byte
}

// NewPump creates a Pump reading from r in chunks no larger than
// bufSize, waiting up to timeout (tenths of a second, 0 = no timeout)
// for each read before treating it as a Tick.
func NewPump(r ReaderWithTimeout, session *Session, bufSize int, timeout int) *Pump {
	if bufSize <= 0 {
		bufSize = 4096
	}
	return &Pump{
		reader:  r,
		session: session,
		timeout: time.Duration(timeout) * 100 * time.Millisecond,
		buf:     make([]byte, bufSize),
	}
}

// Run drives the pump until ctx is cancelled or Feed/Tick returns a
// terminal error (including Done).
func (p *Pump) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p.timeout > 0 {
			if err := p.reader.SetReadDeadline(time.Now().Add(p.timeout)); err != nil {
				return err
			}
		}

		n, err := p.reader.Read(p.buf)
		if n > 0 {
			if ferr := p.session.Feed(p.buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err != nil {
			if isTimeoutErr(err) {
				if terr := p.session.Tick(); terr != nil {
					return terr
				}
				continue
			}
			return err
		}
	}
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	if t, ok := err.(timeouter); ok {
		return t.Timeout()
	}
	return false
}
