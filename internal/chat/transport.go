package chat

import (
	"net"
	"sync"

	"github.com/avolkov/protochat/internal/wire"
)

var (
	ErrTransportClosed = errorString("transport closed")
	ErrSlowReceiver    = errorString("outbound queue full")
)

type errorString string

func (e errorString) Error() string { return string(e) }

// Transport is the small capability surface a session needs from its
// connection. Real connections are connTransport; tests substitute
// in-memory fakes.
type Transport interface {
	Send(wire.Message) error
	Close() error
	RemoteAddr() string
}

// connTransport frames messages onto a net.Conn. Frames are flushed by
// a single writer goroutine in strict submission order; the session
// never reorders its own outbound stream.
type connTransport struct {
	conn      net.Conn
	out       chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConnTransport(conn net.Conn, queueDepth int) *connTransport {
	if queueDepth <= 0 {
		queueDepth = 128
	}
	t := &connTransport{
		conn: conn,
		out:  make(chan []byte, queueDepth),
		done: make(chan struct{}),
	}
	go t.writeLoop()
	return t
}

// Send encodes m and queues the frame. A full queue means the peer has
// stopped draining; the transport closes rather than drop a frame out
// of the middle of the stream.
func (t *connTransport) Send(m wire.Message) error {
	packet, err := wire.Encode(m)
	if err != nil {
		return err
	}
	select {
	case <-t.done:
		return ErrTransportClosed
	default:
	}
	select {
	case t.out <- packet:
		return nil
	case <-t.done:
		return ErrTransportClosed
	default:
		t.Close()
		return ErrSlowReceiver
	}
}

func (t *connTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		_ = t.conn.Close()
	})
	return nil
}

func (t *connTransport) RemoteAddr() string {
	return t.conn.RemoteAddr().String()
}
