package chat

import (
	"errors"
	"log/slog"
	"net"
	"sync"

	"github.com/avolkov/protochat/internal/wire"
)

// Server accepts connections and hands each one a session wired to the
// shared room and directory. Both are constructed once here and
// injected explicitly; nothing in the package reaches for a singleton.
type Server struct {
	addr      string
	logger    *slog.Logger
	room      *Room
	directory *Directory

	listener net.Listener
	wg       sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

func NewServer(addr string, historyDepth int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      addr,
		logger:    logger,
		room:      NewRoom(historyDepth, logger),
		directory: NewDirectory(logger),
		conns:     make(map[net.Conn]struct{}),
	}
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.logger.Info("server started", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listen address, useful when the configured
// port is 0.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) Stop() {
	s.logger.Info("shutting down")

	if s.listener != nil {
		s.listener.Close()
	}
	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()
	s.wg.Wait()

	s.logger.Info("shutdown complete")
}

func (s *Server) acceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Closed listener lands here on shutdown.
			return
		}

		s.logger.Info("client connected", "addr", conn.RemoteAddr().String())
		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()
		ActiveSessions.Inc()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer ActiveSessions.Dec()
			defer func() {
				s.connMu.Lock()
				delete(s.conns, conn)
				s.connMu.Unlock()
			}()
			s.handleConn(conn)
		}()
	}
}

// handleConn runs one connection's read loop. Any read, decode or
// framing error ends the session; protocol errors are not retried.
func (s *Server) handleConn(conn net.Conn) {
	transport := newConnTransport(conn, 0)
	sess := NewSession(transport, s.room, s.directory, s.logger)
	defer sess.Close()

	r := wire.NewReader(conn)
	for {
		m, err := r.ReadFrame()
		if err != nil {
			if errors.Is(err, wire.ErrMalformed) || errors.Is(err, wire.ErrFrameTooLarge) {
				s.logger.Warn("dropping connection on protocol error",
					"addr", conn.RemoteAddr().String(), "error", err)
			} else {
				s.logger.Debug("read loop ended",
					"addr", conn.RemoteAddr().String(), "error", err)
			}
			return
		}
		sess.HandleMessage(m)
	}
}
