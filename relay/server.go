package relay

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/feifeihai120/blank-socket/logger"
	"github.com/feifeihai120/blank-socket/safemap"
	"github.com/feifeihai120/blank-socket/sharecache"
)

// Server accepts TCP connections and runs one Session per connection. It
// owns the registry, the dispatcher, and the state mutex that serializes
// every command's registry-and-broadcast sequence.
type Server struct {
	log        logger.Logger
	addr       string
	listener   net.Listener
	running    atomic.Bool
	sessions   *safemap.SafeMap[uint32, *Session]
	nextID     atomic.Uint32
	registry   *Registry
	dispatcher *Dispatcher
	snapshots  sharecache.Store

	// stateMu serializes command handling across all connections. Every
	// handler holds it from its first registry read to its last broadcast
	// write, so checks like "no presenter yet" cannot be invalidated
	// between check and set.
	stateMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a relay server that will bind to addr when started.
//
// Parameters:
//   - addr: The "host:port" to listen on
//   - log: Logger for server and session events
//   - snapshots: Share snapshot store, or nil to disable snapshot replay
//
// Returns:
//   - A new Server, not yet listening
func NewServer(addr string, log logger.Logger, snapshots sharecache.Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		log:        log,
		addr:       addr,
		sessions:   safemap.NewSafeMap[uint32, *Session](),
		registry:   NewRegistry(),
		dispatcher: NewDispatcher(log),
		snapshots:  snapshots,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start binds the listener and begins accepting connections in a goroutine.
//
// Returns:
//   - An error if the server is already running or if binding addr fails
func (srv *Server) Start() error {
	if srv.running.Load() {
		return fmt.Errorf("relay server already running")
	}

	ln, err := net.Listen("tcp", srv.addr)
	if err != nil {
		return fmt.Errorf("relay server failed to listen on %s: %w", srv.addr, err)
	}

	srv.listener = ln
	srv.running.Store(true)

	srv.log.Info("relay server started", logger.Field{Key: "addr", Value: ln.Addr().String()})
	go srv.acceptLoop()

	return nil
}

// Addr returns the listener's actual address. Useful when the server was
// started on port 0. Returns nil before Start.
func (srv *Server) Addr() net.Addr {
	if srv.listener == nil {
		return nil
	}

	return srv.listener.Addr()
}

// Stop closes the listener and every live session. Safe to call when the
// server is not running.
func (srv *Server) Stop() {
	if !srv.running.Load() {
		return
	}

	srv.running.Store(false)
	srv.cancel()
	if srv.listener != nil {
		_ = srv.listener.Close()
	}

	srv.sessions.Range(func(_ uint32, s *Session) bool {
		_ = s.Close()
		return true
	})

	srv.log.Info("relay server stopped")
}

// acceptLoop accepts connections until the server stops. Each connection
// gets a fresh id and session; the session's read loop runs in its own
// goroutine.
func (srv *Server) acceptLoop() {
	for srv.running.Load() {
		conn, err := srv.listener.Accept()
		if err != nil {
			if !srv.running.Load() {
				return
			}

			srv.log.Error("accept failed", logger.Field{Key: "error", Value: err})
			continue
		}

		id := srv.nextID.Add(1)
		session := newSession(id, conn, srv)
		srv.sessions.Store(id, session)

		srv.log.Info("connection accepted",
			logger.Field{Key: "session", Value: id},
			logger.Field{Key: "remote", Value: conn.RemoteAddr().String()})

		go session.Handle()
	}
}
