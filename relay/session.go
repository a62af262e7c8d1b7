package relay

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/feifeihai120/blank-socket/logger"
	"github.com/feifeihai120/blank-socket/protocol"
)

// readBufferSize is the size of the per-connection read buffer. Frames may
// span any number of reads; the protocol decoder reassembles them.
const readBufferSize = 4096

type sessionState int

const (
	stateUnauthenticated sessionState = iota
	stateAuthenticated
	stateClosed
)

func (s sessionState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateAuthenticated:
		return "authenticated"
	case stateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// command enumerates the client operations the relay understands. Incoming
// event names are mapped onto it once, so dispatch is a switch over a closed
// set rather than a lookup keyed by arbitrary strings.
type command int

const (
	cmdUnknown command = iota
	cmdLogin
	cmdSetMaster
	cmdSendShare
	cmdCancelMaster
	cmdGetClientList
)

func commandFor(event string) command {
	switch event {
	case protocol.EventLogin:
		return cmdLogin
	case protocol.EventSetMaster:
		return cmdSetMaster
	case protocol.EventSendShare:
		return cmdSendShare
	case protocol.EventCancelMaster:
		return cmdCancelMaster
	case protocol.EventGetClientList:
		return cmdGetClientList
	default:
		return cmdUnknown
	}
}

// Session is the server-side state of one connection: the connection handle
// it exclusively owns, the identity set at login, and the presenter flag.
// A session starts unauthenticated, becomes authenticated on a successful
// login, and is closed when the connection ends.
//
// Identity and state fields are guarded by an internal mutex so they can be
// read from any goroutine; sequences that must be atomic across sessions
// (check-then-set of the presenter flag, duplicate-login checks) are
// serialized by the server's state mutex.
type Session struct {
	id     uint32
	conn   net.Conn
	server *Server
	log    logger.Logger

	writeMu sync.Mutex

	mu          sync.Mutex
	state       sessionState
	clientID    string
	displayName string
	roomID      string
	isPresenter bool

	closeOnce sync.Once
}

func newSession(id uint32, conn net.Conn, server *Server) *Session {
	return &Session{
		id:     id,
		conn:   conn,
		server: server,
		log:    server.log.With(logger.Field{Key: "session", Value: id}),
	}
}

// ID returns the connection identifier assigned by the server.
func (s *Session) ID() uint32 {
	return s.id
}

// ClientID returns the identity string set at login, or "" before login.
func (s *Session) ClientID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clientID
}

// DisplayName returns the display name set at login, or "" before login.
func (s *Session) DisplayName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayName
}

// RoomID returns the room joined at login, or "" before login.
func (s *Session) RoomID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomID
}

// IsPresenter reports whether this session currently presents in its room.
func (s *Session) IsPresenter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPresenter
}

// Info returns the clientList entry describing this session.
func (s *Session) Info() protocol.ClientInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return protocol.ClientInfo{
		ID:       s.clientID,
		RoomID:   s.roomID,
		Name:     s.displayName,
		IsMaster: s.isPresenter,
	}
}

func (s *Session) currentState() sessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// authenticate sets the identity fields and moves the session to the
// authenticated state. The caller holds the server's state mutex.
func (s *Session) authenticate(clientID, displayName, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientID = clientID
	s.displayName = displayName
	s.roomID = roomID
	s.isPresenter = false
	s.state = stateAuthenticated
}

// resetAuth undoes authenticate. Only used when a registry insert fails
// after the duplicate check, which the state mutex should make impossible.
func (s *Session) resetAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clientID = ""
	s.displayName = ""
	s.roomID = ""
	s.isPresenter = false
	s.state = stateUnauthenticated
}

// setPresenter flips the presenter flag. The caller holds the server's
// state mutex.
func (s *Session) setPresenter(presenter bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isPresenter = presenter
}

// markClosed moves the session to the closed state and reports whether it
// was authenticated before.
func (s *Session) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasAuthenticated := s.state == stateAuthenticated
	s.state = stateClosed
	return wasAuthenticated
}

// Send writes one encoded frame to the connection. Writes are serialized
// per session and fire-and-forget: there is no deadline and no bound on
// unsent bytes queued in the socket.
//
// Parameters:
//   - frame: A complete wire frame, terminator included
//
// Returns:
//   - An error if the session is closed or the write failed
func (s *Session) Send(frame []byte) error {
	if s.currentState() == stateClosed {
		return fmt.Errorf("session %d is closed", s.id)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.conn.Write(frame)
	return err
}

// Handle runs the session's read loop until the connection closes or fails.
// Each chunk is pushed through the frame decoder; malformed frames are
// logged and dropped without affecting the connection, and every decoded
// envelope is dispatched in arrival order.
func (s *Session) Handle() {
	defer func() {
		_ = s.Close()
	}()

	var decoder protocol.Decoder
	buf := make([]byte, readBufferSize)
	for {
		n, err := s.conn.Read(buf)
		if n > 0 {
			envelopes, errs := decoder.Push(buf[:n])
			for _, decErr := range errs {
				s.log.Warn("discarding malformed frame", logger.Field{Key: "error", Value: decErr})
			}
			for _, env := range envelopes {
				s.dispatch(env)
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && s.currentState() != stateClosed {
				s.log.Debug("connection read ended", logger.Field{Key: "error", Value: err})
			}
			return
		}
	}
}

// dispatch routes one envelope through the authentication gate to its
// handler. Unknown events are dropped silently, as are all non-login events
// from a session that has not authenticated yet; neither case gets an ACK.
func (s *Session) dispatch(env protocol.Envelope) {
	cmd := commandFor(env.EventName)
	if cmd == cmdUnknown {
		s.log.Debug("ignoring unknown event", logger.Field{Key: "event", Value: env.EventName})
		return
	}

	if cmd != cmdLogin && s.currentState() != stateAuthenticated {
		s.log.Debug("dropping event from unauthenticated session",
			logger.Field{Key: "event", Value: env.EventName})
		return
	}

	switch cmd {
	case cmdLogin:
		s.server.handleLogin(s, env.EventData)
	case cmdSetMaster:
		s.server.handleSetMaster(s)
	case cmdSendShare:
		s.server.handleSendShare(s, env.EventData)
	case cmdCancelMaster:
		s.server.handleCancelMaster(s)
	case cmdGetClientList:
		s.server.handleGetClientList(s, env.EventData)
	}
}

// Close closes the connection and, if the session was authenticated,
// removes it from the registry and notifies its room. Safe to call multiple
// times and from any goroutine.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		wasAuthenticated := s.markClosed()
		_ = s.conn.Close()
		s.server.handleDisconnect(s, wasAuthenticated)
	})

	return nil
}
