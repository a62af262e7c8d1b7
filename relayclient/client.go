// Package relayclient provides the event-driven TCP client for the blank
// relay protocol. The client owns a read loop that reassembles
// NUL-terminated frames and dispatches each decoded envelope to handlers
// registered per event name, with optional auto-reconnect.
package relayclient

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/chuckpreslar/emission"

	"github.com/feifeihai120/blank-socket/protocol"
)

// State represents the client's connection state.
type State int

const (
	Disconnected State = iota // Not connected and not attempting to connect
	Connecting                // Connection attempt in progress
	Connected                 // Successfully connected
	Reconnecting              // Waiting to retry after a lost connection
	Closed                    // Client closed; it will not reconnect
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "Disconnected"
	case Connecting:
		return "Connecting"
	case Connected:
		return "Connected"
	case Reconnecting:
		return "Reconnecting"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// StateEvent is passed to the handler registered with OnState when the
// connection state changes.
type StateEvent struct {
	State   State
	Address string
	Err     error // Non-nil when the change was caused by an error
}

// StateHandler is called on connection state changes. Handlers run on the
// client's goroutines and must be safe for concurrent use.
type StateHandler func(event StateEvent)

// ErrorHandler is called when a read, write, or connect error occurs.
type ErrorHandler func(err error)

// EventHandler is called with the raw payload of a received event.
type EventHandler func(data json.RawMessage)

// Config holds the client configuration.
type Config struct {
	// Address is the relay's "host:port".
	Address string
	// AutoReconnect enables reconnection when the connection is lost.
	AutoReconnect bool
	// ReconnectInterval is the delay between reconnection attempts.
	ReconnectInterval time.Duration
	// ConnectTimeout bounds each dial attempt.
	ConnectTimeout time.Duration
	// WriteTimeout bounds each write; zero means no timeout.
	WriteTimeout time.Duration
	// ReadBufferSize is the size of the read buffer.
	ReadBufferSize int
}

// DefaultConfig returns a Config with defaults for the given address.
// AutoReconnect is off; override fields as needed before calling New.
func DefaultConfig(address string) Config {
	return Config{
		Address:           address,
		AutoReconnect:     false,
		ReconnectInterval: 5 * time.Second,
		ConnectTimeout:    10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadBufferSize:    4096,
	}
}

// Client is an event-driven relay client. Register per-event handlers with
// On and lifecycle handlers with OnState/OnError, then call Connect.
// It is safe for concurrent use.
type Client struct {
	config  Config
	emitter *emission.Emitter

	onState StateHandler
	onError ErrorHandler

	mu     sync.RWMutex
	conn   net.Conn
	state  State
	closed bool

	stopChan      chan struct{}
	reconnectChan chan struct{}
	wg            sync.WaitGroup
}

// New creates a client with the given config. The client starts
// Disconnected; call Connect to establish the connection and Close when done.
func New(config Config) *Client {
	return &Client{
		config:        config,
		emitter:       emission.NewEmitter(),
		state:         Disconnected,
		stopChan:      make(chan struct{}),
		reconnectChan: make(chan struct{}, 1),
	}
}

// On registers a handler for an incoming event name. Several handlers may
// be registered for the same event; each is called with the raw payload in
// registration order from the read goroutine.
//
// Parameters:
//   - event: The event name to subscribe to (e.g. protocol.EventClientList)
//   - handler: Called with the event's raw JSON payload
func (c *Client) On(event string, handler EventHandler) {
	c.emitter.On(event, handler)
}

// OnState registers the handler for connection state changes, replacing any
// previous one. Pass nil to clear it.
func (c *Client) OnState(handler StateHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// OnError registers the handler for I/O errors, replacing any previous one.
// Pass nil to clear it.
func (c *Client) OnError(handler ErrorHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = handler
}

// Connect dials the relay. When AutoReconnect is set, a lost connection is
// redialed on the configured interval until Close.
//
// Returns:
//   - An error if the client is closed, already connected, or the dial fails
func (c *Client) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if c.state == Connected || c.state == Connecting {
		c.mu.Unlock()
		return fmt.Errorf("already connected or connecting")
	}
	c.mu.Unlock()

	if c.config.AutoReconnect {
		c.wg.Add(1)
		go c.reconnectLoop()
	}

	return c.connect()
}

// Close shuts the client down and stops its goroutines. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	close(c.stopChan)
	c.wg.Wait()
	c.setState(Closed, nil)

	return nil
}

// GetState returns the current connection state.
func (c *Client) GetState() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsConnected reports whether the client is in the Connected state.
func (c *Client) IsConnected() bool {
	return c.GetState() == Connected
}

// Emit encodes and sends one envelope to the relay.
//
// Parameters:
//   - event: The event name
//   - data: The payload; marshaled with encoding/json
//
// Returns:
//   - An error if the client is not connected, encoding fails, or the write fails
func (c *Client) Emit(event string, data any) error {
	c.mu.RLock()
	conn := c.conn
	state := c.state
	c.mu.RUnlock()

	if state != Connected || conn == nil {
		return fmt.Errorf("not connected")
	}

	frame, err := protocol.Encode(event, data)
	if err != nil {
		return err
	}

	if c.config.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
			return err
		}
		defer func() {
			_ = conn.SetWriteDeadline(time.Time{})
		}()
	}

	if _, err := conn.Write(frame); err != nil {
		c.emitError(err)
		c.triggerReconnect()
		return err
	}

	return nil
}

// Login sends the login request for the given identity.
func (c *Client) Login(id, name, roomID string) error {
	return c.Emit(protocol.EventLogin, protocol.LoginData{ID: id, Name: name, RoomID: roomID})
}

// SetMaster asks to become the room's presenter.
func (c *Client) SetMaster() error {
	return c.Emit(protocol.EventSetMaster, struct{}{})
}

// CancelMaster gives the presenter role back.
func (c *Client) CancelMaster() error {
	return c.Emit(protocol.EventCancelMaster, struct{}{})
}

// SendShare pushes a share payload to the room. Only the presenter's pushes
// are fanned out by the relay.
func (c *Client) SendShare(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal share payload: %w", err)
	}

	return c.Emit(protocol.EventSendShare, protocol.SendShareData{Data: raw})
}

// GetClientList requests the member list of one room, or of the whole
// server when roomID is empty. The list arrives via the clientList event.
func (c *Client) GetClientList(roomID string) error {
	return c.Emit(protocol.EventGetClientList, protocol.GetClientListData{RoomID: roomID})
}

func (c *Client) connect() error {
	c.setState(Connecting, nil)

	dialer := net.Dialer{Timeout: c.config.ConnectTimeout}
	conn, err := dialer.Dial("tcp", c.config.Address)
	if err != nil {
		c.setState(Disconnected, err)
		c.emitError(err)
		c.triggerReconnect()
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("client is closed")
	}
	c.conn = conn
	c.mu.Unlock()

	c.setState(Connected, nil)

	c.wg.Add(1)
	go c.readLoop(conn)

	return nil
}

// readLoop reads chunks from conn, reassembles frames, and emits each
// decoded envelope to the handlers registered for its event name.
func (c *Client) readLoop(conn net.Conn) {
	defer c.wg.Done()

	var decoder protocol.Decoder
	buf := make([]byte, c.config.ReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			envelopes, errs := decoder.Push(buf[:n])
			for _, decErr := range errs {
				c.emitError(decErr)
			}
			for _, env := range envelopes {
				c.emitter.Emit(env.EventName, env.EventData)
			}
		}

		if err != nil {
			if c.isClosed() {
				return
			}

			c.emitError(err)
			c.setState(Disconnected, err)
			c.triggerReconnect()
			return
		}
	}
}

func (c *Client) reconnectLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopChan:
			return
		case <-c.reconnectChan:
			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.Close()
				c.conn = nil
			}
			c.mu.Unlock()

			c.setState(Reconnecting, nil)

			select {
			case <-c.stopChan:
				return
			case <-time.After(c.config.ReconnectInterval):
			}

			if c.isClosed() {
				return
			}

			if err := c.connect(); err != nil {
				// connect already re-queued the retry
				continue
			}
		}
	}
}

func (c *Client) triggerReconnect() {
	if !c.config.AutoReconnect || c.isClosed() {
		return
	}

	select {
	case c.reconnectChan <- struct{}{}:
	default:
	}
}

func (c *Client) setState(state State, err error) {
	c.mu.Lock()
	c.state = state
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(StateEvent{State: state, Address: c.config.Address, Err: err})
	}
}

func (c *Client) emitError(err error) {
	c.mu.RLock()
	handler := c.onError
	c.mu.RUnlock()

	if handler != nil {
		handler(err)
	}
}

func (c *Client) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}
