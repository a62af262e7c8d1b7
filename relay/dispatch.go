package relay

import (
	"github.com/feifeihai120/blank-socket/logger"
	"github.com/feifeihai120/blank-socket/protocol"
)

// Dispatcher delivers envelopes to one session or a set of sessions. The
// payload is encoded once per delivery; targets are written sequentially in
// snapshot order and a failed write to one target never aborts delivery to
// the remaining ones.
type Dispatcher struct {
	log logger.Logger
}

// NewDispatcher returns a Dispatcher logging delivery failures to log.
func NewDispatcher(log logger.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

// Broadcast sends the event to every target session. Per-target write
// failures are logged and skipped.
//
// Parameters:
//   - targets: Snapshot of the sessions to deliver to
//   - event: The event name to send
//   - data: The payload, marshaled once for all targets
func (d *Dispatcher) Broadcast(targets []*Session, event string, data any) {
	frame, err := protocol.Encode(event, data)
	if err != nil {
		d.log.Error("broadcast encode failed",
			logger.Field{Key: "event", Value: event},
			logger.Field{Key: "error", Value: err})
		return
	}

	for _, target := range targets {
		if err := target.Send(frame); err != nil {
			d.log.Warn("broadcast write failed",
				logger.Field{Key: "event", Value: event},
				logger.Field{Key: "session", Value: target.ID()},
				logger.Field{Key: "error", Value: err})
		}
	}
}

// Send unicasts the event to a single session. A failed write is logged.
func (d *Dispatcher) Send(target *Session, event string, data any) {
	d.Broadcast([]*Session{target}, event, data)
}

// AckOK answers a request with a success ACK.
func (d *Dispatcher) AckOK(target *Session, event string) {
	d.Send(target, protocol.AckEvent(event), protocol.Ack{Code: protocol.CodeOK, Msg: "ok"})
}

// AckFail answers a request with a failure ACK carrying the reason.
func (d *Dispatcher) AckFail(target *Session, event string, msg string) {
	d.Send(target, protocol.AckEvent(event), protocol.Ack{Code: protocol.CodeFail, Msg: msg})
}
