package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Terminator is the reserved frame delimiter. Standard JSON serialization
// never produces a raw NUL byte, so an envelope body cannot contain it.
const Terminator byte = 0x00

// ErrTerminatorInPayload is returned by Encode when the serialized envelope
// contains the terminator byte. This can only happen when a payload type
// implements a custom JSON marshaler that emits raw NUL bytes.
var ErrTerminatorInPayload = errors.New("encoded envelope contains terminator byte")

// DecodeError reports a frame whose bytes could not be parsed as an
// envelope. The offending frame is discarded; decoding continues with the
// next frame in the accumulator.
type DecodeError struct {
	Frame []byte
	Err   error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", e.Frame, e.Err)
}

// Unwrap returns the underlying parse error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decoder accumulates raw bytes from one connection and extracts complete
// NUL-terminated frames from them. A Decoder is owned by a single reader
// goroutine and is not safe for concurrent use.
type Decoder struct {
	buf []byte
}

// Push appends a chunk of received bytes to the accumulator and extracts
// every complete frame it now holds. Each frame is parsed as a JSON
// envelope; frames that fail to parse are skipped and reported as
// *DecodeError values, without affecting the frames after them. Bytes after
// the last terminator remain buffered for the next Push.
//
// Parameters:
//   - chunk: The bytes just read from the connection
//
// Returns:
//   - The envelopes decoded from complete frames, in arrival order
//   - One *DecodeError per malformed frame, in arrival order
func (d *Decoder) Push(chunk []byte) ([]Envelope, []error) {
	d.buf = append(d.buf, chunk...)

	var envelopes []Envelope
	var errs []error
	for {
		i := bytes.IndexByte(d.buf, Terminator)
		if i < 0 {
			break
		}

		frame := d.buf[:i]
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			kept := make([]byte, len(frame))
			copy(kept, frame)
			errs = append(errs, &DecodeError{Frame: kept, Err: err})
		} else {
			envelopes = append(envelopes, env)
		}

		d.buf = d.buf[i+1:]
	}

	if len(d.buf) == 0 {
		d.buf = nil
	}

	return envelopes, errs
}

// Buffered returns the number of bytes held back awaiting a terminator.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Encode serializes an envelope with the given event name and payload and
// appends the frame terminator. The payload may be nil, in which case
// eventData is the JSON null.
//
// Parameters:
//   - event: The event name to place in the envelope
//   - data: The payload; marshaled with encoding/json
//
// Returns:
//   - The wire frame, terminator included
//   - An error if marshaling fails or the encoding contains a raw NUL byte
func Encode(event string, data any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event, err)
	}

	frame, err := json.Marshal(Envelope{EventName: event, EventData: payload})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", event, err)
	}

	if bytes.IndexByte(frame, Terminator) >= 0 {
		return nil, ErrTerminatorInPayload
	}

	return append(frame, Terminator), nil
}
