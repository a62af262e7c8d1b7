package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, event string, data any) []byte {
	t.Helper()
	b, err := Encode(event, data)
	require.NoError(t, err)
	return b
}

func TestDecoder_Push(t *testing.T) {
	t.Run("single complete frame", func(t *testing.T) {
		var d Decoder
		envs, errs := d.Push(frame(t, EventLogin, LoginData{ID: "1", Name: "Alice", RoomID: "r1"}))
		require.Empty(t, errs)
		require.Len(t, envs, 1)
		assert.Equal(t, EventLogin, envs[0].EventName)
		assert.Equal(t, 0, d.Buffered())

		var data LoginData
		require.NoError(t, json.Unmarshal(envs[0].EventData, &data))
		assert.Equal(t, "Alice", data.Name)
	})

	t.Run("frame split across chunks", func(t *testing.T) {
		var d Decoder
		full := frame(t, EventSetMaster, struct{}{})

		envs, errs := d.Push(full[:3])
		assert.Empty(t, envs)
		assert.Empty(t, errs)
		assert.Equal(t, 3, d.Buffered())

		envs, errs = d.Push(full[3:])
		require.Empty(t, errs)
		require.Len(t, envs, 1)
		assert.Equal(t, EventSetMaster, envs[0].EventName)
		assert.Equal(t, 0, d.Buffered())
	})

	t.Run("multiple frames in one chunk", func(t *testing.T) {
		var d Decoder
		chunk := append(frame(t, EventSetMaster, struct{}{}), frame(t, EventCancelMaster, struct{}{})...)

		envs, errs := d.Push(chunk)
		require.Empty(t, errs)
		require.Len(t, envs, 2)
		assert.Equal(t, EventSetMaster, envs[0].EventName)
		assert.Equal(t, EventCancelMaster, envs[1].EventName)
	})

	t.Run("trailing partial frame stays buffered", func(t *testing.T) {
		var d Decoder
		next := frame(t, EventCancelMaster, struct{}{})
		chunk := append(frame(t, EventSetMaster, struct{}{}), next[:5]...)

		envs, errs := d.Push(chunk)
		require.Empty(t, errs)
		require.Len(t, envs, 1)
		assert.Equal(t, 5, d.Buffered())

		envs, errs = d.Push(next[5:])
		require.Empty(t, errs)
		require.Len(t, envs, 1)
		assert.Equal(t, EventCancelMaster, envs[0].EventName)
	})

	t.Run("malformed frame is skipped and later frames survive", func(t *testing.T) {
		var d Decoder
		chunk := append([]byte("{not json"), Terminator)
		chunk = append(chunk, frame(t, EventSetMaster, struct{}{})...)

		envs, errs := d.Push(chunk)
		require.Len(t, errs, 1)
		var decErr *DecodeError
		require.ErrorAs(t, errs[0], &decErr)
		assert.Equal(t, []byte("{not json"), decErr.Frame)

		require.Len(t, envs, 1)
		assert.Equal(t, EventSetMaster, envs[0].EventName)
	})

	t.Run("empty frame is malformed", func(t *testing.T) {
		var d Decoder
		envs, errs := d.Push([]byte{Terminator})
		assert.Empty(t, envs)
		assert.Len(t, errs, 1)
	})
}

func TestEncode(t *testing.T) {
	t.Run("frame ends with terminator", func(t *testing.T) {
		b, err := Encode(EventLogin, LoginData{ID: "1", Name: "a", RoomID: "r"})
		require.NoError(t, err)
		assert.Equal(t, Terminator, b[len(b)-1])
	})

	t.Run("nil payload encodes as JSON null", func(t *testing.T) {
		b, err := Encode(EventEndShare, nil)
		require.NoError(t, err)

		var d Decoder
		envs, errs := d.Push(b)
		require.Empty(t, errs)
		require.Len(t, envs, 1)
		assert.Equal(t, json.RawMessage("null"), envs[0].EventData)
	})

	t.Run("round trip preserves name and data", func(t *testing.T) {
		payload := map[string]any{"x": 1.0, "nested": map[string]any{"s": "hi"}}
		b, err := Encode(EventSendShare, SharePush{Data: mustMarshal(t, payload)})
		require.NoError(t, err)

		var d Decoder
		envs, errs := d.Push(b)
		require.Empty(t, errs)
		require.Len(t, envs, 1)
		assert.Equal(t, EventSendShare, envs[0].EventName)

		var push SharePush
		require.NoError(t, json.Unmarshal(envs[0].EventData, &push))
		var got map[string]any
		require.NoError(t, json.Unmarshal(push.Data, &got))
		assert.Equal(t, payload, got)
	})
}

func mustMarshal(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
