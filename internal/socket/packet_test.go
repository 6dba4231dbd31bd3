package socket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEngine(t *testing.T) {
	typ, payload, err := SplitEngine(`0{"sid":"abc"}`)
	require.NoError(t, err)
	assert.Equal(t, EngineOpen, typ)
	assert.Equal(t, `{"sid":"abc"}`, payload)

	_, _, err = SplitEngine("")
	assert.ErrorIs(t, err, ErrMalformedPacket)
	_, _, err = SplitEngine("9")
	assert.ErrorIs(t, err, ErrMalformedPacket)
}

func TestDecodePacket(t *testing.T) {
	tests := []struct {
		in   string
		want Packet
	}{
		{"0", Packet{Type: PacketConnect, Namespace: "/", ID: -1}},
		{`0{"sid":"x"}`, Packet{Type: PacketConnect, Namespace: "/", ID: -1, Data: json.RawMessage(`{"sid":"x"}`)}},
		{`2["ping"]`, Packet{Type: PacketEvent, Namespace: "/", ID: -1, Data: json.RawMessage(`["ping"]`)}},
		{`2/admin,12["x",1]`, Packet{Type: PacketEvent, Namespace: "/admin", ID: 12, Data: json.RawMessage(`["x",1]`)}},
		{"1/admin", Packet{Type: PacketDisconnect, Namespace: "/admin", ID: -1}},
	}
	for _, tt := range tests {
		got, err := DecodePacket(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestDecodePacketErrors(t *testing.T) {
	for _, in := range []string{"", "5", `2{broken`} {
		_, err := DecodePacket(in)
		assert.ErrorIs(t, err, ErrMalformedPacket, in)
	}
}

func TestEncode(t *testing.T) {
	assert.Equal(t, "40", Packet{Type: PacketConnect, Namespace: "/", ID: -1}.Encode())
	assert.Equal(t, `42/admin,7["x"]`, Packet{Type: PacketEvent, Namespace: "/admin", ID: 7, Data: json.RawMessage(`["x"]`)}.Encode())

	p, err := NewEvent(EventConnectionLost, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, `42["sensor-connection-lost","dev-1"]`, p.Encode())
}

func TestEvent(t *testing.T) {
	p, err := DecodePacket(`2["sensor-settings-updated",{"deviceId":"dev-1"},3]`)
	require.NoError(t, err)

	name, args, err := p.Event()
	require.NoError(t, err)
	assert.Equal(t, EventSettingsUpdated, name)
	require.Len(t, args, 2)
	assert.JSONEq(t, `{"deviceId":"dev-1"}`, string(args[0]))

	for _, in := range []string{`2[]`, `2[1,2]`, `2{"a":1}`, `0`} {
		p, err := DecodePacket(in)
		require.NoError(t, err, in)
		_, _, err = p.Event()
		assert.ErrorIs(t, err, ErrMalformedPacket, in)
	}
}

func TestConnectError(t *testing.T) {
	p, err := DecodePacket(`4{"message":"Not authorized"}`)
	require.NoError(t, err)
	assert.EqualError(t, connectError(p), "connect refused: Not authorized")
	assert.EqualError(t, connectError(Packet{Type: PacketConnectError}), "connect refused")
}

func TestEndpoint(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8000":        "ws://localhost:8000/socket.io/?EIO=4&transport=websocket",
		"https://example.com/":         "wss://example.com/socket.io/?EIO=4&transport=websocket",
		"wss://example.com/push?tok=1": "wss://example.com/push/socket.io/?EIO=4&tok=1&transport=websocket",
	}
	for in, want := range tests {
		got, err := Endpoint(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := Endpoint("ftp://example.com")
	assert.Error(t, err)
	_, err = Endpoint("http://")
	assert.Error(t, err)
}
