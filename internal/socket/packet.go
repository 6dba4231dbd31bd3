// Package socket is a minimal Socket.IO (protocol v5 over Engine.IO v4)
// client for the backend's push channel. Only the websocket transport and
// text packets are supported.
package socket

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// EngineType is the Engine.IO packet type, the first byte of every frame.
type EngineType byte

const (
	EngineOpen    EngineType = '0'
	EngineClose   EngineType = '1'
	EnginePing    EngineType = '2'
	EnginePong    EngineType = '3'
	EngineMessage EngineType = '4'
	EngineUpgrade EngineType = '5'
	EngineNoop    EngineType = '6'
)

// PacketType is the Socket.IO packet type carried in an engine message.
type PacketType byte

const (
	PacketConnect      PacketType = '0'
	PacketDisconnect   PacketType = '1'
	PacketEvent        PacketType = '2'
	PacketAck          PacketType = '3'
	PacketConnectError PacketType = '4'
)

// DefaultNamespace is the namespace used when a packet names none.
const DefaultNamespace = "/"

var ErrMalformedPacket = errors.New("malformed packet")

// Packet is a decoded Socket.IO packet.
type Packet struct {
	Type      PacketType
	Namespace string
	ID        int // ack id, -1 when absent
	Data      json.RawMessage
}

// handshake is the payload of the engine open packet.
type handshake struct {
	SID          string   `json:"sid"`
	Upgrades     []string `json:"upgrades"`
	PingInterval int      `json:"pingInterval"` // ms
	PingTimeout  int      `json:"pingTimeout"`  // ms
	MaxPayload   int      `json:"maxPayload"`
}

// SplitEngine separates an engine frame into its type and payload.
func SplitEngine(frame string) (EngineType, string, error) {
	if frame == "" {
		return 0, "", fmt.Errorf("%w: empty frame", ErrMalformedPacket)
	}
	t := EngineType(frame[0])
	if t < EngineOpen || t > EngineNoop {
		return 0, "", fmt.Errorf("%w: engine type %q", ErrMalformedPacket, frame[0])
	}
	return t, frame[1:], nil
}

// DecodePacket parses the payload of an engine message frame:
//
//	<type>[/<namespace>,][<ack id>][<json data>]
func DecodePacket(payload string) (Packet, error) {
	if payload == "" {
		return Packet{}, fmt.Errorf("%w: empty payload", ErrMalformedPacket)
	}

	p := Packet{Type: PacketType(payload[0]), Namespace: DefaultNamespace, ID: -1}
	if p.Type < PacketConnect || p.Type > PacketConnectError {
		return Packet{}, fmt.Errorf("%w: unsupported packet type %q", ErrMalformedPacket, payload[0])
	}
	rest := payload[1:]

	if strings.HasPrefix(rest, "/") {
		i := strings.IndexByte(rest, ',')
		if i < 0 {
			p.Namespace = rest
			return p, nil
		}
		p.Namespace = rest[:i]
		rest = rest[i+1:]
	}

	digits := 0
	for digits < len(rest) && rest[digits] >= '0' && rest[digits] <= '9' {
		digits++
	}
	if digits > 0 {
		id, err := strconv.Atoi(rest[:digits])
		if err != nil {
			return Packet{}, fmt.Errorf("%w: ack id: %v", ErrMalformedPacket, err)
		}
		p.ID = id
		rest = rest[digits:]
	}

	if rest != "" {
		if !json.Valid([]byte(rest)) {
			return Packet{}, fmt.Errorf("%w: invalid json data", ErrMalformedPacket)
		}
		p.Data = json.RawMessage(rest)
	}
	return p, nil
}

// Encode renders p as an engine message frame.
func (p Packet) Encode() string {
	var sb strings.Builder
	sb.WriteByte(byte(EngineMessage))
	sb.WriteByte(byte(p.Type))
	if p.Namespace != "" && p.Namespace != DefaultNamespace {
		sb.WriteString(p.Namespace)
		sb.WriteByte(',')
	}
	if p.ID >= 0 {
		sb.WriteString(strconv.Itoa(p.ID))
	}
	sb.Write(p.Data)
	return sb.String()
}

// Event splits an event packet's data into its name and arguments.
func (p Packet) Event() (string, []json.RawMessage, error) {
	if p.Type != PacketEvent {
		return "", nil, fmt.Errorf("%w: not an event packet", ErrMalformedPacket)
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(p.Data, &parts); err != nil || len(parts) == 0 {
		return "", nil, fmt.Errorf("%w: event data must be a non-empty array", ErrMalformedPacket)
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, fmt.Errorf("%w: event name must be a string", ErrMalformedPacket)
	}
	return name, parts[1:], nil
}

// NewEvent builds an event packet for the default namespace.
func NewEvent(name string, args ...any) (Packet, error) {
	parts := make([]any, 0, len(args)+1)
	parts = append(parts, name)
	parts = append(parts, args...)
	data, err := json.Marshal(parts)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Type: PacketEvent, Namespace: DefaultNamespace, ID: -1, Data: data}, nil
}

// connectError extracts the message of a connect_error packet.
func connectError(p Packet) error {
	var body struct {
		Message string `json:"message"`
	}
	if len(p.Data) > 0 && json.Unmarshal(p.Data, &body) == nil && body.Message != "" {
		return fmt.Errorf("connect refused: %s", body.Message)
	}
	return errors.New("connect refused")
}
