// Package cable defines the ActionCable frames spoken by the entity stream.
package cable

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoMessage is returned when a frame carries no channel message.
var ErrNoMessage = errors.New("frame has no channel message")

// Protocol frame types (server -> client). Channel broadcasts carry no type.
const (
	TypeWelcome    = "welcome"
	TypePing       = "ping"
	TypeConfirm    = "confirm_subscription"
	TypeReject     = "reject_subscription"
	TypeDisconnect = "disconnect"
)

// Commands (client -> server).
const (
	CommandSubscribe   = "subscribe"
	CommandUnsubscribe = "unsubscribe"
)

// ChannelAPI is the channel that broadcasts world state.
const ChannelAPI = "ApiChannel"

// Channel message types on ChannelAPI.
const (
	MessageWorld  = "world"
	MessageEntity = "entity"
)

// Command is a client frame. Identifier is itself a JSON document encoded
// as a string.
type Command struct {
	Command    string `json:"command"`
	Identifier string `json:"identifier"`
}

// Identifier names a channel subscription.
type Identifier struct {
	Channel string `json:"channel"`
}

// Subscribe builds the subscribe command for channel.
func Subscribe(channel string) Command {
	id, _ := json.Marshal(Identifier{Channel: channel})
	return Command{Command: CommandSubscribe, Identifier: string(id)}
}

// Encode encodes the command to bytes.
func (c Command) Encode() []byte {
	data, _ := json.Marshal(c)
	return data
}

// Frame is one server frame.
type Frame struct {
	Type       string          `json:"type,omitempty"`
	Identifier string          `json:"identifier,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	Reconnect  bool            `json:"reconnect,omitempty"`
}

// DecodeFrame decodes one server frame.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// IsBroadcast reports whether f carries a channel message.
func (f Frame) IsBroadcast() bool {
	return f.Type == "" && len(f.Message) > 0
}

// ChannelMessage is a broadcast on ChannelAPI.
type ChannelMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ChannelMessage decodes the broadcast carried by f.
func (f Frame) ChannelMessage() (ChannelMessage, error) {
	if !f.IsBroadcast() {
		return ChannelMessage{}, ErrNoMessage
	}
	var m ChannelMessage
	if err := json.Unmarshal(f.Message, &m); err != nil {
		return ChannelMessage{}, fmt.Errorf("decode channel message: %w", err)
	}
	return m, nil
}

// World is the payload of a MessageWorld broadcast.
type World struct {
	Entities json.RawMessage `json:"entities"`
}
