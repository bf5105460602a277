// Package protocol implements the binary frame format used to multiplex
// stdin, stdout, stderr and exit over a single exec WebSocket connection.
//
// Non-TTY traffic carries a leading stream id byte followed by the raw
// payload. TTY traffic is unframed: the remote terminal merges stdout and
// stderr into one stream and interprets every inbound byte as a keystroke.
// In both modes a message starting with '{' is a JSON control message.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/slok/sprites/internal/model"
)

// StreamID identifies the logical channel of a non-TTY frame.
type StreamID byte

const (
	StreamStdin    StreamID = 0
	StreamStdout   StreamID = 1
	StreamStderr   StreamID = 2
	StreamExit     StreamID = 3
	StreamStdinEOF StreamID = 4
)

func (s StreamID) String() string {
	switch s {
	case StreamStdin:
		return "stdin"
	case StreamStdout:
		return "stdout"
	case StreamStderr:
		return "stderr"
	case StreamExit:
		return "exit"
	case StreamStdinEOF:
		return "stdin_eof"
	default:
		return fmt.Sprintf("unknown(%d)", byte(s))
	}
}

// Kind is the kind of event a decoded inbound message carries.
type Kind int

const (
	// KindNone is a message that must not be dispatched (empty, unknown
	// stream or unknown control message).
	KindNone Kind = iota
	KindStdout
	KindStderr
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindStdout:
		return "stdout"
	case KindStderr:
		return "stderr"
	case KindExit:
		return "exit"
	default:
		return "none"
	}
}

// Frame is a decoded inbound message.
type Frame struct {
	Kind Kind
	// Data is the payload for stdout and stderr frames.
	Data []byte
	// ExitCode is set for exit frames.
	ExitCode int
}

const (
	controlMessagePrefix = '{'
	controlTypeExit      = "exit"
)

type controlMessage struct {
	Type     string `json:"type"`
	ExitCode *int   `json:"exit_code"`
}

// EncodeStdin returns the message to send for a stdin write.
func EncodeStdin(data []byte, tty bool) []byte {
	if tty {
		msg := make([]byte, len(data))
		copy(msg, data)
		return msg
	}

	msg := make([]byte, 0, len(data)+1)
	msg = append(msg, byte(StreamStdin))
	return append(msg, data...)
}

// EncodeEOF returns the message that signals stdin is closed. Only valid on
// non-TTY sessions.
func EncodeEOF() []byte {
	return []byte{byte(StreamStdinEOF)}
}

// Split splits a non-TTY frame into its stream id and payload. Returns false
// on empty messages.
func Split(msg []byte) (StreamID, []byte, bool) {
	if len(msg) == 0 {
		return 0, nil, false
	}
	return StreamID(msg[0]), msg[1:], true
}

// IsControlMessage returns true if the message must be handled as a JSON
// control message.
//
// Binary payloads starting with 0x7B are indistinguishable from control
// messages, the wire format is fixed so this is accepted as is.
func IsControlMessage(msg []byte) bool {
	return len(msg) > 0 && msg[0] == controlMessagePrefix
}

// Decode decodes an inbound message for a session in the given mode.
func Decode(msg []byte, tty bool) (Frame, error) {
	if len(msg) == 0 {
		return Frame{Kind: KindNone}, nil
	}

	if IsControlMessage(msg) {
		return decodeControl(msg)
	}

	if tty {
		return Frame{Kind: KindStdout, Data: msg}, nil
	}

	id, payload, _ := Split(msg)
	switch id {
	case StreamStdout, StreamStderr:
		if len(payload) == 0 {
			return Frame{Kind: KindNone}, nil
		}
		kind := KindStdout
		if id == StreamStderr {
			kind = KindStderr
		}
		return Frame{Kind: kind, Data: payload}, nil
	case StreamExit:
		code := 0
		if len(payload) > 0 {
			code = int(payload[len(payload)-1])
		}
		return Frame{Kind: KindExit, ExitCode: code}, nil
	default:
		return Frame{Kind: KindNone}, nil
	}
}

func decodeControl(msg []byte) (Frame, error) {
	var ctrl controlMessage
	if err := json.Unmarshal(msg, &ctrl); err != nil {
		return Frame{}, fmt.Errorf("invalid control message: %w: %w", err, model.ErrProtocol)
	}

	switch ctrl.Type {
	case controlTypeExit:
		if ctrl.ExitCode == nil {
			return Frame{}, fmt.Errorf("exit control message without exit code: %w", model.ErrProtocol)
		}
		return Frame{Kind: KindExit, ExitCode: *ctrl.ExitCode}, nil
	default:
		// Unknown control messages are ignored.
		return Frame{Kind: KindNone}, nil
	}
}
