// Package protocol defines the wire frames for live transcription
// websocket sessions.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Message type names shared by both directions of the wire protocol.
const (
	TypeStart = "start"
	TypeAudio = "audio"
	TypeStop  = "stop"
	TypePing  = "ping"

	TypeConnected      = "connected"
	TypeSessionStarted = "session_started"
	TypeTranscript     = "transcript"
	TypeSessionEnded   = "session_ended"
	TypePong           = "pong"
	TypeError          = "error"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badRequest(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_request", Message: message, Param: param}
}

// ClientStart opens a transcription session.
type ClientStart struct {
	Type         string   `json:"type"`
	MeetingTitle string   `json:"meeting_title,omitempty"`
	Language     string   `json:"language,omitempty"`
	Participants []string `json:"participants,omitempty"`
}

// ClientAudio carries one base64-encoded PCM fragment
// (little-endian 16-bit mono, 16 kHz).
type ClientAudio struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ClientStop ends the session and requests the final transcript.
type ClientStop struct {
	Type string `json:"type"`
}

// ClientPing is a heartbeat; the server answers with pong.
type ClientPing struct {
	Type string `json:"type"`
}

// DecodeClientMessage parses an inbound text frame into one of the typed
// client messages. Unknown or malformed frames yield a *DecodeError; the
// connection stays open.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badRequest("missing type", "type")
	}

	switch typ {
	case TypeStart:
		var msg ClientStart
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid start frame", "")
		}
		msg.Language = strings.TrimSpace(msg.Language)
		if msg.Language == "" {
			msg.Language = "en"
		}
		return msg, nil
	case TypeAudio:
		var msg ClientAudio
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid audio frame", "")
		}
		if strings.TrimSpace(msg.Data) == "" {
			return nil, badRequest("audio.data is required", "data")
		}
		return msg, nil
	case TypeStop:
		var msg ClientStop
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badRequest("invalid stop frame", "")
		}
		return msg, nil
	case TypePing:
		return ClientPing{Type: TypePing}, nil
	default:
		return nil, badRequest(fmt.Sprintf("unknown message type: %s", typ), "type")
	}
}

// ServerConnected is sent once after the websocket upgrade.
type ServerConnected struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Message   string `json:"message,omitempty"`
}

// ServerSessionStarted acknowledges a successful start.
type ServerSessionStarted struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	MeetingID int64  `json:"meeting_id"`
	Message   string `json:"message,omitempty"`
}

// ServerTranscript is one incremental recognition result. IsFinal refers
// to the fragment, not the session; fragments are always final because
// the engine produces no partial hypotheses.
type ServerTranscript struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	IsFinal    bool    `json:"is_final"`
	Timestamp  string  `json:"timestamp"`
	Confidence float64 `json:"confidence"`
}

// ServerSessionEnded carries the finalized transcript.
type ServerSessionEnded struct {
	Type            string  `json:"type"`
	SessionID       string  `json:"session_id"`
	MeetingID       int64   `json:"meeting_id"`
	FinalTranscript string  `json:"final_transcript"`
	Duration        float64 `json:"duration"`
	WordCount       int     `json:"word_count"`
}

// ServerPong answers a ping.
type ServerPong struct {
	Type string `json:"type"`
}

// ServerError reports a recoverable protocol-level failure. The
// connection remains open unless the transport itself failed.
type ServerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
