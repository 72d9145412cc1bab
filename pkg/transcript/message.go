package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Message types sent by the stream endpoint
const (
	TypeTranscription = "transcription"
	TypeHeartbeat     = "heartbeat"
)

// TranscriptionCallback is called when a final transcription is rendered
type TranscriptionCallback func(msg Message)

// Message is a decoded inbound stream message
type Message struct {
	Type                 string
	IsFinal              bool
	Transcription        string
	CleanedTranscription string
}

// IsFinalTranscription reports whether the message should be rendered
func (m Message) IsFinalTranscription() bool {
	return m.Type == TypeTranscription && m.IsFinal
}

// ParseError is returned when a frame is not valid JSON for a message
type ParseError struct {
	Payload []byte
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode stream message (%d bytes): %v", len(e.Payload), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// wireMessage keeps every field raw so loosely typed payloads still decode
type wireMessage struct {
	Type                 json.RawMessage `json:"type"`
	IsFinal              json.RawMessage `json:"is_final"`
	Transcription        json.RawMessage `json:"transcription"`
	CleanedTranscription json.RawMessage `json:"cleaned_transcription"`
}

// Decode parses a text frame into a Message.
// Errors are always of type *ParseError.
func Decode(data []byte) (Message, error) {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{}, &ParseError{Payload: data, Err: err}
	}

	var msg Message
	// A non-string type never matches a known type
	if s, ok := stringValue(wire.Type); ok {
		msg.Type = s
	}
	msg.IsFinal = truthy(wire.IsFinal)
	msg.Transcription = textValue(wire.Transcription)
	msg.CleanedTranscription = textValue(wire.CleanedTranscription)
	return msg, nil
}

func stringValue(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// truthy applies JavaScript truthiness to a JSON value
func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	switch raw[0] {
	case 't':
		return true
	case 'f', 'n':
		return false
	case '"':
		s, _ := stringValue(raw)
		return s != ""
	case '[', '{':
		return true
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return false
		}
		return f != 0
	}
}

// textValue converts a JSON value to the text a display element shows,
// following JavaScript string conversion
func textValue(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	switch raw[0] {
	case '"':
		s, _ := stringValue(raw)
		return s
	case '{':
		return "[object Object]"
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return string(raw)
		}
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = textValue(item)
		}
		return strings.Join(parts, ",")
	case 't', 'f':
		return string(raw)
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return string(raw)
		}
		return numberText(f)
	}
}

// numberText formats a number like JavaScript: plain decimals between
// 1e-6 and 1e21, exponent form outside
func numberText(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	n, _ := strconv.Atoi(exp)
	return fmt.Sprintf("%se%+d", mantissa, n)
}
