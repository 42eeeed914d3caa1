// Package protocol defines the JSON control messages exchanged with the
// backend over the upstream socket and the codec that validates them.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Type discriminates the control-message variants.
type Type string

const (
	// Inbound from the backend.
	TypeCreatePeer  Type = "create-peer"
	TypeDestroyPeer Type = "destroy-peer"

	// Outbound acknowledgements.
	TypePeerCreated   Type = "peer-created"
	TypePeerDestroyed Type = "peer-destroyed"
)

// Message is a decoded control frame. Which fields are meaningful depends on
// Type; Decode guarantees the required ones for each variant are present.
type Message struct {
	Type      Type   `json:"type"`
	SessionID string `json:"session_id"`
	RoomID    string `json:"room_id,omitempty"`
	Success   *bool  `json:"success,omitempty"`
}

// DecodeError reports a frame the codec could not accept. The connection is
// expected to survive it; callers log and drop the frame.
type DecodeError struct {
	Reason string
	Raw    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode signaling message: %s", e.Reason)
}

// Decode parses and validates a raw text frame.
func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, &DecodeError{Reason: err.Error(), Raw: string(data)}
	}

	switch msg.Type {
	case TypeCreatePeer:
		if msg.SessionID == "" {
			return Message{}, &DecodeError{Reason: "create-peer missing session_id", Raw: string(data)}
		}
		if msg.RoomID == "" {
			return Message{}, &DecodeError{Reason: "create-peer missing room_id", Raw: string(data)}
		}
	case TypeDestroyPeer:
		if msg.SessionID == "" {
			return Message{}, &DecodeError{Reason: "destroy-peer missing session_id", Raw: string(data)}
		}
	case TypePeerCreated:
		if msg.SessionID == "" {
			return Message{}, &DecodeError{Reason: "peer-created missing session_id", Raw: string(data)}
		}
		if msg.Success == nil {
			return Message{}, &DecodeError{Reason: "peer-created missing success", Raw: string(data)}
		}
	case TypePeerDestroyed:
		if msg.SessionID == "" {
			return Message{}, &DecodeError{Reason: "peer-destroyed missing session_id", Raw: string(data)}
		}
	case "":
		return Message{}, &DecodeError{Reason: "missing type", Raw: string(data)}
	default:
		return Message{}, &DecodeError{Reason: fmt.Sprintf("unknown type %q", msg.Type), Raw: string(data)}
	}

	return msg, nil
}

// Encode serializes a message for the wire. Marshaling a Message cannot fail,
// so the error path collapses into the return value.
func Encode(msg Message) []byte {
	data, _ := json.Marshal(msg)
	return data
}

// NewPeerCreated builds the acknowledgement for a create-peer request.
func NewPeerCreated(sessionID string, success bool) Message {
	return Message{Type: TypePeerCreated, SessionID: sessionID, Success: &success}
}

// NewPeerDestroyed builds the acknowledgement for a destroy-peer request.
func NewPeerDestroyed(sessionID string) Message {
	return Message{Type: TypePeerDestroyed, SessionID: sessionID}
}
