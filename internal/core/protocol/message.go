package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/zeusync/stereoview/internal/core/physics"
	"github.com/zeusync/stereoview/internal/core/viewer"
)

// Type is the message discriminator.
type Type string

// Client to server.
const (
	TypeFrame   Type = "frame"
	TypePress   Type = "press"
	TypeRelease Type = "release"
	TypeClick   Type = "click"
	TypeLayout  Type = "layout"
	TypeUI      Type = "ui"
	TypeXR      Type = "xr"
	TypeMode    Type = "mode"
	TypeVR      Type = "vr"
)

// Server to client.
const (
	TypeHello          Type = "hello"
	TypeState          Type = "state"
	TypeHighlight      Type = "highlight"
	TypeClearHighlight Type = "clear_highlight"
	TypeActivate       Type = "activate"
	TypeIndicator      Type = "indicator"
	TypeWorld          Type = "world"
	TypeError          Type = "error"
)

var clientTypes = map[Type]struct{}{
	TypeFrame: {}, TypePress: {}, TypeRelease: {}, TypeClick: {},
	TypeLayout: {}, TypeUI: {}, TypeXR: {}, TypeMode: {}, TypeVR: {},
}

// IsClientType reports whether t may be sent by a page.
func IsClientType(t Type) bool {
	_, ok := clientTypes[t]
	return ok
}

// Message is the JSON envelope of every message on the wire.
type Message struct {
	Type    Type            `json:"type"`
	Seq     uint64          `json:"seq,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// New builds a message, encoding payload unless it is nil.
func New(t Type, payload any) (Message, error) {
	m := Message{Type: t}
	if payload == nil {
		return m, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("%w: encode %s payload: %v", ErrInvalidMessage, t, err)
	}
	m.Payload = data
	return m, nil
}

// Parse decodes an envelope and checks it names a client message type.
func Parse(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if m.Type == "" {
		return Message{}, fmt.Errorf("%w: missing type", ErrInvalidMessage)
	}
	if !IsClientType(m.Type) {
		return m, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return m, nil
}

// Decode unmarshals the payload into v. A missing payload leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %v", ErrInvalidMessage, m.Type, err)
	}
	return nil
}

// Pose is a head pose in the page's XR reference space.
type Pose struct {
	Position    physics.Vec3 `json:"position"`
	Orientation physics.Quat `json:"orientation"`
}

// Frame is sent once per rendered frame while an XR session presents, and
// on pointer moves in the stereo-split fallback.
type Frame struct {
	Pose    *Pose `json:"pose,omitempty"`
	Pointer bool  `json:"pointer,omitempty"`
}

type Click struct {
	ID string `json:"id"`
}

type Layout struct {
	Targets []viewer.TargetSpec `json:"targets"`
}

type UI struct {
	Visible bool `json:"visible"`
}

type XR struct {
	Presenting bool `json:"presenting"`
}

type ModeChange struct {
	Mode string `json:"mode"`
}

type Hello struct {
	Session string `json:"session"`
	DwellMS int64  `json:"dwell_ms"`
}

// Target carries the id for highlight, clear_highlight and activate.
type Target struct {
	ID string `json:"id"`
}

type Indicator struct {
	Active bool `json:"active"`
}

type Error struct {
	Message string `json:"message"`
	// Ref is the seq of the client message that caused the error, if any.
	Ref uint64 `json:"ref,omitempty"`
}
