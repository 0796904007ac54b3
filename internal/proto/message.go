// Package proto defines the realtime wire envelopes.
package proto

import "encoding/json"

const (
	// TypeReply tags answers to action frames. The spelling is part of
	// the deployed protocol.
	TypeReply        = "replay"
	TypeNotification = "notification"
)

// Inbound is an action frame sent by the client.
type Inbound struct {
	Action     string          `json:"action"`
	RequestUID json.RawMessage `json:"requestUid"`
	Params     json.RawMessage `json:"params"`
}

// HasRequestUID reports whether the frame carries a usable correlation id.
func (in Inbound) HasRequestUID() bool {
	switch string(in.RequestUID) {
	case "", "null", `""`, "0", "false":
		return false
	}
	return true
}

// Reply answers one inbound frame.
type Reply struct {
	Type       string          `json:"type"`
	RequestUID json.RawMessage `json:"requestUid,omitempty"`
	Data       any             `json:"data,omitempty"`
	Err        any             `json:"err,omitempty"`
}

// Notification is a server push.
type Notification struct {
	Type         string `json:"type"`
	Notification string `json:"notification"`
	Data         any    `json:"data"`
}

// Error is the body of a protocol level failure.
type Error struct {
	Msg string `json:"msg"`
}
