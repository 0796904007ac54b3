package core

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeProtocol     = "protocol"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeValidation   = "validation"
	ErrCodeNotFound     = "not_found"
	ErrCodeExternal     = "external"
	ErrCodeInternal     = "internal"
)

// ErrStopped is returned when the registry loop is no longer running.
var ErrStopped = errors.New("registry stopped")

// Error wraps a code and human-readable message. Handler errors of this
// type are replied to the client as-is; anything else is internal.
type Error struct {
	Code    string
	Message string
	// Nested errors keep the historical {"err": msg} reply shape.
	Nested bool
}

func (e *Error) Error() string {
	return e.Message
}

// MarshalJSON renders the error the way clients expect it in a reply.
func (e *Error) MarshalJSON() ([]byte, error) {
	if e.Nested {
		return json.Marshal(struct {
			Err string `json:"err"`
		}{Err: e.Message})
	}
	return json.Marshal(e.Message)
}

func coreError(code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

func nestedError(code, msg string) *Error {
	return &Error{Code: code, Message: msg, Nested: true}
}

var (
	ErrAuth               = coreError(ErrCodeUnauthorized, "auth error")
	ErrNotAllowed         = coreError(ErrCodeUnauthorized, "action is not allowed")
	ErrInvalidParams      = coreError(ErrCodeValidation, "invalid params")
	ErrViewerNotFound     = coreError(ErrCodeNotFound, "viewer not found")
	ErrReceiverNotFound   = coreError(ErrCodeNotFound, "receiver not found")
	ErrAdminMute          = coreError(ErrCodeUnauthorized, "admin can't be muted")
	ErrAdminUnmute        = coreError(ErrCodeUnauthorized, "admin can't be unmuted")
	ErrMessageTooLong     = coreError(ErrCodeValidation, "message is too long")
	ErrGuestMessage       = coreError(ErrCodeUnauthorized, "Guest is not able to send messages")
	ErrNotInPrivate       = coreError(ErrCodeUnauthorized, "The user is not in private room")
	ErrNotificationRole   = coreError(ErrCodeUnauthorized, "Only the broadcaster is able to send notifications")
	ErrUnknownMessageType = coreError(ErrCodeValidation, "Unknown message type")
)

// Tipping errors keep the nested reply shape.
var (
	ErrTipAmount       = nestedError(ErrCodeValidation, "Invalid token amount")
	ErrTipAuth         = nestedError(ErrCodeUnauthorized, "auth error")
	ErrTipViewer       = nestedError(ErrCodeValidation, "Invalid params")
	ErrTipInFlight     = nestedError(ErrCodeValidation, "too many requests")
	ErrTipBalance      = nestedError(ErrCodeExternal, "Request tokens balance error")
	ErrTipBalanceParse = nestedError(ErrCodeExternal, "Parse xml data error")
	ErrTipSend         = nestedError(ErrCodeExternal, "Request send token error")
)

func errNotEnoughTokens(available int) *Error {
	return nestedError(ErrCodeExternal, fmt.Sprintf("Not enough tokens. Available %d tokens", available))
}
