package core

import "encoding/json"

// EventKind distinguishes replies from server pushes.
type EventKind int

const (
	// EventReply answers an inbound action frame.
	EventReply EventKind = iota
	// EventNotification is a server push.
	EventNotification
)

// Event is queued on a Client and written by the transport.
type Event struct {
	Kind         EventKind
	Notification string
	RequestUID   json.RawMessage
	Data         any
	Err          any
}

// Notifications pushed to clients.
const (
	NotificationUserListChanged       = "user-list-change"
	NotificationMessageDelivered      = "message-delivered"
	NotificationTipsSent              = "tips-sent"
	NotificationTipGoalSet            = "tip-goal-set"
	NotificationRoomIsPrivate         = "room-is-private"
	NotificationRoomIsPublic          = "room-is-public"
	NotificationPropertySet           = "property-set"
	NotificationPropertyRemoved       = "property-removed"
	NotificationWowzaIDChanged        = "wowza-id-changed"
	NotificationAllowGroupShowChanged = "allow-group-show-changed"
	NotificationTitleChanged          = "title-changed"
)

// UserListChange is the consolidated membership diff.
type UserListChange struct {
	JoinedUsers   []UserSnapshot `json:"joinedUsers"`
	LeftUsers     []string       `json:"leftUsers"`
	NumberOfUsers int            `json:"numberOfUsers"`
}

// TipsSent announces a completed tip to the room.
type TipsSent struct {
	Tokens     int          `json:"tokens"`
	SenderData UserSnapshot `json:"senderData"`
}

// TipGoalSet announces a new tip goal.
type TipGoalSet struct {
	TipGoal    any          `json:"tipGoal"`
	SenderData UserSnapshot `json:"senderData"`
}

// RoomIsPrivate is sent to each member individually when a show goes private.
type RoomIsPrivate struct {
	UserInPrivate bool    `json:"userInPrivate"`
	PrivateShow   bool    `json:"privateShow"`
	Tariff        float64 `json:"tariff"`
}

// PropertySet announces a room property change.
type PropertySet struct {
	Property string `json:"property"`
	Value    any    `json:"value"`
}

// PropertyRemoved announces a room property removal.
type PropertyRemoved struct {
	Property string `json:"property"`
}

// WowzaIDChanged tells the broadcaster which media stream a member uses.
type WowzaIDChanged struct {
	UserID  string `json:"userId"`
	WowzaID string `json:"wowzaId"`
}

// AllowGroupShowChanged announces the group show flag.
type AllowGroupShowChanged struct {
	AllowGroupShow bool `json:"allowGroupShow"`
}

// TitleChanged announces a new room title.
type TitleChanged struct {
	Title string `json:"title"`
}
